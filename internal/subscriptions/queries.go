package subscriptions

import (
	"context"
	"net/url"

	"github.com/angelmondragon/recurly-gateway/internal/accounts"
	"github.com/angelmondragon/recurly-gateway/internal/entitlements"
	"github.com/angelmondragon/recurly-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
	"github.com/angelmondragon/recurly-gateway/pkg/pager"
	"github.com/angelmondragon/recurly-gateway/pkg/recurly"
)

func (s *service) Overview(ctx context.Context, owner accounts.Owner, actor entitlements.Actor) (*Overview, error) {
	acc, err := s.authorize(ctx, owner, actor, accessRequest{op: enums.OperationMain})
	if err != nil {
		return nil, err
	}
	overview := &Overview{
		OwnerType:    owner.Type,
		OwnerID:      owner.ID,
		AccountCode:  acc.accountCode(),
		HasAccount:   acc.record != nil,
		Mode:         s.settings.Policy.Mode,
		EnabledPlans: s.settings.Plans.Codes(),
		ActiveCount:  acc.active,
	}
	if acc.latest != nil {
		view := buildView(owner, acc.latest, acc.states)
		overview.Latest = &view
	}
	return overview, nil
}

// Plans lists the enabled plans in configured order. Plans the gateway no
// longer knows are skipped.
func (s *service) Plans(ctx context.Context, owner accounts.Owner, actor entitlements.Actor, signupPath bool) (*PlanSelection, error) {
	acc, err := s.authorize(ctx, owner, actor, accessRequest{op: enums.OperationSelectPlan, signupPath: signupPath})
	if err != nil {
		return nil, err
	}

	selection := &PlanSelection{Mode: SelectionModeSignup, Plans: []PlanOption{}}
	current := ""
	if acc.latest != nil && s.settings.Policy.Mode == enums.SubscriptionModeSingle {
		selection.Mode = SelectionModeChange
		selection.CurrentUUID = acc.latest.UUID
		selection.CurrentPlanCode = acc.latest.Plan.Code
		current = acc.latest.Plan.Code
	}

	for _, code := range s.settings.Plans.Codes() {
		plan, err := s.gateway.GetPlan(ctx, code)
		if err != nil {
			if recurly.IsNotFound(err) {
				if s.logg != nil {
					s.logg.Warn(s.logg.WithField(ctx, "plan_code", code), "enabled plan missing from gateway")
				}
				continue
			}
			return nil, err
		}
		selection.Plans = append(selection.Plans, planOption(*plan, current))
	}
	return selection, nil
}

// List pages through the owner's subscriptions, newest first.
func (s *service) List(ctx context.Context, owner accounts.Owner, actor entitlements.Actor, signupPath bool, page *int) (*SubscriptionPage, error) {
	acc, err := s.authorize(ctx, owner, actor, accessRequest{op: enums.OperationList, signupPath: signupPath})
	if err != nil {
		return nil, err
	}
	if acc.record == nil {
		return &SubscriptionPage{Items: []SubscriptionView{}, Size: s.settings.PageSize}, nil
	}

	var it pager.Iterator[recurly.Subscription] = s.gateway.ListAccountSubscriptions(acc.accountCode(), "")
	if s.settings.LiveOnly {
		it = pager.Filter(it, func(sub recurly.Subscription) bool {
			return sub.State != enums.SubscriptionStateExpired.String()
		})
	}
	result, err := pager.Fetch(ctx, it, s.settings.PageSize, page)
	if err != nil {
		return nil, err
	}

	out := &SubscriptionPage{
		Items:   make([]SubscriptionView, 0, len(result.Items)),
		Page:    result.Index,
		Size:    result.Size,
		HasMore: result.HasMore,
	}
	for i := range result.Items {
		sub := &result.Items[i]
		set, err := s.deriver.Derive(ctx, sub, acc.pastDue)
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, buildView(owner, sub, set))
	}
	return out, nil
}

func (s *service) Latest(ctx context.Context, owner accounts.Owner, actor entitlements.Actor) (*SubscriptionView, error) {
	acc, err := s.authorize(ctx, owner, actor, accessRequest{op: enums.OperationMain})
	if err != nil {
		return nil, err
	}
	if acc.latest == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active subscription")
	}
	view := buildView(owner, acc.latest, acc.states)
	return &view, nil
}

// BillingInfo returns the hosted billing form link and the card on file.
func (s *service) BillingInfo(ctx context.Context, owner accounts.Owner, actor entitlements.Actor) (*BillingSummary, error) {
	acc, err := s.authorize(ctx, owner, actor, accessRequest{op: enums.OperationBilling})
	if err != nil {
		return nil, err
	}
	account, err := s.gateway.GetAccount(ctx, acc.accountCode())
	if err != nil {
		return nil, err
	}

	summary := &BillingSummary{AccountCode: acc.accountCode()}
	if account.HostedLoginToken != "" {
		summary.UpdateURL = s.gateway.HostedURL("account/billing_info/edit?ak=" + url.QueryEscape(account.HostedLoginToken))
	}

	info, err := s.gateway.GetBillingInfo(ctx, acc.accountCode())
	if err != nil {
		if recurly.IsNotFound(err) {
			return summary, nil
		}
		return nil, err
	}
	if info != nil {
		summary.Card = &CardSummary{
			CardType: info.PaymentMethod.CardType,
			LastFour: info.PaymentMethod.LastFour,
			ExpMonth: info.PaymentMethod.ExpMonth,
			ExpYear:  info.PaymentMethod.ExpYear,
		}
	}
	return summary, nil
}
