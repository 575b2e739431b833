package subscriptions

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/recurly-gateway/internal/accounts"
	"github.com/angelmondragon/recurly-gateway/internal/entitlements"
	"github.com/angelmondragon/recurly-gateway/internal/events"
	"github.com/angelmondragon/recurly-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
	"github.com/angelmondragon/recurly-gateway/pkg/recurly"
)

// Signup creates the subscription, and the remote account on first use, then
// records the account locally.
func (s *service) Signup(ctx context.Context, owner accounts.Owner, actor entitlements.Actor, input SignupInput) (*Result, error) {
	planCode := strings.TrimSpace(input.PlanCode)
	if planCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan code is required")
	}
	if strings.TrimSpace(input.BillingToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "billing token is required")
	}
	acc, err := s.authorize(ctx, owner, actor, accessRequest{op: enums.OperationSignup, signupPath: true})
	if err != nil {
		return nil, err
	}
	if !s.settings.Plans.IsEnabled(planCode) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("plan %s is not available", planCode))
	}

	plan, err := s.gateway.GetPlan(ctx, planCode)
	if err != nil {
		return nil, err
	}
	currency := s.currency(input.Currency)
	if _, ok := plan.Price(currency); !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("plan %s is not offered in %s", plan.Code, currency))
	}

	couponCodes := []string{}
	if code := strings.TrimSpace(input.CouponCode); code != "" {
		coupon, err := s.validateCoupon(ctx, code, currency, plan.Code)
		if err != nil {
			return nil, err
		}
		couponCodes = append(couponCodes, coupon.Code)
	}

	accountCode := owner.AccountCode()
	if acc.record != nil {
		accountCode = acc.record.AccountCode
	}
	sub, err := s.gateway.CreateSubscription(ctx, recurly.SubscriptionInput{
		PlanCode: plan.Code,
		Currency: currency,
		Account: recurly.AccountInput{
			Code:        accountCode,
			Username:    strings.TrimSpace(input.Username),
			Email:       strings.TrimSpace(input.Email),
			FirstName:   strings.TrimSpace(input.FirstName),
			LastName:    strings.TrimSpace(input.LastName),
			Company:     strings.TrimSpace(input.Company),
			BillingInfo: &recurly.BillingInfoInput{TokenID: strings.TrimSpace(input.BillingToken)},
		},
		CouponCodes: couponCodes,
	})
	s.record(TransitionSignup, err)
	if err != nil {
		return nil, err
	}

	// The subscription exists remotely from here on; a failed local write is
	// repaired by the next push notification for this account.
	account, err := s.gateway.GetAccount(ctx, accountCode)
	if err != nil {
		return nil, err
	}
	record, err := s.accounts.Register(ctx, owner, *account)
	if err != nil {
		return nil, err
	}
	acc.record = record

	s.emit(ctx, acc, events.TypeSubscriptionCreated, sub.UUID, map[string]any{"plan_code": plan.Code, "currency": currency})
	view, err := s.view(ctx, acc, sub)
	if err != nil {
		return nil, err
	}
	return &Result{
		Transition:   TransitionSignup,
		Subscription: view,
		Message:      fmt.Sprintf("Account upgraded to %s!", plan.Name),
	}, nil
}
