package subscriptions

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/recurly-gateway/internal/accounts"
	"github.com/angelmondragon/recurly-gateway/internal/entitlements"
	"github.com/angelmondragon/recurly-gateway/internal/events"
	"github.com/angelmondragon/recurly-gateway/internal/states"
	"github.com/angelmondragon/recurly-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
	"github.com/angelmondragon/recurly-gateway/pkg/recurly"
	"github.com/shopspring/decimal"
)

type action string

const (
	actionCancel     action = "cancel"
	actionTerminate  action = "terminate"
	actionReactivate action = "reactivate"
	actionChange     action = "change_plan"
)

type transitionKey struct {
	from   enums.SubscriptionState
	action action
}

// validTransitions is keyed on the raw gateway state. A trial is an active
// subscription with the in_trial qualifier.
var validTransitions = map[transitionKey]bool{
	{enums.SubscriptionStateActive, actionCancel}:       true,
	{enums.SubscriptionStateActive, actionTerminate}:    true,
	{enums.SubscriptionStateCanceled, actionTerminate}:  true,
	{enums.SubscriptionStateCanceled, actionReactivate}: true,
	{enums.SubscriptionStateActive, actionChange}:       true,
}

func checkTransition(set states.Set, a action) error {
	if validTransitions[transitionKey{from: set.Primary(), action: a}] {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot %s a %s subscription", strings.ReplaceAll(string(a), "_", " "), set.Primary())).
		WithDetails(map[string]any{"state": set.Primary(), "action": a})
}

// offeredRefunds lists the refund modes the actor may pick. prorated and full
// need a positive amount and are never offered on a past-due request. none is
// reserved for billing administrators.
func (s *service) offeredRefunds(ctx context.Context, actor entitlements.Actor, sub *recurly.Subscription, pastDue bool) ([]RefundOption, error) {
	options := []RefundOption{}
	if actor.IsAdmin() {
		options = append(options, refundOption(enums.RefundModeNone, decimal.Zero, sub.Currency))
	}
	if pastDue {
		return options, nil
	}
	for _, mode := range []enums.RefundMode{enums.RefundModeProrated, enums.RefundModeFull} {
		amount, err := s.gateway.RefundAmount(ctx, sub, mode)
		if err != nil {
			return nil, err
		}
		if amount.IsPositive() {
			options = append(options, refundOption(mode, amount, sub.Currency))
		}
	}
	return options, nil
}

func refundOption(mode enums.RefundMode, amount decimal.Decimal, currency string) RefundOption {
	display := recurly.FormatMoney(amount, currency)
	return RefundOption{
		Mode:    mode,
		Amount:  amount.StringFixed(2),
		Display: fmt.Sprintf("%s - %s", display, strings.ToUpper(mode.String()[:1])+mode.String()[1:]),
	}
}

func findRefund(options []RefundOption, mode enums.RefundMode) (RefundOption, bool) {
	for _, option := range options {
		if option.Mode == mode {
			return option, true
		}
	}
	return RefundOption{}, false
}

// effectiveBehavior is the configured cancel policy, except that members
// may only soft-cancel a trial.
func (s *service) effectiveBehavior(actor entitlements.Actor, set states.Set) enums.CancelPolicy {
	if set.Has(enums.SubscriptionStateInTrial) && !actor.IsAdmin() {
		return enums.CancelPolicyCancel
	}
	return s.settings.Policy.CancelPolicy
}

func (s *service) CancelOptions(ctx context.Context, owner accounts.Owner, actor entitlements.Actor, uuid string, pastDue bool) (*CancelOptions, error) {
	_, sub, set, err := s.target(ctx, owner, actor, uuid, enums.OperationCancelLatest, enums.OperationCancel, pastDue)
	if err != nil {
		return nil, err
	}

	behavior := s.effectiveBehavior(actor, set)
	opts := &CancelOptions{
		SubscriptionUUID: sub.UUID,
		PlanName:         sub.Plan.Name,
		Behavior:         behavior,
		CanCancel:        actor.IsAdmin() || behavior == enums.CancelPolicyCancel,
		CanTerminate:     actor.IsAdmin() || behavior != enums.CancelPolicyCancel,
		InTrial:          set.Has(enums.SubscriptionStateInTrial),
		PastDue:          pastDue,
		PeriodEndsAt:     sub.CurrentPeriodEndsAt,
		RefundOptions:    []RefundOption{},
	}
	opts.CanCancel = opts.CanCancel && checkTransition(set, actionCancel) == nil
	opts.CanTerminate = opts.CanTerminate && checkTransition(set, actionTerminate) == nil

	if opts.CanTerminate {
		offered, err := s.offeredRefunds(ctx, actor, sub, pastDue)
		if err != nil {
			return nil, err
		}
		if actor.IsAdmin() {
			opts.RefundOptions = offered
		} else if mode, ok := behavior.RefundMode(); ok {
			opts.Selected = mode
			if option, found := findRefund(offered, mode); found {
				opts.RefundOptions = []RefundOption{option}
			}
		}
	}
	opts.Description = cancelDescription(opts)
	return opts, nil
}

func cancelDescription(opts *CancelOptions) string {
	if opts.CanCancel && !opts.CanTerminate {
		when := "the end of the current period"
		if opts.PeriodEndsAt != nil {
			when = opts.PeriodEndsAt.UTC().Format("January 2, 2006")
		}
		return fmt.Sprintf("Canceling a subscription will cause it not to renew. It will continue until %s and can be reactivated before it expires.", when)
	}
	msg := "This subscription will be ended immediately. If you would like to subscribe again, you will need to start a new subscription."
	if len(opts.RefundOptions) == 1 && !opts.PastDue && opts.Selected != "" {
		msg += fmt.Sprintf(" A refund of %s will be credited to your account.", strings.SplitN(opts.RefundOptions[0].Display, " - ", 2)[0])
	}
	return msg
}

// Cancel stops the subscription from renewing; it stays active until the
// current period ends.
func (s *service) Cancel(ctx context.Context, owner accounts.Owner, actor entitlements.Actor, uuid string, pastDue bool) (*Result, error) {
	acc, sub, set, err := s.target(ctx, owner, actor, uuid, enums.OperationCancelLatest, enums.OperationCancel, pastDue)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && s.effectiveBehavior(actor, set) != enums.CancelPolicyCancel {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "subscriptions on this site are terminated, not canceled")
	}
	return s.cancel(ctx, acc, sub, set)
}

func (s *service) cancel(ctx context.Context, acc *access, sub *recurly.Subscription, set states.Set) (*Result, error) {
	if err := checkTransition(set, actionCancel); err != nil {
		return nil, err
	}
	updated, err := s.gateway.CancelSubscription(ctx, sub.UUID)
	s.record(TransitionCancel, err)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, acc, events.TypeSubscriptionCanceled, updated.UUID, map[string]any{"plan_code": updated.Plan.Code})

	view, err := s.view(ctx, acc, updated)
	if err != nil {
		return nil, err
	}
	return &Result{
		Transition:   TransitionCancel,
		Subscription: view,
		Message:      fmt.Sprintf("Plan %s canceled! It will continue until %s.", updated.Plan.Name, formatPeriodEnd(updated)),
	}, nil
}

// Terminate ends the subscription immediately with the requested refund.
// Members cannot terminate a trial; the request is turned into a cancel.
func (s *service) Terminate(ctx context.Context, owner accounts.Owner, actor entitlements.Actor, uuid string, refund enums.RefundMode, pastDue bool) (*Result, error) {
	acc, sub, set, err := s.target(ctx, owner, actor, uuid, enums.OperationCancelLatest, enums.OperationCancel, pastDue)
	if err != nil {
		return nil, err
	}

	behavior := s.effectiveBehavior(actor, set)
	if !actor.IsAdmin() && behavior == enums.CancelPolicyCancel {
		return s.cancel(ctx, acc, sub, set)
	}
	if err := checkTransition(set, actionTerminate); err != nil {
		return nil, err
	}

	offered, err := s.offeredRefunds(ctx, actor, sub, pastDue)
	if err != nil {
		return nil, err
	}
	mode, err := s.resolveRefund(actor, behavior, refund, offered)
	if err != nil {
		return nil, err
	}

	updated, err := s.gateway.TerminateSubscription(ctx, sub.UUID, mode)
	s.record(TransitionTerminate, err)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Transition: TransitionTerminate,
		RefundMode: mode,
		Message:    fmt.Sprintf("Plan %s terminated!", sub.Plan.Name),
	}
	if option, ok := findRefund(offered, mode); ok && mode != enums.RefundModeNone {
		result.Refund = option.Amount
	}
	s.emit(ctx, acc, events.TypeSubscriptionTerminated, sub.UUID, map[string]any{
		"plan_code":   sub.Plan.Code,
		"refund_mode": mode,
		"refund":      result.Refund,
	})
	if updated != nil {
		view, err := s.view(ctx, acc, updated)
		if err != nil {
			return nil, err
		}
		result.Subscription = view
	}
	return result, nil
}

// resolveRefund applies the refund rules. Administrators choose among the
// offered modes. Members always get the mode implied by the cancel policy,
// or none when that mode has nothing to refund.
func (s *service) resolveRefund(actor entitlements.Actor, behavior enums.CancelPolicy, requested enums.RefundMode, offered []RefundOption) (enums.RefundMode, error) {
	if actor.IsAdmin() {
		if requested == "" {
			requested = enums.RefundModeNone
		}
		if !requested.IsValid() {
			return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid refund mode %q", requested))
		}
		if _, ok := findRefund(offered, requested); !ok {
			return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("refund mode %s is not available for this subscription", requested))
		}
		return requested, nil
	}

	mode, _ := behavior.RefundMode()
	if requested != "" && requested != mode {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "refund mode cannot be chosen")
	}
	if _, ok := findRefund(offered, mode); !ok {
		return enums.RefundModeNone, nil
	}
	return mode, nil
}

func (s *service) Reactivate(ctx context.Context, owner accounts.Owner, actor entitlements.Actor, uuid string) (*Result, error) {
	acc, sub, set, err := s.target(ctx, owner, actor, uuid, enums.OperationReactivateLatest, enums.OperationReactivate, false)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(set, actionReactivate); err != nil {
		return nil, err
	}

	updated, err := s.gateway.ReactivateSubscription(ctx, sub.UUID)
	s.record(TransitionReactivate, err)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, acc, events.TypeSubscriptionReactivated, updated.UUID, map[string]any{"plan_code": updated.Plan.Code})

	view, err := s.view(ctx, acc, updated)
	if err != nil {
		return nil, err
	}
	return &Result{
		Transition:   TransitionReactivate,
		Subscription: view,
		Message:      fmt.Sprintf("Plan %s reactivated! Normal billing will resume on %s.", updated.Plan.Name, formatPeriodEnd(updated)),
	}, nil
}

// ChangePlan moves the subscription to planCode. A new price at or above the
// current one is an upgrade; each direction has its configured timeframe,
// which only administrators may override.
func (s *service) ChangePlan(ctx context.Context, owner accounts.Owner, actor entitlements.Actor, uuid, planCode string, timeframe *enums.Timeframe) (*Result, error) {
	planCode = strings.TrimSpace(planCode)
	if planCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan code is required")
	}
	acc, sub, set, err := s.target(ctx, owner, actor, uuid, enums.OperationChangePlanLatest, enums.OperationChangePlan, false)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(set, actionChange); err != nil {
		return nil, err
	}
	if !s.settings.Plans.IsEnabled(planCode) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("plan %s is not available", planCode))
	}
	if planCode == sub.Plan.Code {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription is already on this plan")
	}

	next, err := s.gateway.GetPlan(ctx, planCode)
	if err != nil {
		return nil, err
	}
	previous, err := s.gateway.GetPlan(ctx, sub.Plan.Code)
	if err != nil {
		return nil, err
	}
	nextAmount, ok := next.Price(sub.Currency)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("plan %s has no %s price", planCode, sub.Currency))
	}
	previousAmount, ok := previous.Price(sub.Currency)
	if !ok {
		previousAmount = sub.UnitAmount
	}

	upgrade := IsUpgrade(previousAmount, nextAmount)
	chosen := s.settings.DowngradeTimeframe
	if upgrade {
		chosen = s.settings.UpgradeTimeframe
	}
	if timeframe != nil && actor.IsAdmin() {
		if !timeframe.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid timeframe %q", *timeframe))
		}
		chosen = *timeframe
	}

	updated, err := s.gateway.ChangeSubscription(ctx, sub.UUID, recurly.SubscriptionChangeInput{PlanCode: planCode, Timeframe: chosen})
	s.record(TransitionChangePlan, err)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, acc, events.TypeSubscriptionChanged, sub.UUID, map[string]any{
		"from_plan": sub.Plan.Code,
		"to_plan":   planCode,
		"timeframe": chosen,
		"upgrade":   upgrade,
	})

	result := &Result{
		Transition: TransitionChangePlan,
		Timeframe:  chosen,
		Upgrade:    &upgrade,
		Message:    fmt.Sprintf("Plan changed to %s!", next.Name),
	}
	if chosen == enums.TimeframeRenewal {
		result.Message = fmt.Sprintf("Plan will be changed to %s on %s.", next.Name, formatPeriodEnd(sub))
	}
	if updated != nil {
		view, err := s.view(ctx, acc, updated)
		if err != nil {
			return nil, err
		}
		result.Subscription = view
	}
	return result, nil
}

// IsUpgrade classifies a price change. Equal prices count as an upgrade.
func IsUpgrade(previous, next decimal.Decimal) bool {
	return next.GreaterThanOrEqual(previous)
}

func (s *service) view(ctx context.Context, acc *access, sub *recurly.Subscription) (*SubscriptionView, error) {
	set, err := s.deriver.Derive(ctx, sub, acc.pastDue)
	if err != nil {
		return nil, err
	}
	view := buildView(acc.owner, sub, set)
	return &view, nil
}

func formatPeriodEnd(sub *recurly.Subscription) string {
	if sub == nil || sub.CurrentPeriodEndsAt == nil {
		return "the end of the current period"
	}
	return sub.CurrentPeriodEndsAt.UTC().Format("January 2, 2006")
}
