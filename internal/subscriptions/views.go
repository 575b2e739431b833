package subscriptions

import (
	"fmt"
	"strconv"

	"github.com/angelmondragon/recurly-gateway/internal/accounts"
	"github.com/angelmondragon/recurly-gateway/internal/states"
	"github.com/angelmondragon/recurly-gateway/pkg/enums"
	"github.com/angelmondragon/recurly-gateway/pkg/recurly"
)

func ownerPath(owner accounts.Owner) string {
	return fmt.Sprintf("/api/v1/owners/%s/%s", owner.Type, owner.ID)
}

func subscriptionLinks(owner accounts.Owner, sub *recurly.Subscription, set states.Set) Links {
	base := fmt.Sprintf("%s/subscriptions/%s", ownerPath(owner), sub.UUID)
	switch enums.SubscriptionState(sub.State) {
	case enums.SubscriptionStateActive:
		cancel := base + "/cancel"
		if set.Has(enums.SubscriptionStatePastDue) {
			cancel += "?past_due=1"
		}
		return Links{Change: base + "/change", Cancel: cancel}
	case enums.SubscriptionStateCanceled:
		return Links{Reactivate: base + "/reactivate"}
	}
	return Links{}
}

func buildView(owner accounts.Owner, sub *recurly.Subscription, set states.Set) SubscriptionView {
	display := set.ForDisplay()
	view := SubscriptionView{
		UUID:            sub.UUID,
		PlanCode:        sub.Plan.Code,
		PlanName:        sub.Plan.Name,
		State:           sub.State,
		States:          display.Strings(),
		Label:           states.Label(set.Primary()),
		Message:         states.DisplayMessage(set, sub),
		Currency:        sub.Currency,
		Amount:          recurly.FormatMoney(recurly.PeriodCharge(sub), sub.Currency),
		Quantity:        sub.Quantity,
		ActivatedAt:     sub.ActivatedAt,
		PeriodEndHeader: states.PeriodEndHeader(set),
		PeriodEndsAt:    sub.CurrentPeriodEndsAt,
		Links:           subscriptionLinks(owner, sub, set),
	}
	if len(display) > 0 {
		if label := states.Label(display[0]); label != "" {
			view.Label = label
		}
	}
	if sub.ExpiresAt != nil && set.Has(enums.SubscriptionStateExpired) {
		view.PeriodEndsAt = sub.ExpiresAt
	}
	if sub.PendingChange != nil {
		view.PendingPlanCode = sub.PendingChange.Plan.Code
	}
	return view
}

func planInterval(plan recurly.Plan) string {
	if plan.IntervalLength <= 0 || plan.IntervalUnit == "" {
		return ""
	}
	unit := plan.IntervalUnit
	if plan.IntervalLength == 1 {
		if n := len(unit); n > 1 && unit[n-1] == 's' {
			unit = unit[:n-1]
		}
		return "every " + unit
	}
	return "every " + strconv.Itoa(plan.IntervalLength) + " " + unit
}

func planOption(plan recurly.Plan, current string) PlanOption {
	option := PlanOption{
		Code:        plan.Code,
		Name:        plan.Name,
		Description: plan.Description,
		Interval:    planInterval(plan),
		Prices:      make([]PlanPrice, 0, len(plan.Currencies)),
		Current:     plan.Code == current,
	}
	for _, row := range plan.Currencies {
		price := PlanPrice{
			Currency: row.Currency,
			Amount:   recurly.FormatMoney(row.UnitAmount, row.Currency),
		}
		if row.SetupFee.IsPositive() {
			price.SetupFee = recurly.FormatMoney(row.SetupFee, row.Currency)
		}
		option.Prices = append(option.Prices, price)
	}
	return option
}
