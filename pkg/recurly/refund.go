package recurly

import (
	"context"
	"time"

	"github.com/angelmondragon/recurly-gateway/pkg/enums"
	"github.com/shopspring/decimal"
)

// RefundAmount previews the refund a terminate call would issue for mode.
// full refunds the charge of the current period; prorated refunds the unused
// share of it. Subscriptions still in trial have nothing to refund.
func (c *Client) RefundAmount(_ context.Context, sub *Subscription, mode enums.RefundMode) (decimal.Decimal, error) {
	now := time.Now
	if c != nil && c.now != nil {
		now = c.now
	}
	return CalculateRefund(sub, mode, now()), nil
}

// CalculateRefund is the pure refund computation used by RefundAmount.
func CalculateRefund(sub *Subscription, mode enums.RefundMode, now time.Time) decimal.Decimal {
	if sub == nil || mode == enums.RefundModeNone {
		return decimal.Zero
	}
	now = now.UTC()
	if sub.TrialEndsAt != nil && now.Before(sub.TrialEndsAt.UTC()) {
		return decimal.Zero
	}

	full := PeriodCharge(sub)
	if mode == enums.RefundModeFull {
		return full
	}
	if mode != enums.RefundModeProrated {
		return decimal.Zero
	}

	if sub.CurrentPeriodStartedAt == nil || sub.CurrentPeriodEndsAt == nil {
		return decimal.Zero
	}
	start := sub.CurrentPeriodStartedAt.UTC()
	end := sub.CurrentPeriodEndsAt.UTC()
	period := end.Sub(start)
	if period <= 0 || !now.Before(end) {
		return decimal.Zero
	}
	remaining := end.Sub(now)
	if remaining > period {
		remaining = period
	}

	share := decimal.NewFromInt(int64(remaining)).Div(decimal.NewFromInt(int64(period)))
	return full.Mul(share).Round(2)
}

// PeriodCharge is unit_amount*quantity plus every add-on line.
func PeriodCharge(sub *Subscription) decimal.Decimal {
	if sub == nil {
		return decimal.Zero
	}
	quantity := sub.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	total := sub.UnitAmount.Mul(decimal.NewFromInt(int64(quantity)))
	for _, addOn := range sub.AddOns {
		qty := addOn.Quantity
		if qty <= 0 {
			qty = 1
		}
		total = total.Add(addOn.UnitAmount.Mul(decimal.NewFromInt(int64(qty))))
	}
	return total.Round(2)
}
