package states

import (
	"context"
	"time"

	"github.com/angelmondragon/recurly-gateway/pkg/enums"
	"github.com/angelmondragon/recurly-gateway/pkg/recurly"
)

// Deriver computes the state set of a subscription at request time.
type Deriver struct {
	now func() time.Time
}

func NewDeriver(now func() time.Time) *Deriver {
	if now == nil {
		now = time.Now
	}
	return &Deriver{now: now}
}

// Derive looks up the owner's past-due subscriptions through index and
// derives the state set.
func (d *Deriver) Derive(ctx context.Context, sub *recurly.Subscription, index *PastDueIndex) (Set, error) {
	var pastDue map[string]struct{}
	if index != nil && sub != nil {
		found, err := index.Lookup(ctx, sub.Account.Code)
		if err != nil {
			return nil, err
		}
		pastDue = found
	}
	return DeriveAt(sub, pastDue, d.now()), nil
}

// DeriveAt is the pure derivation: in_trial, non_renewing, past_due and
// pending_subscription in that order, then the raw state.
func DeriveAt(sub *recurly.Subscription, pastDue map[string]struct{}, now time.Time) Set {
	if sub == nil {
		return Set{}
	}
	set := make(Set, 0, 5)
	now = now.UTC()

	if sub.TrialStartedAt != nil && sub.TrialEndsAt != nil {
		start := sub.TrialStartedAt.UTC()
		end := sub.TrialEndsAt.UTC()
		if now.After(start) && now.Before(end) {
			set = append(set, enums.SubscriptionStateInTrial)
		}
	}
	if sub.TotalBillingCycles != nil && *sub.TotalBillingCycles != 0 {
		set = append(set, enums.SubscriptionStateNonRenewing)
	}
	if _, ok := pastDue[sub.UUID]; ok {
		set = append(set, enums.SubscriptionStatePastDue)
	}
	if sub.PendingChange != nil {
		set = append(set, enums.SubscriptionStatePending)
	}
	return append(set, enums.SubscriptionState(sub.State))
}
