package states

import (
	"fmt"
	"time"

	"github.com/angelmondragon/recurly-gateway/pkg/enums"
	"github.com/angelmondragon/recurly-gateway/pkg/recurly"
)

const dateLayout = "January 2, 2006"

// Message returns the owner-facing notice for a state, or "" when there is none.
func Message(state enums.SubscriptionState, sub *recurly.Subscription) string {
	switch state {
	case enums.SubscriptionStateClosed:
		return "This account is closed."
	case enums.SubscriptionStateInTrial:
		return "Currently in trial period."
	case enums.SubscriptionStatePastDue:
		return "This account is past due. Please update your billing information."
	case enums.SubscriptionStateCanceled:
		return "This plan is canceled and will not renew."
	case enums.SubscriptionStateExpired:
		return "This plan has expired. Please purchase a new subscription."
	case enums.SubscriptionStateFuture:
		return "This plan has not started yet. Please contact support if you have any questions."
	case enums.SubscriptionStatePending:
		if sub == nil || sub.PendingChange == nil {
			return ""
		}
		return fmt.Sprintf("Your subscription will be changed to %s on %s.", sub.PendingChange.Plan.Name, formatDate(changeDate(sub)))
	}
	return ""
}

// DisplayMessage is the single notice shown for a set: the message of the
// first state in display order, or "" when that state has none.
func DisplayMessage(set Set, sub *recurly.Subscription) string {
	display := set.ForDisplay()
	if len(display) == 0 {
		return ""
	}
	return Message(display[0], sub)
}

func Label(state enums.SubscriptionState) string {
	switch state {
	case enums.SubscriptionStateActive:
		return "Active"
	case enums.SubscriptionStateCanceled:
		return "Canceled (will not renew)"
	case enums.SubscriptionStateExpired:
		return "Expired"
	case enums.SubscriptionStateFuture:
		return "Future Activation"
	case enums.SubscriptionStatePending:
		return "Switching to new plan"
	case enums.SubscriptionStateInTrial:
		return "Trial"
	case enums.SubscriptionStatePastDue:
		return "Past Due"
	case enums.SubscriptionStateLive:
		return "Live"
	}
	return ""
}

// PeriodEndHeader names the period end column for a subscription.
func PeriodEndHeader(set Set) string {
	if set.Has(enums.SubscriptionStateInTrial) {
		return "Next Invoice"
	}
	for _, state := range []enums.SubscriptionState{
		enums.SubscriptionStateCanceled,
		enums.SubscriptionStateNonRenewing,
		enums.SubscriptionStateExpired,
	} {
		if set.Has(state) {
			return "Expiration Date"
		}
	}
	return "Next Invoice"
}

func changeDate(sub *recurly.Subscription) *time.Time {
	if sub.PendingChange != nil && sub.PendingChange.ActivateAt != nil {
		return sub.PendingChange.ActivateAt
	}
	return sub.CurrentPeriodEndsAt
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "the next renewal"
	}
	return t.UTC().Format(dateLayout)
}
