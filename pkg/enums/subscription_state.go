package enums

import "fmt"

// SubscriptionState covers both the gateway's raw subscription states and the
// qualifier states derived locally.
type SubscriptionState string

const (
	SubscriptionStateActive   SubscriptionState = "active"
	SubscriptionStateCanceled SubscriptionState = "canceled"
	SubscriptionStateExpired  SubscriptionState = "expired"
	SubscriptionStateFuture   SubscriptionState = "future"

	SubscriptionStateInTrial     SubscriptionState = "in_trial"
	SubscriptionStateNonRenewing SubscriptionState = "non_renewing"
	SubscriptionStatePastDue     SubscriptionState = "past_due"
	SubscriptionStatePending     SubscriptionState = "pending_subscription"

	// closed and live only appear in labels and account-level listings.
	SubscriptionStateClosed SubscriptionState = "closed"
	SubscriptionStateLive   SubscriptionState = "live"
)

var rawSubscriptionStates = []SubscriptionState{
	SubscriptionStateActive,
	SubscriptionStateCanceled,
	SubscriptionStateExpired,
	SubscriptionStateFuture,
}

var qualifierSubscriptionStates = []SubscriptionState{
	SubscriptionStateInTrial,
	SubscriptionStateNonRenewing,
	SubscriptionStatePastDue,
	SubscriptionStatePending,
}

// String implements fmt.Stringer.
func (s SubscriptionState) String() string {
	return string(s)
}

// IsRaw reports whether the value is a state the gateway itself reports.
func (s SubscriptionState) IsRaw() bool {
	for _, candidate := range rawSubscriptionStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsQualifier reports whether the value is a locally derived qualifier.
func (s SubscriptionState) IsQualifier() bool {
	for _, candidate := range qualifierSubscriptionStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSubscriptionState converts a raw gateway state into a SubscriptionState.
func ParseSubscriptionState(value string) (SubscriptionState, error) {
	for _, candidate := range rawSubscriptionStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscription state %q", value)
}
