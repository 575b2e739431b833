package states

import (
	"sort"

	"github.com/angelmondragon/recurly-gateway/pkg/enums"
)

// Set is the ordered list of states a subscription is in. Qualifiers come
// first, the raw gateway state is always last.
type Set []enums.SubscriptionState

// Primary returns the raw gateway state.
func (s Set) Primary() enums.SubscriptionState {
	if len(s) == 0 {
		return ""
	}
	return s[len(s)-1]
}

func (s Set) Has(state enums.SubscriptionState) bool {
	for _, candidate := range s {
		if candidate == state {
			return true
		}
	}
	return false
}

// Qualifiers returns the derived states without the raw state.
func (s Set) Qualifiers() Set {
	if len(s) == 0 {
		return Set{}
	}
	out := make(Set, len(s)-1)
	copy(out, s[:len(s)-1])
	return out
}

// ForDisplay returns the order used when rendering the set. A set holding
// canceled is sorted alphabetically; anything else keeps derivation order.
// Entitlement checks must use the set itself, never this copy.
func (s Set) ForDisplay() Set {
	out := make(Set, len(s))
	copy(out, s)
	if s.Has(enums.SubscriptionStateCanceled) {
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	}
	return out
}

// Strings renders the set for transport.
func (s Set) Strings() []string {
	out := make([]string, len(s))
	for i, state := range s {
		out[i] = state.String()
	}
	return out
}
