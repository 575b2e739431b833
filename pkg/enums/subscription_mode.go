package enums

import (
	"fmt"
	"strings"
)

// SubscriptionMode controls how many concurrent subscriptions an owner may hold.
type SubscriptionMode string

const (
	SubscriptionModeSingle   SubscriptionMode = "single"
	SubscriptionModeMultiple SubscriptionMode = "multiple"
)

var validSubscriptionModes = []SubscriptionMode{
	SubscriptionModeSingle,
	SubscriptionModeMultiple,
}

func (m SubscriptionMode) String() string {
	return string(m)
}

func (m SubscriptionMode) IsValid() bool {
	for _, candidate := range validSubscriptionModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseSubscriptionMode accepts "single"/"multiple" and the "single-plan"/"multi-plan" spellings.
func ParseSubscriptionMode(value string) (SubscriptionMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "single", "single-plan":
		return SubscriptionModeSingle, nil
	case "multiple", "multi", "multi-plan":
		return SubscriptionModeMultiple, nil
	}
	return "", fmt.Errorf("invalid subscription mode %q", value)
}
