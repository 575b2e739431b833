package enums

import (
	"fmt"
	"strings"
)

// CancelPolicy selects the default termination behavior offered to owners.
type CancelPolicy string

const (
	CancelPolicyCancel            CancelPolicy = "cancel"
	CancelPolicyTerminateProrated CancelPolicy = "terminate_prorated"
	CancelPolicyTerminateFull     CancelPolicy = "terminate_full"
)

var validCancelPolicies = []CancelPolicy{
	CancelPolicyCancel,
	CancelPolicyTerminateProrated,
	CancelPolicyTerminateFull,
}

func (p CancelPolicy) String() string {
	return string(p)
}

func (p CancelPolicy) IsValid() bool {
	for _, candidate := range validCancelPolicies {
		if candidate == p {
			return true
		}
	}
	return false
}

// RefundMode returns the refund implied by a terminate policy. The cancel policy has none.
func (p CancelPolicy) RefundMode() (RefundMode, bool) {
	switch p {
	case CancelPolicyTerminateProrated:
		return RefundModeProrated, true
	case CancelPolicyTerminateFull:
		return RefundModeFull, true
	}
	return "", false
}

func ParseCancelPolicy(value string) (CancelPolicy, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_")
	switch normalized {
	case "cancel", "cancel_at_renewal":
		return CancelPolicyCancel, nil
	case "terminate_prorated", "terminate_prorated_refund":
		return CancelPolicyTerminateProrated, nil
	case "terminate_full", "terminate_full_refund":
		return CancelPolicyTerminateFull, nil
	}
	return "", fmt.Errorf("invalid cancel policy %q", value)
}
