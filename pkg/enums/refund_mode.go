package enums

import "fmt"

// RefundMode is the refund applied when a subscription is terminated.
type RefundMode string

const (
	RefundModeNone     RefundMode = "none"
	RefundModeProrated RefundMode = "prorated"
	RefundModeFull     RefundMode = "full"
)

var validRefundModes = []RefundMode{
	RefundModeNone,
	RefundModeProrated,
	RefundModeFull,
}

func (m RefundMode) String() string {
	return string(m)
}

func (m RefundMode) IsValid() bool {
	for _, candidate := range validRefundModes {
		if candidate == m {
			return true
		}
	}
	return false
}

func ParseRefundMode(value string) (RefundMode, error) {
	for _, candidate := range validRefundModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund mode %q", value)
}
