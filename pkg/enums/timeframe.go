package enums

import "fmt"

// Timeframe decides when a plan change takes effect.
type Timeframe string

const (
	TimeframeNow     Timeframe = "now"
	TimeframeRenewal Timeframe = "renewal"
)

var validTimeframes = []Timeframe{TimeframeNow, TimeframeRenewal}

func (t Timeframe) String() string {
	return string(t)
}

func (t Timeframe) IsValid() bool {
	for _, candidate := range validTimeframes {
		if candidate == t {
			return true
		}
	}
	return false
}

func ParseTimeframe(value string) (Timeframe, error) {
	for _, candidate := range validTimeframes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid timeframe %q", value)
}
