package recurly

import (
	"strings"

	"github.com/shopspring/decimal"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

var zeroDecimalCurrencies = map[string]struct{}{
	"JPY": {},
	"KRW": {},
}

// FormatMoney renders amount for display, e.g. "$1,250.00", "¥900" or "12.50 CAD".
func FormatMoney(amount decimal.Decimal, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	places := int32(2)
	if _, ok := zeroDecimalCurrencies[currency]; ok {
		places = 0
	}

	negative := amount.IsNegative()
	digits := groupThousands(amount.Abs().StringFixed(places))

	var out string
	if symbol, ok := currencySymbols[currency]; ok {
		out = symbol + digits
	} else if currency != "" {
		out = digits + " " + currency
	} else {
		out = digits
	}
	if negative {
		return "-" + out
	}
	return out
}

// FromCents converts an integer minor-unit amount into a decimal.
func FromCents(cents int64, currency string) decimal.Decimal {
	if _, ok := zeroDecimalCurrencies[strings.ToUpper(currency)]; ok {
		return decimal.NewFromInt(cents)
	}
	return decimal.New(cents, -2)
}

func groupThousands(fixed string) string {
	whole, frac, hasFrac := strings.Cut(fixed, ".")
	if len(whole) > 3 {
		var b strings.Builder
		lead := len(whole) % 3
		if lead > 0 {
			b.WriteString(whole[:lead])
		}
		for i := lead; i < len(whole); i += 3 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(whole[i : i+3])
		}
		whole = b.String()
	}
	if hasFrac {
		return whole + "." + frac
	}
	return whole
}
