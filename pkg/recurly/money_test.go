package recurly

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatMoney(t *testing.T) {
	cases := []struct {
		amount   string
		currency string
		want     string
	}{
		{"1250", "USD", "$1,250.00"},
		{"9.5", "eur", "€9.50"},
		{"0.99", "GBP", "£0.99"},
		{"1234567", "JPY", "¥1,234,567"},
		{"12.5", "CAD", "12.50 CAD"},
		{"-3", "USD", "-$3.00"},
		{"100", "", "100.00"},
	}
	for _, tc := range cases {
		got := FormatMoney(decimal.RequireFromString(tc.amount), tc.currency)
		if got != tc.want {
			t.Fatalf("FormatMoney(%s, %s) = %q, want %q", tc.amount, tc.currency, got, tc.want)
		}
	}
}

func TestFromCents(t *testing.T) {
	if got := FromCents(1999, "USD"); !got.Equal(decimal.RequireFromString("19.99")) {
		t.Fatalf("unexpected usd amount %s", got)
	}
	if got := FromCents(500, "JPY"); !got.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("unexpected jpy amount %s", got)
	}
}
