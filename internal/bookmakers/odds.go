package bookmakers

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseDecimalOdds parses a decimal odds string ("3.5"). Sentinel values and
// malformed numbers return nil.
func ParseDecimalOdds(s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	if IsSentinel(s) {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

// ParseFractionalOdds converts a fractional odds string ("5/2") to decimal
// odds (3.5). Sentinel values and malformed fractions return nil.
func ParseFractionalOdds(s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	if IsSentinel(s) {
		return nil
	}
	if strings.EqualFold(s, "evens") || strings.EqualFold(s, "evs") {
		d := decimal.NewFromInt(2)
		return &d
	}

	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return nil
	}
	num, err := decimal.NewFromString(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil
	}
	den, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
	if err != nil || den.IsZero() {
		return nil
	}

	d := num.Div(den).Add(decimal.NewFromInt(1))
	return &d
}

// IsSentinel reports whether an odds string carries no numeric price
func IsSentinel(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "-", "SP":
		return true
	}
	return false
}

// IsValidPrice reports whether decimal odds are usable for derived
// statistics. Prices at or below evens-minus-stake (1.0) are placeholder
// values, not real markets.
func IsValidPrice(d decimal.Decimal) bool {
	return d.GreaterThan(decimal.NewFromInt(1))
}

// FormatPrice renders decimal odds for logging with two decimal places
func FormatPrice(d decimal.Decimal) string {
	return d.StringFixed(2)
}
