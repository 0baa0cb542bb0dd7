// Package historical reconciles pre-race racecards with official results
// into settled historical odds records.
package historical

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yourusername/darkhorses-odds/internal/bookmakers"
)

// PlaceTerms describes the each-way market for a field size: the fraction
// of win odds paid on a place and how many finishing positions count.
type PlaceTerms struct {
	Fraction decimal.Decimal
	Places   int
}

// PlaceTermsFor returns the standard each-way terms for a field size.
// Fields smaller than five runners have no place market and return nil.
func PlaceTermsFor(runners int) *PlaceTerms {
	quarter := decimal.NewFromFloat(0.25)
	fifth := decimal.NewFromFloat(0.2)

	switch {
	case runners >= 16:
		return &PlaceTerms{Fraction: quarter, Places: 4}
	case runners >= 12:
		return &PlaceTerms{Fraction: quarter, Places: 3}
	case runners >= 8:
		return &PlaceTerms{Fraction: fifth, Places: 3}
	case runners >= 5:
		return &PlaceTerms{Fraction: quarter, Places: 2}
	default:
		return nil
	}
}

// FavoriteRank returns the 1-based market rank of sp within the race's
// starting prices. Distinct prices are ranked, so co-favorites share rank 1.
// Returns nil when sp is absent or no valid prices exist.
func FavoriteRank(sp *decimal.Decimal, raceSPs []decimal.Decimal) *int {
	if sp == nil {
		return nil
	}

	distinct := make([]decimal.Decimal, 0, len(raceSPs))
	seen := make(map[string]bool, len(raceSPs))
	for _, p := range raceSPs {
		if !bookmakers.IsValidPrice(p) {
			continue
		}
		key := p.String()
		if !seen[key] {
			seen[key] = true
			distinct = append(distinct, p)
		}
	}
	if len(distinct) == 0 {
		return nil
	}

	sort.Slice(distinct, func(i, j int) bool { return distinct[i].LessThan(distinct[j]) })

	for i, p := range distinct {
		if p.Equal(*sp) {
			rank := i + 1
			return &rank
		}
	}
	return nil
}

// finishingPosition parses a position string to an integer. Non-numeric
// positions (PU, F, UR and similar) return 0, false.
func finishingPosition(position *string) (int, bool) {
	if position == nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(*position))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// WinReturn computes the return on a 1-unit win stake at SP. The winner
// returns the SP (stake included), everyone else returns zero. Nil when the
// runner has no SP or no recorded position.
func WinReturn(sp *decimal.Decimal, position *string) *decimal.Decimal {
	if sp == nil || position == nil {
		return nil
	}

	if strings.TrimSpace(*position) == "1" {
		v := *sp
		return &v
	}
	zero := decimal.Zero
	return &zero
}

// PlaceReturn computes the return on a 1-unit place stake at SP under the
// race's each-way terms. Nil when there is no place market, no SP, or no
// recorded position.
func PlaceReturn(sp *decimal.Decimal, position *string, runners int) *decimal.Decimal {
	if sp == nil || position == nil {
		return nil
	}

	terms := PlaceTermsFor(runners)
	if terms == nil {
		return nil
	}

	pos, ok := finishingPosition(position)
	if !ok {
		zero := decimal.Zero
		return &zero
	}

	if pos <= terms.Places {
		one := decimal.NewFromInt(1)
		v := one.Add(sp.Sub(one).Mul(terms.Fraction))
		return &v
	}
	zero := decimal.Zero
	return &zero
}

// EachWayReturn computes the combined return on an each-way bet: the win
// part plus the place part. Nil when either leg cannot be settled.
func EachWayReturn(sp *decimal.Decimal, position *string, runners int) *decimal.Decimal {
	win := WinReturn(sp, position)
	place := PlaceReturn(sp, position, runners)
	if win == nil || place == nil {
		return nil
	}
	v := win.Add(*place)
	return &v
}

// PreRaceRange finds the lowest, highest, and mean of the valid pre-race
// quotes. Sentinel and placeholder prices are excluded. All three are nil
// when no bookmaker quoted a usable price.
func PreRaceRange(quotes []decimal.Decimal) (min, max, avg *decimal.Decimal) {
	sum := decimal.Zero
	count := 0
	for _, q := range quotes {
		if !bookmakers.IsValidPrice(q) {
			continue
		}
		q := q
		if min == nil || q.LessThan(*min) {
			min = &q
		}
		if max == nil || q.GreaterThan(*max) {
			max = &q
		}
		sum = sum.Add(q)
		count++
	}
	if count > 0 {
		mean := sum.Div(decimal.NewFromInt(int64(count))).Round(2)
		avg = &mean
	}
	return min, max, avg
}
