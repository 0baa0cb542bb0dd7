package bookmakers

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// TestLookupKnownBookmakers tests canonical names and aliases
func TestLookupKnownBookmakers(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		expectedID   string
		expectedType string
	}{
		{"Exchange canonical", "Betfair", "betfair", TypeExchange},
		{"Exchange alias", "Betfair Exchange", "betfair", TypeExchange},
		{"Fixed canonical", "Bet365", "bet365", TypeFixed},
		{"Spaced alias", "William Hill", "williamhill", TypeFixed},
		{"Collapsed alias", "WilliamHill", "williamhill", TypeFixed},
		{"Case insensitive", "PADDY POWER", "paddypower", TypeFixed},
		{"Whitespace tolerant", "  Smarkets  ", "smarkets", TypeExchange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bm := Lookup(tt.input)
			assert.Equal(t, tt.expectedID, bm.ID)
			assert.Equal(t, tt.expectedType, bm.Type)
		})
	}
}

// TestLookupUnknownFallsBack tests the unknown-bookmaker fallback
func TestLookupUnknownFallsBack(t *testing.T) {
	bm := Lookup("Some New Bookie")
	assert.Equal(t, "somenewbookie", bm.ID)
	assert.Equal(t, "Some New Bookie", bm.Name)
	assert.Equal(t, TypeFixed, bm.Type)
}

func TestIsExchange(t *testing.T) {
	assert.True(t, IsExchange("Betfair"))
	assert.True(t, IsExchange("Matchbook"))
	assert.False(t, IsExchange("Bet365"))
	assert.False(t, IsExchange("Unheard Of Bookie"))
}

// TestParseDecimalOdds tests decimal odds string parsing
func TestParseDecimalOdds(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		valid    bool
	}{
		{"Simple decimal", "3.5", "3.5", true},
		{"Integer odds", "12", "12", true},
		{"Long precision", "4.333333", "4.333333", true},
		{"No quote sentinel", "-", "", false},
		{"SP sentinel", "SP", "", false},
		{"Lowercase sp", "sp", "", false},
		{"Empty string", "", "", false},
		{"Garbage", "abc", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ParseDecimalOdds(tt.input)
			if !tt.valid {
				assert.Nil(t, d)
				return
			}
			expected, _ := decimal.NewFromString(tt.expected)
			assert.True(t, d.Equal(expected), "expected %s, got %s", tt.expected, d)
		})
	}
}

// TestParseFractionalOdds tests fractional to decimal conversion
func TestParseFractionalOdds(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		valid    bool
	}{
		{"Five to two", "5/2", "3.5", true},
		{"Odds on", "1/2", "1.5", true},
		{"Evens word", "Evens", "2", true},
		{"Big price", "100/1", "101", true},
		{"No quote", "-", "", false},
		{"SP", "SP", "", false},
		{"Zero denominator", "5/0", "", false},
		{"Not a fraction", "3.5", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ParseFractionalOdds(tt.input)
			if !tt.valid {
				assert.Nil(t, d)
				return
			}
			expected, _ := decimal.NewFromString(tt.expected)
			assert.True(t, d.Equal(expected), "expected %s, got %s", tt.expected, d)
		})
	}
}

// TestIsValidPrice tests placeholder price exclusion
func TestIsValidPrice(t *testing.T) {
	assert.True(t, IsValidPrice(decimal.NewFromFloat(1.01)))
	assert.True(t, IsValidPrice(decimal.NewFromInt(500)))
	assert.False(t, IsValidPrice(decimal.NewFromInt(1)))
	assert.False(t, IsValidPrice(decimal.NewFromFloat(0.5)))
	assert.False(t, IsValidPrice(decimal.Zero))
}

// TestFormatPrice tests two-decimal rendering for log fields
func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "3.50", FormatPrice(decimal.NewFromFloat(3.5)))
	assert.Equal(t, "10.00", FormatPrice(decimal.NewFromInt(10)))
	assert.Equal(t, "2.38", FormatPrice(decimal.NewFromFloat(2.375)))
}
