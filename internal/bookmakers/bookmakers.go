// Package bookmakers maintains the supported bookmaker catalogue and parses
// upstream bookmaker quotes into normalized odds values.
package bookmakers

import "strings"

// Bookmaker types
const (
	TypeExchange = "exchange"
	TypeFixed    = "fixed"
)

// Bookmaker identifies a supported odds provider
type Bookmaker struct {
	ID   string
	Name string
	Type string
}

// catalogue maps lower-cased upstream names and aliases to bookmakers.
// Upstream feeds are inconsistent about spacing and branding, so common
// variants are registered alongside the canonical key.
var catalogue = map[string]Bookmaker{
	"betfair":            {ID: "betfair", Name: "Betfair", Type: TypeExchange},
	"betfair exchange":   {ID: "betfair", Name: "Betfair", Type: TypeExchange},
	"smarkets":           {ID: "smarkets", Name: "Smarkets", Type: TypeExchange},
	"matchbook":          {ID: "matchbook", Name: "Matchbook", Type: TypeExchange},
	"betdaq":             {ID: "betdaq", Name: "Betdaq", Type: TypeExchange},
	"bet365":             {ID: "bet365", Name: "Bet365", Type: TypeFixed},
	"william hill":       {ID: "williamhill", Name: "William Hill", Type: TypeFixed},
	"williamhill":        {ID: "williamhill", Name: "William Hill", Type: TypeFixed},
	"paddy power":        {ID: "paddypower", Name: "Paddy Power", Type: TypeFixed},
	"paddypower":         {ID: "paddypower", Name: "Paddy Power", Type: TypeFixed},
	"ladbrokes":          {ID: "ladbrokes", Name: "Ladbrokes", Type: TypeFixed},
	"coral":              {ID: "coral", Name: "Coral", Type: TypeFixed},
	"sky bet":            {ID: "skybet", Name: "Sky Bet", Type: TypeFixed},
	"skybet":             {ID: "skybet", Name: "Sky Bet", Type: TypeFixed},
	"betfred":            {ID: "betfred", Name: "Betfred", Type: TypeFixed},
	"unibet":             {ID: "unibet", Name: "Unibet", Type: TypeFixed},
	"betvictor":          {ID: "betvictor", Name: "BetVictor", Type: TypeFixed},
	"bet victor":         {ID: "betvictor", Name: "BetVictor", Type: TypeFixed},
	"betway":             {ID: "betway", Name: "Betway", Type: TypeFixed},
	"boylesports":        {ID: "boylesports", Name: "BoyleSports", Type: TypeFixed},
	"boyle sports":       {ID: "boylesports", Name: "BoyleSports", Type: TypeFixed},
	"888sport":           {ID: "888sport", Name: "888sport", Type: TypeFixed},
	"betfair sportsbook": {ID: "betfairsportsbook", Name: "Betfair Sportsbook", Type: TypeFixed},
}

// Lookup resolves an upstream bookmaker name to a catalogue entry. Unknown
// names fall back to a slug-identified fixed-odds bookmaker so new providers
// appearing in the feed are stored rather than dropped.
func Lookup(name string) Bookmaker {
	key := strings.ToLower(strings.TrimSpace(name))
	if bm, ok := catalogue[key]; ok {
		return bm
	}
	return Bookmaker{
		ID:   slugify(name),
		Name: strings.TrimSpace(name),
		Type: TypeFixed,
	}
}

// IsExchange reports whether the named bookmaker is a betting exchange
func IsExchange(name string) bool {
	return Lookup(name).Type == TypeExchange
}

func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}
