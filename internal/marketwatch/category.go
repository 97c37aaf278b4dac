package marketwatch

import "strings"

// Category labels for the watch list. Assignment is keyword-based on the
// market title; first match in listing order wins.
const (
	CategoryPolitics      = "politics"
	CategorySports        = "sports"
	CategoryCrypto        = "crypto"
	CategoryEconomy       = "economy"
	CategoryScience       = "science"
	CategoryEntertainment = "entertainment"
	CategoryOther         = "other"
)

var categoryKeywords = []struct {
	name     string
	keywords []string
}{
	{CategoryPolitics, []string{
		"election", "president", "senate", "congress", "governor",
		"parliament", "minister", "primary", "impeach", "veto",
		"trump", "biden", "harris", "ballot", "cabinet",
	}},
	{CategorySports, []string{
		"nfl", "nba", "mlb", "nhl", "ufc", "fifa",
		"super bowl", "world cup", "premier league", "champions league",
		"olympic", "grand slam", "grand prix", "playoff", "heavyweight",
	}},
	{CategoryCrypto, []string{
		"bitcoin", "btc", "ethereum", "eth ", "crypto", "solana",
		"dogecoin", "xrp", "stablecoin", "airdrop", "halving",
	}},
	{CategoryEconomy, []string{
		"fed ", "federal reserve", "fomc", "interest rate", "rate cut",
		"rate hike", "inflation", "gdp", "recession", "unemployment",
		"tariff", "s&p", "nasdaq", "treasury", "ipo",
	}},
	{CategoryScience, []string{
		"nasa", "spacex", "starship", "vaccine", "fda", "climate",
		"hurricane", "earthquake", "nobel", "openai", "gpt",
	}},
	{CategoryEntertainment, []string{
		"oscar", "grammy", "emmy", "box office", "album", "billboard",
		"golden globe", "taylor swift", "spotify", "netflix",
	}},
}

// categorize assigns a watch list category from the market title
func categorize(title string) string {
	lowered := strings.ToLower(title)
	for _, cat := range categoryKeywords {
		for _, kw := range cat.keywords {
			if strings.Contains(lowered, kw) {
				return cat.name
			}
		}
	}
	return CategoryOther
}
