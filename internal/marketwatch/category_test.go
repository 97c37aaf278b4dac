package marketwatch

import "testing"

func TestCategorize(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"presidential election", "Will Trump win the 2028 election?", CategoryPolitics},
		{"senate control", "Republicans to control the Senate after midterms?", CategoryPolitics},
		{"super bowl", "Will the Chiefs win Super Bowl LX?", CategorySports},
		{"ufc fight", "UFC 320: will the champion retain?", CategorySports},
		{"bitcoin price", "Bitcoin above $150k by December 31?", CategoryCrypto},
		{"ethereum upgrade", "Ethereum to ship the next upgrade in Q4?", CategoryCrypto},
		{"rate cut", "Will the Fed announce a rate cut in September?", CategoryEconomy},
		{"recession odds", "US recession declared before 2027?", CategoryEconomy},
		{"starship launch", "SpaceX Starship to reach orbit this quarter?", CategoryScience},
		{"fda approval", "FDA approval for the new treatment this year?", CategoryScience},
		{"box office", "Will the sequel cross $1B box office?", CategoryEntertainment},
		{"grammy winner", "Album of the year Grammy goes to the favorite?", CategoryEntertainment},
		{"uncategorized", "Will it rain at the parade?", CategoryOther},
		{"empty title", "", CategoryOther},
		{"case insensitive", "BITCOIN to $200K?", CategoryCrypto},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := categorize(tt.title); got != tt.want {
				t.Errorf("title %q: got %s, want %s", tt.title, got, tt.want)
			}
		})
	}
}

func TestCategorizeFirstMatchWins(t *testing.T) {
	// Politics is checked before crypto, so a title with both lands there.
	got := categorize("Will the president sign the Bitcoin reserve bill?")
	if got != CategoryPolitics {
		t.Errorf("got %s, want %s", got, CategoryPolitics)
	}
}
