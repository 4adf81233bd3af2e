// Package sheriff implements Sheriff of Nottingham: market card churn,
// secret bag loading, declarations, bribery, and inspection, with King
// and Queen bonuses scored at the end of the sheriff rotation.
package sheriff

// Name is the game identifier used by schedules and results.
const Name = "sheriff"

// MinPlayers and MaxPlayers bound the supported table size.
const (
	MinPlayers = 3
	MaxPlayers = 5
)

const (
	handSize             = 6
	bagLimit             = 5
	startingGold         = 50
	maxNegotiationRounds = 3
	maxInvalidAttempts   = 3
	// pileTopVisible is how many cards of each discard pile stay face-up
	// when the deck reshuffles the piles' lower layers.
	pileTopVisible = 5
)

// sheriffTerms returns how many rounds each player serves as sheriff.
func sheriffTerms(players int) int {
	if players == 3 {
		return 3
	}
	return 2
}

// Good identifies a card type. Cards of the same good are identical.
type Good string

const (
	GoodApples   Good = "apples"
	GoodCheese   Good = "cheese"
	GoodBread    Good = "bread"
	GoodChickens Good = "chickens"

	GoodPepper   Good = "pepper"
	GoodMead     Good = "mead"
	GoodSilk     Good = "silk"
	GoodCrossbow Good = "crossbow"

	GoodGreenApples  Good = "green_apples"
	GoodGoldenApples Good = "golden_apples"
	GoodGouda        Good = "gouda_cheese"
	GoodBleu         Good = "bleu_cheese"
	GoodRye          Good = "rye_bread"
	GoodPumpernickel Good = "pumpernickel"
	GoodRooster      Good = "royal_rooster"
	GoodGoldenGoose  Good = "golden_goose"
)

// GoodInfo is the card economy for one good type. Legal goods may be
// declared; royal goods count toward a legal good's King/Queen race with
// a multiplier but keep their printed value at scoring.
type GoodInfo struct {
	Value   int
	Penalty int
	King    int
	Queen   int
	Count   int
	Legal   bool
	RoyalOf Good
	Mult    int
}

var goodTable = map[Good]GoodInfo{
	GoodApples:   {Value: 2, Penalty: 2, King: 20, Queen: 10, Count: 48, Legal: true},
	GoodCheese:   {Value: 3, Penalty: 2, King: 15, Queen: 10, Count: 36, Legal: true},
	GoodBread:    {Value: 3, Penalty: 2, King: 15, Queen: 10, Count: 36, Legal: true},
	GoodChickens: {Value: 4, Penalty: 2, King: 10, Queen: 5, Count: 24, Legal: true},

	GoodPepper:   {Value: 6, Penalty: 4, Count: 22},
	GoodMead:     {Value: 7, Penalty: 4, Count: 21},
	GoodSilk:     {Value: 8, Penalty: 4, Count: 12},
	GoodCrossbow: {Value: 9, Penalty: 4, Count: 5},

	GoodGreenApples:  {Value: 4, Penalty: 4, Count: 2, RoyalOf: GoodApples, Mult: 2},
	GoodGoldenApples: {Value: 6, Penalty: 4, Count: 1, RoyalOf: GoodApples, Mult: 3},
	GoodGouda:        {Value: 6, Penalty: 4, Count: 2, RoyalOf: GoodCheese, Mult: 2},
	GoodBleu:         {Value: 9, Penalty: 4, Count: 1, RoyalOf: GoodCheese, Mult: 3},
	GoodRye:          {Value: 6, Penalty: 4, Count: 2, RoyalOf: GoodBread, Mult: 2},
	GoodPumpernickel: {Value: 9, Penalty: 4, Count: 1, RoyalOf: GoodBread, Mult: 3},
	GoodRooster:      {Value: 8, Penalty: 4, Count: 2, RoyalOf: GoodChickens, Mult: 2},
	GoodGoldenGoose:  {Value: 12, Penalty: 4, Count: 1, RoyalOf: GoodChickens, Mult: 3},
}

// legalGoods is the declaration vocabulary, in a stable order.
var legalGoods = []Good{GoodApples, GoodCheese, GoodBread, GoodChickens}

// Info returns the economy row for a good; unknown goods return a zero row.
func Info(g Good) GoodInfo { return goodTable[g] }

// IsLegal reports whether the good may be declared.
func IsLegal(g Good) bool { return goodTable[g].Legal }

// buildDeck expands the good counts into a full draw deck.
func buildDeck() []Good {
	var deck []Good
	for _, g := range deckOrder {
		for i := 0; i < goodTable[g].Count; i++ {
			deck = append(deck, g)
		}
	}
	return deck
}

// deckOrder keeps deck construction deterministic before the shuffle.
var deckOrder = []Good{
	GoodApples, GoodCheese, GoodBread, GoodChickens,
	GoodPepper, GoodMead, GoodSilk, GoodCrossbow,
	GoodGreenApples, GoodGoldenApples, GoodGouda, GoodBleu,
	GoodRye, GoodPumpernickel, GoodRooster, GoodGoldenGoose,
}

// Config configures a match.
type Config struct {
	Players int
	Seed    int64
	MatchID string
	// NegotiationRounds overrides the per-round bribe rounds; zero means
	// maxNegotiationRounds.
	NegotiationRounds int
}

// goodsToStrings converts for event payloads and observations.
func goodsToStrings(gs []Good) []string {
	out := make([]string, len(gs))
	for i, g := range gs {
		out[i] = string(g)
	}
	return out
}

// stringsToGoods parses good names, reporting the first unknown name.
func stringsToGoods(ss []string) ([]Good, string) {
	out := make([]Good, 0, len(ss))
	for _, s := range ss {
		g := Good(s)
		if _, ok := goodTable[g]; !ok {
			return nil, s
		}
		out = append(out, g)
	}
	return out, ""
}

// removeGoods removes each requested good from the set once, returning
// the remainder and whether every request was present.
func removeGoods(from []Good, take []Good) ([]Good, bool) {
	rest := make([]Good, len(from))
	copy(rest, from)
	for _, g := range take {
		found := -1
		for i, h := range rest {
			if h == g {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, false
		}
		rest = append(rest[:found], rest[found+1:]...)
	}
	return rest, true
}

// countGoods tallies a card set by good.
func countGoods(gs []Good) map[Good]int {
	out := make(map[Good]int)
	for _, g := range gs {
		out[g]++
	}
	return out
}
