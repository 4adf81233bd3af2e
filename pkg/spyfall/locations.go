// Package spyfall implements Spyfall: a question-and-answer deduction
// game where one uninformed spy tries to learn the location before the
// rest of the table unanimously identifies them.
package spyfall

// Name is the game identifier used by schedules and results.
const Name = "spyfall"

// Team constants for results and win reporting.
const (
	WinnerSpy    = "spy"
	WinnerNonSpy = "non_spies"
	RoleSpy      = "spy"
)

// MinPlayers and MaxPlayers bound the supported table size.
const (
	MinPlayers = 3
	MaxPlayers = 8
)

const (
	// maxExchanges is the Q&A budget; an exchange is one answered question.
	maxExchanges = 20
	// maxInvalidAttempts before the engine falls back for an actor.
	maxInvalidAttempts = 3
)

// Location pairs a location name with the roles dealt to non-spies there.
type Location struct {
	Name  string
	Roles []string
}

// Locations is the fixed deck. Every player knows the full list; only the
// spy does not know which one is in play.
var Locations = []Location{
	{"Airplane", []string{"Pilot", "Flight Attendant", "Air Marshal", "Mechanic", "First Class Passenger", "Economy Passenger"}},
	{"Bank", []string{"Manager", "Teller", "Security Guard", "Robber", "Consultant", "Customer"}},
	{"Beach", []string{"Lifeguard", "Surfer", "Ice Cream Vendor", "Photographer", "Kite Surfer", "Beachgoer"}},
	{"Casino", []string{"Dealer", "Gambler", "Bouncer", "Bartender", "Manager", "Card Counter"}},
	{"Circus", []string{"Ringmaster", "Acrobat", "Clown", "Juggler", "Animal Trainer", "Visitor"}},
	{"Embassy", []string{"Ambassador", "Secretary", "Security Officer", "Diplomat", "Refugee", "Tourist"}},
	{"Hospital", []string{"Surgeon", "Nurse", "Anesthesiologist", "Intern", "Therapist", "Patient"}},
	{"Movie Studio", []string{"Director", "Actor", "Camera Operator", "Costume Designer", "Sound Engineer", "Stunt Double"}},
	{"Ocean Liner", []string{"Captain", "Bartender", "Musician", "Waiter", "Mechanic", "Wealthy Passenger"}},
	{"Space Station", []string{"Commander", "Scientist", "Doctor", "Engineer", "Pilot", "Space Tourist"}},
}

// LocationNames returns the deck's names in order.
func LocationNames() []string {
	out := make([]string, len(Locations))
	for i, l := range Locations {
		out[i] = l.Name
	}
	return out
}

// Config configures a match.
type Config struct {
	Players int
	Seed    int64
	MatchID string
	// Spy optionally fixes the spy seat; nil draws one from the RNG.
	Spy *int
	// LocationIdx optionally fixes the location; nil draws from the RNG.
	LocationIdx *int
	// MaxExchanges overrides the Q&A budget; zero means maxExchanges.
	MaxExchanges int
}
