// Package werewolf implements classic Werewolf with doctor and seer night
// roles, auction-style day debate, and strict-majority day elimination.
package werewolf

// Name is the game identifier used by schedules and results.
const Name = "werewolf"

// Role is a player's secret identity.
type Role string

const (
	RoleWerewolf Role = "werewolf"
	RoleDoctor   Role = "doctor"
	RoleSeer     Role = "seer"
	RoleVillager Role = "villager"
)

// Team constants for results and win reporting.
const (
	TeamWerewolves = "werewolves"
	TeamVillage    = "village"
)

// Team returns the role's team name.
func (r Role) Team() string {
	if r == RoleWerewolf {
		return TeamWerewolves
	}
	return TeamVillage
}

// MinPlayers and MaxPlayers bound the supported table size.
const (
	MinPlayers = 3
	MaxPlayers = 12
)

const (
	// maxBid bounds the day-speech auction; bids are integers in [0,maxBid].
	maxBid = 4
	// maxDebateTurns is the number of speeches per day before voting.
	maxDebateTurns = 2
	// defaultMaxRounds caps a match; hitting it is a draw.
	defaultMaxRounds = 20
	// maxInvalidAttempts before the engine falls back for an actor.
	maxInvalidAttempts = 3
)

// wolfCount returns the default number of werewolves for a table size.
func wolfCount(players int) int {
	if players >= 6 {
		return 2
	}
	return 1
}

// defaultRoles builds the standard composition: wolves per wolfCount, a
// seer from four players up, a doctor from five players up, villagers fill.
func defaultRoles(players int) []Role {
	roles := make([]Role, 0, players)
	for i := 0; i < wolfCount(players); i++ {
		roles = append(roles, RoleWerewolf)
	}
	if players >= 4 {
		roles = append(roles, RoleSeer)
	}
	if players >= 5 {
		roles = append(roles, RoleDoctor)
	}
	for len(roles) < players {
		roles = append(roles, RoleVillager)
	}
	return roles
}

// Config configures a match.
type Config struct {
	Players int
	Seed    int64
	MatchID string
	// Roles optionally fixes the deal (index = player). Must contain at
	// least one werewolf and one non-werewolf.
	Roles []Role
	// MaxRounds overrides the round cap; zero means defaultMaxRounds.
	MaxRounds int
}
