// Package avalon implements The Resistance: Avalon, with quest team
// proposals under a five-rejection loss, anonymized quest ballots,
// role-asymmetric knowledge at setup, and the assassination endgame.
package avalon

// Name is the game identifier used by schedules and results.
const Name = "avalon"

// Role is a player's secret identity.
type Role string

const (
	RoleMerlin   Role = "merlin"
	RolePercival Role = "percival"
	RoleLoyal    Role = "loyal_servant"
	RoleAssassin Role = "assassin"
	RoleMorgana  Role = "morgana"
	RoleMordred  Role = "mordred"
	RoleOberon   Role = "oberon"
	RoleMinion   Role = "minion"
)

// Team constants for results and win reporting.
const (
	TeamGood = "good"
	TeamEvil = "evil"
)

// Evil reports whether the role is on the evil team.
func (r Role) Evil() bool {
	switch r {
	case RoleAssassin, RoleMorgana, RoleMordred, RoleOberon, RoleMinion:
		return true
	}
	return false
}

// Team returns the role's team name.
func (r Role) Team() string {
	if r.Evil() {
		return TeamEvil
	}
	return TeamGood
}

// MinPlayers and MaxPlayers bound the supported table size.
const (
	MinPlayers = 5
	MaxPlayers = 10
)

// questCount is fixed by the rulebook.
const questCount = 5

// maxProposalsPerQuest: the fifth consecutive rejection ends the game.
const maxProposalsPerQuest = 5

// maxInvalidAttempts before the engine falls back for an actor.
const maxInvalidAttempts = 3

// teamSizes returns the per-quest team sizes for a table size.
func teamSizes(players int) [questCount]int {
	switch players {
	case 5:
		return [questCount]int{2, 3, 2, 3, 3}
	case 6:
		return [questCount]int{2, 3, 4, 3, 4}
	case 7:
		return [questCount]int{2, 3, 3, 4, 4}
	default: // 8-10
		return [questCount]int{3, 4, 4, 5, 5}
	}
}

// evilCount returns the number of evil players for a table size.
func evilCount(players int) int {
	switch {
	case players <= 6:
		return 2
	case players <= 9:
		return 3
	default:
		return 4
	}
}

// failsNeeded returns how many fail ballots sink the given quest (1-based).
func failsNeeded(players, quest int) int {
	if quest == 4 && players >= 7 {
		return 2
	}
	return 1
}

// defaultRoles builds the standard role list for a table size: Merlin and
// the Assassin always, Percival and Morgana from seven players up, filled
// with loyal servants and minions.
func defaultRoles(players int) []Role {
	evil := evilCount(players)
	roles := []Role{RoleMerlin, RoleAssassin}
	evilLeft := evil - 1
	if players >= 7 {
		roles = append(roles, RolePercival, RoleMorgana)
		evilLeft--
	}
	for i := 0; i < evilLeft; i++ {
		roles = append(roles, RoleMinion)
	}
	for len(roles) < players {
		roles = append(roles, RoleLoyal)
	}
	return roles
}
