// Package secrethitler implements the Secret Hitler engine: elections with
// a five-government rotation, a seventeen-card policy deck, the election
// tracker with chaos enactment, veto power, and the presidential powers
// table keyed by player count.
package secrethitler

import (
	"github.com/EternisAI/strategy-bench/pkg/game"
)

// Name is the game identifier used by schedules and results.
const Name = "secret_hitler"

// Phase is the engine-local phase enumeration.
type Phase string

const (
	PhaseNomination  Phase = "ElectionNomination"
	PhaseDiscussion  Phase = "ElectionDiscussion"
	PhaseVoting      Phase = "ElectionVoting"
	PhasePresident   Phase = "LegislativePresident"
	PhaseChancellor  Phase = "LegislativeChancellor"
	PhaseVetoReply   Phase = "VetoResponse"
	PhasePower       Phase = "PresidentialPower"
	PhaseGameOver    Phase = "GameOver"
)

// Role is a player's secret identity.
type Role string

const (
	RoleLiberal Role = "liberal"
	RoleFascist Role = "fascist"
	RoleHitler  Role = "hitler"
)

// Party membership shown by investigations: Hitler investigates as fascist.
func (r Role) Party() string {
	if r == RoleLiberal {
		return "liberal"
	}
	return "fascist"
}

// Policy is one card in the seventeen-card deck.
type Policy string

const (
	PolicyLiberal Policy = "liberal"
	PolicyFascist Policy = "fascist"
)

// Power is a presidential power unlocked by fascist policy enactments.
type Power string

const (
	PowerNone            Power = ""
	PowerPeek            Power = "policy_peek"
	PowerInvestigate     Power = "investigate"
	PowerSpecialElection Power = "special_election"
	PowerExecute         Power = "execute"
)

// Vote values.
const (
	VoteJa   = "ja"
	VoteNein = "nein"
)

// MinPlayers and MaxPlayers bound the supported table size.
const (
	MinPlayers = 5
	MaxPlayers = 10
)

// deckLiberal and deckFascist are the fixed policy counts.
const (
	deckLiberal = 6
	deckFascist = 11
)

// Win thresholds.
const (
	liberalPoliciesToWin = 5
	fascistPoliciesToWin = 6
)

// maxInvalidAttempts is how many rejected submissions an actor gets in one
// phase before the engine falls back for them.
const maxInvalidAttempts = 3

// fascistCount returns the number of non-Hitler fascists for a table size.
func fascistCount(players int) int {
	switch players {
	case 5, 6:
		return 1
	case 7, 8:
		return 2
	default:
		return 3
	}
}

// hitlerKnowsFascists reports whether Hitler learns the fascists at setup.
func hitlerKnowsFascists(players int) bool { return players <= 6 }

// powerFor returns the presidential power triggered when the given fascist
// policy count is reached, for the given table size.
func powerFor(players, fascistPolicies int) Power {
	switch {
	case players <= 6:
		switch fascistPolicies {
		case 3:
			return PowerPeek
		case 4, 5:
			return PowerExecute
		}
	case players <= 8:
		switch fascistPolicies {
		case 2:
			return PowerInvestigate
		case 3:
			return PowerSpecialElection
		case 4, 5:
			return PowerExecute
		}
	default:
		switch fascistPolicies {
		case 1, 2:
			return PowerInvestigate
		case 3:
			return PowerSpecialElection
		case 4, 5:
			return PowerExecute
		}
	}
	return PowerNone
}

// Config configures a match.
type Config struct {
	Players int
	Seed    int64
	MatchID string
	// Roles optionally fixes the role deal (index = player). Length must
	// equal Players and contain exactly one Hitler and fascistCount fascists.
	Roles []Role
}

type playerState struct {
	role  Role
	alive bool
}

func noPlayer() game.PlayerID { return game.PlayerID(-1) }
