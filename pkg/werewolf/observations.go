package werewolf

import (
	"fmt"

	"github.com/EternisAI/strategy-bench/pkg/game"
)

// Observations recomputes every player's view. Night phases are invisible
// to players outside the acting role; seer results surface only in the
// seer's private events.
func (e *Engine) Observations() map[game.PlayerID]game.Observation {
	out := make(map[game.PlayerID]game.Observation, e.cfg.Players)
	for i := 0; i < e.cfg.Players; i++ {
		p := game.PlayerID(i)
		out[p] = e.observationFor(p)
	}
	return out
}

func (e *Engine) observationFor(p game.PlayerID) game.Observation {
	base := e.baseData(p)

	if e.terminal {
		return game.WaitObs(p, game.ObsPublic, string(PhaseGameOver),
			fmt.Sprintf("Game over: %s wins (%s).", e.winner, e.winReason), base)
	}
	if !e.alive[p] {
		return game.WaitObs(p, game.ObsPrivate, string(e.phase), "You are dead.", base)
	}
	if !e.isActor(p) {
		return game.WaitObs(p, game.ObsPrivate, string(e.phase), e.waitInstruction(), base)
	}

	switch e.phase {
	case PhaseNightWerewolf:
		base["options"] = e.livingVictims()
		base["option_field"] = "target"
		return game.ActObs(p, game.ObsTeam, string(e.phase),
			"Night falls. Choose the pack's kill target.", "target", base)
	case PhaseNightDoctor:
		base["options"] = e.sortedAlive()
		base["option_field"] = "target"
		return game.ActObs(p, game.ObsRole, string(e.phase),
			"Choose a player to protect tonight. You may protect yourself.", "protect", base)
	case PhaseNightSeer:
		base["options"] = e.investigatable(p)
		base["option_field"] = "target"
		return game.ActObs(p, game.ObsRole, string(e.phase),
			"Choose a player to investigate.", "investigate", base)
	case PhaseDayBidding:
		base["options"] = []int{0, 1, 2, 3, 4}
		base["option_field"] = "bid"
		return game.ActObs(p, game.ObsPrivate, string(e.phase),
			fmt.Sprintf("Bid 0-%d for the right to speak.", maxBid), "bid", base)
	case PhaseDayDebate:
		return game.ActObs(p, game.ObsPublic, string(e.phase),
			"You won the bid. Make one public statement, or stay silent.", "statement", base)
	case PhaseDayVoting:
		base["options"] = e.voteTargets(p)
		base["option_field"] = "target"
		return game.ActObs(p, game.ObsPrivate, string(e.phase),
			"Vote to eliminate a living player.", "vote", base)
	}
	return game.WaitObs(p, game.ObsPrivate, string(e.phase), e.waitInstruction(), base)
}

func (e *Engine) waitInstruction() string {
	switch e.phase {
	case PhaseNightWerewolf, PhaseNightDoctor, PhaseNightSeer:
		return "Night has fallen. You are asleep."
	case PhaseDayBidding:
		return "Waiting for remaining bids."
	case PhaseDayDebate:
		return fmt.Sprintf("Player %d holds the floor.", int(e.speaker))
	case PhaseDayVoting:
		return "Waiting for remaining votes."
	}
	return "Waiting."
}

func (e *Engine) livingVictims() []int {
	var out []int
	for i, ok := range e.alive {
		if ok && e.roles[i] != RoleWerewolf {
			out = append(out, i)
		}
	}
	return out
}

func (e *Engine) investigatable(p game.PlayerID) []int {
	var out []int
	for i := 0; i < e.cfg.Players; i++ {
		if game.PlayerID(i) != p {
			out = append(out, i)
		}
	}
	return out
}

func (e *Engine) voteTargets(p game.PlayerID) []int {
	var out []int
	for i, ok := range e.alive {
		if ok && game.PlayerID(i) != p {
			out = append(out, i)
		}
	}
	return out
}

func (e *Engine) baseData(p game.PlayerID) map[string]any {
	data := map[string]any{
		"round":        e.round,
		"alive":        e.sortedAlive(),
		"you_alive":    e.alive[p],
		"role":         string(e.roles[p]),
		"team_name":    e.roles[p].Team(),
		"debate_turns": e.debateTurns,
	}
	if e.roles[p] == RoleWerewolf {
		data["werewolves"] = e.wolfIDs()
	}
	if e.lastSpeaker != noPlayer {
		data["last_speaker"] = int(e.lastSpeaker)
	}
	return data
}
