package secrethitler

import (
	"fmt"

	"github.com/EternisAI/strategy-bench/pkg/game"
)

// Observations recomputes every player's view of the current state. Hidden
// fields (roles, deck order, the other legislature's hand) never appear in
// a view that must not see them.
func (e *Engine) Observations() map[game.PlayerID]game.Observation {
	out := make(map[game.PlayerID]game.Observation, e.cfg.Players)
	for i := range e.players {
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
	if !e.players[p].alive {
		return game.WaitObs(p, game.ObsPrivate, string(e.phase), "You are dead and cannot act.", base)
	}
	if !e.isActor(p) {
		return game.WaitObs(p, game.ObsPrivate, string(e.phase), e.waitInstruction(), base)
	}

	switch e.phase {
	case PhaseNomination:
		base["options"] = game.IDsToInts(e.eligibleChancellors())
		base["option_field"] = "target"
		return game.ActObs(p, game.ObsPrivate, string(e.phase),
			"You are president. Nominate a chancellor from the eligible candidates.",
			"nominate", base)
	case PhaseDiscussion:
		return game.ActObs(p, game.ObsPrivate, string(e.phase),
			"Share your thoughts on the proposed government, or stay silent.",
			"statement", base)
	case PhaseVoting:
		base["options"] = []string{VoteJa, VoteNein}
		base["option_field"] = "vote"
		return game.ActObs(p, game.ObsPrivate, string(e.phase),
			fmt.Sprintf("Vote on president %d and chancellor %d.", int(e.president), int(e.nominee)),
			"vote", base)
	case PhasePresident:
		base["hand"] = policyStrings(e.presidentHand)
		base["options"] = []int{0, 1, 2}
		base["option_field"] = "index"
		return game.ActObs(p, game.ObsRole, string(e.phase),
			"You drew three policies. Discard one by index; the rest go to the chancellor.",
			"discard", base)
	case PhaseChancellor:
		base["hand"] = policyStrings(e.chancellorHand)
		base["options"] = []int{0, 1}
		base["option_field"] = "index"
		base["veto_available"] = e.vetoUnlocked && !e.vetoDenied
		instr := "You received two policies. Enact one by index."
		if e.vetoUnlocked && !e.vetoDenied {
			instr += " You may instead propose a veto."
		}
		return game.ActObs(p, game.ObsRole, string(e.phase), instr, "enact", base)
	case PhaseVetoReply:
		base["options"] = []string{"accept", "reject"}
		base["option_field"] = "response"
		return game.ActObs(p, game.ObsRole, string(e.phase),
			"The chancellor proposed a veto. Accept to discard both policies, or reject.",
			"veto_response", base)
	case PhasePower:
		base["options"] = game.IDsToInts(e.powerTargets())
		base["option_field"] = "target"
		return game.ActObs(p, game.ObsRole, string(e.phase),
			fmt.Sprintf("Use your presidential power: %s. Choose a target.", e.pendingPower),
			string(e.pendingPower), base)
	}
	return game.WaitObs(p, game.ObsPrivate, string(e.phase), e.waitInstruction(), base)
}

func (e *Engine) waitInstruction() string {
	switch e.phase {
	case PhaseNomination:
		return fmt.Sprintf("Waiting for president %d to nominate a chancellor.", int(e.president))
	case PhaseDiscussion:
		if len(e.speakQueue) > 0 {
			return fmt.Sprintf("Waiting for player %d to speak.", int(e.speakQueue[0]))
		}
	case PhaseVoting:
		return "Waiting for remaining votes."
	case PhasePresident:
		return "The president is choosing a policy to discard."
	case PhaseChancellor:
		return "The chancellor is choosing a policy to enact."
	case PhaseVetoReply:
		return "The president is responding to the veto."
	case PhasePower:
		return "The president is using a presidential power."
	}
	return "Waiting."
}

// baseData assembles the public board plus p's private knowledge.
func (e *Engine) baseData(p game.PlayerID) map[string]any {
	data := map[string]any{
		"liberal_policies": e.liberal,
		"fascist_policies": e.fascist,
		"election_tracker": e.tracker,
		"president":        int(e.president),
		"alive":            e.aliveIDs(),
		"veto_unlocked":    e.vetoUnlocked,
		"round":            e.round,
		"role":             string(e.players[p].role),
	}
	if e.nominee != noPlayer() {
		data["nominee"] = int(e.nominee)
	}
	if know, fascists := e.knownFascists(p); know {
		data["fascists"] = fascists
		data["hitler"] = e.hitlerID()
	}
	return data
}

func policyStrings(hand []Policy) []string {
	out := make([]string, len(hand))
	for i, c := range hand {
		out[i] = string(c)
	}
	return out
}
