package spyfall

import (
	"fmt"

	"github.com/EternisAI/strategy-bench/pkg/game"
)

// Observations recomputes every player's view. The spy never sees the
// location or other players' roles; non-spies never see who the spy is.
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
	if !e.isActor(p) {
		return game.WaitObs(p, game.ObsPrivate, string(e.phase), e.waitInstruction(), base)
	}

	switch e.phase {
	case PhaseQandA:
		if e.answerer == p {
			return game.ActObs(p, game.ObsPrivate, string(e.phase),
				fmt.Sprintf("Player %d asked you a question. Answer it.", int(e.asker)),
				"answer", base)
		}
		base["options"] = e.questionTargets(p)
		base["option_field"] = "target"
		return game.ActObs(p, game.ObsPrivate, string(e.phase),
			"Ask another player a question about the location.", "question", base)
	case PhaseAccusationVote, PhaseFinalVote:
		base["options"] = []string{"yes", "no"}
		base["option_field"] = "vote"
		return game.ActObs(p, game.ObsPrivate, string(e.phase),
			fmt.Sprintf("Vote on whether player %d is the spy.", int(e.suspect)), "vote", base)
	case PhaseFinalNomination:
		base["options"] = e.nominationTargets(p)
		base["option_field"] = "target"
		return game.ActObs(p, game.ObsPrivate, string(e.phase),
			"Nominate a suspect for the final vote, or pass.", "nominate", base)
	case PhaseSpyGuess:
		base["options"] = LocationNames()
		base["option_field"] = "location"
		return game.ActObs(p, game.ObsRole, string(e.phase),
			"You have been identified. Guess the location to steal the win.", "guess", base)
	}
	return game.WaitObs(p, game.ObsPrivate, string(e.phase), e.waitInstruction(), base)
}

func (e *Engine) waitInstruction() string {
	switch e.phase {
	case PhaseQandA:
		if e.answerer != noPlayer {
			return fmt.Sprintf("Player %d is answering player %d.", int(e.answerer), int(e.asker))
		}
		return fmt.Sprintf("Player %d is choosing whom to question.", int(e.asker))
	case PhaseAccusationVote, PhaseFinalVote:
		return fmt.Sprintf("The table is voting on player %d.", int(e.suspect))
	case PhaseFinalNomination:
		return fmt.Sprintf("Player %d may nominate a suspect.", int(e.nominator))
	case PhaseSpyGuess:
		return "The spy is guessing the location."
	}
	return "Waiting."
}

func (e *Engine) questionTargets(p game.PlayerID) []int {
	var out []int
	for i := 0; i < e.cfg.Players; i++ {
		t := game.PlayerID(i)
		if t != p && t != e.noAskBack {
			out = append(out, i)
		}
	}
	return out
}

func (e *Engine) nominationTargets(p game.PlayerID) []int {
	var out []int
	for i := 0; i < e.cfg.Players; i++ {
		t := game.PlayerID(i)
		if t != p && !e.tried[t] {
			out = append(out, i)
		}
	}
	return out
}

func (e *Engine) baseData(p game.PlayerID) map[string]any {
	data := map[string]any{
		"exchanges":     e.exchanges,
		"budget":        e.budget,
		"role":          e.roles[p],
		"locations":     LocationNames(),
		"accuse_used":   e.accuseUsed[p],
		"current_asker": int(e.asker),
	}
	if p == e.spy {
		data["is_spy"] = true
		data["guess_used"] = e.guessUsed
		data["guess_blocked"] = e.accusationStarted
	} else {
		data["location"] = Locations[e.locationIdx].Name
	}
	return data
}
