package avalon

import (
	"fmt"

	"github.com/EternisAI/strategy-bench/pkg/game"
)

// Observations recomputes every player's view. Quest ballots and other
// players' roles never appear outside the published anonymized events.
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
	case PhaseTeamSelection:
		base["options"] = game.IDsToInts(game.PlayerIDs(e.cfg.Players))
		base["option_field"] = "team"
		base["option_count"] = e.teamSize()
		return game.ActObs(p, game.ObsPrivate, string(e.phase),
			fmt.Sprintf("You lead quest %d. Propose a team of %d players.", e.quest, e.teamSize()),
			"propose", base)
	case PhaseTeamDiscuss:
		return game.ActObs(p, game.ObsPrivate, string(e.phase),
			"Discuss the proposed team, or stay silent.", "statement", base)
	case PhaseTeamVoting:
		base["options"] = []string{"approve", "reject"}
		base["option_field"] = "vote"
		return game.ActObs(p, game.ObsPrivate, string(e.phase),
			fmt.Sprintf("Vote on the proposed team %v.", game.IDsToInts(e.team)), "vote", base)
	case PhaseQuestVoting:
		opts := []string{"success"}
		if e.roles[p].Evil() {
			opts = []string{"success", "fail"}
		}
		base["options"] = opts
		base["option_field"] = "vote"
		return game.ActObs(p, game.ObsRole, string(e.phase),
			"Cast your quest ballot.", "vote", base)
	case PhaseAssassination:
		var goods []int
		for i, r := range e.roles {
			if !r.Evil() {
				goods = append(goods, i)
			}
		}
		base["options"] = goods
		base["option_field"] = "target"
		return game.ActObs(p, game.ObsRole, string(e.phase),
			"Three quests succeeded. Assassinate the player you believe is Merlin.",
			"assassinate", base)
	}
	return game.WaitObs(p, game.ObsPrivate, string(e.phase), e.waitInstruction(), base)
}

func (e *Engine) waitInstruction() string {
	switch e.phase {
	case PhaseTeamSelection:
		return fmt.Sprintf("Waiting for leader %d to propose a team.", int(e.leader))
	case PhaseTeamDiscuss:
		if len(e.speakQueue) > 0 {
			return fmt.Sprintf("Waiting for player %d to speak.", int(e.speakQueue[0]))
		}
	case PhaseTeamVoting:
		return "Waiting for remaining team votes."
	case PhaseQuestVoting:
		return "The quest team is casting ballots."
	case PhaseAssassination:
		return "The assassin is choosing a target."
	}
	return "Waiting."
}

func (e *Engine) baseData(p game.PlayerID) map[string]any {
	results := make([]string, len(e.questResults))
	for i, ok := range e.questResults {
		if ok {
			results[i] = "success"
		} else {
			results[i] = "fail"
		}
	}
	data := map[string]any{
		"quest":         e.quest,
		"quest_results": results,
		"leader":        int(e.leader),
		"proposal_idx":  e.proposalIdx,
		"round_idx":     e.roundIdx,
		"team_size":     e.teamSize(),
		"role":          string(e.roles[p]),
		"team_name":     e.roles[p].Team(),
	}
	if len(e.team) > 0 {
		data["proposed_team"] = game.IDsToInts(e.team)
	}
	if known := e.knownPlayers(p); len(known) > 0 {
		data[e.knowledgeLabel(p)] = known
	}
	return data
}
