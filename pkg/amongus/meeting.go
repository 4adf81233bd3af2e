package amongus

import (
	"fmt"

	"github.com/EternisAI/strategy-bench/pkg/game"
)

const maxInvalidAttempts = 3

// --- discussion ---

// startMeeting suspends the task phase: everyone (dead included) learns a
// meeting is on, then the living talk and vote.
func (e *Engine) startMeeting() {
	e.discussionRound = 1
	e.spoken = make(map[game.PlayerID]bool)
	e.quietSteps = 0
	e.log.Append(game.EventInfo, map[string]any{
		"event": "meeting_start", "alive": e.livingSeats(),
	})
	e.setPhase(PhaseDiscussion)
}

func (e *Engine) stepDiscussion(actions map[game.PlayerID]game.Action) {
	progress := false
	for _, p := range game.SortedActionPlayers(actions) {
		a := actions[p]
		if int(p) < 0 || int(p) >= e.cfg.Players {
			continue
		}
		if !e.alive[p] {
			if a.Kind != game.NoopKind {
				e.log.Error(p, game.CodeDeadPlayer, "dead players cannot speak")
			}
			continue
		}
		if e.spoken[p] {
			continue
		}
		switch a.Kind {
		case game.NoopKind:
			e.spoken[p] = true
			progress = true
		case "statement":
			text, _ := a.Str("text")
			e.log.Append(game.EventDiscussion, map[string]any{
				"player": int(p), "text": text, "discussion_round": e.discussionRound,
			})
			e.spoken[p] = true
			progress = true
		default:
			e.log.Error(p, game.CodeBadKind, fmt.Sprintf("expected statement, got %s", a.Kind))
			e.invalid[p]++
			if e.invalid[p] >= maxInvalidAttempts {
				e.spoken[p] = true
				progress = true
			}
		}
	}

	if e.allLivingSpoken() {
		e.discussionRound++
		if e.discussionRound > e.cfg.DiscussionRounds {
			e.beginVoting()
			return
		}
		e.spoken = make(map[game.PlayerID]bool)
		e.quietSteps = 0
		return
	}
	if !progress {
		e.quietSteps++
		if e.quietSteps >= quietStepLimit {
			e.beginVoting()
		}
	}
}

func (e *Engine) allLivingSpoken() bool {
	for i := 0; i < e.cfg.Players; i++ {
		if e.alive[i] && !e.spoken[game.PlayerID(i)] {
			return false
		}
	}
	return true
}

func (e *Engine) livingSeats() []int {
	var out []int
	for i := 0; i < e.cfg.Players; i++ {
		if e.alive[i] {
			out = append(out, i)
		}
	}
	return out
}

// --- voting ---

func (e *Engine) beginVoting() {
	e.votes = make(map[game.PlayerID]game.PlayerID)
	e.setPhase(PhaseVoting)
}

func (e *Engine) stepVoting(actions map[game.PlayerID]game.Action) {
	for _, p := range game.SortedActionPlayers(actions) {
		a := actions[p]
		if int(p) < 0 || int(p) >= e.cfg.Players {
			continue
		}
		if !e.alive[p] {
			if a.Kind != game.NoopKind {
				e.log.Error(p, game.CodeDeadPlayer, "dead players cannot vote")
			}
			continue
		}
		if _, voted := e.votes[p]; voted {
			if a.Kind != game.NoopKind {
				e.log.Error(p, game.CodeDoubleVote, "vote already recorded")
			}
			continue
		}
		e.handleVote(p, a)
	}
	if len(e.votes) == len(e.livingSeats()) {
		e.resolveVotes()
	}
}

func (e *Engine) handleVote(p game.PlayerID, a game.Action) {
	if a.Kind == game.NoopKind {
		e.recordVote(p, noPlayer)
		return
	}
	if a.Kind != "vote" {
		e.voteError(p, game.CodeBadKind, fmt.Sprintf("expected vote, got %s", a.Kind))
		return
	}
	if s, ok := a.Str("vote"); ok && s == "skip" {
		e.recordVote(p, noPlayer)
		return
	}
	t, ok := a.Int("target")
	if !ok {
		e.voteError(p, game.CodeBadPayload, "vote requires a target or skip")
		return
	}
	if t < 0 || t >= e.cfg.Players || !e.alive[t] {
		e.voteError(p, game.CodeIneligible, fmt.Sprintf("player %d is not a living suspect", t))
		return
	}
	e.recordVote(p, game.PlayerID(t))
}

func (e *Engine) voteError(p game.PlayerID, code, detail string) {
	e.log.Error(p, code, detail)
	e.invalid[p]++
	if e.invalid[p] >= maxInvalidAttempts {
		e.recordVote(p, noPlayer)
	}
}

func (e *Engine) recordVote(p, target game.PlayerID) {
	e.votes[p] = target
	data := map[string]any{"voter": int(p)}
	if target == noPlayer {
		data["vote"] = "skip"
	} else {
		data["vote"] = int(target)
	}
	e.log.Append(game.EventVoteCast, data)
}

// resolveVotes ejects the unique strict plurality target. A skip
// plurality or any tie at the top ejects nobody.
func (e *Engine) resolveVotes() {
	tally := make(map[game.PlayerID]int)
	skips := 0
	for _, t := range e.votes {
		if t == noPlayer {
			skips++
			continue
		}
		tally[t]++
	}

	ejected := noPlayer
	best, unique := skips, true
	for i := 0; i < e.cfg.Players; i++ {
		t := game.PlayerID(i)
		switch c := tally[t]; {
		case c > best:
			best, ejected, unique = c, t, true
		case c == best && c > 0:
			unique = false
		}
	}
	if !unique {
		ejected = noPlayer
	}

	data := map[string]any{"skips": skips}
	votesView := make(map[string]int)
	for t, c := range tally {
		votesView[fmt.Sprintf("player_%d", int(t))] = c
	}
	data["tally"] = votesView
	if ejected == noPlayer {
		data["ejected"] = -1
	} else {
		data["ejected"] = int(ejected)
	}
	e.log.Append(game.EventElectionResult, data)

	if ejected != noPlayer {
		e.alive[ejected] = false
		e.location[ejected] = Ejected
		e.log.Append(game.EventPlayerEliminated, map[string]any{
			"player": int(ejected), "cause": "ejected",
		})
	}
	if e.checkWin() {
		return
	}
	e.endMeeting()
}

// endMeeting returns everyone living to the Cafeteria, clears old bodies,
// and resets kill cooldowns.
func (e *Engine) endMeeting() {
	for i := 0; i < e.cfg.Players; i++ {
		if e.alive[i] {
			e.location[i] = RoomCafeteria
			if e.impostor[i] {
				e.cooldown[i] = e.cfg.KillCooldown
			}
		} else if e.location[i] != Ejected {
			e.location[i] = Ejected
		}
	}
	e.log.SetRound(e.taskStep + 1)
	e.setPhase(PhaseTask)
}

// --- win conditions ---

func (e *Engine) checkWin() bool {
	if e.terminal {
		return true
	}
	imps, crew := e.impostorCountAlive(), e.crewCountAlive()
	switch {
	case e.taskRatio() >= 1:
		e.gameOver(TeamCrew, "all tasks completed")
	case imps == 0:
		e.gameOver(TeamCrew, "all impostors eliminated")
	case imps >= crew:
		e.gameOver(TeamImpostors, "impostors match the remaining crew")
	default:
		return false
	}
	return true
}

func (e *Engine) gameOver(winner, reason string) {
	e.terminal = true
	e.winner = winner
	e.winReason = reason
	e.phase = PhaseGameOver
	e.log.Append(game.EventGameEnd, map[string]any{
		"winner": winner, "win_reason": reason,
		"impostors": e.impostorSeats(), "task_ratio": e.taskRatio(),
	})
}

func (e *Engine) team(i int) string {
	if e.impostor[i] {
		return TeamImpostors
	}
	return TeamCrew
}

func (e *Engine) rewards() map[game.PlayerID]float64 {
	out := make(map[game.PlayerID]float64, e.cfg.Players)
	for i := 0; i < e.cfg.Players; i++ {
		pid := game.PlayerID(i)
		if e.terminal && e.winner == e.team(i) {
			out[pid] = 1
		} else {
			out[pid] = 0
		}
	}
	return out
}

// PlayerStats reports per-seat outcome stats for the match result.
func (e *Engine) PlayerStats() map[game.PlayerID]game.PlayerStats {
	out := make(map[game.PlayerID]game.PlayerStats, e.cfg.Players)
	for i := 0; i < e.cfg.Players; i++ {
		pid := game.PlayerID(i)
		won := e.terminal && e.winner == e.team(i)
		score := 0.0
		if won {
			score = 1
		}
		role := "crewmate"
		if e.impostor[i] {
			role = "impostor"
		}
		done := 0
		for _, t := range e.tasks[i] {
			if t.Done {
				done++
			}
		}
		out[pid] = game.PlayerStats{
			Role:  role,
			Score: score,
			Won:   won,
			Extra: map[string]any{"alive": e.alive[i], "tasks_done": done},
		}
	}
	return out
}
