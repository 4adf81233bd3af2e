package amongus

import (
	"fmt"

	"github.com/EternisAI/strategy-bench/pkg/game"
)

// Observations recomputes every player's view. Rooms and living players
// are visible only locally; the meeting phases are fully public.
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
			fmt.Sprintf("Game over: %s win (%s).", e.winner, e.winReason), base)
	}
	if !e.alive[p] {
		return game.WaitObs(p, game.ObsPrivate, string(e.phase), "You are dead.", base)
	}

	switch e.phase {
	case PhaseTask:
		return game.ActObs(p, game.ObsPrivate, string(e.phase),
			e.taskInstruction(p), "move", base)
	case PhaseDiscussion:
		if e.spoken[p] {
			return game.WaitObs(p, game.ObsPublic, string(e.phase),
				"Waiting for the others to speak.", base)
		}
		return game.ActObs(p, game.ObsPublic, string(e.phase),
			fmt.Sprintf("Discussion round %d of %d: make a statement.", e.discussionRound, e.cfg.DiscussionRounds),
			"statement", base)
	case PhaseVoting:
		if _, voted := e.votes[p]; voted {
			return game.WaitObs(p, game.ObsPublic, string(e.phase),
				"Waiting for the remaining votes.", base)
		}
		opts := make([]string, 0, e.cfg.Players+1)
		for _, s := range e.livingSeats() {
			if game.PlayerID(s) != p {
				opts = append(opts, fmt.Sprintf("%d", s))
			}
		}
		opts = append(opts, "skip")
		base["options"] = opts
		base["option_field"] = "vote"
		return game.ActObs(p, game.ObsPublic, string(e.phase),
			"Vote to eject a player, or skip.", "vote", base)
	}
	return game.WaitObs(p, game.ObsPrivate, string(e.phase), "Waiting.", base)
}

func (e *Engine) taskInstruction(p game.PlayerID) string {
	if e.impostor[p] {
		if e.cooldown[p] == 0 {
			return "Move, vent, kill a player in your room, report a body, or call an emergency."
		}
		return fmt.Sprintf("Move, vent, report a body, or call an emergency (kill ready in %d steps).", e.cooldown[p])
	}
	return "Move, complete a task in your room, report a body, or call an emergency."
}

func (e *Engine) baseData(p game.PlayerID) map[string]any {
	room := e.location[p]
	data := map[string]any{
		"task_step":  e.taskStep,
		"room":       room,
		"task_ratio": e.taskRatio(),
		"alive":      e.livingSeats(),
	}
	if e.impostor[p] {
		data["role"] = "impostor"
		data["impostors"] = e.impostorSeats()
		data["kill_cooldown"] = e.cooldown[p]
	} else {
		data["role"] = "crewmate"
		var todo []map[string]any
		for _, t := range e.tasks[p] {
			if !t.Done {
				todo = append(todo, map[string]any{"task": t.Name, "room": t.Room})
			}
		}
		data["tasks"] = todo
	}
	data["emergency_used"] = e.emergencyUsed[p]

	if e.phase == PhaseTask && e.alive[p] && room != Ejected {
		data["adjacent"] = e.w.corridors[room]
		data["occupants"] = e.occupants(room)
		if e.impostor[p] {
			data["vents"] = e.w.vents[room]
		}
		if body := e.corpseInRoom(room); body != noPlayer {
			data["body"] = int(body)
		}
	}
	if e.phase == PhaseDiscussion || e.phase == PhaseVoting {
		data["discussion_round"] = e.discussionRound
	}
	return data
}
