package amongus

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/EternisAI/strategy-bench/pkg/game"
)

// Phase is the engine-local phase enumeration.
type Phase string

const (
	PhaseTask       Phase = "Task"
	PhaseDiscussion Phase = "Discussion"
	PhaseVoting     Phase = "Voting"
	PhaseGameOver   Phase = "GameOver"
)

// Team constants for results and win reporting.
const (
	TeamCrew      = "crewmates"
	TeamImpostors = "impostors"
)

// CodeTargetDifferentRoom rejects a kill whose victim left the room
// before the kill resolved.
const CodeTargetDifferentRoom = "TARGET_DIFFERENT_ROOM"

const (
	MinPlayers = 5
	MaxPlayers = 10

	defaultKillCooldown     = 3
	defaultRoundLimit       = 60
	defaultTasksPerPlayer   = 4
	defaultDiscussionRounds = 2
	// quietStepLimit bounds how many consecutive silent steps a
	// discussion round survives before voting starts.
	quietStepLimit = 2
)

const noPlayer = game.PlayerID(-1)

// impostorCount returns the default impostor count for a table size.
func impostorCount(players int) int {
	if players >= 8 {
		return 2
	}
	return 1
}

// Config configures a match.
type Config struct {
	Players int
	Seed    int64
	MatchID string
	// Impostors optionally fixes the impostor seats; nil draws them.
	Impostors []int
	// Overrides; zero values select the defaults above.
	KillCooldown     int
	RoundLimit       int
	TasksPerPlayer   int
	DiscussionRounds int
}

// Engine is the Among Us state machine.
type Engine struct {
	cfg Config
	rng *rand.Rand
	log *game.EventLog
	w   *world

	phase Phase

	impostor []bool
	alive    []bool
	location []string
	cooldown []int
	tasks    [][]taskAssignment

	emergencyUsed []bool
	taskStep      int

	// meeting state
	discussionRound int
	spoken          map[game.PlayerID]bool
	quietSteps      int
	votes           map[game.PlayerID]game.PlayerID // noPlayer means skip

	invalid map[game.PlayerID]int

	terminal  bool
	winner    string
	winReason string
}

// New validates the config and builds an unstarted engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Players < MinPlayers || cfg.Players > MaxPlayers {
		return nil, fmt.Errorf("amongus: player count %d outside [%d,%d]", cfg.Players, MinPlayers, MaxPlayers)
	}
	if cfg.Impostors != nil {
		if len(cfg.Impostors) == 0 || len(cfg.Impostors) >= cfg.Players {
			return nil, fmt.Errorf("amongus: fixed impostor count %d invalid", len(cfg.Impostors))
		}
		for _, i := range cfg.Impostors {
			if i < 0 || i >= cfg.Players {
				return nil, fmt.Errorf("amongus: impostor seat %d out of range", i)
			}
		}
	}
	if cfg.KillCooldown <= 0 {
		cfg.KillCooldown = defaultKillCooldown
	}
	if cfg.RoundLimit <= 0 {
		cfg.RoundLimit = defaultRoundLimit
	}
	if cfg.TasksPerPlayer <= 0 {
		cfg.TasksPerPlayer = defaultTasksPerPlayer
	}
	if cfg.DiscussionRounds <= 0 {
		cfg.DiscussionRounds = defaultDiscussionRounds
	}
	if cfg.MatchID == "" {
		cfg.MatchID = Name
	}
	return &Engine{
		cfg: cfg,
		rng: game.NewRNG(cfg.Seed),
		log: game.NewEventLog(cfg.MatchID),
		w:   buildWorld(),
	}, nil
}

func (e *Engine) NumPlayers() int        { return e.cfg.Players }
func (e *Engine) Events() *game.EventLog { return e.log }
func (e *Engine) Terminal() bool         { return e.terminal }
func (e *Engine) Winner() string         { return e.winner }
func (e *Engine) WinReason() string      { return e.winReason }

// Reset draws impostors, assigns tasks, and spawns everyone in the
// Cafeteria.
func (e *Engine) Reset() map[game.PlayerID]game.Observation {
	n := e.cfg.Players
	e.impostor = make([]bool, n)
	if e.cfg.Impostors != nil {
		for _, i := range e.cfg.Impostors {
			e.impostor[i] = true
		}
	} else {
		perm := e.rng.Perm(n)
		for i := 0; i < impostorCount(n); i++ {
			e.impostor[perm[i]] = true
		}
	}

	e.alive = make([]bool, n)
	e.location = make([]string, n)
	e.cooldown = make([]int, n)
	e.emergencyUsed = make([]bool, n)
	e.tasks = make([][]taskAssignment, n)
	sites := allTaskSites()
	for i := 0; i < n; i++ {
		e.alive[i] = true
		e.location[i] = RoomCafeteria
		if e.impostor[i] {
			e.cooldown[i] = e.cfg.KillCooldown
			continue
		}
		perm := e.rng.Perm(len(sites))
		for t := 0; t < e.cfg.TasksPerPlayer; t++ {
			e.tasks[i] = append(e.tasks[i], sites[perm[t]])
		}
	}

	e.taskStep = 0
	e.terminal = false
	e.winner, e.winReason = "", ""

	e.log.SetRound(1)
	e.log.Append(game.EventGameStart, map[string]any{
		"game": Name, "players": n, "impostors": e.impostorCountAlive(),
	})
	for i := 0; i < n; i++ {
		pid := game.PlayerID(i)
		data := map[string]any{"event": "role_assignment"}
		if e.impostor[i] {
			data["role"] = "impostor"
			data["impostors"] = e.impostorSeats()
		} else {
			data["role"] = "crewmate"
			taskList := make([]map[string]any, 0, len(e.tasks[i]))
			for _, t := range e.tasks[i] {
				taskList = append(taskList, map[string]any{"task": t.Name, "room": t.Room})
			}
			data["tasks"] = taskList
		}
		e.log.AppendPrivate(pid, game.EventInfo, data)
	}

	e.setPhase(PhaseTask)
	return e.Observations()
}

func (e *Engine) impostorSeats() []int {
	var out []int
	for i, imp := range e.impostor {
		if imp {
			out = append(out, i)
		}
	}
	return out
}

func (e *Engine) impostorCountAlive() int {
	n := 0
	for i, imp := range e.impostor {
		if imp && e.alive[i] {
			n++
		}
	}
	return n
}

func (e *Engine) crewCountAlive() int {
	n := 0
	for i, imp := range e.impostor {
		if !imp && e.alive[i] {
			n++
		}
	}
	return n
}

func (e *Engine) setPhase(p Phase) {
	e.phase = p
	e.invalid = make(map[game.PlayerID]int)
	e.log.Append(game.EventPhaseChange, map[string]any{"phase": string(p)})
}

// ForceTerminate freezes a match that hit the driver's safety bound.
func (e *Engine) ForceTerminate() {
	if e.terminal {
		return
	}
	e.terminal = true
	e.winner = ""
	e.winReason = "force_terminated"
	e.phase = PhaseGameOver
	e.log.Append(game.EventGameEnd, map[string]any{"winner": "", "win_reason": "force_terminated"})
}

// --- step ---

// Step applies one batch of actions. In the task phase, actions are
// partitioned by kind and resolved in a fixed order: moves, vents, kills
// against post-move positions, body reports, emergency calls, then task
// completions. Meetings run on the usual one-actor-at-a-time model.
func (e *Engine) Step(actions map[game.PlayerID]game.Action) game.StepResult {
	if !e.terminal {
		switch e.phase {
		case PhaseTask:
			e.stepTask(actions)
		case PhaseDiscussion:
			e.stepDiscussion(actions)
		case PhaseVoting:
			e.stepVoting(actions)
		}
	}
	return game.StepResult{
		Observations: e.Observations(),
		Rewards:      e.rewards(),
		Done:         e.terminal,
		Info: map[string]any{
			"phase": string(e.phase), "task_step": e.taskStep,
			"task_ratio": e.taskRatio(),
		},
	}
}

func (e *Engine) stepTask(actions map[game.PlayerID]game.Action) {
	byKind := make(map[string][]game.PlayerID)
	for _, p := range game.SortedActionPlayers(actions) {
		a := actions[p]
		if int(p) < 0 || int(p) >= e.cfg.Players || a.Kind == game.NoopKind {
			continue
		}
		if !e.alive[p] {
			e.log.Error(p, game.CodeDeadPlayer, "dead players cannot act")
			continue
		}
		switch a.Kind {
		case "move", "vent", "kill", "report", "emergency", "task":
			byKind[a.Kind] = append(byKind[a.Kind], p)
		default:
			e.log.Error(p, game.CodeBadKind, fmt.Sprintf("unknown task-phase action %s", a.Kind))
		}
	}

	for _, p := range byKind["move"] {
		e.applyMove(p, actions[p])
	}
	for _, p := range byKind["vent"] {
		e.applyVent(p, actions[p])
	}
	killed := make(map[game.PlayerID]bool)
	for _, p := range byKind["kill"] {
		if e.applyKill(p, actions[p]) {
			killed[p] = true
		}
	}
	// The win check runs after all kills; if the game ends here no
	// meeting fires even when a report was also submitted.
	if e.checkWin() {
		return
	}

	meeting := false
	reported := false
	for _, p := range byKind["report"] {
		if e.applyReport(p, actions[p], meeting) {
			meeting = true
			reported = true
		}
	}
	for _, p := range byKind["emergency"] {
		if e.applyEmergency(p, actions[p], reported, meeting) {
			meeting = true
		}
	}
	for _, p := range byKind["task"] {
		e.applyTask(p, actions[p])
	}
	if e.checkWin() {
		return
	}

	if meeting {
		e.startMeeting()
		return
	}

	e.taskStep++
	for i := range e.cooldown {
		// A cooldown set by a kill this step starts ticking next step.
		if e.impostor[i] && e.alive[i] && e.cooldown[i] > 0 && !killed[game.PlayerID(i)] {
			e.cooldown[i]--
		}
	}
	if e.taskStep >= e.cfg.RoundLimit {
		e.gameOver(TeamImpostors, "round limit reached")
	}
}

// --- task-phase actions ---

func (e *Engine) applyMove(p game.PlayerID, a game.Action) {
	to, ok := a.Str("room")
	if !ok {
		e.log.Error(p, game.CodeBadPayload, "move requires a room")
		return
	}
	from := e.location[p]
	if !e.w.corridorAdjacent(from, to) {
		e.log.Error(p, game.CodeIneligible, fmt.Sprintf("%s is not corridor-adjacent to %s", to, from))
		return
	}
	e.location[p] = to
}

func (e *Engine) applyVent(p game.PlayerID, a game.Action) {
	if !e.impostor[p] {
		e.log.Error(p, game.CodeIneligible, "only impostors can vent")
		return
	}
	to, ok := a.Str("room")
	if !ok {
		e.log.Error(p, game.CodeBadPayload, "vent requires a room")
		return
	}
	from := e.location[p]
	if !e.w.ventAdjacent(from, to) {
		e.log.Error(p, game.CodeIneligible, fmt.Sprintf("no vent from %s to %s", from, to))
		return
	}
	e.location[p] = to
}

func (e *Engine) applyKill(p game.PlayerID, a game.Action) bool {
	if !e.impostor[p] {
		e.log.Error(p, game.CodeIneligible, "only impostors can kill")
		return false
	}
	if e.cooldown[p] > 0 {
		e.log.Error(p, game.CodeIneligible, fmt.Sprintf("kill on cooldown for %d more steps", e.cooldown[p]))
		return false
	}
	t, ok := a.Int("target")
	if !ok || t < 0 || t >= e.cfg.Players || game.PlayerID(t) == p {
		e.log.Error(p, game.CodeBadPayload, "kill requires another player as target")
		return false
	}
	if !e.alive[t] {
		e.log.Error(p, game.CodeIneligible, "target is already dead")
		return false
	}
	if e.location[t] != e.location[p] {
		e.log.Error(p, CodeTargetDifferentRoom, fmt.Sprintf("target is in %s, not %s", e.location[t], e.location[p]))
		return false
	}
	e.alive[t] = false
	e.cooldown[p] = e.cfg.KillCooldown
	// The body stays in the room; only the killer's log records the kill.
	e.log.AppendPrivate(p, game.EventPlayerEliminated, map[string]any{
		"player": t, "cause": "killed", "room": e.location[t],
	})
	return true
}

func (e *Engine) applyReport(p game.PlayerID, a game.Action, alreadyTriggered bool) bool {
	victim := e.corpseInRoom(e.location[p])
	if victim == noPlayer {
		e.log.Error(p, game.CodeIneligible, "no reportable body here")
		return false
	}
	if alreadyTriggered {
		return false
	}
	e.log.AppendFor(p, game.EventInfo, map[string]any{
		"event": "body_report", "victim": int(victim), "room": e.location[p],
	})
	return true
}

func (e *Engine) applyEmergency(p game.PlayerID, a game.Action, reported, alreadyTriggered bool) bool {
	if reported {
		e.log.Error(p, game.CodeIneligible, "body report takes precedence")
		return false
	}
	if e.emergencyUsed[p] {
		e.log.Error(p, game.CodeIneligible, "emergency button already used")
		return false
	}
	if e.location[p] != RoomCafeteria {
		e.log.Error(p, game.CodeIneligible, "emergencies can only be called from the Cafeteria")
		return false
	}
	if alreadyTriggered {
		e.log.Error(p, game.CodeIneligible, "a meeting is already starting")
		return false
	}
	e.emergencyUsed[p] = true
	e.log.AppendFor(p, game.EventInfo, map[string]any{"event": "emergency_call"})
	return true
}

func (e *Engine) applyTask(p game.PlayerID, a game.Action) {
	if e.impostor[p] {
		e.log.Error(p, game.CodeIneligible, "impostors have no tasks")
		return
	}
	name, ok := a.Str("task")
	if !ok {
		e.log.Error(p, game.CodeBadPayload, "task requires a task name")
		return
	}
	for i := range e.tasks[p] {
		t := &e.tasks[p][i]
		if t.Name != name || t.Done {
			continue
		}
		if t.Room != e.location[p] {
			e.log.Error(p, game.CodeIneligible, fmt.Sprintf("%s must be done in %s", name, t.Room))
			return
		}
		t.Done = true
		e.log.AppendPrivate(p, game.EventInfo, map[string]any{
			"event": "task_complete", "task": name, "room": t.Room,
		})
		return
	}
	e.log.Error(p, game.CodeIneligible, fmt.Sprintf("no incomplete task %q assigned", name))
}

// corpseInRoom finds the lowest-ID dead player whose body lies in the
// room. Ejected players have no body.
func (e *Engine) corpseInRoom(room string) game.PlayerID {
	for i := 0; i < e.cfg.Players; i++ {
		if !e.alive[i] && e.location[i] == room && e.location[i] != Ejected {
			return game.PlayerID(i)
		}
	}
	return noPlayer
}

// taskRatio is the global crew task completion fraction.
func (e *Engine) taskRatio() float64 {
	total, done := 0, 0
	for i := range e.tasks {
		for _, t := range e.tasks[i] {
			total++
			if t.Done {
				done++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total)
}

// occupants lists living players in a room, ascending.
func (e *Engine) occupants(room string) []int {
	var out []int
	for i := 0; i < e.cfg.Players; i++ {
		if e.alive[i] && e.location[i] == room {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}
