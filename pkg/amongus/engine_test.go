package amongus

import (
	"testing"

	"github.com/EternisAI/strategy-bench/pkg/game"
)

// newFixed builds a 5-player match with player 0 as the sole impostor.
func newFixed(t *testing.T, seed int64, over func(*Config)) *Engine {
	t.Helper()
	cfg := Config{Players: 5, Seed: seed, MatchID: "test", Impostors: []int{0}}
	if over != nil {
		over(&cfg)
	}
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e.Reset()
	return e
}

func step(e *Engine, actions ...game.Action) game.StepResult {
	batch := make(map[game.PlayerID]game.Action, len(actions))
	for _, a := range actions {
		batch[a.Player] = a
	}
	return e.Step(batch)
}

func act(p game.PlayerID, kind string, data map[string]any) game.Action {
	return game.Action{Player: p, Kind: kind, Data: data}
}

func lastErrorCode(t *testing.T, e *Engine) string {
	t.Helper()
	ev, ok := e.log.LastOfKind(game.EventError)
	if !ok {
		t.Fatalf("expected an error event")
	}
	code, _ := ev.Data["code"].(string)
	return code
}

// callMeeting drives the match into a discussion via player 1's
// emergency button.
func callMeeting(t *testing.T, e *Engine) {
	t.Helper()
	step(e, act(1, "emergency", nil))
	if e.phase != PhaseDiscussion {
		t.Fatalf("expected discussion after emergency, got %s", e.phase)
	}
}

// silenceDiscussion noops every living player through both discussion
// rounds.
func silenceDiscussion(t *testing.T, e *Engine) {
	t.Helper()
	for e.phase == PhaseDiscussion {
		batch := make(map[game.PlayerID]game.Action)
		for _, s := range e.livingSeats() {
			p := game.PlayerID(s)
			batch[p] = game.Action{Player: p, Kind: game.NoopKind}
		}
		e.Step(batch)
	}
	if e.phase != PhaseVoting {
		t.Fatalf("expected voting after discussion, got %s", e.phase)
	}
}

func TestSetupRolesAndSpawn(t *testing.T) {
	e := newFixed(t, 1, nil)
	for i := 0; i < 5; i++ {
		if !e.alive[i] || e.location[i] != RoomCafeteria {
			t.Errorf("player %d: alive=%v location=%s", i, e.alive[i], e.location[i])
		}
	}
	if len(e.tasks[0]) != 0 {
		t.Errorf("impostor should have no tasks, got %d", len(e.tasks[0]))
	}
	for i := 1; i < 5; i++ {
		if len(e.tasks[i]) != defaultTasksPerPlayer {
			t.Errorf("crew %d: expected %d tasks, got %d", i, defaultTasksPerPlayer, len(e.tasks[i]))
		}
	}

	obs := e.Observations()
	if _, ok := obs[0].Data["impostors"]; !ok {
		t.Error("impostor should see the impostor list")
	}
	if _, ok := obs[1].Data["impostors"]; ok {
		t.Error("crew must not see the impostor list")
	}
}

func TestMoveValidation(t *testing.T) {
	e := newFixed(t, 2, nil)

	step(e, act(1, "move", map[string]any{"room": RoomWeapons}))
	if e.location[1] != RoomWeapons {
		t.Fatalf("expected player 1 in Weapons, got %s", e.location[1])
	}

	// Electrical is not adjacent to Weapons; the mover stays put.
	step(e, act(1, "move", map[string]any{"room": RoomElectrical}))
	if e.location[1] != RoomWeapons {
		t.Errorf("rejected move must not change the room, got %s", e.location[1])
	}
	if code := lastErrorCode(t, e); code != game.CodeIneligible {
		t.Errorf("expected %s, got %s", game.CodeIneligible, code)
	}
}

func TestVentRequiresImpostor(t *testing.T) {
	e := newFixed(t, 3, nil)

	step(e, act(1, "vent", map[string]any{"room": RoomAdmin}))
	if e.location[1] != RoomCafeteria {
		t.Errorf("crew vent must be rejected, got %s", e.location[1])
	}

	step(e, act(0, "vent", map[string]any{"room": RoomAdmin}))
	if e.location[0] != RoomAdmin {
		t.Errorf("impostor vent Cafeteria->Admin should succeed, got %s", e.location[0])
	}
}

// A victim moving away in the same step escapes the kill: moves resolve
// before kills, the kill fails, and no meeting starts.
func TestKillFailsWhenVictimMovesAway(t *testing.T) {
	e := newFixed(t, 4, nil)
	e.cooldown[0] = 0

	step(e,
		act(1, "move", map[string]any{"room": RoomAdmin}),
		act(0, "kill", map[string]any{"target": 1}),
	)

	if !e.alive[1] {
		t.Fatal("victim should survive after moving away")
	}
	if code := lastErrorCode(t, e); code != CodeTargetDifferentRoom {
		t.Errorf("expected %s, got %s", CodeTargetDifferentRoom, code)
	}
	if e.cooldown[0] != 0 {
		t.Errorf("failed kill must not reset cooldown, got %d", e.cooldown[0])
	}
	if e.phase != PhaseTask {
		t.Errorf("no meeting should start, got phase %s", e.phase)
	}
}

func TestKillThenReportStartsMeeting(t *testing.T) {
	e := newFixed(t, 5, nil)
	e.cooldown[0] = 0

	step(e, act(0, "kill", map[string]any{"target": 1}))
	if e.alive[1] {
		t.Fatal("same-room kill should succeed")
	}
	if e.location[1] != RoomCafeteria {
		t.Errorf("body should stay in the room, got %s", e.location[1])
	}
	if e.cooldown[0] != defaultKillCooldown {
		t.Errorf("cooldown should reset to %d, got %d", defaultKillCooldown, e.cooldown[0])
	}
	if e.phase != PhaseTask {
		t.Fatalf("no report yet, expected task phase, got %s", e.phase)
	}

	step(e, act(2, "report", nil))
	if e.phase != PhaseDiscussion {
		t.Errorf("report should start a meeting, got %s", e.phase)
	}
}

func TestReportBeatsEmergency(t *testing.T) {
	e := newFixed(t, 6, nil)
	e.cooldown[0] = 0
	step(e, act(0, "kill", map[string]any{"target": 1}))

	step(e,
		act(2, "report", nil),
		act(3, "emergency", nil),
	)
	if e.phase != PhaseDiscussion {
		t.Fatalf("expected a meeting, got %s", e.phase)
	}
	if e.emergencyUsed[3] {
		t.Error("rejected emergency must not consume the button")
	}
	if code := lastErrorCode(t, e); code != game.CodeIneligible {
		t.Errorf("expected %s, got %s", game.CodeIneligible, code)
	}
}

func TestEmergencyLowestIDWins(t *testing.T) {
	e := newFixed(t, 7, nil)

	step(e,
		act(2, "emergency", nil),
		act(4, "emergency", nil),
	)
	if e.phase != PhaseDiscussion {
		t.Fatalf("expected a meeting, got %s", e.phase)
	}
	if !e.emergencyUsed[2] {
		t.Error("player 2's button should be consumed")
	}
	if e.emergencyUsed[4] {
		t.Error("player 4's button should survive the clash")
	}
}

func TestTaskCompletionCrewWin(t *testing.T) {
	e := newFixed(t, 8, nil)
	for i := 1; i < 5; i++ {
		for j := range e.tasks[i] {
			e.tasks[i][j].Done = true
		}
	}
	e.tasks[1][0] = taskAssignment{Name: "swipe_card", Room: RoomAdmin}

	// Wrong room first.
	step(e, act(1, "task", map[string]any{"task": "swipe_card"}))
	if e.tasks[1][0].Done {
		t.Fatal("task must be done in its room")
	}

	step(e, act(1, "move", map[string]any{"room": RoomAdmin}))
	step(e, act(1, "task", map[string]any{"task": "swipe_card"}))
	if !e.terminal || e.winner != TeamCrew || e.winReason != "all tasks completed" {
		t.Errorf("expected crew task win, got terminal=%v winner=%q reason=%q", e.terminal, e.winner, e.winReason)
	}
}

func TestVotingEjectsPlurality(t *testing.T) {
	e := newFixed(t, 9, nil)
	callMeeting(t, e)
	silenceDiscussion(t, e)

	step(e,
		act(0, "vote", map[string]any{"target": 2}),
		act(1, "vote", map[string]any{"target": 0}),
		act(2, "vote", map[string]any{"target": 0}),
		act(3, "vote", map[string]any{"target": 0}),
		act(4, "vote", map[string]any{"vote": "skip"}),
	)
	if e.alive[0] {
		t.Fatal("player 0 should be ejected")
	}
	if e.location[0] != Ejected {
		t.Errorf("ejected player has no body, got location %s", e.location[0])
	}
	if !e.terminal || e.winner != TeamCrew || e.winReason != "all impostors eliminated" {
		t.Errorf("ejecting the only impostor ends the game, got winner=%q reason=%q", e.winner, e.winReason)
	}
}

func TestVoteTieNoEjection(t *testing.T) {
	e := newFixed(t, 10, nil)
	callMeeting(t, e)
	silenceDiscussion(t, e)

	step(e,
		act(0, "vote", map[string]any{"target": 1}),
		act(1, "vote", map[string]any{"target": 2}),
		act(2, "vote", map[string]any{"target": 1}),
		act(3, "vote", map[string]any{"target": 2}),
		act(4, "vote", map[string]any{"vote": "skip"}),
	)

	ev, ok := e.log.LastOfKind(game.EventElectionResult)
	if !ok {
		t.Fatal("expected an election result event")
	}
	if got := ev.Data["ejected"].(int); got != -1 {
		t.Errorf("tie must eject nobody, got %d", got)
	}
	for i := 0; i < 5; i++ {
		if !e.alive[i] {
			t.Errorf("player %d should survive the tie", i)
		}
		if e.location[i] != RoomCafeteria {
			t.Errorf("player %d should return to the Cafeteria, got %s", i, e.location[i])
		}
	}
	if e.phase != PhaseTask {
		t.Errorf("expected task phase after the meeting, got %s", e.phase)
	}
	if e.cooldown[0] != defaultKillCooldown {
		t.Errorf("meeting should reset the kill cooldown, got %d", e.cooldown[0])
	}
}

func TestMeetingClearsOldBodies(t *testing.T) {
	e := newFixed(t, 11, nil)
	e.cooldown[0] = 0
	step(e, act(0, "kill", map[string]any{"target": 4}))
	step(e, act(2, "report", nil))
	silenceDiscussion(t, e)

	batch := make(map[game.PlayerID]game.Action)
	for _, s := range e.livingSeats() {
		p := game.PlayerID(s)
		batch[p] = act(p, "vote", map[string]any{"vote": "skip"})
	}
	e.Step(batch)

	if e.location[4] != Ejected {
		t.Errorf("old body should be cleaned up after the meeting, got %s", e.location[4])
	}
	step(e, act(1, "report", nil))
	if e.phase != PhaseTask {
		t.Error("cleaned-up body must not be reportable")
	}
}

func TestImpostorParityWin(t *testing.T) {
	e := newFixed(t, 12, nil)
	e.alive[2], e.alive[3], e.alive[4] = false, false, false
	e.location[2], e.location[3], e.location[4] = Ejected, Ejected, Ejected

	if !e.checkWin() {
		t.Fatal("one impostor versus one crewmate should end the game")
	}
	if e.winner != TeamImpostors {
		t.Errorf("expected impostor win, got %q (%s)", e.winner, e.winReason)
	}

	stats := e.PlayerStats()
	if !stats[0].Won || stats[0].Role != "impostor" {
		t.Errorf("impostor stats wrong: %+v", stats[0])
	}
	if stats[1].Won {
		t.Error("losing crew must not be marked as winners")
	}
}

func TestNoopSelfPlayHitsRoundLimit(t *testing.T) {
	e := newFixed(t, 13, func(c *Config) { c.RoundLimit = 6 })
	for steps := 0; !e.Terminal() && steps < 200; steps++ {
		batch := make(map[game.PlayerID]game.Action)
		for i := 0; i < e.NumPlayers(); i++ {
			p := game.PlayerID(i)
			batch[p] = game.Action{Player: p, Kind: game.NoopKind}
		}
		e.Step(batch)
	}
	if !e.Terminal() {
		t.Fatal("noop self-play should hit the round limit")
	}
	if e.winner != TeamImpostors || e.winReason != "round limit reached" {
		t.Errorf("expected impostor timeout win, got winner=%q reason=%q", e.winner, e.winReason)
	}
}

func TestReplayDeterminism(t *testing.T) {
	script := func(e *Engine) {
		e.cooldown[0] = 0
		step(e, act(1, "move", map[string]any{"room": RoomWeapons}))
		step(e, act(0, "kill", map[string]any{"target": 2}))
		step(e, act(3, "report", nil))
	}
	a := newFixed(t, 42, nil)
	b := newFixed(t, 42, nil)
	script(a)
	script(b)

	for i := 0; i < 5; i++ {
		if a.location[i] != b.location[i] || a.alive[i] != b.alive[i] {
			t.Errorf("player %d diverged: %s/%v vs %s/%v", i,
				a.location[i], a.alive[i], b.location[i], b.alive[i])
		}
		if len(a.tasks[i]) != len(b.tasks[i]) {
			t.Fatalf("task assignment diverged for player %d", i)
		}
		for j := range a.tasks[i] {
			if a.tasks[i][j] != b.tasks[i][j] {
				t.Errorf("task %d/%d diverged: %+v vs %+v", i, j, a.tasks[i][j], b.tasks[i][j])
			}
		}
	}
	if a.log.Len() != b.log.Len() {
		t.Errorf("event logs diverged: %d vs %d events", a.log.Len(), b.log.Len())
	}
}
