package avalon

import (
	"testing"

	"github.com/EternisAI/strategy-bench/pkg/game"
)

func fixedRoles5() []Role {
	return []Role{RoleMerlin, RoleLoyal, RoleLoyal, RoleAssassin, RoleMinion}
}

func newTest5(t *testing.T, seed int64) *Engine {
	t.Helper()
	e, err := New(Config{Players: 5, Seed: seed, MatchID: "test", Roles: fixedRoles5()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e.Reset()
	return e
}

func silenceDiscussion(t *testing.T, e *Engine) {
	t.Helper()
	for e.phase == PhaseTeamDiscuss {
		actors := game.Actors(e.Observations())
		if len(actors) != 1 {
			t.Fatalf("discussion expects one speaker, got %d", len(actors))
		}
		e.Step(map[game.PlayerID]game.Action{
			actors[0]: {Player: actors[0], Kind: "silence"},
		})
	}
}

func voteAll(t *testing.T, e *Engine, vote string) {
	t.Helper()
	actions := make(map[game.PlayerID]game.Action)
	for p := game.PlayerID(0); p < game.PlayerID(e.cfg.Players); p++ {
		actions[p] = game.Action{Player: p, Kind: "vote", Data: map[string]any{"vote": vote}}
	}
	e.Step(actions)
}

func proposeTeam(t *testing.T, e *Engine, team []int) {
	t.Helper()
	e.Step(map[game.PlayerID]game.Action{
		e.leader: {Player: e.leader, Kind: "propose", Data: map[string]any{"team": team}},
	})
	if e.phase != PhaseTeamDiscuss {
		t.Fatalf("proposal did not advance to discussion, phase=%s", e.phase)
	}
}

func TestTeamSizeTables(t *testing.T) {
	cases := []struct {
		players int
		sizes   [5]int
	}{
		{5, [5]int{2, 3, 2, 3, 3}},
		{6, [5]int{2, 3, 4, 3, 4}},
		{7, [5]int{2, 3, 3, 4, 4}},
		{8, [5]int{3, 4, 4, 5, 5}},
		{10, [5]int{3, 4, 4, 5, 5}},
	}
	for _, tc := range cases {
		if got := teamSizes(tc.players); got != tc.sizes {
			t.Errorf("%d players: expected %v, got %v", tc.players, tc.sizes, got)
		}
	}
}

func TestSetupVisibility(t *testing.T) {
	roles := []Role{RoleMerlin, RolePercival, RoleLoyal, RoleLoyal, RoleMorgana, RoleAssassin, RoleMordred}
	e, err := New(Config{Players: 7, Seed: 1, MatchID: "vis", Roles: roles})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e.Reset()

	merlinSees := e.knownPlayers(0)
	if len(merlinSees) != 2 || merlinSees[0] != 4 || merlinSees[1] != 5 {
		t.Errorf("Merlin should see Morgana and the assassin but not Mordred, got %v", merlinSees)
	}
	percivalSees := e.knownPlayers(1)
	if len(percivalSees) != 2 || percivalSees[0] != 0 || percivalSees[1] != 4 {
		t.Errorf("Percival should see Merlin and Morgana, got %v", percivalSees)
	}
	evilSees := e.knownPlayers(5)
	if len(evilSees) != 2 {
		t.Errorf("evil should see the other evil, got %v", evilSees)
	}
	loyalSees := e.knownPlayers(2)
	if len(loyalSees) != 0 {
		t.Errorf("loyal servant should see no one, got %v", loyalSees)
	}
}

func TestProposalValidation(t *testing.T) {
	cases := []struct {
		name string
		team []int
	}{
		{"wrong size", []int{0}},
		{"duplicates", []int{1, 1}},
		{"invalid id", []int{0, 9}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTest5(t, 2)
			leader := e.leader
			e.Step(map[game.PlayerID]game.Action{
				leader: {Player: leader, Kind: "propose", Data: map[string]any{"team": tc.team}},
			})
			if e.phase != PhaseTeamSelection {
				t.Fatalf("invalid proposal advanced the phase to %s", e.phase)
			}
		})
	}
}

// Three invalid proposals in a row exhaust the leader's attempts and the
// engine proposes a fallback team on their behalf.
func TestRepeatedInvalidProposalsEscalate(t *testing.T) {
	e := newTest5(t, 2)
	leader := e.leader

	for i := 0; i < maxInvalidAttempts; i++ {
		if e.phase != PhaseTeamSelection {
			t.Fatalf("phase advanced after %d invalid proposals", i)
		}
		e.Step(map[game.PlayerID]game.Action{
			leader: {Player: leader, Kind: "propose", Data: map[string]any{"team": []int{0}}},
		})
	}
	if e.phase == PhaseTeamSelection {
		t.Fatal("exhausted attempts should fall back to a default proposal")
	}
}

// TestFiveRejectionsEvilWins runs the fixed scenario: every proposal on
// quest 1 is rejected; the fifth rejection ends the game for evil.
func TestFiveRejectionsEvilWins(t *testing.T) {
	e := newTest5(t, 3)

	for i := 0; i < 5; i++ {
		if e.Terminal() {
			t.Fatalf("game ended early after %d rejections", i)
		}
		proposeTeam(t, e, []int{0, 1})
		silenceDiscussion(t, e)
		voteAll(t, e, "reject")
	}

	if !e.Terminal() || e.Winner() != TeamEvil {
		t.Fatalf("expected evil win, got terminal=%v winner=%q", e.Terminal(), e.Winner())
	}
	if e.WinReason() != "5 consecutive team rejections" {
		t.Errorf("unexpected win reason %q", e.WinReason())
	}
	ev, _ := e.log.LastOfKind(game.EventGameEnd)
	if ev.Data["winner"] != TeamEvil {
		t.Errorf("GameEnd event winner mismatch: %v", ev.Data)
	}
}

func TestGoodPlayerCannotFailQuest(t *testing.T) {
	e := newTest5(t, 4)
	proposeTeam(t, e, []int{0, 1}) // both good
	silenceDiscussion(t, e)
	voteAll(t, e, "approve")

	if e.phase != PhaseQuestVoting {
		t.Fatalf("expected quest voting, got %s", e.phase)
	}
	e.Step(map[game.PlayerID]game.Action{
		0: {Player: 0, Kind: "vote", Data: map[string]any{"vote": "fail"}},
	})
	if len(e.questBallots) != 0 {
		t.Error("good fail ballot must be rejected")
	}
	e.Step(map[game.PlayerID]game.Action{
		0: {Player: 0, Kind: "vote", Data: map[string]any{"vote": "success"}},
		1: {Player: 1, Kind: "vote", Data: map[string]any{"vote": "success"}},
	})
	if len(e.questResults) != 1 || !e.questResults[0] {
		t.Fatalf("expected one successful quest, got %v", e.questResults)
	}
}

func TestQuestFailAndTallyInvariant(t *testing.T) {
	e := newTest5(t, 5)
	proposeTeam(t, e, []int{0, 3}) // good + assassin
	silenceDiscussion(t, e)
	voteAll(t, e, "approve")

	e.Step(map[game.PlayerID]game.Action{
		0: {Player: 0, Kind: "vote", Data: map[string]any{"vote": "success"}},
		3: {Player: 3, Kind: "vote", Data: map[string]any{"vote": "fail"}},
	})

	if len(e.questResults) != 1 || e.questResults[0] {
		t.Fatalf("one fail ballot should sink quest 1, got %v", e.questResults)
	}
	sc, fc := e.questTally()
	if sc+fc != len(e.questResults) {
		t.Errorf("tally invariant violated: %d+%d != %d", sc, fc, len(e.questResults))
	}

	ev, ok := e.log.LastOfKind(game.EventQuestResult)
	if !ok {
		t.Fatal("missing QuestResult event")
	}
	ballots, _ := ev.Data["ballots"].([]string)
	if len(ballots) != 2 {
		t.Errorf("expected 2 anonymized ballots, got %v", ballots)
	}
}

func TestAssassinationDecidesGame(t *testing.T) {
	for _, tc := range []struct {
		name   string
		target int
		winner string
	}{
		{"merlin hit", 0, TeamEvil},
		{"merlin missed", 1, TeamGood},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e := newTest5(t, 6)
			e.questResults = []bool{true, true, true}
			e.setPhase(PhaseAssassination)

			e.Step(map[game.PlayerID]game.Action{
				3: {Player: 3, Kind: "assassinate", Data: map[string]any{"target": tc.target}},
			})
			if !e.Terminal() || e.Winner() != tc.winner {
				t.Fatalf("expected %s win, got %q (%q)", tc.winner, e.Winner(), e.WinReason())
			}
		})
	}
}

func TestNoopSelfPlayTerminates(t *testing.T) {
	for _, players := range []int{5, 7, 10} {
		e, err := New(Config{Players: players, Seed: 42, MatchID: "noop"})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		e.Reset()

		steps := 0
		for !e.Terminal() && steps < 1000 {
			actions := make(map[game.PlayerID]game.Action)
			for _, p := range game.Actors(e.Observations()) {
				actions[p] = game.Noop(p)
			}
			e.Step(actions)
			steps++
		}
		if !e.Terminal() {
			t.Fatalf("%d players: match did not terminate within %d steps", players, steps)
		}
		t.Logf("players=%d winner=%s reason=%q steps=%d", players, e.Winner(), e.WinReason(), steps)
	}
}
