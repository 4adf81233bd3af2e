package spyfall

import (
	"testing"

	"github.com/EternisAI/strategy-bench/pkg/game"
)

func intPtr(v int) *int { return &v }

func newTest(t *testing.T, cfg Config) *Engine {
	t.Helper()
	if cfg.MatchID == "" {
		cfg.MatchID = "test"
	}
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e.Reset()
	return e
}

func act(e *Engine, p game.PlayerID, kind string, data map[string]any) {
	e.Step(map[game.PlayerID]game.Action{p: {Player: p, Kind: kind, Data: data}})
}

// routeToSpy plays stock questions and answers until the spy is the
// current actor, respecting the no-ask-back rule.
func routeToSpy(t *testing.T, e *Engine) {
	t.Helper()
	for i := 0; i < 8; i++ {
		if e.phase != PhaseQandA {
			t.Fatalf("left Q&A while routing to the spy, phase=%s", e.phase)
		}
		if e.answerer == e.spy || (e.answerer == noPlayer && e.asker == e.spy) {
			return
		}
		if e.answerer != noPlayer {
			act(e, e.answerer, "answer", map[string]any{"answer": "Hard to say."})
			continue
		}
		target := e.spy
		if target == e.noAskBack || target == e.asker {
			for c := game.PlayerID(0); c < game.PlayerID(e.cfg.Players); c++ {
				if c != e.asker && c != e.noAskBack {
					target = c
					break
				}
			}
		}
		act(e, e.asker, "question", map[string]any{"target": int(target), "question": "How often do you come here?"})
	}
	t.Fatal("could not route the turn to the spy")
}

func TestRoleDealHidesLocationFromSpy(t *testing.T) {
	e := newTest(t, Config{Players: 4, Seed: 1, Spy: intPtr(2), LocationIdx: intPtr(3)})

	obs := e.Observations()
	for p, o := range obs {
		if p == 2 {
			if _, leaked := o.Data["location"]; leaked {
				t.Fatal("spy observation contains the location")
			}
			if o.Data["is_spy"] != true {
				t.Error("spy observation missing is_spy")
			}
		} else {
			if o.Data["location"] != "Casino" {
				t.Errorf("player %d: expected Casino, got %v", int(p), o.Data["location"])
			}
			if o.Data["role"] == RoleSpy {
				t.Errorf("player %d dealt the spy role", int(p))
			}
		}
	}
}

// TestSpyVoluntaryGuessWins runs the fixed scenario: the spy uses the
// one-shot guess with the correct location before any accusation.
func TestSpyVoluntaryGuessWins(t *testing.T) {
	e := newTest(t, Config{Players: 4, Seed: 2, Spy: intPtr(1), LocationIdx: intPtr(0)})

	routeToSpy(t, e)
	act(e, 1, "guess", map[string]any{"location": "Airplane"})

	if !e.Terminal() || e.Winner() != WinnerSpy {
		t.Fatalf("expected spy win, got terminal=%v winner=%q", e.Terminal(), e.Winner())
	}
	if e.WinReason() != "Spy guessed location correctly" {
		t.Errorf("unexpected win reason %q", e.WinReason())
	}
	stats := e.PlayerStats()
	if stats[1].Score != 2 {
		t.Errorf("spy score: expected 2, got %v", stats[1].Score)
	}
	for p, s := range stats {
		if p != 1 && s.Score != 0 {
			t.Errorf("player %d score: expected 0, got %v", int(p), s.Score)
		}
	}
}

func TestNoAskBack(t *testing.T) {
	e := newTest(t, Config{Players: 4, Seed: 3, Spy: intPtr(3), LocationIdx: intPtr(1)})

	first := e.asker
	target := (first + 1) % 4
	act(e, first, "question", map[string]any{"target": int(target), "question": "Do you work here?"})
	act(e, target, "answer", map[string]any{"answer": "Sometimes."})

	if e.asker != target || e.noAskBack != first {
		t.Fatalf("turn handoff wrong: asker=%d noAskBack=%d", int(e.asker), int(e.noAskBack))
	}
	act(e, target, "question", map[string]any{"target": int(first), "question": "And you?"})
	if e.answerer != noPlayer {
		t.Fatal("ask-back question was accepted")
	}
	if _, ok := e.log.LastOfKind(game.EventError); !ok {
		t.Fatal("ask-back rejection missing an error event")
	}
}

func TestAccusationOutcomes(t *testing.T) {
	t.Run("unanimous on spy", func(t *testing.T) {
		e := newTest(t, Config{Players: 4, Seed: 4, Spy: intPtr(3), LocationIdx: intPtr(2)})
		accuser := e.asker
		if accuser == 3 {
			// Hand the turn to a non-spy first.
			act(e, 3, "question", map[string]any{"target": 0, "question": "Why are you nervous?"})
			act(e, 0, "answer", map[string]any{"answer": "I am not."})
			accuser = 0
		}
		act(e, accuser, "accuse", map[string]any{"target": 3})
		if e.phase != PhaseAccusationVote {
			t.Fatalf("expected accusation vote, got %s", e.phase)
		}
		actions := make(map[game.PlayerID]game.Action)
		for p := game.PlayerID(0); p < 4; p++ {
			if p != 3 && p != accuser {
				actions[p] = game.Action{Player: p, Kind: "vote", Data: map[string]any{"vote": "yes"}}
			}
		}
		e.Step(actions)
		if !e.Terminal() || e.Winner() != WinnerNonSpy {
			t.Fatalf("expected non-spy win, got %q (%q)", e.Winner(), e.WinReason())
		}
		for p, s := range e.PlayerStats() {
			want := 1.0
			if p == 3 {
				want = 0
			}
			if s.Score != want {
				t.Errorf("player %d score: expected %v, got %v", int(p), want, s.Score)
			}
		}
	})

	t.Run("split vote returns to play", func(t *testing.T) {
		e := newTest(t, Config{Players: 4, Seed: 5, Spy: intPtr(3), LocationIdx: intPtr(2)})
		accuser := e.asker
		if accuser == 3 {
			act(e, 3, "question", map[string]any{"target": 0, "question": "Why are you nervous?"})
			act(e, 0, "answer", map[string]any{"answer": "I am not."})
			accuser = 0
		}
		act(e, accuser, "accuse", map[string]any{"target": 3})
		for p := game.PlayerID(0); p < 4; p++ {
			if p != 3 && p != accuser {
				act(e, p, "vote", map[string]any{"vote": "no"})
			}
		}
		if e.Terminal() || e.phase != PhaseQandA {
			t.Fatalf("failed accusation should resume Q&A, got phase=%s terminal=%v", e.phase, e.Terminal())
		}
		// The accusation one-shot is spent.
		act(e, accuser, "accuse", map[string]any{"target": 2})
		if e.phase != PhaseQandA {
			t.Fatal("second accusation by the same player was accepted")
		}
	})
}

func TestGuessBlockedAfterAccusation(t *testing.T) {
	e := newTest(t, Config{Players: 4, Seed: 6, Spy: intPtr(1), LocationIdx: intPtr(0)})

	// Burn an accusation first.
	accuser := e.asker
	if accuser == 1 {
		act(e, 1, "question", map[string]any{"target": 0, "question": "What do you smell?"})
		act(e, 0, "answer", map[string]any{"answer": "Fuel."})
		accuser = 0
	}
	act(e, accuser, "accuse", map[string]any{"target": 2})
	for p := game.PlayerID(0); p < 4; p++ {
		if p != 2 && p != accuser {
			act(e, p, "vote", map[string]any{"vote": "no"})
		}
	}

	routeToSpy(t, e)
	act(e, 1, "guess", map[string]any{"location": "Airplane"})
	if e.Terminal() {
		t.Fatal("voluntary guess after an accusation must be rejected")
	}
}

func TestFinalVoteConvictsSpy(t *testing.T) {
	e := newTest(t, Config{Players: 4, Seed: 7, Spy: intPtr(2), LocationIdx: intPtr(4), MaxExchanges: 1})

	asker := e.asker
	target := (asker + 1) % 4
	act(e, asker, "question", map[string]any{"target": int(target), "question": "Busy day?"})
	act(e, target, "answer", map[string]any{"answer": "Always."})

	if e.phase != PhaseFinalNomination {
		t.Fatalf("exhausted budget should open the final vote, got %s", e.phase)
	}
	nominator := e.nominator
	if nominator == 2 {
		act(e, nominator, "pass", nil)
		nominator = e.nominator
	}
	act(e, nominator, "nominate", map[string]any{"target": 2})
	for p := game.PlayerID(0); p < 4; p++ {
		if p != 2 {
			act(e, p, "vote", map[string]any{"vote": "yes"})
		}
	}

	if e.phase != PhaseSpyGuess {
		t.Fatalf("convicted spy should get a final guess, got %s", e.phase)
	}
	act(e, 2, "guess", map[string]any{"location": "Bank"})
	if !e.Terminal() || e.Winner() != WinnerNonSpy {
		t.Fatalf("wrong guess after conviction should lose, got %q (%q)", e.Winner(), e.WinReason())
	}
}

func TestFinalVoteWrongConviction(t *testing.T) {
	e := newTest(t, Config{Players: 4, Seed: 8, Spy: intPtr(3), LocationIdx: intPtr(5), MaxExchanges: 1})

	asker := e.asker
	target := (asker + 1) % 4
	act(e, asker, "question", map[string]any{"target": int(target), "question": "Busy day?"})
	act(e, target, "answer", map[string]any{"answer": "Always."})

	nominator := e.nominator
	suspect := game.PlayerID(0)
	if suspect == nominator {
		suspect = 1
	}
	act(e, nominator, "nominate", map[string]any{"target": int(suspect)})
	for p := game.PlayerID(0); p < 4; p++ {
		if p != suspect {
			act(e, p, "vote", map[string]any{"vote": "yes"})
		}
	}

	if !e.Terminal() || e.Winner() != WinnerSpy {
		t.Fatalf("convicting a non-spy should hand the spy the win, got %q (%q)", e.Winner(), e.WinReason())
	}
	if e.PlayerStats()[3].Score != 1 {
		t.Errorf("surviving spy score: expected 1, got %v", e.PlayerStats()[3].Score)
	}
}

func TestNoopSelfPlayTerminates(t *testing.T) {
	for _, players := range []int{3, 5, 8} {
		e, err := New(Config{Players: players, Seed: 42, MatchID: "noop"})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		e.Reset()

		steps := 0
		for !e.Terminal() && steps < 2000 {
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
		if e.Winner() != WinnerSpy || e.WinReason() != "Spy remained unidentified" {
			t.Errorf("%d players: noop self-play should time out unidentified, got %q (%q)",
				players, e.Winner(), e.WinReason())
		}
		t.Logf("players=%d steps=%d", players, steps)
	}
}
