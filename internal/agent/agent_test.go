package agent

import (
	"context"
	"testing"

	"github.com/EternisAI/strategy-bench/pkg/game"
)

func actObs(opts any, field string, count int) game.Observation {
	extra := map[string]any{"options": opts}
	if field != "" {
		extra["option_field"] = field
	}
	if count > 0 {
		extra["option_count"] = count
	}
	return game.ActObs(2, game.ObsPrivate, "Test", "pick", "vote", extra)
}

func TestRandomAgentPicksFromOptions(t *testing.T) {
	a := NewRandomAgent("rand", 1)
	obs := actObs([]string{"3", "4", "skip"}, "vote", 0)

	seen := map[any]bool{}
	for i := 0; i < 50; i++ {
		act, err := a.Act(context.Background(), obs)
		if err != nil {
			t.Fatalf("Act: %v", err)
		}
		if act.Kind != "vote" || act.Player != 2 {
			t.Fatalf("unexpected action %+v", act)
		}
		seen[act.Data["vote"]] = true
	}
	// Numeric strings come back as ints so engines can read them as
	// player targets.
	for _, want := range []any{3, 4, "skip"} {
		if !seen[want] {
			t.Errorf("option %v never picked in 50 draws", want)
		}
	}
}

func TestRandomAgentMultiPick(t *testing.T) {
	a := NewRandomAgent("rand", 2)
	obs := actObs([]string{"apples", "cheese", "bread"}, "goods", 2)

	act, err := a.Act(context.Background(), obs)
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	vals, ok := act.Data["goods"].([]any)
	if !ok || len(vals) != 2 {
		t.Fatalf("expected 2 picked goods, got %v", act.Data["goods"])
	}
	if vals[0] == vals[1] {
		t.Error("multi-pick must draw distinct options")
	}
}

func TestRandomAgentNoopsWithoutOptions(t *testing.T) {
	a := NewRandomAgent("rand", 3)
	obs := game.ActObs(0, game.ObsPrivate, "Test", "free text", "statement", nil)

	act, err := a.Act(context.Background(), obs)
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if act.Kind != game.NoopKind {
		t.Errorf("expected noop without options, got %s", act.Kind)
	}
}

func TestScriptedAgentReplaysThenNoops(t *testing.T) {
	a := NewScriptedAgent("script",
		game.Action{Kind: "vote", Data: map[string]any{"target": 1}},
		game.Action{Kind: "vote", Data: map[string]any{"target": 2}},
	)
	obs := game.ActObs(4, game.ObsPublic, "Test", "vote", "vote", nil)

	first, _ := a.Act(context.Background(), obs)
	if first.Kind != "vote" || first.Player != 4 {
		t.Errorf("scripted action should adopt the seat, got %+v", first)
	}
	second, _ := a.Act(context.Background(), obs)
	if got, _ := second.Int("target"); got != 2 {
		t.Errorf("expected second scripted target 2, got %d", got)
	}
	third, _ := a.Act(context.Background(), obs)
	if third.Kind != game.NoopKind {
		t.Errorf("exhausted script should noop, got %s", third.Kind)
	}
}
