// Package agent defines the player-side contract of the benchmark and the
// built-in baseline agents. An agent receives observations and produces
// actions; everything about transport, timeouts, and fallbacks is the
// driver's business.
package agent

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/EternisAI/strategy-bench/pkg/game"
)

// Agent is one player in a match. Act is called only when the player's
// observation demands a decision; Notify delivers passive observations so
// stateful agents can track the game between turns.
type Agent interface {
	Name() string
	Act(ctx context.Context, obs game.Observation) (game.Action, error)
	Notify(ctx context.Context, obs game.Observation)
	Close() error
}

// RandomAgent picks uniformly from the observation's option list, or noops
// when the engine offers no finite choice. It is the floor every evaluated
// agent should beat.
type RandomAgent struct {
	name string
	rng  *rand.Rand
}

// NewRandomAgent seeds a random baseline. Distinct players should get
// distinct seeds or they will mirror each other's choices.
func NewRandomAgent(name string, seed int64) *RandomAgent {
	return &RandomAgent{name: name, rng: game.NewRNG(seed)}
}

func (a *RandomAgent) Name() string { return a.name }

func (a *RandomAgent) Act(_ context.Context, obs game.Observation) (game.Action, error) {
	kind, _ := obs.Data["action_kind"].(string)
	if kind == "" {
		return game.Noop(obs.Player), nil
	}
	opts := optionList(obs.Data["options"])
	if len(opts) == 0 {
		return game.Noop(obs.Player), nil
	}

	field, _ := obs.Data["option_field"].(string)
	if field == "" {
		field = "target"
	}
	count := 1
	if c, ok := asInt(obs.Data["option_count"]); ok && c > 0 {
		count = c
	}

	data := map[string]any{}
	if count == 1 {
		data[field] = pickValue(opts[a.rng.Intn(len(opts))])
	} else {
		if count > len(opts) {
			count = len(opts)
		}
		perm := a.rng.Perm(len(opts))
		vals := make([]any, count)
		for i := 0; i < count; i++ {
			vals[i] = pickValue(opts[perm[i]])
		}
		data[field] = vals
	}
	return game.Action{Player: obs.Player, Kind: kind, Data: data}, nil
}

func (a *RandomAgent) Notify(context.Context, game.Observation) {}
func (a *RandomAgent) Close() error                             { return nil }

// optionList normalizes the observation's options field, which engines emit
// as []string, []int, or []any depending on the choice.
func optionList(v any) []any {
	switch opts := v.(type) {
	case []any:
		return opts
	case []string:
		out := make([]any, len(opts))
		for i, s := range opts {
			out[i] = s
		}
		return out
	case []int:
		out := make([]any, len(opts))
		for i, n := range opts {
			out[i] = n
		}
		return out
	}
	return nil
}

// pickValue converts a chosen option into a payload value, preferring ints
// for numeric strings so player-target options round-trip as numbers.
func pickValue(v any) any {
	if s, ok := v.(string); ok {
		var n int
		if _, err := fmt.Sscanf(s, "%d", &n); err == nil && fmt.Sprintf("%d", n) == s {
			return n
		}
	}
	return v
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

// ScriptedAgent replays a fixed action sequence, then noops. Tests use it
// to pin exact game trajectories.
type ScriptedAgent struct {
	name    string
	actions []game.Action
	next    int
}

func NewScriptedAgent(name string, actions ...game.Action) *ScriptedAgent {
	return &ScriptedAgent{name: name, actions: actions}
}

func (a *ScriptedAgent) Name() string { return a.name }

func (a *ScriptedAgent) Act(_ context.Context, obs game.Observation) (game.Action, error) {
	if a.next >= len(a.actions) {
		return game.Noop(obs.Player), nil
	}
	act := a.actions[a.next]
	a.next++
	act.Player = obs.Player
	return act, nil
}

func (a *ScriptedAgent) Notify(context.Context, game.Observation) {}
func (a *ScriptedAgent) Close() error                             { return nil }

// FuncAgent adapts a plain function, for tests and quick experiments.
type FuncAgent struct {
	name string
	fn   func(ctx context.Context, obs game.Observation) (game.Action, error)
}

func NewFuncAgent(name string, fn func(ctx context.Context, obs game.Observation) (game.Action, error)) *FuncAgent {
	return &FuncAgent{name: name, fn: fn}
}

func (a *FuncAgent) Name() string { return a.name }

func (a *FuncAgent) Act(ctx context.Context, obs game.Observation) (game.Action, error) {
	return a.fn(ctx, obs)
}

func (a *FuncAgent) Notify(context.Context, game.Observation) {}
func (a *FuncAgent) Close() error                             { return nil }
