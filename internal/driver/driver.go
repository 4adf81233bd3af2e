// Package driver runs a single match: it shuttles observations to agents,
// collects their actions under a per-call deadline, and steps the engine
// until the game ends or a safety bound trips.
package driver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/EternisAI/strategy-bench/internal/agent"
	"github.com/EternisAI/strategy-bench/internal/metrics"
	"github.com/EternisAI/strategy-bench/pkg/game"
)

// Config bounds one match run.
type Config struct {
	// MaxSteps caps Step calls before the engine is force-terminated.
	MaxSteps int
	// ActTimeout is the per-agent-call deadline. An agent that misses it
	// plays the engine fallback for that step.
	ActTimeout time.Duration
	// NotifyObservers forwards passive observations to non-actors after
	// every step. Stateful agents need it; baselines do not.
	NotifyObservers bool
}

const (
	defaultMaxSteps   = 2000
	defaultActTimeout = 30 * time.Second
)

// Run plays one match to completion. The agents map must cover every seat
// the engine reports. Agent failures never abort the match; the failing
// player plays the engine fallback and the failure lands in the event log.
func Run(ctx context.Context, eng game.Engine, agents map[game.PlayerID]agent.Agent, cfg Config) (*game.Result, error) {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = defaultMaxSteps
	}
	if cfg.ActTimeout <= 0 {
		cfg.ActTimeout = defaultActTimeout
	}
	for i := 0; i < eng.NumPlayers(); i++ {
		if agents[game.PlayerID(i)] == nil {
			return nil, fmt.Errorf("driver: no agent for player %d", i)
		}
	}

	start := time.Now()
	obs := eng.Reset()
	steps := 0

	for !eng.Terminal() {
		if err := ctx.Err(); err != nil {
			eng.ForceTerminate()
			return buildResult(eng, game.OutcomeCancelled, steps, start), err
		}
		if steps >= cfg.MaxSteps {
			log.Warn().Str("matchId", eng.Events().MatchID()).Int("steps", steps).Msg("Step cap reached, force-terminating")
			eng.ForceTerminate()
			return buildResult(eng, game.OutcomeTimeout, steps, start), nil
		}

		actors := game.Actors(obs)
		actions := collectActions(ctx, eng, agents, obs, actors, cfg.ActTimeout)
		res := eng.Step(actions)
		obs = res.Observations
		steps++

		if cfg.NotifyObservers {
			notifyObservers(ctx, agents, obs)
		}
	}

	outcome := game.OutcomeDraw
	if eng.Winner() != "" {
		outcome = game.OutcomeWin
	}
	return buildResult(eng, outcome, steps, start), nil
}

// collectActions queries every actor in parallel. A failed or timed-out
// agent contributes a noop, which engines translate into their phase
// fallback.
func collectActions(
	ctx context.Context,
	eng game.Engine,
	agents map[game.PlayerID]agent.Agent,
	obs map[game.PlayerID]game.Observation,
	actors []game.PlayerID,
	timeout time.Duration,
) map[game.PlayerID]game.Action {
	actions := make(map[game.PlayerID]game.Action, len(actors))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range actors {
		p := p
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()

			act, err := agents[p].Act(callCtx, obs[p])
			if err != nil {
				fail := &game.AgentFailure{Player: p, Err: err}
				log.Warn().Err(fail).Str("agent", agents[p].Name()).Msg("Agent call failed, playing fallback")
				eng.Events().Error(p, game.CodeAgentFailed, fail.Error())
				metrics.AgentFailures.WithLabelValues(agents[p].Name()).Inc()
				act = game.Noop(p)
			}
			act.Player = p

			mu.Lock()
			actions[p] = act
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return actions
}

func notifyObservers(ctx context.Context, agents map[game.PlayerID]agent.Agent, obs map[game.PlayerID]game.Observation) {
	for p, o := range obs {
		if o.IsActor() {
			continue
		}
		agents[p].Notify(ctx, o)
	}
}

// buildResult freezes the engine outcome into a match record. Engines that
// expose PlayerStats contribute per-seat stats.
func buildResult(eng game.Engine, outcome string, steps int, start time.Time) *game.Result {
	res := &game.Result{
		MatchID:         eng.Events().MatchID(),
		Outcome:         outcome,
		Winner:          eng.Winner(),
		WinReason:       eng.WinReason(),
		Rounds:          eng.Events().Round(),
		Steps:           steps,
		DurationSeconds: time.Since(start).Seconds(),
	}
	if s, ok := eng.(interface {
		PlayerStats() map[game.PlayerID]game.PlayerStats
	}); ok {
		res.PerPlayerStats = s.PlayerStats()
	}
	return res
}
