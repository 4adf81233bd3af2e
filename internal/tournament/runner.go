package tournament

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/EternisAI/strategy-bench/internal/agent"
	"github.com/EternisAI/strategy-bench/internal/driver"
	"github.com/EternisAI/strategy-bench/internal/metrics"
	"github.com/EternisAI/strategy-bench/internal/store/postgres"
	"github.com/EternisAI/strategy-bench/internal/store/redis"
	"github.com/EternisAI/strategy-bench/pkg/game"
)

// progressSnapshotInterval paces the running/waiting status lines in the
// progress log.
const progressSnapshotInterval = 15 * time.Second

// AgentFactory builds the agent for one seat of one match. agentRef is the
// schedule's per-seat agent name; empty means the default.
type AgentFactory func(gameName, agentRef string, seat int, matchSeed int64) agent.Agent

// Option configures a Runner.
type Option func(*Runner)

// WithResultRepo persists finished results to Postgres.
func WithResultRepo(repo *postgres.ResultRepo) Option {
	return func(r *Runner) { r.repo = repo }
}

// WithProgressStore tracks live progress in Redis, enabling resume.
func WithProgressStore(c *redis.Client) Option {
	return func(r *Runner) { r.progress = c }
}

// WithAgentFactory replaces the default random baseline agents.
func WithAgentFactory(f AgentFactory) Option {
	return func(r *Runner) { r.agents = f }
}

// Runner executes a schedule. Postgres and Redis are optional; a bare
// runner writes everything to the output directory only.
type Runner struct {
	sched    *Schedule
	repo     *postgres.ResultRepo
	progress *redis.Client
	agents   AgentFactory
}

// NewRunner builds a runner for a validated schedule.
func NewRunner(sched *Schedule, opts ...Option) *Runner {
	r := &Runner{
		sched: sched,
		agents: func(gameName, agentRef string, seat int, matchSeed int64) agent.Agent {
			name := agentRef
			if name == "" {
				name = "random"
			}
			return agent.NewRandomAgent(
				fmt.Sprintf("%s-%d", name, seat),
				matchSeed*31+int64(seat)+1,
			)
		},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Summary aggregates one tournament run. Config snapshots the schedule the
// run was played from, so the result file is self-describing.
type Summary struct {
	TournamentID    string         `json:"tournament_id"`
	Config          *Schedule      `json:"config"`
	StartTime       time.Time      `json:"start_time"`
	EndTime         time.Time      `json:"end_time"`
	Matches         int            `json:"matches"`
	FailedMatches   int            `json:"failed_matches"`
	Skipped         int            `json:"skipped"`
	Outcomes        map[string]int `json:"outcomes"`
	Wins            map[string]int `json:"wins"`
	DurationSeconds float64        `json:"duration_seconds"`
	Results         []game.Result  `json:"results"`
}

// matchEntry is one expanded match from the schedule.
type matchEntry struct {
	spec    MatchSpec
	matchID string
	seed    int64
}

// Run plays every scheduled match, honoring the concurrency cap, and
// writes tournament_result.json plus per-match event logs to the output
// directory. Matches already recorded in the progress store are skipped.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	sched := r.sched
	id := sched.TournamentID
	if id == "" {
		id = uuid.NewString()
	}
	outDir := sched.OutputDir
	if outDir == "" {
		outDir = filepath.Join("runs", id)
	}
	eventsDir := filepath.Join(outDir, "events")
	if err := os.MkdirAll(eventsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	progressLog, err := os.OpenFile(filepath.Join(outDir, "progress.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open progress log: %w", err)
	}
	defer progressLog.Close()

	if sched.MetricsAddr != "" {
		srv := metrics.Serve(sched.MetricsAddr)
		defer srv.Close()
	}
	if r.progress != nil {
		r.progress.SetStatus(ctx, id, "running")
	}

	entries := expand(sched)
	start := time.Now()
	log.Info().Str("tournamentId", id).Int("matches", len(entries)).
		Int("concurrency", concurrency(sched)).Msg("Tournament starting")

	summary := &Summary{
		TournamentID: id,
		Config:       sched,
		StartTime:    start.UTC(),
		Outcomes:     make(map[string]int),
		Wins:         make(map[string]int),
	}
	var (
		mu      sync.Mutex
		running int
	)
	// logLine requires mu held.
	logLine := func(format string, args ...any) {
		fmt.Fprintf(progressLog, time.Now().UTC().Format(time.RFC3339)+" "+format+"\n", args...)
	}

	snapshotDone := make(chan struct{})
	go func() {
		tick := time.NewTicker(progressSnapshotInterval)
		defer tick.Stop()
		for {
			select {
			case <-snapshotDone:
				return
			case <-tick.C:
				mu.Lock()
				finished := summary.Matches + summary.FailedMatches + summary.Skipped
				logLine("status running=%d waiting=%d finished=%d",
					running, len(entries)-finished-running, finished)
				mu.Unlock()
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency(sched))
	for _, e := range entries {
		e := e
		g.Go(func() error {
			if r.progress != nil {
				if done, err := r.progress.IsDone(gctx, id, e.matchID); err == nil && done {
					mu.Lock()
					summary.Skipped++
					mu.Unlock()
					return nil
				}
			}

			mu.Lock()
			running++
			logLine("%s %s started", e.matchID, e.spec.Game)
			mu.Unlock()

			res, err := r.runMatch(gctx, id, e, eventsDir)
			if err != nil {
				// Cancellation aborts the whole run; anything else only
				// loses this match.
				mu.Lock()
				running--
				summary.FailedMatches++
				logLine("%s %s failed err=%q", e.matchID, e.spec.Game, err)
				mu.Unlock()
				if gctx.Err() != nil {
					return err
				}
				log.Error().Err(err).Str("matchId", e.matchID).Str("game", e.spec.Game).Msg("Match failed")
				return nil
			}

			mu.Lock()
			running--
			summary.Matches++
			summary.Outcomes[res.Outcome]++
			if res.Winner != "" {
				summary.Wins[res.Winner]++
			}
			summary.Results = append(summary.Results, *res)
			logLine("%s %s completed outcome=%s winner=%q", e.matchID, e.spec.Game, res.Outcome, res.Winner)
			mu.Unlock()
			return nil
		})
	}
	runErr := g.Wait()
	close(snapshotDone)

	summary.EndTime = time.Now().UTC()
	summary.DurationSeconds = time.Since(start).Seconds()
	if werr := writeSummary(outDir, summary); werr != nil && runErr == nil {
		runErr = werr
	}
	if r.progress != nil {
		status := "finished"
		if runErr != nil {
			status = "failed"
		}
		r.progress.SetStatus(context.WithoutCancel(ctx), id, status)
	}
	log.Info().Str("tournamentId", id).Int("matches", summary.Matches).
		Float64("seconds", summary.DurationSeconds).Msg("Tournament finished")
	return summary, runErr
}

// runMatch plays one match with a JSONL event sink attached.
func (r *Runner) runMatch(ctx context.Context, tournamentID string, e matchEntry, eventsDir string) (*game.Result, error) {
	eng, err := NewEngine(e.spec.Game, e.spec.Players, e.seed, e.matchID, e.spec.Roles)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}

	sink, err := os.Create(filepath.Join(eventsDir, e.matchID+".jsonl"))
	if err != nil {
		return nil, fmt.Errorf("create event sink: %w", err)
	}
	defer sink.Close()
	enc := json.NewEncoder(sink)
	eng.Events().SetSink(func(ev game.Event) { enc.Encode(ev) })

	agents := make(map[game.PlayerID]agent.Agent, e.spec.Players)
	for i := 0; i < e.spec.Players; i++ {
		ref := ""
		if i < len(e.spec.Agents) {
			ref = e.spec.Agents[i]
		}
		agents[game.PlayerID(i)] = r.agents(e.spec.Game, ref, i, e.seed)
	}
	defer func() {
		for _, a := range agents {
			a.Close()
		}
	}()

	metrics.MatchesStarted.WithLabelValues(e.spec.Game).Inc()
	res, err := driver.Run(ctx, eng, agents, driver.Config{
		MaxSteps:   e.spec.MaxSteps,
		ActTimeout: e.spec.ActTimeout,
	})
	if err != nil {
		return nil, err
	}
	res.Game = e.spec.Game
	metrics.MatchesFinished.WithLabelValues(e.spec.Game, res.Outcome).Inc()
	metrics.MatchDuration.WithLabelValues(e.spec.Game).Observe(res.DurationSeconds)
	metrics.MatchSteps.WithLabelValues(e.spec.Game).Observe(float64(res.Steps))

	if r.repo != nil {
		if err := r.repo.Save(ctx, tournamentID, res); err != nil {
			log.Warn().Err(err).Str("matchId", e.matchID).Msg("Result not persisted")
		}
	}
	if r.progress != nil {
		r.progress.MarkDone(ctx, tournamentID, e.matchID)
		if res.Winner != "" {
			r.progress.IncrWins(ctx, tournamentID, res.Winner)
		}
	}
	return res, nil
}

// expand turns the schedule's specs into concrete match entries. A named
// tournament gets deterministic match IDs so an interrupted run can resume
// past finished matches; anonymous runs draw UUIDs.
func expand(s *Schedule) []matchEntry {
	var out []matchEntry
	for si, spec := range s.Matches {
		count := spec.Count
		if count == 0 {
			count = 1
		}
		for i := 0; i < count; i++ {
			seed := spec.Seed
			if seed != 0 {
				seed += int64(i)
			}
			matchID := fmt.Sprintf("%s-%s", spec.Game, uuid.NewString())
			if s.TournamentID != "" {
				matchID = fmt.Sprintf("%s-%s-%d-%d", s.TournamentID, spec.Game, si, i)
			}
			out = append(out, matchEntry{spec: spec, matchID: matchID, seed: seed})
		}
	}
	return out
}

func concurrency(s *Schedule) int {
	if s.Concurrency <= 0 {
		return 1
	}
	return s.Concurrency
}

func writeSummary(outDir string, s *Summary) error {
	buf, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	path := filepath.Join(outDir, "tournament_result.json")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
