package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/EternisAI/strategy-bench/pkg/game"
)

// ResultRepo handles match result database operations.
type ResultRepo struct {
	db *sql.DB
}

// NewResultRepo creates a ResultRepo.
func NewResultRepo(db *sql.DB) *ResultRepo {
	return &ResultRepo{db: db}
}

// EnsureSchema creates the results table if it does not exist. Tournaments
// call this once at startup so fresh databases work out of the box.
func (r *ResultRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS match_results (
			match_id         TEXT PRIMARY KEY,
			tournament_id    TEXT NOT NULL,
			game             TEXT NOT NULL,
			outcome          TEXT NOT NULL,
			winner           TEXT NOT NULL DEFAULT '',
			win_reason       TEXT NOT NULL DEFAULT '',
			rounds           INT NOT NULL DEFAULT 0,
			steps            INT NOT NULL DEFAULT 0,
			duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
			player_stats     JSONB,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS match_results_tournament_idx
			ON match_results (tournament_id);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Save inserts a finished match result. Re-saving the same match ID
// overwrites the previous row, which makes tournament retries idempotent.
func (r *ResultRepo) Save(ctx context.Context, tournamentID string, res *game.Result) error {
	stats, err := json.Marshal(res.PerPlayerStats)
	if err != nil {
		return fmt.Errorf("marshal player stats: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO match_results
			(match_id, tournament_id, game, outcome, winner, win_reason, rounds, steps, duration_seconds, player_stats)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (match_id) DO UPDATE SET
			outcome = EXCLUDED.outcome, winner = EXCLUDED.winner,
			win_reason = EXCLUDED.win_reason, rounds = EXCLUDED.rounds,
			steps = EXCLUDED.steps, duration_seconds = EXCLUDED.duration_seconds,
			player_stats = EXCLUDED.player_stats`,
		res.MatchID, tournamentID, res.Game, res.Outcome, res.Winner, res.WinReason,
		res.Rounds, res.Steps, res.DurationSeconds, stats,
	)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

// FindByMatchID returns one result, or nil when the match is unknown.
func (r *ResultRepo) FindByMatchID(ctx context.Context, matchID string) (*game.Result, error) {
	var res game.Result
	var stats []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT match_id, game, outcome, winner, win_reason, rounds, steps, duration_seconds, player_stats
		 FROM match_results WHERE match_id = $1`, matchID,
	).Scan(&res.MatchID, &res.Game, &res.Outcome, &res.Winner, &res.WinReason,
		&res.Rounds, &res.Steps, &res.DurationSeconds, &stats)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find result: %w", err)
	}
	if len(stats) > 0 {
		if err := json.Unmarshal(stats, &res.PerPlayerStats); err != nil {
			return nil, fmt.Errorf("unmarshal player stats: %w", err)
		}
	}
	return &res, nil
}

// ListByTournament returns every stored result for a tournament, oldest
// first.
func (r *ResultRepo) ListByTournament(ctx context.Context, tournamentID string) ([]game.Result, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT match_id, game, outcome, winner, win_reason, rounds, steps, duration_seconds, player_stats
		 FROM match_results WHERE tournament_id = $1 ORDER BY created_at`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []game.Result
	for rows.Next() {
		var res game.Result
		var stats []byte
		if err := rows.Scan(&res.MatchID, &res.Game, &res.Outcome, &res.Winner, &res.WinReason,
			&res.Rounds, &res.Steps, &res.DurationSeconds, &stats); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if len(stats) > 0 {
			if err := json.Unmarshal(stats, &res.PerPlayerStats); err != nil {
				return nil, fmt.Errorf("unmarshal player stats: %w", err)
			}
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// WinCounts aggregates winners across a tournament's finished matches.
func (r *ResultRepo) WinCounts(ctx context.Context, tournamentID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT winner, COUNT(*) FROM match_results
		 WHERE tournament_id = $1 AND winner <> ''
		 GROUP BY winner`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("win counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var winner string
		var n int
		if err := rows.Scan(&winner, &n); err != nil {
			return nil, fmt.Errorf("scan win count: %w", err)
		}
		out[winner] = n
	}
	return out, rows.Err()
}
