package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key patterns for tournament progress.
func doneKey(id string) string   { return "tournament:" + id + ":done" }
func statusKey(id string) string { return "tournament:" + id + ":status" }
func winsKey(id string) string   { return "tournament:" + id + ":wins" }

// progressTTL bounds how long finished-tournament keys linger.
const progressTTL = 7 * 24 * time.Hour

// MarkDone adds a finished match to the tournament's completion set.
func (c *Client) MarkDone(ctx context.Context, tournamentID, matchID string) error {
	key := doneKey(tournamentID)
	pipe := c.rdb.TxPipeline()
	pipe.SAdd(ctx, key, matchID)
	pipe.Expire(ctx, key, progressTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// DoneCount returns how many matches have finished.
func (c *Client) DoneCount(ctx context.Context, tournamentID string) (int64, error) {
	return c.rdb.SCard(ctx, doneKey(tournamentID)).Result()
}

// Done returns the finished match IDs, for resuming a partial run.
func (c *Client) Done(ctx context.Context, tournamentID string) ([]string, error) {
	return c.rdb.SMembers(ctx, doneKey(tournamentID)).Result()
}

// IsDone reports whether one match already finished in an earlier run.
func (c *Client) IsDone(ctx context.Context, tournamentID, matchID string) (bool, error) {
	return c.rdb.SIsMember(ctx, doneKey(tournamentID), matchID).Result()
}

// SetStatus records the tournament's coarse state ("running", "finished",
// "failed").
func (c *Client) SetStatus(ctx context.Context, tournamentID, status string) error {
	return c.rdb.Set(ctx, statusKey(tournamentID), status, progressTTL).Err()
}

// Status returns the tournament's coarse state, or "" when unknown.
func (c *Client) Status(ctx context.Context, tournamentID string) (string, error) {
	s, err := c.rdb.Get(ctx, statusKey(tournamentID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get status: %w", err)
	}
	return s, nil
}

// IncrWins bumps the live win counter for a winning side or agent.
func (c *Client) IncrWins(ctx context.Context, tournamentID, winner string) error {
	key := winsKey(tournamentID)
	pipe := c.rdb.TxPipeline()
	pipe.HIncrBy(ctx, key, winner, 1)
	pipe.Expire(ctx, key, progressTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Wins returns the live win counters.
func (c *Client) Wins(ctx context.Context, tournamentID string) (map[string]int64, error) {
	raw, err := c.rdb.HGetAll(ctx, winsKey(tournamentID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get wins: %w", err)
	}
	out := make(map[string]int64, len(raw))
	for k, v := range raw {
		var n int64
		fmt.Sscanf(v, "%d", &n)
		out[k] = n
	}
	return out, nil
}
