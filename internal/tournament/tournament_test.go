package tournament

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/EternisAI/strategy-bench/internal/agent"
	"github.com/EternisAI/strategy-bench/pkg/game"
)

func TestRegistryCoversAllGames(t *testing.T) {
	want := []string{"among_us", "avalon", "secret_hitler", "sheriff", "spyfall", "werewolf"}
	got := Games()
	if len(got) != len(want) {
		t.Fatalf("expected %d registered games, got %v", len(want), got)
	}
	for i, name := range want {
		if got[i] != name {
			t.Errorf("game %d: expected %s, got %s", i, name, got[i])
		}
	}

	eng, err := NewEngine("werewolf", 5, 1, "m1", nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if eng.NumPlayers() != 5 {
		t.Errorf("expected 5 players, got %d", eng.NumPlayers())
	}
	if _, err := NewEngine("chess", 2, 1, "m2", nil); err == nil {
		t.Error("unknown game should fail")
	}

	if min, max, ok := PlayerRange("secret_hitler"); !ok || min != 5 || max != 10 {
		t.Errorf("PlayerRange(secret_hitler) = %d..%d, %v", min, max, ok)
	}
	if _, _, ok := PlayerRange("chess"); ok {
		t.Error("unknown game should have no player range")
	}
}

func TestNewEngineFixedRoles(t *testing.T) {
	roles := []string{"werewolf", "seer", "doctor", "villager", "villager"}
	eng, err := NewEngine("werewolf", 5, 1, "roles", roles)
	if err != nil {
		t.Fatalf("NewEngine with roles: %v", err)
	}
	obs := eng.Reset()
	if got := obs[0].Data["role"]; got != "werewolf" {
		t.Errorf("seat 0 should be the werewolf, got %v", got)
	}
	if got := obs[1].Data["role"]; got != "seer" {
		t.Errorf("seat 1 should be the seer, got %v", got)
	}

	if _, err := NewEngine("spyfall", 4, 1, "two-spies", []string{"spy", "spy", "", ""}); err == nil {
		t.Error("two spy seats should fail")
	}
	if _, err := NewEngine("sheriff", 3, 1, "fixed-sheriff", []string{"sheriff", "", ""}); err == nil {
		t.Error("sheriff role assignment should fail")
	}
}

func TestScheduleValidation(t *testing.T) {
	cases := []struct {
		name string
		s    Schedule
		ok   bool
	}{
		{"valid", Schedule{Matches: []MatchSpec{{Game: "spyfall", Players: 4, Count: 2}}}, true},
		{"empty", Schedule{}, false},
		{"unknown game", Schedule{Matches: []MatchSpec{{Game: "chess", Players: 2}}}, false},
		{"zero players", Schedule{Matches: []MatchSpec{{Game: "spyfall"}}}, false},
		{"agents cover seats", Schedule{Matches: []MatchSpec{{Game: "spyfall", Players: 4, Agents: []string{"a", "b", "c", "d"}}}}, true},
		{"agents mismatch", Schedule{Matches: []MatchSpec{{Game: "spyfall", Players: 4, Agents: []string{"a"}}}}, false},
		{"roles mismatch", Schedule{Matches: []MatchSpec{{Game: "spyfall", Players: 4, Roles: []string{"spy"}}}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.s.Validate()
			if tc.ok && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestLoadScheduleFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sched.yaml")
	doc := `
tournament_id: smoke
concurrency: 2
matches:
  - game: werewolf
    players: 5
    seed: 7
    count: 3
    act_timeout: 5s
    agents: [alpha, alpha, beta, beta, beta]
    roles: [werewolf, seer, doctor, villager, villager]
  - game: sheriff
    players: 3
    seed: 9
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write schedule: %v", err)
	}

	s, err := LoadSchedule(path)
	if err != nil {
		t.Fatalf("LoadSchedule: %v", err)
	}
	if s.TournamentID != "smoke" || s.Concurrency != 2 || len(s.Matches) != 2 {
		t.Errorf("unexpected schedule: %+v", s)
	}
	if s.Matches[0].ActTimeout.Seconds() != 5 {
		t.Errorf("act_timeout should parse as a duration, got %v", s.Matches[0].ActTimeout)
	}
	if len(s.Matches[0].Agents) != 5 || s.Matches[0].Agents[2] != "beta" {
		t.Errorf("per-seat agents should parse, got %v", s.Matches[0].Agents)
	}
	if len(s.Matches[0].Roles) != 5 || s.Matches[0].Roles[0] != "werewolf" {
		t.Errorf("per-seat roles should parse, got %v", s.Matches[0].Roles)
	}
}

func TestExpandDeterministicIDs(t *testing.T) {
	s := &Schedule{
		TournamentID: "t1",
		Matches:      []MatchSpec{{Game: "spyfall", Players: 4, Seed: 10, Count: 3}},
	}
	entries := expand(s)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].matchID != "t1-spyfall-0-0" || entries[2].matchID != "t1-spyfall-0-2" {
		t.Errorf("expected deterministic IDs, got %s / %s", entries[0].matchID, entries[2].matchID)
	}
	if entries[1].seed != 11 {
		t.Errorf("expected per-match seed offset, got %d", entries[1].seed)
	}

	anon := expand(&Schedule{Matches: []MatchSpec{{Game: "spyfall", Players: 4}}})
	if anon[0].matchID == "spyfall-" || len(anon[0].matchID) < 20 {
		t.Errorf("anonymous runs should draw UUID match IDs, got %s", anon[0].matchID)
	}
}

func TestRunnerPlaysScheduleEndToEnd(t *testing.T) {
	dir := t.TempDir()
	sched := &Schedule{
		TournamentID: "smoke",
		OutputDir:    dir,
		Concurrency:  2,
		Matches: []MatchSpec{
			{Game: "spyfall", Players: 4, Seed: 21, Count: 2, MaxSteps: 500},
			{Game: "werewolf", Players: 5, Seed: 33, Count: 1, MaxSteps: 500},
		},
	}
	if err := sched.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	summary, err := NewRunner(sched).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Matches != 3 {
		t.Fatalf("expected 3 finished matches, got %d", summary.Matches)
	}
	if summary.FailedMatches != 0 {
		t.Errorf("expected no failed matches, got %d", summary.FailedMatches)
	}
	if summary.Config == nil || summary.Config.TournamentID != "smoke" {
		t.Error("summary should snapshot the schedule it ran")
	}
	if summary.StartTime.IsZero() || summary.EndTime.Before(summary.StartTime) {
		t.Errorf("summary should carry run timestamps, got %v..%v", summary.StartTime, summary.EndTime)
	}
	total := 0
	for _, n := range summary.Outcomes {
		total += n
	}
	if total != 3 {
		t.Errorf("outcome counts should cover every match, got %v", summary.Outcomes)
	}

	if _, err := os.Stat(filepath.Join(dir, "tournament_result.json")); err != nil {
		t.Errorf("missing tournament_result.json: %v", err)
	}
	progress, err := os.ReadFile(filepath.Join(dir, "progress.log"))
	if err != nil {
		t.Errorf("missing progress.log: %v", err)
	}
	if !strings.Contains(string(progress), " started") || !strings.Contains(string(progress), " completed") {
		t.Errorf("progress.log should record started and completed lines, got:\n%s", progress)
	}

	logs, err := filepath.Glob(filepath.Join(dir, "events", "*.jsonl"))
	if err != nil || len(logs) != 3 {
		t.Fatalf("expected 3 event logs, got %v (err=%v)", logs, err)
	}
	for _, path := range logs {
		info, err := os.Stat(path)
		if err != nil || info.Size() == 0 {
			t.Errorf("event log %s should be non-empty (err=%v)", path, err)
		}
	}

	for _, res := range summary.Results {
		if res.Game == "" || res.MatchID == "" {
			t.Errorf("result missing identity: %+v", res)
		}
		if res.Outcome == game.OutcomeCancelled {
			t.Errorf("unexpected cancelled match: %+v", res)
		}
	}
}

func TestRunnerResolvesPerSeatAgents(t *testing.T) {
	sched := &Schedule{
		TournamentID: "seats",
		OutputDir:    t.TempDir(),
		Matches: []MatchSpec{
			{
				Game:     "spyfall",
				Players:  4,
				Seed:     5,
				MaxSteps: 500,
				Agents:   []string{"alpha", "alpha", "beta", "beta"},
			},
		},
	}
	if err := sched.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	var (
		mu   sync.Mutex
		seen []string
	)
	factory := func(gameName, agentRef string, seat int, matchSeed int64) agent.Agent {
		mu.Lock()
		seen = append(seen, fmt.Sprintf("%s/%s/%d", gameName, agentRef, seat))
		mu.Unlock()
		return agent.NewRandomAgent(fmt.Sprintf("%s-%d", agentRef, seat), matchSeed*31+int64(seat)+1)
	}

	if _, err := NewRunner(sched, WithAgentFactory(factory)).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	sort.Strings(seen)
	want := []string{"spyfall/alpha/0", "spyfall/alpha/1", "spyfall/beta/2", "spyfall/beta/3"}
	if len(seen) != len(want) {
		t.Fatalf("expected %d agent builds, got %v", len(want), seen)
	}
	for i, w := range want {
		if seen[i] != w {
			t.Errorf("agent build %d: expected %s, got %s", i, w, seen[i])
		}
	}
}
