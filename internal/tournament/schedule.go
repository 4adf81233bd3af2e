package tournament

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Schedule is the YAML description of a tournament run.
type Schedule struct {
	// TournamentID labels results and progress keys; empty draws a UUID.
	TournamentID string `yaml:"tournament_id"`
	// OutputDir receives per-match event logs and the summary file.
	OutputDir string `yaml:"output_dir"`
	// Concurrency caps simultaneous matches; zero means 1.
	Concurrency int `yaml:"concurrency"`
	// MetricsAddr, when set, serves Prometheus metrics during the run.
	MetricsAddr string `yaml:"metrics_addr"`

	Matches []MatchSpec `yaml:"matches"`
}

// MatchSpec expands into Count matches of one game.
type MatchSpec struct {
	Game    string `yaml:"game"`
	Players int    `yaml:"players"`
	// Agents optionally names the agent for each seat (index = seat),
	// resolved through the runner's agent factory. Empty entries and an
	// absent list select the default agent.
	Agents []string `yaml:"agents"`
	// Roles optionally fixes the role deal (index = seat) with the game's
	// role names, e.g. "werewolf" or "impostor". Seats the game assigns
	// itself stay empty.
	Roles []string `yaml:"roles"`
	// Seed is the base seed; match i plays with Seed+i. Zero means
	// time-seeded, unreproducible matches.
	Seed  int64 `yaml:"seed"`
	Count int   `yaml:"count"`

	// MaxSteps and ActTimeout override the driver defaults per game.
	MaxSteps   int           `yaml:"max_steps"`
	ActTimeout time.Duration `yaml:"act_timeout"`
}

// LoadSchedule reads and validates a schedule file.
func LoadSchedule(path string) (*Schedule, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedule: %w", err)
	}
	var s Schedule
	if err := yaml.Unmarshal(buf, &s); err != nil {
		return nil, fmt.Errorf("parse schedule %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("schedule %s: %w", path, err)
	}
	return &s, nil
}

// Validate checks the schedule against the registered games.
func (s *Schedule) Validate() error {
	if len(s.Matches) == 0 {
		return fmt.Errorf("no matches scheduled")
	}
	if s.Concurrency < 0 {
		return fmt.Errorf("concurrency must be >= 0")
	}
	for i, m := range s.Matches {
		if m.Game == "" {
			return fmt.Errorf("match %d: missing game", i)
		}
		known := false
		for _, g := range Games() {
			if g == m.Game {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("match %d: unknown game %q", i, m.Game)
		}
		if m.Players <= 0 {
			return fmt.Errorf("match %d: players must be positive", i)
		}
		if len(m.Agents) > 0 && len(m.Agents) != m.Players {
			return fmt.Errorf("match %d: %d agents for %d players", i, len(m.Agents), m.Players)
		}
		if len(m.Roles) > 0 && len(m.Roles) != m.Players {
			return fmt.Errorf("match %d: %d roles for %d players", i, len(m.Roles), m.Players)
		}
		if m.Count < 0 {
			return fmt.Errorf("match %d: count must be >= 0", i)
		}
	}
	return nil
}
