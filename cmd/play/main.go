// Command play runs a single match of one game and prints the outcome.
// It is the quickest way to watch an engine play.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/EternisAI/strategy-bench/internal/agent"
	"github.com/EternisAI/strategy-bench/internal/driver"
	"github.com/EternisAI/strategy-bench/internal/logger"
	"github.com/EternisAI/strategy-bench/internal/tournament"
	"github.com/EternisAI/strategy-bench/pkg/game"
)

func main() {
	logger.Init()

	var (
		gameName  string
		players   int
		agentSpec string
		seed      int64
		matchID   string
		maxSteps  int
		timeout   time.Duration
		eventOut  string
		jsonOut   bool
	)

	flag.StringVar(&gameName, "game", "werewolf", "Game to play ("+strings.Join(tournament.Games(), ", ")+")")
	flag.IntVar(&players, "players", 5, "Number of players")
	flag.StringVar(&agentSpec, "agents", "random", "Agent type: random, ws://<endpoint>, or exec:<path>")
	flag.Int64Var(&seed, "seed", 0, "Match seed (0 = random)")
	flag.StringVar(&matchID, "match", "", "Match ID (default: generated)")
	flag.IntVar(&maxSteps, "max-steps", 0, "Step cap before force termination (0 = default)")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "Per-agent call deadline")
	flag.StringVar(&eventOut, "events", "", "Write the event log to this JSONL file")
	flag.BoolVar(&jsonOut, "json", false, "Output the result as JSON")
	flag.Parse()

	if matchID == "" {
		matchID = fmt.Sprintf("%s-%s", gameName, logger.NewRunID())
	}

	// Minimum-size tables are legal but thin: fewer seats than the special
	// roles want, so deduction play degenerates.
	if min, _, ok := tournament.PlayerRange(gameName); ok && players == min {
		log.Warn().Int("players", players).Str("game", gameName).
			Msg("Playing at the minimum table size; hidden-role dynamics are weak with this few players")
	}
	eng, err := tournament.NewEngine(gameName, players, seed, matchID, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Engine setup failed")
	}

	if eventOut != "" {
		f, err := os.Create(eventOut)
		if err != nil {
			log.Fatal().Err(err).Msg("Event sink setup failed")
		}
		defer f.Close()
		enc := json.NewEncoder(f)
		eng.Events().SetSink(func(ev game.Event) { enc.Encode(ev) })
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	agents, err := buildAgents(ctx, agentSpec, players, seed)
	if err != nil {
		log.Fatal().Err(err).Msg("Agent setup failed")
	}
	defer func() {
		for _, a := range agents {
			a.Close()
		}
	}()

	res, err := driver.Run(ctx, eng, agents, driver.Config{MaxSteps: maxSteps, ActTimeout: timeout})
	if err != nil {
		log.Fatal().Err(err).Msg("Match failed")
	}
	res.Game = gameName

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(res)
		return
	}

	fmt.Printf("\n%s (%s): %s", res.Game, res.MatchID, res.Outcome)
	if res.Winner != "" {
		fmt.Printf(" -- winner %s (%s)", res.Winner, res.WinReason)
	}
	fmt.Printf("\n  %d steps, %d rounds, %.2fs\n", res.Steps, res.Rounds, res.DurationSeconds)
	for _, p := range game.PlayerIDs(len(res.PerPlayerStats)) {
		s := res.PerPlayerStats[p]
		mark := " "
		if s.Won {
			mark = "*"
		}
		fmt.Printf("  %s player %d: %-14s score %.1f\n", mark, int(p), s.Role, s.Score)
	}
}

// buildAgents fills every seat from the -agents selector. Remote selectors
// fail hard when the endpoint cannot be reached, so a misconfigured run
// exits non-zero instead of silently playing fallbacks.
func buildAgents(ctx context.Context, spec string, players int, seed int64) (map[game.PlayerID]agent.Agent, error) {
	agents := make(map[game.PlayerID]agent.Agent, players)
	for i := 0; i < players; i++ {
		name := fmt.Sprintf("%s-%d", agentKind(spec), i)
		var (
			a   agent.Agent
			err error
		)
		switch {
		case spec == "random":
			a = agent.NewRandomAgent(name, seed*31+int64(i)+1)
		case strings.HasPrefix(spec, "ws://"), strings.HasPrefix(spec, "wss://"):
			a, err = agent.DialWS(ctx, name, spec)
		case strings.HasPrefix(spec, "exec:"):
			a, err = agent.NewProcessAgent(name, strings.TrimPrefix(spec, "exec:"))
		default:
			err = fmt.Errorf("unknown agent selector %q", spec)
		}
		if err != nil {
			for _, opened := range agents {
				opened.Close()
			}
			return nil, err
		}
		agents[game.PlayerID(i)] = a
	}
	return agents, nil
}

func agentKind(spec string) string {
	switch {
	case strings.HasPrefix(spec, "ws"):
		return "ws"
	case strings.HasPrefix(spec, "exec:"):
		return "proc"
	default:
		return "random"
	}
}
