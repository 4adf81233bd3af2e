// Command tournament runs a YAML schedule of matches, with optional
// Postgres result persistence and Redis progress tracking.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/EternisAI/strategy-bench/internal/config"
	"github.com/EternisAI/strategy-bench/internal/logger"
	"github.com/EternisAI/strategy-bench/internal/store/postgres"
	"github.com/EternisAI/strategy-bench/internal/store/redis"
	"github.com/EternisAI/strategy-bench/internal/tournament"
)

func main() {
	logger.Init()
	cfg := config.Load()

	var (
		schedulePath string
		dbURL        string
		redisURL     string
		jsonOut      bool
	)
	flag.StringVar(&schedulePath, "schedule", "", "Path to the YAML schedule (required)")
	flag.StringVar(&dbURL, "db", "", "Database URL (or use DATABASE_URL env)")
	flag.StringVar(&redisURL, "redis", "", "Redis URL (or use REDIS_URL env)")
	flag.BoolVar(&jsonOut, "json", false, "Output the summary as JSON")
	flag.Parse()

	if schedulePath == "" {
		flag.Usage()
		os.Exit(2)
	}
	if dbURL == "" {
		dbURL = cfg.DatabaseURL
	}
	if redisURL == "" {
		redisURL = cfg.RedisURL
	}

	sched, err := tournament.LoadSchedule(schedulePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Schedule load failed")
	}
	if sched.MetricsAddr == "" {
		sched.MetricsAddr = cfg.MetricsAddr
	}
	if sched.OutputDir == "" && sched.TournamentID != "" {
		sched.OutputDir = cfg.OutputDir + "/" + sched.TournamentID
	}

	var opts []tournament.Option
	if dbURL != "" {
		db, err := postgres.Connect(dbURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Database connection failed")
		}
		defer db.Close()
		repo := postgres.NewResultRepo(db)
		if err := repo.EnsureSchema(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("Schema setup failed")
		}
		opts = append(opts, tournament.WithResultRepo(repo))
	}
	if redisURL != "" {
		rc, err := redis.NewClient(redisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Redis connection failed")
		}
		defer rc.Close()
		opts = append(opts, tournament.WithProgressStore(rc))
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

	summary, err := tournament.NewRunner(sched, opts...).Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Tournament failed")
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(summary)
		return
	}
	printSummary(summary)
}

func printSummary(s *tournament.Summary) {
	fmt.Printf("\nTournament %s: %d matches in %.1fs", s.TournamentID, s.Matches, s.DurationSeconds)
	if s.Skipped > 0 {
		fmt.Printf(" (%d resumed as done)", s.Skipped)
	}
	fmt.Println()

	outcomes := make([]string, 0, len(s.Outcomes))
	for o := range s.Outcomes {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)
	for _, o := range outcomes {
		fmt.Printf("  %-10s %d\n", o, s.Outcomes[o])
	}

	if len(s.Wins) > 0 {
		fmt.Println("Wins:")
		winners := make([]string, 0, len(s.Wins))
		for w := range s.Wins {
			winners = append(winners, w)
		}
		sort.Strings(winners)
		for _, w := range winners {
			fmt.Printf("  %-14s %d\n", w, s.Wins[w])
		}
	}
}
