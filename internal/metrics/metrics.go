// Package metrics exposes Prometheus counters for tournament runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	// MatchesStarted counts matches handed to the driver, by game.
	MatchesStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "strategybench_matches_started_total",
		Help: "Matches started, by game.",
	}, []string{"game"})

	// MatchesFinished counts completed matches, by game and outcome.
	MatchesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "strategybench_matches_finished_total",
		Help: "Matches finished, by game and outcome.",
	}, []string{"game", "outcome"})

	// MatchDuration observes wall-clock match duration, by game.
	MatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "strategybench_match_duration_seconds",
		Help:    "Wall-clock duration of finished matches.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"game"})

	// MatchSteps observes engine steps per match, by game.
	MatchSteps = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "strategybench_match_steps",
		Help:    "Engine steps per finished match.",
		Buckets: prometheus.ExponentialBuckets(4, 2, 10),
	}, []string{"game"})

	// AgentFailures counts agent calls that fell back to noop.
	AgentFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "strategybench_agent_failures_total",
		Help: "Agent calls that failed or timed out.",
	}, []string{"agent"})
)

// Serve starts the /metrics endpoint in the background and returns the
// server so callers can shut it down.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Str("addr", addr).Msg("Metrics server stopped")
		}
	}()
	return srv
}
