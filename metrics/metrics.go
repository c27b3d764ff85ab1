// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lingo_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Economy
	XPAwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lingo_xp_awarded_total",
			Help: "Total XP awarded, by source",
		},
		[]string{"source"}, // "exercise", "lesson", "story"
	)

	ExercisesGraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lingo_exercises_graded_total",
			Help: "Exercise submissions graded",
		},
		[]string{"type", "correct"},
	)

	Purchases = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lingo_shop_purchases_total",
			Help: "Shop purchase attempts by item and outcome",
		},
		[]string{"item_type", "outcome"}, // "ok", "insufficient_funds"
	)

	AchievementsAwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lingo_achievements_awarded_total",
			Help: "Badges awarded",
		},
		[]string{"badge_type"},
	)

	// Content generation
	GenerationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lingo_generation_requests_total",
			Help: "Content generation requests by kind and outcome",
		},
		[]string{"kind", "outcome"}, // outcome: "ok", "cached", "upstream_error", "malformed"
	)

	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lingo_generation_duration_seconds",
			Help:    "Latency of generative-text calls",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60},
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lingo_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Background jobs
	LeagueRollovers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lingo_league_rollover_moves_total",
			Help: "Users moved between tiers at week end",
		},
		[]string{"direction"}, // "promoted", "demoted"
	)

	InventoryExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lingo_inventory_expired_total",
			Help: "Expired inventory entries purged",
		},
	)
)

// ObserveHTTP records one request.
func ObserveHTTP(method, route string, status int, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// RecordGrade counts one graded exercise submission.
func RecordGrade(exerciseType string, correct bool) {
	ExercisesGraded.WithLabelValues(exerciseType, strconv.FormatBool(correct)).Inc()
}
