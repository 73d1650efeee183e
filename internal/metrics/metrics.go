// Package metrics exposes Prometheus collectors for the gamification engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Redemption results
const (
	ResultSuccess      = "success"
	ResultInsufficient = "insufficient_funds"
	ResultUnavailable  = "unavailable"
	ResultError        = "error"
)

// Collector owns a private registry so tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	pointsAwarded        *prometheus.CounterVec
	redemptions          *prometheus.CounterVec
	achievementsUnlocked *prometheus.CounterVec
	ledgerConflicts      prometheus.Counter
	ledgerExhausted      prometheus.Counter
	invariantViolations  prometheus.Counter
	streaksLost          *prometheus.CounterVec
	rankDuration         prometheus.Histogram
	rankedProfiles       prometheus.Gauge
}

// NewCollector creates and registers all collectors under namespace.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "fitquest"
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.pointsAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "points_awarded_total",
			Help:      "FitCoins credited, by transaction source",
		},
		[]string{"source"},
	)

	c.redemptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rewards",
			Name:      "redemptions_total",
			Help:      "Reward redemption attempts, by result",
		},
		[]string{"result"},
	)

	c.achievementsUnlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "achievements",
			Name:      "unlocked_total",
			Help:      "Achievements unlocked, by rarity",
		},
		[]string{"rarity"},
	)

	c.ledgerConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "version_conflicts_total",
		Help:      "Optimistic writes that lost a race and were retried",
	})

	c.ledgerExhausted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "retries_exhausted_total",
		Help:      "Events surfaced as conflicts after all attempts failed",
	})

	c.invariantViolations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "invariant_violations_total",
		Help:      "Profiles that failed reconciliation before a write",
	})

	c.streaksLost = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "streaks",
			Name:      "lost_total",
			Help:      "Streaks reset after a missed day, by category",
		},
		[]string{"category"},
	)

	c.rankDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "leaderboard",
		Name:      "rank_update_duration_seconds",
		Help:      "Time taken to recompute and persist all ranks",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
	})

	c.rankedProfiles = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "leaderboard",
		Name:      "ranked_profiles",
		Help:      "Profiles ranked by the last recomputation",
	})

	c.registry.MustRegister(
		c.pointsAwarded,
		c.redemptions,
		c.achievementsUnlocked,
		c.ledgerConflicts,
		c.ledgerExhausted,
		c.invariantViolations,
		c.streaksLost,
		c.rankDuration,
		c.rankedProfiles,
	)

	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordPointsAwarded(source string, amount int64) {
	if amount <= 0 {
		return
	}
	c.pointsAwarded.WithLabelValues(source).Add(float64(amount))
}

func (c *Collector) RecordRedemption(result string) {
	c.redemptions.WithLabelValues(result).Inc()
}

func (c *Collector) RecordAchievementUnlocked(rarity string) {
	c.achievementsUnlocked.WithLabelValues(rarity).Inc()
}

func (c *Collector) RecordLedgerConflict() {
	c.ledgerConflicts.Inc()
}

func (c *Collector) RecordLedgerExhausted() {
	c.ledgerExhausted.Inc()
}

func (c *Collector) RecordInvariantViolation() {
	c.invariantViolations.Inc()
}

func (c *Collector) RecordStreakLost(category string) {
	c.streaksLost.WithLabelValues(category).Inc()
}

func (c *Collector) RecordRankUpdate(d time.Duration, profiles int) {
	c.rankDuration.Observe(d.Seconds())
	c.rankedProfiles.Set(float64(profiles))
}
