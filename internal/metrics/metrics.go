// Package metrics exposes prometheus counters for the attempt lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Evaluation outcome labels.
const (
	OutcomeEvaluated = "evaluated"
	OutcomeFailed    = "failed"
)

type Collector struct {
	attemptsStarted   prometheus.Counter
	attemptsSubmitted prometheus.Counter
	attemptsTimedOut  prometheus.Counter
	attemptsAbandoned prometheus.Counter
	evaluations       *prometheus.CounterVec
	conflicts         prometheus.Counter
}

func NewCollector() *Collector {
	return &Collector{
		attemptsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "drill_attempts_started_total",
			Help: "Number of drill attempts started.",
		}),
		attemptsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "drill_attempts_submitted_total",
			Help: "Number of drill attempts submitted.",
		}),
		attemptsTimedOut: promauto.NewCounter(prometheus.CounterOpts{
			Name: "drill_attempts_timed_out_total",
			Help: "Number of drill attempts force-submitted at the deadline.",
		}),
		attemptsAbandoned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "drill_attempts_abandoned_total",
			Help: "Number of drill attempts abandoned.",
		}),
		evaluations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "drill_evaluations_total",
			Help: "Number of evaluation transitions by outcome.",
		}, []string{"outcome"}),
		conflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "drill_attempt_conflicts_total",
			Help: "Number of optimistic-concurrency conflicts on attempt saves.",
		}),
	}
}

// All methods tolerate a nil receiver so tests can run without a registry.

func (c *Collector) AttemptStarted() {
	if c != nil {
		c.attemptsStarted.Inc()
	}
}

func (c *Collector) AttemptSubmitted(timedOut bool) {
	if c == nil {
		return
	}
	c.attemptsSubmitted.Inc()
	if timedOut {
		c.attemptsTimedOut.Inc()
	}
}

func (c *Collector) AttemptAbandoned() {
	if c != nil {
		c.attemptsAbandoned.Inc()
	}
}

func (c *Collector) Evaluation(outcome string) {
	if c != nil {
		c.evaluations.WithLabelValues(outcome).Inc()
	}
}

func (c *Collector) Conflict() {
	if c != nil {
		c.conflicts.Inc()
	}
}
