package observability

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aretw0/trivium/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	agentCalls    *prometheus.CounterVec
	agentDuration *prometheus.HistogramVec
	steps         *prometheus.CounterVec
	rounds        *prometheus.CounterVec
	issues        *prometheus.CounterVec
	batches       *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		agentCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trivium_agent_calls_total",
				Help: "Total number of collaborator calls",
			},
			[]string{"agent", "label", "outcome"},
		),
		agentDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trivium_agent_call_duration_seconds",
				Help:    "Duration of collaborator calls",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"agent", "label"},
		),
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trivium_steps_total",
				Help: "Pipeline steps completed, split by whether a checkpoint was reused",
			},
			[]string{"step", "skipped"},
		),
		rounds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trivium_rounds_total",
				Help: "Rounds evaluated, by consensus outcome",
			},
			[]string{"passed", "memoized"},
		),
		issues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trivium_issues_total",
				Help: "Issues raised by reviewers and issues retained by the tally",
			},
			[]string{"kind"},
		),
		batches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trivium_batches_total",
				Help: "Batch runs by terminal status",
			},
			[]string{"status"},
		),
	}
	m.registry.MustRegister(m.agentCalls, m.agentDuration, m.steps, m.rounds, m.issues, m.batches)
	return m
}

// Registry exposes the registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordOutcome counts a finished batch run.
func (m *Metrics) RecordOutcome(outcome domain.BatchOutcome) {
	m.batches.WithLabelValues(string(outcome.Status)).Inc()
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepLeave: func(_ context.Context, e *domain.StepEvent) {
			m.steps.WithLabelValues(string(e.Step), strconv.FormatBool(e.Skipped)).Inc()
		},
		OnAgentReturn: func(_ context.Context, e *domain.AgentEvent) {
			outcome := "success"
			if e.IsError {
				outcome = "failure"
			}
			m.agentCalls.WithLabelValues(e.Agent, e.Label, outcome).Inc()
			m.agentDuration.WithLabelValues(e.Agent, e.Label).Observe(e.Duration.Seconds())
		},
		OnRoundComplete: func(_ context.Context, e *domain.RoundEvent) {
			m.rounds.WithLabelValues(strconv.FormatBool(e.Passed), strconv.FormatBool(e.Memoized)).Inc()
			if e.Memoized {
				return
			}
			m.issues.WithLabelValues("raised").Add(float64(e.Issues))
			m.issues.WithLabelValues("accepted").Add(float64(e.Accepted))
		},
	}
}
