package observability

import (
	"context"

	"github.com/aretw0/fieldbot/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fieldbot"

// Metrics holds the Prometheus collectors fed by lifecycle events.
type Metrics struct {
	Transitions      *prometheus.CounterVec
	Searches         prometheus.Counter
	SearchMatches    prometheus.Histogram
	Provisions       *prometheus.CounterVec
	ProvisionLatency prometheus.Histogram
	DatasetLoads     *prometheus.CounterVec
	DatasetRecords   prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
// It panics if a collector is already registered, as prometheus.MustRegister does.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Handled events by source and destination state.",
		}, []string{"from", "to"}),
		Searches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Site searches run.",
		}),
		SearchMatches: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_matches",
			Help:      "Records matched per search.",
			Buckets:   []float64{0, 1, 5, 10, 50, 100, 500},
		}),
		Provisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provision_requests_total",
			Help:      "Change-device requests by outcome.",
		}, []string{"outcome"}),
		ProvisionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provision_duration_seconds",
			Help:      "Provisioning gateway round trip time.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		DatasetLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_loads_total",
			Help:      "Dataset fetch attempts by result.",
		}, []string{"result"}),
		DatasetRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_records",
			Help:      "Records in the current dataset snapshot.",
		}),
	}
	reg.MustRegister(
		m.Transitions,
		m.Searches,
		m.SearchMatches,
		m.Provisions,
		m.ProvisionLatency,
		m.DatasetLoads,
		m.DatasetRecords,
	)
	return m
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			m.Transitions.WithLabelValues(string(e.From), string(e.To)).Inc()
		},
		OnSearch: func(ctx context.Context, e *domain.SearchEvent) {
			m.Searches.Inc()
			m.SearchMatches.Observe(float64(e.Matches))
		},
		OnProvision: func(ctx context.Context, e *domain.ProvisionEvent) {
			outcome := string(e.Outcome)
			if e.Err != nil {
				outcome = "transport_error"
			}
			m.Provisions.WithLabelValues(outcome).Inc()
			m.ProvisionLatency.Observe(e.Duration.Seconds())
		},
		OnDatasetLoad: func(ctx context.Context, e *domain.DatasetLoadEvent) {
			if e.Err != nil {
				m.DatasetLoads.WithLabelValues("error").Inc()
				return
			}
			m.DatasetLoads.WithLabelValues("ok").Inc()
			m.DatasetRecords.Set(float64(e.Records))
		},
	}
}
