// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors for group lifecycle, allocation and HTTP traffic.
type Metrics struct {
	GroupsCreated   prometheus.Counter
	GroupsFinished  prometheus.Counter
	ItemsAdded      prometheus.Counter
	ItemsRemoved    prometheus.Counter
	Allocations     *prometheus.CounterVec
	AllocatedAmount prometheus.Histogram
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which is convenient in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		GroupsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tabsplit",
			Name:      "groups_created_total",
			Help:      "Groups created.",
		}),
		GroupsFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tabsplit",
			Name:      "groups_finished_total",
			Help:      "Groups transitioned to finished.",
		}),
		ItemsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tabsplit",
			Name:      "items_added_total",
			Help:      "Line items added to open groups.",
		}),
		ItemsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tabsplit",
			Name:      "items_removed_total",
			Help:      "Line items removed from open groups.",
		}),
		Allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tabsplit",
			Name:      "allocations_total",
			Help:      "Allocation computations by tip mode (none, percentage, fixed).",
		}, []string{"tip"}),
		AllocatedAmount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tabsplit",
			Name:      "allocation_grand_total",
			Help:      "Grand total of computed allocations, in currency units.",
			Buckets:   prometheus.ExponentialBuckets(10, 2, 10),
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tabsplit",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tabsplit",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.GroupsCreated,
			m.GroupsFinished,
			m.ItemsAdded,
			m.ItemsRemoved,
			m.Allocations,
			m.AllocatedAmount,
			m.HTTPRequests,
			m.HTTPDuration,
		)
	}
	return m
}
