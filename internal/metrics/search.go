package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ajjswift/gcselog-search-new/internal/domain/search/outcome"
	"github.com/ajjswift/gcselog-search-new/internal/domain/search/strategy"
)

// Search Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Searches by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)

	SearchStoreQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_store_query_duration_seconds",
			Help:      "Compiled search query execution time in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"strategy"},
	)

	SearchHits = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_hits",
			Help:      "Hits returned per successful search",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		},
		[]string{"strategy"},
	)
)

var registerSearch sync.Once

// RegisterSearchMetrics registers Prometheus search metrics. Safe to call more than once.
func RegisterSearchMetrics() {
	registerSearch.Do(func() {
		prometheus.MustRegister(SearchRequestsTotal, SearchStoreQueryDuration, SearchHits)
	})
}

// SearchObserver feeds search outcomes into the search metrics.
type SearchObserver struct{}

// ObserveSearch counts one search and, when it succeeded, its hit count.
func (SearchObserver) ObserveSearch(s strategy.Strategy, o outcome.Outcome, hits int) {
	SearchRequestsTotal.WithLabelValues(string(s), string(o)).Inc()
	if o == outcome.OK {
		SearchHits.WithLabelValues(string(s)).Observe(float64(hits))
	}
}

// ObserveStoreQuery records one store round trip.
func (SearchObserver) ObserveStoreQuery(s strategy.Strategy, d time.Duration) {
	SearchStoreQueryDuration.WithLabelValues(string(s)).Observe(d.Seconds())
}
