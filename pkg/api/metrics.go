package api

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the server's internal instrumentation.
type Metrics struct {
	SamplesIngested prometheus.Counter
	WriteRequests   prometheus.Counter
	TrendQueries    prometheus.Counter
	TrendRows       prometheus.Counter
	QueryFailures   prometheus.Counter
}

// NewMetrics registers the server counters plus cache hit/miss
// counters fed by stats.
func NewMetrics(reg prometheus.Registerer, cacheStats func() (hits, misses uint64)) *Metrics {
	m := &Metrics{
		SamplesIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trendline_samples_ingested_total",
			Help: "Samples accepted by the write endpoint.",
		}),
		WriteRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trendline_write_requests_total",
			Help: "Write requests accepted.",
		}),
		TrendQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trendline_trend_queries_total",
			Help: "Trend queries served.",
		}),
		TrendRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trendline_trend_rows_total",
			Help: "Interval rows emitted by trend queries.",
		}),
		QueryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trendline_query_failures_total",
			Help: "Trend queries that failed outright.",
		}),
	}

	reg.MustRegister(
		m.SamplesIngested,
		m.WriteRequests,
		m.TrendQueries,
		m.TrendRows,
		m.QueryFailures,
	)

	if cacheStats != nil {
		reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "trendline_sample_cache_hits_total",
			Help: "Sample cache hits.",
		}, func() float64 {
			hits, _ := cacheStats()
			return float64(hits)
		}))
		reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "trendline_sample_cache_misses_total",
			Help: "Sample cache misses.",
		}, func() float64 {
			_, misses := cacheStats()
			return float64(misses)
		}))
	}

	return m
}
