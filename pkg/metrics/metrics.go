package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Collector struct {
	reg *prometheus.Registry

	RequestsStarted  *prometheus.CounterVec // provider, mode
	JobsFinished     *prometheus.CounterVec // provider, outcome: success|empty|network|parsing|provider
	JobsDropped      *prometheus.CounterVec // provider
	RecordsExtracted *prometheus.CounterVec // provider, mode
	RoundTrips       *prometheus.CounterVec // provider

	JobDuration *prometheus.HistogramVec // provider

	ProvidersLoaded prometheus.Gauge
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		RequestsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timetables_requests_started_total",
			Help: "Requests started per provider and parse mode.",
		}, []string{"provider", "mode"}),
		JobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timetables_jobs_finished_total",
			Help: "Jobs finished per provider and outcome.",
		}, []string{"provider", "outcome"}),
		JobsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timetables_jobs_dropped_total",
			Help: "Completions of jobs that were cancelled before they finished.",
		}, []string{"provider"}),
		RecordsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timetables_records_extracted_total",
			Help: "Records extracted per provider and parse mode.",
		}, []string{"provider", "mode"}),
		RoundTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timetables_journey_round_trips_total",
			Help: "Additional journey requests issued for more results.",
		}, []string{"provider"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "timetables_job_duration_seconds",
			Help:    "Time from starting a download to emitting its result.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"provider"}),
		ProvidersLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timetables_providers_loaded",
			Help: "Number of providers with a usable accessor.",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timetables_result_cache_hits_total",
			Help: "Requests answered from the result cache.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timetables_result_cache_misses_total",
			Help: "Requests that needed a download.",
		}),
	}

	reg.MustRegister(
		c.RequestsStarted, c.JobsFinished, c.JobsDropped, c.RecordsExtracted, c.RoundTrips,
		c.JobDuration, c.ProvidersLoaded, c.CacheHits, c.CacheMisses,
	)

	return c
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// Serve starts an HTTP server exposing /metrics on the given address
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	log.Info().Str("address", addr).Msg("Metrics listening")
	return srv
}
