// Package metrics exposes the engine's Prometheus instrumentation: pages
// ingested, observations skipped as anomalies, routes fitted, and the run's
// overall duration.
package metrics

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Collector struct {
	reg *prometheus.Registry

	PagesFetched       prometheus.Counter
	ObservationsFolded prometheus.Counter
	AnomaliesSkipped   *prometheus.CounterVec
	WindowsAbandoned   prometheus.Counter

	RoutesFitted  prometheus.Counter
	FitIterations prometheus.Histogram
	FitKValue     *prometheus.GaugeVec

	RunDuration prometheus.Histogram
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		PagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "schedulerefine_pages_fetched_total",
			Help: "Total observation pages fetched from the source.",
		}),
		ObservationsFolded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "schedulerefine_observations_folded_total",
			Help: "Total observations folded into the accumulator.",
		}),
		AnomaliesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schedulerefine_anomalies_skipped_total",
			Help: "Observations skipped as data anomalies, by reason.",
		}, []string{"reason"}),
		WindowsAbandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "schedulerefine_windows_abandoned_total",
			Help: "Ingestion windows abandoned after a source fetch failure.",
		}),
		RoutesFitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "schedulerefine_routes_fitted_total",
			Help: "Total routes that completed the bisection fit.",
		}),
		FitIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "schedulerefine_fit_iterations",
			Help:    "Number of bisection iterations performed per route fit.",
			Buckets: prometheus.LinearBuckets(1, 1, 5),
		}),
		FitKValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "schedulerefine_fit_k_value",
			Help: "Standard-deviation multiplier chosen by the fitter, by route.",
		}, []string{"route_id"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "schedulerefine_run_duration_seconds",
			Help:    "Wall-clock duration of a complete engine run.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}

	reg.MustRegister(
		c.PagesFetched, c.ObservationsFolded, c.AnomaliesSkipped, c.WindowsAbandoned,
		c.RoutesFitted, c.FitIterations, c.FitKValue, c.RunDuration,
	)

	return c
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// Serve starts an HTTP server exposing /metrics on addr using the same
// minimal router the rest of the engine's ambient tooling uses.
func (c *Collector) Serve(addr string) *http.Server {
	router := httprouter.New()
	router.Handler(http.MethodGet, "/metrics", c.Handler())

	srv := &http.Server{Addr: addr, Handler: router}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	log.Info().Str("addr", addr).Msg("metrics server listening")
	return srv
}
