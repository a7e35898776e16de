// Package metrics provides Prometheus metrics for the TWAP service.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SamplesTotal counts submitted samples by outcome.
	SamplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "twap_samples_total",
			Help: "Total number of samples submitted to the TWAP engine",
		},
		[]string{"entry", "result"},
	)

	// ReadsTotal counts validated reads by outcome.
	ReadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "twap_reads_total",
			Help: "Total number of TWAP reads",
		},
		[]string{"entry", "timeframe", "result"},
	)

	// WindowCoverage is the number of populated tracker buckets per timeframe.
	WindowCoverage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "twap_window_coverage_buckets",
			Help: "Populated buckets of the 64-bucket window as of the last update",
		},
		[]string{"entry", "timeframe"},
	)

	// UpdateDuration is a histogram of update latency, persistence included.
	UpdateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "twap_update_duration_seconds",
			Help:    "Duration of TWAP updates including persistence",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
	)

	// PollErrorsTotal counts failed polls of the upstream price server.
	PollErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "twap_poll_errors_total",
			Help: "Total number of failed upstream price polls",
		},
		[]string{"stage"},
	)

	// HTTPRequestsTotal is a counter of total HTTP requests.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status"},
	)

	// HTTPRequestDuration is a histogram of HTTP request latencies.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"endpoint"},
	)
)

// Init registers all metrics with the default registry.
func Init() {
	prometheus.MustRegister(
		SamplesTotal,
		ReadsTotal,
		WindowCoverage,
		UpdateDuration,
		PollErrorsTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}

// ServeHTTP serves /metrics on addr until ctx is cancelled.
func ServeHTTP(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// RecordSample records the outcome of one submitted sample.
func RecordSample(entry, result string) {
	SamplesTotal.WithLabelValues(entry, result).Inc()
}

// RecordRead records the outcome of one validated read.
func RecordRead(entry, timeframe, result string) {
	ReadsTotal.WithLabelValues(entry, timeframe, result).Inc()
}

// RecordCoverage sets the populated bucket count of a timeframe.
func RecordCoverage(entry, timeframe string, buckets uint32) {
	WindowCoverage.WithLabelValues(entry, timeframe).Set(float64(buckets))
}

// RecordUpdate records the duration of an update.
func RecordUpdate(duration time.Duration) {
	UpdateDuration.Observe(duration.Seconds())
}

// RecordPollError records a failed poll at the given stage.
func RecordPollError(stage string) {
	PollErrorsTotal.WithLabelValues(stage).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}
