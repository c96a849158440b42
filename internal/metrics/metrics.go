// Package metrics exposes Prometheus counters for framing and dispatch.
//
// A nil *Metrics is valid and records nothing, so callers never need to
// check whether metrics are enabled.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "zoof_lsp"

// UnknownMethod is the method label used for names without a handler.
const UnknownMethod = "unknown"

// Metrics holds the server's collectors.
type Metrics struct {
	registry *prometheus.Registry

	framesRead      prometheus.Counter
	framesDropped   *prometheus.CounterVec
	messagesTotal   *prometheus.CounterVec
	handlerDuration *prometheus.HistogramVec
	bytesWritten    prometheus.Counter
	inFlight        prometheus.Gauge
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		framesRead: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "frames_read_total",
			Help:      "Frames decoded from the input stream",
		}),

		framesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "frames_dropped_total",
			Help:      "Frames discarded by the framer, by reason",
		}, []string{"reason"}),

		messagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "messages_total",
			Help:      "Dispatched messages by type and outcome",
		}, []string{"type", "outcome"}),

		handlerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "handler_duration_seconds",
			Help:      "Handler execution time in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		bytesWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "response_bytes_total",
			Help:      "Body bytes written to the output stream",
		}),

		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "in_flight_messages",
			Help:      "Messages currently being handled",
		}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// FrameRead counts a decoded frame.
func (m *Metrics) FrameRead() {
	if m == nil {
		return
	}
	m.framesRead.Inc()
}

// FrameDropped counts a discarded frame.
func (m *Metrics) FrameDropped(reason string) {
	if m == nil {
		return
	}
	m.framesDropped.WithLabelValues(reason).Inc()
}

// MessageStarted marks a message as in flight.
func (m *Metrics) MessageStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// MessageHandled records the outcome of a dispatched message.
func (m *Metrics) MessageHandled(msgType, outcome, method string, dur time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.messagesTotal.WithLabelValues(msgType, outcome).Inc()
	m.handlerDuration.WithLabelValues(method).Observe(dur.Seconds())
}

// ResponseWritten counts the body bytes of a written frame.
func (m *Metrics) ResponseWritten(n int) {
	if m == nil {
		return
	}
	m.bytesWritten.Add(float64(n))
}

// Handler returns an HTTP handler serving /metrics and /healthz.
func (m *Metrics) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	if m != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	}
	return r
}

// Serve exposes Handler on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("metrics.listen", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics.shutdown.fail", slog.String("err", err.Error()))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
