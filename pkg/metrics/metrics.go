package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "site_report"

// Metrics holds the Prometheus collectors of the service. All methods are
// safe to call on a nil *Metrics.
type Metrics struct {
	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	UndoTransactions *prometheus.CounterVec
	UndoPending      prometheus.Gauge
	Transcriptions   *prometheus.CounterVec
	TitleFallbacks   prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		UndoTransactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "undo",
				Name:      "transactions_total",
				Help:      "Undo-able transactions by outcome",
			},
			[]string{"outcome"}, // committed, cancelled, failed
		),
		UndoPending: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "undo",
				Name:      "pending",
				Help:      "Transactions waiting for their undo window to close",
			},
		),
		Transcriptions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "transcription",
				Name:      "items_total",
				Help:      "Recordings sent for transcription by result",
			},
			[]string{"result"},
		),
		TitleFallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "titles",
				Name:      "fallbacks_total",
				Help:      "Complaint titles that used the fallback label",
			},
		),
	}
}

func (m *Metrics) UndoOutcome(outcome string) {
	if m == nil {
		return
	}
	m.UndoTransactions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetUndoPending(n int) {
	if m == nil {
		return
	}
	m.UndoPending.Set(float64(n))
}

func (m *Metrics) TranscriptionResult(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.Transcriptions.WithLabelValues(result).Inc()
}

func (m *Metrics) TitleFallback() {
	if m == nil {
		return
	}
	m.TitleFallbacks.Inc()
}

// Middleware records request count and duration labelled with the chi route
// pattern, so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			next.ServeHTTP(w, r)
			return
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		m.RequestCounter.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}

// Handler exposes the collectors gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
