package obs

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics groups Prometheus collectors for HTTP observability.
type HTTPMetrics struct {
	ReqTotal *prometheus.CounterVec
	ReqDur   *prometheus.HistogramVec
	InFlight prometheus.Gauge
}

// NewHTTPMetrics registers and returns HTTP metrics collectors.
func NewHTTPMetrics(namespace string, reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &HTTPMetrics{
		ReqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests handled by the server.",
		}, []string{"method", "route", "status"}),
		ReqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency distribution in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"method", "route"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
	}
	m.ReqTotal = registerOrExisting(reg, m.ReqTotal)
	m.ReqDur = registerOrExisting(reg, m.ReqDur)
	m.InFlight = registerOrExisting(reg, m.InFlight)
	return m
}

// Middleware instruments request/response lifecycle with counters and histograms.
func (m *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := NewStatusRecorder(w)
		m.InFlight.Inc()
		start := time.Now()
		next.ServeHTTP(recorder, r)
		m.InFlight.Dec()

		route := routePattern(r)
		if route == "" {
			route = "unknown"
		}
		m.ReqTotal.WithLabelValues(r.Method, route, strconv.Itoa(recorder.Status())).Inc()
		m.ReqDur.WithLabelValues(r.Method, route).Observe(float64(time.Since(start)) / float64(time.Millisecond))
	})
}

// Invoice processing sources.
const (
	SourceHTTP  = "http"
	SourceBatch = "batch"
)

// Batch file outcomes.
const (
	OutcomeProcessed = "processed"
	OutcomeFailed    = "failed"
)

// InvoiceMetrics counts computed invoices, selected discounts and batch files.
type InvoiceMetrics struct {
	Processed  *prometheus.CounterVec
	Discounts  *prometheus.CounterVec
	BatchFiles *prometheus.CounterVec
}

// NewInvoiceMetrics registers and returns the invoice domain collectors.
func NewInvoiceMetrics(namespace string, reg prometheus.Registerer) *InvoiceMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &InvoiceMetrics{
		Processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_processed_total",
			Help:      "Invoices computed, by caller.",
		}, []string{"source"}),
		Discounts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_discounts_total",
			Help:      "Discount keys requested on computed invoices.",
		}, []string{"discount"}),
		BatchFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_files_total",
			Help:      "Batch input files handled, by outcome.",
		}, []string{"outcome"}),
	}
	m.Processed = registerOrExisting(reg, m.Processed)
	m.Discounts = registerOrExisting(reg, m.Discounts)
	m.BatchFiles = registerOrExisting(reg, m.BatchFiles)
	return m
}

// ObserveInvoice records one computed invoice. Unknown discount keys share the
// "unknown" label so client input cannot grow label cardinality.
func (m *InvoiceMetrics) ObserveInvoice(source, discountKey string, known bool) {
	if m == nil {
		return
	}
	label := discountKey
	switch {
	case !known:
		label = "unknown"
	case label == "":
		label = "none"
	}
	m.Processed.WithLabelValues(source).Inc()
	m.Discounts.WithLabelValues(label).Inc()
}

// ObserveBatchFile records the outcome of one batch input file.
func (m *InvoiceMetrics) ObserveBatchFile(outcome string) {
	if m == nil {
		return
	}
	m.BatchFiles.WithLabelValues(outcome).Inc()
}

func registerOrExisting[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(fmt.Errorf("register collector: %w", err))
	}
	return c
}
