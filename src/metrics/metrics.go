package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "symbollist"

// Metrics holds the handler's Prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	responses      *prometheus.CounterVec   // by type
	records        *prometheus.CounterVec   // by mtype and action
	decodeErrors   prometheus.Counter       // aborted message decodes
	autoCloses     prometheus.Counter       // terminal status teardowns
	requests       *prometheus.CounterVec   // by kind (register / reissue / close)
	watchedItems   prometheus.Gauge         // registry size
	symbols        *prometheus.GaugeVec     // by item
	decodeDuration *prometheus.HistogramVec // by type
	sinkErrors     *prometheus.CounterVec   // by sink
}

// -----------------------------------------------------------------------------

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handler",
			Name:      "responses_total",
			Help:      "Responses processed by the handler",
		}, []string{"type"}),

		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handler",
			Name:      "records_total",
			Help:      "Decoded records emitted",
		}, []string{"mtype", "action"}),

		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handler",
			Name:      "decode_errors_total",
			Help:      "Messages whose decode was aborted",
		}),

		autoCloses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handler",
			Name:      "auto_closes_total",
			Help:      "Subscriptions closed on a terminal status",
		}),

		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "requests_total",
			Help:      "Subscription requests sent to the session",
		}, []string{"kind"}),

		watchedItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "watched_items",
			Help:      "Items currently in the watch list",
		}),

		symbols: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "handler",
			Name:      "symbols",
			Help:      "Keys currently held in an item's symbol list",
		}, []string{"item"}),

		decodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "handler",
			Name:      "decode_duration_seconds",
			Help:      "Time spent decoding one response",
			Buckets:   []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}, []string{"type"}),

		sinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sinks",
			Name:      "publish_errors_total",
			Help:      "Failed record publications per sink",
		}, []string{"sink"}),
	}

	m.registry.MustRegister(
		m.responses,
		m.records,
		m.decodeErrors,
		m.autoCloses,
		m.requests,
		m.watchedItems,
		m.symbols,
		m.decodeDuration,
		m.sinkErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry for the HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// -----------------------------------------------------------------------------

func (m *Metrics) ObserveResponse(respType string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.responses.WithLabelValues(respType).Inc()
	m.decodeDuration.WithLabelValues(respType).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordEmitted(mtype, action string) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(mtype, action).Inc()
}

func (m *Metrics) DecodeAborted() {
	if m == nil {
		return
	}
	m.decodeErrors.Inc()
}

func (m *Metrics) AutoClosed() {
	if m == nil {
		return
	}
	m.autoCloses.Inc()
}

func (m *Metrics) RequestSent(kind string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(kind).Inc()
}

func (m *Metrics) SetWatched(n int) {
	if m == nil {
		return
	}
	m.watchedItems.Set(float64(n))
}

func (m *Metrics) SetSymbols(item string, n int) {
	if m == nil {
		return
	}
	m.symbols.WithLabelValues(item).Set(float64(n))
}

func (m *Metrics) SinkFailed(sink string) {
	if m == nil {
		return
	}
	m.sinkErrors.WithLabelValues(sink).Inc()
}
