// Package metrics holds the prometheus collectors shared by the simulator and
// the processor. A nil *Metrics is valid and records nothing.
package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "expostream"

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics groups the pipeline collectors.
type Metrics struct {
	mu         sync.Mutex
	registerer prometheus.Registerer
	registered bool

	published         *prometheus.CounterVec
	processed         *prometheus.CounterVec
	processingSeconds *prometheus.HistogramVec
	alerts            *prometheus.CounterVec
	storeReconnects   *prometheus.CounterVec
}

func newCounterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// New creates the collectors. A nil registerer falls back to the default one.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &Metrics{
		registerer: registerer,
		published:  newCounterVec("generator_published_total", "Telemetry messages handed to the broker by the simulator", "topic", "result"),
		processed:  newCounterVec("processed_total", "Telemetry messages handled by the processor", "topic", "result"),
		processingSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "processing_seconds",
				Help:      "Time spent decoding and persisting one message",
				Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"topic"},
		),
		alerts:          newCounterVec("alerts_total", "Operational alerts raised by the processor", "rule"),
		storeReconnects: newCounterVec("store_reconnects_total", "Store reconnect attempts after a failed write", "result"),
	}
}

// Register registers the collectors. Calling it more than once is safe.
func (m *Metrics) Register() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	for _, c := range []prometheus.Collector{m.published, m.processed, m.processingSeconds, m.alerts, m.storeReconnects} {
		if err := m.registerer.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
		}
	}

	m.registered = true
	return nil
}

// MustNew creates and registers the collectors, panicking on conflict.
func MustNew(registerer prometheus.Registerer) *Metrics {
	m := New(registerer)
	if err := m.Register(); err != nil {
		panic(err)
	}
	return m
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// ObservePublish counts one publish attempt on topic.
func (m *Metrics) ObservePublish(topic string, err error) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(topic, result(err)).Inc()
}

// ObserveProcessed counts one handled message and its latency.
func (m *Metrics) ObserveProcessed(topic string, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.processed.WithLabelValues(topic, result(err)).Inc()
	m.processingSeconds.WithLabelValues(topic).Observe(took.Seconds())
}

// ObserveAlert counts one alert raised by rule.
func (m *Metrics) ObserveAlert(rule string) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(rule).Inc()
}

// ObserveReconnect counts one store reconnect attempt.
func (m *Metrics) ObserveReconnect(err error) {
	if m == nil {
		return
	}
	m.storeReconnects.WithLabelValues(result(err)).Inc()
}
