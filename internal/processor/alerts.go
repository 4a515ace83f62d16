package processor

import (
	"fmt"
	"sync"

	"github.com/drblury/expostream/internal/runtime/logging"
	"github.com/drblury/expostream/internal/runtime/metrics"
	"github.com/drblury/expostream/internal/telemetry"
)

// VibrationThreshold is the vibration level above which a cart is flagged.
const VibrationThreshold = 0.04

// Alert is an advisory operational signal. It never changes how a message
// is processed.
type Alert struct {
	Rule    string
	Message string
	Fields  logging.LogFields
}

// CrowdedPavilionRule fires when a pavilion reports crowded status.
type CrowdedPavilionRule struct{}

// Name implements the rule label used in metrics.
func (CrowdedPavilionRule) Name() string { return "crowded_pavilion" }

// Evaluate returns an alert for crowded readings.
func (r CrowdedPavilionRule) Evaluate(reading telemetry.PavilionReading) (Alert, bool) {
	if reading.OperationalStatus != telemetry.StatusCrowded {
		return Alert{}, false
	}
	return Alert{
		Rule:    r.Name(),
		Message: fmt.Sprintf("ALERT: %s is crowded", reading.PavilionID),
		Fields: logging.LogFields{
			"pavilion_id":   reading.PavilionID,
			"visitor_count": reading.VisitorCount,
		},
	}, true
}

// HighVibrationRule fires when a cart vibrates above Threshold.
type HighVibrationRule struct {
	Threshold float64
}

// Name implements the rule label used in metrics.
func (HighVibrationRule) Name() string { return "high_vibration" }

// Evaluate returns an alert for readings strictly above the threshold.
func (r HighVibrationRule) Evaluate(reading telemetry.FerrisWheelReading) (Alert, bool) {
	threshold := r.Threshold
	if threshold <= 0 {
		threshold = VibrationThreshold
	}
	if reading.VibrationLevel <= threshold {
		return Alert{}, false
	}
	return Alert{
		Rule:    r.Name(),
		Message: fmt.Sprintf("High vibration detected on cart %d", reading.CartID),
		Fields: logging.LogFields{
			"cart_id":         reading.CartID,
			"vibration_level": reading.VibrationLevel,
			"threshold":       threshold,
		},
	}, true
}

// Alerter logs alerts at warn level and counts them per rule.
type Alerter struct {
	logger  logging.ServiceLogger
	metrics *metrics.Metrics

	mu     sync.Mutex
	counts map[string]uint64
}

// NewAlerter returns an Alerter. m may be nil.
func NewAlerter(logger logging.ServiceLogger, m *metrics.Metrics) *Alerter {
	return &Alerter{logger: logger, metrics: m, counts: map[string]uint64{}}
}

// Raise emits the alert.
func (a *Alerter) Raise(alert Alert) {
	a.mu.Lock()
	a.counts[alert.Rule]++
	a.mu.Unlock()

	a.metrics.ObserveAlert(alert.Rule)
	a.logger.Warn(alert.Message, alert.Fields.With("rule", alert.Rule))
}

// Count returns how many alerts rule has raised.
func (a *Alerter) Count(rule string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts[rule]
}

// Counts returns a copy of all per-rule counts.
func (a *Alerter) Counts() map[string]uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]uint64, len(a.counts))
	for k, v := range a.counts {
		out[k] = v
	}
	return out
}
