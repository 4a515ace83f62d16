package processor

import (
	"sync/atomic"

	"github.com/drblury/expostream/internal/runtime/logging"
	"github.com/drblury/expostream/internal/telemetry"
)

// Stats counts processed messages for one run. Counters only grow.
type Stats struct {
	pavilion atomic.Uint64
	visitor  atomic.Uint64
	wheel    atomic.Uint64
	errors   atomic.Uint64
}

// Snapshot is a point-in-time copy of Stats. Total excludes errors.
type Snapshot struct {
	PavilionMessages    uint64 `json:"pavilion_messages"`
	VisitorEvents       uint64 `json:"visitor_events"`
	FerrisWheelMessages uint64 `json:"ferris_wheel_messages"`
	Errors              uint64 `json:"errors"`
	Total               uint64 `json:"total"`
}

// Record counts one persisted message on topic. Unknown topics are ignored.
func (s *Stats) Record(topic string) {
	switch topic {
	case telemetry.TopicPavilionSensors:
		s.pavilion.Add(1)
	case telemetry.TopicVisitorEvents:
		s.visitor.Add(1)
	case telemetry.TopicFerrisWheelOps:
		s.wheel.Add(1)
	}
}

// RecordError counts one failed message.
func (s *Stats) RecordError() {
	s.errors.Add(1)
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		PavilionMessages:    s.pavilion.Load(),
		VisitorEvents:       s.visitor.Load(),
		FerrisWheelMessages: s.wheel.Load(),
		Errors:              s.errors.Load(),
	}
	snap.Total = snap.PavilionMessages + snap.VisitorEvents + snap.FerrisWheelMessages
	return snap
}

// LogFields renders the snapshot for a log line.
func (s Snapshot) LogFields() logging.LogFields {
	return logging.LogFields{
		"pavilion_messages":     s.PavilionMessages,
		"visitor_events":        s.VisitorEvents,
		"ferris_wheel_messages": s.FerrisWheelMessages,
		"errors":                s.Errors,
		"total":                 s.Total,
	}
}
