package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/drblury/expostream/internal/runtime/errors"
	"github.com/drblury/expostream/internal/runtime/logging"
	"github.com/drblury/expostream/internal/runtime/metadata"
	"github.com/drblury/expostream/internal/runtime/metrics"
	"github.com/drblury/expostream/internal/telemetry"
)

// Source is stamped on every message the simulator publishes.
const Source = "simulator"

// ProgressEvery is how many ticks pass between progress log lines.
const ProgressEvery = 10

// DefaultInterval is the tick period when none is configured.
const DefaultInterval = 5 * time.Second

// SimulatorDependencies holds the collaborators of a Simulator. Metrics may
// be nil.
type SimulatorDependencies struct {
	Publisher message.Publisher
	Logger    logging.ServiceLogger
	Metrics   *metrics.Metrics
}

// Simulator publishes one round of readings per interval.
type Simulator struct {
	generator *Generator
	publisher message.Publisher
	logger    logging.ServiceLogger
	metrics   *metrics.Metrics
	interval  time.Duration
}

// NewSimulator wires a generator to a publisher.
func NewSimulator(gen *Generator, interval time.Duration, deps SimulatorDependencies) (*Simulator, error) {
	if gen == nil {
		return nil, errors.ErrGeneratorRequired
	}
	if deps.Publisher == nil {
		return nil, errors.ErrPublisherRequired
	}
	if deps.Logger == nil {
		return nil, errors.ErrLoggerRequired
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Simulator{
		generator: gen,
		publisher: deps.Publisher,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		interval:  interval,
	}, nil
}

// TickResult counts publish outcomes per topic for one tick.
type TickResult struct {
	Published map[string]int
	Failed    map[string]int
}

func newTickResult() TickResult {
	return TickResult{Published: map[string]int{}, Failed: map[string]int{}}
}

// Total returns the number of publish attempts.
func (r TickResult) Total() int {
	return sum(r.Published) + sum(r.Failed)
}

// Merge adds other's counts into r.
func (r TickResult) Merge(other TickResult) {
	for topic, c := range other.Published {
		r.Published[topic] += c
	}
	for topic, c := range other.Failed {
		r.Failed[topic] += c
	}
}

// Publish sends one event to its topic keyed by its partition key. A failure
// is returned to the caller; nothing is buffered or retried here beyond the
// transport's own retries.
func (s *Simulator) Publish(ctx context.Context, event telemetry.Event) error {
	if event == nil {
		return errors.ErrEventRequired
	}

	msg, err := telemetry.NewMessage(event, metadata.New(metadata.KeySource, Source))
	if err != nil {
		return err
	}
	middleware.SetCorrelationID(msg.UUID, msg)
	if ctx != nil {
		msg.SetContext(ctx)
	}

	err = s.publisher.Publish(event.Topic(), msg)
	s.metrics.ObservePublish(event.Topic(), err)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", event.Topic(), err)
	}

	s.logger.Trace("Published telemetry", logging.LogFields{
		"topic":         event.Topic(),
		"partition_key": event.PartitionKey(),
		"message_id":    msg.UUID,
	})
	return nil
}

func (s *Simulator) publishAndCount(ctx context.Context, event telemetry.Event, result TickResult) {
	if err := s.Publish(ctx, event); err != nil {
		result.Failed[event.Topic()]++
		s.logger.Error("Dropping telemetry after publish failure", err, logging.LogFields{
			"topic":         event.Topic(),
			"partition_key": event.PartitionKey(),
		})
		return
	}
	result.Published[event.Topic()]++
}

// Tick publishes one reading per pavilion, a batch of visitor events and one
// wheel reading. Failed publishes are logged and dropped.
func (s *Simulator) Tick(ctx context.Context) TickResult {
	result := newTickResult()

	for _, pav := range s.generator.Profile().Pavilions {
		reading, err := s.generator.PavilionReading(pav.ID)
		if err != nil {
			result.Failed[telemetry.TopicPavilionSensors]++
			s.logger.Error("Failed to generate pavilion reading", err, logging.LogFields{"pavilion_id": pav.ID})
			continue
		}
		s.publishAndCount(ctx, reading, result)
	}

	for range s.generator.VisitorBatchSize() {
		s.publishAndCount(ctx, s.generator.VisitorEvent(), result)
	}

	s.publishAndCount(ctx, s.generator.FerrisWheelReading(), result)
	return result
}

// Run ticks every interval until ctx is cancelled, then closes the publisher.
// Cancellation is only observed between ticks.
func (s *Simulator) Run(ctx context.Context) error {
	profile := s.generator.Profile()
	s.logger.Info("Starting sensor simulation", logging.LogFields{
		"pavilions": len(profile.Pavilions),
		"gates":     len(profile.Gates),
		"interval":  s.interval.String(),
	})

	totals := newTickResult()
	timer := time.NewTimer(0)
	defer timer.Stop()

	for iteration := 1; ; iteration++ {
		select {
		case <-ctx.Done():
			return s.shutdown(totals)
		case <-timer.C:
		}

		totals.Merge(s.Tick(ctx))

		if iteration%ProgressEvery == 0 {
			s.logger.Info("Simulation progress", logging.LogFields{
				"iteration": iteration,
				"published": sum(totals.Published),
				"failed":    sum(totals.Failed),
			})
		}
		timer.Reset(s.interval)
	}
}

func (s *Simulator) shutdown(totals TickResult) error {
	s.logger.Info("Stopping simulation", logging.LogFields{
		"published": sum(totals.Published),
		"failed":    sum(totals.Failed),
	})
	if err := s.publisher.Close(); err != nil {
		return fmt.Errorf("close publisher: %w", err)
	}
	s.logger.Info("Publisher closed", nil)
	return nil
}

func sum(counts map[string]int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}
