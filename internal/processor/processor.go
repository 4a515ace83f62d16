// Package processor consumes the three telemetry topics, persists every event
// to the time-series store, keeps per-run statistics and raises alerts.
//
// Messages are handled strictly one at a time: the per-topic subscription
// channels are merged into a single select loop, and a pulled message is fully
// processed before the next one is taken. Ordering within a partition key is
// therefore whatever the broker delivers.
package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/expostream/internal/runtime/config"
	errspkg "github.com/drblury/expostream/internal/runtime/errors"
	"github.com/drblury/expostream/internal/runtime/logging"
	"github.com/drblury/expostream/internal/runtime/metadata"
	"github.com/drblury/expostream/internal/runtime/metrics"
	"github.com/drblury/expostream/internal/telemetry"
)

// Defaults applied by New when an option is left zero.
const (
	DefaultReconnectBackoff = 5 * time.Second
	DefaultStatsEvery       = 100
)

// Store persists decoded events. Each insert is one transactional unit of
// work.
type Store interface {
	InsertPavilionReading(ctx context.Context, r telemetry.PavilionReading) error
	InsertVisitorEvent(ctx context.Context, e telemetry.VisitorEvent) error
	InsertFerrisWheelReading(ctx context.Context, r telemetry.FerrisWheelReading) error
	Reconnect(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Options tune the processing loop.
type Options struct {
	// ReconnectBackoff is slept after a failed reconnect attempt.
	ReconnectBackoff time.Duration
	// StatsEvery logs a statistics line every N pulled messages.
	StatsEvery int
	// AckMode is config.AckModeAuto or config.AckModePersisted.
	AckMode string
	// VibrationThreshold overrides VibrationThreshold when positive.
	VibrationThreshold float64
	// Middlewares run innermost, after the built-in chain.
	Middlewares []message.HandlerMiddleware
}

// Dependencies holds the collaborators of a Processor. Metrics and Hooks are
// optional.
type Dependencies struct {
	Subscriber message.Subscriber
	Store      Store
	Logger     logging.ServiceLogger
	Metrics    *metrics.Metrics
	Hooks      JobHooks
}

// Processor routes messages from the three topics into the store.
type Processor struct {
	subscriber message.Subscriber
	store      Store
	logger     logging.ServiceLogger
	metrics    *metrics.Metrics
	hooks      JobHooks
	alerts     *Alerter
	stats      Stats
	opts       Options

	routes map[string]message.HandlerFunc
	pulled uint64

	subscribed     chan struct{}
	subscribedOnce sync.Once
}

// New validates deps and applies defaults to opts.
func New(deps Dependencies, opts Options) (*Processor, error) {
	if deps.Subscriber == nil {
		return nil, errspkg.ErrSubscriberRequired
	}
	if deps.Store == nil {
		return nil, errspkg.ErrStoreRequired
	}
	if deps.Logger == nil {
		return nil, errspkg.ErrLoggerRequired
	}

	if opts.ReconnectBackoff <= 0 {
		opts.ReconnectBackoff = DefaultReconnectBackoff
	}
	if opts.StatsEvery <= 0 {
		opts.StatsEvery = DefaultStatsEvery
	}
	switch opts.AckMode {
	case "":
		opts.AckMode = config.AckModeAuto
	case config.AckModeAuto, config.AckModePersisted:
	default:
		return nil, fmt.Errorf("unknown ack mode %q", opts.AckMode)
	}

	p := &Processor{
		subscriber: deps.Subscriber,
		store:      deps.Store,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		hooks:      MetricsHooks(deps.Metrics).Merge(LoggingHooks(deps.Logger)).Merge(deps.Hooks),
		alerts:     NewAlerter(deps.Logger, deps.Metrics),
		opts:       opts,
		subscribed: make(chan struct{}),
	}
	p.routes = p.buildRoutes()
	return p, nil
}

// Route returns the handler bound to topic, or nil when the topic is not
// handled.
func (p *Processor) Route(topic string) message.HandlerFunc {
	return p.routes[topic]
}

// Stats returns the current counters.
func (p *Processor) Stats() Snapshot {
	return p.stats.Snapshot()
}

// Alerts exposes the alert counters.
func (p *Processor) Alerts() *Alerter {
	return p.alerts
}

// Subscribed is closed once Run holds a subscription to every topic.
// Publishers sharing a transport that keeps no backlog wait on it before
// their first publish.
func (p *Processor) Subscribed() <-chan struct{} {
	return p.subscribed
}

// Ready reports whether the store answers.
func (p *Processor) Ready(ctx context.Context) error {
	return p.store.Ping(ctx)
}

// Run subscribes to every topic and processes messages until ctx is cancelled
// or all subscriptions close. It closes the subscriber and the store before
// returning.
func (p *Processor) Run(ctx context.Context) error {
	subs := make([]<-chan *message.Message, 0, len(telemetry.Topics()))
	for _, topic := range telemetry.Topics() {
		ch, err := p.subscriber.Subscribe(ctx, topic)
		if err != nil {
			_ = p.shutdown()
			return fmt.Errorf("subscribe to %s: %w", topic, err)
		}
		subs = append(subs, ch)
	}
	pavilions, visitors, wheel := subs[0], subs[1], subs[2]
	p.subscribedOnce.Do(func() { close(p.subscribed) })

	p.logger.Info("Processor started", logging.LogFields{
		"topics":   telemetry.Topics(),
		"ack_mode": p.opts.AckMode,
	})

	for pavilions != nil || visitors != nil || wheel != nil {
		if ctx.Err() != nil {
			break
		}

		var (
			msg   *message.Message
			topic string
			ok    bool
		)
		select {
		case <-ctx.Done():
			continue
		case msg, ok = <-pavilions:
			topic = telemetry.TopicPavilionSensors
			if !ok {
				pavilions = nil
				continue
			}
		case msg, ok = <-visitors:
			topic = telemetry.TopicVisitorEvents
			if !ok {
				visitors = nil
				continue
			}
		case msg, ok = <-wheel:
			topic = telemetry.TopicFerrisWheelOps
			if !ok {
				wheel = nil
				continue
			}
		}

		_ = p.Process(ctx, topic, msg)

		p.pulled++
		if p.pulled%uint64(p.opts.StatsEvery) == 0 {
			p.logger.Info("Processing statistics", p.stats.Snapshot().LogFields())
		}
	}

	return p.shutdown()
}

// Process handles one message pulled from topic and acks or nacks it. The
// returned error has already been logged and counted.
func (p *Processor) Process(ctx context.Context, topic string, msg *message.Message) error {
	h := p.Route(topic)
	if h == nil {
		p.logger.Debug("Ignoring message from unhandled topic", logging.LogFields{
			"topic":        topic,
			"message_uuid": msg.UUID,
			"reason":       errspkg.ErrUnknownTopic.Error(),
		})
		msg.Ack()
		return nil
	}

	// A write that has started is allowed to finish after shutdown begins.
	msg.SetContext(context.WithoutCancel(msg.Context()))

	_, err := h(msg)
	if err == nil {
		msg.Ack()
		return nil
	}

	p.stats.RecordError()
	fields := logging.LogFields{
		"topic":          topic,
		"message_uuid":   msg.UUID,
		"correlation_id": metadata.FromWatermill(msg.Metadata).CorrelationID(),
	}

	var (
		decodeErr  *DecodeError
		persistErr *PersistError
	)
	switch {
	case errors.As(err, &decodeErr):
		p.logger.Error("Discarding undecodable message", err, fields)
	case errors.As(err, &persistErr):
		p.logger.Error("Failed to persist message", err, fields)
		p.reconnect(ctx)
		if p.opts.AckMode == config.AckModePersisted {
			msg.Nack()
			return err
		}
	default:
		p.logger.Error("Message handler failed", err, fields)
	}

	msg.Ack()
	return err
}

func (p *Processor) reconnect(ctx context.Context) {
	err := p.store.Reconnect(ctx)
	p.metrics.ObserveReconnect(err)
	if err == nil {
		p.logger.Info("Reconnected to store", nil)
		return
	}

	p.logger.Error("Store reconnect failed", err, logging.LogFields{
		"backoff": p.opts.ReconnectBackoff.String(),
	})

	timer := time.NewTimer(p.opts.ReconnectBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (p *Processor) shutdown() error {
	var errs []error
	if err := p.subscriber.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close subscriber: %w", err))
	}
	if err := p.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	p.logger.Info("Processor stopped", p.stats.Snapshot().LogFields())
	if err := errors.Join(errs...); err != nil {
		p.logger.Error("Shutdown incomplete", err, nil)
	}
	return nil
}
