package processor

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/expostream/internal/runtime/logging"
	"github.com/drblury/expostream/internal/telemetry"
)

// buildRoutes binds each topic to exactly one handler wrapped in the
// middleware chain.
func (p *Processor) buildRoutes() map[string]message.HandlerFunc {
	vibration := HighVibrationRule{Threshold: p.opts.VibrationThreshold}
	crowded := CrowdedPavilionRule{}

	raw := map[string]message.HandlerFunc{
		telemetry.TopicPavilionSensors: persistHandler(p, telemetry.TopicPavilionSensors,
			p.store.InsertPavilionReading,
			func(r telemetry.PavilionReading) {
				if alert, ok := crowded.Evaluate(r); ok {
					p.alerts.Raise(alert)
				}
			}),
		telemetry.TopicVisitorEvents: persistHandler(p, telemetry.TopicVisitorEvents,
			p.store.InsertVisitorEvent, nil),
		telemetry.TopicFerrisWheelOps: persistHandler(p, telemetry.TopicFerrisWheelOps,
			p.store.InsertFerrisWheelReading,
			func(r telemetry.FerrisWheelReading) {
				if alert, ok := vibration.Evaluate(r); ok {
					p.alerts.Raise(alert)
				}
			}),
	}

	routes := make(map[string]message.HandlerFunc, len(raw))
	for topic, h := range raw {
		routes[topic] = wrap(h, p.chainFor(topic))
	}
	return routes
}

// persistHandler decodes a T, writes it through insert and then runs after.
// Events that fail validation are still stored.
func persistHandler[T telemetry.Event](
	p *Processor,
	topic string,
	insert func(context.Context, T) error,
	after func(T),
) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		event, err := telemetry.Decode[T](msg.Payload)
		if err != nil {
			return nil, &DecodeError{Topic: topic, Err: err}
		}

		if err := event.Validate(); err != nil {
			p.logger.Warn("Event outside expected ranges", logging.LogFields{
				"topic":         topic,
				"message_uuid":  msg.UUID,
				"partition_key": event.PartitionKey(),
				"error":         err.Error(),
			})
		}

		if err := insert(msg.Context(), event); err != nil {
			return nil, &PersistError{Topic: topic, Err: err}
		}

		p.stats.Record(topic)
		if after != nil {
			after(event)
		}
		return nil, nil
	}
}
