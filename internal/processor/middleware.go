package processor

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/drblury/expostream/internal/runtime/ids"
	"github.com/drblury/expostream/internal/runtime/jsoncodec"
	"github.com/drblury/expostream/internal/runtime/logging"
	"github.com/drblury/expostream/internal/runtime/metadata"
)

// TracerName identifies spans started by the processor.
const TracerName = "github.com/drblury/expostream/processor"

// chainFor builds the middleware stack wrapped around every handler of topic.
// The first entry is outermost.
func (p *Processor) chainFor(topic string) []message.HandlerMiddleware {
	mws := []message.HandlerMiddleware{
		correlationIDMiddleware,
		logMessagesMiddleware(p.logger),
		tracerMiddleware(topic),
		jobHooksMiddleware(topic, p.hooks),
		middleware.Recoverer,
	}
	return append(mws, p.opts.Middlewares...)
}

func wrap(h message.HandlerFunc, mws []message.HandlerMiddleware) message.HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// correlationIDMiddleware stamps a correlation id on messages that lack one.
func correlationIDMiddleware(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		if middleware.MessageCorrelationID(msg) == "" {
			middleware.SetCorrelationID(ids.CreateULID(), msg)
		}
		return h(msg)
	}
}

// logMessagesMiddleware logs payload and metadata at debug level. Payloads
// that are not JSON are logged by size only.
func logMessagesMiddleware(logger logging.ServiceLogger) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			md := metadata.FromWatermill(msg.Metadata)
			fields := logging.LogFields{
				"message_uuid":   msg.UUID,
				"correlation_id": md.CorrelationID(),
				"metadata":       md,
			}
			if jsoncodec.Valid(msg.Payload) {
				fields["payload"] = string(msg.Payload)
			} else {
				fields["payload_bytes"] = len(msg.Payload)
			}
			logger.Debug("Processing message", fields)
			return h(msg)
		}
	}
}

// tracerMiddleware wraps handling in an OpenTelemetry span.
func tracerMiddleware(topic string) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			ctx, span := otel.Tracer(TracerName).Start(msg.Context(), "process "+topic, trace.WithSpanKind(trace.SpanKindConsumer))
			defer span.End()
			msg.SetContext(ctx)

			span.SetAttributes(
				attribute.String("messaging.destination.name", topic),
				attribute.String("message.uuid", msg.UUID),
				attribute.String("message.partition_key", msg.Metadata.Get(metadata.KeyPartitionKey)),
				attribute.String("message.correlation_id", middleware.MessageCorrelationID(msg)),
			)

			msgs, err := h(msg)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return msgs, err
		}
	}
}
