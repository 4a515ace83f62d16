package telemetry

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/expostream/internal/runtime/errors"
	"github.com/drblury/expostream/internal/runtime/ids"
	"github.com/drblury/expostream/internal/runtime/jsoncodec"
	"github.com/drblury/expostream/internal/runtime/metadata"
)

// Encode serialises an event to its JSON wire form.
func Encode(event Event) ([]byte, error) {
	if event == nil {
		return nil, errors.ErrEventRequired
	}
	payload, err := jsoncodec.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event.Kind(), err)
	}
	return payload, nil
}

// Decode parses a JSON payload into T.
func Decode[T Event](payload []byte) (T, error) {
	var event T
	if err := jsoncodec.Unmarshal(payload, &event); err != nil {
		return event, fmt.Errorf("decode %s: %w", event.Kind(), err)
	}
	return event, nil
}

// NewMessage wraps an event in a watermill message. The id is a ULID stamped
// with the event time; the partition key and schema name travel as headers
// next to any caller supplied metadata.
func NewMessage(event Event, md metadata.Metadata) (*message.Message, error) {
	payload, err := Encode(event)
	if err != nil {
		return nil, err
	}

	msg := message.NewMessage(ids.CreateULIDAt(event.OccurredAt()), payload)
	msg.Metadata = metadata.ToWatermill(md.WithAll(metadata.Metadata{
		metadata.KeyPartitionKey: event.PartitionKey(),
		metadata.KeyEventSchema:  event.Kind(),
	}))
	return msg, nil
}

// PartitionKeyFromMessage returns the partition key a message was built with.
func PartitionKeyFromMessage(msg *message.Message) string {
	if msg == nil {
		return ""
	}
	return msg.Metadata.Get(metadata.KeyPartitionKey)
}
