package metadata

// Reserved header keys carried alongside every telemetry message.
const (
	// KeyPartitionKey routes a message to a broker partition. Messages sharing
	// a key are delivered in publish order.
	KeyPartitionKey = "partition_key"

	// KeyEventSchema names the Go type of the payload.
	KeyEventSchema = "event_message_schema"

	// KeyCorrelationID tracks a message from the simulator into the store.
	KeyCorrelationID = "correlation_id"

	// KeySource identifies the producing process.
	KeySource = "event_source"
)

// Metadata represents the headers carried alongside an event.
type Metadata map[string]string

func (m Metadata) cloneWithExtra(extra int) Metadata {
	size := len(m) + extra
	if size <= 0 {
		return Metadata{}
	}

	cloned := make(Metadata, size)
	for k, v := range m {
		cloned[k] = v
	}
	return cloned
}

// Clone returns a shallow copy of the metadata map.
func (m Metadata) Clone() Metadata {
	return m.cloneWithExtra(0)
}

// With returns a cloned metadata map containing the provided key/value pair.
func (m Metadata) With(key, value string) Metadata {
	cloned := m.cloneWithExtra(1)
	cloned[key] = value
	return cloned
}

// WithAll returns a cloned metadata map containing the supplied entries.
func (m Metadata) WithAll(entries Metadata) Metadata {
	cloned := m.cloneWithExtra(len(entries))
	for k, v := range entries {
		cloned[k] = v
	}
	return cloned
}

// PartitionKey returns the partition key header, or "" when unset.
func (m Metadata) PartitionKey() string {
	return m[KeyPartitionKey]
}

// CorrelationID returns the correlation header, or "" when unset.
func (m Metadata) CorrelationID() string {
	return m[KeyCorrelationID]
}

// New constructs a Metadata map from alternating key/value pairs.
func New(pairs ...string) Metadata {
	md := make(Metadata, len(pairs)/2)
	for i := 0; i < len(pairs)-1; i += 2 {
		md[pairs[i]] = pairs[i+1]
	}
	return md
}
