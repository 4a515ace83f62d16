package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/expostream/internal/runtime/errors"
	"github.com/drblury/expostream/internal/runtime/metadata"
)

var fixedTime = time.Date(2026, 5, 1, 11, 30, 15, 123456789, time.UTC)

func samplePavilion() PavilionReading {
	return PavilionReading{
		Timestamp:         fixedTime,
		PavilionID:        "ferris_wheel",
		VisitorCount:      550,
		TemperatureF:      73.41,
		HumidityPercent:   51.07,
		WaitTimeMinutes:   31,
		OperationalStatus: StatusCrowded,
		Metadata:          SensorMetadata{SensorID: "sensor_ferris_wheel_3", BatteryLevel: 88.4, SignalStrength: 4},
	}
}

func sampleVisitor() VisitorEvent {
	return VisitorEvent{
		Timestamp:  fixedTime,
		GateID:     "north_entrance_2",
		EventType:  EventEntry,
		TicketType: TicketSeasonPass,
		VisitorID:  "visitor_2f0c9a3e-1d61-4b7e-9a55-0e4a7a9b8c11",
		Metadata:   ScanMetadata{ScanDurationMs: 241},
	}
}

func sampleWheel() FerrisWheelReading {
	return FerrisWheelReading{
		Timestamp:         fixedTime,
		CartID:            17,
		RotationSpeedRPM:  0.347,
		CurrentHeightFeet: 132.5,
		PassengerCount:    42,
		VibrationLevel:    0.045,
		OperationalStatus: WheelRunning,
		Metadata: WheelMetadata{
			MaintenanceDueHours: 312,
			LastInspection:      time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestTopicsAndPartitionKeys(t *testing.T) {
	assert.Equal(t, []string{"pavilion-sensors", "visitor-events", "ferris-wheel-ops"}, Topics())

	tests := []struct {
		event Event
		topic string
		key   string
		kind  string
	}{
		{samplePavilion(), TopicPavilionSensors, "ferris_wheel", "pavilion_reading"},
		{sampleVisitor(), TopicVisitorEvents, "north_entrance_2", "visitor_event"},
		{sampleWheel(), TopicFerrisWheelOps, "17", "ferris_wheel_reading"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			assert.Equal(t, tt.topic, tt.event.Topic())
			assert.Equal(t, tt.key, tt.event.PartitionKey())
			assert.Equal(t, tt.kind, tt.event.Kind())
			assert.True(t, tt.event.OccurredAt().Equal(fixedTime))
		})
	}
}

func TestEncodeUsesWireFieldNames(t *testing.T) {
	payload, err := Encode(samplePavilion())
	require.NoError(t, err)

	s := string(payload)
	for _, field := range []string{
		`"timestamp":"2026-05-01T11:30:15.123456789Z"`,
		`"pavilion_id":"ferris_wheel"`,
		`"visitor_count":550`,
		`"operational_status":"crowded"`,
		`"metadata":{"sensor_id":"sensor_ferris_wheel_3"`,
		`"signal_strength":4`,
	} {
		assert.Contains(t, s, field)
	}

	payload, err = Encode(sampleVisitor())
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"metadata":{"scan_duration_ms":241}`)
}

func TestEncodeRequiresEvent(t *testing.T) {
	_, err := Encode(nil)
	assert.ErrorIs(t, err, errors.ErrEventRequired)
}

func TestRoundTrip(t *testing.T) {
	t.Run("pavilion", func(t *testing.T) {
		in := samplePavilion()
		payload, err := Encode(in)
		require.NoError(t, err)
		out, err := Decode[PavilionReading](payload)
		require.NoError(t, err)
		assertSameInstant(t, in.Timestamp, out.Timestamp)
		out.Timestamp = in.Timestamp
		assert.Equal(t, in, out)
	})

	t.Run("visitor", func(t *testing.T) {
		in := sampleVisitor()
		payload, err := Encode(in)
		require.NoError(t, err)
		out, err := Decode[VisitorEvent](payload)
		require.NoError(t, err)
		assertSameInstant(t, in.Timestamp, out.Timestamp)
		out.Timestamp = in.Timestamp
		assert.Equal(t, in, out)
	})

	t.Run("ferris wheel", func(t *testing.T) {
		in := sampleWheel()
		payload, err := Encode(in)
		require.NoError(t, err)
		out, err := Decode[FerrisWheelReading](payload)
		require.NoError(t, err)
		assertSameInstant(t, in.Timestamp, out.Timestamp)
		assertSameInstant(t, in.Metadata.LastInspection, out.Metadata.LastInspection)
		out.Timestamp = in.Timestamp
		out.Metadata.LastInspection = in.Metadata.LastInspection
		assert.Equal(t, in, out)
	})
}

func assertSameInstant(t *testing.T, want, got time.Time) {
	t.Helper()
	assert.True(t, want.Equal(got), "want %s, got %s", want, got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestDecodeRejectsMalformedPayload(t *testing.T) {
	_, err := Decode[PavilionReading]([]byte(`{"visitor_count":`))
	assert.ErrorContains(t, err, "decode pavilion_reading")
}

func TestNewMessage(t *testing.T) {
	event := sampleWheel()
	msg, err := NewMessage(event, metadata.New(metadata.KeySource, "simulator"))
	require.NoError(t, err)

	assert.Len(t, msg.UUID, 26)
	assert.Equal(t, "17", PartitionKeyFromMessage(msg))
	assert.Equal(t, "ferris_wheel_reading", msg.Metadata.Get(metadata.KeyEventSchema))
	assert.Equal(t, "simulator", msg.Metadata.Get(metadata.KeySource))

	decoded, err := Decode[FerrisWheelReading](msg.Payload)
	require.NoError(t, err)
	assert.Equal(t, event.CartID, decoded.CartID)

	assert.Empty(t, PartitionKeyFromMessage(nil))
}

func TestNewMessageWithoutMetadata(t *testing.T) {
	msg, err := NewMessage(sampleVisitor(), nil)
	require.NoError(t, err)
	assert.Equal(t, "north_entrance_2", PartitionKeyFromMessage(msg))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, samplePavilion().Validate())
	assert.NoError(t, sampleVisitor().Validate())
	assert.NoError(t, sampleWheel().Validate())

	badPavilion := samplePavilion()
	badPavilion.VisitorCount = -1
	badPavilion.HumidityPercent = 101
	badPavilion.OperationalStatus = "packed"
	err := badPavilion.Validate()
	assert.ErrorContains(t, err, "visitor_count -1 is negative")
	assert.ErrorContains(t, err, "humidity_percent")
	assert.ErrorContains(t, err, `unknown operational_status "packed"`)

	badVisitor := VisitorEvent{EventType: "wander", TicketType: "vip"}
	err = badVisitor.Validate()
	assert.ErrorContains(t, err, "gate_id is required")
	assert.ErrorContains(t, err, "visitor_id is required")
	assert.ErrorContains(t, err, `unknown ticket_type "vip"`)

	badWheel := sampleWheel()
	badWheel.CartID = 37
	badWheel.CurrentHeightFeet = 265
	badWheel.PassengerCount = 61
	err = badWheel.Validate()
	assert.ErrorContains(t, err, "cart_id 37 outside [1,36]")
	assert.ErrorContains(t, err, "current_height_feet")
	assert.ErrorContains(t, err, "passenger_count 61")
}

func TestEnumValidity(t *testing.T) {
	for _, tt := range TicketTypes() {
		assert.True(t, tt.Valid())
	}
	assert.True(t, StatusQuiet.Valid())
	assert.False(t, PavilionStatus("").Valid())
	assert.True(t, WheelBoarding.Valid())
	assert.False(t, WheelStatus("stopped").Valid())
	assert.True(t, EventExit.Valid())
	assert.False(t, GateEventType("").Valid())
}
