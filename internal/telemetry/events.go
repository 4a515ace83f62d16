package telemetry

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// SensorMetadata describes the device that produced a pavilion reading.
type SensorMetadata struct {
	SensorID       string  `json:"sensor_id"`
	BatteryLevel   float64 `json:"battery_level"`
	SignalStrength int     `json:"signal_strength"`
}

// PavilionReading is one occupancy and climate sample for a pavilion.
type PavilionReading struct {
	Timestamp         time.Time      `json:"timestamp"`
	PavilionID        string         `json:"pavilion_id"`
	VisitorCount      int            `json:"visitor_count"`
	TemperatureF      float64        `json:"temperature_f"`
	HumidityPercent   float64        `json:"humidity_percent"`
	WaitTimeMinutes   int            `json:"wait_time_minutes"`
	OperationalStatus PavilionStatus `json:"operational_status"`
	Metadata          SensorMetadata `json:"metadata"`
}

func (r PavilionReading) Topic() string         { return TopicPavilionSensors }
func (r PavilionReading) PartitionKey() string  { return r.PavilionID }
func (r PavilionReading) Kind() string          { return "pavilion_reading" }
func (r PavilionReading) OccurredAt() time.Time { return r.Timestamp }

// Validate checks the field invariants of a pavilion reading.
func (r PavilionReading) Validate() error {
	var errs []error
	if r.PavilionID == "" {
		errs = append(errs, errors.New("pavilion_id is required"))
	}
	if r.VisitorCount < 0 {
		errs = append(errs, fmt.Errorf("visitor_count %d is negative", r.VisitorCount))
	}
	if r.HumidityPercent < 0 || r.HumidityPercent > 100 {
		errs = append(errs, fmt.Errorf("humidity_percent %.2f outside [0,100]", r.HumidityPercent))
	}
	if r.WaitTimeMinutes < 0 {
		errs = append(errs, fmt.Errorf("wait_time_minutes %d is negative", r.WaitTimeMinutes))
	}
	if !r.OperationalStatus.Valid() {
		errs = append(errs, fmt.Errorf("unknown operational_status %q", r.OperationalStatus))
	}
	return errors.Join(errs...)
}

// ScanMetadata carries gate scanner details.
type ScanMetadata struct {
	ScanDurationMs int `json:"scan_duration_ms"`
}

// VisitorEvent is a single ticket scan at a gate.
type VisitorEvent struct {
	Timestamp  time.Time     `json:"timestamp"`
	GateID     string        `json:"gate_id"`
	EventType  GateEventType `json:"event_type"`
	TicketType TicketType    `json:"ticket_type"`
	VisitorID  string        `json:"visitor_id"`
	Metadata   ScanMetadata  `json:"metadata"`
}

func (e VisitorEvent) Topic() string         { return TopicVisitorEvents }
func (e VisitorEvent) PartitionKey() string  { return e.GateID }
func (e VisitorEvent) Kind() string          { return "visitor_event" }
func (e VisitorEvent) OccurredAt() time.Time { return e.Timestamp }

// Validate checks the field invariants of a visitor event.
func (e VisitorEvent) Validate() error {
	var errs []error
	if e.GateID == "" {
		errs = append(errs, errors.New("gate_id is required"))
	}
	if !e.EventType.Valid() {
		errs = append(errs, fmt.Errorf("unknown event_type %q", e.EventType))
	}
	if !e.TicketType.Valid() {
		errs = append(errs, fmt.Errorf("unknown ticket_type %q", e.TicketType))
	}
	if e.VisitorID == "" {
		errs = append(errs, errors.New("visitor_id is required"))
	}
	return errors.Join(errs...)
}

// WheelMetadata carries maintenance bookkeeping for the wheel.
type WheelMetadata struct {
	MaintenanceDueHours int       `json:"maintenance_due_hours"`
	LastInspection      time.Time `json:"last_inspection"`
}

// FerrisWheelReading is one operational sample of a wheel cart.
type FerrisWheelReading struct {
	Timestamp         time.Time     `json:"timestamp"`
	CartID            int           `json:"cart_id"`
	RotationSpeedRPM  float64       `json:"rotation_speed_rpm"`
	CurrentHeightFeet float64       `json:"current_height_feet"`
	PassengerCount    int           `json:"passenger_count"`
	VibrationLevel    float64       `json:"vibration_level"`
	OperationalStatus WheelStatus   `json:"operational_status"`
	Metadata          WheelMetadata `json:"metadata"`
}

func (r FerrisWheelReading) Topic() string         { return TopicFerrisWheelOps }
func (r FerrisWheelReading) PartitionKey() string  { return strconv.Itoa(r.CartID) }
func (r FerrisWheelReading) Kind() string          { return "ferris_wheel_reading" }
func (r FerrisWheelReading) OccurredAt() time.Time { return r.Timestamp }

// Validate checks the field invariants of a wheel reading.
func (r FerrisWheelReading) Validate() error {
	var errs []error
	if r.CartID < 1 || r.CartID > CartCount {
		errs = append(errs, fmt.Errorf("cart_id %d outside [1,%d]", r.CartID, CartCount))
	}
	if r.CurrentHeightFeet < 0 || r.CurrentHeightFeet > MaxWheelHeightFeet {
		errs = append(errs, fmt.Errorf("current_height_feet %.2f outside [0,%.0f]", r.CurrentHeightFeet, MaxWheelHeightFeet))
	}
	if r.PassengerCount < 0 || r.PassengerCount > MaxPassengersPerCart {
		errs = append(errs, fmt.Errorf("passenger_count %d outside [0,%d]", r.PassengerCount, MaxPassengersPerCart))
	}
	if !r.OperationalStatus.Valid() {
		errs = append(errs, fmt.Errorf("unknown operational_status %q", r.OperationalStatus))
	}
	return errors.Join(errs...)
}
