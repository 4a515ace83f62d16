// Package telemetry defines the three message kinds that flow from the
// simulator through the broker into the time-series store, together with
// their topics, partition keys and wire encoding.
package telemetry

import (
	"time"
)

// Topic names.
const (
	TopicPavilionSensors = "pavilion-sensors"
	TopicVisitorEvents   = "visitor-events"
	TopicFerrisWheelOps  = "ferris-wheel-ops"
)

// Topics returns every topic the pipeline uses, in routing order.
func Topics() []string {
	return []string{TopicPavilionSensors, TopicVisitorEvents, TopicFerrisWheelOps}
}

// Wheel geometry and capacity.
const (
	CartCount            = 36
	MaxWheelHeightFeet   = 264.0
	MaxPassengersPerCart = 60
)

// Event is implemented by every message kind.
type Event interface {
	// Topic is the broker topic the event is published to.
	Topic() string
	// PartitionKey groups events that must stay ordered.
	PartitionKey() string
	// Kind names the schema, carried in the event_message_schema header.
	Kind() string
	// OccurredAt is the creation timestamp.
	OccurredAt() time.Time
	// Validate reports every violated field invariant.
	Validate() error
}

// PavilionStatus is the derived occupancy label of a pavilion.
type PavilionStatus string

const (
	StatusQuiet   PavilionStatus = "quiet"
	StatusNormal  PavilionStatus = "normal"
	StatusCrowded PavilionStatus = "crowded"
)

// Valid reports whether s is a known status.
func (s PavilionStatus) Valid() bool {
	switch s {
	case StatusQuiet, StatusNormal, StatusCrowded:
		return true
	}
	return false
}

// WheelStatus is the operational state of a Ferris-wheel cart.
type WheelStatus string

const (
	WheelRunning  WheelStatus = "running"
	WheelBoarding WheelStatus = "boarding"
)

// Valid reports whether s is a known status.
func (s WheelStatus) Valid() bool {
	return s == WheelRunning || s == WheelBoarding
}

// GateEventType says whether a visitor passed a gate inwards or outwards.
type GateEventType string

const (
	EventEntry GateEventType = "entry"
	EventExit  GateEventType = "exit"
)

// Valid reports whether e is a known event type.
func (e GateEventType) Valid() bool {
	return e == EventEntry || e == EventExit
}

// TicketType is the fare class scanned at a gate.
type TicketType string

const (
	TicketGeneral    TicketType = "general"
	TicketSeasonPass TicketType = "season_pass"
	TicketGroup      TicketType = "group"
	TicketStudent    TicketType = "student"
)

// TicketTypes lists every fare class.
func TicketTypes() []TicketType {
	return []TicketType{TicketGeneral, TicketSeasonPass, TicketGroup, TicketStudent}
}

// Valid reports whether t is a known fare class.
func (t TicketType) Valid() bool {
	switch t {
	case TicketGeneral, TicketSeasonPass, TicketGroup, TicketStudent:
		return true
	}
	return false
}
