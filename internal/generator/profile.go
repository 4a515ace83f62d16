// Package generator synthesises exposition telemetry and publishes it to the
// broker on a fixed cadence.
package generator

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/drblury/expostream/internal/telemetry"
)

// Occupancy thresholds relative to a pavilion's base visitor count.
const (
	CrowdedFactor = 1.8
	QuietFactor   = 0.3
)

// WheelPeriod is the duration of one full wheel rotation.
const WheelPeriod = 180 * time.Second

// Pavilion is the static simulation table entry for one pavilion.
type Pavilion struct {
	ID              string
	BaseVisitors    int
	Variance        int
	BaseTempF       float64
	BaseWaitMinutes int
}

// Profile is the immutable venue description the generator draws from.
type Profile struct {
	Pavilions   []Pavilion
	Gates       []string
	TicketTypes []telemetry.TicketType

	// Peak hours are [PeakStartHour, PeakEndHour).
	PeakStartHour int
	PeakEndHour   int
	// Off-peak hours are before OffPeakBeforeHour or after OffPeakAfterHour.
	OffPeakBeforeHour int
	OffPeakAfterHour  int

	PeakMultiplier    float64
	OffPeakMultiplier float64

	// Visitor events emitted per tick, inclusive bounds.
	MinVisitorBatch int
	MaxVisitorBatch int
}

// DefaultProfile returns the five pavilions, five gates and four ticket types
// of the 1893 fairground.
func DefaultProfile() Profile {
	return Profile{
		Pavilions: []Pavilion{
			{ID: "ferris_wheel", BaseVisitors: 300, Variance: 150, BaseTempF: 72, BaseWaitMinutes: 25},
			{ID: "palace_of_fine_arts", BaseVisitors: 200, Variance: 100, BaseTempF: 70, BaseWaitMinutes: 10},
			{ID: "electricity_building", BaseVisitors: 250, Variance: 120, BaseTempF: 75, BaseWaitMinutes: 15},
			{ID: "manufactures_building", BaseVisitors: 180, Variance: 90, BaseTempF: 71, BaseWaitMinutes: 12},
			{ID: "transportation_building", BaseVisitors: 220, Variance: 110, BaseTempF: 73, BaseWaitMinutes: 18},
		},
		Gates: []string{
			"north_entrance_1",
			"north_entrance_2",
			"south_entrance_1",
			"east_entrance_1",
			"west_entrance_1",
		},
		TicketTypes:       telemetry.TicketTypes(),
		PeakStartHour:     10,
		PeakEndHour:       14,
		OffPeakBeforeHour: 9,
		OffPeakAfterHour:  18,
		PeakMultiplier:    1.5,
		OffPeakMultiplier: 0.5,
		MinVisitorBatch:   3,
		MaxVisitorBatch:   8,
	}
}

// Validate reports every field that would make generation fail or emit
// readings outside the message invariants.
func (p Profile) Validate() error {
	var errs []error
	if len(p.Pavilions) == 0 {
		errs = append(errs, errors.New("at least one pavilion is required"))
	}
	seen := make(map[string]bool, len(p.Pavilions))
	for i, pav := range p.Pavilions {
		switch {
		case pav.ID == "":
			errs = append(errs, fmt.Errorf("pavilion %d: id is required", i))
		case seen[pav.ID]:
			errs = append(errs, fmt.Errorf("pavilion %q is listed twice", pav.ID))
		}
		seen[pav.ID] = true
		if pav.BaseVisitors < 0 || pav.Variance < 0 || pav.BaseWaitMinutes < 0 {
			errs = append(errs, fmt.Errorf("pavilion %q: base visitors, variance and base wait must not be negative", pav.ID))
		}
	}
	if len(p.Gates) == 0 {
		errs = append(errs, errors.New("at least one gate is required"))
	}
	for i, gate := range p.Gates {
		if gate == "" {
			errs = append(errs, fmt.Errorf("gate %d: id is required", i))
		}
	}
	if len(p.TicketTypes) == 0 {
		errs = append(errs, errors.New("at least one ticket type is required"))
	}
	for _, tt := range p.TicketTypes {
		if !tt.Valid() {
			errs = append(errs, fmt.Errorf("unknown ticket type %q", tt))
		}
	}
	if p.MinVisitorBatch < 0 || p.MaxVisitorBatch < p.MinVisitorBatch {
		errs = append(errs, fmt.Errorf("visitor batch [%d, %d] is not a valid range", p.MinVisitorBatch, p.MaxVisitorBatch))
	}
	if p.PeakMultiplier < 0 || p.OffPeakMultiplier < 0 {
		errs = append(errs, errors.New("time multipliers must not be negative"))
	}
	return errors.Join(errs...)
}

// Pavilion looks up a pavilion by id.
func (p Profile) Pavilion(id string) (Pavilion, bool) {
	for _, pav := range p.Pavilions {
		if pav.ID == id {
			return pav, true
		}
	}
	return Pavilion{}, false
}

// TimeMultiplier scales base visitor counts by hour of day.
func (p Profile) TimeMultiplier(hour int) float64 {
	switch {
	case hour >= p.PeakStartHour && hour < p.PeakEndHour:
		return p.PeakMultiplier
	case hour < p.OffPeakBeforeHour || hour > p.OffPeakAfterHour:
		return p.OffPeakMultiplier
	default:
		return 1.0
	}
}

// TimeMultiplier applies the default profile's hour bands.
func TimeMultiplier(hour int) float64 {
	return DefaultProfile().TimeMultiplier(hour)
}

// DeriveStatus labels a visitor count against the pavilion's base.
func DeriveStatus(count, base int) telemetry.PavilionStatus {
	switch c, b := float64(count), float64(base); {
	case c > b*CrowdedFactor:
		return telemetry.StatusCrowded
	case c < b*QuietFactor:
		return telemetry.StatusQuiet
	default:
		return telemetry.StatusNormal
	}
}

// WheelHeight is the cart height at t: a triangular wave between 0 and the
// wheel's full height, with period WheelPeriod.
func WheelHeight(t time.Time) float64 {
	period := WheelPeriod.Nanoseconds()
	offset := t.UnixNano() % period
	if offset < 0 {
		offset += period
	}
	position := float64(offset) / float64(period)
	return round(telemetry.MaxWheelHeightFeet*math.Abs(2*position-1), 2)
}

func round(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}
