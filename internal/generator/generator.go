package generator

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/drblury/expostream/internal/runtime/errors"
	"github.com/drblury/expostream/internal/telemetry"
)

// Generator draws readings from a Profile. It keeps no state between calls
// other than its random source, and is not safe for concurrent use.
type Generator struct {
	profile   Profile
	rng       *rand.Rand
	clock     func() time.Time
	visitorID func() string
}

// Option customises a Generator.
type Option func(*Generator)

// WithRand fixes the random source.
func WithRand(rng *rand.Rand) Option {
	return func(g *Generator) {
		if rng != nil {
			g.rng = rng
		}
	}
}

// WithSeed seeds a PCG random source.
func WithSeed(seed uint64) Option {
	return WithRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// WithClock replaces time.Now. The hour of the returned time, in its own
// location, drives the time-of-day multiplier.
func WithClock(clock func() time.Time) Option {
	return func(g *Generator) {
		if clock != nil {
			g.clock = clock
		}
	}
}

// WithVisitorIDs replaces the visitor id source.
func WithVisitorIDs(next func() string) Option {
	return func(g *Generator) {
		if next != nil {
			g.visitorID = next
		}
	}
}

// NewVisitorID returns a globally unique visitor id.
func NewVisitorID() string {
	return "visitor_" + uuid.NewString()
}

// New returns a Generator for profile, or an error wrapping
// errors.ErrInvalidProfile when the profile cannot be drawn from.
func New(profile Profile, opts ...Option) (*Generator, error) {
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrInvalidProfile, err)
	}
	g := &Generator{
		profile:   profile,
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		clock:     time.Now,
		visitorID: NewVisitorID,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Profile returns the profile the generator draws from.
func (g *Generator) Profile() Profile { return g.profile }

// intBetween draws uniformly from [lo, hi].
func (g *Generator) intBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.rng.IntN(hi-lo+1)
}

// floatBetween draws uniformly from [lo, hi).
func (g *Generator) floatBetween(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

// VisitorBatchSize draws how many visitor events one tick emits.
func (g *Generator) VisitorBatchSize() int {
	return g.intBetween(g.profile.MinVisitorBatch, g.profile.MaxVisitorBatch)
}

// PavilionReading samples one reading for the pavilion with the given id.
func (g *Generator) PavilionReading(id string) (telemetry.PavilionReading, error) {
	pav, ok := g.profile.Pavilion(id)
	if !ok {
		return telemetry.PavilionReading{}, fmt.Errorf("%w: %q", errors.ErrUnknownPavilion, id)
	}

	now := g.clock()
	expected := float64(pav.BaseVisitors) * g.profile.TimeMultiplier(now.Hour())
	count := max(0, int(expected+float64(g.intBetween(-pav.Variance, pav.Variance))))

	return telemetry.PavilionReading{
		Timestamp:         now.UTC(),
		PavilionID:        pav.ID,
		VisitorCount:      count,
		TemperatureF:      round(pav.BaseTempF+g.floatBetween(-3, 3), 2),
		HumidityPercent:   round(g.floatBetween(40, 65), 2),
		WaitTimeMinutes:   max(0, pav.BaseWaitMinutes+g.intBetween(-5, 10)),
		OperationalStatus: DeriveStatus(count, pav.BaseVisitors),
		Metadata: telemetry.SensorMetadata{
			SensorID:       fmt.Sprintf("sensor_%s_%d", pav.ID, g.intBetween(1, 5)),
			BatteryLevel:   round(g.floatBetween(75, 100), 1),
			SignalStrength: g.intBetween(3, 5),
		},
	}, nil
}

// VisitorEvent samples one gate scan.
func (g *Generator) VisitorEvent() telemetry.VisitorEvent {
	eventType := telemetry.EventEntry
	if g.rng.IntN(2) == 1 {
		eventType = telemetry.EventExit
	}
	return telemetry.VisitorEvent{
		Timestamp:  g.clock().UTC(),
		GateID:     g.profile.Gates[g.rng.IntN(len(g.profile.Gates))],
		EventType:  eventType,
		TicketType: g.profile.TicketTypes[g.rng.IntN(len(g.profile.TicketTypes))],
		VisitorID:  g.visitorID(),
		Metadata: telemetry.ScanMetadata{
			ScanDurationMs: g.intBetween(100, 500),
		},
	}
}

// FerrisWheelReading samples one cart. Height depends only on the clock.
func (g *Generator) FerrisWheelReading() telemetry.FerrisWheelReading {
	now := g.clock().UTC()

	// three in four samples find the cart running
	status := telemetry.WheelRunning
	if g.rng.IntN(4) == 3 {
		status = telemetry.WheelBoarding
	}

	return telemetry.FerrisWheelReading{
		Timestamp:         now,
		CartID:            g.intBetween(1, telemetry.CartCount),
		RotationSpeedRPM:  round(g.floatBetween(0.3, 0.4), 3),
		CurrentHeightFeet: WheelHeight(now),
		PassengerCount:    g.intBetween(0, telemetry.MaxPassengersPerCart),
		VibrationLevel:    round(g.floatBetween(0.01, 0.05), 3),
		OperationalStatus: status,
		Metadata: telemetry.WheelMetadata{
			MaintenanceDueHours: g.intBetween(100, 500),
			LastInspection:      time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		},
	}
}
