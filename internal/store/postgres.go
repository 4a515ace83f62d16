// Package store persists telemetry into TimescaleDB (or plain Postgres).
package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/drblury/expostream/internal/runtime/jsoncodec"
	"github.com/drblury/expostream/internal/telemetry"
)

// schemaSQL is embedded so the processor can bootstrap an empty database.
//
//go:embed schema.sql
var schemaSQL string

// Table names.
const (
	TableSensorData      = "sensor_data"
	TableVisitorEvents   = "visitor_events"
	TableFerrisWheelData = "ferris_wheel_data"
)

// ConnectTimeout bounds the initial dial and every reconnect.
const ConnectTimeout = 10 * time.Second

// ErrNotConnected is returned while the store holds no live connection, for
// example after a failed reconnect.
var ErrNotConnected = errors.New("store: not connected")

// Conn is the subset of *pgx.Conn the store uses.
type Conn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// ConnectFactory opens a connection. Tests replace it.
var ConnectFactory = func(ctx context.Context, dsn string) (Conn, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// PostgresStore writes each message in its own transaction over a single
// connection that it owns exclusively.
type PostgresStore struct {
	dsn string

	mu   sync.Mutex
	conn Conn
}

// NewPostgresStore connects and pings, failing fast if the database is unreachable.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	s := &PostgresStore{dsn: dsn}
	conn, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	s.conn = conn
	return s, nil
}

func (s *PostgresStore) dial(ctx context.Context) (Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	conn, err := ConnectFactory(ctx, s.dsn)
	if err != nil {
		return nil, fmt.Errorf("connect store: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(context.Background())
		return nil, fmt.Errorf("ping store: %w", err)
	}
	return conn, nil
}

func (s *PostgresStore) current() (Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, ErrNotConnected
	}
	return s.conn, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	conn, err := s.current()
	if err != nil {
		return err
	}
	if _, err := conn.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Ping reports whether the owned connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	conn, err := s.current()
	if err != nil {
		return err
	}
	return conn.Ping(ctx)
}

// Reconnect drops the current connection and dials a new one. When the dial
// fails the store is left disconnected until the next Reconnect.
func (s *PostgresStore) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	old := s.conn
	s.conn = nil
	s.mu.Unlock()

	if old != nil {
		_ = old.Close(ctx)
	}

	conn, err := s.dial(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	return nil
}

// Close releases the connection.
func (s *PostgresStore) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close(context.Background())
}

const insertSensorData = `
	INSERT INTO sensor_data
		(time, pavilion_id, visitor_count, temperature_f, humidity_percent,
		 wait_time_minutes, operational_status, metadata)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const insertVisitorEvent = `
	INSERT INTO visitor_events
		(time, gate_id, event_type, ticket_type, visitor_id, metadata)
	VALUES ($1, $2, $3, $4, $5, $6)`

const insertFerrisWheelData = `
	INSERT INTO ferris_wheel_data
		(time, cart_id, rotation_speed_rpm, current_height_feet,
		 passenger_count, vibration_level, operational_status, metadata)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// InsertPavilionReading writes one sensor_data row.
func (s *PostgresStore) InsertPavilionReading(ctx context.Context, r telemetry.PavilionReading) error {
	md, err := jsoncodec.Marshal(r.Metadata)
	if err != nil {
		return fmt.Errorf("encode sensor metadata: %w", err)
	}
	return s.insert(ctx, TableSensorData, insertSensorData,
		r.Timestamp, r.PavilionID, r.VisitorCount, r.TemperatureF, r.HumidityPercent,
		r.WaitTimeMinutes, string(r.OperationalStatus), md)
}

// InsertVisitorEvent writes one visitor_events row.
func (s *PostgresStore) InsertVisitorEvent(ctx context.Context, e telemetry.VisitorEvent) error {
	md, err := jsoncodec.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("encode scan metadata: %w", err)
	}
	return s.insert(ctx, TableVisitorEvents, insertVisitorEvent,
		e.Timestamp, e.GateID, string(e.EventType), string(e.TicketType), e.VisitorID, md)
}

// InsertFerrisWheelReading writes one ferris_wheel_data row.
func (s *PostgresStore) InsertFerrisWheelReading(ctx context.Context, r telemetry.FerrisWheelReading) error {
	md, err := jsoncodec.Marshal(r.Metadata)
	if err != nil {
		return fmt.Errorf("encode wheel metadata: %w", err)
	}
	return s.insert(ctx, TableFerrisWheelData, insertFerrisWheelData,
		r.Timestamp, r.CartID, r.RotationSpeedRPM, r.CurrentHeightFeet,
		r.PassengerCount, r.VibrationLevel, string(r.OperationalStatus), md)
}

// insert runs one INSERT inside Begin/Commit, rolling back on any failure.
func (s *PostgresStore) insert(ctx context.Context, table, sql string, args ...any) (err error) {
	conn, err := s.current()
	if err != nil {
		return err
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin %s insert: %w", table, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(context.Background())
		}
	}()

	if _, err = tx.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s insert: %w", table, err)
	}
	return nil
}
