package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sweeney/inkdash/internal/errcode"
)

const dateTimeLayout = "2006-01-02T15:04:05"

// BatteryLog appends "<date>T<time>,<volts>" lines to a file.
type BatteryLog struct {
	path string
}

// NewBatteryLog creates a log writing to path.
func NewBatteryLog(path string) *BatteryLog {
	return &BatteryLog{path: path}
}

// Name implements Sink.
func (b *BatteryLog) Name() string { return "battery_log" }

// Record implements Sink. Nothing is written while storage is unavailable.
func (b *BatteryLog) Record(_ context.Context, at time.Time, r Reading) error {
	if !r.StorageOK {
		return &errcode.E{C: errcode.StorageUnavailable, Op: "battery_log", Msg: "storage not available"}
	}

	f, err := os.OpenFile(b.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return errcode.New(errcode.StorageUnavailable, "battery_log", err)
	}
	_, err = fmt.Fprintf(f, "%s,%.2f\n", at.Format(dateTimeLayout), r.BatteryVoltage)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errcode.New(errcode.StorageUnavailable, "battery_log", fmt.Errorf("write %s: %w", b.path, err))
	}
	return nil
}

// execer is the subset of *pgxpool.Pool the Postgres sink uses.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS battery_log (
    id                 BIGSERIAL PRIMARY KEY,
    recorded_at        TIMESTAMPTZ NOT NULL,
    battery_voltage    DOUBLE PRECISION NOT NULL,
    inside_temperature SMALLINT NOT NULL
)`

const insertReadingSQL = `
INSERT INTO battery_log (recorded_at, battery_voltage, inside_temperature)
VALUES ($1, $2, $3)`

// PGSink stores readings in a Postgres table. The pool connects lazily and
// the table is created on the first record, since the network is down when
// the sink is built.
type PGSink struct {
	db    execer
	pool  *pgxpool.Pool
	ready bool
}

// NewPGSink creates a sink for databaseURL. No connection is made yet.
func NewPGSink(ctx context.Context, databaseURL string) (*PGSink, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PGSink{db: pool, pool: pool}, nil
}

func (s *PGSink) ensureSchema(ctx context.Context) error {
	if s.ready {
		return nil
	}
	if _, err := s.db.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create battery_log: %w", err)
	}
	s.ready = true
	return nil
}

// Name implements Sink.
func (s *PGSink) Name() string { return "postgres" }

// Record implements Sink.
func (s *PGSink) Record(ctx context.Context, at time.Time, r Reading) error {
	if err := s.ensureSchema(ctx); err != nil {
		return errcode.New(errcode.StorageUnavailable, "postgres", err)
	}
	tag, err := s.db.Exec(ctx, insertReadingSQL, at, r.BatteryVoltage, int16(r.InsideTemperature))
	if err != nil {
		return errcode.New(errcode.StorageUnavailable, "postgres", err)
	}
	if tag.RowsAffected() != 1 {
		return errcode.New(errcode.StorageUnavailable, "postgres",
			errors.New("insert affected "+tag.String()))
	}
	return nil
}

// Close releases the pool.
func (s *PGSink) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
