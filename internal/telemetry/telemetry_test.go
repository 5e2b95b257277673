package telemetry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"

	"github.com/sweeney/inkdash/internal/errcode"
)

var at = time.Date(2024, 3, 4, 21, 7, 0, 0, time.UTC)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestSysfsSensors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "supply", "BAT0", "voltage_now"), "3741000\n")
	writeFile(t, filepath.Join(root, "thermal", "temp"), "21650\n")

	s := &SysfsSensors{
		SupplyRoot:  filepath.Join(root, "supply"),
		Supply:      "BAT0",
		ThermalPath: filepath.Join(root, "thermal", "temp"),
		StorageDir:  root,
	}

	v, err := s.BatteryVoltage()
	require.NoError(t, err)
	assert.InDelta(t, 3.741, v, 1e-9)

	temp, err := s.InsideTemperature()
	require.NoError(t, err)
	assert.Equal(t, int8(22), temp)

	assert.True(t, s.StorageOK())
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "test file is removed")
}

func TestSysfsSensorsClampsTemperature(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temp")
	writeFile(t, path, "180000")
	s := &SysfsSensors{ThermalPath: path}

	temp, err := s.InsideTemperature()
	require.NoError(t, err)
	assert.Equal(t, int8(127), temp)
}

func TestSysfsSensorsFailures(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "BAT0", "voltage_now"), "n/a")

	s := &SysfsSensors{SupplyRoot: root, Supply: "BAT0", ThermalPath: filepath.Join(root, "missing")}

	_, err := s.BatteryVoltage()
	assert.Equal(t, errcode.HardwareQueryFailure, errcode.Of(err))
	_, err = s.InsideTemperature()
	assert.Equal(t, errcode.HardwareQueryFailure, errcode.Of(err))

	assert.False(t, s.StorageOK(), "no storage directory configured")
	s.StorageDir = filepath.Join(root, "missing")
	assert.False(t, s.StorageOK())
}

func TestReadWarnsAndContinues(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s := &FakeSensors{
		Temperature:  19,
		Storage:      true,
		VoltageError: errcode.New(errcode.HardwareQueryFailure, "telemetry", errors.New("no such file")),
	}

	r := Read(s, true, zap.New(core))
	assert.Equal(t, Reading{StorageOK: true, NetworkConnected: true, InsideTemperature: 19}, r)
	assert.Equal(t, 1, logs.FilterMessage("Failed to read battery voltage").Len())
}

func TestBatteryLogAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battery.csv")
	log := NewBatteryLog(path)
	ctx := context.Background()

	require.NoError(t, log.Record(ctx, at, Reading{StorageOK: true, BatteryVoltage: 3.741}))
	require.NoError(t, log.Record(ctx, at.Add(10*time.Minute), Reading{StorageOK: true, BatteryVoltage: 3.7}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-04T21:07:00,3.74\n2024-03-04T21:17:00,3.70\n", string(data))
}

func TestBatteryLogSkipsWithoutStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battery.csv")
	err := NewBatteryLog(path).Record(context.Background(), at, Reading{BatteryVoltage: 3.7})

	assert.Equal(t, errcode.StorageUnavailable, errcode.Of(err))
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "nothing written")
}

func TestBatteryLogUnwritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "battery.csv")
	err := NewBatteryLog(path).Record(context.Background(), at, Reading{StorageOK: true})
	assert.Equal(t, errcode.StorageUnavailable, errcode.Of(err))
}

type fakeExec struct {
	sql  []string
	args [][]any
	tag  string
	err  error
}

func (f *fakeExec) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	f.sql = append(f.sql, sql)
	f.args = append(f.args, args)
	return pgconn.NewCommandTag(f.tag), nil
}

func TestPGSinkRecord(t *testing.T) {
	db := &fakeExec{tag: "INSERT 0 1"}
	s := &PGSink{db: db, ready: true}

	require.NoError(t, s.Record(context.Background(), at, Reading{BatteryVoltage: 3.74, InsideTemperature: -4}))
	require.Len(t, db.args, 1)
	assert.Contains(t, db.sql[0], "INSERT INTO battery_log")
	assert.Equal(t, []any{at, 3.74, int16(-4)}, db.args[0])
}

func TestPGSinkErrors(t *testing.T) {
	s := &PGSink{db: &fakeExec{err: errors.New("connection refused")}}
	err := s.Record(context.Background(), at, Reading{})
	assert.Equal(t, errcode.StorageUnavailable, errcode.Of(err))

	s = &PGSink{db: &fakeExec{tag: "INSERT 0 0"}, ready: true}
	err = s.Record(context.Background(), at, Reading{})
	assert.Equal(t, errcode.StorageUnavailable, errcode.Of(err))
}

func TestPGSinkCreatesTableOnFirstRecord(t *testing.T) {
	db := &fakeExec{tag: "INSERT 0 1"}
	s := &PGSink{db: db}

	require.NoError(t, s.Record(context.Background(), at, Reading{BatteryVoltage: 3.7}))
	require.NoError(t, s.Record(context.Background(), at, Reading{BatteryVoltage: 3.6}))

	require.Len(t, db.sql, 3)
	assert.Contains(t, db.sql[0], "CREATE TABLE IF NOT EXISTS battery_log")
	assert.Contains(t, db.sql[1], "INSERT INTO battery_log")
	assert.Contains(t, db.sql[2], "INSERT INTO battery_log")
	s.Close()
}

func TestPGSinkSchemaFailureRetried(t *testing.T) {
	db := &fakeExec{err: errors.New("no route to host")}
	s := &PGSink{db: db}

	err := s.Record(context.Background(), at, Reading{})
	assert.Equal(t, errcode.StorageUnavailable, errcode.Of(err))
	assert.False(t, s.ready)

	db.err = nil
	db.tag = "INSERT 0 1"
	require.NoError(t, s.Record(context.Background(), at, Reading{}))
	assert.True(t, s.ready)
}

func TestRecordAllSkipsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	broken := &FakeSink{RecordError: errcode.StorageUnavailable}
	good := &FakeSink{}

	codes := RecordAll(context.Background(), []Sink{broken, good}, at, Reading{BatteryVoltage: 3.9}, zap.New(core))

	assert.Equal(t, []errcode.Code{errcode.StorageUnavailable}, codes)
	assert.Len(t, good.Readings, 1)
	entries := logs.FilterMessage("Failed to record telemetry").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "storage_unavailable", entries[0].ContextMap()["code"])
}
