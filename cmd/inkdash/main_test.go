package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"

	"github.com/sweeney/inkdash/internal/config"
	"github.com/sweeney/inkdash/internal/display"
	"github.com/sweeney/inkdash/internal/fetch"
	"github.com/sweeney/inkdash/internal/logic"
	"github.com/sweeney/inkdash/internal/mqtt"
	"github.com/sweeney/inkdash/internal/network"
	"github.com/sweeney/inkdash/internal/power"
	"github.com/sweeney/inkdash/internal/scheduler"
	"github.com/sweeney/inkdash/internal/state"
	"github.com/sweeney/inkdash/internal/store"
	"github.com/sweeney/inkdash/internal/telemetry"
)

func TestOpenStoreFile(t *testing.T) {
	cfg := config.Config{StorePath: filepath.Join(t.TempDir(), "retained.json"), RefreshPeriod: 10}
	st, closeStore := openStore(cfg)
	defer closeStore()

	assert.IsType(t, &store.FileStore{}, st)
	assert.Equal(t, cfg.StorePath, storeName(cfg))
}

func TestOpenStoreRedis(t *testing.T) {
	cfg := config.Config{RedisAddr: "127.0.0.1:6379", RefreshPeriod: 10}
	st, closeStore := openStore(cfg)
	defer closeStore()

	assert.IsType(t, &store.RedisStore{}, st)
	assert.Equal(t, "redis://127.0.0.1:6379", storeName(cfg))
}

func TestOpenPanelNone(t *testing.T) {
	panel := openPanel(config.Config{Panel: "none"}, zap.NewNop())
	require.IsType(t, &display.MemoryPanel{}, panel)
	assert.Equal(t, display.DefaultMemoryBounds, panel.Bounds())
}

func TestOpenSinks(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "battery.csv")

	sinks, closeSinks := openSinks(context.Background(), config.Config{}, zap.NewNop())
	closeSinks()
	assert.Empty(t, sinks, "no sinks by default")

	sinks, closeSinks = openSinks(context.Background(), config.Config{BatteryLog: logPath}, zap.NewNop())
	defer closeSinks()
	require.Len(t, sinks, 1)
	assert.IsType(t, &telemetry.BatteryLog{}, sinks[0])
}

func TestOpenSinksBadPostgresURL(t *testing.T) {
	sinks, closeSinks := openSinks(context.Background(), config.Config{PostgresURL: "postgres://%zz"}, zap.NewNop())
	defer closeSinks()
	assert.Empty(t, sinks, "the Postgres sink is skipped")
}

func TestStorageDir(t *testing.T) {
	assert.Empty(t, storageDir(config.Config{}))
	assert.Equal(t, "/mnt/sd", storageDir(config.Config{BatteryLog: "/mnt/sd/battery.csv"}))
}

func TestPrintStateEmpty(t *testing.T) {
	cfg := config.Config{
		StorePath:     filepath.Join(t.TempDir(), "retained.json"),
		RefreshPeriod: 10,
		PrintState:    true,
	}
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), cfg, zap.NewNop(), &out))
	assert.True(t, strings.HasPrefix(out.String(), "No retained block:"), "got %q", out.String())
}

func TestPrintStateSaved(t *testing.T) {
	cfg := config.Config{
		StorePath:     filepath.Join(t.TempDir(), "retained.json"),
		RefreshPeriod: 10,
		PrintState:    true,
	}
	retained := store.Retained{Cycle: store.CycleState{Booted: true, RefreshCount: 4, CurrentTimeText: "07:41"}}
	retained.State.CurrentDate = "Tue 3rd Feb"
	require.NoError(t, store.NewFileStore(cfg.StorePath, 10).Save(context.Background(), retained))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, zap.NewNop(), &out))

	var got store.Retained
	require.NoError(t, json.Unmarshal(out.Bytes(), &got), out.String())
	assert.Equal(t, 4, got.Cycle.RefreshCount)
	assert.Equal(t, "07:41", got.Cycle.CurrentTimeText)
	assert.Equal(t, "Tue 3rd Feb", got.State.CurrentDate)
}

// TestRunOnceWithoutHardware runs a single wake against a machine with no
// button line, battery or matching interface. The context is already
// cancelled, so nothing is suspended.
func TestRunOnceWithoutHardware(t *testing.T) {
	cfg := config.Config{
		ServerURL:     "http://127.0.0.1:1",
		FetchTimeout:  time.Second,
		StorePath:     filepath.Join(t.TempDir(), "retained.json"),
		RefreshPeriod: 10,
		ButtonPin:     9999,
		NetIface:      "inkdash-test0",
		BatterySupply: "inkdash-test-bat",
		Panel:         "none",
		Once:          true,
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, run(ctx, cfg, zap.NewNop(), io.Discard))

	saved, err := store.NewFileStore(cfg.StorePath, 10).Load(context.Background())
	require.NoError(t, err)
	assert.True(t, saved.Cycle.Booted)
	assert.Equal(t, 0, saved.Cycle.RefreshCount)
	assert.False(t, saved.Cycle.SleepUntil.IsZero(), "the sleep deadline is saved")
}

// host is a set of fakes that outlives a single serve call, the way the
// store and clock outlive a process.
type host struct {
	store   *store.MemoryStore
	clock   *network.FakeClock
	link    *network.FakeLink
	fetcher *fetch.FakeFetcher
	panel   *display.MemoryPanel
}

func newHost() *host {
	var st state.State
	st.CurrentDate = "Mon 2nd Feb"
	return &host{
		store:   store.NewMemoryStore(logic.DefaultRefreshPeriod),
		clock:   &network.FakeClock{T: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC)},
		link:    &network.FakeLink{Available: true, Iface: "wlan0"},
		fetcher: &fetch.FakeFetcher{Result: st, OK: true},
		panel:   display.NewMemoryPanel(display.DefaultMemoryBounds),
	}
}

// process returns options for a new process: fresh device and publisher.
func (h *host) process(dev *power.FakeDevice, pub *mqtt.FakePublisher, log *zap.Logger) scheduler.Options {
	return scheduler.Options{
		Store:     h.store,
		Device:    dev,
		Link:      h.link,
		Clock:     h.clock,
		Sensors:   &telemetry.FakeSensors{Voltage: 3.8, Temperature: 20, Storage: true},
		Fetcher:   h.fetcher,
		Panel:     h.panel,
		Publisher: pub,
		Log:       log,
	}
}

func (h *host) saved(t *testing.T) store.Retained {
	t.Helper()
	r, err := h.store.Load(context.Background())
	require.NoError(t, err)
	return r
}

func onceConfig() config.Config {
	return config.Config{ServerURL: "http://dashboard.lan", RefreshPeriod: logic.DefaultRefreshPeriod, Panel: "none", Once: true}
}

func TestServeOnceAcrossInvocations(t *testing.T) {
	h := newHost()

	var counts []int
	for i := 0; i < 4; i++ {
		dev := power.NewFakeDevice()
		require.NoError(t, serve(context.Background(), onceConfig(), h.process(dev, mqtt.NewFakePublisher(), zap.NewNop())))
		require.Len(t, dev.Sleeps, 1)

		saved := h.saved(t)
		counts = append(counts, saved.Cycle.RefreshCount)
		h.clock.T = saved.Cycle.SleepUntil
	}

	assert.Equal(t, []int{0, 1, 2, 3}, counts)
	assert.Equal(t, 1, h.fetcher.Calls, "only the first invocation fetched")
}

func TestServeOnceSleepFailure(t *testing.T) {
	h := newHost()
	dev := power.NewFakeDevice()
	dev.SleepError = errors.New("rtc busy")

	err := serve(context.Background(), onceConfig(), h.process(dev, mqtt.NewFakePublisher(), zap.NewNop()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rtc busy")
}

func TestServeOnceKeepsOutboxForNextRun(t *testing.T) {
	h := newHost()
	h.link.Available = false

	pub := mqtt.NewFakePublisher()
	pub.Offline = true
	require.NoError(t, serve(context.Background(), onceConfig(), h.process(power.NewFakeDevice(), pub, zap.NewNop())))
	queued := h.saved(t).Outbox
	require.NotEmpty(t, queued)

	next := mqtt.NewFakePublisher()
	h.clock.T = h.saved(t).Cycle.SleepUntil
	require.NoError(t, serve(context.Background(), onceConfig(), h.process(power.NewFakeDevice(), next, zap.NewNop())))

	assert.Equal(t, 1, next.Resumes)
	assert.Equal(t, queued, next.Queue[:len(queued)])
}

func TestServePublishesShutdownOnSignal(t *testing.T) {
	h := newHost()
	core, logs := observer.New(zapcore.InfoLevel)
	pub := mqtt.NewFakePublisher()

	sig := make(chan os.Signal, 1)
	ctx, cancel := watchSignals(context.Background(), sig)
	defer cancel()
	sig <- syscall.SIGTERM
	<-ctx.Done()

	cfg := onceConfig()
	cfg.Once = false
	require.NoError(t, serve(ctx, cfg, h.process(power.NewFakeDevice(), pub, zap.New(core))))

	require.NotEmpty(t, pub.SystemEvents)
	last := pub.SystemEvents[len(pub.SystemEvents)-1]
	assert.Equal(t, "SHUTDOWN", last.Event)
	assert.Equal(t, "SIGTERM", last.Reason)
	assert.True(t, last.Retained)
	assert.Contains(t, string(pub.SystemPayloads[len(pub.SystemPayloads)-1]), `"reason":"SIGTERM"`)

	entries := logs.FilterMessage("Shutting down").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "SIGTERM", entries[0].ContextMap()["reason"])
}

func TestWatchSignals(t *testing.T) {
	sig := make(chan os.Signal, 1)
	ctx, cancel := watchSignals(context.Background(), sig)
	defer cancel()

	sig <- syscall.SIGINT
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("signal did not cancel the context")
	}
	assert.Equal(t, "SIGINT", shutdownReason(ctx))
}

func TestShutdownReasonWithoutSignal(t *testing.T) {
	ctx, cancel := watchSignals(context.Background(), make(chan os.Signal))
	cancel()

	<-ctx.Done()
	assert.Equal(t, "UNKNOWN", shutdownReason(ctx))
}

func TestSignalName(t *testing.T) {
	assert.Equal(t, "SIGINT", signalName(syscall.SIGINT))
	assert.Equal(t, "SIGTERM", signalName(syscall.SIGTERM))
	assert.Equal(t, "UNKNOWN", signalName(syscall.SIGHUP))
}
