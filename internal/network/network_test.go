package network

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
)

func netFixture(t *testing.T, operstate string, withRadio bool) (*SysfsLink, string) {
	t.Helper()
	root := t.TempDir()
	iface := filepath.Join(root, "wlan0")
	require.NoError(t, os.MkdirAll(iface, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(iface, "operstate"), []byte(operstate+"\n"), 0o644))

	soft := ""
	if withRadio {
		dir := filepath.Join(iface, "phy80211", "rfkill1")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		soft = filepath.Join(dir, "soft")
		require.NoError(t, os.WriteFile(soft, []byte("1"), 0o644))
	}

	l := NewSysfsLink("wlan0", zap.NewNop())
	l.Root = root
	l.Poll = time.Millisecond
	return l, soft
}

func TestSysfsLinkUpDown(t *testing.T) {
	l, soft := netFixture(t, "up", true)

	require.True(t, l.Up(context.Background()))
	assert.True(t, l.Connected())
	v, _ := os.ReadFile(soft)
	assert.Equal(t, "0", string(v), "radio unblocked")

	l.Down()
	assert.False(t, l.Connected())
	v, _ = os.ReadFile(soft)
	assert.Equal(t, "1", string(v), "radio blocked")
}

func TestSysfsLinkWaitsForOperstate(t *testing.T) {
	l, _ := netFixture(t, "dormant", false)
	operstate := filepath.Join(l.Root, "wlan0", "operstate")

	go func() {
		time.Sleep(20 * time.Millisecond)
		os.WriteFile(operstate, []byte("up\n"), 0o644)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.True(t, l.Up(ctx), "link comes up once operstate changes")
}

func TestSysfsLinkTimeout(t *testing.T) {
	l, _ := netFixture(t, "down", false)
	core, logs := observer.New(zapcore.WarnLevel)
	l.log = zap.New(core)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.False(t, l.Up(ctx))
	assert.False(t, l.Connected())

	entries := logs.FilterMessage("Network not available").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "network_unavailable", entries[0].ContextMap()["code"])
}

func TestSysfsLinkMissingInterface(t *testing.T) {
	l := NewSysfsLink("eth9", zap.NewNop())
	l.Root = t.TempDir()
	assert.False(t, l.Up(context.Background()))
}

func TestSystemClockSync(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "synchronized")
	c := &SystemClock{Marker: marker, Poll: time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, c.Sync(ctx), "no marker yet")

	require.NoError(t, os.WriteFile(marker, nil, 0o644))
	assert.NoError(t, c.Sync(context.Background()))
}

func TestFakes(t *testing.T) {
	link := &FakeLink{}
	assert.False(t, link.Up(context.Background()), "unavailable fake link")
	link.Available = true
	assert.True(t, link.Up(context.Background()))
	assert.True(t, link.Connected())
	link.Down()
	assert.False(t, link.Connected())
	assert.Equal(t, 2, link.UpCalls)
	assert.Equal(t, 1, link.DownCalls)

	clock := &FakeClock{T: time.Date(2024, 3, 4, 21, 7, 30, 0, time.UTC)}
	clock.Advance(30 * time.Second)
	assert.Equal(t, time.Date(2024, 3, 4, 21, 8, 0, 0, time.UTC), clock.Now())
}
