package network

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/inkdash/internal/errcode"
)

// DefaultNetRoot is where the kernel lists network interfaces.
const DefaultNetRoot = "/sys/class/net"

const defaultPoll = 250 * time.Millisecond

// SysfsLink drives an interface through sysfs. The radio is switched with
// the interface's rfkill soft switch when it has one; readiness is the
// interface operstate reading "up".
type SysfsLink struct {
	Root  string
	Iface string
	Poll  time.Duration

	log       *zap.Logger
	connected bool
}

// NewSysfsLink creates a link for iface.
func NewSysfsLink(iface string, log *zap.Logger) *SysfsLink {
	return &SysfsLink{Root: DefaultNetRoot, Iface: iface, Poll: defaultPoll, log: log}
}

// Up implements Link.
func (l *SysfsLink) Up(ctx context.Context) bool {
	if err := l.setRadio(true); err != nil {
		l.log.Warn("Failed to unblock radio", zap.String("iface", l.Iface), zap.Error(err))
	}

	err := l.waitUp(ctx)
	if err != nil {
		l.log.Warn("Network not available",
			zap.String("iface", l.Iface),
			zap.String("code", string(errcode.Of(err))),
			zap.Error(err),
		)
	}
	l.connected = err == nil
	return l.connected
}

// Down implements Link.
func (l *SysfsLink) Down() {
	l.connected = false
	if err := l.setRadio(false); err != nil {
		l.log.Warn("Failed to block radio", zap.String("iface", l.Iface), zap.Error(err))
	}
}

// Connected implements Link.
func (l *SysfsLink) Connected() bool {
	return l.connected
}

// Name implements Link.
func (l *SysfsLink) Name() string {
	return l.Iface
}

func (l *SysfsLink) waitUp(ctx context.Context) error {
	poll := l.Poll
	if poll <= 0 {
		poll = defaultPoll
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	path := filepath.Join(l.Root, l.Iface, "operstate")
	for {
		state, err := os.ReadFile(path)
		if err != nil {
			return errcode.New(errcode.NetworkUnavailable, "network", err)
		}
		if strings.TrimSpace(string(state)) == "up" {
			return nil
		}

		select {
		case <-ctx.Done():
			return &errcode.E{
				C:   errcode.NetworkUnavailable,
				Op:  "network",
				Msg: fmt.Sprintf("%s still %s", l.Iface, strings.TrimSpace(string(state))),
				Err: ctx.Err(),
			}
		case <-ticker.C:
		}
	}
}

// setRadio writes the rfkill soft switch. Interfaces without one, such as
// wired ethernet, are left alone.
func (l *SysfsLink) setRadio(on bool) error {
	switches, err := filepath.Glob(filepath.Join(l.Root, l.Iface, "phy80211", "rfkill*", "soft"))
	if err != nil {
		return err
	}
	value := "1"
	if on {
		value = "0"
	}
	for _, path := range switches {
		if err := os.WriteFile(path, []byte(value), 0); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}

// DefaultSyncMarker is created by systemd-timesyncd once the clock is set.
const DefaultSyncMarker = "/run/systemd/timesync/synchronized"

// SystemClock is the host clock. Sync waits for the time daemon's marker.
type SystemClock struct {
	Marker string
	Poll   time.Duration
}

// NewSystemClock creates a clock watching the systemd-timesyncd marker.
func NewSystemClock() *SystemClock {
	return &SystemClock{Marker: DefaultSyncMarker, Poll: defaultPoll}
}

// Now implements Clock.
func (c *SystemClock) Now() time.Time {
	return time.Now()
}

// Sync implements Clock.
func (c *SystemClock) Sync(ctx context.Context) error {
	poll := c.Poll
	if poll <= 0 {
		poll = defaultPoll
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		if _, err := os.Stat(c.Marker); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("clock not synchronised: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
