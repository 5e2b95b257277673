// Package status provides a thread-safe status tracker for the dashboard.
// It is written by the scheduler after every wake and read by HTTP handlers.
package status

import (
	"image"
	"sync"
	"time"

	"github.com/sweeney/inkdash/internal/errcode"
	"github.com/sweeney/inkdash/internal/logic"
	"github.com/sweeney/inkdash/internal/mqtt"
	"github.com/sweeney/inkdash/internal/store"
)

// NetworkInfo describes the network link.
type NetworkInfo struct {
	Interface string
	Connected bool
}

// Config contains daemon configuration for display.
type Config struct {
	ServerURL     string
	Broker        string
	HTTPAddr      string
	Store         string
	RefreshPeriod int
	Panel         string
}

// Cycle summarises one completed wake. This is a local copy of the
// scheduler report so status does not import the scheduler.
type Cycle struct {
	ID                string
	Start             time.Time
	Duration          time.Duration
	Booted            bool
	Reason            logic.WakeReason
	RefreshCount      int
	Action            logic.Action
	Fetched           bool
	TimeText          string
	SleepSeconds      uint16
	BatteryVoltage    float64
	InsideTemperature int8
	Errors            []errcode.Code
	Phases            []logic.Phase
}

// CycleCounts tallies wakes since the process started.
type CycleCounts struct {
	Full          int
	Partial       int
	Fetched       int
	FetchFailures int
	Button        int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type; safe to use after the lock is released.
type Snapshot struct {
	StartTime     time.Time
	Now           time.Time
	Counts        CycleCounts
	Last          *Cycle
	Retained      store.Retained
	HasFrame      bool
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu    sync.RWMutex
	snap  Snapshot
	frame *image.Gray
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Record stores the outcome of a wake together with the retained block it
// saved and the frame that was pushed to the panel. frame may be nil.
func (t *Tracker) Record(c Cycle, retained store.Retained, frame *image.Gray) {
	c.Errors = append([]errcode.Code(nil), c.Errors...)
	c.Phases = append([]logic.Phase(nil), c.Phases...)
	retained.Outbox = append([]mqtt.Message(nil), retained.Outbox...)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.Last = &c
	t.snap.Retained = retained

	if c.Action == logic.ActionFull {
		t.snap.Counts.Full++
		if c.Fetched {
			t.snap.Counts.Fetched++
		} else {
			t.snap.Counts.FetchFailures++
		}
	} else {
		t.snap.Counts.Partial++
	}
	if c.Reason == logic.WakeButton {
		t.snap.Counts.Button++
	}

	if frame != nil {
		cp := image.NewGray(frame.Rect)
		copy(cp.Pix, frame.Pix)
		t.frame = cp
		t.snap.HasFrame = true
	}
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.Last != nil {
		last := *s.Last
		s.Last = &last
	}
	if s.Network != nil {
		n := *s.Network
		s.Network = &n
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

// Frame returns the last frame pushed to the panel, or nil before the first
// wake completes. The returned image is shared and must not be modified.
func (t *Tracker) Frame() *image.Gray {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frame
}
