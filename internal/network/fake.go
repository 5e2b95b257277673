package network

import (
	"context"
	"time"
)

// FakeLink is a test double for Link.
type FakeLink struct {
	// Available decides whether Up succeeds.
	Available bool

	// Iface is returned by Name.
	Iface string

	// UpCalls and DownCalls count calls.
	UpCalls   int
	DownCalls int

	connected bool
}

// Up implements Link.
func (f *FakeLink) Up(_ context.Context) bool {
	f.UpCalls++
	f.connected = f.Available
	return f.connected
}

// Down implements Link.
func (f *FakeLink) Down() {
	f.DownCalls++
	f.connected = false
}

// Connected implements Link.
func (f *FakeLink) Connected() bool {
	return f.connected
}

// Name implements Link.
func (f *FakeLink) Name() string {
	return f.Iface
}

// FakeClock is a test double for Clock.
type FakeClock struct {
	T time.Time

	// SyncError, if set, will be returned by Sync()
	SyncError error

	Syncs int
}

// Now returns T.
func (f *FakeClock) Now() time.Time {
	return f.T
}

// Sync implements Clock.
func (f *FakeClock) Sync(_ context.Context) error {
	f.Syncs++
	return f.SyncError
}

// Advance moves the clock forward by d.
func (f *FakeClock) Advance(d time.Duration) {
	f.T = f.T.Add(d)
}
