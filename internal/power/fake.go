package power

import (
	"context"

	"github.com/sweeney/inkdash/internal/logic"
)

// FakeDevice is a test double that returns scripted wake reasons.
type FakeDevice struct {
	// Reasons contains scripted wake reasons. Each call to WakeReason()
	// consumes the next one; once exhausted the last repeats.
	Reasons []logic.WakeReason

	index int

	// WakeError, if set, will be returned by WakeReason()
	WakeError error

	// SleepError, if set, will be returned by DeepSleep()
	SleepError error

	// Sleeps records the seconds passed to each DeepSleep call.
	Sleeps []uint16

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeDevice creates a FakeDevice with the given reasons.
func NewFakeDevice(reasons ...logic.WakeReason) *FakeDevice {
	return &FakeDevice{Reasons: reasons}
}

// WakeReason returns the next scripted reason, or NotSleeping when none are
// configured.
func (f *FakeDevice) WakeReason() (logic.WakeReason, error) {
	if f.WakeError != nil {
		return logic.WakeNotSleeping, f.WakeError
	}
	if len(f.Reasons) == 0 {
		return logic.WakeNotSleeping, nil
	}

	reason := f.Reasons[f.index]
	if f.index < len(f.Reasons)-1 {
		f.index++
	}
	return reason, nil
}

// DeepSleep records the request and returns immediately.
func (f *FakeDevice) DeepSleep(ctx context.Context, seconds uint16) error {
	f.Sleeps = append(f.Sleeps, seconds)
	if f.SleepError != nil {
		return f.SleepError
	}
	return ctx.Err()
}

// Close marks the device as closed.
func (f *FakeDevice) Close() error {
	f.Closed = true
	return nil
}
