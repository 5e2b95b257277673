package power

import (
	"context"
	"time"

	"github.com/sweeney/inkdash/internal/logic"
)

// TimerDevice sleeps on a plain timer without suspending the system. It
// stands in for RealDevice on hosts without a GPIO chip.
type TimerDevice struct {
	latch *latch
}

// NewTimerDevice creates a device. Its first wake in a process reports
// NotSleeping.
func NewTimerDevice() *TimerDevice {
	return &TimerDevice{latch: newLatch()}
}

// WakeReason implements Device.
func (t *TimerDevice) WakeReason() (logic.WakeReason, error) {
	return t.latch.reason(false), nil
}

// DeepSleep implements Device.
func (t *TimerDevice) DeepSleep(ctx context.Context, seconds uint16) error {
	t.latch.arm()
	return wait(ctx, time.Duration(seconds)*time.Second, t.latch.presses)
}

// Press simulates the wake button.
func (t *TimerDevice) Press() {
	t.latch.press()
}

// Close implements Device.
func (t *TimerDevice) Close() error {
	return nil
}
