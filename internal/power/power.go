// Package power reports why the device woke and puts it back to sleep.
// The real implementation uses a GPIO button line and the RTC wake alarm.
// The fake implementation allows testing without hardware.
package power

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/inkdash/internal/errcode"
	"github.com/sweeney/inkdash/internal/logic"
)

// Device is the wake-cause source and sleep controller.
type Device interface {
	// WakeReason returns why execution resumed. It has no side effects and
	// is called once per wake.
	WakeReason() (logic.WakeReason, error)

	// DeepSleep suspends for the given number of seconds and returns on
	// resume.
	DeepSleep(ctx context.Context, seconds uint16) error

	// Close releases hardware resources.
	Close() error
}

// ResumeGrace is how late past its recorded deadline a wake still counts as
// the alarm. A later wake follows a restart or a power loss.
const ResumeGrace = 2 * time.Minute

// earlyTolerance absorbs RTC rounding when the alarm fires.
const earlyTolerance = 2 * time.Second

// Classify queries dev for the wake reason. A failed query is reported as a
// cold start so the wake ends in a full refresh; the returned code is
// errcode.OK unless the query failed.
//
// A device that starts a new process for every wake has no memory of having
// slept and reports NotSleeping. The deadline the previous wake recorded
// then decides, see Resumed.
func Classify(dev Device, sleptUntil, now time.Time, log *zap.Logger) (logic.WakeReason, errcode.Code) {
	reason, err := dev.WakeReason()
	if err != nil {
		code := errcode.Of(err)
		log.Warn("Failed to query wake cause, treating as cold start",
			zap.String("code", string(code)),
			zap.Error(err),
		)
		return logic.WakeNotSleeping, code
	}
	if reason == logic.WakeNotSleeping {
		reason = Resumed(sleptUntil, now)
		if reason != logic.WakeNotSleeping {
			log.Debug("Wake cause taken from the recorded sleep",
				zap.Stringer("wake", reason),
				zap.Time("slept_until", sleptUntil),
			)
		}
	}
	return reason, errcode.OK
}

// Resumed classifies a wake from the deadline of the sleep that preceded it.
// Waking before the deadline means the button cut the sleep short. Waking
// at the deadline, within ResumeGrace, is the alarm. No deadline, or one long
// past, is a cold start.
func Resumed(sleptUntil, now time.Time) logic.WakeReason {
	switch {
	case sleptUntil.IsZero(), now.After(sleptUntil.Add(ResumeGrace)):
		return logic.WakeNotSleeping
	case now.Before(sleptUntil.Add(-earlyTolerance)):
		return logic.WakeButton
	default:
		return logic.WakeAlarm
	}
}

// latch tracks button presses across a sleep. A press that arrives while
// the device is awake is discarded by the next arm.
type latch struct {
	presses chan struct{}
	pressed atomic.Bool
	slept   atomic.Bool
}

func newLatch() *latch {
	return &latch{presses: make(chan struct{}, 1)}
}

func (l *latch) press() {
	l.pressed.Store(true)
	select {
	case l.presses <- struct{}{}:
	default:
	}
}

// arm clears any pending press and marks the device as having slept.
func (l *latch) arm() {
	l.pressed.Store(false)
	select {
	case <-l.presses:
	default:
	}
	l.slept.Store(true)
}

// reason derives the wake reason. held reports whether the button is down
// right now.
func (l *latch) reason(held bool) logic.WakeReason {
	switch {
	case held:
		return logic.WakeButton
	case !l.slept.Load():
		return logic.WakeNotSleeping
	case l.pressed.Load():
		return logic.WakeButton
	default:
		return logic.WakeAlarm
	}
}

// wait blocks for d, returning early on a button press or cancellation.
func wait(ctx context.Context, d time.Duration, presses <-chan struct{}) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-presses:
		return nil
	case <-timer.C:
		return nil
	}
}
