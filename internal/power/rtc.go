package power

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// Default sysfs paths for the first RTC and the system sleep state.
const (
	DefaultAlarmPath = "/sys/class/rtc/rtc0/wakealarm"
	DefaultStatePath = "/sys/power/state"
)

// RTC suspends the system until its wake alarm fires.
type RTC struct {
	AlarmPath string
	StatePath string
}

// Arm programs the alarm to fire seconds from now. The kernel refuses a new
// alarm while one is pending, so the old one is cleared first.
func (r RTC) Arm(seconds uint16) error {
	if err := writeSysfs(r.AlarmPath, "0"); err != nil {
		return fmt.Errorf("clear wake alarm: %w", err)
	}
	if err := writeSysfs(r.AlarmPath, fmt.Sprintf("+%d", seconds)); err != nil {
		return fmt.Errorf("arm wake alarm: %w", err)
	}
	return nil
}

// Disarm clears a pending alarm.
func (r RTC) Disarm() error {
	return writeSysfs(r.AlarmPath, "0")
}

// Suspend enters suspend-to-RAM. The write returns once the system resumes.
func (r RTC) Suspend() error {
	if err := writeSysfs(r.StatePath, "mem"); err != nil {
		return fmt.Errorf("suspend: %w", err)
	}
	return nil
}

// sleep arms the alarm and suspends. When the system cannot suspend it waits
// out the interval instead, returning early on a button press. A cancelled
// context returns before anything is armed.
func sleep(ctx context.Context, rtc RTC, seconds uint16, presses <-chan struct{}, log *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := rtc.Arm(seconds)
	if err == nil {
		if err = rtc.Suspend(); err == nil {
			return nil
		}
		_ = rtc.Disarm()
	}

	log.Warn("Suspend unavailable, waiting instead",
		zap.Uint16("seconds", seconds),
		zap.Error(err),
	)
	return wait(ctx, time.Duration(seconds)*time.Second, presses)
}

// writeSysfs writes value to an existing attribute file.
func writeSysfs(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(value); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
