//go:build linux

package power

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
	"go.uber.org/zap"

	"github.com/sweeney/inkdash/internal/errcode"
	"github.com/sweeney/inkdash/internal/logic"
)

const debounce = 20 * time.Millisecond

// RealDevice watches the wake button on a GPIO line and sleeps through the
// RTC wake alarm.
type RealDevice struct {
	chip  *gpiocdev.Chip
	line  *gpiocdev.Line
	rtc   RTC
	latch *latch
	log   *zap.Logger
}

// NewRealDevice requests the button line (active low, pulled up) on
// gpiochip0.
func NewRealDevice(pin int, log *zap.Logger) (*RealDevice, error) {
	d := &RealDevice{
		rtc:   RTC{AlarmPath: DefaultAlarmPath, StatePath: DefaultStatePath},
		latch: newLatch(),
		log:   log,
	}

	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithDebounce(debounce),
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) { d.latch.press() }),
	)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request button pin %d: %w", pin, err)
	}

	d.chip = chip
	d.line = line
	return d, nil
}

// WakeReason implements Device. A button held down at wake counts as a press.
func (d *RealDevice) WakeReason() (logic.WakeReason, error) {
	raw, err := d.line.Value()
	if err != nil {
		return logic.WakeNotSleeping, errcode.New(errcode.HardwareQueryFailure, "power",
			fmt.Errorf("read button pin: %w", err))
	}
	return d.latch.reason(raw == 0), nil
}

// DeepSleep implements Device.
func (d *RealDevice) DeepSleep(ctx context.Context, seconds uint16) error {
	d.latch.arm()
	return sleep(ctx, d.rtc, seconds, d.latch.presses, d.log)
}

// Close releases the button line. The line is left as a pulled-up input.
func (d *RealDevice) Close() error {
	var errs []error
	if d.line != nil {
		if err := d.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button pin: %w", err))
		}
	}
	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	return errors.Join(errs...)
}
