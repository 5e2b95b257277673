//go:build !linux

package power

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sweeney/inkdash/internal/logic"
)

// RealDevice is not available on non-Linux platforms.
type RealDevice struct{}

// NewRealDevice returns an error on non-Linux platforms.
func NewRealDevice(pin int, log *zap.Logger) (*RealDevice, error) {
	return nil, errors.New("power: not supported on this platform (requires Linux)")
}

// WakeReason is not implemented on non-Linux platforms.
func (d *RealDevice) WakeReason() (logic.WakeReason, error) {
	return logic.WakeNotSleeping, errors.New("power: not supported")
}

// DeepSleep is not implemented on non-Linux platforms.
func (d *RealDevice) DeepSleep(ctx context.Context, seconds uint16) error {
	return errors.New("power: not supported")
}

// Close is not implemented on non-Linux platforms.
func (d *RealDevice) Close() error {
	return nil
}
