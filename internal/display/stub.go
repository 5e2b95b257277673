//go:build !linux

package display

import (
	"errors"
	"image"

	"go.uber.org/zap"
)

// RealPanel is not available on non-Linux platforms.
type RealPanel struct{}

// NewRealPanel returns an error on non-Linux platforms.
func NewRealPanel(log *zap.Logger) (*RealPanel, error) {
	return nil, errors.New("display: not supported on this platform (requires Linux)")
}

// Bounds is not implemented on non-Linux platforms.
func (p *RealPanel) Bounds() image.Rectangle {
	return image.Rectangle{}
}

// Full is not implemented on non-Linux platforms.
func (p *RealPanel) Full(frame *image.Gray) error {
	return errors.New("display: not supported")
}

// Partial is not implemented on non-Linux platforms.
func (p *RealPanel) Partial(frame *image.Gray, region image.Rectangle) error {
	return errors.New("display: not supported")
}

// Close is not implemented on non-Linux platforms.
func (p *RealPanel) Close() error {
	return nil
}
