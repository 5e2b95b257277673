//go:build linux

package display

import (
	"errors"
	"fmt"
	"image"
	"reflect"
	"unsafe"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/waveshare2in13v4"
	"periph.io/x/host/v3"
)

// RealPanel drives a Waveshare 2.13" v4 e-paper HAT. The controller is put
// to sleep after every update and initialised again before the next.
type RealPanel struct {
	port   spi.PortCloser
	dev    *waveshare2in13v4.Dev
	asleep bool
	log    *zap.Logger
}

// NewRealPanel opens the default SPI port and initialises the panel.
func NewRealPanel(log *zap.Logger) (*RealPanel, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host: %w", err)
	}

	port, err := spireg.Open("")
	if err != nil {
		return nil, fmt.Errorf("open spi: %w", err)
	}

	opts := waveshare2in13v4.EPD2in13v4
	dev, err := waveshare2in13v4.NewHat(port, &opts)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("open panel: %w", err)
	}
	if err := dev.Init(); err != nil {
		port.Close()
		return nil, fmt.Errorf("init panel: %w", err)
	}

	return &RealPanel{port: port, dev: dev, log: log}, nil
}

// Bounds implements Panel. The panel is mounted landscape.
func (p *RealPanel) Bounds() image.Rectangle {
	b := p.dev.Bounds()
	return image.Rect(0, 0, b.Dy(), b.Dx())
}

// Full implements Panel.
func (p *RealPanel) Full(frame *image.Gray) error {
	return p.update(frame, p.dev.Bounds(), false)
}

// Partial implements Panel.
func (p *RealPanel) Partial(frame *image.Gray, region image.Rectangle) error {
	native := AlignRect(PortraitRect(region, p.Bounds()), p.dev.Bounds())
	if native.Empty() {
		return nil
	}
	return p.update(frame, native, true)
}

func (p *RealPanel) update(frame *image.Gray, native image.Rectangle, partial bool) error {
	if p.asleep {
		if err := p.dev.Init(); err != nil {
			return fmt.Errorf("wake panel: %w", err)
		}
		p.asleep = false
	}
	if err := setMode(p.dev, partial); err != nil {
		p.log.Warn("Cannot select refresh mode, using panel default", zap.Error(err))
	}

	img := ToMono(Portrait(frame), p.dev.Bounds())
	if err := p.dev.Draw(native, img, native.Min); err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	if err := p.dev.Sleep(); err != nil {
		return fmt.Errorf("sleep panel: %w", err)
	}
	p.asleep = true
	return nil
}

// Close implements Panel.
func (p *RealPanel) Close() error {
	var errs []error
	if !p.asleep {
		if err := p.dev.Sleep(); err != nil {
			errs = append(errs, fmt.Errorf("sleep panel: %w", err))
		}
	}
	if err := p.port.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close spi: %w", err))
	}
	return errors.Join(errs...)
}

// setMode selects full or partial refresh. The driver keeps the mode in an
// unexported field with no setter.
func setMode(dev *waveshare2in13v4.Dev, partial bool) error {
	v := reflect.ValueOf(dev).Elem().FieldByName("mode")
	if !v.IsValid() || !v.CanAddr() {
		return errors.New("display mode field unavailable")
	}
	mode := reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem()
	if partial {
		mode.Set(reflect.ValueOf(waveshare2in13v4.Partial))
	} else {
		mode.Set(reflect.ValueOf(waveshare2in13v4.Full))
	}
	return nil
}
