// Package display drives the e-paper panel.
// The real implementation uses a Waveshare 2.13" v4 HAT over SPI.
// The memory implementation keeps frames for the status page and tests.
package display

import (
	"image"
	"image/draw"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Panel shows rendered frames. Frames are landscape and sized to Bounds.
type Panel interface {
	Bounds() image.Rectangle

	// Full redraws the whole panel from frame.
	Full(frame *image.Gray) error

	// Partial updates only region of the panel from frame.
	Partial(frame *image.Gray, region image.Rectangle) error

	// Close puts the panel into its lowest power state.
	Close() error
}

// Portrait rotates a landscape frame a quarter turn clockwise into the
// panel's native portrait orientation.
func Portrait(src *image.Gray) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, h, w))
	for y := 0; y < w; y++ {
		for x := 0; x < h; x++ {
			dst.SetGray(x, y, src.GrayAt(b.Min.X+y, b.Min.Y+h-1-x))
		}
	}
	return dst
}

// PortraitRect maps a rectangle on a landscape frame of the given size to
// the same pixels after Portrait.
func PortraitRect(r, landscape image.Rectangle) image.Rectangle {
	r = r.Sub(landscape.Min)
	h := landscape.Dy()
	return image.Rect(h-r.Max.Y, r.Min.X, h-r.Min.Y, r.Max.X)
}

// AlignRect widens r so its horizontal edges fall on byte boundaries, which
// the controller's RAM window requires.
func AlignRect(r, bounds image.Rectangle) image.Rectangle {
	if r.Empty() {
		return r
	}
	x0 := max(r.Min.X&^7, bounds.Min.X)
	x1 := min((r.Max.X+7)&^7, bounds.Max.X)
	if x1 <= x0 {
		return bounds
	}
	return image.Rect(x0, r.Min.Y, x1, r.Max.Y).Intersect(bounds)
}

// ToMono thresholds src into the 1-bit layout the controller expects.
func ToMono(src image.Image, bounds image.Rectangle) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(bounds)
	draw.Draw(img, img.Bounds(), src, bounds.Min, draw.Src)
	return img
}
