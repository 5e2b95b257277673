// Package render lays the dashboard out on a grayscale canvas.
//
// The canvas is landscape. Rows of "label: value" text fill columns from the
// top-left; the clock sits alone in a region at the top-right so it can be
// redrawn without touching anything else.
package render

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"

	"github.com/sweeney/inkdash/internal/state"
	"github.com/sweeney/inkdash/internal/telemetry"
)

// Ink levels.
var (
	Black = color.Gray{Y: 0}
	White = color.Gray{Y: 0xff}
)

// smallPanelHeight is the canvas height below which the compact face is used.
const smallPanelHeight = 200

// Renderer draws onto canvases of a fixed size.
type Renderer struct {
	bounds  image.Rectangle
	regular font.Face
	bold    font.Face
	margin  int
	gap     int
}

// New creates a renderer for canvases with the given bounds.
func New(bounds image.Rectangle) *Renderer {
	r := &Renderer{
		bounds:  bounds,
		regular: inconsolata.Regular8x16,
		bold:    inconsolata.Bold8x16,
		margin:  30,
		gap:     16,
	}
	if bounds.Dy() < smallPanelHeight {
		r.regular = basicfont.Face7x13
		r.bold = basicfont.Face7x13
		r.margin = 3
		r.gap = 6
	}
	return r
}

// Bounds returns the canvas size the renderer lays out for.
func (r *Renderer) Bounds() image.Rectangle {
	return r.bounds
}

// NewCanvas returns a white canvas.
func (r *Renderer) NewCanvas() *image.Gray {
	c := image.NewGray(r.bounds)
	r.Clear(c)
	return c
}

// Clear paints the whole canvas white.
func (r *Renderer) Clear(canvas *image.Gray) {
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(White), image.Point{}, draw.Src)
}

// TimeRegion is the rectangle RenderTime draws into.
func (r *Renderer) TimeRegion() image.Rectangle {
	adv, _ := r.bold.GlyphAdvance('0')
	w := adv.Ceil() * state.TimeTextCap
	h := r.bold.Metrics().Height.Ceil()
	x1 := r.bounds.Max.X - r.margin
	y0 := r.bounds.Min.Y + r.margin
	return image.Rect(x1-w, y0, x1, y0+h).Intersect(r.bounds)
}

// Render draws every row for st and reading. The time region is left alone.
func (r *Renderer) Render(canvas *image.Gray, st state.State, reading telemetry.Reading) {
	r.drawRows(canvas, Lines(st, reading))
}

// RenderTime draws text into the time region, in black, or in white to erase
// a previous value.
func (r *Renderer) RenderTime(canvas *image.Gray, text string, erase bool) {
	ink := Black
	if erase {
		ink = White
	}
	region := r.TimeRegion()
	r.text(canvas, region, r.bold, region.Min.X, region.Min.Y+r.bold.Metrics().Ascent.Ceil(), text, ink)
}

// rowArea is where rows may go: everything left of the time region.
func (r *Renderer) rowArea() image.Rectangle {
	return image.Rect(
		r.bounds.Min.X+r.margin,
		r.bounds.Min.Y+r.margin,
		r.TimeRegion().Min.X-r.gap,
		r.bounds.Max.Y-r.margin,
	)
}

// drawRows flows rows down columns of equal width. Text that does not fit
// its column is clipped.
func (r *Renderer) drawRows(canvas *image.Gray, lines []Line) {
	area := r.rowArea()
	if area.Empty() || len(lines) == 0 {
		return
	}
	rowHeight := r.bold.Metrics().Height.Ceil()
	perColumn := max(1, area.Dy()/rowHeight)
	columns := (len(lines) + perColumn - 1) / perColumn
	colWidth := area.Dx() / columns

	for i, l := range lines {
		col, row := i/perColumn, i%perColumn
		cell := image.Rect(
			area.Min.X+col*colWidth,
			area.Min.Y+row*rowHeight,
			area.Min.X+(col+1)*colWidth-r.gap/2,
			area.Min.Y+(row+1)*rowHeight,
		)
		baseline := cell.Min.Y + r.bold.Metrics().Ascent.Ceil()
		x := r.text(canvas, cell, r.bold, cell.Min.X, baseline, l.Label+": ", Black)
		r.text(canvas, cell, r.regular, x, baseline, l.Value, Black)
	}
}

// text draws s clipped to clip and returns the x position after it.
func (r *Renderer) text(canvas *image.Gray, clip image.Rectangle, face font.Face, x, y int, s string, ink color.Gray) int {
	dst, ok := canvas.SubImage(clip).(*image.Gray)
	if !ok {
		return x
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(ink),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
	return d.Dot.X.Ceil()
}
