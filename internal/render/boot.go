package render

import (
	"image"
)

// BootStep is one line of the boot screen. An empty Result means the step is
// still running.
type BootStep struct {
	Label  string
	Result string
}

// StepResult formats the outcome of a boot step.
func StepResult(ok bool) string {
	if ok {
		return "Success"
	}
	return "Failed"
}

// BootScreen redraws the boot screen: a "Booting..." heading followed by one
// "label... result" row per step.
func (r *Renderer) BootScreen(canvas *image.Gray, steps []BootStep) {
	r.Clear(canvas)

	area := image.Rect(r.bounds.Min.X+r.margin, r.bounds.Min.Y+r.margin, r.bounds.Max.X-r.margin, r.bounds.Max.Y-r.margin)
	rowHeight := r.bold.Metrics().Height.Ceil()
	ascent := r.bold.Metrics().Ascent.Ceil()

	r.text(canvas, area, r.bold, area.Min.X, area.Min.Y+ascent, "Booting...", Black)
	for i, s := range steps {
		y := area.Min.Y + (i+2)*rowHeight + ascent
		r.text(canvas, area, r.regular, area.Min.X, y, s.Label+"... "+s.Result, Black)
	}
}
