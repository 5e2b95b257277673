package display

import (
	"image"
	"sync"
)

// DefaultMemoryBounds matches a 9.7" panel, large enough for every row.
var DefaultMemoryBounds = image.Rect(0, 0, 1200, 825)

// MemoryPanel keeps the most recent frame in memory. It is used when no
// hardware panel is configured and as a test double.
type MemoryPanel struct {
	mu     sync.Mutex
	bounds image.Rectangle
	last   *image.Gray

	// Fulls and Partials count successful updates.
	Fulls    int
	Partials int

	// Regions records the region of every partial update.
	Regions []image.Rectangle

	// FullError and PartialError, if set, are returned by Full and Partial.
	FullError    error
	PartialError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewMemoryPanel creates a panel of the given size.
func NewMemoryPanel(bounds image.Rectangle) *MemoryPanel {
	return &MemoryPanel{bounds: bounds}
}

// Bounds implements Panel.
func (m *MemoryPanel) Bounds() image.Rectangle {
	return m.bounds
}

// Full implements Panel.
func (m *MemoryPanel) Full(frame *image.Gray) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FullError != nil {
		return m.FullError
	}
	m.last = clone(frame)
	m.Fulls++
	return nil
}

// Partial implements Panel. Only pixels inside region are copied.
func (m *MemoryPanel) Partial(frame *image.Gray, region image.Rectangle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PartialError != nil {
		return m.PartialError
	}
	if m.last == nil {
		m.last = image.NewGray(m.bounds)
	}
	region = region.Intersect(m.bounds)
	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			m.last.SetGray(x, y, frame.GrayAt(x, y))
		}
	}
	m.Regions = append(m.Regions, region)
	m.Partials++
	return nil
}

// Last returns a copy of what the panel currently shows, or nil before the
// first update.
func (m *MemoryPanel) Last() *image.Gray {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return nil
	}
	return clone(m.last)
}

// Close implements Panel.
func (m *MemoryPanel) Close() error {
	m.Closed = true
	return nil
}

func clone(src *image.Gray) *image.Gray {
	dst := image.NewGray(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}
