package viewport

// Rect is an element's bounding rectangle, relative to the viewport, as
// returned by getBoundingClientRect.
type Rect struct {
	Top    float64
	Bottom float64
	Left   float64
	Right  float64
	Width  float64
	Height float64
}

// NewRect returns the Rect with the given origin and size.
func NewRect(left, top, width, height float64) Rect {
	return Rect{
		Top:    top,
		Bottom: top + height,
		Left:   left,
		Right:  left + width,
		Width:  width,
		Height: height,
	}
}

// Offset returns the rect translated by dx, dy.
func (r Rect) Offset(dx, dy float64) Rect {
	r.Top += dy
	r.Bottom += dy
	r.Left += dx
	r.Right += dx
	return r
}

// InRange reports whether rect is within rng viewports of the client.
//
// Zero-sized rects are never in range. Otherwise, both the vertical and the
// horizontal extent must satisfy one of: the rect spans the whole viewport,
// its leading edge is no further than rng viewports past the trailing edge
// of the viewport, or its trailing edge is no further than rng viewports
// before the leading edge of the viewport.
//
// A rng of 0 means the rect must intersect the viewport, 1 means it may be
// up to a full viewport away, and negative values require the rect to be
// that far inside, e.g. -0.25 for an autoplay threshold of 25%.
func InRange(rect Rect, client Client, rng float64) bool {
	if rect.Width == 0 || rect.Height == 0 {
		return false
	}
	return inRangeAxis(rect.Top, rect.Bottom, client.Height, rng) &&
		inRangeAxis(rect.Left, rect.Right, client.Width, rng)
}

func inRangeAxis(start, end, size, rng float64) bool {
	margin := size * rng
	return (start <= 0 && end >= size) ||
		(start >= 0 && start <= size+margin) ||
		(end >= -margin && end <= size)
}
