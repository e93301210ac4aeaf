package sim

import (
	"github.com/joeycumines/go-viewport"
	"github.com/joeycumines/go-viewport/lazy"
)

// Page models the document: the window geometry, and its scroll offset.
// It implements [viewport.Viewport].
type Page struct {
	width       float64
	height      float64
	fixedHeight float64
	scrollX     float64
	scrollY     float64
}

// NewPage returns a page with the given window size, scrolled to the top.
func NewPage(size Size) *Page {
	p := new(Page)
	p.Resize(size)
	return p
}

// ContainingBlock implements [viewport.Viewport].
func (p *Page) ContainingBlock() (width, height float64) {
	return p.width, p.height
}

// FixedHeight implements [viewport.Viewport]. It defaults to the window
// height.
func (p *Page) FixedHeight() float64 {
	if p.fixedHeight > 0 {
		return p.fixedHeight
	}
	return p.height
}

// Resize sets the window geometry.
func (p *Page) Resize(size Size) {
	p.width, p.height, p.fixedHeight = size.Width, size.Height, size.FixedHeight
}

// ScrollTo sets the scroll offset.
func (p *Page) ScrollTo(offset Offset) {
	p.scrollX, p.scrollY = offset.X, offset.Y
}

// Scroll returns the scroll offset.
func (p *Page) Scroll() Offset {
	return Offset{X: p.scrollX, Y: p.scrollY}
}

// Element returns the viewport-relative geometry of box, which tracks the
// page's scroll offset.
func (p *Page) Element(box Box) lazy.Element {
	return lazyElement{page: p, rect: viewport.NewRect(box.Left, box.Top, box.Width, box.Height)}
}

type lazyElement struct {
	page *Page
	rect viewport.Rect
}

func (x lazyElement) Rect() viewport.Rect {
	return x.rect.Offset(-x.page.scrollX, -x.page.scrollY)
}
