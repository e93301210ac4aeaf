package viewport

// Client is the immutable viewport geometry passed to every subscriber
// during one notify pass.
type Client struct {
	// Width and Height are the cached initial containing block dimensions.
	Width  float64
	Height float64

	// FixedHeight is the height available to fixed-position elements, read
	// live on every notify, since mobile browser chrome can change it
	// independently of the document.
	FixedHeight float64

	// HasChanged is true if Width or Height differ from the previous
	// snapshot, or the notify was forced (e.g. by Start).
	HasChanged bool
}

// Viewport measures the geometry backing [Client]. Both methods are reads,
// and are only called from invalidation tasks.
type Viewport interface {
	// ContainingBlock returns the initial containing block dimensions.
	ContainingBlock() (width, height float64)

	// FixedHeight returns the current height of the fixed-position viewport.
	FixedHeight() float64
}

// ViewportFuncs adapts a pair of functions to the [Viewport] interface.
type ViewportFuncs struct {
	ContainingBlockFunc func() (width, height float64)
	FixedHeightFunc     func() float64
}

// ContainingBlock implements [Viewport].
func (x ViewportFuncs) ContainingBlock() (width, height float64) {
	return x.ContainingBlockFunc()
}

// FixedHeight implements [Viewport].
func (x ViewportFuncs) FixedHeight() float64 {
	return x.FixedHeightFunc()
}

// clientCache holds the last containing block measurement.
type clientCache struct {
	width    float64
	height   float64
	measured bool
}

// update stores the measurement, reporting whether it differs from the
// cached value. The first measurement always counts as a change.
func (x *clientCache) update(width, height float64) bool {
	if x.measured && x.width == width && x.height == height {
		return false
	}
	x.width, x.height, x.measured = width, height, true
	return true
}

func (x *clientCache) snapshot(fixedHeight float64, hasChanged bool) Client {
	return Client{
		Width:       x.width,
		Height:      x.height,
		FixedHeight: fixedHeight,
		HasChanged:  hasChanged,
	}
}
