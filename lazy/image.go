package lazy

import (
	"github.com/joeycumines/go-viewport"
	"github.com/joeycumines/logiface"
)

// DefaultImageRange loads images up to one viewport before they scroll into
// view.
const DefaultImageRange = 1

// Element is the geometry of a document element.
type Element interface {
	Rect() viewport.Rect
}

// ElementFunc adapts a function to the [Element] interface.
type ElementFunc func() viewport.Rect

// Rect implements [Element].
func (f ElementFunc) Rect() viewport.Rect { return f() }

// ImageState is the load state of an [Image].
//
//	ImageUnloaded → ImageLoading   [Load()]
//	ImageLoading → ImageLoaded     [fetch succeeded]
//	ImageLoading → ImageUnloaded   [Unload(), fetch failed]
//	ImageLoaded → ImageUnloaded    [Unload()]
type ImageState uint8

const (
	ImageUnloaded ImageState = iota
	ImageLoading
	ImageLoaded
)

// String returns a human-readable representation of the state.
func (s ImageState) String() string {
	switch s {
	case ImageUnloaded:
		return "Unloaded"
	case ImageLoading:
		return "Loading"
	case ImageLoaded:
		return "Loaded"
	default:
		return "Unknown"
	}
}

// Fetcher retrieves image data. It must eventually call done, exactly once,
// with the outcome. Where done is called from depends on the fetcher, see
// ImagesConfig.Dispatch.
type Fetcher interface {
	Fetch(src string, done func(err error))
}

// FetcherFunc adapts a function to the [Fetcher] interface.
type FetcherFunc func(src string, done func(err error))

// Fetch implements [Fetcher].
func (f FetcherFunc) Fetch(src string, done func(err error)) { f(src, done) }

// ImagesConfig models the configuration for NewImages.
type ImagesConfig struct {
	// Fetcher loads image sources. Required.
	Fetcher Fetcher

	// Dispatch runs a function on the scheduler goroutine, and must be set
	// if the Fetcher calls done from any other goroutine, e.g.
	// host.Loop.Do. If nil, done must be called on the scheduler goroutine.
	Dispatch func(fn func()) error

	// OnChange is called, on the scheduler goroutine, after every state
	// change. Optional.
	OnChange func(img *Image, from, to ImageState)

	// Logger is optional.
	Logger *logiface.Logger[logiface.Event]

	// Range is passed to [viewport.InRange]. A pointer to 0 loads images
	// only once they touch the viewport.
	// Defaults to DefaultImageRange, if nil.
	Range *float64
}

// Images is the registry of lazily loaded images.
type Images struct {
	*Activator[*Image]
	sched *viewport.Scheduler
	cfg   ImagesConfig
}

// NewImages registers a new image registry with sched. It panics if the
// Fetcher is nil.
func NewImages(sched *viewport.Scheduler, cfg ImagesConfig) *Images {
	if cfg.Fetcher == nil {
		panic(`lazy: images: nil fetcher`)
	}
	rng := float64(DefaultImageRange)
	if cfg.Range != nil {
		rng = *cfg.Range
	}
	x := &Images{sched: sched, cfg: cfg}
	x.Activator = NewActivator(sched, ActivatorConfig[*Image]{
		Activate:   (*Image).Load,
		Deactivate: (*Image).Unload,
		Logger:     cfg.Logger,
		Kind:       `image`,
		Range:      rng,
	})
	return x
}

// New creates an unloaded image for src, positioned by element, and
// registers it.
func (x *Images) New(src string, element Element) *Image {
	img := &Image{src: src, element: element, images: x}
	x.Add(img)
	return img
}

// Image is a lazily loaded image.
type Image struct {
	element Element
	images  *Images
	src     string
	err     error
	gen     uint64
	state   ImageState
}

// Src returns the image source.
func (x *Image) Src() string { return x.src }

// State returns the current load state.
func (x *Image) State() ImageState { return x.state }

// Err returns the error from the most recent failed fetch, if any.
func (x *Image) Err() error { return x.err }

// Rect implements [Handle].
func (x *Image) Rect() viewport.Rect { return x.element.Rect() }

// Load starts fetching the image, if it is unloaded. It must be called on
// the scheduler goroutine, and is normally enqueued by the registry.
func (x *Image) Load() {
	if x.state != ImageUnloaded {
		return
	}
	x.gen++
	gen := x.gen
	x.setState(ImageLoading)
	x.images.cfg.Fetcher.Fetch(x.src, func(err error) {
		x.post(func() { x.complete(gen, err) })
	})
}

// Unload releases the image. A fetch still in flight is ignored when it
// completes.
func (x *Image) Unload() {
	if x.state == ImageUnloaded {
		return
	}
	x.gen++
	x.setState(ImageUnloaded)
}

// post schedules the completion as a write task, on the scheduler goroutine.
func (x *Image) post(fn func()) {
	dispatch := x.images.cfg.Dispatch
	if dispatch == nil {
		x.images.sched.Enqueue(fn)
		return
	}
	if err := dispatch(func() { x.images.sched.Enqueue(fn) }); err != nil {
		x.images.cfg.Logger.Warning().
			Err(err).
			Str(`src`, x.src).
			Log(`lazy: dropped image fetch completion`)
	}
}

func (x *Image) complete(gen uint64, err error) {
	if gen != x.gen || x.state != ImageLoading {
		return // stale, unloaded since
	}
	if err != nil {
		x.err = err
		x.images.cfg.Logger.Warning().
			Err(err).
			Str(`src`, x.src).
			Log(`lazy: image fetch failed`)
		x.setState(ImageUnloaded)
		return
	}
	x.err = nil
	x.setState(ImageLoaded)
}

func (x *Image) setState(state ImageState) {
	from := x.state
	x.state = state
	if fn := x.images.cfg.OnChange; fn != nil {
		fn(x, from, state)
	}
}
