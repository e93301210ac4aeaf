package lazy

import (
	"github.com/joeycumines/go-viewport"
	"github.com/joeycumines/logiface"
)

// EffectsConfig models optional configuration for NewEffects.
type EffectsConfig struct {
	Logger *logiface.Logger[logiface.Event]

	// Range is passed to [viewport.InRange]. Defaults to 0, i.e. effects are
	// enabled while their element touches the viewport.
	Range float64
}

// Effects is the registry of scroll-linked effects, e.g. parallax, which
// should only be computed while their element is visible.
type Effects struct {
	*Activator[*Effect]
}

// NewEffects registers a new effect registry with sched. The cfg parameter
// may be nil.
func NewEffects(sched *viewport.Scheduler, cfg *EffectsConfig) *Effects {
	var c EffectsConfig
	if cfg != nil {
		c = *cfg
	}
	return &Effects{Activator: NewActivator(sched, ActivatorConfig[*Effect]{
		Activate:   (*Effect).Enable,
		Deactivate: (*Effect).Disable,
		Logger:     c.Logger,
		Kind:       `effect`,
		Range:      c.Range,
	})}
}

// New creates a disabled effect for element, and registers it. The toggle
// func, if non-nil, is called on every change.
func (x *Effects) New(element Element, toggle func(enabled bool)) *Effect {
	e := &Effect{element: element, toggle: toggle}
	x.Add(e)
	return e
}

// Effect is a scroll-linked effect.
type Effect struct {
	element Element
	toggle  func(enabled bool)
	enabled bool
}

// Rect implements [Handle].
func (x *Effect) Rect() viewport.Rect { return x.element.Rect() }

// Enabled reports whether the effect is enabled.
func (x *Effect) Enabled() bool { return x.enabled }

// Enable turns the effect on, calling its toggle func unless it was already
// enabled. It is the activation hook, called when the element comes into
// range, but may also be called directly on the scheduler goroutine.
func (x *Effect) Enable() { x.set(true) }

// Disable turns the effect off, calling its toggle func unless it was
// already disabled.
func (x *Effect) Disable() { x.set(false) }

func (x *Effect) set(enabled bool) {
	if x.enabled == enabled {
		return
	}
	x.enabled = enabled
	if x.toggle != nil {
		x.toggle(enabled)
	}
}
