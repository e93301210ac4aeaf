// Package lazy coordinates resources that should only be active while near
// the viewport: images that load and unload, ambient video players that play
// and pause, and effects (parallax, sticky) that enable and disable.
//
// Each kind is held in its own [Activator], which registers exactly one
// subscriber with the scheduler. Transitions are edge-triggered: they are
// enqueued only when a handle's in-range result changes, never on every
// notify. Transitions run as ordinary scheduler tasks, after every read of
// the notify pass that produced them.
package lazy
