package viewport

// EventType names a window event.
type EventType string

// Window event types handled by the scheduler's event bridge.
const (
	EventScroll            EventType = "scroll"
	EventResize            EventType = "resize"
	EventOrientationChange EventType = "orientationchange"
)

// EventListenerFunc is a callback function for [EventTarget.AddEventListener].
type EventListenerFunc func(event *Event)

// ListenerID uniquely identifies an event listener for removal purposes.
type ListenerID uint64

type listenerEntry struct {
	listener EventListenerFunc
	id       ListenerID
}

// Event is dispatched by [EventTarget.DispatchEvent].
type Event struct {
	// Detail holds optional event data, e.g. the scroll offset.
	Detail any

	// Target is set to the EventTarget on which the event was dispatched.
	Target *EventTarget

	// Type is the name of the event.
	Type EventType
}

// EventTarget provides DOM-style event dispatching, standing in for the
// browser window.
//
// Unlike a DOM EventTarget, it is NOT safe for concurrent use, and must be
// used from the scheduler's goroutine, like the rest of the package. Use
// host.Pump to feed events from other goroutines.
//
// Usage:
//
//	target := viewport.NewEventTarget()
//	id := target.AddEventListener(viewport.EventScroll, func(e *viewport.Event) {
//	    fmt.Println("scrolled", e.Detail)
//	})
//	target.DispatchEvent(&viewport.Event{Type: viewport.EventScroll})
//	target.RemoveEventListener(viewport.EventScroll, id)
type EventTarget struct {
	listeners      map[EventType][]listenerEntry
	nextListenerID ListenerID
}

// NewEventTarget creates a new EventTarget with no listeners.
func NewEventTarget() *EventTarget {
	return &EventTarget{
		listeners:      make(map[EventType][]listenerEntry),
		nextListenerID: 1,
	}
}

// AddEventListener registers a listener for events of the specified type,
// returning an ID that may be used to remove it. A nil listener is ignored,
// and 0 is returned.
func (et *EventTarget) AddEventListener(eventType EventType, listener EventListenerFunc) ListenerID {
	if listener == nil {
		return 0
	}
	id := et.nextListenerID
	et.nextListenerID++
	et.listeners[eventType] = append(et.listeners[eventType], listenerEntry{
		listener: listener,
		id:       id,
	})
	return id
}

// RemoveEventListener removes a listener by its ID, returning true if it
// was found.
func (et *EventTarget) RemoveEventListener(eventType EventType, id ListenerID) bool {
	entries := et.listeners[eventType]
	for i, entry := range entries {
		if entry.id == id {
			// copy, DispatchEvent may be iterating the old slice
			updated := make([]listenerEntry, 0, len(entries)-1)
			updated = append(updated, entries[:i]...)
			updated = append(updated, entries[i+1:]...)
			if len(updated) == 0 {
				delete(et.listeners, eventType)
			} else {
				et.listeners[eventType] = updated
			}
			return true
		}
	}
	return false
}

// HasEventListeners reports whether any listeners are registered for the
// event type.
func (et *EventTarget) HasEventListeners(eventType EventType) bool {
	return len(et.listeners[eventType]) != 0
}

// DispatchEvent synchronously invokes every listener registered for the
// event's type, in registration order. Listeners added during dispatch are
// not invoked for that event.
func (et *EventTarget) DispatchEvent(event *Event) {
	if event == nil {
		return
	}
	event.Target = et
	for _, entry := range et.listeners[event.Type] {
		entry.listener(event)
	}
}
