package viewport

// attach installs the window event listeners.
func (s *Scheduler) attach() {
	s.listen(EventScroll, s.onScroll)
	s.listen(EventResize, s.onResize)
	s.listen(EventOrientationChange, s.onResize)
}

func (s *Scheduler) listen(eventType EventType, fn EventListenerFunc) {
	s.listeners = append(s.listeners, boundListener{
		eventType: eventType,
		id:        s.window.AddEventListener(eventType, fn),
	})
}

// detach removes everything installed by attach.
func (s *Scheduler) detach() {
	for _, l := range s.listeners {
		s.window.RemoveEventListener(l.eventType, l.id)
	}
	s.listeners = nil
}

// onScroll only invalidates if the queue is empty. Otherwise, a drain is
// already pending, and the scroll is picked up by whatever notification it
// leads to, which keeps a burst of scroll events from flooding the queue.
func (s *Scheduler) onScroll(*Event) {
	if s.queue.Len() == 0 {
		s.InvalidateClient()
	}
}

// onResize handles both resize and orientation change, which arrive in
// bursts, and are coalesced by the debouncer.
func (s *Scheduler) onResize(*Event) {
	s.resize.Call()
}
