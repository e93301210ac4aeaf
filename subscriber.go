package viewport

import (
	"slices"
)

// Subscriber reads a [Client] snapshot. It must not mutate the document
// inline; writes belong in tasks passed to [Scheduler.Enqueue].
type Subscriber func(client Client)

// SubscriptionID identifies a registered [Subscriber] for removal purposes.
// Functions cannot be compared in Go, so one is generated per registration.
// The zero value never identifies a subscription.
type SubscriptionID uint64

type subscription struct {
	fn              Subscriber
	id              SubscriptionID
	ignoreUnchanged bool
}

// subscriberRegistry preserves registration order.
type subscriberRegistry struct {
	entries []subscription
	nextID  SubscriptionID
}

func (x *subscriberRegistry) add(fn Subscriber, ignoreUnchanged bool) SubscriptionID {
	if fn == nil {
		return 0
	}
	x.nextID++
	x.entries = append(x.entries, subscription{
		fn:              fn,
		id:              x.nextID,
		ignoreUnchanged: ignoreUnchanged,
	})
	return x.nextID
}

func (x *subscriberRegistry) remove(id SubscriptionID) bool {
	if id == 0 {
		return false
	}
	for i, e := range x.entries {
		if e.id == id {
			x.entries = slices.Delete(x.entries, i, i+1)
			return true
		}
	}
	return false
}

func (x *subscriberRegistry) len() int {
	return len(x.entries)
}
