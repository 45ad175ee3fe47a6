package query

import "flashcards/internal/client/events"

// Subscription delivers query events for keys under a prefix.
type Subscription struct {
	bus *events.Bus
	ch  <-chan events.Event
}

// Subscribe registers interest in every key starting with prefix. Cleared
// events are always delivered. The channel is closed by Close.
func (c *Cache) Subscribe(prefix Key) *Subscription {
	p := prefix.clone()
	ch := c.bus.SubscribeFunc(func(ev events.Event) bool {
		if !IsQueryEvent(ev.Type) {
			return false
		}
		if ev.Type == events.EventQueryCleared {
			return true
		}
		data, ok := ev.Data.(events.QueryData)
		return ok && Key(data.Key).HasPrefix(p)
	})
	return &Subscription{bus: c.bus, ch: ch}
}

// Events returns the event channel.
func (s *Subscription) Events() <-chan events.Event {
	return s.ch
}

// Close unregisters the subscription.
func (s *Subscription) Close() {
	s.bus.Unsubscribe(s.ch)
}

// IsQueryEvent reports whether t is published by the cache.
func IsQueryEvent(t events.EventType) bool {
	switch t {
	case events.EventQueryLoading, events.EventQuerySuccess, events.EventQueryError,
		events.EventQueryInvalidated, events.EventQueryCleared:
		return true
	}
	return false
}

// EventKey returns the key carried by a query event, or nil.
func EventKey(ev events.Event) Key {
	if data, ok := ev.Data.(events.QueryData); ok {
		return Key(data.Key)
	}
	return nil
}
