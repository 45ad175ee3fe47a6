package events

import (
	"sync"
	"time"
)

// EventType represents the type of event.
type EventType int

const (
	// Query cache events, keyed by path
	EventQueryLoading EventType = iota
	EventQuerySuccess
	EventQueryError
	EventQueryInvalidated
	EventQueryCleared

	// Mutation outcomes
	EventMutationSuccess
	EventMutationError

	// Request/Response events from the HTTP adapter
	EventRequestStart
	EventRequestComplete

	// Session lifecycle
	EventLoggedIn
	EventLoggedOut

	// Error events
	EventError

	// Log events (for TUI display)
	EventLog
)

// String returns a human-readable name for the event type.
func (t EventType) String() string {
	switch t {
	case EventQueryLoading:
		return "query_loading"
	case EventQuerySuccess:
		return "query_success"
	case EventQueryError:
		return "query_error"
	case EventQueryInvalidated:
		return "query_invalidated"
	case EventQueryCleared:
		return "query_cleared"
	case EventMutationSuccess:
		return "mutation_success"
	case EventMutationError:
		return "mutation_error"
	case EventRequestStart:
		return "request_start"
	case EventRequestComplete:
		return "request_complete"
	case EventLoggedIn:
		return "logged_in"
	case EventLoggedOut:
		return "logged_out"
	case EventError:
		return "error"
	case EventLog:
		return "log"
	default:
		return "unknown"
	}
}

// Event represents an event in the system.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// QueryData contains data for query cache events.
// Key is the cache key path the event refers to; for EventQueryInvalidated it is
// the concrete key that was marked stale, not the prefix.
type QueryData struct {
	Key []string
	Err error
}

// MutationData contains data for mutation events.
type MutationData struct {
	Op          string
	Invalidated [][]string
	Err         error
}

// RequestData contains data for request events.
type RequestData struct {
	Method   string
	Path     string
	Status   int
	Duration time.Duration
	Bytes    int64
}

// ErrorData contains data for EventError.
type ErrorData struct {
	Error   error
	Context string
}

// LogData contains data for EventLog.
type LogData struct {
	Level   string // "info", "warn", "error"
	Message string
}

type subscriber struct {
	ch     chan Event
	filter func(Event) bool
}

// Bus is a simple pub/sub event bus with fan-out delivery.
type Bus struct {
	mu          sync.RWMutex
	subscribers []*subscriber
	bufferSize  int
	closed      bool
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make([]*subscriber, 0),
		bufferSize:  100,
	}
}

// NewBusWithBuffer creates a new event bus with custom buffer size.
func NewBusWithBuffer(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &Bus{
		subscribers: make([]*subscriber, 0),
		bufferSize:  bufferSize,
	}
}

// Subscribe returns a channel that receives all published events.
// The caller is responsible for consuming events to avoid drops.
func (b *Bus) Subscribe() <-chan Event {
	return b.SubscribeFunc(nil)
}

// SubscribeFunc returns a channel that receives only events for which filter
// returns true. A nil filter accepts everything.
func (b *Bus) SubscribeFunc(filter func(Event) bool) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	sub := &subscriber{ch: make(chan Event, b.bufferSize), filter: filter}
	b.subscribers = append(b.subscribers, sub)
	return sub.ch
}

// Unsubscribe removes a subscriber channel and closes it.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subscribers {
		if sub.ch == ch {
			close(sub.ch)
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			return
		}
	}
}

// Publish sends an event to all matching subscribers.
// Non-blocking: if a subscriber's buffer is full, the event is dropped for that subscriber.
func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subscribers {
		if sub.filter != nil && !sub.filter(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			// Subscriber buffer full, drop event
		}
	}
}

// PublishType is a convenience method to publish an event with just a type.
func (b *Bus) PublishType(eventType EventType) {
	b.Publish(Event{Type: eventType})
}

// PublishQuery publishes a query cache event for key.
func (b *Bus) PublishQuery(eventType EventType, key []string, err error) {
	b.Publish(Event{
		Type: eventType,
		Data: QueryData{Key: key, Err: err},
	})
}

// PublishError publishes an error event.
func (b *Bus) PublishError(err error, context string) {
	b.Publish(Event{
		Type: EventError,
		Data: ErrorData{Error: err, Context: context},
	})
}

// PublishLog publishes a log event.
func (b *Bus) PublishLog(level, message string) {
	b.Publish(Event{
		Type: EventLog,
		Data: LogData{Level: level, Message: message},
	})
}

// Close closes the event bus and all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for _, sub := range b.subscribers {
		close(sub.ch)
	}
	b.subscribers = nil
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
