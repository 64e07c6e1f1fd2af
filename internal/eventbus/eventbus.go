// Package eventbus provides an in-process pub/sub bus for supervision
// events. The failure detector publishes here so that subscribers
// (alerting, the status surface, tests) are decoupled from the
// supervisor's poll loop and its string-matching cost.
package eventbus

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType identifies the type of supervision event.
type EventType string

const (
	EventFailureDetected EventType = "failure_detected"
	EventFixApplied      EventType = "fix_applied"
	EventFixVerified     EventType = "fix_verified"
	EventAgentStarted    EventType = "agent_started"
	EventAgentRestarted  EventType = "agent_restarted"
	EventAgentHalted     EventType = "agent_halted"
	EventAlert           EventType = "alert"
)

// Event is one supervision event on the bus.
type Event struct {
	ID    string
	Type  EventType
	Agent string
	Time  time.Time
	// Data is a type-specific payload (signature, decision, outcome).
	Data interface{}
}

// Bus is an in-process broadcast bus. All subscribers receive all
// events. Safe for concurrent publish/subscribe.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]chan Event
	nextID      int
	closed      bool
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{subscribers: make(map[int]chan Event)}
}

// Subscribe returns a channel of events and an unsubscribe function.
// The channel is buffered so slow consumers do not block publishers.
func (b *Bus) Subscribe() (events <-chan Event, unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	b.nextID++
	id := b.nextID
	ch := make(chan Event, 100)
	b.subscribers[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if ch, ok := b.subscribers[id]; ok {
			close(ch)
			delete(b.subscribers, id)
		}
	}
}

// Publish delivers an event to all subscribers. Non-blocking: a full
// subscriber channel drops the event for that subscriber rather than
// stalling the supervisor.
func (b *Bus) Publish(eventType EventType, agent string, data interface{}) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	event := Event{
		ID:    uuid.NewString(),
		Type:  eventType,
		Agent: agent,
		Time:  time.Now(),
		Data:  data,
	}
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is backed up; drop rather than block.
		}
	}
}

// Close shuts down the bus and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}

// Journal subscribes to the bus and writes every event to w as one JSON
// object per line, giving supervision runs an on-disk audit trail. It
// blocks until the bus closes or a write fails, so callers run it in a
// goroutine.
func Journal(b *Bus, w io.Writer) error {
	events, unsubscribe := b.Subscribe()
	defer unsubscribe()

	enc := json.NewEncoder(w)
	for event := range events {
		if err := enc.Encode(event); err != nil {
			return err
		}
	}
	return nil
}

// SubscriberCount returns the current number of subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
