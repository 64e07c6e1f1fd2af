package eventbus

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := New()
	defer bus.Close()

	events, unsub := bus.Subscribe()
	defer unsub()

	bus.Publish(EventFailureDetected, "builder", "signature payload")

	select {
	case event := <-events:
		if event.Type != EventFailureDetected {
			t.Errorf("expected EventFailureDetected, got %v", event.Type)
		}
		if event.Agent != "builder" {
			t.Errorf("expected agent builder, got %v", event.Agent)
		}
		if event.ID == "" {
			t.Error("event should carry an ID")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
}

func TestBusMultipleSubscribers(t *testing.T) {
	bus := New()
	defer bus.Close()

	events1, unsub1 := bus.Subscribe()
	defer unsub1()

	events2, unsub2 := bus.Subscribe()
	defer unsub2()

	bus.Publish(EventAgentRestarted, "linter", nil)

	var wg sync.WaitGroup
	wg.Add(2)

	received := make([]bool, 2)

	go func() {
		defer wg.Done()
		select {
		case <-events1:
			received[0] = true
		case <-time.After(100 * time.Millisecond):
		}
	}()

	go func() {
		defer wg.Done()
		select {
		case <-events2:
			received[1] = true
		case <-time.After(100 * time.Millisecond):
		}
	}()

	wg.Wait()

	if !received[0] || !received[1] {
		t.Errorf("not all subscribers received event: %v", received)
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := New()
	defer bus.Close()

	events, unsub := bus.Subscribe()

	unsub()

	// Channel should be closed
	select {
	case _, ok := <-events:
		if ok {
			t.Error("expected channel to be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout - channel not closed")
	}
}

func TestBusClose(t *testing.T) {
	bus := New()

	events1, _ := bus.Subscribe()
	events2, _ := bus.Subscribe()

	bus.Close()

	// All subscriber channels should be closed
	select {
	case _, ok := <-events1:
		if ok {
			t.Error("expected channel 1 to be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout - channel 1 not closed")
	}

	select {
	case _, ok := <-events2:
		if ok {
			t.Error("expected channel 2 to be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout - channel 2 not closed")
	}
}

func TestBusSubscriberCount(t *testing.T) {
	bus := New()
	defer bus.Close()

	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", bus.SubscriberCount())
	}

	_, unsub1 := bus.Subscribe()
	if bus.SubscriberCount() != 1 {
		t.Errorf("expected 1 subscriber, got %d", bus.SubscriberCount())
	}

	_, unsub2 := bus.Subscribe()
	if bus.SubscriberCount() != 2 {
		t.Errorf("expected 2 subscribers, got %d", bus.SubscriberCount())
	}

	unsub1()
	if bus.SubscriberCount() != 1 {
		t.Errorf("expected 1 subscriber after unsub, got %d", bus.SubscriberCount())
	}

	unsub2()
	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after unsub, got %d", bus.SubscriberCount())
	}
}

func TestBusNonBlocking(t *testing.T) {
	bus := New()
	defer bus.Close()

	// Subscribe but don't read
	_, _ = bus.Subscribe()

	// Fill the buffer (100 events)
	for i := 0; i < 100; i++ {
		bus.Publish(EventFixApplied, "builder", nil)
	}

	// Publishing more should not block
	done := make(chan bool)
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish(EventFixApplied, "builder", nil)
		}
		done <- true
	}()

	select {
	case <-done:
		// Good - didn't block
	case <-time.After(100 * time.Millisecond):
		t.Fatal("publish blocked with full subscriber buffer")
	}
}

func TestJournalWritesEvents(t *testing.T) {
	bus := New()

	var buf bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- Journal(bus, &buf) }()

	// Give the journal goroutine time to subscribe before publishing.
	for i := 0; i < 50 && bus.SubscriberCount() == 0; i++ {
		time.Sleep(time.Millisecond)
	}

	bus.Publish(EventAlert, "builder", "restarts halted")
	bus.Publish(EventAgentHalted, "builder", nil)
	bus.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Journal() error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("journal did not stop when the bus closed")
	}

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("journal has %d lines, want 2:\n%s", len(lines), out)
	}
	var event Event
	if err := json.Unmarshal([]byte(lines[0]), &event); err != nil {
		t.Fatalf("journal line is not JSON: %v", err)
	}
	if event.Type != EventAlert || event.Agent != "builder" {
		t.Errorf("first journal entry = %+v, want the alert", event)
	}
}
