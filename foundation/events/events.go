// Package events allows goroutines to register for and receive the
// provisioning events the faucet produces.
package events

import (
	"fmt"
	"sync"
	"time"
)

// Event represents a single provisioning event as it is delivered to
// websocket clients.
type Event struct {
	Time      time.Time `json:"time"`
	Kind      string    `json:"kind"`
	AccountID string    `json:"account_id,omitempty"`
	Message   string    `json:"message"`
}

// Events maintains a mapping of unique ids and channels so goroutines
// can register and receive events.
type Events struct {
	m  map[string]chan Event
	mu sync.RWMutex
}

// New constructs an events value for registering and receiving events.
func New() *Events {
	return &Events{
		m: make(map[string]chan Event),
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Acquire.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.m {
		delete(evt.m, id)
		close(ch)
	}
}

// Acquire takes a unique id and returns a channel that can be used
// to receive events.
func (evt *Events) Acquire(id string) chan Event {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if exists {
		return ch
	}

	// An event is dropped if the websocket receiver is not ready for it.
	// This buffer gives a slow receiver room to not lose events.
	const eventBuffer = 100

	evt.m[id] = make(chan Event, eventBuffer)
	return evt.m[id]
}

// Release closes and removes the channel that was provided by
// the call to Acquire.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.m, id)
	close(ch)
	return nil
}

// Send delivers the event to every registered channel. Send will not block
// waiting for a receiver on any given channel.
func (evt *Events) Send(kind string, accountID string, format string, args ...any) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	e := Event{
		Time:      time.Now().UTC(),
		Kind:      kind,
		AccountID: accountID,
		Message:   fmt.Sprintf(format, args...),
	}

	for _, ch := range evt.m {
		select {
		case ch <- e:
		default:
		}
	}
}
