package events

import (
	"sync"
	"time"
)

// Type classifies an access-change event emitted by the apply engine.
type Type string

const (
	AccessGranted   Type = "access_granted"
	AccessRevoked   Type = "access_revoked"
	UserCreated     Type = "user_created"
	UserDeactivated Type = "user_deactivated"
	UnitRetired     Type = "unit_retired"
)

// AccessEvent describes one mutation the apply engine performed. Downstream
// consumers (gateway sync, notifications) subscribe to these instead of
// hooking an emitter singleton.
type AccessEvent struct {
	Type       Type      `json:"type"`
	FacilityID string    `json:"facility_id"`
	UserID     string    `json:"user_id,omitempty"`
	UnitID     string    `json:"unit_id,omitempty"`
	SyncLogID  string    `json:"sync_log_id,omitempty"`
	ChangeID   string    `json:"change_id,omitempty"`
	At         time.Time `json:"at"`
}

// Publisher is the outbound contract the apply engine writes to.
type Publisher interface {
	Publish(evt AccessEvent)
}

// Bus is an in-process publisher with fan-out to subscriber channels.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan AccessEvent
	next int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan AccessEvent)}
}

// Subscribe returns a buffered channel of events and a cancel function.
// The channel is closed on cancel.
func (b *Bus) Subscribe(buffer int) (<-chan AccessEvent, func()) {
	if buffer <= 0 {
		buffer = 16
	}

	b.mu.Lock()
	id := b.next
	b.next++
	ch := make(chan AccessEvent, buffer)
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
		b.mu.Unlock()
	}

	return ch, cancel
}

// Publish delivers the event to every subscriber. Delivery is non-blocking:
// a subscriber that has fallen behind misses the event rather than stalling
// the apply engine.
func (b *Bus) Publish(evt AccessEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// NopPublisher discards all events. Useful where no consumer is wired.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(AccessEvent) {}
