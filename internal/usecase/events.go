package usecase

import (
	"sync"
	"time"
)

type EventType string

const (
	EventJobProgress    EventType = "job_progress"
	EventJobCompleted   EventType = "job_completed"
	EventBatchProgress  EventType = "batch_progress"
	EventBatchCompleted EventType = "batch_completed"
)

// Event is one lifecycle notification. Subscribers get at-least-once
// delivery within the process lifetime and must re-derive current
// state via GetJob/GetBatch after reconnecting.
type Event struct {
	Type     EventType `json:"type"`
	JobID    string    `json:"job_id,omitempty"`
	BatchID  string    `json:"batch_id,omitempty"`
	OwnerID  string    `json:"owner_id,omitempty"`
	Progress int       `json:"progress"`
	Status   string    `json:"status,omitempty"`
	At       time.Time `json:"at"`
}

// Broadcaster fans events out to any number of in-process subscribers
// over buffered channels, so independent observers (long-poll handler,
// metrics collector) never couple to the emitter.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
	buf  int
}

func NewBroadcaster(buf int) *Broadcaster {
	if buf <= 0 {
		buf = 64
	}
	return &Broadcaster{subs: make(map[int]chan Event), buf: buf}
}

// Subscribe registers a new observer. The returned cancel func must be
// called to release the channel.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan Event, b.buf)
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

// Publish delivers the event to every subscriber without blocking the
// emitter; a subscriber that stopped draining loses events rather than
// stalling job processing.
func (b *Broadcaster) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close releases all subscribers.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
