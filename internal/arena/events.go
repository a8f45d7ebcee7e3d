package arena

import (
	"sync"
	"time"

	"github.com/vorion-labs/gauntlet/internal/model"
)

// EventType names a session lifecycle notification.
type EventType string

const (
	EventSessionStart    EventType = "session_start"
	EventTurnComplete    EventType = "turn_complete"
	EventAttackDetected  EventType = "attack_detected"
	EventSessionComplete EventType = "session_complete"
	EventNovelDiscovery  EventType = "novel_discovery"
)

// Event is one lifecycle notification. Delivered as it occurs, never
// batched. Fields beyond Type/SessionID are populated per event type.
type Event struct {
	Type      EventType             `json:"type"`
	SessionID string                `json:"session_id"`
	Session   string                `json:"session"`
	Turn      *model.SessionTurn    `json:"turn,omitempty"`
	Results   *model.SessionResults `json:"results,omitempty"`
	Vector    *model.AttackVector   `json:"vector,omitempty"`
	At        time.Time             `json:"at"`
}

// Subscriber receives events. Delivery is synchronous on the session's
// loop goroutine; slow subscribers should hand off internally.
type Subscriber func(Event)

// dispatcher is an observer registry so multiple independent consumers
// (metrics, logging, tests, webhooks) can subscribe without the arena
// knowing about them.
type dispatcher struct {
	mu   sync.RWMutex
	subs map[int]Subscriber
	next int
}

func newDispatcher() *dispatcher {
	return &dispatcher{subs: make(map[int]Subscriber)}
}

// subscribe registers fn and returns a cancel func removing it.
func (d *dispatcher) subscribe(fn Subscriber) func() {
	d.mu.Lock()
	id := d.next
	d.next++
	d.subs[id] = fn
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.subs, id)
		d.mu.Unlock()
	}
}

func (d *dispatcher) dispatch(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	d.mu.RLock()
	subs := make([]Subscriber, 0, len(d.subs))
	for _, fn := range d.subs {
		subs = append(subs, fn)
	}
	d.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}
