package alert

import (
	"context"
	"time"

	"github.com/vorion-labs/gauntlet/internal/arena"
)

// Dispatcher fans out alert events to matching webhook configurations.
type Dispatcher struct {
	configs []AlertConfig
}

// NewDispatcher creates a Dispatcher from webhook configurations.
// Returns nil if configs is empty (callers should nil-check).
func NewDispatcher(configs []AlertConfig) *Dispatcher {
	if len(configs) == 0 {
		return nil
	}
	return &Dispatcher{configs: configs}
}

// Dispatch sends the event to all webhooks whose Events list matches.
// Fires goroutines; does not block the caller.
func (d *Dispatcher) Dispatch(event AlertEvent) {
	for _, cfg := range d.configs {
		if matches(cfg.Events, event.Type) {
			go Send(context.Background(), cfg, event)
		}
	}
}

// Subscriber adapts the dispatcher to the arena's event stream. Only
// session-level events become alerts; per-turn events are too chatty for
// webhook destinations.
func (d *Dispatcher) Subscriber() arena.Subscriber {
	return func(ev arena.Event) {
		switch ev.Type {
		case arena.EventSessionComplete, arena.EventNovelDiscovery:
		default:
			return
		}
		d.Dispatch(FromArenaEvent(ev))
	}
}

// FromArenaEvent flattens an arena event into the webhook payload.
func FromArenaEvent(ev arena.Event) AlertEvent {
	out := AlertEvent{
		Timestamp: ev.At.UTC().Format(time.RFC3339),
		Type:      string(ev.Type),
		SessionID: ev.SessionID,
		Session:   ev.Session,
	}
	if ev.Results != nil {
		out.Attempted = ev.Results.AttacksAttempted
		out.Detected = ev.Results.AttacksDetected
		out.Missed = ev.Results.AttacksMissed
		out.Accuracy = ev.Results.DetectionAccuracy
	}
	if ev.Vector != nil {
		out.Category = string(ev.Vector.Category)
		out.Technique = ev.Vector.Technique
		payload := ev.Vector.Payload
		if len(payload) > 200 {
			payload = payload[:200]
		}
		out.Payload = payload
	}
	return out
}

func matches(events []string, eventType string) bool {
	for _, e := range events {
		if e == eventType || e == "*" {
			return true
		}
	}
	return false
}
