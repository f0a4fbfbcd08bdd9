// Package notify delivers change events to connected clients. Delivery is
// best effort: a notifier never blocks the write that triggered it.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	EventRequestCreated       = "request.created"
	EventRequestUpdated       = "request.updated"
	EventReassignmentAccepted = "reassignment.accepted"
	EventReassignmentRejected = "reassignment.rejected"
)

// Event tells clients that something changed and they should refresh.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	RequestID string    `json:"request_id,omitempty"`
	ItemID    string    `json:"item_id,omitempty"`
	Status    string    `json:"status,omitempty"`
	ActorID   string    `json:"actor_id,omitempty"`
	At        time.Time `json:"at"`

	// Origin identifies the instance that published the event over Redis.
	Origin string `json:"origin,omitempty"`
}

// NewEvent returns an event of the given type stamped with a fresh ID and
// the current time.
func NewEvent(eventType string) Event {
	return Event{ID: uuid.NewString(), Type: eventType, At: time.Now().UTC()}
}

// Notifier broadcasts an event to everyone listening.
type Notifier interface {
	NotifyAll(ctx context.Context, e Event) error
}

// Multi fans an event out to several notifiers and joins their errors.
type Multi []Notifier

// NotifyAll implements Notifier.
func (m Multi) NotifyAll(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyAll(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event.
var Discard Notifier = discard{}

type discard struct{}

func (discard) NotifyAll(context.Context, Event) error { return nil }
