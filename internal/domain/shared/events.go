// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Every write that can move a score total emits one of
// these; the change feed relays them so consumers can recompute.
const (
	// Habit events
	EventHabitCreated EventType = "habit.created"
	EventHabitUpdated EventType = "habit.updated"
	EventHabitDeleted EventType = "habit.deleted"

	// Log events
	EventLogCreated EventType = "log.created"
	EventLogUpdated EventType = "log.updated"
	EventLogDeleted EventType = "log.deleted"

	// Review events
	EventLogApproved   EventType = "log.approved"
	EventLogChallenged EventType = "log.challenged"

	// Partnership events
	EventInvitationCreated EventType = "partnership.invitation_created"
	EventPartnershipFormed EventType = "partnership.formed"
	EventPartnershipEnded  EventType = "partnership.ended"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// AffectedUsers returns the IDs of the users whose derived state (score)
	// may have changed because of this event.
	AffectedUsers() []UserID
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
	Users       []UserID  `json:"users,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// AffectedUsers implements Event interface.
func (e BaseEvent) AffectedUsers() []UserID {
	return e.Users
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string, users ...UserID) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
		Users:       users,
	}
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
