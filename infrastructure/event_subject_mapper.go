package infrastructure

import (
	"fmt"

	"teenpatti/domain/events"
)

var subjectsByEventType = map[events.EventType]string{
	events.EventTypeRoundStarted:       "rounds.started",
	events.EventTypeRoundFinalized:     "rounds.finalized",
	events.EventTypeBetPlaced:          "betting.placed",
	events.EventTypeBetSettled:         "betting.settled",
	events.EventTypeBalanceChange:      "users.balance_changed",
	events.EventTypeUserProfileUpdated: "users.profile_updated",
}

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	if subject, ok := subjectsByEventType[event.Type()]; ok {
		return subject
	}
	return fmt.Sprintf("unknown.%s", event.Type())
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	for eventType, s := range subjectsByEventType {
		if s == subject {
			return eventType
		}
	}
	return events.EventType(subject)
}

// GetAllSubjects returns all subjects that this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		"rounds.started",
		"rounds.finalized",
		"betting.placed",
		"betting.settled",
		"users.balance_changed",
		"users.profile_updated",
	}
}
