package infrastructure

import (
	"strings"

	"rifei/domain/events"
)

const subjectPrefix = "rifei."

var publishedEventTypes = []events.EventType{
	events.EventTypeReservationCreated,
	events.EventTypeReservationExpired,
	events.EventTypeReservationCancelled,
	events.EventTypePaymentCreated,
	events.EventTypePaymentApproved,
	events.EventTypePaymentRejected,
	events.EventTypePaymentCancelled,
	events.EventTypePaymentRefunded,
	events.EventTypePaymentRequiresRefund,
	events.EventTypeRaffleActivated,
	events.EventTypeRaffleCompleted,
	events.EventTypeRaffleCancelled,
}

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its NATS subject, e.g. rifei.payment.approved
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	return subjectPrefix + string(event.Type())
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	return events.EventType(strings.TrimPrefix(subject, subjectPrefix))
}

// GetAllSubjects returns all subjects that this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	subjects := make([]string, len(publishedEventTypes))
	for i, eventType := range publishedEventTypes {
		subjects[i] = subjectPrefix + string(eventType)
	}
	return subjects
}
