package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"teenpatti/domain/events"
	"teenpatti/infrastructure/observability"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// EventEnvelope wraps every event published to NATS
type EventEnvelope struct {
	EventID       string                 `json:"event_id"`
	EventType     string                 `json:"event_type"`
	Timestamp     *timestamppb.Timestamp `json:"timestamp"`
	SourceService string                 `json:"source_service"`
	Payload       json.RawMessage        `json:"payload"`
}

// LocalHandler receives events in the publishing process
type LocalHandler func(context.Context, events.Event) error

// NATSEventPublisher publishes events to NATS and fans them out to local handlers.
// With a nil client only local handlers run.
type NATSEventPublisher struct {
	natsClient     *NATSClient
	subjectMapper  *EventSubjectMapper
	publishTimeout time.Duration

	mu            sync.RWMutex
	localHandlers map[events.EventType][]LocalHandler
}

// NewNATSEventPublisher creates a new NATS event publisher
func NewNATSEventPublisher(natsClient *NATSClient, subjectMapper *EventSubjectMapper) *NATSEventPublisher {
	return &NATSEventPublisher{
		natsClient:     natsClient,
		subjectMapper:  subjectMapper,
		publishTimeout: 5 * time.Second,
		localHandlers:  make(map[events.EventType][]LocalHandler),
	}
}

// Publish delivers the event to local handlers and then to its NATS subject
func (p *NATSEventPublisher) Publish(event events.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.publishTimeout)
	defer cancel()

	eventType := event.Type()

	p.mu.RLock()
	handlers := p.localHandlers[eventType]
	p.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			// Local handler errors never block NATS publishing
			log.WithFields(log.Fields{
				"eventType": eventType,
				"error":     err,
			}).Error("Local event handler failed")
		}
	}

	if p.natsClient == nil {
		return nil
	}

	envelope, err := NewEventEnvelope(event)
	if err != nil {
		return err
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	subject := p.subjectMapper.MapEventToSubject(event)
	if err := p.natsClient.Publish(ctx, subject, data); err != nil {
		// Stream not provisioned; the event is dropped rather than failing the caller
		if strings.Contains(err.Error(), "no response from stream") {
			return nil
		}
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}

	observability.GetMetrics().RecordEventPublished(string(eventType))
	log.WithFields(log.Fields{
		"eventType": eventType,
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Published event to NATS")
	return nil
}

// RegisterLocalHandler registers a handler invoked in-process for every event of eventType
func (p *NATSEventPublisher) RegisterLocalHandler(eventType events.EventType, handler LocalHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.localHandlers[eventType] = append(p.localHandlers[eventType], handler)
	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(p.localHandlers[eventType]),
	}).Debug("Registered local event handler")
}

// EnsureEventStream makes sure the stream covering every published subject exists
func (p *NATSEventPublisher) EnsureEventStream() error {
	if p.natsClient == nil {
		return nil
	}
	return p.natsClient.EnsureStream(EventStreamName, p.subjectMapper.GetAllSubjects())
}

// NewEventEnvelope wraps event with a fresh id and the current time
func NewEventEnvelope(event events.Event) (*EventEnvelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     string(event.Type()),
		Timestamp:     timestamppb.Now(),
		SourceService: "teenpatti",
		Payload:       payload,
	}, nil
}
