package infrastructure

import (
	"context"

	"teenpatti/domain/events"
	"teenpatti/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// NATSTransactionalPublisher holds events until the unit of work commits.
// It belongs to a single unit of work and is not safe for concurrent use.
type NATSTransactionalPublisher struct {
	realPublisher interfaces.EventPublisher
	pending       []events.Event
}

// NewNATSTransactionalPublisher creates a new transactional publisher
func NewNATSTransactionalPublisher(realPublisher interfaces.EventPublisher) *NATSTransactionalPublisher {
	return &NATSTransactionalPublisher{
		realPublisher: realPublisher,
		pending:       make([]events.Event, 0),
	}
}

// Publish queues the event
func (p *NATSTransactionalPublisher) Publish(event events.Event) error {
	p.pending = append(p.pending, event)
	return nil
}

// Flush publishes all pending events in order. A failed event is logged and skipped.
func (p *NATSTransactionalPublisher) Flush(ctx context.Context) error {
	log.WithField("pendingEventCount", len(p.pending)).Debug("Flushing pending events")

	for _, event := range p.pending {
		if ctx.Err() != nil {
			log.WithField("eventType", event.Type()).Warn("Context done, dropping pending event")
			continue
		}
		if err := p.realPublisher.Publish(event); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Error("Failed to publish event during flush")
		}
	}

	p.pending = p.pending[:0]
	return nil
}

// Discard drops all pending events
func (p *NATSTransactionalPublisher) Discard() {
	if len(p.pending) > 0 {
		log.WithField("discardedEventCount", len(p.pending)).Debug("Discarding pending events")
	}
	p.pending = p.pending[:0]
}
