package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"teenpatti/domain/entities"
	"teenpatti/domain/events"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNATSEventPublisher_LocalHandlersWithoutNATS(t *testing.T) {
	publisher := NewNATSEventPublisher(nil, NewEventSubjectMapper())

	var profiles []events.UserProfileUpdatedEvent
	publisher.RegisterLocalHandler(events.EventTypeUserProfileUpdated, func(ctx context.Context, e events.Event) error {
		profiles = append(profiles, e.(events.UserProfileUpdatedEvent))
		return nil
	})
	publisher.RegisterLocalHandler(events.EventTypeUserProfileUpdated, func(ctx context.Context, e events.Event) error {
		return errors.New("second handler fails")
	})

	profile := events.UserProfileUpdatedEvent{UserID: 7, Balance: decimal.NewFromInt(1096), Exposure: decimal.Zero}
	require.NoError(t, publisher.Publish(profile))
	require.NoError(t, publisher.Publish(events.RoundStartedEvent{RoundID: "123456789012345"}))

	require.Len(t, profiles, 1)
	assert.Equal(t, int64(7), profiles[0].UserID)
	assert.NoError(t, publisher.EnsureEventStream())
}

func TestNewEventEnvelope(t *testing.T) {
	event := events.RoundFinalizedEvent{
		RoundID:  "123456789012345",
		Winner:   entities.SideB,
		PlayerA:  []string{"2C", "7D", "9S"},
		PlayerB:  []string{"AS", "AH", "AD"},
		Resolver: entities.ResolverOfficial,
	}

	envelope, err := NewEventEnvelope(event)
	require.NoError(t, err)

	_, err = uuid.Parse(envelope.EventID)
	assert.NoError(t, err)
	assert.Equal(t, "round_finalized", envelope.EventType)
	assert.Equal(t, "teenpatti", envelope.SourceService)
	assert.False(t, envelope.Timestamp.AsTime().IsZero())

	var decoded events.RoundFinalizedEvent
	require.NoError(t, json.Unmarshal(envelope.Payload, &decoded))
	assert.Equal(t, event.RoundID, decoded.RoundID)
	assert.Equal(t, entities.SideB, decoded.Winner)
}

func TestEventSubjectMapper(t *testing.T) {
	mapper := NewEventSubjectMapper()

	tests := []struct {
		event   events.Event
		subject string
	}{
		{events.RoundStartedEvent{}, "rounds.started"},
		{events.RoundFinalizedEvent{}, "rounds.finalized"},
		{events.BetPlacedEvent{}, "betting.placed"},
		{events.BetSettledEvent{}, "betting.settled"},
		{events.BalanceChangeEvent{}, "users.balance_changed"},
		{events.UserProfileUpdatedEvent{}, "users.profile_updated"},
	}

	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			assert.Equal(t, tt.subject, mapper.MapEventToSubject(tt.event))
			assert.Equal(t, tt.event.Type(), mapper.MapSubjectToEventType(tt.subject))
			assert.Contains(t, mapper.GetAllSubjects(), tt.subject)
		})
	}

	assert.Equal(t, events.EventType("something.else"), mapper.MapSubjectToEventType("something.else"))
}
