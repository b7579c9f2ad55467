package services

import (
	"context"
	"testing"

	"teenpatti/domain/entities"
	"teenpatti/domain/events"
	"teenpatti/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type settlementMocks struct {
	users     *testhelpers.MockUserRepository
	bets      *testhelpers.MockBetRepository
	history   *testhelpers.MockBalanceHistoryRepository
	publisher *testhelpers.MockEventPublisher
}

func newSettlementMocks() *settlementMocks {
	return &settlementMocks{
		users:     new(testhelpers.MockUserRepository),
		bets:      new(testhelpers.MockBetRepository),
		history:   new(testhelpers.MockBalanceHistoryRepository),
		publisher: new(testhelpers.MockEventPublisher),
	}
}

func (m *settlementMocks) service() *settlementService {
	return NewSettlementService(m.users, m.bets, m.history, m.publisher, dec("1.96")).(*settlementService)
}

func placedBet(id int64, side entities.Side, stake string) *entities.Bet {
	return &entities.Bet{
		ID:      id,
		UserID:  7,
		RoundID: "123456789012345",
		Side:    side,
		Stake:   dec(stake),
		Status:  entities.BetStatusPlaced,
	}
}

func TestSettlementService_SettleBet_Win(t *testing.T) {
	ctx := context.Background()
	m := newSettlementMocks()
	bet := placedBet(1, entities.SideA, "100")

	m.bets.On("GetByIDForUpdate", ctx, int64(1)).Return(bet, nil)
	m.bets.On("UpdateSettlement", ctx, mock.MatchedBy(func(b *entities.Bet) bool {
		return b.Status == entities.BetStatusWon && b.Payout.Equal(dec("196")) && b.Net.Equal(dec("96"))
	})).Return(true, nil)
	m.users.On("GetByIDForUpdate", ctx, int64(7)).Return(&entities.User{ID: 7, Balance: dec("900")}, nil)
	m.users.On("AdjustBalance", ctx, int64(7), decEq("196")).Return(dec("1096"), nil)
	m.history.On("Record", ctx, mock.MatchedBy(func(h *entities.BalanceHistory) bool {
		return h.TransactionType == entities.TransactionTypeBetWin &&
			h.ChangeAmount.Equal(dec("196")) &&
			h.BalanceBefore.Equal(dec("900")) &&
			h.BalanceAfter.Equal(dec("1096"))
	})).Return(nil)
	m.publisher.On("Publish", mock.AnythingOfType("events.BalanceChangeEvent")).Return(nil)
	m.publisher.On("Publish", mock.MatchedBy(func(e events.BetSettledEvent) bool {
		return e.BetID == 1 && e.Status == entities.BetStatusWon
	})).Return(nil)

	outcome, err := m.service().SettleBet(ctx, 1, entities.SideA)
	require.NoError(t, err)

	assert.True(t, outcome.Settled)
	assert.Equal(t, "196.00", outcome.Bet.Payout.StringFixed(2))
	assert.Equal(t, "96.00", outcome.Bet.Net.StringFixed(2))
	assert.Equal(t, "1096.00", outcome.NewBalance.StringFixed(2))
	m.users.AssertExpectations(t)
	m.bets.AssertExpectations(t)
	m.history.AssertExpectations(t)
	m.publisher.AssertExpectations(t)
}

func TestSettlementService_SettleBet_Loss(t *testing.T) {
	ctx := context.Background()
	m := newSettlementMocks()
	bet := placedBet(2, entities.SideB, "100")

	m.bets.On("GetByIDForUpdate", ctx, int64(2)).Return(bet, nil)
	m.bets.On("UpdateSettlement", ctx, mock.Anything).Return(true, nil)
	m.users.On("GetByID", ctx, int64(7)).Return(&entities.User{ID: 7, Balance: dec("900")}, nil)
	m.publisher.On("Publish", mock.AnythingOfType("events.BetSettledEvent")).Return(nil)

	outcome, err := m.service().SettleBet(ctx, 2, entities.SideA)
	require.NoError(t, err)

	assert.True(t, outcome.Settled)
	assert.Equal(t, entities.BetStatusLost, outcome.Bet.Status)
	assert.Equal(t, "0.00", outcome.Bet.Payout.StringFixed(2))
	assert.Equal(t, "-100.00", outcome.Bet.Net.StringFixed(2))
	assert.Equal(t, "900.00", outcome.NewBalance.StringFixed(2))

	// a loss moves no money at settlement time
	m.users.AssertNotCalled(t, "AdjustBalance", mock.Anything, mock.Anything, mock.Anything)
	m.history.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	m.bets.AssertExpectations(t)
}

func TestSettlementService_SettleBet_AlreadySettledIsNoop(t *testing.T) {
	ctx := context.Background()
	m := newSettlementMocks()
	bet := placedBet(3, entities.SideA, "100")
	bet.Status = entities.BetStatusWon
	bet.Payout = dec("196")

	m.bets.On("GetByIDForUpdate", ctx, int64(3)).Return(bet, nil)

	outcome, err := m.service().SettleBet(ctx, 3, entities.SideA)
	require.NoError(t, err)
	assert.False(t, outcome.Settled)

	m.bets.AssertNotCalled(t, "UpdateSettlement", mock.Anything, mock.Anything)
	m.users.AssertNotCalled(t, "AdjustBalance", mock.Anything, mock.Anything, mock.Anything)
	m.publisher.AssertNotCalled(t, "Publish", mock.Anything)
}

func TestSettlementService_SettleBet_LostRaceIsNoop(t *testing.T) {
	ctx := context.Background()
	m := newSettlementMocks()

	m.bets.On("GetByIDForUpdate", ctx, int64(4)).Return(placedBet(4, entities.SideA, "100"), nil)
	m.bets.On("UpdateSettlement", ctx, mock.Anything).Return(false, nil)

	outcome, err := m.service().SettleBet(ctx, 4, entities.SideA)
	require.NoError(t, err)
	assert.False(t, outcome.Settled)
	m.users.AssertNotCalled(t, "AdjustBalance", mock.Anything, mock.Anything, mock.Anything)
}

func TestSettlementService_SettleBet_MissingBet(t *testing.T) {
	ctx := context.Background()
	m := newSettlementMocks()

	m.bets.On("GetByIDForUpdate", ctx, int64(99)).Return(nil, nil)

	_, err := m.service().SettleBet(ctx, 99, entities.SideA)
	assert.Error(t, err)
}

func TestSettlementService_SettleBet_StoreBalanceMismatch(t *testing.T) {
	ctx := context.Background()
	m := newSettlementMocks()

	m.bets.On("GetByIDForUpdate", ctx, int64(5)).Return(placedBet(5, entities.SideA, "100"), nil)
	m.bets.On("UpdateSettlement", ctx, mock.Anything).Return(true, nil)
	m.users.On("GetByIDForUpdate", ctx, int64(7)).Return(&entities.User{ID: 7, Balance: dec("900")}, nil)
	m.users.On("AdjustBalance", ctx, int64(7), decEq("196")).Return(dec("1000"), nil)

	_, err := m.service().SettleBet(ctx, 5, entities.SideA)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "balance mismatch")
	m.history.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	m.publisher.AssertNotCalled(t, "Publish", mock.Anything)
}
