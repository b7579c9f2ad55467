package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"teenpatti/domain/entities"
	"teenpatti/domain/testhelpers"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decEq(expected string) interface{} {
	want := decimal.RequireFromString(expected)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}

func testLimits() StakeLimits {
	return StakeLimits{Min: dec("10"), Max: dec("1000")}
}

func testRound() *entities.Round {
	return &entities.Round{
		ID:        "123456789012345",
		Game:      entities.GameTPT20,
		StartedAt: time.Now().UTC(),
		Winner:    entities.SideA,
		Resolver:  entities.ResolverOfficial,
	}
}

type bettingMocks struct {
	users     *testhelpers.MockUserRepository
	rounds    *testhelpers.MockRoundRepository
	bets      *testhelpers.MockBetRepository
	history   *testhelpers.MockBalanceHistoryRepository
	publisher *testhelpers.MockEventPublisher
}

func newBettingMocks() *bettingMocks {
	return &bettingMocks{
		users:     new(testhelpers.MockUserRepository),
		rounds:    new(testhelpers.MockRoundRepository),
		bets:      new(testhelpers.MockBetRepository),
		history:   new(testhelpers.MockBalanceHistoryRepository),
		publisher: new(testhelpers.MockEventPublisher),
	}
}

func (m *bettingMocks) service() *bettingService {
	return NewBettingService(m.users, m.rounds, m.bets, m.history, m.publisher, testLimits()).(*bettingService)
}

func (m *bettingMocks) assertExpectations(t *testing.T) {
	m.users.AssertExpectations(t)
	m.rounds.AssertExpectations(t)
	m.bets.AssertExpectations(t)
	m.history.AssertExpectations(t)
	m.publisher.AssertExpectations(t)
}

func TestBettingService_PlaceBet_Success(t *testing.T) {
	ctx := context.Background()
	m := newBettingMocks()
	round := testRound()

	m.users.On("GetByIDForUpdate", ctx, int64(7)).Return(&entities.User{ID: 7, Balance: dec("500.00")}, nil)
	m.rounds.On("Ensure", ctx, round).Return(nil)
	m.users.On("AdjustBalance", ctx, int64(7), decEq("-100")).Return(dec("400.00"), nil)
	m.bets.On("Create", ctx, mock.MatchedBy(func(b *entities.Bet) bool {
		return b.UserID == 7 &&
			b.RoundID == round.ID &&
			b.Side == entities.SideB &&
			b.Stake.Equal(dec("100")) &&
			b.Status == entities.BetStatusPlaced
	})).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*entities.Bet).ID = 55
	})
	m.history.On("Record", ctx, mock.MatchedBy(func(h *entities.BalanceHistory) bool {
		return h.UserID == 7 &&
			h.BalanceBefore.Equal(dec("500")) &&
			h.BalanceAfter.Equal(dec("400")) &&
			h.ChangeAmount.Equal(dec("-100")) &&
			h.TransactionType == entities.TransactionTypeBetStake &&
			*h.BetID == 55 &&
			*h.RoundID == round.ID
	})).Return(nil)
	m.publisher.On("Publish", mock.AnythingOfType("events.BalanceChangeEvent")).Return(nil)
	m.publisher.On("Publish", mock.AnythingOfType("events.BetPlacedEvent")).Return(nil)

	receipt, err := m.service().PlaceBet(ctx, round, 7, entities.SideB, dec("100"))
	require.NoError(t, err)

	assert.Equal(t, int64(55), receipt.BetID)
	assert.Equal(t, round.ID, receipt.RoundID)
	assert.Equal(t, entities.SideB, receipt.Side)
	assert.Equal(t, "400.00", receipt.NewBalance.StringFixed(2))
	assert.Equal(t, entities.ResolverOfficial, receipt.Resolver)
	m.assertExpectations(t)
}

func TestBettingService_PlaceBet_InvalidStake(t *testing.T) {
	tests := []struct {
		name  string
		stake string
	}{
		{"zero", "0"},
		{"negative", "-5"},
		{"below minimum", "9.99"},
		{"above maximum", "1000.01"},
		{"fractional cents", "10.005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newBettingMocks()

			_, err := m.service().PlaceBet(context.Background(), testRound(), 7, entities.SideA, dec(tt.stake))
			assert.True(t, errors.Is(err, entities.ErrInvalidStake), "got %v", err)

			// nothing touched the store
			m.assertExpectations(t)
			m.users.AssertNotCalled(t, "AdjustBalance", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestBettingService_PlaceBet_InvalidSide(t *testing.T) {
	m := newBettingMocks()

	_, err := m.service().PlaceBet(context.Background(), testRound(), 7, entities.Side("C"), dec("50"))
	assert.True(t, errors.Is(err, entities.ErrInvalidSide))
}

func TestBettingService_PlaceBet_InsufficientBalance(t *testing.T) {
	ctx := context.Background()
	m := newBettingMocks()

	m.users.On("GetByIDForUpdate", ctx, int64(7)).Return(&entities.User{ID: 7, Balance: dec("99.99")}, nil)

	_, err := m.service().PlaceBet(ctx, testRound(), 7, entities.SideA, dec("100"))
	assert.True(t, errors.Is(err, entities.ErrInsufficientBalance))
	m.users.AssertNotCalled(t, "AdjustBalance", mock.Anything, mock.Anything, mock.Anything)
	m.bets.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestBettingService_PlaceBet_UserNotFound(t *testing.T) {
	ctx := context.Background()
	m := newBettingMocks()

	m.users.On("GetByIDForUpdate", ctx, int64(404)).Return(nil, nil)

	_, err := m.service().PlaceBet(ctx, testRound(), 404, entities.SideA, dec("50"))
	assert.True(t, errors.Is(err, entities.ErrUserNotFound))
	m.assertExpectations(t)
}

func TestBettingService_PlaceBet_DebitRejectedByStore(t *testing.T) {
	ctx := context.Background()
	m := newBettingMocks()
	round := testRound()

	m.users.On("GetByIDForUpdate", ctx, int64(7)).Return(&entities.User{ID: 7, Balance: dec("100")}, nil)
	m.rounds.On("Ensure", ctx, round).Return(nil)
	m.users.On("AdjustBalance", ctx, int64(7), decEq("-100")).
		Return(decimal.Zero, entities.WrapBetError(entities.ErrCodeInsufficientBalance, "balance changed", nil))

	_, err := m.service().PlaceBet(ctx, round, 7, entities.SideA, dec("100"))
	assert.True(t, errors.Is(err, entities.ErrInsufficientBalance))
	m.bets.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestStakeLimits_Validate(t *testing.T) {
	limits := testLimits()

	assert.NoError(t, limits.Validate(dec("10")))
	assert.NoError(t, limits.Validate(dec("1000")))
	assert.NoError(t, limits.Validate(dec("12.50")))
	assert.Error(t, limits.Validate(dec("0.01")))
}

func TestBettingService_PlaceBet_StoreBalanceMismatch(t *testing.T) {
	ctx := context.Background()
	m := newBettingMocks()
	round := testRound()

	m.users.On("GetByIDForUpdate", ctx, int64(7)).Return(&entities.User{ID: 7, Balance: dec("500")}, nil)
	m.rounds.On("Ensure", ctx, round).Return(nil)
	m.users.On("AdjustBalance", ctx, int64(7), decEq("-100")).Return(dec("350"), nil)

	_, err := m.service().PlaceBet(ctx, round, 7, entities.SideA, dec("100"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "balance mismatch")
	m.bets.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	m.history.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestUser_CalculateNewBalance(t *testing.T) {
	user := &entities.User{ID: 7, Balance: dec("500.00")}

	assert.Equal(t, "400.00", user.CalculateNewBalance(dec("-100")).StringFixed(2))
	assert.Equal(t, "696.00", user.CalculateNewBalance(dec("196")).StringFixed(2))
}
