package testhelpers

import (
	"context"

	"teenpatti/domain/entities"
	"teenpatti/domain/events"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID int64) (*entities.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetByIDForUpdate(ctx context.Context, userID int64) (*entities.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, userID int64, username string, initialBalance decimal.Decimal) (*entities.User, error) {
	args := m.Called(ctx, userID, username, initialBalance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) AdjustBalance(ctx context.Context, userID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, userID, delta)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockRoundRepository is a mock implementation of RoundRepository
type MockRoundRepository struct {
	mock.Mock
}

func (m *MockRoundRepository) Ensure(ctx context.Context, round *entities.Round) error {
	args := m.Called(ctx, round)
	return args.Error(0)
}

func (m *MockRoundRepository) Upsert(ctx context.Context, round *entities.Round) error {
	args := m.Called(ctx, round)
	return args.Error(0)
}

func (m *MockRoundRepository) GetByID(ctx context.Context, roundID string) (*entities.Round, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Round), args.Error(1)
}

func (m *MockRoundRepository) GetRecentFinished(ctx context.Context, limit int) ([]*entities.Round, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Round), args.Error(1)
}

func (m *MockRoundRepository) GetUnsettledFinished(ctx context.Context, limit int) ([]*entities.Round, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Round), args.Error(1)
}

// MockBetRepository is a mock implementation of BetRepository
type MockBetRepository struct {
	mock.Mock
}

func (m *MockBetRepository) Create(ctx context.Context, bet *entities.Bet) error {
	args := m.Called(ctx, bet)
	return args.Error(0)
}

func (m *MockBetRepository) GetByID(ctx context.Context, id int64) (*entities.Bet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Bet), args.Error(1)
}

func (m *MockBetRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Bet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Bet), args.Error(1)
}

func (m *MockBetRepository) GetPlacedIDsByRound(ctx context.Context, roundID string) ([]int64, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockBetRepository) UpdateSettlement(ctx context.Context, bet *entities.Bet) (bool, error) {
	args := m.Called(ctx, bet)
	return args.Bool(0), args.Error(1)
}

func (m *MockBetRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*entities.Bet, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Bet), args.Error(1)
}

func (m *MockBetRepository) SumPlacedStakes(ctx context.Context, userID int64, roundID string) (decimal.Decimal, error) {
	args := m.Called(ctx, userID, roundID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *entities.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBalanceHistoryRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*entities.BalanceHistory, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.BalanceHistory), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockTransactionalEventPublisher is a mock implementation of TransactionalEventPublisher
type MockTransactionalEventPublisher struct {
	mock.Mock
}

func (m *MockTransactionalEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockTransactionalEventPublisher) Flush(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTransactionalEventPublisher) Discard() {
	m.Called()
}
