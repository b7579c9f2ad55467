package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"teenpatti/application/dto"
	"teenpatti/config"
	"teenpatti/domain/entities"
	"teenpatti/domain/events"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type engineFixture struct {
	clock     *fakeClock
	dealer    *scriptedDealer
	uow       *fakeUnitOfWorkFactory
	publisher *recordingPublisher
	engine    *RoundEngine
}

func newEngineFixture() *engineFixture {
	f := &engineFixture{
		clock:     newFakeClock(t0),
		dealer:    &scriptedDealer{},
		uow:       newFakeUnitOfWorkFactory(),
		publisher: &recordingPublisher{},
	}
	settler := NewRoundSettler(f.uow, f.publisher, decimal.RequireFromString("1.96"))
	f.engine = NewRoundEngine(EngineConfigFrom(config.NewTestConfig()), f.clock, f.dealer, f.uow, settler, f.publisher)
	return f
}

// expectEmptyFinalize lets a finished round persist with no open bets
func (f *engineFixture) expectEmptyFinalize() {
	f.uow.rounds.On("Upsert", mock.Anything, mock.MatchedBy(func(r *entities.Round) bool {
		return r.EndedAt != nil
	})).Return(nil)
	f.uow.bets.On("GetPlacedIDsByRound", mock.Anything, mock.Anything).Return([]int64{}, nil)
}

func TestRoundEngine_SnapshotMasksUndisclosedCards(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture()

	snap, err := f.engine.SnapshotAt(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, roundIDFor(1), snap.RoundID)
	assert.Equal(t, entities.PhaseBetting, snap.Phase)
	assert.Equal(t, 20, snap.SecondsLeft)
	assert.Equal(t, 0, snap.RevealStep)
	assert.Equal(t, []string{entities.FaceDown, entities.FaceDown, entities.FaceDown}, snap.PlayerA)
	assert.Equal(t, []string{entities.FaceDown, entities.FaceDown, entities.FaceDown}, snap.PlayerB)
	assert.Nil(t, snap.Winner)

	snap, err = f.engine.SnapshotAt(ctx, t0.Add(22*time.Second))
	require.NoError(t, err)
	assert.Equal(t, entities.PhaseRevealing, snap.Phase)
	assert.Equal(t, 2, snap.RevealStep)
	assert.Equal(t, 8, snap.SecondsLeft)
	assert.Equal(t, []string{"AS", entities.FaceDown, entities.FaceDown}, snap.PlayerA)
	assert.Equal(t, []string{"2C", entities.FaceDown, entities.FaceDown}, snap.PlayerB)
	assert.Nil(t, snap.Winner)

	snap, err = f.engine.SnapshotAt(ctx, t0.Add(29*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 6, snap.RevealStep)
	assert.Equal(t, []string{"AS", "AH", "AD"}, snap.PlayerA)
	assert.Equal(t, []string{"2C", "7D", "9S"}, snap.PlayerB)
	require.NotNil(t, snap.Winner)
	assert.Equal(t, entities.SideA, *snap.Winner)

	// same round throughout
	assert.Equal(t, roundIDFor(1), snap.RoundID)
	assert.Len(t, f.publisher.ofType(events.EventTypeRoundStarted), 1)
}

func TestRoundEngine_RolloverFinalizesPreviousRound(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture()
	f.expectEmptyFinalize()

	_, err := f.engine.SnapshotAt(ctx, t0)
	require.NoError(t, err)

	snap, err := f.engine.SnapshotAt(ctx, t0.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, roundIDFor(2), snap.RoundID)
	assert.Equal(t, entities.PhaseBetting, snap.Phase)
	assert.Equal(t, roundIDFor(2), f.engine.CurrentRoundID())

	require.Eventually(t, func() bool {
		return len(f.engine.RecentResults()) == 1
	}, time.Second, 5*time.Millisecond)

	result := f.engine.RecentResults()[0]
	assert.Equal(t, roundIDFor(1), result.RoundID)
	assert.Equal(t, entities.SideA, result.Winner)
	require.NotNil(t, result.EndedAt)
	assert.Equal(t, t0.Add(30*time.Second), *result.EndedAt)

	assert.Len(t, f.publisher.ofType(events.EventTypeRoundStarted), 2)
	assert.Len(t, f.uow.bus.ofType(events.EventTypeRoundFinalized), 1)
}

func TestRoundEngine_HistoryWindowIsBounded(t *testing.T) {
	f := newEngineFixture()
	f.engine.cfg.HistoryWindow = 2

	for i := 1; i <= 3; i++ {
		ended := t0
		f.engine.recordResult(entities.RoundResult{RoundID: roundIDFor(i), Winner: entities.SideB, EndedAt: &ended})
	}

	recent := f.engine.RecentResults()
	require.Len(t, recent, 2)
	assert.Equal(t, roundIDFor(3), recent[0].RoundID)
	assert.Equal(t, roundIDFor(2), recent[1].RoundID)
}

func TestRoundEngine_PlaceBet_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("stale round id", func(t *testing.T) {
		f := newEngineFixture()
		_, err := f.engine.PlaceBet(ctx, dto.PlaceBetRequest{
			RoundID: "999999999999999",
			UserID:  7,
			Side:    entities.SideA,
			Stake:   decimal.NewFromInt(100),
		})
		assert.ErrorIs(t, err, entities.ErrRoundMismatch)
		assert.Zero(t, f.uow.createdCount())
	})

	t.Run("betting window closed", func(t *testing.T) {
		f := newEngineFixture()
		snap, err := f.engine.SnapshotAt(ctx, t0)
		require.NoError(t, err)

		f.clock.Advance(20 * time.Second)
		_, err = f.engine.PlaceBet(ctx, dto.PlaceBetRequest{
			RoundID: snap.RoundID,
			UserID:  7,
			Side:    entities.SideA,
			Stake:   decimal.NewFromInt(100),
		})
		assert.ErrorIs(t, err, entities.ErrPhaseClosed)
		assert.Zero(t, f.uow.createdCount())
	})

	t.Run("expired round is rolled before checking", func(t *testing.T) {
		f := newEngineFixture()
		f.expectEmptyFinalize()
		snap, err := f.engine.SnapshotAt(ctx, t0)
		require.NoError(t, err)

		f.clock.Advance(31 * time.Second)
		_, err = f.engine.PlaceBet(ctx, dto.PlaceBetRequest{
			RoundID: snap.RoundID,
			UserID:  7,
			Side:    entities.SideA,
			Stake:   decimal.NewFromInt(100),
		})
		assert.ErrorIs(t, err, entities.ErrRoundMismatch)
		assert.Equal(t, roundIDFor(2), f.engine.CurrentRoundID())
		f.engine.finalizers.Wait()
	})

	t.Run("round lock held too long", func(t *testing.T) {
		f := newEngineFixture()
		f.engine.lock <- struct{}{}
		defer f.engine.release()

		_, err := f.engine.PlaceBet(ctx, dto.PlaceBetRequest{RoundID: "x", UserID: 7, Side: entities.SideA, Stake: decimal.NewFromInt(100)})
		assert.ErrorIs(t, err, entities.ErrEngineBusy)

		_, err = f.engine.Snapshot(ctx)
		assert.ErrorIs(t, err, entities.ErrEngineBusy)
	})

	t.Run("domain rejection passes through", func(t *testing.T) {
		f := newEngineFixture()
		snap, err := f.engine.SnapshotAt(ctx, t0)
		require.NoError(t, err)
		f.uow.users.On("GetByIDForUpdate", mock.Anything, int64(7)).
			Return(&entities.User{ID: 7, Balance: decimal.NewFromInt(50)}, nil)

		_, err = f.engine.PlaceBet(ctx, dto.PlaceBetRequest{
			RoundID: snap.RoundID,
			UserID:  7,
			Side:    entities.SideA,
			Stake:   decimal.NewFromInt(100),
		})
		assert.ErrorIs(t, err, entities.ErrInsufficientBalance)
		f.uow.users.AssertNotCalled(t, "AdjustBalance", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("repository failure becomes persistence failure", func(t *testing.T) {
		f := newEngineFixture()
		snap, err := f.engine.SnapshotAt(ctx, t0)
		require.NoError(t, err)
		f.uow.users.On("GetByIDForUpdate", mock.Anything, int64(7)).Return(nil, errors.New("connection reset"))

		_, err = f.engine.PlaceBet(ctx, dto.PlaceBetRequest{
			RoundID: snap.RoundID,
			UserID:  7,
			Side:    entities.SideA,
			Stake:   decimal.NewFromInt(100),
		})
		assert.ErrorIs(t, err, entities.ErrPersistenceFailure)
	})
}

func TestRoundEngine_PlaceBet_Success(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture()

	snap, err := f.engine.SnapshotAt(ctx, t0)
	require.NoError(t, err)
	f.clock.Advance(5 * time.Second)

	f.uow.users.On("GetByIDForUpdate", mock.Anything, int64(7)).
		Return(&entities.User{ID: 7, Balance: decimal.NewFromInt(1000)}, nil)
	f.uow.rounds.On("Ensure", mock.Anything, mock.MatchedBy(func(r *entities.Round) bool {
		return r.ID == snap.RoundID
	})).Return(nil)
	f.uow.users.On("AdjustBalance", mock.Anything, int64(7), mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(decimal.NewFromInt(-100))
	})).Return(decimal.NewFromInt(900), nil)
	f.uow.bets.On("Create", mock.Anything, mock.AnythingOfType("*entities.Bet")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*entities.Bet).ID = 11
		}).Return(nil)
	f.uow.history.On("Record", mock.Anything, mock.Anything).Return(nil)
	f.uow.bets.On("SumPlacedStakes", mock.Anything, int64(7), snap.RoundID).Return(decimal.NewFromInt(100), nil)

	receipt, err := f.engine.PlaceBet(ctx, dto.PlaceBetRequest{
		RoundID: snap.RoundID,
		UserID:  7,
		Side:    entities.SideA,
		Stake:   decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(11), receipt.BetID)
	assert.Equal(t, snap.RoundID, receipt.RoundID)
	assert.Equal(t, "900.00", receipt.NewBalance.StringFixed(2))
	assert.Equal(t, entities.ResolverOfficial, receipt.Resolver)

	profiles := f.uow.bus.ofType(events.EventTypeUserProfileUpdated)
	require.Len(t, profiles, 1)
	profile := profiles[0].(events.UserProfileUpdatedEvent)
	assert.Equal(t, "100", profile.Exposure.String())
	assert.Equal(t, "900", profile.Balance.String())
	assert.Len(t, f.uow.bus.ofType(events.EventTypeBetPlaced), 1)
	assert.Equal(t, 1, f.uow.commits)
	f.uow.users.AssertExpectations(t)
	f.uow.bets.AssertExpectations(t)
}

func TestRoundEngine_StartStopAreIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture()

	f.engine.Start(ctx)
	f.engine.Start(ctx)

	require.Eventually(t, func() bool {
		return f.engine.CurrentRoundID() != ""
	}, time.Second, 5*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, f.engine.Stop(stopCtx))
	require.NoError(t, f.engine.Stop(stopCtx))

	// only one loop ever dealt
	assert.Equal(t, roundIDFor(1), f.engine.CurrentRoundID())
}

func TestRoundEngine_RecentRoundsReadsStorage(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture()

	round, err := f.dealer.Deal(t0)
	require.NoError(t, err)
	ended := t0.Add(30 * time.Second)
	round.EndedAt = &ended
	f.uow.rounds.On("GetRecentFinished", mock.Anything, 10).Return([]*entities.Round{round}, nil)

	results, err := f.engine.RecentRounds(ctx, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, round.ID, results[0].RoundID)
	assert.Equal(t, []string{"AS", "AH", "AD"}, results[0].PlayerA)
	assert.Equal(t, 1, f.uow.rollbacks)
}

func TestRoundEngine_PlaceBet_PhaseJudgedWhenLockIsHeld(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture()

	snap, err := f.engine.SnapshotAt(ctx, t0)
	require.NoError(t, err)
	f.clock.Advance(19*time.Second + 950*time.Millisecond)

	// request arrives inside the window but has to queue for the lock
	f.engine.lock <- struct{}{}
	result := make(chan error, 1)
	go func() {
		_, err := f.engine.PlaceBet(ctx, dto.PlaceBetRequest{
			RoundID: snap.RoundID,
			UserID:  7,
			Side:    entities.SideA,
			Stake:   decimal.NewFromInt(100),
		})
		result <- err
	}()

	time.Sleep(20 * time.Millisecond)
	f.clock.Advance(100 * time.Millisecond)
	f.engine.release()

	select {
	case err := <-result:
		assert.ErrorIs(t, err, entities.ErrPhaseClosed)
	case <-time.After(time.Second):
		t.Fatal("PlaceBet did not return")
	}
	assert.Zero(t, f.uow.createdCount())
}

func TestRoundEngine_FinalizeWaitsForInflightBets(t *testing.T) {
	f := newEngineFixture()
	f.expectEmptyFinalize()

	round, err := f.dealer.Deal(t0)
	require.NoError(t, err)
	active := &activeRound{round: round}
	active.inflight.Add(1)

	f.engine.finalizers.Add(1)
	done := make(chan struct{})
	go func() {
		f.engine.finalize(active, t0.Add(30*time.Second))
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	f.uow.rounds.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)

	active.inflight.Done()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("finalize did not finish")
	}
	assert.Len(t, f.engine.RecentResults(), 1)
}

func TestRoundEngine_FinalizeGivesUpOnStuckPlacement(t *testing.T) {
	f := newEngineFixture()
	f.engine.cfg.FinalizeTimeout = 50 * time.Millisecond

	round, err := f.dealer.Deal(t0)
	require.NoError(t, err)
	active := &activeRound{round: round}
	active.inflight.Add(1)
	defer active.inflight.Done()

	f.engine.finalizers.Add(1)
	done := make(chan struct{})
	go func() {
		f.engine.finalize(active, t0.Add(30*time.Second))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("finalize did not give up on a stuck placement")
	}
	f.uow.rounds.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	assert.Empty(t, f.engine.RecentResults())
}
