package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"teenpatti/application/dto"
	"teenpatti/config"
	"teenpatti/domain/entities"
	"teenpatti/domain/events"
	"teenpatti/domain/interfaces"
	"teenpatti/domain/services"

	log "github.com/sirupsen/logrus"
)

// RoundDealer creates the next round with its outcome decided
type RoundDealer interface {
	Deal(now time.Time) (*entities.Round, error)
}

// EngineConfig holds the round engine's timing and betting rules
type EngineConfig struct {
	Timing          entities.RoundTiming
	TickInterval    time.Duration
	LockTimeout     time.Duration
	FinalizeTimeout time.Duration
	StakeLimits     services.StakeLimits
	HistoryWindow   int
}

// EngineConfigFrom maps application config onto the engine
func EngineConfigFrom(cfg *config.Config) EngineConfig {
	return EngineConfig{
		Timing: entities.RoundTiming{
			BettingWindow: cfg.BettingWindow,
			RevealWindow:  cfg.RevealWindow,
		},
		TickInterval:    cfg.TickInterval,
		LockTimeout:     cfg.LockTimeout,
		FinalizeTimeout: cfg.FinalizeTimeout,
		StakeLimits:     services.StakeLimits{Min: cfg.MinStake, Max: cfg.MaxStake},
		HistoryWindow:   cfg.HistoryWindow,
	}
}

// activeRound is the current round plus the placements still writing to it
type activeRound struct {
	round    *entities.Round
	inflight sync.WaitGroup
}

// RoundEngine owns the current round. It rolls rounds over on a fixed cycle,
// accepts bets during the betting phase and hands finished rounds to the settler.
type RoundEngine struct {
	cfg        EngineConfig
	clock      Clock
	dealer     RoundDealer
	uowFactory UnitOfWorkFactory
	settler    *RoundSettler
	publisher  interfaces.EventPublisher
	metrics    Metrics

	// lock is a one slot semaphore guarding current so waits can time out
	lock      chan struct{}
	current   *activeRound
	currentID atomic.Value // string, readable without the lock

	historyMu sync.Mutex
	recent    []entities.RoundResult // newest first

	lifecycleMu sync.Mutex
	started     bool
	cancel      context.CancelFunc
	loopDone    chan struct{}
	finalizers  sync.WaitGroup
}

// NewRoundEngine creates an engine. Nothing runs until Start, but reads and
// bets work lazily without it.
func NewRoundEngine(
	cfg EngineConfig,
	clock Clock,
	dealer RoundDealer,
	uowFactory UnitOfWorkFactory,
	settler *RoundSettler,
	publisher interfaces.EventPublisher,
) *RoundEngine {
	e := &RoundEngine{
		cfg:        cfg,
		clock:      clock,
		dealer:     dealer,
		uowFactory: uowFactory,
		settler:    settler,
		publisher:  publisher,
		metrics:    noopMetrics{},
		lock:       make(chan struct{}, 1),
	}
	e.currentID.Store("")
	settler.exposureRound = e.CurrentRoundID
	return e
}

// WithMetrics sets the metrics sink for the engine and its settler
func (e *RoundEngine) WithMetrics(m Metrics) *RoundEngine {
	if m != nil {
		e.metrics = m
		e.settler.WithMetrics(m)
	}
	return e
}

// Start launches the tick loop. Calling it on a running engine does nothing.
func (e *RoundEngine) Start(ctx context.Context) {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()

	if e.started {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.loopDone = make(chan struct{})
	e.started = true

	go e.run(loopCtx, e.loopDone)

	log.WithFields(log.Fields{
		"betting_window": e.cfg.Timing.BettingWindow,
		"reveal_window":  e.cfg.Timing.RevealWindow,
		"tick_interval":  e.cfg.TickInterval,
	}).Info("Round engine started")
}

// Stop ends the tick loop and waits for finishing rounds to settle, bounded by ctx.
// Calling it on a stopped engine does nothing.
func (e *RoundEngine) Stop(ctx context.Context) error {
	e.lifecycleMu.Lock()
	if !e.started {
		e.lifecycleMu.Unlock()
		return nil
	}
	e.started = false
	cancel, loopDone := e.cancel, e.loopDone
	e.lifecycleMu.Unlock()

	cancel()

	select {
	case <-loopDone:
	case <-ctx.Done():
		return ctx.Err()
	}

	finalized := make(chan struct{})
	go func() {
		e.finalizers.Wait()
		close(finalized)
	}()

	select {
	case <-finalized:
		log.Info("Round engine stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("round engine stop: settlement still running: %w", ctx.Err())
	}
}

func (e *RoundEngine) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	e.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

// tick creates or rolls over the current round when it is due
func (e *RoundEngine) tick(ctx context.Context) {
	if err := e.acquire(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.WithError(err).Debug("Tick skipped, round lock busy")
		}
		return
	}
	now := e.clock.Now()
	_, finished, started, err := e.currentLocked(now)
	e.release()

	if err != nil {
		log.WithError(err).Error("Failed to deal round")
		return
	}
	e.afterRollover(finished, started, now)
}

// acquire takes the round lock, giving up after LockTimeout
func (e *RoundEngine) acquire(ctx context.Context) error {
	timer := time.NewTimer(e.cfg.LockTimeout)
	defer timer.Stop()

	select {
	case e.lock <- struct{}{}:
		return nil
	case <-timer.C:
		return entities.ErrEngineBusy
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *RoundEngine) release() {
	<-e.lock
}

// currentLocked returns the round that is current at now, dealing the first
// round or rolling over a finished one. Must be called with the lock held.
func (e *RoundEngine) currentLocked(now time.Time) (current, finished *activeRound, started *entities.Round, err error) {
	if e.current != nil && !e.cfg.Timing.IsOver(e.current.round.StartedAt, now) {
		return e.current, nil, nil, nil
	}

	next, err := e.dealer.Deal(now)
	if err != nil {
		if e.current != nil {
			// Keep serving the old round rather than having none
			return e.current, nil, nil, err
		}
		return nil, nil, nil, err
	}

	finished = e.current
	e.current = &activeRound{round: next}
	e.currentID.Store(next.ID)
	return e.current, finished, next, nil
}

// afterRollover announces a new round and starts finalizing the previous one.
// It runs after the lock is released.
func (e *RoundEngine) afterRollover(finished *activeRound, started *entities.Round, now time.Time) {
	if started != nil {
		e.metrics.RecordRoundStarted()
		log.WithField("round_id", started.ID).Info("Round started")

		if err := e.publisher.Publish(events.RoundStartedEvent{
			RoundID:       started.ID,
			StartedAt:     started.StartedAt,
			BettingEndsAt: started.StartedAt.Add(e.cfg.Timing.BettingWindow),
			EndsAt:        started.StartedAt.Add(e.cfg.Timing.Cycle()),
		}); err != nil {
			log.WithFields(log.Fields{
				"round_id": started.ID,
				"error":    err,
			}).Warn("Failed to publish round started event")
		}
	}

	if finished != nil {
		e.finalizers.Add(1)
		go e.finalize(finished, now)
	}
}

// finalize persists and settles a finished round exactly once
func (e *RoundEngine) finalize(finished *activeRound, endedAt time.Time) {
	defer e.finalizers.Done()

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.FinalizeTimeout)
	defer cancel()

	// Placements validated inside the window may still be writing
	placed := make(chan struct{})
	go func() {
		finished.inflight.Wait()
		close(placed)
	}()
	select {
	case <-placed:
	case <-ctx.Done():
		log.WithField("round_id", finished.round.ID).
			Error("Timed out waiting for in-flight bets, open bets are left for reconciliation")
		return
	}

	round := *finished.round
	round.EndedAt = &endedAt

	report, err := e.settler.SettleRound(ctx, &round)
	if err != nil {
		log.WithFields(log.Fields{
			"round_id": round.ID,
			"error":    err,
		}).Error("Round finalization failed, open bets are left for reconciliation")
	}
	if report != nil {
		e.recordResult(round.Result())
	}
}

func (e *RoundEngine) recordResult(result entities.RoundResult) {
	e.historyMu.Lock()
	defer e.historyMu.Unlock()

	e.recent = append([]entities.RoundResult{result}, e.recent...)
	if len(e.recent) > e.cfg.HistoryWindow {
		e.recent = e.recent[:e.cfg.HistoryWindow]
	}
}

// RecentResults returns the in-memory window of finished rounds, newest first
func (e *RoundEngine) RecentResults() []entities.RoundResult {
	e.historyMu.Lock()
	defer e.historyMu.Unlock()

	out := make([]entities.RoundResult, len(e.recent))
	copy(out, e.recent)
	return out
}

// CurrentRoundID returns the id of the current round, or "" before the first round
func (e *RoundEngine) CurrentRoundID() string {
	return e.currentID.Load().(string)
}

// Snapshot returns the public view of the current round as of the moment the lock is held
func (e *RoundEngine) Snapshot(ctx context.Context) (*dto.RoundSnapshot, error) {
	return e.snapshot(ctx, e.clock.Now)
}

// SnapshotAt returns the public view of the current round at now.
// Undisclosed cards are masked and the winner stays nil until the last reveal step.
func (e *RoundEngine) SnapshotAt(ctx context.Context, now time.Time) (*dto.RoundSnapshot, error) {
	return e.snapshot(ctx, func() time.Time { return now })
}

func (e *RoundEngine) snapshot(ctx context.Context, clock func() time.Time) (*dto.RoundSnapshot, error) {
	if err := e.acquire(ctx); err != nil {
		return nil, err
	}
	now := clock()
	active, finished, started, err := e.currentLocked(now)
	var round *entities.Round
	if active != nil {
		round = active.round
	}
	e.release()

	e.afterRollover(finished, started, now)
	if round == nil {
		return nil, err
	}

	pos := e.cfg.Timing.Position(round.StartedAt, now)
	playerA, playerB := round.VisibleCards(pos.RevealStep)

	return &dto.RoundSnapshot{
		RoundID:       round.ID,
		Phase:         pos.Phase,
		SecondsLeft:   int(pos.SecondsLeft),
		RevealStep:    pos.RevealStep,
		PlayerA:       playerA,
		PlayerB:       playerB,
		Winner:        round.WinnerAt(pos.RevealStep),
		ServerTime:    now,
		RecentResults: e.RecentResults(),
	}, nil
}

// PlaceBet accepts a stake on the current round during its betting phase.
// Round and phase are checked under the lock; the balance debit runs after it is released.
func (e *RoundEngine) PlaceBet(ctx context.Context, req dto.PlaceBetRequest) (*entities.BetReceipt, error) {
	if err := e.acquire(ctx); err != nil {
		e.metrics.RecordBetRejected(string(entities.ErrorCodeOf(err)))
		return nil, err
	}
	// Phase is judged at the moment the lock is held, not when the request arrived
	now := e.clock.Now()
	active, finished, started, err := e.currentLocked(now)
	if err == nil {
		err = e.checkOpen(active.round, req.RoundID, now)
	}
	if err == nil {
		active.inflight.Add(1)
	}
	e.release()

	e.afterRollover(finished, started, now)
	if err != nil {
		e.metrics.RecordBetRejected(string(entities.ErrorCodeOf(err)))
		return nil, err
	}
	defer active.inflight.Done()

	receipt, err := e.placeBet(ctx, active.round, req)
	if err != nil {
		e.metrics.RecordBetRejected(string(entities.ErrorCodeOf(err)))
		return nil, err
	}

	e.metrics.RecordBetPlaced(string(receipt.Side), receipt.Stake.InexactFloat64())
	log.WithFields(log.Fields{
		"round_id": receipt.RoundID,
		"user_id":  receipt.UserID,
		"bet_id":   receipt.BetID,
		"side":     receipt.Side,
		"stake":    receipt.Stake.StringFixed(entities.MoneyPlaces),
	}).Info("Bet placed")
	return receipt, nil
}

func (e *RoundEngine) checkOpen(round *entities.Round, roundID string, now time.Time) error {
	if roundID != round.ID {
		return entities.WrapBetError(entities.ErrCodeRoundMismatch,
			fmt.Sprintf("round %s is not the current round", roundID), nil)
	}
	if pos := e.cfg.Timing.Position(round.StartedAt, now); pos.Phase != entities.PhaseBetting {
		return entities.WrapBetError(entities.ErrCodePhaseClosed,
			fmt.Sprintf("round %s is %s", round.ID, pos.Phase), nil)
	}
	return nil
}

// placeBet debits and records the bet in one transaction. The user's new
// balance and exposure are pushed once it commits.
func (e *RoundEngine) placeBet(ctx context.Context, round *entities.Round, req dto.PlaceBetRequest) (*entities.BetReceipt, error) {
	uow := e.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, entities.WrapBetError(entities.ErrCodePersistenceFailure, "failed to begin transaction", err)
	}
	defer uow.Rollback()

	bettingService := services.NewBettingService(
		uow.UserRepository(),
		uow.RoundRepository(),
		uow.BetRepository(),
		uow.BalanceHistoryRepository(),
		uow.EventBus(),
		e.cfg.StakeLimits,
	)

	receipt, err := bettingService.PlaceBet(ctx, round, req.UserID, req.Side, req.Stake)
	if err != nil {
		if entities.ErrorCodeOf(err) == "" {
			return nil, entities.WrapBetError(entities.ErrCodePersistenceFailure, "failed to place bet", err)
		}
		return nil, err
	}

	exposure, err := uow.BetRepository().SumPlacedStakes(ctx, req.UserID, round.ID)
	if err != nil {
		return nil, entities.WrapBetError(entities.ErrCodePersistenceFailure, "failed to read exposure", err)
	}
	if err := uow.EventBus().Publish(events.UserProfileUpdatedEvent{
		UserID:   req.UserID,
		Balance:  receipt.NewBalance,
		Exposure: exposure,
		RoundID:  round.ID,
	}); err != nil {
		log.WithError(err).Warn("Failed to queue profile update")
	}

	if err := uow.Commit(); err != nil {
		return nil, entities.WrapBetError(entities.ErrCodePersistenceFailure, "failed to commit bet", err)
	}
	return receipt, nil
}

// Profile returns the user's balance and open stake in the current round
func (e *RoundEngine) Profile(ctx context.Context, userID int64) (*entities.UserProfile, error) {
	snapshot, err := e.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return loadProfile(ctx, e.uowFactory, userID, snapshot.RoundID)
}

// RecentRounds returns up to limit finished rounds from storage, newest first
func (e *RoundEngine) RecentRounds(ctx context.Context, limit int) ([]entities.RoundResult, error) {
	if limit <= 0 {
		limit = e.cfg.HistoryWindow
	}

	uow := e.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	rounds, err := uow.RoundRepository().GetRecentFinished(ctx, limit)
	if err != nil {
		return nil, err
	}

	results := make([]entities.RoundResult, 0, len(rounds))
	for _, round := range rounds {
		results = append(results, round.Result())
	}
	return results, nil
}

// UserBets returns a user's most recent bets, newest first
func (e *RoundEngine) UserBets(ctx context.Context, userID int64, limit int) ([]*entities.Bet, error) {
	uow := e.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.BetRepository().GetByUser(ctx, userID, limit)
}
