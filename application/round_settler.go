package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"teenpatti/application/dto"
	"teenpatti/domain/entities"
	"teenpatti/domain/events"
	"teenpatti/domain/interfaces"
	"teenpatti/domain/services"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// RoundSettler persists finished rounds and settles their open bets.
// It is the only code path that credits stakes against an outcome.
type RoundSettler struct {
	uowFactory  UnitOfWorkFactory
	publisher   interfaces.EventPublisher
	returnRatio decimal.Decimal
	metrics     Metrics

	// exposureRound names the round profile exposure is measured against.
	// Nil or empty means no round is open and exposure is zero.
	exposureRound func() string
}

// NewRoundSettler creates a settler. publisher receives profile notifications directly.
func NewRoundSettler(uowFactory UnitOfWorkFactory, publisher interfaces.EventPublisher, returnRatio decimal.Decimal) *RoundSettler {
	return &RoundSettler{
		uowFactory:  uowFactory,
		publisher:   publisher,
		returnRatio: returnRatio,
		metrics:     noopMetrics{},
	}
}

// WithMetrics sets the metrics sink
func (s *RoundSettler) WithMetrics(m Metrics) *RoundSettler {
	if m != nil {
		s.metrics = m
	}
	return s
}

// SettleRound stores the round outcome and settles every PLACED bet in its own transaction.
// Bets that fail are left PLACED and reported through an ErrPersistenceFailure error
// alongside the partial report. Running it again for the same round is harmless.
func (s *RoundSettler) SettleRound(ctx context.Context, round *entities.Round) (*dto.SettlementReport, error) {
	start := time.Now()
	logger := log.WithField("round_id", round.ID)

	if !round.IsFinalized() {
		ended := time.Now().UTC()
		round.EndedAt = &ended
	}

	betIDs, err := s.persistOutcome(ctx, round)
	if err != nil {
		s.metrics.RecordSettlementFailure()
		return nil, entities.WrapBetError(entities.ErrCodePersistenceFailure,
			fmt.Sprintf("failed to persist round %s", round.ID), err)
	}
	s.metrics.RecordRoundFinalized(string(round.Winner))

	report := &dto.SettlementReport{RoundID: round.ID, Winner: round.Winner}
	affected := make(map[int64]struct{})
	var failures []error

	for _, betID := range betIDs {
		outcome, err := s.settleBet(ctx, betID, round.Winner)
		if err != nil {
			report.Failed++
			failures = append(failures, fmt.Errorf("bet %d: %w", betID, err))
			s.metrics.RecordSettlementFailure()
			logger.WithFields(log.Fields{
				"bet_id": betID,
				"error":  err,
			}).Error("Failed to settle bet")
			continue
		}
		if !outcome.Settled {
			report.Skipped++
			continue
		}

		report.Settled++
		if outcome.Bet.IsWin() {
			report.Won++
		} else {
			report.Lost++
		}
		s.metrics.RecordBetSettled(string(outcome.Bet.Status))

		if _, seen := affected[outcome.Bet.UserID]; !seen {
			affected[outcome.Bet.UserID] = struct{}{}
			report.AffectedUsers = append(report.AffectedUsers, outcome.Bet.UserID)
		}
	}

	s.notifyProfiles(ctx, report.AffectedUsers)
	s.metrics.RecordSettlementDuration(time.Since(start))

	logger.WithFields(log.Fields{
		"winner":  round.Winner,
		"settled": report.Settled,
		"won":     report.Won,
		"lost":    report.Lost,
		"skipped": report.Skipped,
		"failed":  report.Failed,
	}).Info("Round settled")

	if len(failures) > 0 {
		return report, entities.WrapBetError(entities.ErrCodePersistenceFailure,
			fmt.Sprintf("%d of %d bets in round %s failed to settle", len(failures), len(betIDs), round.ID),
			errors.Join(failures...))
	}
	return report, nil
}

// persistOutcome writes the round with its winner and returns the bets still PLACED.
// RoundFinalizedEvent is released when this transaction commits.
func (s *RoundSettler) persistOutcome(ctx context.Context, round *entities.Round) ([]int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.RoundRepository().Upsert(ctx, round); err != nil {
		return nil, err
	}

	betIDs, err := uow.BetRepository().GetPlacedIDsByRound(ctx, round.ID)
	if err != nil {
		return nil, err
	}

	if err := uow.EventBus().Publish(events.RoundFinalizedEvent{
		RoundID:  round.ID,
		Winner:   round.Winner,
		PlayerA:  round.PlayerA.Codes(),
		PlayerB:  round.PlayerB.Codes(),
		Resolver: round.Resolver,
		EndedAt:  *round.EndedAt,
	}); err != nil {
		log.WithError(err).Warn("Failed to queue round finalized event")
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return betIDs, nil
}

func (s *RoundSettler) settleBet(ctx context.Context, betID int64, winner entities.Side) (*interfaces.SettlementOutcome, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	settlementService := services.NewSettlementService(
		uow.UserRepository(),
		uow.BetRepository(),
		uow.BalanceHistoryRepository(),
		uow.EventBus(),
		s.returnRatio,
	)

	outcome, err := settlementService.SettleBet(ctx, betID, winner)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return outcome, nil
}

// notifyProfiles sends one balance/exposure update per user. Failures are only logged.
func (s *RoundSettler) notifyProfiles(ctx context.Context, userIDs []int64) {
	var roundID string
	if s.exposureRound != nil {
		roundID = s.exposureRound()
	}

	for _, userID := range userIDs {
		profile, err := loadProfile(ctx, s.uowFactory, userID, roundID)
		if err != nil {
			log.WithFields(log.Fields{
				"user_id": userID,
				"error":   err,
			}).Warn("Failed to load profile for notification")
			continue
		}
		if err := s.publisher.Publish(events.UserProfileUpdatedEvent{
			UserID:   profile.UserID,
			Balance:  profile.Balance,
			Exposure: profile.Exposure,
			RoundID:  profile.RoundID,
		}); err != nil {
			log.WithFields(log.Fields{
				"user_id": userID,
				"error":   err,
			}).Warn("Failed to publish profile update")
		}
	}
}

// Reconcile settles finished rounds that still have PLACED bets, oldest first.
// It returns how many rounds were processed.
func (s *RoundSettler) Reconcile(ctx context.Context, limit int) (int, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	rounds, err := uow.RoundRepository().GetUnsettledFinished(ctx, limit)
	uow.Rollback()
	if err != nil {
		return 0, fmt.Errorf("failed to find unsettled rounds: %w", err)
	}

	if len(rounds) == 0 {
		log.Info("No unsettled rounds found")
		return 0, nil
	}

	var failures []error
	for _, round := range rounds {
		if _, err := s.SettleRound(ctx, round); err != nil {
			failures = append(failures, err)
		}
	}

	log.WithFields(log.Fields{
		"rounds": len(rounds),
		"failed": len(failures),
	}).Info("Reconciliation finished")
	return len(rounds), errors.Join(failures...)
}

// loadProfile reads balance and the user's open stake in roundID
func loadProfile(ctx context.Context, uowFactory UnitOfWorkFactory, userID int64, roundID string) (*entities.UserProfile, error) {
	uow := uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, entities.WrapBetError(entities.ErrCodeUserNotFound, fmt.Sprintf("user %d not found", userID), nil)
	}

	exposure := decimal.Zero
	if roundID != "" {
		if exposure, err = uow.BetRepository().SumPlacedStakes(ctx, userID, roundID); err != nil {
			return nil, err
		}
	}

	return &entities.UserProfile{
		UserID:   userID,
		Balance:  user.Balance,
		Exposure: exposure,
		RoundID:  roundID,
	}, nil
}
