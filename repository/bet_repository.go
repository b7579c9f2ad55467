package repository

import (
	"context"
	"errors"
	"fmt"

	"teenpatti/domain/entities"
	"teenpatti/domain/interfaces"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// BetRepository implements interfaces.BetRepository
type BetRepository struct {
	q Queryable
}

func newBetRepository(q Queryable) interfaces.BetRepository {
	return &BetRepository{q: q}
}

const betColumns = `id, user_id, round_id, side, stake, status, payout, net, settled_at, created_at`

// Create inserts a bet and fills in its id and creation time
func (r *BetRepository) Create(ctx context.Context, bet *entities.Bet) error {
	query := `
		INSERT INTO bets (user_id, round_id, side, stake, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.q.QueryRow(ctx, query,
		bet.UserID,
		bet.RoundID,
		string(bet.Side),
		bet.Stake,
		string(bet.Status),
	).Scan(&bet.ID, &bet.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bet: %w", err)
	}
	return nil
}

// GetByID retrieves a bet by id
func (r *BetRepository) GetByID(ctx context.Context, id int64) (*entities.Bet, error) {
	return r.get(ctx, `SELECT `+betColumns+` FROM bets WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a bet and holds its row lock until the transaction ends
func (r *BetRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Bet, error) {
	return r.get(ctx, `SELECT `+betColumns+` FROM bets WHERE id = $1 FOR UPDATE`, id)
}

func (r *BetRepository) get(ctx context.Context, query string, id int64) (*entities.Bet, error) {
	bet, err := scanBet(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bet %d: %w", id, err)
	}
	return bet, nil
}

// GetPlacedIDsByRound returns the ids of bets in a round that are still PLACED
func (r *BetRepository) GetPlacedIDsByRound(ctx context.Context, roundID string) ([]int64, error) {
	rows, err := r.q.Query(ctx, `SELECT id FROM bets WHERE round_id = $1 AND status = 'PLACED' ORDER BY id`, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to query placed bets for round %s: %w", roundID, err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to collect placed bets for round %s: %w", roundID, err)
	}
	return ids, nil
}

// UpdateSettlement writes the settled state. Only a PLACED row is updated.
func (r *BetRepository) UpdateSettlement(ctx context.Context, bet *entities.Bet) (bool, error) {
	query := `
		UPDATE bets
		SET status = $2, payout = $3, net = $4, settled_at = $5
		WHERE id = $1 AND status = 'PLACED'
	`
	tag, err := r.q.Exec(ctx, query,
		bet.ID,
		string(bet.Status),
		bet.Payout,
		bet.Net,
		bet.SettledAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to settle bet %d: %w", bet.ID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByUser returns a user's most recent bets first
func (r *BetRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*entities.Bet, error) {
	query := `
		SELECT ` + betColumns + `
		FROM bets
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query bets for user %d: %w", userID, err)
	}
	defer rows.Close()

	var bets []*entities.Bet
	for rows.Next() {
		bet, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, bet)
	}
	return bets, rows.Err()
}

// SumPlacedStakes returns the total of a user's open stakes in a round
func (r *BetRepository) SumPlacedStakes(ctx context.Context, userID int64, roundID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(stake), 0)
		FROM bets
		WHERE user_id = $1 AND round_id = $2 AND status = 'PLACED'
	`
	var total decimal.Decimal
	if err := r.q.QueryRow(ctx, query, userID, roundID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum stakes for user %d: %w", userID, err)
	}
	return total, nil
}

func scanBet(row pgx.Row) (*entities.Bet, error) {
	var (
		bet    entities.Bet
		side   string
		status string
	)
	err := row.Scan(
		&bet.ID,
		&bet.UserID,
		&bet.RoundID,
		&side,
		&bet.Stake,
		&status,
		&bet.Payout,
		&bet.Net,
		&bet.SettledAt,
		&bet.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	bet.Side = entities.Side(side)
	bet.Status = entities.BetStatus(status)
	return &bet, nil
}
