package repository

import (
	"context"
	"errors"
	"fmt"

	"teenpatti/domain/entities"
	"teenpatti/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

// RoundRepository implements interfaces.RoundRepository
type RoundRepository struct {
	q Queryable
}

func newRoundRepository(q Queryable) interfaces.RoundRepository {
	return &RoundRepository{q: q}
}

const roundColumns = `round_id, game, started_at, ended_at, player_a_cards, player_b_cards, winner, resolver, created_at`

// Ensure stores the round without its winner. The outcome is written by Upsert once the round ends.
func (r *RoundRepository) Ensure(ctx context.Context, round *entities.Round) error {
	query := `
		INSERT INTO rounds (round_id, game, started_at, player_a_cards, player_b_cards, resolver)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (round_id) DO NOTHING
	`
	_, err := r.q.Exec(ctx, query,
		round.ID,
		round.Game,
		round.StartedAt,
		round.PlayerA.Codes(),
		round.PlayerB.Codes(),
		string(round.Resolver),
	)
	if err != nil {
		return fmt.Errorf("failed to ensure round %s: %w", round.ID, err)
	}
	return nil
}

// Upsert stores the finished round. An already written winner or end time is kept.
func (r *RoundRepository) Upsert(ctx context.Context, round *entities.Round) error {
	query := `
		INSERT INTO rounds (round_id, game, started_at, ended_at, player_a_cards, player_b_cards, winner, resolver)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (round_id) DO UPDATE SET
			winner = COALESCE(rounds.winner, EXCLUDED.winner),
			ended_at = COALESCE(rounds.ended_at, EXCLUDED.ended_at),
			resolver = EXCLUDED.resolver
	`
	_, err := r.q.Exec(ctx, query,
		round.ID,
		round.Game,
		round.StartedAt,
		round.EndedAt,
		round.PlayerA.Codes(),
		round.PlayerB.Codes(),
		string(round.Winner),
		string(round.Resolver),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert round %s: %w", round.ID, err)
	}
	return nil
}

// GetByID retrieves a round by id
func (r *RoundRepository) GetByID(ctx context.Context, roundID string) (*entities.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE round_id = $1`

	round, err := scanRound(r.q.QueryRow(ctx, query, roundID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round %s: %w", roundID, err)
	}
	return round, nil
}

// GetRecentFinished returns the newest finished rounds first
func (r *RoundRepository) GetRecentFinished(ctx context.Context, limit int) ([]*entities.Round, error) {
	query := `
		SELECT ` + roundColumns + `
		FROM rounds
		WHERE winner IS NOT NULL
		ORDER BY ended_at DESC NULLS LAST, started_at DESC
		LIMIT $1
	`
	return r.list(ctx, query, limit)
}

// GetUnsettledFinished returns finished rounds that still have PLACED bets, oldest first
func (r *RoundRepository) GetUnsettledFinished(ctx context.Context, limit int) ([]*entities.Round, error) {
	query := `
		SELECT ` + roundColumns + `
		FROM rounds r
		WHERE r.winner IS NOT NULL
		  AND EXISTS (SELECT 1 FROM bets b WHERE b.round_id = r.round_id AND b.status = 'PLACED')
		ORDER BY r.started_at ASC
		LIMIT $1
	`
	return r.list(ctx, query, limit)
}

func (r *RoundRepository) list(ctx context.Context, query string, limit int) ([]*entities.Round, error) {
	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}
	defer rows.Close()

	var rounds []*entities.Round
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		rounds = append(rounds, round)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rounds: %w", err)
	}
	return rounds, nil
}

func scanRound(row pgx.Row) (*entities.Round, error) {
	var (
		round    entities.Round
		cardsA   []string
		cardsB   []string
		winner   *string
		resolver string
	)
	err := row.Scan(
		&round.ID,
		&round.Game,
		&round.StartedAt,
		&round.EndedAt,
		&cardsA,
		&cardsB,
		&winner,
		&resolver,
		&round.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if round.PlayerA, err = entities.ParseHand(cardsA); err != nil {
		return nil, fmt.Errorf("round %s player A: %w", round.ID, err)
	}
	if round.PlayerB, err = entities.ParseHand(cardsB); err != nil {
		return nil, fmt.Errorf("round %s player B: %w", round.ID, err)
	}
	if winner != nil {
		round.Winner = entities.Side(*winner)
	}
	round.Resolver = entities.ResolverTag(resolver)
	return &round, nil
}
