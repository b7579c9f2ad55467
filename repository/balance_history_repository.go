package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"teenpatti/domain/entities"
	"teenpatti/domain/interfaces"
)

// BalanceHistoryRepository implements interfaces.BalanceHistoryRepository
type BalanceHistoryRepository struct {
	q Queryable
}

func newBalanceHistoryRepository(q Queryable) interfaces.BalanceHistoryRepository {
	return &BalanceHistoryRepository{q: q}
}

// Record inserts a balance history entry
func (r *BalanceHistoryRepository) Record(ctx context.Context, history *entities.BalanceHistory) error {
	metadataJSON, err := json.Marshal(history.TransactionMetadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	query := `
		INSERT INTO balance_history
		(user_id, balance_before, balance_after, change_amount, transaction_type, transaction_metadata, bet_id, round_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	err = r.q.QueryRow(ctx, query,
		history.UserID,
		history.BalanceBefore,
		history.BalanceAfter,
		history.ChangeAmount,
		string(history.TransactionType),
		metadataJSON,
		history.BetID,
		history.RoundID,
	).Scan(&history.ID, &history.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record balance history: %w", err)
	}
	return nil
}

// GetByUser returns a user's balance history, newest first
func (r *BalanceHistoryRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*entities.BalanceHistory, error) {
	query := `
		SELECT id, user_id, balance_before, balance_after, change_amount,
		       transaction_type, transaction_metadata, bet_id, round_id, created_at
		FROM balance_history
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query balance history: %w", err)
	}
	defer rows.Close()

	var histories []*entities.BalanceHistory
	for rows.Next() {
		var (
			h            entities.BalanceHistory
			txType       string
			metadataJSON []byte
		)
		err := rows.Scan(
			&h.ID,
			&h.UserID,
			&h.BalanceBefore,
			&h.BalanceAfter,
			&h.ChangeAmount,
			&txType,
			&metadataJSON,
			&h.BetID,
			&h.RoundID,
			&h.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance history: %w", err)
		}
		h.TransactionType = entities.TransactionType(txType)
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &h.TransactionMetadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
			}
		}
		histories = append(histories, &h)
	}
	return histories, rows.Err()
}
