package repository

import (
	"context"
	"errors"
	"fmt"

	"teenpatti/database"
	"teenpatti/domain/entities"
	"teenpatti/domain/interfaces"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// UserRepository implements interfaces.UserRepository
type UserRepository struct {
	q Queryable
}

// NewUserRepository creates a user repository over the pool
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

func newUserRepository(q Queryable) interfaces.UserRepository {
	return &UserRepository{q: q}
}

const userColumns = `id, username, balance, created_at, updated_at`

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*entities.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
}

// GetByIDForUpdate retrieves a user and holds its row lock until the transaction ends
func (r *UserRepository) GetByIDForUpdate(ctx context.Context, userID int64) (*entities.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, userID)
}

func (r *UserRepository) get(ctx context.Context, query string, userID int64) (*entities.User, error) {
	var user entities.User
	err := r.q.QueryRow(ctx, query, userID).Scan(
		&user.ID,
		&user.Username,
		&user.Balance,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	return &user, nil
}

// Create inserts a new user with a starting balance
func (r *UserRepository) Create(ctx context.Context, userID int64, username string, initialBalance decimal.Decimal) (*entities.User, error) {
	query := `
		INSERT INTO users (id, username, balance)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns

	var user entities.User
	err := r.q.QueryRow(ctx, query, userID, username, initialBalance).Scan(
		&user.ID,
		&user.Username,
		&user.Balance,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user %d: %w", userID, err)
	}
	return &user, nil
}

// AdjustBalance applies delta in a single statement so the balance can never go negative
func (r *UserRepository) AdjustBalance(ctx context.Context, userID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE users
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2 AND balance + $1 >= 0
		RETURNING balance
	`

	var balance decimal.Decimal
	err := r.q.QueryRow(ctx, query, delta, userID).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("failed to adjust balance for user %d: %w", userID, err)
	}

	// No row updated: either the user is missing or the debit would overdraw
	user, getErr := r.GetByID(ctx, userID)
	if getErr != nil {
		return decimal.Zero, getErr
	}
	if user == nil {
		return decimal.Zero, entities.WrapBetError(entities.ErrCodeUserNotFound, fmt.Sprintf("user %d not found", userID), nil)
	}
	return decimal.Zero, entities.WrapBetError(entities.ErrCodeInsufficientBalance,
		fmt.Sprintf("balance %s cannot cover %s", user.Balance.StringFixed(entities.MoneyPlaces), delta.Neg().StringFixed(entities.MoneyPlaces)), nil)
}
