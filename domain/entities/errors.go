package entities

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a class of engine error
type ErrorCode string

const (
	// Placement rejections
	ErrCodeRoundMismatch       ErrorCode = "ROUND_MISMATCH"
	ErrCodePhaseClosed         ErrorCode = "PHASE_CLOSED"
	ErrCodeInvalidStake        ErrorCode = "INVALID_STAKE"
	ErrCodeInvalidSide         ErrorCode = "INVALID_SIDE"
	ErrCodeInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"
	ErrCodeUserNotFound        ErrorCode = "USER_NOT_FOUND"

	// Engine and settlement
	ErrCodeEngineBusy         ErrorCode = "ENGINE_BUSY"
	ErrCodeAlreadySettled     ErrorCode = "ALREADY_SETTLED"
	ErrCodePersistenceFailure ErrorCode = "PERSISTENCE_FAILURE"
)

// BetError carries an ErrorCode plus a caller-facing message
type BetError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *BetError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BetError) Unwrap() error {
	return e.Err
}

// Is matches any BetError with the same code, so errors.Is works against the sentinels below
func (e *BetError) Is(target error) bool {
	var t *BetError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewBetError creates a BetError
func NewBetError(code ErrorCode, message string) *BetError {
	return &BetError{Code: code, Message: message}
}

// WrapBetError wraps an underlying error in a BetError
func WrapBetError(code ErrorCode, message string, err error) *BetError {
	return &BetError{Code: code, Message: message, Err: err}
}

// ErrorCodeOf extracts the code of a BetError, or "" for other errors
func ErrorCodeOf(err error) ErrorCode {
	var be *BetError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

var (
	ErrRoundMismatch       = NewBetError(ErrCodeRoundMismatch, "round is no longer current")
	ErrPhaseClosed         = NewBetError(ErrCodePhaseClosed, "betting is closed for this round")
	ErrInvalidStake        = NewBetError(ErrCodeInvalidStake, "invalid stake")
	ErrInvalidSide         = NewBetError(ErrCodeInvalidSide, "invalid side")
	ErrInsufficientBalance = NewBetError(ErrCodeInsufficientBalance, "insufficient balance")
	ErrUserNotFound        = NewBetError(ErrCodeUserNotFound, "user not found")
	ErrEngineBusy          = NewBetError(ErrCodeEngineBusy, "engine busy, try again")
	ErrAlreadySettled      = NewBetError(ErrCodeAlreadySettled, "bet already settled")
	ErrPersistenceFailure  = NewBetError(ErrCodePersistenceFailure, "persistence failure")
)
