package entities

// TransactionType represents the type of balance change
type TransactionType string

const (
	// Round transactions
	TransactionTypeBetStake TransactionType = "bet_stake"
	TransactionTypeBetWin   TransactionType = "bet_win"

	// Operator transactions
	TransactionTypeGrant TransactionType = "grant"
)

// IsRoundTransaction returns true if the movement came from betting on a round
func (tt TransactionType) IsRoundTransaction() bool {
	return tt == TransactionTypeBetStake || tt == TransactionTypeBetWin
}

// String returns the string representation of the transaction type
func (tt TransactionType) String() string {
	return string(tt)
}
