package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Entry is one committed movement on an account. Amount is negative for
// debits and positive for credits; NewBalance is the balance after the
// movement committed.
type Entry struct {
	ID         uuid.UUID
	AccountNo  int64
	Amount     decimal.Decimal
	NewBalance decimal.Decimal
	Note       string
	CreatedAt  time.Time
}

// NewEntry creates an Entry with a fresh id and the current timestamp.
func NewEntry(accountNo int64, amount, newBalance decimal.Decimal, note string) Entry {
	return Entry{
		ID:         uuid.New(),
		AccountNo:  accountNo,
		Amount:     amount,
		NewBalance: newBalance,
		Note:       note,
		CreatedAt:  time.Now().UTC(),
	}
}
