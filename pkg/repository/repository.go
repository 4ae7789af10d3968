// Package repository defines the narrow transactional contract the ledger
// core consumes from the durable store. Implementations live in
// infra/repository; tests use in-memory fakes.
package repository

import (
	"context"
	"fmt"

	"bankledger/pkg/domain"

	"github.com/shopspring/decimal"
)

// Txn is the set of durable mutations available inside one transaction.
// Every call is staged against the same transaction; nothing is visible
// until Do returns nil and the transaction commits.
type Txn interface {
	// UpdateBalance persists newBalance for the account. The storage layer
	// rejects negative balances with domain.ErrNegativeBalanceRejected as a
	// last-resort guard, independent of any in-process check.
	UpdateBalance(accountNo int64, newBalance decimal.Decimal) error

	// AppendEntry appends one record to the unbounded durable movement log.
	AppendEntry(e domain.Entry) error

	CreateOwner(o *domain.Owner) error
	CreateAccount(a *domain.Account) error
	UpdateOwnerPassword(ownerID int64, passwordHash string) error
	UpdateFlags(accountNo int64, debitCard, creditCard, loan bool) error
	AddScheme(accountNo int64, label string) error
	DeleteAccount(accountNo int64) error
}

// AccountStore is the durable, transactional store behind the ledger.
type AccountStore interface {
	// Do runs fn inside one durable transaction. The transaction commits
	// when fn returns nil and is rolled back on any other exit path,
	// including panics. A rollback that itself fails is reported as a
	// *RollbackError.
	Do(ctx context.Context, fn func(tx Txn) error) error

	// LoadAll returns every persisted owner and account (with schemes and
	// the most recent history window) for the startup rebuild of the
	// in-memory indexes.
	LoadAll(ctx context.Context) (*Snapshot, error)
}

// Snapshot is the full persisted state used to rebuild the in-memory ledger.
type Snapshot struct {
	Owners   []*domain.Owner
	Accounts []*domain.Account
}

// RollbackError reports a failed rollback after a failed commit. This is the
// one condition that is not locally recoverable: cached and durable state
// may now disagree and must be resynchronized before further writes.
type RollbackError struct {
	Cause       error // why the transaction failed
	RollbackErr error // why the rollback failed
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("rollback failed: %v (while handling: %v)", e.RollbackErr, e.Cause)
}

func (e *RollbackError) Unwrap() error { return e.Cause }
