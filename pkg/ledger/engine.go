package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"bankledger/pkg/domain"
	"bankledger/pkg/repository"

	"github.com/shopspring/decimal"
)

// TransferEngine applies withdrawals, deposits and two-account transfers
// with all-or-nothing semantics. The protocol is durable-commit before
// memory-mutation: validation runs against the cache snapshot, the durable
// transaction commits, and only then are the cached balances and history
// windows advanced. A single mutex serializes all money movements, so
// validation, commit and cache update act on one consistent view and a
// second operation on the same account always sees the first one's result.
// A crash between commit and cache update leaves the store correct; the
// cache is rebuilt from it on next start.
type TransferEngine struct {
	mu        sync.Mutex
	idx       *Index
	store     repository.AccountStore
	logger    *slog.Logger
	loaded    *atomic.Bool
	outOfSync *atomic.Bool
	ownerName func(ownerID int64) string
}

// NewTransferEngine wires an engine over the shared index and store.
// ownerName resolves an owner id to a display name for history notes.
func NewTransferEngine(
	idx *Index,
	store repository.AccountStore,
	logger *slog.Logger,
	loaded *atomic.Bool,
	outOfSync *atomic.Bool,
	ownerName func(ownerID int64) string,
) *TransferEngine {
	return &TransferEngine{
		idx:       idx,
		store:     store,
		logger:    logger,
		loaded:    loaded,
		outOfSync: outOfSync,
		ownerName: ownerName,
	}
}

// ready refuses mutations before the initial load and while the cache and
// store may disagree.
func (e *TransferEngine) ready() error {
	if !e.loaded.Load() {
		return domain.ErrNotLoaded
	}
	if e.outOfSync.Load() {
		return domain.ErrResyncRequired
	}
	return nil
}

// TransferResult reports the post-transfer balances of both legs.
type TransferResult struct {
	FromBalance decimal.Decimal
	ToBalance   decimal.Decimal
}

// Withdraw debits amount from the account. On success the new balance has
// been durably committed, applied to the cache and appended to the bounded
// history.
func (e *TransferEngine) Withdraw(ctx context.Context, accountNo int64, amount decimal.Decimal) (decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return decimal.Zero, err
	}
	snap, err := e.idx.Get(accountNo)
	if err != nil {
		return decimal.Zero, err
	}
	if err := snap.ValidateWithdraw(amount); err != nil {
		return decimal.Zero, err
	}
	newBalance := snap.Balance.Sub(amount)
	entry := domain.NewEntry(accountNo, amount.Neg(), newBalance,
		fmt.Sprintf("Withdraw: %s, New Balance: %s", amount, newBalance))

	if err := e.commit(ctx, func(tx repository.Txn) error {
		if err := tx.UpdateBalance(accountNo, newBalance); err != nil {
			return err
		}
		return tx.AppendEntry(entry)
	}); err != nil {
		return decimal.Zero, err
	}

	if err := e.applyCommitted(accountNo, amount.Neg(), entry); err != nil {
		return decimal.Zero, err
	}
	e.logger.Info("withdraw committed", "account", accountNo, "amount", amount, "balance", newBalance)
	return newBalance, nil
}

// Deposit credits amount to the account, with the same durable-then-memory
// ordering as Withdraw.
func (e *TransferEngine) Deposit(ctx context.Context, accountNo int64, amount decimal.Decimal) (decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return decimal.Zero, err
	}
	snap, err := e.idx.Get(accountNo)
	if err != nil {
		return decimal.Zero, err
	}
	if err := snap.ValidateDeposit(amount); err != nil {
		return decimal.Zero, err
	}
	newBalance := snap.Balance.Add(amount)
	entry := domain.NewEntry(accountNo, amount, newBalance,
		fmt.Sprintf("Deposit: %s, New Balance: %s", amount, newBalance))

	if err := e.commit(ctx, func(tx repository.Txn) error {
		if err := tx.UpdateBalance(accountNo, newBalance); err != nil {
			return err
		}
		return tx.AppendEntry(entry)
	}); err != nil {
		return decimal.Zero, err
	}

	if err := e.applyCommitted(accountNo, amount, entry); err != nil {
		return decimal.Zero, err
	}
	e.logger.Info("deposit committed", "account", accountNo, "amount", amount, "balance", newBalance)
	return newBalance, nil
}

// Transfer moves amount between two accounts as one atomic unit. Both legs
// are staged in a single durable transaction; if the commit fails neither
// cached balance changes and the caller gets domain.ErrTransferFailed.
func (e *TransferEngine) Transfer(ctx context.Context, fromNo, toNo int64, amount decimal.Decimal) (*TransferResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return nil, err
	}
	// Same-account transfers are rejected before any transaction opens.
	if fromNo == toNo {
		return nil, domain.ErrSameAccount
	}
	from, err := e.idx.Get(fromNo)
	if err != nil {
		return nil, err
	}
	to, err := e.idx.Get(toNo)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrRecipientNotFound
		}
		return nil, err
	}
	if err := domain.ValidateTransfer(from, to, amount); err != nil {
		return nil, err
	}

	newFrom := from.Balance.Sub(amount)
	newTo := to.Balance.Add(amount)
	debit := domain.NewEntry(fromNo, amount.Neg(), newFrom,
		fmt.Sprintf("Transfer to %s (%d): %s, New Balance: %s",
			e.ownerName(to.OwnerID), toNo, amount, newFrom))
	credit := domain.NewEntry(toNo, amount, newTo,
		fmt.Sprintf("Transfer from %s (%d): %s, New Balance: %s",
			e.ownerName(from.OwnerID), fromNo, amount, newTo))

	// One durable transaction spans both legs.
	if err := e.commit(ctx, func(tx repository.Txn) error {
		if err := tx.UpdateBalance(fromNo, newFrom); err != nil {
			return err
		}
		if err := tx.UpdateBalance(toNo, newTo); err != nil {
			return err
		}
		if err := tx.AppendEntry(debit); err != nil {
			return err
		}
		return tx.AppendEntry(credit)
	}); err != nil {
		return nil, err
	}

	if err := e.applyCommitted(fromNo, amount.Neg(), debit); err != nil {
		return nil, err
	}
	if err := e.applyCommitted(toNo, amount, credit); err != nil {
		return nil, err
	}
	e.logger.Info("transfer committed",
		"from", fromNo, "to", toNo, "amount", amount,
		"from_balance", newFrom, "to_balance", newTo)
	return &TransferResult{FromBalance: newFrom, ToBalance: newTo}, nil
}

// commit runs fn inside the store's transaction boundary and translates
// failures into the error taxonomy. A failed rollback flips the engine into
// the resync-required state: cached and durable state may now disagree.
func (e *TransferEngine) commit(ctx context.Context, fn func(tx repository.Txn) error) error {
	err := e.store.Do(ctx, fn)
	if err == nil {
		return nil
	}
	var rb *repository.RollbackError
	if errors.As(err, &rb) {
		e.outOfSync.Store(true)
		e.logger.Error("rollback failed, writes suspended until resync", "error", err)
		return fmt.Errorf("%w: %v", domain.ErrResyncRequired, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
}

// applyCommitted advances the cache for one committed leg. The delta was
// validated under the engine lock, so the defense-in-depth check only fires
// if the cache has been corrupted; that flips the resync-required state and
// the failure is reported to the caller, never swallowed.
func (e *TransferEngine) applyCommitted(accountNo int64, delta decimal.Decimal, entry domain.Entry) error {
	if _, err := e.idx.ApplyBalanceDelta(accountNo, delta); err != nil {
		e.logger.Error("cache update failed after durable commit", "account", accountNo, "error", err)
		e.outOfSync.Store(true)
		return fmt.Errorf("%w: cache update after commit: %v", domain.ErrResyncRequired, err)
	}
	if err := e.idx.AppendHistory(accountNo, entry); err != nil {
		e.logger.Error("history append failed after durable commit", "account", accountNo, "error", err)
	}
	return nil
}
