// Package ledger implements the in-memory mirror of the account book and
// the atomic money-movement operations over it. The Ledger is an explicitly
// constructed aggregate: it owns the account index, the name index, the
// owner table and the id counters, and is passed by handle to every caller.
// There is no ambient global state.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"bankledger/pkg/domain"
	"bankledger/pkg/repository"

	"github.com/shopspring/decimal"
)

// First ids handed out on an empty store.
const (
	baseOwnerID   = 24001
	baseAccountNo = 24002170
)

// CardKind selects which card flag an issuance sets.
type CardKind string

const (
	CardDebit  CardKind = "debit"
	CardCredit CardKind = "credit"
)

// Ledger keeps the in-memory mirror of owners and accounts synchronized
// with the durable store. Reads are served from memory; writes go through
// the store first and only then update the mirror (write-through cache).
type Ledger struct {
	mu     sync.RWMutex // owners, byMobile, counters, account read-modify-write
	store  repository.AccountStore
	logger *slog.Logger

	idx    *Index
	names  *NameIndex
	engine *TransferEngine

	owners   map[int64]*domain.Owner
	byMobile map[string]int64

	nextOwnerID   int64
	nextAccountNo int64

	outOfSync atomic.Bool
	loaded    atomic.Bool
}

// New constructs an empty Ledger over the store. Load must succeed before
// any mutating call is accepted.
func New(store repository.AccountStore, logger *slog.Logger) *Ledger {
	l := &Ledger{
		store:    store,
		logger:   logger,
		idx:      NewIndex(),
		names:    NewNameIndex(),
		owners:   make(map[int64]*domain.Owner),
		byMobile: make(map[string]int64),
	}
	l.engine = NewTransferEngine(l.idx, store, logger, &l.loaded, &l.outOfSync, l.ownerDisplayName)
	return l
}

// Engine returns the transfer engine bound to this ledger.
func (l *Ledger) Engine() *TransferEngine { return l.engine }

// Load rebuilds every in-memory structure from the durable store and seeds
// the id counters above the highest persisted ids. It also clears the
// resync-required state; the store is the source of truth.
func (l *Ledger) Load(ctx context.Context) error {
	snap, err := l.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	idx := NewIndex()
	names := NewNameIndex()
	owners := make(map[int64]*domain.Owner, len(snap.Owners))
	byMobile := make(map[string]int64, len(snap.Owners))

	nextOwner := int64(baseOwnerID)
	sort.Slice(snap.Owners, func(i, j int) bool { return snap.Owners[i].ID < snap.Owners[j].ID })
	for _, o := range snap.Owners {
		owners[o.ID] = o
		byMobile[o.Mobile] = o.ID
		names.Insert(o.FullName(), o.ID)
		if o.ID >= nextOwner {
			nextOwner = o.ID + 1
		}
	}

	nextAccount := int64(baseAccountNo)
	sort.Slice(snap.Accounts, func(i, j int) bool { return snap.Accounts[i].AccountNo < snap.Accounts[j].AccountNo })
	for _, a := range snap.Accounts {
		if err := idx.Insert(a); err != nil {
			return fmt.Errorf("load ledger: account %d: %w", a.AccountNo, err)
		}
		if a.AccountNo >= nextAccount {
			nextAccount = a.AccountNo + 1
		}
	}

	l.idx.replace(idx)
	l.names.replace(names)
	l.owners = owners
	l.byMobile = byMobile
	l.nextOwnerID = nextOwner
	l.nextAccountNo = nextAccount
	l.outOfSync.Store(false)
	l.loaded.Store(true)
	l.logger.Info("ledger loaded", "owners", len(owners), "accounts", idx.Len())
	return nil
}

// Reload is Load; spelled out at call sites recovering from a failed rollback.
func (l *Ledger) Reload(ctx context.Context) error { return l.Load(ctx) }

func (l *Ledger) writable() error {
	if !l.loaded.Load() {
		return domain.ErrNotLoaded
	}
	if l.outOfSync.Load() {
		return domain.ErrResyncRequired
	}
	return nil
}

// RegisterOwner validates and persists a new owner, assigns the next owner
// id and indexes the name. The builder carries all identity fields; the id
// set on it is overwritten.
func (l *Ledger) RegisterOwner(ctx context.Context, b *domain.OwnerBuilder) (*domain.Owner, error) {
	if err := l.writable(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	o, err := b.WithID(l.nextOwnerID).Build()
	if err != nil {
		return nil, err
	}
	if err := l.checkIdentityUnique(o); err != nil {
		return nil, err
	}
	if err := l.store.Do(ctx, func(tx repository.Txn) error {
		return tx.CreateOwner(o)
	}); err != nil {
		return nil, fmt.Errorf("register owner: %w", err)
	}

	// Durable insert succeeded; now mirror it.
	l.owners[o.ID] = o
	l.byMobile[o.Mobile] = o.ID
	l.names.Insert(o.FullName(), o.ID)
	l.nextOwnerID++
	l.logger.Info("owner registered", "owner", o.ID, "name", o.FullName())
	return o, nil
}

func (l *Ledger) checkIdentityUnique(o *domain.Owner) error {
	if _, ok := l.byMobile[o.Mobile]; ok {
		return fmt.Errorf("%w: mobile %s", domain.ErrDuplicateIdentity, o.Mobile)
	}
	for _, ex := range l.owners {
		if ex.Aadhaar == o.Aadhaar {
			return fmt.Errorf("%w: aadhaar", domain.ErrDuplicateIdentity)
		}
		if ex.PAN == o.PAN {
			return fmt.Errorf("%w: pan", domain.ErrDuplicateIdentity)
		}
	}
	return nil
}

// OpenAccount creates an account for an existing owner with the next
// account number, persists it, then inserts it into the index.
func (l *Ledger) OpenAccount(ctx context.Context, ownerID int64, kind domain.Kind, accessCode string, opening decimal.Decimal) (*domain.Account, error) {
	if err := l.writable(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.owners[ownerID]; !ok {
		return nil, domain.ErrOwnerNotFound
	}
	a, err := domain.NewAccount().
		WithNumber(l.nextAccountNo).
		WithOwner(ownerID).
		WithKind(kind).
		WithAccessCode(accessCode).
		WithBalance(opening).
		Build()
	if err != nil {
		return nil, err
	}
	if err := l.store.Do(ctx, func(tx repository.Txn) error {
		return tx.CreateAccount(a)
	}); err != nil {
		return nil, fmt.Errorf("open account: %w", err)
	}
	if err := l.idx.Insert(a); err != nil {
		return nil, err
	}
	l.nextAccountNo++
	l.logger.Info("account opened", "account", a.AccountNo, "owner", ownerID, "kind", kind)
	return a.Clone(), nil
}

// Owner returns the owner record, or domain.ErrOwnerNotFound.
func (l *Ledger) Owner(ownerID int64) (*domain.Owner, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	o, ok := l.owners[ownerID]
	if !ok {
		return nil, domain.ErrOwnerNotFound
	}
	cp := *o
	return &cp, nil
}

// Owners returns all owners ordered by id.
func (l *Ledger) Owners() []*domain.Owner {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*domain.Owner, 0, len(l.owners))
	for _, o := range l.owners {
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Account returns a snapshot of the account record.
func (l *Ledger) Account(accountNo int64) (*domain.Account, error) {
	return l.idx.Get(accountNo)
}

// AccountsOf returns the owner's accounts in opening order.
func (l *Ledger) AccountsOf(ownerID int64) []*domain.Account {
	return l.idx.ListByOwner(ownerID)
}

// FindOwnersByName returns every owner whose normalized full name matches,
// in registration order.
func (l *Ledger) FindOwnersByName(name string) []*domain.Owner {
	ids := l.names.ExactMatch(name)
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*domain.Owner, 0, len(ids))
	for _, id := range ids {
		if o, ok := l.owners[id]; ok {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out
}

// ChangePassword verifies the current credential and writes the new one
// through to the store before updating the mirror.
func (l *Ledger) ChangePassword(ctx context.Context, ownerID int64, current, next string) error {
	if err := l.writable(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.owners[ownerID]
	if !ok {
		return domain.ErrOwnerNotFound
	}
	if !o.CheckPassword(current) {
		return errors.New("current password does not match")
	}
	updated := *o
	if err := updated.SetPassword(next); err != nil {
		return err
	}
	if err := l.store.Do(ctx, func(tx repository.Txn) error {
		return tx.UpdateOwnerPassword(ownerID, updated.PasswordHash)
	}); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	o.PasswordHash = updated.PasswordHash
	return nil
}

// IssueCard sets the debit or credit card flag, rejecting duplicates. The
// aggregate lock spans read, persist and cache update so concurrent flag
// mutations cannot overwrite each other.
func (l *Ledger) IssueCard(ctx context.Context, accountNo int64, kind CardKind) error {
	if err := l.writable(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	a, err := l.idx.Get(accountNo)
	if err != nil {
		return err
	}
	switch kind {
	case CardDebit:
		if a.DebitCard {
			return domain.ErrCardAlreadyIssued
		}
		a.DebitCard = true
	case CardCredit:
		if a.CreditCard {
			return domain.ErrCardAlreadyIssued
		}
		a.CreditCard = true
	default:
		return fmt.Errorf("unknown card kind %q", kind)
	}
	if err := l.store.Do(ctx, func(tx repository.Txn) error {
		return tx.UpdateFlags(accountNo, a.DebitCard, a.CreditCard, a.Loan)
	}); err != nil {
		return fmt.Errorf("issue card: %w", err)
	}
	if err := l.idx.SetFlags(accountNo, a.DebitCard, a.CreditCard, a.Loan); err != nil {
		return err
	}
	l.logger.Info("card issued", "account", accountNo, "kind", kind)
	return nil
}

// ApproveLoan sets the loan flag and records the loan as a scheme label,
// one loan per account.
func (l *Ledger) ApproveLoan(ctx context.Context, accountNo int64, amount decimal.Decimal, loanType string) error {
	if err := l.writable(); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	a, err := l.idx.Get(accountNo)
	if err != nil {
		return err
	}
	if a.Loan {
		return domain.ErrLoanAlreadyApproved
	}
	label := fmt.Sprintf("%s Loan: %s", loanType, amount)
	if err := l.store.Do(ctx, func(tx repository.Txn) error {
		if err := tx.UpdateFlags(accountNo, a.DebitCard, a.CreditCard, true); err != nil {
			return err
		}
		return tx.AddScheme(accountNo, label)
	}); err != nil {
		return fmt.Errorf("approve loan: %w", err)
	}
	if err := l.idx.SetFlags(accountNo, a.DebitCard, a.CreditCard, true); err != nil {
		return err
	}
	if err := l.idx.AppendScheme(accountNo, label); err != nil {
		return err
	}
	l.logger.Info("loan approved", "account", accountNo, "type", loanType, "amount", amount)
	return nil
}

// AddScheme appends a scheme label to the account.
func (l *Ledger) AddScheme(ctx context.Context, accountNo int64, label string) error {
	if err := l.writable(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.idx.Get(accountNo); err != nil {
		return err
	}
	if err := l.store.Do(ctx, func(tx repository.Txn) error {
		return tx.AddScheme(accountNo, label)
	}); err != nil {
		return fmt.Errorf("add scheme: %w", err)
	}
	return l.idx.AppendScheme(accountNo, label)
}

// DeleteAccount is the administrative delete: durable removal first, then
// removal from every index.
func (l *Ledger) DeleteAccount(ctx context.Context, accountNo int64) error {
	if err := l.writable(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.idx.Get(accountNo); err != nil {
		return err
	}
	if err := l.store.Do(ctx, func(tx repository.Txn) error {
		return tx.DeleteAccount(accountNo)
	}); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if err := l.idx.Remove(accountNo); err != nil {
		return err
	}
	l.logger.Info("account deleted", "account", accountNo)
	return nil
}

// TransferByMobile resolves the recipient by mobile number, picking the
// first account of the matching owner, and delegates to the engine. Zero
// matches report domain.ErrRecipientNotFound rather than guessing.
func (l *Ledger) TransferByMobile(ctx context.Context, fromNo int64, mobile string, amount decimal.Decimal) (*TransferResult, error) {
	if err := l.writable(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	ownerID, ok := l.byMobile[mobile]
	l.mu.RUnlock()
	if !ok {
		return nil, domain.ErrRecipientNotFound
	}
	accts := l.idx.ListByOwner(ownerID)
	if len(accts) == 0 {
		return nil, domain.ErrRecipientNotFound
	}
	return l.engine.Transfer(ctx, fromNo, accts[0].AccountNo, amount)
}

func (l *Ledger) ownerDisplayName(ownerID int64) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if o, ok := l.owners[ownerID]; ok {
		return o.FullName()
	}
	return fmt.Sprintf("owner %d", ownerID)
}
