package ledger

import (
	"sync"

	"bankledger/pkg/domain"

	"github.com/shopspring/decimal"
)

// Index is the authoritative in-memory cache of account records: a map from
// account number to record plus, per owner, the list of accounts in opening
// order. A single RWMutex serializes all mutations; the durable store, not
// this lock, is the authority for cross-account atomicity.
type Index struct {
	mu       sync.RWMutex
	byNumber map[int64]*domain.Account
	byOwner  map[int64][]*domain.Account
}

// NewIndex creates an empty Index.
func NewIndex() *Index {
	return &Index{
		byNumber: make(map[int64]*domain.Account),
		byOwner:  make(map[int64][]*domain.Account),
	}
}

// Get returns a snapshot copy of the account, or domain.ErrAccountNotFound.
func (x *Index) Get(accountNo int64) (*domain.Account, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	a, ok := x.byNumber[accountNo]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return a.Clone(), nil
}

// ListByOwner returns snapshot copies of the owner's accounts in opening
// order; the slice is empty when the owner holds no accounts.
func (x *Index) ListByOwner(ownerID int64) []*domain.Account {
	x.mu.RLock()
	defer x.mu.RUnlock()
	accts := x.byOwner[ownerID]
	out := make([]*domain.Account, 0, len(accts))
	for _, a := range accts {
		out = append(out, a.Clone())
	}
	return out
}

// Insert adds the account to both structures. The record is copied in, so
// the caller keeps no handle on cache internals.
func (x *Index) Insert(a *domain.Account) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.byNumber[a.AccountNo]; ok {
		return domain.ErrDuplicateAccountNumber
	}
	cp := a.Clone()
	x.byNumber[cp.AccountNo] = cp
	x.byOwner[cp.OwnerID] = append(x.byOwner[cp.OwnerID], cp)
	return nil
}

// Remove deletes the account from both structures, pruning the owner's list
// when it becomes empty.
func (x *Index) Remove(accountNo int64) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	a, ok := x.byNumber[accountNo]
	if !ok {
		return domain.ErrAccountNotFound
	}
	delete(x.byNumber, accountNo)
	accts := x.byOwner[a.OwnerID]
	for i, acc := range accts {
		if acc.AccountNo == accountNo {
			accts = append(accts[:i], accts[i+1:]...)
			break
		}
	}
	if len(accts) == 0 {
		delete(x.byOwner, a.OwnerID)
	} else {
		x.byOwner[a.OwnerID] = accts
	}
	return nil
}

// ApplyBalanceDelta mutates the cached balance by delta and returns the new
// balance. Used exclusively by the transfer engine after a durable commit;
// the WouldGoNegative check is defense in depth, the account is untouched
// when it fires.
func (x *Index) ApplyBalanceDelta(accountNo int64, delta decimal.Decimal) (decimal.Decimal, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	a, ok := x.byNumber[accountNo]
	if !ok {
		return decimal.Zero, domain.ErrAccountNotFound
	}
	next := a.Balance.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, domain.ErrWouldGoNegative
	}
	a.Balance = next
	return next, nil
}

// AppendHistory appends e to the account's bounded history window.
func (x *Index) AppendHistory(accountNo int64, e domain.Entry) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	a, ok := x.byNumber[accountNo]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.AppendHistory(e)
	return nil
}

// SetFlags updates the card and loan flags on the cached record.
func (x *Index) SetFlags(accountNo int64, debitCard, creditCard, loan bool) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	a, ok := x.byNumber[accountNo]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.DebitCard, a.CreditCard, a.Loan = debitCard, creditCard, loan
	return nil
}

// AppendScheme appends a scheme label to the cached record.
func (x *Index) AppendScheme(accountNo int64, label string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	a, ok := x.byNumber[accountNo]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.AddScheme(label)
	return nil
}

// replace swaps in the structures of a freshly built index, used by the
// load-from-store rebuild.
func (x *Index) replace(fresh *Index) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.byNumber = fresh.byNumber
	x.byOwner = fresh.byOwner
}

// Len returns the number of indexed accounts.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byNumber)
}
