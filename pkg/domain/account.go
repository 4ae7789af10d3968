package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind enumerates the supported account kinds.
type Kind string

const (
	KindSavings Kind = "Savings"
	KindCurrent Kind = "Current"
	KindNRI     Kind = "NRI"
)

// ParseKind maps a string onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindSavings, KindCurrent, KindNRI:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown account kind %q", s)
}

// HistoryWindow is the number of recent entries an account keeps in memory.
// The durable log is unbounded; this is a recency window, oldest evicted.
const HistoryWindow = 10

// Account is a balance-bearing entity belonging to exactly one Owner.
//
// Invariants:
//   - Balance is never negative; no operation may commit a negative balance.
//   - AccountNo -> OwnerID never changes for the lifetime of the account.
//   - History holds at most HistoryWindow entries in commit order.
type Account struct {
	AccountNo  int64
	OwnerID    int64
	Kind       Kind
	Balance    decimal.Decimal
	AccessCode string
	DebitCard  bool
	CreditCard bool
	Loan       bool
	Schemes    []string
	History    []Entry
	CreatedAt  time.Time
}

// AccountBuilder provides a fluent API for constructing Account instances.
type AccountBuilder struct {
	accountNo  int64
	ownerID    int64
	kind       Kind
	balance    decimal.Decimal
	accessCode string
	createdAt  time.Time
}

// NewAccount creates an AccountBuilder with a zero opening balance and the
// Savings kind.
func NewAccount() *AccountBuilder {
	return &AccountBuilder{kind: KindSavings, createdAt: time.Now().UTC()}
}

// WithNumber sets the account number, assigned by the ledger.
func (b *AccountBuilder) WithNumber(no int64) *AccountBuilder {
	b.accountNo = no
	return b
}

// WithOwner sets the owning owner id.
func (b *AccountBuilder) WithOwner(ownerID int64) *AccountBuilder {
	b.ownerID = ownerID
	return b
}

// WithKind sets the account kind.
func (b *AccountBuilder) WithKind(kind Kind) *AccountBuilder {
	b.kind = kind
	return b
}

// WithBalance sets the opening balance. Also used to hydrate accounts from
// the data store.
func (b *AccountBuilder) WithBalance(balance decimal.Decimal) *AccountBuilder {
	b.balance = balance
	return b
}

// WithAccessCode sets the 6-digit access code.
func (b *AccountBuilder) WithAccessCode(code string) *AccountBuilder {
	b.accessCode = code
	return b
}

// WithCreatedAt sets the creation timestamp, for hydration from the store.
func (b *AccountBuilder) WithCreatedAt(t time.Time) *AccountBuilder {
	b.createdAt = t
	return b
}

// Build validates all invariants and returns the Account.
func (b *AccountBuilder) Build() (*Account, error) {
	if _, err := ParseKind(string(b.kind)); err != nil {
		return nil, err
	}
	if b.ownerID == 0 {
		return nil, errors.New("owner id is required")
	}
	if len(b.accessCode) != 6 || !allDigits(b.accessCode) {
		return nil, errors.New("access code must be 6 digits")
	}
	if b.balance.IsNegative() {
		return nil, errors.New("opening balance cannot be negative")
	}
	return &Account{
		AccountNo:  b.accountNo,
		OwnerID:    b.ownerID,
		Kind:       b.kind,
		Balance:    b.balance,
		AccessCode: b.accessCode,
		CreatedAt:  b.createdAt,
	}, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ValidateDeposit checks the invariants for a deposit of amount.
func (a *Account) ValidateDeposit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateWithdraw checks the invariants for a withdrawal of amount: the
// amount must be positive and must not exceed the current balance.
func (a *Account) ValidateWithdraw(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(a.Balance) {
		return ErrInsufficientFunds
	}
	return nil
}

// ValidateTransfer checks the invariants for moving amount from a to dest.
func ValidateTransfer(from, dest *Account, amount decimal.Decimal) error {
	if from == nil || dest == nil {
		return ErrAccountNotFound
	}
	if from.AccountNo == dest.AccountNo {
		return ErrSameAccount
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(from.Balance) {
		return ErrInsufficientFunds
	}
	return nil
}

// AppendHistory adds e to the bounded history window, evicting the oldest
// entry once the window is full.
func (a *Account) AppendHistory(e Entry) {
	a.History = append(a.History, e)
	if len(a.History) > HistoryWindow {
		a.History = a.History[len(a.History)-HistoryWindow:]
	}
}

// AddScheme appends a scheme label; the list is append-only and ordered.
func (a *Account) AddScheme(label string) {
	a.Schemes = append(a.Schemes, label)
}

// Clone returns a deep copy so callers cannot mutate cache internals.
func (a *Account) Clone() *Account {
	cp := *a
	cp.Schemes = append([]string(nil), a.Schemes...)
	cp.History = append([]Entry(nil), a.History...)
	return &cp
}
