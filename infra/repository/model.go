package repository

import (
	"time"

	"bankledger/pkg/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Owner is an owner row in the database.
type Owner struct {
	ID           int64     `gorm:"primaryKey"`
	FirstName    string    `gorm:"not null"`
	LastName     string    `gorm:"not null"`
	DateOfBirth  time.Time `gorm:"not null"`
	Mobile       string    `gorm:"size:10;uniqueIndex;not null"`
	Email        string    `gorm:"not null"`
	Aadhaar      string    `gorm:"size:12;uniqueIndex;not null"`
	PAN          string    `gorm:"column:pan;size:10;uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time
}

// TableName specifies the table name for the Owner model.
func (Owner) TableName() string { return "owners" }

// Account is an account row. The check constraint is the storage layer's
// last-resort guard against a negative balance reaching disk.
type Account struct {
	AccountNo  int64           `gorm:"primaryKey;column:account_no"`
	OwnerID    int64           `gorm:"index;not null"`
	Kind       string          `gorm:"size:16;not null"`
	Balance    decimal.Decimal `gorm:"type:numeric(20,4);not null;check:balance >= 0"`
	AccessCode string          `gorm:"size:6;not null"`
	DebitCard  bool            `gorm:"not null;default:false"`
	CreditCard bool            `gorm:"not null;default:false"`
	Loan       bool            `gorm:"not null;default:false"`
	CreatedAt  time.Time
}

// TableName specifies the table name for the Account model.
func (Account) TableName() string { return "accounts" }

// Entry is one row of the append-only movement log.
type Entry struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	AccountNo  int64           `gorm:"index;not null"`
	Amount     decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	NewBalance decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	Note       string          `gorm:"not null"`
	CreatedAt  time.Time       `gorm:"index"`
}

// TableName specifies the table name for the Entry model.
func (Entry) TableName() string { return "entries" }

// Scheme is one applied scheme label on an account.
type Scheme struct {
	ID        uint   `gorm:"primaryKey"`
	AccountNo int64  `gorm:"index;not null"`
	Label     string `gorm:"not null"`
	CreatedAt time.Time
}

// TableName specifies the table name for the Scheme model.
func (Scheme) TableName() string { return "schemes" }

func ownerToDomain(m *Owner) *domain.Owner {
	return &domain.Owner{
		ID:           m.ID,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		DateOfBirth:  m.DateOfBirth,
		Mobile:       m.Mobile,
		Email:        m.Email,
		Aadhaar:      m.Aadhaar,
		PAN:          m.PAN,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
	}
}

func ownerToModel(o *domain.Owner) *Owner {
	return &Owner{
		ID:           o.ID,
		FirstName:    o.FirstName,
		LastName:     o.LastName,
		DateOfBirth:  o.DateOfBirth,
		Mobile:       o.Mobile,
		Email:        o.Email,
		Aadhaar:      o.Aadhaar,
		PAN:          o.PAN,
		PasswordHash: o.PasswordHash,
		CreatedAt:    o.CreatedAt,
	}
}

func accountToDomain(m *Account) *domain.Account {
	return &domain.Account{
		AccountNo:  m.AccountNo,
		OwnerID:    m.OwnerID,
		Kind:       domain.Kind(m.Kind),
		Balance:    m.Balance,
		AccessCode: m.AccessCode,
		DebitCard:  m.DebitCard,
		CreditCard: m.CreditCard,
		Loan:       m.Loan,
		CreatedAt:  m.CreatedAt,
	}
}

func accountToModel(a *domain.Account) *Account {
	return &Account{
		AccountNo:  a.AccountNo,
		OwnerID:    a.OwnerID,
		Kind:       string(a.Kind),
		Balance:    a.Balance,
		AccessCode: a.AccessCode,
		DebitCard:  a.DebitCard,
		CreditCard: a.CreditCard,
		Loan:       a.Loan,
		CreatedAt:  a.CreatedAt,
	}
}

func entryToDomain(m *Entry) domain.Entry {
	return domain.Entry{
		ID:         m.ID,
		AccountNo:  m.AccountNo,
		Amount:     m.Amount,
		NewBalance: m.NewBalance,
		Note:       m.Note,
		CreatedAt:  m.CreatedAt,
	}
}
