// Package repository implements the durable AccountStore over GORM and
// Postgres. All mutations run inside explicit transactions with guaranteed
// rollback on every exit path that did not commit.
package repository

import (
	"context"
	"fmt"

	"bankledger/pkg/domain"
	pkgrepo "bankledger/pkg/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Store implements pkgrepo.AccountStore over a *gorm.DB.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store over db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the schema for every model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Owner{}, &Account{}, &Entry{}, &Scheme{})
}

// Do runs fn inside one transaction. Commit happens only when fn returns
// nil; every other exit path, panics included, rolls back. A rollback that
// itself fails is reported as *pkgrepo.RollbackError so the caller can
// escalate.
func (s *Store) Do(ctx context.Context, fn func(tx pkgrepo.Txn) error) (err error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin transaction: %w", tx.Error)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if rbErr := tx.Rollback().Error; rbErr != nil && rbErr != gorm.ErrInvalidTransaction {
			err = &pkgrepo.RollbackError{Cause: err, RollbackErr: rbErr}
		}
	}()

	if err = fn(&txn{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit().Error; err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// LoadAll reads every owner and account, attaching schemes and the most
// recent history window, for the startup rebuild.
func (s *Store) LoadAll(ctx context.Context) (*pkgrepo.Snapshot, error) {
	var ownerRows []Owner
	if err := s.db.WithContext(ctx).Order("id").Find(&ownerRows).Error; err != nil {
		return nil, fmt.Errorf("load owners: %w", err)
	}
	var accountRows []Account
	if err := s.db.WithContext(ctx).Order("account_no").Find(&accountRows).Error; err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	var schemeRows []Scheme
	if err := s.db.WithContext(ctx).Order("id").Find(&schemeRows).Error; err != nil {
		return nil, fmt.Errorf("load schemes: %w", err)
	}

	schemes := make(map[int64][]string)
	for _, r := range schemeRows {
		schemes[r.AccountNo] = append(schemes[r.AccountNo], r.Label)
	}

	snap := &pkgrepo.Snapshot{}
	for i := range ownerRows {
		snap.Owners = append(snap.Owners, ownerToDomain(&ownerRows[i]))
	}
	for i := range accountRows {
		a := accountToDomain(&accountRows[i])
		a.Schemes = schemes[a.AccountNo]
		recent, err := s.recentEntries(ctx, a.AccountNo)
		if err != nil {
			return nil, err
		}
		for _, e := range recent {
			a.AppendHistory(e)
		}
		snap.Accounts = append(snap.Accounts, a)
	}
	return snap, nil
}

// recentEntries returns the history window for one account in commit order.
func (s *Store) recentEntries(ctx context.Context, accountNo int64) ([]domain.Entry, error) {
	var rows []Entry
	err := s.db.WithContext(ctx).
		Where("account_no = ?", accountNo).
		Order("created_at desc").
		Limit(domain.HistoryWindow).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load entries for %d: %w", accountNo, err)
	}
	out := make([]domain.Entry, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		out = append(out, entryToDomain(&rows[i]))
	}
	return out, nil
}

// txn implements pkgrepo.Txn over one open gorm transaction.
type txn struct {
	tx *gorm.DB
}

func (t *txn) UpdateBalance(accountNo int64, newBalance decimal.Decimal) error {
	if newBalance.IsNegative() {
		return domain.ErrNegativeBalanceRejected
	}
	res := t.tx.Model(&Account{}).
		Where("account_no = ?", accountNo).
		Update("balance", newBalance)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (t *txn) AppendEntry(e domain.Entry) error {
	row := &Entry{
		ID:         e.ID,
		AccountNo:  e.AccountNo,
		Amount:     e.Amount,
		NewBalance: e.NewBalance,
		Note:       e.Note,
		CreatedAt:  e.CreatedAt,
	}
	return t.tx.Create(row).Error
}

func (t *txn) CreateOwner(o *domain.Owner) error {
	return t.tx.Create(ownerToModel(o)).Error
}

func (t *txn) CreateAccount(a *domain.Account) error {
	if a.Balance.IsNegative() {
		return domain.ErrNegativeBalanceRejected
	}
	return t.tx.Create(accountToModel(a)).Error
}

func (t *txn) UpdateOwnerPassword(ownerID int64, passwordHash string) error {
	res := t.tx.Model(&Owner{}).
		Where("id = ?", ownerID).
		Update("password_hash", passwordHash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrOwnerNotFound
	}
	return nil
}

func (t *txn) UpdateFlags(accountNo int64, debitCard, creditCard, loan bool) error {
	res := t.tx.Model(&Account{}).
		Where("account_no = ?", accountNo).
		Updates(map[string]any{
			"debit_card":  debitCard,
			"credit_card": creditCard,
			"loan":        loan,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (t *txn) AddScheme(accountNo int64, label string) error {
	return t.tx.Create(&Scheme{AccountNo: accountNo, Label: label}).Error
}

// DeleteAccount removes the account and its schemes. The movement log is
// append-only and stays behind for audit.
func (t *txn) DeleteAccount(accountNo int64) error {
	if err := t.tx.Where("account_no = ?", accountNo).Delete(&Scheme{}).Error; err != nil {
		return err
	}
	res := t.tx.Where("account_no = ?", accountNo).Delete(&Account{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}
