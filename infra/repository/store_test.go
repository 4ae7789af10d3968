package repository

import (
	"context"
	"errors"
	"testing"

	"bankledger/pkg/domain"
	pkgrepo "bankledger/pkg/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return NewStore(db), mock
}

func TestStore_Do_CommitsOnSuccess(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "accounts" SET "balance"`).
		WithArgs(sqlmock.AnyArg(), int64(24002170)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Do(context.Background(), func(tx pkgrepo.Txn) error {
		return tx.UpdateBalance(24002170, decimal.NewFromInt(700))
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Do_RollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	wantErr := errors.New("validation failed")
	err := store.Do(context.Background(), func(tx pkgrepo.Txn) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Do_ReportsRollbackFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(errors.New("connection lost"))

	cause := errors.New("validation failed")
	err := store.Do(context.Background(), func(tx pkgrepo.Txn) error {
		return cause
	})

	var rb *pkgrepo.RollbackError
	require.ErrorAs(t, err, &rb)
	assert.ErrorIs(t, rb.Cause, cause)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxn_UpdateBalance(t *testing.T) {
	t.Run("negative rejected before touching the database", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := store.Do(context.Background(), func(tx pkgrepo.Txn) error {
			return tx.UpdateBalance(24002170, decimal.NewFromInt(-1))
		})
		assert.ErrorIs(t, err, domain.ErrNegativeBalanceRejected)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing account", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "accounts" SET "balance"`).
			WithArgs(sqlmock.AnyArg(), int64(999)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := store.Do(context.Background(), func(tx pkgrepo.Txn) error {
			return tx.UpdateBalance(999, decimal.NewFromInt(1))
		})
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTxn_TransferLegsShareOneTransaction(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "accounts" SET "balance"`).
		WithArgs(sqlmock.AnyArg(), int64(24002170)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "accounts" SET "balance"`).
		WithArgs(sqlmock.AnyArg(), int64(24002171)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "entries"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "entries"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	debit := domain.NewEntry(24002170, decimal.NewFromInt(-300), decimal.NewFromInt(700), "Transfer to Jane Doe (24002171): 300, New Balance: 700")
	credit := domain.NewEntry(24002171, decimal.NewFromInt(300), decimal.NewFromInt(800), "Transfer from John Smith (24002170): 300, New Balance: 800")

	err := store.Do(context.Background(), func(tx pkgrepo.Txn) error {
		if err := tx.UpdateBalance(24002170, decimal.NewFromInt(700)); err != nil {
			return err
		}
		if err := tx.UpdateBalance(24002171, decimal.NewFromInt(800)); err != nil {
			return err
		}
		if err := tx.AppendEntry(debit); err != nil {
			return err
		}
		return tx.AppendEntry(credit)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxn_UpdateFlags(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "accounts" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Do(context.Background(), func(tx pkgrepo.Txn) error {
		return tx.UpdateFlags(24002170, true, false, false)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxn_DeleteAccount(t *testing.T) {
	t.Run("removes account and schemes, keeps entries", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "schemes"`).
			WithArgs(int64(24002170)).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(`DELETE FROM "accounts"`).
			WithArgs(int64(24002170)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := store.Do(context.Background(), func(tx pkgrepo.Txn) error {
			return tx.DeleteAccount(24002170)
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing account", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "schemes"`).
			WithArgs(int64(999)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`DELETE FROM "accounts"`).
			WithArgs(int64(999)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := store.Do(context.Background(), func(tx pkgrepo.Txn) error {
			return tx.DeleteAccount(999)
		})
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTxn_CreateAccount_NegativeBalanceRejected(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.Do(context.Background(), func(tx pkgrepo.Txn) error {
		return tx.CreateAccount(&domain.Account{
			AccountNo: 24002170,
			OwnerID:   24001,
			Kind:      domain.KindSavings,
			Balance:   decimal.NewFromInt(-10),
		})
	})
	assert.ErrorIs(t, err, domain.ErrNegativeBalanceRejected)
	assert.NoError(t, mock.ExpectationsWereMet())
}
