package ledger_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"bankledger/pkg/domain"
	"bankledger/pkg/ledger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ownerBuilder returns a valid registration with identity fields derived
// from n so each call stays unique.
func ownerBuilder(first, last string, n int) *domain.OwnerBuilder {
	return domain.NewOwner().
		WithName(first, last).
		WithDateOfBirth(time.Date(1990, 5, 20, 0, 0, 0, 0, time.UTC)).
		WithContact(fmt.Sprintf("98765%05d", n), fmt.Sprintf("user%d@example.com", n)).
		WithIdentifiers(fmt.Sprintf("1234567%05d", n), fmt.Sprintf("ABCDE%04dF", n)).
		WithPassword("s3cret-pass")
}

func newLedger(t *testing.T) (*ledger.Ledger, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	led := ledger.New(store, discardLogger())
	require.NoError(t, led.Load(context.Background()))
	return led, store
}

func TestLedger_RequiresLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	led := ledger.New(newFakeStore(), discardLogger())

	_, err := led.RegisterOwner(ctx, ownerBuilder("John", "Smith", 1))
	assert.ErrorIs(t, err, domain.ErrNotLoaded)

	// The engine entry points honor the same gate.
	_, err = led.Engine().Withdraw(ctx, 24002170, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domain.ErrNotLoaded)
	_, err = led.Engine().Transfer(ctx, 24002170, 24002171, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domain.ErrNotLoaded)
	_, err = led.TransferByMobile(ctx, 24002170, "9876500001", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domain.ErrNotLoaded)
}

func TestLedger_RegisterOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("ids start at the base and increment", func(t *testing.T) {
		t.Parallel()
		led, store := newLedger(t)

		o1, err := led.RegisterOwner(ctx, ownerBuilder("John", "Smith", 1))
		require.NoError(t, err)
		o2, err := led.RegisterOwner(ctx, ownerBuilder("Jane", "Doe", 2))
		require.NoError(t, err)

		assert.Equal(t, int64(24001), o1.ID)
		assert.Equal(t, int64(24002), o2.ID)
		assert.Len(t, store.owners, 2)
	})

	t.Run("duplicate identity rejected", func(t *testing.T) {
		t.Parallel()
		led, _ := newLedger(t)

		_, err := led.RegisterOwner(ctx, ownerBuilder("John", "Smith", 1))
		require.NoError(t, err)

		// Same mobile, rest unique.
		dup := ownerBuilder("Jane", "Doe", 2).WithContact(fmt.Sprintf("98765%05d", 1), "jane@example.com")
		_, err = led.RegisterOwner(ctx, dup)
		assert.ErrorIs(t, err, domain.ErrDuplicateIdentity)

		// Same aadhaar.
		dup = ownerBuilder("Jane", "Doe", 3).WithIdentifiers(fmt.Sprintf("1234567%05d", 1), "ABCDE0003F")
		_, err = led.RegisterOwner(ctx, dup)
		assert.ErrorIs(t, err, domain.ErrDuplicateIdentity)

		// Same pan.
		dup = ownerBuilder("Jane", "Doe", 4).WithIdentifiers(fmt.Sprintf("1234567%05d", 4), "ABCDE0001F")
		_, err = led.RegisterOwner(ctx, dup)
		assert.ErrorIs(t, err, domain.ErrDuplicateIdentity)
	})

	t.Run("failed persist does not advance the counter", func(t *testing.T) {
		t.Parallel()
		led, store := newLedger(t)
		store.commitErr = fmt.Errorf("connection reset")

		_, err := led.RegisterOwner(ctx, ownerBuilder("John", "Smith", 1))
		require.Error(t, err)

		store.commitErr = nil
		o, err := led.RegisterOwner(ctx, ownerBuilder("John", "Smith", 1))
		require.NoError(t, err)
		assert.Equal(t, int64(24001), o.ID)
	})
}

func TestLedger_OpenAccount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("numbers start at the base and increment", func(t *testing.T) {
		t.Parallel()
		led, _ := newLedger(t)
		o, err := led.RegisterOwner(ctx, ownerBuilder("John", "Smith", 1))
		require.NoError(t, err)

		a1, err := led.OpenAccount(ctx, o.ID, domain.KindSavings, "123456", decimal.NewFromInt(1000))
		require.NoError(t, err)
		a2, err := led.OpenAccount(ctx, o.ID, domain.KindCurrent, "654321", decimal.Zero)
		require.NoError(t, err)

		assert.Equal(t, int64(24002170), a1.AccountNo)
		assert.Equal(t, int64(24002171), a2.AccountNo)

		accts := led.AccountsOf(o.ID)
		require.Len(t, accts, 2)
		assert.Equal(t, domain.KindSavings, accts[0].Kind)
	})

	t.Run("unknown owner", func(t *testing.T) {
		t.Parallel()
		led, _ := newLedger(t)
		_, err := led.OpenAccount(ctx, 99999, domain.KindSavings, "123456", decimal.Zero)
		assert.ErrorIs(t, err, domain.ErrOwnerNotFound)
	})

	t.Run("invalid access code", func(t *testing.T) {
		t.Parallel()
		led, _ := newLedger(t)
		o, err := led.RegisterOwner(ctx, ownerBuilder("John", "Smith", 1))
		require.NoError(t, err)
		_, err = led.OpenAccount(ctx, o.ID, domain.KindSavings, "12ab56", decimal.Zero)
		assert.Error(t, err)
	})
}

func TestLedger_FindOwnersByName(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	led, _ := newLedger(t)

	o1, err := led.RegisterOwner(ctx, ownerBuilder("John", "Smith", 1))
	require.NoError(t, err)
	_, err = led.RegisterOwner(ctx, ownerBuilder("Jane", "Doe", 2))
	require.NoError(t, err)
	o3, err := led.RegisterOwner(ctx, ownerBuilder("john", "smith", 3))
	require.NoError(t, err)

	got := led.FindOwnersByName("  John   Smith ")
	require.Len(t, got, 2)
	assert.Equal(t, o1.ID, got[0].ID)
	assert.Equal(t, o3.ID, got[1].ID)

	assert.Empty(t, led.FindOwnersByName("Nobody Here"))
}

func TestLedger_ChangePassword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	led, _ := newLedger(t)
	o, err := led.RegisterOwner(ctx, ownerBuilder("John", "Smith", 1))
	require.NoError(t, err)

	assert.Error(t, led.ChangePassword(ctx, o.ID, "wrong", "new-pass"))
	require.NoError(t, led.ChangePassword(ctx, o.ID, "s3cret-pass", "new-pass"))

	got, err := led.Owner(o.ID)
	require.NoError(t, err)
	assert.True(t, got.CheckPassword("new-pass"))
	assert.False(t, got.CheckPassword("s3cret-pass"))

	// The new hash survives a reload from the store.
	require.NoError(t, led.Reload(ctx))
	got, err = led.Owner(o.ID)
	require.NoError(t, err)
	assert.True(t, got.CheckPassword("new-pass"))
}

func TestLedger_CardsLoansSchemes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	led, _ := newLedger(t)
	o, err := led.RegisterOwner(ctx, ownerBuilder("John", "Smith", 1))
	require.NoError(t, err)
	a, err := led.OpenAccount(ctx, o.ID, domain.KindSavings, "123456", decimal.NewFromInt(1000))
	require.NoError(t, err)

	t.Run("issue card once", func(t *testing.T) {
		require.NoError(t, led.IssueCard(ctx, a.AccountNo, ledger.CardDebit))
		assert.ErrorIs(t, led.IssueCard(ctx, a.AccountNo, ledger.CardDebit), domain.ErrCardAlreadyIssued)

		require.NoError(t, led.IssueCard(ctx, a.AccountNo, ledger.CardCredit))
		got, err := led.Account(a.AccountNo)
		require.NoError(t, err)
		assert.True(t, got.DebitCard)
		assert.True(t, got.CreditCard)
	})

	t.Run("approve loan once", func(t *testing.T) {
		assert.ErrorIs(t, led.ApproveLoan(ctx, a.AccountNo, decimal.Zero, "Home"), domain.ErrInvalidAmount)
		require.NoError(t, led.ApproveLoan(ctx, a.AccountNo, decimal.NewFromInt(50000), "Home"))
		assert.ErrorIs(t, led.ApproveLoan(ctx, a.AccountNo, decimal.NewFromInt(1), "Car"), domain.ErrLoanAlreadyApproved)

		got, err := led.Account(a.AccountNo)
		require.NoError(t, err)
		assert.True(t, got.Loan)
		assert.Contains(t, got.Schemes, "Home Loan: 50000")
	})

	t.Run("add scheme", func(t *testing.T) {
		require.NoError(t, led.AddScheme(ctx, a.AccountNo, "Gold Savings"))
		got, err := led.Account(a.AccountNo)
		require.NoError(t, err)
		assert.Contains(t, got.Schemes, "Gold Savings")

		assert.ErrorIs(t, led.AddScheme(ctx, 999, "x"), domain.ErrAccountNotFound)
	})
}

func TestLedger_ConcurrentFlagMutationsKeepBoth(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	led, store := newLedger(t)
	o, err := led.RegisterOwner(ctx, ownerBuilder("John", "Smith", 1))
	require.NoError(t, err)
	a, err := led.OpenAccount(ctx, o.ID, domain.KindSavings, "123456", decimal.NewFromInt(1000))
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, led.IssueCard(ctx, a.AccountNo, ledger.CardDebit))
	}()
	go func() {
		defer wg.Done()
		assert.NoError(t, led.ApproveLoan(ctx, a.AccountNo, decimal.NewFromInt(50000), "Home"))
	}()
	wg.Wait()

	// Neither mutation may overwrite the other's flag.
	got, err := led.Account(a.AccountNo)
	require.NoError(t, err)
	assert.True(t, got.DebitCard)
	assert.True(t, got.Loan)
	assert.Contains(t, got.Schemes, "Home Loan: 50000")

	persisted := store.accounts[a.AccountNo]
	assert.True(t, persisted.DebitCard)
	assert.True(t, persisted.Loan)
}

func TestLedger_DeleteAccount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	led, store := newLedger(t)
	o, err := led.RegisterOwner(ctx, ownerBuilder("John", "Smith", 1))
	require.NoError(t, err)
	a, err := led.OpenAccount(ctx, o.ID, domain.KindSavings, "123456", decimal.Zero)
	require.NoError(t, err)

	require.NoError(t, led.DeleteAccount(ctx, a.AccountNo))
	_, err = led.Account(a.AccountNo)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.Empty(t, led.AccountsOf(o.ID))
	assert.Empty(t, store.accounts)

	assert.ErrorIs(t, led.DeleteAccount(ctx, a.AccountNo), domain.ErrAccountNotFound)
}

func TestLedger_TransferByMobile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	led, _ := newLedger(t)

	from, err := led.RegisterOwner(ctx, ownerBuilder("John", "Smith", 1))
	require.NoError(t, err)
	to, err := led.RegisterOwner(ctx, ownerBuilder("Jane", "Doe", 2))
	require.NoError(t, err)

	src, err := led.OpenAccount(ctx, from.ID, domain.KindSavings, "123456", decimal.NewFromInt(1000))
	require.NoError(t, err)
	dst1, err := led.OpenAccount(ctx, to.ID, domain.KindSavings, "123456", decimal.NewFromInt(500))
	require.NoError(t, err)
	_, err = led.OpenAccount(ctx, to.ID, domain.KindCurrent, "123456", decimal.Zero)
	require.NoError(t, err)

	res, err := led.TransferByMobile(ctx, src.AccountNo, to.Mobile, decimal.NewFromInt(300))
	require.NoError(t, err)
	assert.True(t, res.FromBalance.Equal(decimal.NewFromInt(700)))
	assert.True(t, res.ToBalance.Equal(decimal.NewFromInt(800)))

	// The first account of the owner receives the money.
	got, err := led.Account(dst1.AccountNo)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(800)))

	_, err = led.TransferByMobile(ctx, src.AccountNo, "0000000000", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, domain.ErrRecipientNotFound)
}

func TestLedger_LoadSeedsCounters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newFakeStore()

	seedOwner, err := ownerBuilder("John", "Smith", 1).WithID(30000).Build()
	require.NoError(t, err)
	store.seedOwner(seedOwner)
	store.seedAccount(testAccount(t, 24999999, 30000, 1000))

	led := ledger.New(store, discardLogger())
	require.NoError(t, led.Load(ctx))

	o, err := led.RegisterOwner(ctx, ownerBuilder("Jane", "Doe", 2))
	require.NoError(t, err)
	assert.Equal(t, int64(30001), o.ID)

	a, err := led.OpenAccount(ctx, o.ID, domain.KindSavings, "123456", decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, int64(25000000), a.AccountNo)

	// The seeded state is queryable after the rebuild.
	got, err := led.Account(24999999)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), got.OwnerID)
	assert.Len(t, led.FindOwnersByName("John Smith"), 1)
}

func TestLedger_ReloadClearsResyncState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	led, store := newLedger(t)

	o, err := led.RegisterOwner(ctx, ownerBuilder("John", "Smith", 1))
	require.NoError(t, err)
	a, err := led.OpenAccount(ctx, o.ID, domain.KindSavings, "123456", decimal.NewFromInt(1000))
	require.NoError(t, err)

	store.commitErr = fmt.Errorf("disk full")
	store.rollbackFail = true
	_, err = led.Engine().Withdraw(ctx, a.AccountNo, decimal.NewFromInt(100))
	require.ErrorIs(t, err, domain.ErrResyncRequired)

	// All writes are refused while out of sync.
	_, err = led.RegisterOwner(ctx, ownerBuilder("Jane", "Doe", 2))
	assert.ErrorIs(t, err, domain.ErrResyncRequired)

	store.commitErr = nil
	store.rollbackFail = false
	require.NoError(t, led.Reload(ctx))

	bal, err := led.Engine().Withdraw(ctx, a.AccountNo, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(900)))
}
