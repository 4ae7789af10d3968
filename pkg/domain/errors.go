package domain

import "errors"

var (
	// ErrInvalidAmount is returned when a money operation is requested with a
	// zero or negative amount.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientFunds is returned when an account does not hold enough
	// balance for a withdrawal or the debit leg of a transfer.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSameAccount is returned when a transfer names the same account as
	// both sender and recipient.
	ErrSameAccount = errors.New("cannot transfer to same account")

	// ErrRecipientNotFound is returned when recipient resolution (by account
	// number or mobile number) matches no eligible account.
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrDuplicateAccountNumber is returned when an account number is
	// inserted into the ledger index twice.
	ErrDuplicateAccountNumber = errors.New("duplicate account number")

	// ErrAccountNotFound is returned when an account cannot be found.
	ErrAccountNotFound = errors.New("account not found")

	// ErrOwnerNotFound is returned when an owner cannot be found.
	ErrOwnerNotFound = errors.New("owner not found")

	// ErrWouldGoNegative is returned by the in-memory balance delta when the
	// resulting balance would be negative. The durable store is the primary
	// guard; this one protects the cache.
	ErrWouldGoNegative = errors.New("balance would go negative")

	// ErrNegativeBalanceRejected is returned by the storage layer when asked
	// to persist a negative balance, independent of any in-process check.
	ErrNegativeBalanceRejected = errors.New("negative balance rejected by store")

	// ErrTransferFailed is returned when the durable commit of a money
	// movement fails and the transaction was rolled back. No in-memory state
	// has changed; the caller may retry.
	ErrTransferFailed = errors.New("transfer failed")

	// ErrResyncRequired is returned after a rollback itself failed. Durable
	// and cached state may disagree, so every mutating call is refused until
	// the ledger is reloaded from the store.
	ErrResyncRequired = errors.New("ledger out of sync with store, resync required")

	// ErrNotLoaded is returned when a mutating call arrives before the initial
	// load from the store has completed.
	ErrNotLoaded = errors.New("ledger not loaded")

	// ErrDuplicateIdentity is returned when a registration reuses a mobile
	// number, Aadhaar or PAN that already belongs to another owner.
	ErrDuplicateIdentity = errors.New("identity field already registered")

	// ErrCardAlreadyIssued is returned when a card of the requested kind has
	// already been issued on the account.
	ErrCardAlreadyIssued = errors.New("card already issued")

	// ErrLoanAlreadyApproved is returned when the account already carries a loan.
	ErrLoanAlreadyApproved = errors.New("loan already approved")
)
