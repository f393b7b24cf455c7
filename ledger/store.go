/*
store.go - Persistence interface for accounts, payment events, and audit

PURPOSE:
  Defines the interface between the ledger engine and the database. Payment
  events are append-only: the single permitted update is setting the reversal
  marker, exactly once. Accounts update only through optimistic version
  checks.

KEY INTERFACES:
  AccountStore: account rows with version-checked updates
  EventStore:   append-only payment journal entries
  StudentStore: the boundary student directory
  AuditLog:     append-only record of who did what
  Store:        the four combined; what a transaction body sees
  TxStore:      Store plus WithTx for atomic multi-write operations

CONCURRENCY CONTRACT:
  UpdateAccount compares the caller's Version against the stored row and
  fails with ErrConcurrentModification on mismatch, bumping on success.
  Combined with WithTx this serializes same-account operations; operations on
  different accounts do not contend.

IDEMPOTENCY:
  AppendEvent rejects a duplicate non-empty idempotency key with
  ErrDuplicateIdempotencyKey, so a retried payment submission cannot double
  an account's paid amount.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: durable SQLite store
  - ledger/store/memory.go: in-memory store for tests and demos

SEE ALSO:
  - journal.go: the journal built on EventStore
  - bursar/service.go: operation orchestration on TxStore
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// ACCOUNT STORE
// =============================================================================

// AccountStore persists ledger accounts. Accounts are never deleted;
// deactivation is a regular versioned update.
type AccountStore interface {
	// CreateAccount inserts a new account. Fails with ErrDuplicateAccount if
	// an ACTIVE account already holds the (student, year, semester) key.
	CreateAccount(ctx context.Context, acc LedgerAccount) error

	// Account loads by ID, active or not. ErrAccountNotFound when missing.
	Account(ctx context.Context, id AccountID) (LedgerAccount, error)

	// ActiveAccount loads the single active account for a natural key.
	ActiveAccount(ctx context.Context, studentID StudentID, period AcademicPeriod) (LedgerAccount, error)

	// AccountsByStudent returns every account of a student, active and
	// deactivated, ordered by period then creation time.
	AccountsByStudent(ctx context.Context, studentID StudentID) ([]LedgerAccount, error)

	// UpdateAccount writes the account if acc.Version still matches the
	// stored row, then increments the version. ErrConcurrentModification on
	// mismatch. Re-activation races resolve here too: an update that would
	// produce a second active account for the key fails ErrDuplicateAccount.
	UpdateAccount(ctx context.Context, acc LedgerAccount) error
}

// =============================================================================
// EVENT STORE - Append-only journal entries
// =============================================================================

// EventStore persists payment events. No Update, no Delete; the one
// permitted state change is the reversal marker, set at most once.
type EventStore interface {
	// AppendEvent persists a new event. Fails with
	// ErrDuplicateIdempotencyKey when the key is taken.
	AppendEvent(ctx context.Context, e PaymentEvent) error

	// Event loads by ID, reversed or not. ErrEventNotFound when missing.
	Event(ctx context.Context, id EventID) (PaymentEvent, error)

	// MarkReversed sets the reversal marker exactly once. ErrEventNotFound
	// when the event is missing or the marker is already set.
	MarkReversed(ctx context.Context, id EventID, by ActorID, at time.Time) error

	// EventsByPeriod returns a student's events for one period, reversed
	// included, ordered by payment date then creation time.
	EventsByPeriod(ctx context.Context, studentID StudentID, period AcademicPeriod) ([]PaymentEvent, error)

	// EventsByStudent returns all of a student's events across periods.
	EventsByStudent(ctx context.Context, studentID StudentID) ([]PaymentEvent, error)
}

// =============================================================================
// STUDENT DIRECTORY - Boundary records
// =============================================================================

// StudentStore is the minimal directory the ledger needs of enrollment.
type StudentStore interface {
	// SaveStudent inserts or replaces a student record.
	SaveStudent(ctx context.Context, s Student) error

	// StudentByID fails with ErrStudentNotFound when missing.
	StudentByID(ctx context.Context, id StudentID) (Student, error)

	// Students lists the directory ordered by creation time.
	Students(ctx context.Context) ([]Student, error)
}

// =============================================================================
// AUDIT LOG - Append-only, who did what when
// =============================================================================

type AuditAction string

const (
	AuditAccountCreated     AuditAction = "account_created"
	AuditAccountRepriced    AuditAction = "account_repriced"
	AuditAccountDeactivated AuditAction = "account_deactivated"
	AuditAccountReactivated AuditAction = "account_reactivated"
	AuditPaidTypeChanged    AuditAction = "paid_type_changed"
	AuditDiscountApplied    AuditAction = "discount_applied"
	AuditScholarshipApplied AuditAction = "scholarship_applied"
	AuditForwardedApplied   AuditAction = "forwarded_applied"
	AuditChargeAdded        AuditAction = "charge_added"
	AuditPaymentRecorded    AuditAction = "payment_recorded"
	AuditPaymentReversed    AuditAction = "payment_reversed"
	AuditAccountRolledOver  AuditAction = "account_rolled_over"
)

// AuditEntry records who did what when. Entries ride in the same transaction
// as the mutation they describe.
type AuditEntry struct {
	ID        string
	At        time.Time
	Actor     ActorID
	Action    AuditAction
	StudentID StudentID
	AccountID AccountID
	Payload   map[string]any
}

// AuditLog stores audit entries. Append-only.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	AuditByStudent(ctx context.Context, studentID StudentID) ([]AuditEntry, error)
}

// =============================================================================
// COMBINED AND TRANSACTIONAL STORES
// =============================================================================

// Store is everything a single operation may touch. A transaction body
// receives one of these scoped to the transaction.
type Store interface {
	AccountStore
	EventStore
	StudentStore
	AuditLog
}

// TxStore adds atomic execution. If fn returns an error the transaction
// rolls back and none of its writes are visible.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
