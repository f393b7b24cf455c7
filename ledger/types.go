/*
Package ledger provides the core student financial ledger engine.

PURPOSE:
  This package contains the types and algorithms that track what a student
  owes for an academic term and what has been paid against it. Charges,
  reductions, and payments are separate facts; the amount due, the amount
  paid, and the account status are always derived from those facts, never
  stored ahead of them.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: exact two-place decimal amounts (see money.go)
  - AcademicPeriod: the (academic year, semester) scope of an account
  - PaymentEvent: an immutable journal entry recording money received
  - Closed enums: payment types, methods, statuses, and billing cadences

DESIGN PRINCIPLES:
  1. Immutability: payment events are never modified, only reversed
  2. Derivation: totals, balances, and statuses are recomputed, not edited
  3. Precision: decimal.Decimal everywhere; binary floats never cross in
  4. Closed sets: unknown enum values are rejected at the boundary

SEE ALSO:
  - account.go: LedgerAccount and the pure Recompute
  - journal.go: the payment journal (record / reverse / aggregate)
  - adjustment.go: discount, scholarship, forwarded-balance mutations
  - status.go: the account status policy
*/
package ledger

import (
	"fmt"
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type StudentID string
type AccountID string
type EventID string
type ActorID string

// =============================================================================
// PAID TYPE - Billing cadence of an account
// =============================================================================

// PaidType is the billing cadence a ledger account was created under. It
// labels how the base fee is expected to be settled; it never changes the
// arithmetic of what is owed.
type PaidType string

const (
	PaidPerMonth    PaidType = "per-month"
	PaidPerSemester PaidType = "per-semester"
	PaidPerYear     PaidType = "per-year"
	PaidOneTime     PaidType = "one-time"
)

var paidTypes = map[PaidType]bool{
	PaidPerMonth:    true,
	PaidPerSemester: true,
	PaidPerYear:     true,
	PaidOneTime:     true,
}

func (pt PaidType) Valid() bool { return paidTypes[pt] }

// ParsePaidType resolves a wire string to a PaidType or fails with
// ErrInvalidPaidType.
func ParsePaidType(s string) (PaidType, error) {
	pt := PaidType(s)
	if !pt.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPaidType, s)
	}
	return pt, nil
}

// =============================================================================
// PAYMENT ENUMS - Closed sets, rejected when unknown
// =============================================================================

type PaymentType string

const (
	PaymentTuition        PaymentType = "tuition"
	PaymentIDCard         PaymentType = "id_card"
	PaymentCertificate    PaymentType = "certificate"
	PaymentGraduation     PaymentType = "graduation"
	PaymentHousing        PaymentType = "housing"
	PaymentAdministrative PaymentType = "administrative"
	PaymentDeposits       PaymentType = "deposits"
	PaymentOther          PaymentType = "other"
)

var paymentTypes = map[PaymentType]bool{
	PaymentTuition:        true,
	PaymentIDCard:         true,
	PaymentCertificate:    true,
	PaymentGraduation:     true,
	PaymentHousing:        true,
	PaymentAdministrative: true,
	PaymentDeposits:       true,
	PaymentOther:          true,
}

func (t PaymentType) Valid() bool { return paymentTypes[t] }

func ParsePaymentType(s string) (PaymentType, error) {
	t := PaymentType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPaymentType, s)
	}
	return t, nil
}

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodMobileMoney  PaymentMethod = "mobile_money"
	MethodCheck        PaymentMethod = "check"
)

var paymentMethods = map[PaymentMethod]bool{
	MethodCash:         true,
	MethodBankTransfer: true,
	MethodMobileMoney:  true,
	MethodCheck:        true,
}

func (m PaymentMethod) Valid() bool { return paymentMethods[m] }

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, s)
	}
	return m, nil
}

// PaymentStatus is the state recorded on a single journal entry. Recording
// money received writes StatusPaid; the other values exist for imported or
// expected entries.
type PaymentStatus string

const (
	StatusPending PaymentStatus = "pending"
	StatusPaid    PaymentStatus = "paid"
	StatusOverdue PaymentStatus = "overdue"
	StatusPartial PaymentStatus = "partial"
)

// AccountStatus is derived for the account as a whole by the status policy.
// It shares the wire vocabulary of PaymentStatus but is a distinct closed
// set; the two never mix in signatures.
type AccountStatus string

const (
	AccountPending AccountStatus = "pending"
	AccountPaid    AccountStatus = "paid"
	AccountOverdue AccountStatus = "overdue"
	AccountPartial AccountStatus = "partial"
)

// =============================================================================
// PAYMENT EVENT - Immutable journal entry
// =============================================================================

// PaymentEvent records one payment received for a student within an academic
// period. Events are append-only: the single correction path is a reversal
// marker, which excludes the event from aggregation but keeps it in history.
type PaymentEvent struct {
	ID        EventID
	StudentID StudentID
	Period    AcademicPeriod

	Amount Money // strictly positive
	Type   PaymentType
	Method PaymentMethod
	Status PaymentStatus

	PaidAt Date
	DueAt  *Date // optional; the period due date at record time, if known

	// Reference carries a free-form external handle (receipt no, bank ref).
	Reference string

	// IdempotencyKey, when set, dedupes retried submissions.
	IdempotencyKey string

	RecordedBy ActorID
	CreatedAt  time.Time

	ReversedAt *time.Time
	ReversedBy ActorID
}

// Reversed reports whether the event has been excluded from aggregation.
func (e PaymentEvent) Reversed() bool { return e.ReversedAt != nil }

// =============================================================================
// STUDENT - Boundary identity, read-mostly
// =============================================================================

// Student is the slice of the enrollment record the ledger needs: identity,
// the department that prices the base fee, and the enrollment period. The
// ledger never mutates enrollment beyond this directory.
type Student struct {
	ID           StudentID
	FullName     string
	FacultyID    string
	DepartmentID string
	AcademicYear string
	Semester     int
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
