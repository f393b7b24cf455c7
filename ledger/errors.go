/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All engine errors in one place. Callers classify them into the four
  boundary kinds (validation, conflict, not-found, dependency) with the
  helpers at the bottom; the HTTP layer maps those kinds to status codes.

USAGE:
  Service and store code wraps these with context:

    if errors.Is(err, ledger.ErrDuplicateAccount) {
        // 409 at the boundary
    }

SEE ALSO:
  - journal.go, adjustment.go: produce the validation errors
  - store.go: produces the conflict and not-found errors
  - api/handlers.go: maps kinds to HTTP status codes
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidFee is returned for a negative base fee, charge, or discount.
	ErrInvalidFee = errors.New("fee amount must not be negative")

	// ErrInvalidPaidType is returned for a billing cadence outside the closed set.
	ErrInvalidPaidType = errors.New("invalid paid type")

	// ErrInvalidPercentage is returned for a scholarship or discount percentage
	// outside [0, 100].
	ErrInvalidPercentage = errors.New("percentage must be between 0 and 100")

	// ErrDiscountExceedsFee is returned when a discount amount would exceed the
	// base fee. The account is left untouched.
	ErrDiscountExceedsFee = errors.New("discount exceeds base fee")

	// ErrNonPositiveAmount is returned when recording a payment of zero or less.
	ErrNonPositiveAmount = errors.New("payment amount must be positive")

	// ErrUnknownPaymentType is returned for a payment type outside the closed set.
	ErrUnknownPaymentType = errors.New("unknown payment type")

	// ErrUnknownPaymentMethod is returned for a payment method outside the closed set.
	ErrUnknownPaymentMethod = errors.New("unknown payment method")

	// ErrInactiveAccount is returned when mutating a deactivated account.
	ErrInactiveAccount = errors.New("account is deactivated")

	// ErrInactiveStudent is returned when opening an account for a student whose
	// enrollment is no longer active.
	ErrInactiveStudent = errors.New("student is not active")

	// ErrDuplicateAccount is returned when an active account already holds the
	// (student, academic year, semester) key.
	ErrDuplicateAccount = errors.New("active account already exists for period")

	// ErrDuplicateIdempotencyKey is returned when a payment with the same
	// idempotency key already exists. Expected behavior for client retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrConcurrentModification is returned when optimistic locking detects a
	// conflicting write on the same account.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrAccountNotFound is returned when a referenced account doesn't exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrEventNotFound is returned when a payment event doesn't exist or has
	// already been reversed. A reversed event is gone for correction purposes.
	ErrEventNotFound = errors.New("payment event not found")

	// ErrStudentNotFound is returned when a referenced student doesn't exist.
	ErrStudentNotFound = errors.New("student not found")

	// ErrFeeScheduleNotFound is returned when the fee catalog has no entry for a
	// department and period. Never defaults to a zero fee.
	ErrFeeScheduleNotFound = errors.New("no fee schedule entry for department and period")

	// ErrDueDateNotFound is returned when the academic calendar has no due date
	// for a period.
	ErrDueDateNotFound = errors.New("no payment due date for period")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DiscountExceedsFeeError reports how far a rejected discount overshot.
type DiscountExceedsFeeError struct {
	AccountID AccountID
	Discount  Money
	BaseFee   Money
}

func (e *DiscountExceedsFeeError) Error() string {
	return fmt.Sprintf("discount %s exceeds base fee %s on account %s",
		e.Discount, e.BaseFee, e.AccountID)
}

func (e *DiscountExceedsFeeError) Unwrap() error {
	return ErrDiscountExceedsFee
}

// DuplicateAccountError identifies the occupied natural key.
type DuplicateAccountError struct {
	StudentID StudentID
	Period    AcademicPeriod
	Existing  AccountID
}

func (e *DuplicateAccountError) Error() string {
	return fmt.Sprintf("student %s already has active account %s for %s",
		e.StudentID, e.Existing, e.Period)
}

func (e *DuplicateAccountError) Unwrap() error {
	return ErrDuplicateAccount
}

// EventNotFoundError distinguishes a missing event from an already-reversed
// one in its message; both unwrap to ErrEventNotFound.
type EventNotFoundError struct {
	ID       EventID
	Reversed bool
}

func (e *EventNotFoundError) Error() string {
	if e.Reversed {
		return fmt.Sprintf("payment event %s already reversed", e.ID)
	}
	return fmt.Sprintf("payment event %s not found", e.ID)
}

func (e *EventNotFoundError) Unwrap() error {
	return ErrEventNotFound
}

// =============================================================================
// ERROR KINDS - The four caller-visible categories
// =============================================================================

// IsValidation returns true for pre-mutation rejections of caller input.
// Nothing was written when one of these surfaces.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidFee) ||
		errors.Is(err, ErrInvalidPaidType) ||
		errors.Is(err, ErrInvalidPercentage) ||
		errors.Is(err, ErrDiscountExceedsFee) ||
		errors.Is(err, ErrNonPositiveAmount) ||
		errors.Is(err, ErrUnknownPaymentType) ||
		errors.Is(err, ErrUnknownPaymentMethod) ||
		errors.Is(err, ErrInactiveAccount) ||
		errors.Is(err, ErrInactiveStudent)
}

// IsConflict returns true when state changed underneath the caller: a lost
// optimistic race, an occupied natural key, or a replayed idempotency key.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateAccount) ||
		errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrDuplicateIdempotencyKey)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrStudentNotFound)
}

// IsDependency returns true when a collaborator could not supply a required
// value. These must surface; defaulting a missing fee to zero would corrupt
// every derived amount downstream.
func IsDependency(err error) bool {
	return errors.Is(err, ErrFeeScheduleNotFound) ||
		errors.Is(err, ErrDueDateNotFound)
}

// IsRetryable returns true if the operation might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
