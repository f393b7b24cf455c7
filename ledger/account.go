/*
account.go - LedgerAccount and derived-field recomputation

PURPOSE:
  A LedgerAccount stores the FACTS of one student's term: base fee, other
  charges, frozen discount, scholarship percentage, forwarded balance. What
  the student owes right now is never stored; Recompute derives it from the
  facts plus the payment journal.

THE ARITHMETIC:
  scholarshipAmount = round_half_up(scholarshipPercent / 100 * baseFee)
  totalDue          = baseFee + otherCharges + forwarded - discount - scholarshipAmount
  paidAmount        = sum of non-reversed payment events for the period
  balance           = totalDue - paidAmount        (signed, never clamped)

  A negative balance is a credit and stays visible as such.

ASYMMETRY (intentional):
  Discounts are frozen amounts; scholarships are stored as percentages and
  re-derive against the current base fee on every recompute. Re-pricing a
  base fee therefore moves the scholarship amount but not the discount.

SEE ALSO:
  - adjustment.go: the only writers of the adjustment facts
  - status.go: status derivation used by Recompute
  - journal.go: the events Recompute aggregates
*/
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerAccount is the per-student, per-period financial account. Only facts
// live here; everything the caller thinks of as "the balance" is derived by
// Recompute. Accounts are never hard-deleted, only deactivated.
type LedgerAccount struct {
	ID        AccountID
	StudentID StudentID
	Period    AcademicPeriod

	// BaseFee is set at creation (catalog or explicit) and immutable except
	// through an explicit re-pricing.
	BaseFee Money

	// OtherCharges accumulates non-tuition charges. Never negative.
	OtherCharges Money

	// Discount is the frozen reduction amount. Never negative, never more
	// than BaseFee at the time it was applied.
	Discount Money

	// ScholarshipPercent is stored as a percentage in [0, 100] and converted
	// to an amount on every recompute.
	ScholarshipPercent decimal.Decimal

	// Forwarded is the signed carry-in from a prior period: positive is
	// inherited debt, negative is inherited credit.
	Forwarded Money

	PaidType PaidType
	Active   bool

	// Version increments on every committed write; optimistic concurrency.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAccount validates the creation facts and builds a fresh account. New
// accounts carry no adjustments and are active.
func NewAccount(id AccountID, studentID StudentID, period AcademicPeriod, baseFee Money, paidType PaidType, now time.Time) (LedgerAccount, error) {
	if baseFee.IsNegative() {
		return LedgerAccount{}, ErrInvalidFee
	}
	if !paidType.Valid() {
		return LedgerAccount{}, ErrInvalidPaidType
	}
	return LedgerAccount{
		ID:                 id,
		StudentID:          studentID,
		Period:             period,
		BaseFee:            baseFee,
		ScholarshipPercent: decimal.Zero,
		PaidType:           paidType,
		Active:             true,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// SetPaidType changes the billing cadence label. It never changes what is
// owed.
func (a *LedgerAccount) SetPaidType(pt PaidType) error {
	if !pt.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPaidType, pt)
	}
	a.PaidType = pt
	return nil
}

// Deactivate closes the account to further mutation. The row and its journal
// history remain; there is no hard delete.
func (a *LedgerAccount) Deactivate() { a.Active = false }

// Reactivate reopens a deactivated account. The store's uniqueness check
// decides whether the natural key is free to take again.
func (a *LedgerAccount) Reactivate() { a.Active = true }

// ScholarshipAmount derives the current scholarship reduction from the
// stored percentage and the current base fee.
func (a LedgerAccount) ScholarshipAmount() Money {
	return a.BaseFee.ApplyPercent(a.ScholarshipPercent)
}

// TotalDue derives what the period costs after reductions and carry-in.
func (a LedgerAccount) TotalDue() Money {
	return a.BaseFee.
		Add(a.OtherCharges).
		Add(a.Forwarded).
		Sub(a.Discount).
		Sub(a.ScholarshipAmount())
}

// =============================================================================
// SNAPSHOT - Fully derived, read-only view
// =============================================================================

// Snapshot is a recomputed view of an account at a moment: the stored facts
// plus every derived figure. Producing one has no observable effect on the
// account or the journal.
type Snapshot struct {
	Account LedgerAccount

	ScholarshipAmount Money
	TotalDue          Money
	PaidAmount        Money
	Balance           Money
	Status            AccountStatus

	// DueDate is the period's payment deadline when the calendar knows one.
	DueDate *Date

	// AsOf is the date the status was evaluated against.
	AsOf Date
}

// Recompute derives every figure of an account from its facts and a journal
// snapshot. Pure: same inputs, same output, nothing written.
//
// Events outside the account's (student, period) scope and reversed events
// are ignored, so callers may pass a wider slice than strictly necessary.
func Recompute(acc LedgerAccount, events []PaymentEvent, dueDate *Date, today Date) Snapshot {
	paid := Money{}
	hasPayment := false
	for _, e := range events {
		if e.Reversed() {
			continue
		}
		if e.StudentID != acc.StudentID || !e.Period.Equal(acc.Period) {
			continue
		}
		paid = paid.Add(e.Amount)
		hasPayment = true
	}

	scholarship := acc.ScholarshipAmount()
	totalDue := acc.TotalDue()
	balance := totalDue.Sub(paid)

	return Snapshot{
		Account:           acc,
		ScholarshipAmount: scholarship,
		TotalDue:          totalDue,
		PaidAmount:        paid,
		Balance:           balance,
		Status:            DeriveStatus(totalDue, paid, balance, hasPayment, dueDate, today),
		DueDate:           dueDate,
		AsOf:              today,
	}
}
