/*
schedule.go - Expected installment schedule per billing cadence

PURPOSE:
  Turns an account's total due and billing cadence into the installments a
  student is expected to settle it in. Display and planning only: recording
  payments never consults the schedule, and paying off-schedule is fine.

CADENCES:
  per-month     six monthly installments, the last on the period due date
  per-semester  one installment on the period due date
  per-year      one installment on the period due date
  one-time      one installment on the period due date

SPLITTING:
  Monthly splits happen in minor units so the installments always sum to the
  exact total; leftover cents land on the earliest installments.
*/
package bursar

import (
	"context"
	"fmt"

	"github.com/meridian/bursar-engine/ledger"
)

// monthsPerTerm is how many monthly installments a per-month cadence spreads
// a term over.
const monthsPerTerm = 6

// Installment is one expected payment slot.
type Installment struct {
	Seq    int          `json:"seq"`
	DueAt  ledger.Date  `json:"due_at"`
	Amount ledger.Money `json:"amount"`
}

// BuildSchedule lays out the installments for a total under a cadence,
// anchored so the final installment lands on the period deadline. A settled
// or negative total has nothing to schedule.
func BuildSchedule(total ledger.Money, pt ledger.PaidType, deadline ledger.Date) []Installment {
	if !total.IsPositive() {
		return nil
	}
	if pt != ledger.PaidPerMonth {
		return []Installment{{Seq: 1, DueAt: deadline, Amount: total}}
	}

	parts := splitEven(total, monthsPerTerm)
	schedule := make([]Installment, monthsPerTerm)
	for i := range schedule {
		schedule[i] = Installment{
			Seq:    i + 1,
			DueAt:  deadline.AddMonths(i + 1 - monthsPerTerm),
			Amount: parts[i],
		}
	}
	return schedule
}

// splitEven divides an amount into n parts that sum exactly to the amount,
// spreading remainder cents across the first parts.
func splitEven(total ledger.Money, n int) []ledger.Money {
	cents := total.MinorUnits()
	per := cents / int64(n)
	rem := cents % int64(n)
	parts := make([]ledger.Money, n)
	for i := range parts {
		c := per
		if int64(i) < rem {
			c++
		}
		parts[i] = ledger.MoneyFromMinorUnits(c)
	}
	return parts
}

// PaymentSchedule derives the installment schedule of an account. The period
// deadline is required here; a calendar without one is a dependency failure,
// not a reason to invent dates.
func (s *Service) PaymentSchedule(ctx context.Context, id ledger.AccountID) ([]Installment, error) {
	snap, err := s.AccountSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	if snap.DueDate == nil {
		return nil, fmt.Errorf("schedule for account %s: %w", id, ledger.ErrDueDateNotFound)
	}
	return BuildSchedule(snap.TotalDue, snap.Account.PaidType, *snap.DueDate), nil
}
