/*
adjustment.go - The adjustment engine

PURPOSE:
  The only writers of an account's reduction and charge facts. Each method
  validates against the CURRENT account state and either mutates in place or
  leaves the account untouched and returns an error. Callers persist the
  account and recompute within the same transaction.

FROZEN vs FLOATING:
  ApplyDiscountPercent converts to an amount immediately; the percentage is
  forgotten. ApplyScholarship stores the percentage itself. Keeping both
  behaviors is deliberate: a negotiated discount is a fixed concession, a
  scholarship tracks whatever the fee becomes.
*/
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

func validPercent(p decimal.Decimal) bool {
	return !p.IsNegative() && !p.GreaterThan(hundred)
}

// ApplyDiscountAmount freezes an absolute discount on the account.
func (a *LedgerAccount) ApplyDiscountAmount(amount Money) error {
	if amount.IsNegative() {
		return fmt.Errorf("discount: %w", ErrInvalidFee)
	}
	if amount.GreaterThan(a.BaseFee) {
		return &DiscountExceedsFeeError{AccountID: a.ID, Discount: amount, BaseFee: a.BaseFee}
	}
	a.Discount = amount
	return nil
}

// ApplyDiscountPercent converts a percentage of the CURRENT base fee into an
// absolute discount and freezes it. Later re-pricing will not move it.
func (a *LedgerAccount) ApplyDiscountPercent(percent decimal.Decimal) error {
	if !validPercent(percent) {
		return fmt.Errorf("discount %s%%: %w", percent, ErrInvalidPercentage)
	}
	return a.ApplyDiscountAmount(a.BaseFee.ApplyPercent(percent))
}

// ApplyScholarship stores a scholarship percentage. The amount it reduces is
// re-derived against the base fee on every recompute.
func (a *LedgerAccount) ApplyScholarship(percent decimal.Decimal) error {
	if !validPercent(percent) {
		return fmt.Errorf("scholarship %s%%: %w", percent, ErrInvalidPercentage)
	}
	a.ScholarshipPercent = percent
	return nil
}

// ApplyForwarded sets the signed carry-in from a prior period. Positive is
// inherited debt, negative is inherited credit. There is exactly one
// predecessor, so this replaces rather than accumulates.
func (a *LedgerAccount) ApplyForwarded(amount Money) {
	a.Forwarded = amount
}

// AddCharge accumulates a non-tuition charge into OtherCharges.
func (a *LedgerAccount) AddCharge(amount Money) error {
	if amount.IsNegative() {
		return fmt.Errorf("charge: %w", ErrInvalidFee)
	}
	a.OtherCharges = a.OtherCharges.Add(amount)
	return nil
}

// Reprice replaces the base fee. The scholarship percentage floats to the
// new fee on the next recompute; the frozen discount does not, and a frozen
// discount larger than the new fee blocks the re-pricing.
func (a *LedgerAccount) Reprice(newFee Money) error {
	if newFee.IsNegative() {
		return ErrInvalidFee
	}
	if a.Discount.GreaterThan(newFee) {
		return &DiscountExceedsFeeError{AccountID: a.ID, Discount: a.Discount, BaseFee: newFee}
	}
	a.BaseFee = newFee
	return nil
}
