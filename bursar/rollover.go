/*
rollover.go - Term close-out and carry-forward

PURPOSE:
  When a student is promoted into the next term, the current account is
  closed and its closing balance travels into the successor account as the
  signed forwarded amount: unpaid balance becomes inherited debt,
  overpayment becomes inherited credit.

ONE TRANSACTION:
  Deactivating the source, creating the successor, and stamping the
  carry-forward commit together. A failure at any point leaves the source
  account open and untouched.

WHAT DOES NOT CARRY:
  Discounts and scholarships are per-term decisions and start clean on the
  successor; re-apply them explicitly if they continue. The journal is keyed
  by (student, period), so payments never move between terms.
*/
package bursar

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/meridian/bursar-engine/ledger"
)

type RolloverInput struct {
	AccountID ledger.AccountID

	// BaseFee nil means the successor inherits the source account's base
	// fee. Re-price afterwards if the new term costs differently.
	BaseFee *ledger.Money
}

// Rollover closes a term account and opens the next term's account with the
// closing balance forwarded. Fails if the source is already deactivated or
// the successor key is taken.
func (s *Service) Rollover(ctx context.Context, in RolloverInput) (ledger.Snapshot, error) {
	var snap ledger.Snapshot
	err := s.retry(func() error {
		return s.Store.WithTx(ctx, func(st ledger.Store) error {
			source, err := st.Account(ctx, in.AccountID)
			if err != nil {
				return err
			}
			if !source.Active {
				return fmt.Errorf("rollover of %s: %w", in.AccountID, ledger.ErrInactiveAccount)
			}

			next, err := source.Period.Next()
			if err != nil {
				return err
			}

			now := s.timeNow()
			closing, err := s.recomputeIn(ctx, st, source, now)
			if err != nil {
				return err
			}

			source.Deactivate()
			source.UpdatedAt = now
			if err := st.UpdateAccount(ctx, source); err != nil {
				return err
			}

			fee := source.BaseFee
			if in.BaseFee != nil {
				fee = *in.BaseFee
			}
			successor, err := ledger.NewAccount(ledger.AccountID(uuid.NewString()), source.StudentID, next, fee, source.PaidType, now)
			if err != nil {
				return err
			}
			successor.ApplyForwarded(closing.Balance)
			if err := st.CreateAccount(ctx, successor); err != nil {
				return err
			}

			snap, err = s.recomputeIn(ctx, st, successor, now)
			if err != nil {
				return err
			}
			return st.AppendAudit(ctx, s.auditEntry(ctx, ledger.AuditAccountRolledOver, successor, map[string]any{
				"from_account": string(source.ID),
				"from_period":  source.Period.Key(),
				"to_period":    next.Key(),
				"forwarded":    closing.Balance.String(),
			}, now))
		})
	})
	return snap, err
}
