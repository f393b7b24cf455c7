package ledger

// DeriveStatus is the account status policy. It is evaluated top-down and
// the first matching rule wins:
//
//  1. paid    - balance settled (<= 0) and at least one payment exists
//  2. partial - some payment, but less than the total due
//  3. overdue - unpaid balance and the due date has passed
//  4. pending - everything else (fresh accounts, fully waived accounts,
//               unpaid balance before the due date)
//
// "paid" is not terminal; a reversal can move an account straight back to
// partial, overdue, or pending on the next recompute. A nil due date means
// the calendar has no deadline for the period, so overdue cannot trigger.
func DeriveStatus(totalDue, paidAmount, balance Money, hasPayment bool, dueDate *Date, today Date) AccountStatus {
	settled := balance.IsZero() || balance.IsNegative()

	switch {
	case settled && hasPayment:
		return AccountPaid
	case paidAmount.IsPositive() && paidAmount.LessThan(totalDue):
		return AccountPartial
	case balance.IsPositive() && dueDate != nil && today.After(*dueDate):
		return AccountOverdue
	default:
		return AccountPending
	}
}
