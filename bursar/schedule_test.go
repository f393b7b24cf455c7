package bursar_test

import (
	"testing"
	"time"

	"github.com/meridian/bursar-engine/bursar"
	"github.com/meridian/bursar-engine/ledger"
)

// =============================================================================
// MONTHLY SPLITS
// =============================================================================

func TestBuildSchedule_MonthlySplitsEvenly(t *testing.T) {
	// GIVEN: 1500.00 on a per-month cadence, deadline 2025-12-15
	// WHEN: laying out the schedule
	// THEN: six 250.00 installments, monthly, the last on the deadline

	deadline := ledger.NewDate(2025, time.December, 15)
	plan := bursar.BuildSchedule(ledger.MustMoney("1500.00"), ledger.PaidPerMonth, deadline)

	if len(plan) != 6 {
		t.Fatalf("expected 6 installments, got %d", len(plan))
	}
	for i, inst := range plan {
		if inst.Seq != i+1 {
			t.Errorf("installment %d: expected seq %d, got %d", i, i+1, inst.Seq)
		}
		if !inst.Amount.Equal(ledger.MustMoney("250.00")) {
			t.Errorf("installment %d: expected 250.00, got %s", i, inst.Amount)
		}
	}
	if plan[0].DueAt.String() != "2025-07-15" {
		t.Errorf("expected first installment on 2025-07-15, got %s", plan[0].DueAt)
	}
	if !plan[5].DueAt.Equal(deadline) {
		t.Errorf("expected last installment on the deadline, got %s", plan[5].DueAt)
	}
}

func TestBuildSchedule_RemainderCentsLandOnEarliestInstallments(t *testing.T) {
	// GIVEN: 100.01, which does not divide by six
	// WHEN: splitting monthly
	// THEN: the first five installments carry the extra cent and the parts
	//       sum back to the exact total

	deadline := ledger.NewDate(2025, time.December, 15)
	plan := bursar.BuildSchedule(ledger.MustMoney("100.01"), ledger.PaidPerMonth, deadline)

	if len(plan) != 6 {
		t.Fatalf("expected 6 installments, got %d", len(plan))
	}

	sum := ledger.Money{}
	for _, inst := range plan {
		sum = sum.Add(inst.Amount)
	}
	if !sum.Equal(ledger.MustMoney("100.01")) {
		t.Errorf("installments must sum to the total, got %s", sum)
	}
	for i := 0; i < 5; i++ {
		if !plan[i].Amount.Equal(ledger.MustMoney("16.67")) {
			t.Errorf("installment %d: expected 16.67, got %s", i, plan[i].Amount)
		}
	}
	if !plan[5].Amount.Equal(ledger.MustMoney("16.66")) {
		t.Errorf("last installment: expected 16.66, got %s", plan[5].Amount)
	}
}

// =============================================================================
// OTHER CADENCES
// =============================================================================

func TestBuildSchedule_SingleInstallmentCadences(t *testing.T) {
	deadline := ledger.NewDate(2025, time.December, 15)
	total := ledger.MustMoney("1200.00")

	for _, pt := range []ledger.PaidType{ledger.PaidPerSemester, ledger.PaidPerYear, ledger.PaidOneTime} {
		plan := bursar.BuildSchedule(total, pt, deadline)
		if len(plan) != 1 {
			t.Fatalf("%s: expected 1 installment, got %d", pt, len(plan))
		}
		if !plan[0].Amount.Equal(total) {
			t.Errorf("%s: expected %s, got %s", pt, total, plan[0].Amount)
		}
		if !plan[0].DueAt.Equal(deadline) {
			t.Errorf("%s: expected the deadline, got %s", pt, plan[0].DueAt)
		}
	}
}

func TestBuildSchedule_NothingToSchedule(t *testing.T) {
	// Settled and credit balances have no expected installments.
	deadline := ledger.NewDate(2025, time.December, 15)

	if plan := bursar.BuildSchedule(ledger.Money{}, ledger.PaidPerMonth, deadline); plan != nil {
		t.Errorf("expected no schedule for a zero total, got %d installments", len(plan))
	}
	if plan := bursar.BuildSchedule(ledger.MustMoney("-50.00"), ledger.PaidOneTime, deadline); plan != nil {
		t.Errorf("expected no schedule for a credit balance, got %d installments", len(plan))
	}
}
