package ledger_test

import (
	"errors"
	"testing"

	"github.com/meridian/bursar-engine/ledger"
)

// =============================================================================
// DISCOUNTS - frozen amounts
// =============================================================================
// Fixture helpers live in account_test.go.

func TestApplyDiscountAmount(t *testing.T) {
	acc := newTestAccount(t, "1000.00")

	if err := acc.ApplyDiscountAmount(ledger.MustMoney("150.00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acc.Discount.Equal(ledger.MustMoney("150.00")) {
		t.Errorf("expected discount 150.00, got %s", acc.Discount)
	}
	if !acc.TotalDue().Equal(ledger.MustMoney("850.00")) {
		t.Errorf("expected total due 850.00, got %s", acc.TotalDue())
	}
}

func TestApplyDiscountAmount_ExceedingFeeLeavesAccountUntouched(t *testing.T) {
	// GIVEN: a 1000.00 fee with an existing 150.00 discount
	// WHEN: applying a 1200.00 discount
	// THEN: the call fails and the prior discount survives

	acc := newTestAccount(t, "1000.00")
	if err := acc.ApplyDiscountAmount(ledger.MustMoney("150.00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := acc.ApplyDiscountAmount(ledger.MustMoney("1200.00"))
	if !errors.Is(err, ledger.ErrDiscountExceedsFee) {
		t.Fatalf("expected ErrDiscountExceedsFee, got %v", err)
	}

	var exceeds *ledger.DiscountExceedsFeeError
	if !errors.As(err, &exceeds) {
		t.Fatalf("expected DiscountExceedsFeeError, got %T", err)
	}
	if !exceeds.Discount.Equal(ledger.MustMoney("1200.00")) || !exceeds.BaseFee.Equal(ledger.MustMoney("1000.00")) {
		t.Errorf("error should carry the rejected amounts, got %v", exceeds)
	}
	if !acc.Discount.Equal(ledger.MustMoney("150.00")) {
		t.Errorf("rejected discount should leave the account unchanged, got %s", acc.Discount)
	}
}

func TestApplyDiscountAmount_RejectsNegative(t *testing.T) {
	acc := newTestAccount(t, "1000.00")
	if err := acc.ApplyDiscountAmount(ledger.MustMoney("-10.00")); !errors.Is(err, ledger.ErrInvalidFee) {
		t.Errorf("expected ErrInvalidFee, got %v", err)
	}
}

func TestApplyDiscountPercent_FreezesTheAmount(t *testing.T) {
	// GIVEN: a 25% discount applied against a 1000.00 fee
	// WHEN: the fee is later re-priced to 2000.00
	// THEN: the discount stays 250.00; the percentage was forgotten on apply

	acc := newTestAccount(t, "1000.00")
	if err := acc.ApplyDiscountPercent(pct("25")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acc.Discount.Equal(ledger.MustMoney("250.00")) {
		t.Errorf("expected discount 250.00, got %s", acc.Discount)
	}

	if err := acc.Reprice(ledger.MustMoney("2000.00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acc.Discount.Equal(ledger.MustMoney("250.00")) {
		t.Errorf("frozen discount should not track the fee, got %s", acc.Discount)
	}
}

func TestApplyDiscountPercent_RejectsOutOfRange(t *testing.T) {
	acc := newTestAccount(t, "1000.00")

	for _, p := range []string{"-1", "100.01", "250"} {
		if err := acc.ApplyDiscountPercent(pct(p)); !errors.Is(err, ledger.ErrInvalidPercentage) {
			t.Errorf("expected ErrInvalidPercentage for %s%%, got %v", p, err)
		}
	}
	if !acc.Discount.IsZero() {
		t.Errorf("rejected percent should leave the account unchanged, got %s", acc.Discount)
	}
}

// =============================================================================
// SCHOLARSHIPS - floating percentages
// =============================================================================

func TestApplyScholarship_FloatsWithRepricing(t *testing.T) {
	// GIVEN: a 10% scholarship on a 1000.00 fee
	// WHEN: the fee is re-priced to 1200.00
	// THEN: the scholarship amount re-derives to 120.00

	acc := newTestAccount(t, "1000.00")
	if err := acc.ApplyScholarship(pct("10")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acc.ScholarshipAmount().Equal(ledger.MustMoney("100.00")) {
		t.Errorf("expected scholarship 100.00, got %s", acc.ScholarshipAmount())
	}

	if err := acc.Reprice(ledger.MustMoney("1200.00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acc.ScholarshipAmount().Equal(ledger.MustMoney("120.00")) {
		t.Errorf("expected scholarship 120.00 after re-pricing, got %s", acc.ScholarshipAmount())
	}
	if !acc.TotalDue().Equal(ledger.MustMoney("1080.00")) {
		t.Errorf("expected total due 1080.00, got %s", acc.TotalDue())
	}
}

func TestApplyScholarship_RangeBounds(t *testing.T) {
	acc := newTestAccount(t, "1000.00")

	// 0 and 100 are both inside the closed range.
	if err := acc.ApplyScholarship(pct("100")); err != nil {
		t.Errorf("unexpected error for 100%%: %v", err)
	}
	if !acc.TotalDue().IsZero() {
		t.Errorf("expected zero due at full scholarship, got %s", acc.TotalDue())
	}
	if err := acc.ApplyScholarship(pct("0")); err != nil {
		t.Errorf("unexpected error for 0%%: %v", err)
	}

	if err := acc.ApplyScholarship(pct("120")); !errors.Is(err, ledger.ErrInvalidPercentage) {
		t.Errorf("expected ErrInvalidPercentage for 120%%, got %v", err)
	}
	if err := acc.ApplyScholarship(pct("-5")); !errors.Is(err, ledger.ErrInvalidPercentage) {
		t.Errorf("expected ErrInvalidPercentage for -5%%, got %v", err)
	}
	if !acc.ScholarshipPercent.IsZero() {
		t.Errorf("rejected percent should leave the stored value, got %s", acc.ScholarshipPercent)
	}
}

// =============================================================================
// FORWARDED BALANCES AND CHARGES
// =============================================================================

func TestApplyForwarded_ReplacesNotAccumulates(t *testing.T) {
	// There is exactly one predecessor period, so a second apply overwrites.
	acc := newTestAccount(t, "1000.00")

	acc.ApplyForwarded(ledger.MustMoney("200.00"))
	acc.ApplyForwarded(ledger.MustMoney("-50.00"))

	if !acc.Forwarded.Equal(ledger.MustMoney("-50.00")) {
		t.Errorf("expected forwarded -50.00, got %s", acc.Forwarded)
	}
	if !acc.TotalDue().Equal(ledger.MustMoney("950.00")) {
		t.Errorf("expected total due 950.00, got %s", acc.TotalDue())
	}
}

func TestAddCharge_Accumulates(t *testing.T) {
	acc := newTestAccount(t, "1000.00")

	if err := acc.AddCharge(ledger.MustMoney("100.00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := acc.AddCharge(ledger.MustMoney("50.00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acc.OtherCharges.Equal(ledger.MustMoney("150.00")) {
		t.Errorf("expected charges 150.00, got %s", acc.OtherCharges)
	}

	if err := acc.AddCharge(ledger.MustMoney("-10.00")); !errors.Is(err, ledger.ErrInvalidFee) {
		t.Errorf("expected ErrInvalidFee for negative charge, got %v", err)
	}
	if !acc.OtherCharges.Equal(ledger.MustMoney("150.00")) {
		t.Errorf("rejected charge should leave the total, got %s", acc.OtherCharges)
	}
}

// =============================================================================
// RE-PRICING
// =============================================================================

func TestReprice_BlockedWhenFrozenDiscountWouldExceedNewFee(t *testing.T) {
	// GIVEN: an 800.00 frozen discount on a 1000.00 fee
	// WHEN: re-pricing down to 500.00
	// THEN: the re-pricing fails and the fee stays 1000.00

	acc := newTestAccount(t, "1000.00")
	if err := acc.ApplyDiscountAmount(ledger.MustMoney("800.00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := acc.Reprice(ledger.MustMoney("500.00"))
	if !errors.Is(err, ledger.ErrDiscountExceedsFee) {
		t.Fatalf("expected ErrDiscountExceedsFee, got %v", err)
	}
	if !acc.BaseFee.Equal(ledger.MustMoney("1000.00")) {
		t.Errorf("blocked re-pricing should leave the fee, got %s", acc.BaseFee)
	}
}

func TestReprice_RejectsNegativeFee(t *testing.T) {
	acc := newTestAccount(t, "1000.00")
	if err := acc.Reprice(ledger.MustMoney("-100.00")); !errors.Is(err, ledger.ErrInvalidFee) {
		t.Errorf("expected ErrInvalidFee, got %v", err)
	}
}
