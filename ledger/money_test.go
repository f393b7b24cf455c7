package ledger_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/meridian/bursar-engine/ledger"
)

// =============================================================================
// PARSING
// =============================================================================

func TestParseMoney_AcceptsBoundaryForms(t *testing.T) {
	// GIVEN: the decimal-string forms money takes on the wire
	// WHEN: parsing each
	// THEN: every value normalizes to exactly two places

	cases := []struct {
		in   string
		want string
	}{
		{"1500", "1500.00"},
		{"1500.5", "1500.50"},
		{"1500.50", "1500.50"},
		{"0", "0.00"},
		{"-25.00", "-25.00"},
	}

	for _, c := range cases {
		m, err := ledger.ParseMoney(c.in)
		if err != nil {
			t.Fatalf("ParseMoney(%q): unexpected error: %v", c.in, err)
		}
		if m.String() != c.want {
			t.Errorf("ParseMoney(%q) = %s, want %s", c.in, m, c.want)
		}
	}
}

func TestParseMoney_RejectsSubCentPrecision(t *testing.T) {
	// GIVEN: an amount with more than two decimal places
	// WHEN: parsing it
	// THEN: the parse fails instead of silently rounding

	if _, err := ledger.ParseMoney("10.123"); err == nil {
		t.Error("expected error for 10.123, got none")
	}
}

func TestParseMoney_RejectsGarbage(t *testing.T) {
	for _, in := range []string{"abc", "", "1.2.3", "12,50"} {
		if _, err := ledger.ParseMoney(in); err == nil {
			t.Errorf("expected error for %q, got none", in)
		}
	}
}

func TestMoney_ZeroValueIsUsable(t *testing.T) {
	var m ledger.Money
	if !m.IsZero() {
		t.Error("zero value should report IsZero")
	}
	if m.String() != "0.00" {
		t.Errorf("expected 0.00, got %s", m)
	}
}

// =============================================================================
// ARITHMETIC
// =============================================================================

func TestMoney_SignedArithmetic(t *testing.T) {
	// GIVEN: 100.00 and 150.00
	// WHEN: subtracting the larger from the smaller
	// THEN: the result stays negative; nothing clamps to zero

	a := ledger.MustMoney("100.00")
	b := ledger.MustMoney("150.00")

	diff := a.Sub(b)
	if !diff.IsNegative() {
		t.Error("expected negative difference")
	}
	if diff.String() != "-50.00" {
		t.Errorf("expected -50.00, got %s", diff)
	}
	if diff.Neg().String() != "50.00" {
		t.Errorf("expected 50.00, got %s", diff.Neg())
	}
	if got := a.Add(b); got.String() != "250.00" {
		t.Errorf("expected 250.00, got %s", got)
	}
}

func TestMoney_Comparisons(t *testing.T) {
	a := ledger.MustMoney("100")
	b := ledger.MustMoney("100.00")
	c := ledger.MustMoney("100.01")

	if !a.Equal(b) {
		t.Error("100 and 100.00 should be equal")
	}
	if !c.GreaterThan(a) {
		t.Error("100.01 should be greater than 100.00")
	}
	if !a.LessThan(c) {
		t.Error("100.00 should be less than 100.01")
	}
	if a.IsNegative() || !a.IsPositive() {
		t.Error("100.00 should be positive")
	}
}

// =============================================================================
// PERCENTAGES - half-up rounding
// =============================================================================

func TestApplyPercent_RoundsHalfUp(t *testing.T) {
	// GIVEN: percentage applications whose raw product lands on a half cent
	// WHEN: applying the percentage
	// THEN: the half cent rounds up, to two places

	cases := []struct {
		base    string
		percent string
		want    string
	}{
		{"1000.00", "10", "100.00"},
		{"0.25", "50", "0.13"},     // 0.125 -> 0.13
		{"1001.00", "12.5", "125.13"}, // 125.125 -> 125.13
		{"333.33", "7.5", "25.00"},    // 24.99975 -> 25.00
		{"1000.00", "0", "0.00"},
		{"1000.00", "100", "1000.00"},
	}

	for _, c := range cases {
		base := ledger.MustMoney(c.base)
		pct := decimal.RequireFromString(c.percent)
		got := base.ApplyPercent(pct)
		if got.String() != c.want {
			t.Errorf("%s at %s%% = %s, want %s", c.base, c.percent, got, c.want)
		}
	}
}

// =============================================================================
// MINOR UNITS
// =============================================================================

func TestMoney_MinorUnitsRoundTrip(t *testing.T) {
	if got := ledger.MustMoney("1500.00").MinorUnits(); got != 150000 {
		t.Errorf("expected 150000 minor units, got %d", got)
	}
	if got := ledger.MustMoney("-25.00").MinorUnits(); got != -2500 {
		t.Errorf("expected -2500 minor units, got %d", got)
	}
	if got := ledger.MoneyFromMinorUnits(150000); got.String() != "1500.00" {
		t.Errorf("expected 1500.00, got %s", got)
	}
	if got := ledger.MoneyFromMinorUnits(1); got.String() != "0.01" {
		t.Errorf("expected 0.01, got %s", got)
	}
}

// =============================================================================
// JSON - quoted decimal strings only
// =============================================================================

func TestMoney_JSONIsQuotedString(t *testing.T) {
	// GIVEN: a money value
	// WHEN: marshaling and unmarshaling
	// THEN: the wire form is a quoted two-place string, never a JSON number

	b, err := json.Marshal(ledger.MustMoney("1500.5"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != `"1500.50"` {
		t.Errorf(`expected "1500.50", got %s`, b)
	}

	var m ledger.Money
	if err := json.Unmarshal([]byte(`"42.75"`), &m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.Equal(ledger.MustMoney("42.75")) {
		t.Errorf("expected 42.75, got %s", m)
	}
}

func TestMoney_JSONRejectsNumbers(t *testing.T) {
	// A bare JSON number would have passed through float64 somewhere upstream.
	var m ledger.Money
	if err := json.Unmarshal([]byte(`1500.50`), &m); err == nil {
		t.Error("expected error for unquoted number, got none")
	}
	if err := json.Unmarshal([]byte(`"10.123"`), &m); err == nil {
		t.Error("expected error for sub-cent precision, got none")
	}
}
