package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/meridian/bursar-engine/catalog"
	"github.com/meridian/bursar-engine/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func period(t *testing.T, year string, semester int) ledger.AcademicPeriod {
	t.Helper()
	p, err := ledger.NewPeriod(year, semester)
	if err != nil {
		t.Fatalf("bad test period %s S%d: %v", year, semester, err)
	}
	return p
}

func parseDoc(t *testing.T, doc string) *catalog.FeeSchedule {
	t.Helper()
	s, err := catalog.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return s
}

const sampleDoc = `{
  "name": "Sample",
  "fees": [
    {"department": "engineering", "academic_year": "2025/2026", "semester": 1, "base_fee": "1500.00"},
    {"department": "economics",   "academic_year": "2025/2026", "semester": 1, "base_fee": "1200.50"}
  ],
  "due_dates": [
    {"academic_year": "2025/2026", "semester": 1, "due": "2025-12-15"}
  ]
}`

// =============================================================================
// LOOKUP TESTS
// =============================================================================

func TestFeeSchedule_BaseFee_KnownDepartment(t *testing.T) {
	// GIVEN: A schedule listing engineering at 1500.00 for 2025/2026 S1
	// WHEN: Looking up that department and period
	// THEN: The listed fee comes back

	s := parseDoc(t, sampleDoc)

	fee, err := s.BaseFee(context.Background(), "engineering", period(t, "2025/2026", 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fee.Equal(ledger.MustMoney("1500.00")) {
		t.Errorf("expected 1500.00, got %s", fee)
	}
}

func TestFeeSchedule_BaseFee_UnknownDepartment(t *testing.T) {
	// GIVEN: A schedule without a "law" entry
	// WHEN: Looking up law
	// THEN: ErrFeeScheduleNotFound, never a zero fee

	s := parseDoc(t, sampleDoc)

	_, err := s.BaseFee(context.Background(), "law", period(t, "2025/2026", 1))
	if !errors.Is(err, ledger.ErrFeeScheduleNotFound) {
		t.Fatalf("expected ErrFeeScheduleNotFound, got %v", err)
	}
	if !ledger.IsDependency(err) {
		t.Errorf("fee schedule miss should classify as a dependency error")
	}
}

func TestFeeSchedule_BaseFee_UnknownPeriod(t *testing.T) {
	// GIVEN: A schedule covering only semester 1
	// WHEN: Looking up semester 2 for a listed department
	// THEN: ErrFeeScheduleNotFound

	s := parseDoc(t, sampleDoc)

	_, err := s.BaseFee(context.Background(), "engineering", period(t, "2025/2026", 2))
	if !errors.Is(err, ledger.ErrFeeScheduleNotFound) {
		t.Fatalf("expected ErrFeeScheduleNotFound, got %v", err)
	}
}

func TestFeeSchedule_PaymentDueDate(t *testing.T) {
	// GIVEN: A schedule with a due date for 2025/2026 S1 only
	// WHEN: Looking up S1 and then S2
	// THEN: S1 returns the date, S2 reports ErrDueDateNotFound

	s := parseDoc(t, sampleDoc)

	due, err := s.PaymentDueDate(context.Background(), period(t, "2025/2026", 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if due.String() != "2025-12-15" {
		t.Errorf("expected 2025-12-15, got %s", due)
	}

	_, err = s.PaymentDueDate(context.Background(), period(t, "2025/2026", 2))
	if !errors.Is(err, ledger.ErrDueDateNotFound) {
		t.Fatalf("expected ErrDueDateNotFound, got %v", err)
	}
}

// =============================================================================
// PARSE VALIDATION TESTS
// =============================================================================

func TestParse_RejectsBadDocuments(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"malformed json", `{"fees": [`},
		{"missing department", `{"fees": [{"academic_year": "2025/2026", "semester": 1, "base_fee": "100.00"}]}`},
		{"bad academic year", `{"fees": [{"department": "d", "academic_year": "2025", "semester": 1, "base_fee": "100.00"}]}`},
		{"non-consecutive years", `{"fees": [{"department": "d", "academic_year": "2025/2027", "semester": 1, "base_fee": "100.00"}]}`},
		{"semester out of range", `{"fees": [{"department": "d", "academic_year": "2025/2026", "semester": 3, "base_fee": "100.00"}]}`},
		{"sub-cent fee", `{"fees": [{"department": "d", "academic_year": "2025/2026", "semester": 1, "base_fee": "100.001"}]}`},
		{"negative fee", `{"fees": [{"department": "d", "academic_year": "2025/2026", "semester": 1, "base_fee": "-5.00"}]}`},
		{"duplicate fee entry", `{"fees": [
			{"department": "d", "academic_year": "2025/2026", "semester": 1, "base_fee": "100.00"},
			{"department": "d", "academic_year": "2025/2026", "semester": 1, "base_fee": "200.00"}
		]}`},
		{"bad due date", `{"due_dates": [{"academic_year": "2025/2026", "semester": 1, "due": "15/12/2025"}]}`},
		{"duplicate due date", `{"due_dates": [
			{"academic_year": "2025/2026", "semester": 1, "due": "2025-12-15"},
			{"academic_year": "2025/2026", "semester": 1, "due": "2025-12-20"}
		]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := catalog.Parse([]byte(tc.doc)); err == nil {
				t.Errorf("expected parse error for %s", tc.name)
			}
		})
	}
}

func TestParse_ZeroFeeAllowed(t *testing.T) {
	// GIVEN: A department whose term costs nothing
	// WHEN: Parsing and looking it up
	// THEN: A zero fee is a legitimate catalog value

	s := parseDoc(t, `{"fees": [{"department": "d", "academic_year": "2025/2026", "semester": 1, "base_fee": "0.00"}]}`)

	fee, err := s.BaseFee(context.Background(), "d", period(t, "2025/2026", 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fee.IsZero() {
		t.Errorf("expected zero fee, got %s", fee)
	}
}

// =============================================================================
// LISTING TESTS
// =============================================================================

func TestFeeSchedule_Listings(t *testing.T) {
	// GIVEN: The sample document
	// WHEN: Listing fees and due dates
	// THEN: Every validated entry comes back, normalized

	s := parseDoc(t, sampleDoc)

	fees := s.Fees()
	if len(fees) != 2 {
		t.Fatalf("expected 2 fee entries, got %d", len(fees))
	}
	if fees[1].Department != "economics" || fees[1].BaseFee != "1200.50" {
		t.Errorf("unexpected second entry: %+v", fees[1])
	}

	dues := s.DueDates()
	if len(dues) != 1 {
		t.Fatalf("expected 1 due date entry, got %d", len(dues))
	}
	if dues[0].Due != "2025-12-15" || dues[0].Semester != 1 {
		t.Errorf("unexpected due date entry: %+v", dues[0])
	}
}

// =============================================================================
// PRESET TESTS
// =============================================================================

func TestStandardSchedule(t *testing.T) {
	// GIVEN: The built-in standard schedule for 2025/2026
	// WHEN: Looking up a department and the semester deadlines
	// THEN: Fees and mid-December / mid-June due dates are present

	s, err := catalog.StandardSchedule("2025/2026")
	if err != nil {
		t.Fatalf("standard schedule should parse: %v", err)
	}

	fee, err := s.BaseFee(context.Background(), "engineering", period(t, "2025/2026", 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fee.Equal(ledger.MustMoney("1500.00")) {
		t.Errorf("expected 1500.00, got %s", fee)
	}

	due, err := s.PaymentDueDate(context.Background(), period(t, "2025/2026", 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if due.String() != "2026-06-15" {
		t.Errorf("expected 2026-06-15, got %s", due)
	}
}

func TestFlatScheduleJSON(t *testing.T) {
	// GIVEN: A one-department preset
	// WHEN: Parsing it back
	// THEN: Only that department resolves

	s := parseDoc(t, catalog.FlatScheduleJSON("physics", "2024/2025", 1, "800.00"))

	fee, err := s.BaseFee(context.Background(), "physics", period(t, "2024/2025", 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fee.Equal(ledger.MustMoney("800.00")) {
		t.Errorf("expected 800.00, got %s", fee)
	}

	if _, err := s.BaseFee(context.Background(), "chemistry", period(t, "2024/2025", 1)); !errors.Is(err, ledger.ErrFeeScheduleNotFound) {
		t.Errorf("expected ErrFeeScheduleNotFound for unlisted department, got %v", err)
	}
}
