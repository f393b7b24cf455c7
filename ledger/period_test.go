package ledger_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/meridian/bursar-engine/ledger"
)

// =============================================================================
// ACADEMIC PERIOD VALIDATION
// =============================================================================

func TestNewPeriod_ValidatesYearAndSemester(t *testing.T) {
	// GIVEN: well-formed and malformed (year, semester) pairs
	// WHEN: building a period from each
	// THEN: only consecutive "NNNN/NNNN" years with semester 1 or 2 pass

	p, err := ledger.NewPeriod("2025/2026", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Year != "2025/2026" || p.Semester != 1 {
		t.Errorf("expected 2025/2026 semester 1, got %v", p)
	}

	bad := []struct {
		year     string
		semester int
	}{
		{"2025-2026", 1}, // wrong separator
		{"2025/2027", 1}, // not consecutive
		{"2025", 1},
		{"abcd/efgh", 1},
		{"2025/2026", 0},
		{"2025/2026", 3},
	}
	for _, c := range bad {
		if _, err := ledger.NewPeriod(c.year, c.semester); err == nil {
			t.Errorf("expected error for %q semester %d, got none", c.year, c.semester)
		}
	}
}

// =============================================================================
// PERIOD SUCCESSION - rollover arithmetic depends on this
// =============================================================================

func TestPeriodNext_AdvancesWithinAndAcrossYears(t *testing.T) {
	// GIVEN: semester 1 of 2025/2026
	// WHEN: advancing twice
	// THEN: first to semester 2 of the same year, then to semester 1 of 2026/2027

	s1 := ledger.AcademicPeriod{Year: "2025/2026", Semester: 1}

	s2, err := s1.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s2.Year != "2025/2026" || s2.Semester != 2 {
		t.Errorf("expected 2025/2026 semester 2, got %v", s2)
	}

	next, err := s2.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.Year != "2026/2027" || next.Semester != 1 {
		t.Errorf("expected 2026/2027 semester 1, got %v", next)
	}
}

func TestPeriodOrdering(t *testing.T) {
	prior := ledger.AcademicPeriod{Year: "2024/2025", Semester: 2}
	s1 := ledger.AcademicPeriod{Year: "2025/2026", Semester: 1}
	s2 := ledger.AcademicPeriod{Year: "2025/2026", Semester: 2}

	if !prior.Before(s1) {
		t.Error("2024/2025 S2 should sort before 2025/2026 S1")
	}
	if !s1.Before(s2) {
		t.Error("semester 1 should sort before semester 2")
	}
	if s1.Before(s1) {
		t.Error("a period should not sort before itself")
	}
	if !s1.Equal(ledger.AcademicPeriod{Year: "2025/2026", Semester: 1}) {
		t.Error("identical periods should be equal")
	}
	if !(ledger.AcademicPeriod{}).IsZero() {
		t.Error("empty period should report IsZero")
	}
}

func TestPeriodRendering(t *testing.T) {
	p := ledger.AcademicPeriod{Year: "2025/2026", Semester: 1}
	if p.Key() != "2025/2026-S1" {
		t.Errorf("expected key 2025/2026-S1, got %s", p.Key())
	}
	if p.String() != "2025/2026 semester 1" {
		t.Errorf("unexpected rendering: %s", p)
	}
}

// =============================================================================
// DATES - day granularity, UTC
// =============================================================================

func TestDate_NormalizesToUTCMidnight(t *testing.T) {
	// GIVEN: an instant late in the evening in a non-UTC zone
	// WHEN: truncating it to a date
	// THEN: the date is the UTC calendar day of that instant

	zone := time.FixedZone("UTC+7", 7*60*60)
	instant := time.Date(2025, time.September, 20, 2, 30, 0, 0, zone) // 19:30 UTC on the 19th

	d := ledger.DateOf(instant)
	if d.String() != "2025-09-19" {
		t.Errorf("expected 2025-09-19, got %s", d)
	}
	if got := d.Time(); got.Hour() != 0 || got.Location() != time.UTC {
		t.Errorf("expected UTC midnight, got %v", got)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ledger.ParseDate("2025-12-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Equal(ledger.NewDate(2025, time.December, 15)) {
		t.Errorf("expected 2025-12-15, got %s", d)
	}

	for _, in := range []string{"15/12/2025", "2025-13-01", "yesterday", ""} {
		if _, err := ledger.ParseDate(in); err == nil {
			t.Errorf("expected error for %q, got none", in)
		}
	}
}

func TestDate_CalendarArithmetic(t *testing.T) {
	d := ledger.NewDate(2025, time.December, 15)

	if got := d.AddDays(20); got.String() != "2026-01-04" {
		t.Errorf("expected 2026-01-04, got %s", got)
	}
	if got := d.AddMonths(-5); got.String() != "2025-07-15" {
		t.Errorf("expected 2025-07-15, got %s", got)
	}
	if !ledger.NewDate(2025, time.December, 16).After(d) {
		t.Error("the 16th should be after the 15th")
	}
	if !d.Before(ledger.NewDate(2025, time.December, 16)) {
		t.Error("the 15th should be before the 16th")
	}
}

func TestDate_JSONForm(t *testing.T) {
	b, err := json.Marshal(ledger.NewDate(2025, time.December, 15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != `"2025-12-15"` {
		t.Errorf(`expected "2025-12-15", got %s`, b)
	}

	var d ledger.Date
	if err := json.Unmarshal([]byte(`"2025-09-20"`), &d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Equal(ledger.NewDate(2025, time.September, 20)) {
		t.Errorf("expected 2025-09-20, got %s", d)
	}
	if err := json.Unmarshal([]byte(`"not-a-date"`), &d); err == nil {
		t.Error("expected error for malformed date, got none")
	}
}
