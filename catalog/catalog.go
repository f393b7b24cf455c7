/*
Package catalog provides the JSON-configured fee schedule and academic
calendar.

PURPOSE:
  Converts a JSON schedule document into the pricing and deadline lookups
  the bursar service consumes. This keeps fee changes out of code: the
  registrar edits a JSON document, and the engine prices accounts from it.

JSON SCHEMA:
  {
    "name": "2025/2026 fee schedule",
    "fees": [
      {"department": "ENG", "academic_year": "2025/2026", "semester": 1, "base_fee": "1500.00"},
      {"department": "BUS", "academic_year": "2025/2026", "semester": 1, "base_fee": "1200.00"}
    ],
    "due_dates": [
      {"academic_year": "2025/2026", "semester": 1, "due": "2025-10-31"}
    ]
  }

LOOKUP CONTRACT:
  A missing fee entry is ledger.ErrFeeScheduleNotFound and a missing due
  date is ledger.ErrDueDateNotFound. The catalog never answers a miss with
  zero; pricing an account from a hole in the schedule would corrupt every
  figure derived from it.

USAGE:
  schedule, err := catalog.Load("./fees.json")
  fee, err := schedule.BaseFee(ctx, "ENG", period)

SEE ALSO:
  - presets.go: built-in demo schedule
  - bursar/collaborators.go: the interfaces this package implements
*/
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/meridian/bursar-engine/bursar"
	"github.com/meridian/bursar-engine/ledger"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ScheduleJSON is the JSON representation of a fee schedule document.
type ScheduleJSON struct {
	Name     string        `json:"name,omitempty"`
	Fees     []FeeJSON     `json:"fees"`
	DueDates []DueDateJSON `json:"due_dates,omitempty"`
}

type FeeJSON struct {
	Department   string `json:"department"`
	AcademicYear string `json:"academic_year"`
	Semester     int    `json:"semester"`
	BaseFee      string `json:"base_fee"`
}

type DueDateJSON struct {
	AcademicYear string `json:"academic_year"`
	Semester     int    `json:"semester"`
	Due          string `json:"due"`
}

// =============================================================================
// FEE SCHEDULE
// =============================================================================

type feeKey struct {
	department string
	period     string
}

// FeeSchedule answers base-fee and due-date lookups from a parsed document.
// Immutable after parse; safe for concurrent readers.
type FeeSchedule struct {
	Name     string
	fees     map[feeKey]ledger.Money
	dueDates map[string]ledger.Date

	// normalized copies of the source entries, for boundary reads
	feeList []FeeJSON
	dueList []DueDateJSON
}

// Parse validates a JSON schedule document and builds the lookup tables.
func Parse(data []byte) (*FeeSchedule, error) {
	var doc ScheduleJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse fee schedule: %w", err)
	}
	return FromJSON(doc)
}

// Load reads and parses a schedule document from disk.
func Load(path string) (*FeeSchedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fee schedule %s: %w", path, err)
	}
	return Parse(data)
}

// FromJSON builds a FeeSchedule from the already-decoded document.
func FromJSON(doc ScheduleJSON) (*FeeSchedule, error) {
	s := &FeeSchedule{
		Name:     doc.Name,
		fees:     make(map[feeKey]ledger.Money, len(doc.Fees)),
		dueDates: make(map[string]ledger.Date, len(doc.DueDates)),
	}

	for i, f := range doc.Fees {
		if f.Department == "" {
			return nil, fmt.Errorf("fee entry %d: missing department", i)
		}
		period, err := ledger.NewPeriod(f.AcademicYear, f.Semester)
		if err != nil {
			return nil, fmt.Errorf("fee entry %d: %w", i, err)
		}
		fee, err := ledger.ParseMoney(f.BaseFee)
		if err != nil {
			return nil, fmt.Errorf("fee entry %d: %w", i, err)
		}
		if fee.IsNegative() {
			return nil, fmt.Errorf("fee entry %d: %w", i, ledger.ErrInvalidFee)
		}
		k := feeKey{department: f.Department, period: period.Key()}
		if _, dup := s.fees[k]; dup {
			return nil, fmt.Errorf("fee entry %d: duplicate entry for %s %s", i, f.Department, period.Key())
		}
		s.fees[k] = fee
		s.feeList = append(s.feeList, FeeJSON{
			Department:   f.Department,
			AcademicYear: period.Year,
			Semester:     period.Semester,
			BaseFee:      fee.String(),
		})
	}

	for i, d := range doc.DueDates {
		period, err := ledger.NewPeriod(d.AcademicYear, d.Semester)
		if err != nil {
			return nil, fmt.Errorf("due date entry %d: %w", i, err)
		}
		due, err := ledger.ParseDate(d.Due)
		if err != nil {
			return nil, fmt.Errorf("due date entry %d: %w", i, err)
		}
		if _, dup := s.dueDates[period.Key()]; dup {
			return nil, fmt.Errorf("due date entry %d: duplicate entry for %s", i, period.Key())
		}
		s.dueDates[period.Key()] = due
		s.dueList = append(s.dueList, DueDateJSON{
			AcademicYear: period.Year,
			Semester:     period.Semester,
			Due:          due.String(),
		})
	}

	return s, nil
}

// BaseFee looks up the price of a department's term.
func (s *FeeSchedule) BaseFee(_ context.Context, departmentID string, period ledger.AcademicPeriod) (ledger.Money, error) {
	fee, ok := s.fees[feeKey{department: departmentID, period: period.Key()}]
	if !ok {
		return ledger.Money{}, fmt.Errorf("department %s, %s: %w", departmentID, period, ledger.ErrFeeScheduleNotFound)
	}
	return fee, nil
}

// PaymentDueDate looks up the payment deadline of a term.
func (s *FeeSchedule) PaymentDueDate(_ context.Context, period ledger.AcademicPeriod) (ledger.Date, error) {
	due, ok := s.dueDates[period.Key()]
	if !ok {
		return ledger.Date{}, fmt.Errorf("%s: %w", period, ledger.ErrDueDateNotFound)
	}
	return due, nil
}

// Fees lists every fee entry, for boundary reads.
func (s *FeeSchedule) Fees() []FeeJSON {
	return append([]FeeJSON(nil), s.feeList...)
}

// DueDates lists every calendar entry, for boundary reads.
func (s *FeeSchedule) DueDates() []DueDateJSON {
	return append([]DueDateJSON(nil), s.dueList...)
}

var (
	_ bursar.Catalog  = (*FeeSchedule)(nil)
	_ bursar.Calendar = (*FeeSchedule)(nil)
)
