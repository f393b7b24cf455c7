/*
presets.go - Built-in Fee Schedule Documents

Factory functions that build JSON schedule documents for demos and tests.
They construct the same document shape Parse accepts, so callers can feed
the output straight back through Parse or ship it to an operator as a
starting point for a real schedule file.

USAGE:
  doc := catalog.StandardScheduleJSON("2025/2026")
  schedule, err := catalog.Parse([]byte(doc))

SEE ALSO:
  - catalog.go: document schema and parser
  - cmd/server/main.go: falls back to the standard schedule when no file is given
*/
package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// StandardScheduleJSON returns a schedule document covering both semesters
// of one academic year for a handful of departments, with due dates in
// mid-December and mid-June.
func StandardScheduleJSON(academicYear string) string {
	doc := ScheduleJSON{
		Name: fmt.Sprintf("Standard %s", academicYear),
		Fees: []FeeJSON{
			{Department: "engineering", AcademicYear: academicYear, Semester: 1, BaseFee: "1500.00"},
			{Department: "engineering", AcademicYear: academicYear, Semester: 2, BaseFee: "1500.00"},
			{Department: "economics", AcademicYear: academicYear, Semester: 1, BaseFee: "1200.00"},
			{Department: "economics", AcademicYear: academicYear, Semester: 2, BaseFee: "1200.00"},
			{Department: "medicine", AcademicYear: academicYear, Semester: 1, BaseFee: "2500.00"},
			{Department: "medicine", AcademicYear: academicYear, Semester: 2, BaseFee: "2500.00"},
		},
		DueDates: dueDatesFor(academicYear),
	}
	b, _ := json.MarshalIndent(doc, "", "  ")
	return string(b)
}

// FlatScheduleJSON returns a minimal one-department schedule. Handy for
// tests that only need a single fee on the books.
func FlatScheduleJSON(department, academicYear string, semester int, baseFee string) string {
	doc := ScheduleJSON{
		Name: fmt.Sprintf("Flat %s %s", department, academicYear),
		Fees: []FeeJSON{
			{Department: department, AcademicYear: academicYear, Semester: semester, BaseFee: baseFee},
		},
		DueDates: dueDatesFor(academicYear),
	}
	b, _ := json.MarshalIndent(doc, "", "  ")
	return string(b)
}

// StandardSchedule parses the standard document. Errors only on a malformed
// academic year string.
func StandardSchedule(academicYear string) (*FeeSchedule, error) {
	return Parse([]byte(StandardScheduleJSON(academicYear)))
}

// dueDatesFor derives the semester deadlines from the first calendar year of
// the academic year string. A year it cannot read yields no due dates; the
// schedule still parses and accounts simply never go overdue.
func dueDatesFor(academicYear string) []DueDateJSON {
	if len(academicYear) < 4 {
		return nil
	}
	start, err := strconv.Atoi(academicYear[:4])
	if err != nil {
		return nil
	}
	return []DueDateJSON{
		{AcademicYear: academicYear, Semester: 1, Due: fmt.Sprintf("%d-12-15", start)},
		{AcademicYear: academicYear, Semester: 2, Due: fmt.Sprintf("%d-06-15", start+1)},
	}
}
