package ledger

import (
	"fmt"
	"strconv"
	"strings"
)

// semestersPerYear fixes the academic calendar shape: two semesters per
// academic year. Rollover arithmetic depends on it.
const semestersPerYear = 2

// AcademicPeriod identifies one term of one academic year, e.g.
// {"2025/2026", 1}. It is the unit of account scoping and payment
// aggregation.
type AcademicPeriod struct {
	Year     string `json:"academic_year"`
	Semester int    `json:"semester"`
}

// NewPeriod validates and builds an academic period. The year must be of the
// form "2025/2026" with consecutive years; the semester must be 1 or 2.
func NewPeriod(year string, semester int) (AcademicPeriod, error) {
	if err := validateAcademicYear(year); err != nil {
		return AcademicPeriod{}, err
	}
	if semester < 1 || semester > semestersPerYear {
		return AcademicPeriod{}, fmt.Errorf("semester must be between 1 and %d, got %d", semestersPerYear, semester)
	}
	return AcademicPeriod{Year: year, Semester: semester}, nil
}

func validateAcademicYear(year string) error {
	parts := strings.Split(year, "/")
	if len(parts) != 2 {
		return fmt.Errorf("academic year must look like \"2025/2026\", got %q", year)
	}
	first, err := strconv.Atoi(parts[0])
	if err != nil {
		return fmt.Errorf("academic year must look like \"2025/2026\", got %q", year)
	}
	second, err := strconv.Atoi(parts[1])
	if err != nil {
		return fmt.Errorf("academic year must look like \"2025/2026\", got %q", year)
	}
	if second != first+1 {
		return fmt.Errorf("academic year %q: years must be consecutive", year)
	}
	return nil
}

// Next returns the period that follows: semester 1 -> semester 2 of the same
// year, semester 2 -> semester 1 of the next academic year.
func (p AcademicPeriod) Next() (AcademicPeriod, error) {
	if p.Semester < semestersPerYear {
		return AcademicPeriod{Year: p.Year, Semester: p.Semester + 1}, nil
	}
	first, err := strconv.Atoi(strings.SplitN(p.Year, "/", 2)[0])
	if err != nil {
		return AcademicPeriod{}, fmt.Errorf("academic year %q: %w", p.Year, err)
	}
	return AcademicPeriod{
		Year:     fmt.Sprintf("%d/%d", first+1, first+2),
		Semester: 1,
	}, nil
}

// Before orders periods chronologically.
func (p AcademicPeriod) Before(o AcademicPeriod) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Semester < o.Semester
}

func (p AcademicPeriod) Equal(o AcademicPeriod) bool {
	return p.Year == o.Year && p.Semester == o.Semester
}

func (p AcademicPeriod) IsZero() bool {
	return p.Year == "" && p.Semester == 0
}

// Key is the canonical map/storage key, e.g. "2025/2026-S1".
func (p AcademicPeriod) Key() string {
	return fmt.Sprintf("%s-S%d", p.Year, p.Semester)
}

func (p AcademicPeriod) String() string {
	return fmt.Sprintf("%s semester %d", p.Year, p.Semester)
}
