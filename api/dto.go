/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY ON THE WIRE:
  All monetary values travel as decimal strings ("1500.00"), never as JSON
  numbers. Binary floats must not touch amounts; parsing happens exactly
  once, at the boundary, through ledger.ParseMoney.

VALIDATION:
  Request structs carry go-playground/validator tags. Handlers run
  validate.Struct right after decoding; domain rules (fee >= 0, percent
  range, closed enums) stay in the ledger package and are NOT duplicated
  here - the tags only catch shape problems early.

SEE ALSO:
  - handlers.go: decodes and validates these types
  - ledger/types.go: the domain model they project
*/
package api

import (
	"time"

	"github.com/meridian/bursar-engine/ledger"
)

// =============================================================================
// STUDENT TYPES
// =============================================================================

// StudentDTO represents a student directory record in API responses.
type StudentDTO struct {
	ID           string `json:"id"`
	FullName     string `json:"full_name"`
	FacultyID    string `json:"faculty_id,omitempty"`
	DepartmentID string `json:"department_id"`
	AcademicYear string `json:"academic_year"`
	Semester     int    `json:"semester"`
	Active       bool   `json:"active"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// RegisterStudentRequest is the request to register a student.
type RegisterStudentRequest struct {
	ID           string `json:"id"`
	FullName     string `json:"full_name" validate:"required"`
	FacultyID    string `json:"faculty_id"`
	DepartmentID string `json:"department_id" validate:"required"`
	AcademicYear string `json:"academic_year" validate:"required"`
	Semester     int    `json:"semester" validate:"required,min=1,max=2"`
}

// =============================================================================
// ACCOUNT TYPES
// =============================================================================

// AccountDTO is the fully derived view of one ledger account: the stored
// facts plus every recomputed figure.
type AccountDTO struct {
	ID           string `json:"id"`
	StudentID    string `json:"student_id"`
	AcademicYear string `json:"academic_year"`
	Semester     int    `json:"semester"`

	BaseFee            string `json:"base_fee"`
	OtherCharges       string `json:"other_charges"`
	Discount           string `json:"discount"`
	ScholarshipPercent string `json:"scholarship_percent"`
	ScholarshipAmount  string `json:"scholarship_amount"`
	Forwarded          string `json:"forwarded"`

	TotalDue   string `json:"total_due"`
	PaidAmount string `json:"paid_amount"`
	Balance    string `json:"balance"`
	Status     string `json:"status"`

	PaidType string `json:"paid_type"`
	Active   bool   `json:"active"`
	Version  int64  `json:"version"`

	DueDate string `json:"due_date,omitempty"`
	AsOf    string `json:"as_of"`
}

// CreateAccountRequest opens a term account for a student.
type CreateAccountRequest struct {
	StudentID    string `json:"student_id" validate:"required"`
	AcademicYear string `json:"academic_year" validate:"required"`
	Semester     int    `json:"semester" validate:"required,min=1,max=2"`

	// BaseFee empty means price from the fee catalog.
	BaseFee  *string `json:"base_fee,omitempty"`
	PaidType string  `json:"paid_type" validate:"required"`
}

// SetPaidTypeRequest relabels the billing cadence of an account.
type SetPaidTypeRequest struct {
	PaidType string `json:"paid_type" validate:"required"`
}

// DiscountRequest applies a discount, either as an absolute amount or as a
// percentage of the current base fee. Exactly one of the two must be set.
type DiscountRequest struct {
	Amount  *string `json:"amount,omitempty"`
	Percent *string `json:"percent,omitempty"`
}

// ScholarshipRequest stores a scholarship percentage on the account.
type ScholarshipRequest struct {
	Percent string `json:"percent" validate:"required"`
}

// ForwardRequest sets the signed carry-in balance from a prior period.
type ForwardRequest struct {
	Amount string `json:"amount" validate:"required"`
}

// ChargeRequest accumulates a non-tuition charge on the account.
type ChargeRequest struct {
	Amount string `json:"amount" validate:"required"`
	Note   string `json:"note"`
}

// RepriceRequest replaces the base fee. Empty means price from the catalog.
type RepriceRequest struct {
	BaseFee *string `json:"base_fee,omitempty"`
}

// RolloverRequest closes the account and opens the next term's account with
// the closing balance forwarded.
type RolloverRequest struct {
	// BaseFee empty means the successor inherits the source base fee.
	BaseFee *string `json:"base_fee,omitempty"`
}

// =============================================================================
// PAYMENT TYPES
// =============================================================================

// PaymentEventDTO represents one journal entry.
type PaymentEventDTO struct {
	ID           string `json:"id"`
	StudentID    string `json:"student_id"`
	AcademicYear string `json:"academic_year"`
	Semester     int    `json:"semester"`

	Amount string `json:"amount"`
	Type   string `json:"type"`
	Method string `json:"method"`
	Status string `json:"status"`

	PaidAt string `json:"paid_at"`
	DueAt  string `json:"due_at,omitempty"`

	Reference      string `json:"reference,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	RecordedBy string `json:"recorded_by"`
	CreatedAt  string `json:"created_at"`

	Reversed   bool   `json:"reversed"`
	ReversedAt string `json:"reversed_at,omitempty"`
	ReversedBy string `json:"reversed_by,omitempty"`
}

// RecordPaymentRequest records money received against a student's account.
type RecordPaymentRequest struct {
	StudentID string `json:"student_id" validate:"required"`

	// AcademicYear and Semester both empty target the student's latest
	// active account.
	AcademicYear string `json:"academic_year,omitempty"`
	Semester     int    `json:"semester,omitempty" validate:"omitempty,min=1,max=2"`

	Amount string `json:"amount" validate:"required"`
	PaidAt string `json:"paid_at" validate:"required"`
	Type   string `json:"type" validate:"required"`
	Method string `json:"method" validate:"required"`

	Reference      string `json:"reference,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// PaymentResponse pairs the written event with the recomputed account.
type PaymentResponse struct {
	Event   PaymentEventDTO `json:"event"`
	Account AccountDTO      `json:"account"`
}

// =============================================================================
// AUDIT TYPES
// =============================================================================

// AuditEntryDTO represents one audit trail entry.
type AuditEntryDTO struct {
	ID        string         `json:"id"`
	At        string         `json:"at"`
	Actor     string         `json:"actor"`
	Action    string         `json:"action"`
	StudentID string         `json:"student_id"`
	AccountID string         `json:"account_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// =============================================================================
// SCENARIO TYPES
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects the scenario to load.
type LoadScenarioRequest struct {
	ID string `json:"id" validate:"required"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toStudentDTO(s ledger.Student) StudentDTO {
	return StudentDTO{
		ID:           string(s.ID),
		FullName:     s.FullName,
		FacultyID:    s.FacultyID,
		DepartmentID: s.DepartmentID,
		AcademicYear: s.AcademicYear,
		Semester:     s.Semester,
		Active:       s.Active,
		CreatedAt:    s.CreatedAt.Format(time.RFC3339),
	}
}

func toAccountDTO(snap ledger.Snapshot) AccountDTO {
	acc := snap.Account
	dto := AccountDTO{
		ID:                 string(acc.ID),
		StudentID:          string(acc.StudentID),
		AcademicYear:       acc.Period.Year,
		Semester:           acc.Period.Semester,
		BaseFee:            acc.BaseFee.String(),
		OtherCharges:       acc.OtherCharges.String(),
		Discount:           acc.Discount.String(),
		ScholarshipPercent: acc.ScholarshipPercent.String(),
		ScholarshipAmount:  snap.ScholarshipAmount.String(),
		Forwarded:          acc.Forwarded.String(),
		TotalDue:           snap.TotalDue.String(),
		PaidAmount:         snap.PaidAmount.String(),
		Balance:            snap.Balance.String(),
		Status:             string(snap.Status),
		PaidType:           string(acc.PaidType),
		Active:             acc.Active,
		Version:            acc.Version,
		AsOf:               snap.AsOf.String(),
	}
	if snap.DueDate != nil {
		dto.DueDate = snap.DueDate.String()
	}
	return dto
}

func toEventDTO(e ledger.PaymentEvent) PaymentEventDTO {
	dto := PaymentEventDTO{
		ID:             string(e.ID),
		StudentID:      string(e.StudentID),
		AcademicYear:   e.Period.Year,
		Semester:       e.Period.Semester,
		Amount:         e.Amount.String(),
		Type:           string(e.Type),
		Method:         string(e.Method),
		Status:         string(e.Status),
		PaidAt:         e.PaidAt.String(),
		Reference:      e.Reference,
		IdempotencyKey: e.IdempotencyKey,
		RecordedBy:     string(e.RecordedBy),
		CreatedAt:      e.CreatedAt.Format(time.RFC3339),
		Reversed:       e.Reversed(),
		ReversedBy:     string(e.ReversedBy),
	}
	if e.DueAt != nil {
		dto.DueAt = e.DueAt.String()
	}
	if e.ReversedAt != nil {
		dto.ReversedAt = e.ReversedAt.Format(time.RFC3339)
	}
	return dto
}

func toEventDTOs(events []ledger.PaymentEvent) []PaymentEventDTO {
	dtos := make([]PaymentEventDTO, len(events))
	for i, e := range events {
		dtos[i] = toEventDTO(e)
	}
	return dtos
}

func toAuditDTO(a ledger.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:        a.ID,
		At:        a.At.Format(time.RFC3339),
		Actor:     string(a.Actor),
		Action:    string(a.Action),
		StudentID: string(a.StudentID),
		AccountID: string(a.AccountID),
		Payload:   a.Payload,
	}
}
