/*
handlers.go - HTTP API handlers for the bursar engine

PURPOSE:
  Exposes the student ledger via REST API. Handles HTTP request/response,
  JSON serialization, and delegates every domain decision to the bursar
  service.

ENDPOINTS:
  Students:
    GET    /api/students                   List registered students
    POST   /api/students                   Register a student
    GET    /api/students/{id}              Get student details
    GET    /api/students/{id}/accounts     All term accounts, derived
    GET    /api/students/{id}/payments     Payment history across periods
    GET    /api/students/{id}/audit        Audit trail

  Accounts:
    POST   /api/accounts                   Open a term account
    GET    /api/accounts/{id}              Derived snapshot
    GET    /api/accounts/{id}/schedule     Expected installment plan
    PUT    /api/accounts/{id}/paid-type    Relabel billing cadence
    POST   /api/accounts/{id}/deactivate   Freeze the account
    POST   /api/accounts/{id}/reactivate   Restore a frozen account
    POST   /api/accounts/{id}/discount     Amount or percent discount
    POST   /api/accounts/{id}/scholarship  Scholarship percentage
    POST   /api/accounts/{id}/forward      Carry-in balance
    POST   /api/accounts/{id}/charges      Non-tuition charge
    POST   /api/accounts/{id}/reprice      Replace the base fee
    POST   /api/accounts/{id}/rollover     Close and open next term

  Payments:
    POST   /api/payments                   Record a payment
    POST   /api/payments/{id}/reverse      Reverse a payment

  Catalog:
    GET    /api/catalog/fees               Fee schedule entries
    GET    /api/catalog/due-dates          Payment deadlines

  Scenarios:
    GET    /api/scenarios                  List demo scenarios
    GET    /api/scenarios/current          Currently loaded scenario
    POST   /api/scenarios/load             Load a demo scenario
    POST   /api/scenarios/reset            Wipe all data

REQUEST FLOW:
  1. Decode JSON body
  2. Shape-validate with go-playground/validator
  3. Parse money/date/enum strings at the boundary
  4. Call the bursar service
  5. Serialize response

ERROR HANDLING:
  Domain errors map to HTTP status by kind:
  - 400: validation (bad amounts, unknown enums, frozen account writes)
  - 404: not found (account, student, event)
  - 409: conflict (duplicate account, idempotency key, stale version)
  - 502: dependency (missing catalog fee or deadline)
  - 500: everything else

ACTOR ATTRIBUTION:
  The X-Actor-ID request header names the staff member performing the
  operation. The router middleware stashes it in the request context and
  the bursar service stamps it on events and audit entries. Absent header
  means "system".

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian/bursar-engine/bursar"
	"github.com/meridian/bursar-engine/catalog"
	"github.com/meridian/bursar-engine/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Bursar   *bursar.Service
	Store    ledger.TxStore
	Schedule *catalog.FeeSchedule

	validate *validator.Validate

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler around the bursar service.
func NewHandler(svc *bursar.Service, store ledger.TxStore, schedule *catalog.FeeSchedule) *Handler {
	return &Handler{
		Bursar:   svc,
		Store:    store,
		Schedule: schedule,
		validate: validator.New(),
	}
}

// decode unmarshals the body into req and runs the validator tags.
func (h *Handler) decode(r *http.Request, req any) error {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return err
	}
	return h.validate.Struct(req)
}

// =============================================================================
// STUDENT ENDPOINTS
// =============================================================================

// ListStudents returns all registered students.
// GET /api/students
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.Store.Students(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list students", err)
		return
	}

	dtos := make([]StudentDTO, len(students))
	for i, s := range students {
		dtos[i] = toStudentDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RegisterStudent registers a student in the directory.
// POST /api/students
func (h *Handler) RegisterStudent(w http.ResponseWriter, r *http.Request) {
	var req RegisterStudentRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	student, err := h.Bursar.RegisterStudent(r.Context(), ledger.Student{
		ID:           ledger.StudentID(req.ID),
		FullName:     req.FullName,
		FacultyID:    req.FacultyID,
		DepartmentID: req.DepartmentID,
		AcademicYear: req.AcademicYear,
		Semester:     req.Semester,
		Active:       true,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toStudentDTO(student))
}

// GetStudent returns one student.
// GET /api/students/{id}
func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id := ledger.StudentID(chi.URLParam(r, "id"))

	student, err := h.Store.StudentByID(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toStudentDTO(student))
}

// ListStudentAccounts returns every term account of a student, each with its
// derived figures.
// GET /api/students/{id}/accounts
func (h *Handler) ListStudentAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := ledger.StudentID(chi.URLParam(r, "id"))

	if _, err := h.Store.StudentByID(ctx, id); err != nil {
		h.writeDomainError(w, err)
		return
	}

	accounts, err := h.Store.AccountsByStudent(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list accounts", err)
		return
	}

	dtos := make([]AccountDTO, 0, len(accounts))
	for _, acc := range accounts {
		snap, err := h.Bursar.AccountSnapshot(ctx, acc.ID)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		dtos = append(dtos, toAccountDTO(snap))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListStudentPayments returns the student's full journal, reversed entries
// included.
// GET /api/students/{id}/payments
func (h *Handler) ListStudentPayments(w http.ResponseWriter, r *http.Request) {
	id := ledger.StudentID(chi.URLParam(r, "id"))

	events, err := h.Bursar.PaymentHistory(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toEventDTOs(events))
}

// ListStudentAudit returns the audit trail for a student.
// GET /api/students/{id}/audit
func (h *Handler) ListStudentAudit(w http.ResponseWriter, r *http.Request) {
	id := ledger.StudentID(chi.URLParam(r, "id"))

	entries, err := h.Bursar.AuditTrail(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toAuditDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ACCOUNT ENDPOINTS
// =============================================================================

// CreateAccount opens a term account.
// POST /api/accounts
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	period, err := ledger.NewPeriod(req.AcademicYear, req.Semester)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid academic period", err)
		return
	}
	paidType, err := ledger.ParsePaidType(req.PaidType)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	baseFee, err := parseOptionalMoney(req.BaseFee)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid base fee", err)
		return
	}

	snap, err := h.Bursar.CreateAccount(r.Context(), bursar.CreateAccountInput{
		StudentID: ledger.StudentID(req.StudentID),
		Period:    period,
		BaseFee:   baseFee,
		PaidType:  paidType,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountDTO(snap))
}

// GetAccount returns the derived snapshot of one account.
// GET /api/accounts/{id}
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	snap, err := h.Bursar.AccountSnapshot(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountDTO(snap))
}

// GetAccountSchedule returns the expected installment plan for an account.
// GET /api/accounts/{id}/schedule
func (h *Handler) GetAccountSchedule(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	installments, err := h.Bursar.PaymentSchedule(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, installments)
}

// SetPaidType relabels the billing cadence of an account.
// PUT /api/accounts/{id}/paid-type
func (h *Handler) SetPaidType(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	var req SetPaidTypeRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	paidType, err := ledger.ParsePaidType(req.PaidType)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	snap, err := h.Bursar.SetPaidType(r.Context(), id, paidType)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountDTO(snap))
}

// DeactivateAccount freezes an account.
// POST /api/accounts/{id}/deactivate
func (h *Handler) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	snap, err := h.Bursar.Deactivate(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountDTO(snap))
}

// ReactivateAccount restores a frozen account.
// POST /api/accounts/{id}/reactivate
func (h *Handler) ReactivateAccount(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	snap, err := h.Bursar.Reactivate(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountDTO(snap))
}

// ApplyDiscount applies a discount, as an amount or as a percent of the base
// fee. Exactly one of the two must be present.
// POST /api/accounts/{id}/discount
func (h *Handler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	var req DiscountRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if (req.Amount == nil) == (req.Percent == nil) {
		writeError(w, http.StatusBadRequest, "Provide exactly one of amount or percent", nil)
		return
	}

	var snap ledger.Snapshot
	var err error
	if req.Amount != nil {
		amount, perr := ledger.ParseMoney(*req.Amount)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "Invalid discount amount", perr)
			return
		}
		snap, err = h.Bursar.ApplyDiscountAmount(r.Context(), id, amount)
	} else {
		percent, perr := parsePercent(*req.Percent)
		if perr != nil {
			h.writeDomainError(w, perr)
			return
		}
		snap, err = h.Bursar.ApplyDiscountPercent(r.Context(), id, percent)
	}
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountDTO(snap))
}

// ApplyScholarship stores a scholarship percentage on an account.
// POST /api/accounts/{id}/scholarship
func (h *Handler) ApplyScholarship(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	var req ScholarshipRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	percent, err := parsePercent(req.Percent)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	snap, err := h.Bursar.ApplyScholarship(r.Context(), id, percent)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountDTO(snap))
}

// ApplyForwarded sets the signed carry-in balance on an account.
// POST /api/accounts/{id}/forward
func (h *Handler) ApplyForwarded(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	var req ForwardRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := ledger.ParseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	snap, err := h.Bursar.ApplyForwarded(r.Context(), id, amount)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountDTO(snap))
}

// AddCharge adds a non-tuition charge to an account.
// POST /api/accounts/{id}/charges
func (h *Handler) AddCharge(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	var req ChargeRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := ledger.ParseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid charge amount", err)
		return
	}

	snap, err := h.Bursar.AddCharge(r.Context(), id, amount, req.Note)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountDTO(snap))
}

// RepriceAccount replaces the base fee, from the body or from the catalog.
// POST /api/accounts/{id}/reprice
func (h *Handler) RepriceAccount(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	var req RepriceRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	fee, err := parseOptionalMoney(req.BaseFee)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid base fee", err)
		return
	}

	snap, err := h.Bursar.Reprice(r.Context(), id, fee)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountDTO(snap))
}

// RolloverAccount closes the account and opens the next term's account with
// the closing balance forwarded. Returns the successor snapshot.
// POST /api/accounts/{id}/rollover
func (h *Handler) RolloverAccount(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	var req RolloverRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	fee, err := parseOptionalMoney(req.BaseFee)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid base fee", err)
		return
	}

	snap, err := h.Bursar.Rollover(r.Context(), bursar.RolloverInput{
		AccountID: id,
		BaseFee:   fee,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountDTO(snap))
}

// =============================================================================
// PAYMENT ENDPOINTS
// =============================================================================

// RecordPayment records money received against a student's account.
// POST /api/payments
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := bursar.RecordPaymentInput{
		StudentID:      ledger.StudentID(req.StudentID),
		Reference:      req.Reference,
		IdempotencyKey: req.IdempotencyKey,
	}

	if req.AcademicYear != "" || req.Semester != 0 {
		period, err := ledger.NewPeriod(req.AcademicYear, req.Semester)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid academic period", err)
			return
		}
		in.Period = &period
	}

	amount, err := ledger.ParseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	in.Amount = amount

	paidAt, err := ledger.ParseDate(req.PaidAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid paid_at date", err)
		return
	}
	in.PaidAt = paidAt

	in.Type, err = ledger.ParsePaymentType(req.Type)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	in.Method, err = ledger.ParsePaymentMethod(req.Method)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	event, snap, err := h.Bursar.RecordPayment(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, PaymentResponse{
		Event:   toEventDTO(event),
		Account: toAccountDTO(snap),
	})
}

// ReversePayment reverses a journal entry. The entry stays visible in the
// history but stops counting toward the paid amount.
// POST /api/payments/{id}/reverse
func (h *Handler) ReversePayment(w http.ResponseWriter, r *http.Request) {
	id := ledger.EventID(chi.URLParam(r, "id"))

	event, snap, err := h.Bursar.ReversePayment(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PaymentResponse{
		Event:   toEventDTO(event),
		Account: toAccountDTO(snap),
	})
}

// =============================================================================
// CATALOG ENDPOINTS
// =============================================================================

// ListCatalogFees returns the loaded fee schedule entries.
// GET /api/catalog/fees
func (h *Handler) ListCatalogFees(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Schedule.Fees())
}

// ListCatalogDueDates returns the loaded payment deadlines.
// GET /api/catalog/due-dates
func (h *Handler) ListCatalogDueDates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Schedule.DueDates())
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

// writeDomainError maps ledger error kinds to HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "validation"})
	case ledger.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "not_found"})
	case ledger.IsConflict(err):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "conflict"})
	case ledger.IsDependency(err):
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: err.Error(), Code: "dependency"})
	default:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "internal"})
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func parseOptionalMoney(s *string) (*ledger.Money, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	m, err := ledger.ParseMoney(*s)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func parsePercent(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ledger.ErrInvalidPercentage
	}
	return d, nil
}
