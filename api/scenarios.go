/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario registers students, opens term
	accounts, and records payments that demonstrate specific features.

AVAILABLE SCENARIOS:

	fresh-term:           New cohort, accounts open, nothing paid yet
	mid-term:             Mixed paid / partial / unpaid accounts
	scholarship-discount: Scholarship and discount interplay on the balance
	arrears-rollover:     Debt and credit carried across terms
	reversal:             Bounced transfer reversed out of the journal

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Register students
 3. Open term accounts (priced from the fee catalog or explicitly)
 4. Apply adjustments (scholarship, discount, charges)
 5. Record payments, optionally reverse one

	All writes go through the bursar service, never the store directly, so
	every scenario account carries a consistent audit trail and derived
	figures.

USAGE VIA API:

	POST /api/scenarios/load
	{"id": "mid-term"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database and assume the standard 2025/2026 catalog.
	Only use in development/demo environments.

SEE ALSO:
  - handlers.go: scenario route handlers live at the bottom of the router
  - catalog/presets.go: the fee schedule the scenarios price against
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/meridian/bursar-engine/bursar"
	"github.com/meridian/bursar-engine/ledger"
)

// scenarioYear must match the catalog the server was started with.
const scenarioYear = "2025/2026"

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "fresh-term",
		Name:        "Fresh Term",
		Description: "New cohort with open accounts and no payments yet",
	},
	{
		ID:          "mid-term",
		Name:        "Mid Term",
		Description: "One account settled, one half paid, one untouched",
	},
	{
		ID:          "scholarship-discount",
		Name:        "Scholarship & Discount",
		Description: "Scholarship percentage and sibling discount reducing the total due",
	},
	{
		ID:          "arrears-rollover",
		Name:        "Arrears Rollover",
		Description: "Prior-term debt and credit forwarded into the new term",
	},
	{
		ID:          "reversal",
		Name:        "Payment Reversal",
		Description: "Bounced bank transfer reversed, entry kept in the history",
	},
}

// Resetter is implemented by stores that can wipe all data. Scenario loads
// need it; a store without it refuses to load scenarios.
type Resetter interface {
	Reset(ctx context.Context) error
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	// Scenario ID exists but not in list (shouldn't happen)
	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	// Reset first
	if err := h.resetStore(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	var err error
	switch req.ID {
	case "fresh-term":
		err = h.loadFreshTermScenario(ctx)
	case "mid-term":
		err = h.loadMidTermScenario(ctx)
	case "scholarship-discount":
		err = h.loadScholarshipDiscountScenario(ctx)
	case "arrears-rollover":
		err = h.loadArrearsRolloverScenario(ctx)
	case "reversal":
		err = h.loadReversalScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = req.ID
	log.Printf("[Scenario] Loaded %s", req.ID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ID})
}

// ResetDatabase wipes all data.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.resetStore(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	log.Println("[Scenario] Database reset")

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) resetStore(ctx context.Context) error {
	res, ok := h.Store.(Resetter)
	if !ok {
		return errors.New("store does not support reset")
	}
	return res.Reset(ctx)
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadFreshTermScenario(ctx context.Context) error {
	students := []ledger.Student{
		{ID: "stu-001", FullName: "Amira Hassan", FacultyID: "fac-eng", DepartmentID: "engineering", AcademicYear: scenarioYear, Semester: 1, Active: true},
		{ID: "stu-002", FullName: "Budi Santoso", FacultyID: "fac-econ", DepartmentID: "economics", AcademicYear: scenarioYear, Semester: 1, Active: true},
		{ID: "stu-003", FullName: "Chloe Martin", FacultyID: "fac-med", DepartmentID: "medicine", AcademicYear: scenarioYear, Semester: 1, Active: true},
	}

	for _, s := range students {
		if _, err := h.Bursar.RegisterStudent(ctx, s); err != nil {
			return err
		}
		if _, err := h.openAccount(ctx, s.ID, 1, nil); err != nil {
			return err
		}
	}

	return nil
}

func (h *Handler) loadMidTermScenario(ctx context.Context) error {
	if err := h.loadFreshTermScenario(ctx); err != nil {
		return err
	}

	// Amira settles the engineering fee in full (1500.00)
	if err := h.recordPayment(ctx, "stu-001", "1500.00", "2025-09-20", ledger.MethodBankTransfer, "TRX-2025-0917"); err != nil {
		return err
	}

	// Budi pays half of the economics fee (600.00 of 1200.00)
	if err := h.recordPayment(ctx, "stu-002", "600.00", "2025-10-05", ledger.MethodMobileMoney, "TRX-2025-1042"); err != nil {
		return err
	}

	// Chloe has not paid anything; her account goes overdue after the
	// December deadline passes.
	return nil
}

func (h *Handler) loadScholarshipDiscountScenario(ctx context.Context) error {
	// Dewi holds a 10% merit scholarship on a 1000.00 program fee:
	// due 900.00, pays 400.00, leaving 500.00 outstanding.
	dewi := ledger.Student{ID: "stu-010", FullName: "Dewi Lestari", FacultyID: "fac-eng", DepartmentID: "engineering", AcademicYear: scenarioYear, Semester: 1, Active: true}
	if _, err := h.Bursar.RegisterStudent(ctx, dewi); err != nil {
		return err
	}
	fee := ledger.MustMoney("1000.00")
	snap, err := h.openAccount(ctx, dewi.ID, 1, &fee)
	if err != nil {
		return err
	}
	if _, err := h.Bursar.ApplyScholarship(ctx, snap.Account.ID, decimal.NewFromInt(10)); err != nil {
		return err
	}
	if err := h.recordPayment(ctx, dewi.ID, "400.00", "2025-09-28", ledger.MethodCash, ""); err != nil {
		return err
	}

	// Eko gets a 150.00 sibling discount off the catalog fee.
	eko := ledger.Student{ID: "stu-011", FullName: "Eko Prasetyo", FacultyID: "fac-econ", DepartmentID: "economics", AcademicYear: scenarioYear, Semester: 1, Active: true}
	if _, err := h.Bursar.RegisterStudent(ctx, eko); err != nil {
		return err
	}
	ekoSnap, err := h.openAccount(ctx, eko.ID, 1, nil)
	if err != nil {
		return err
	}
	_, err = h.Bursar.ApplyDiscountAmount(ctx, ekoSnap.Account.ID, ledger.MustMoney("150.00"))
	return err
}

func (h *Handler) loadArrearsRolloverScenario(ctx context.Context) error {
	priorPeriod, err := ledger.NewPeriod("2024/2025", 2)
	if err != nil {
		return err
	}

	// Farah left 350.00 unpaid last term; the debt follows her into the
	// new term's account.
	farah := ledger.Student{ID: "stu-020", FullName: "Farah Nabila", FacultyID: "fac-eng", DepartmentID: "engineering", AcademicYear: scenarioYear, Semester: 1, Active: true}
	if _, err := h.Bursar.RegisterStudent(ctx, farah); err != nil {
		return err
	}
	priorFee := ledger.MustMoney("1400.00")
	farahPrior, err := h.Bursar.CreateAccount(ctx, bursar.CreateAccountInput{
		StudentID: farah.ID,
		Period:    priorPeriod,
		BaseFee:   &priorFee,
		PaidType:  ledger.PaidPerSemester,
	})
	if err != nil {
		return err
	}
	if _, _, err := h.Bursar.RecordPayment(ctx, bursar.RecordPaymentInput{
		StudentID: farah.ID,
		Period:    &priorPeriod,
		Amount:    ledger.MustMoney("1050.00"),
		PaidAt:    mustDate("2025-05-12"),
		Type:      ledger.PaymentTuition,
		Method:    ledger.MethodBankTransfer,
		Reference: "TRX-2025-0512",
	}); err != nil {
		return err
	}
	newFee := ledger.MustMoney("1500.00")
	if _, err := h.Bursar.Rollover(ctx, bursar.RolloverInput{
		AccountID: farahPrior.Account.ID,
		BaseFee:   &newFee,
	}); err != nil {
		return err
	}

	// Gilang overpaid by 200.00 last term; the credit shrinks his new
	// term's total due.
	gilang := ledger.Student{ID: "stu-021", FullName: "Gilang Ramadhan", FacultyID: "fac-econ", DepartmentID: "economics", AcademicYear: scenarioYear, Semester: 1, Active: true}
	if _, err := h.Bursar.RegisterStudent(ctx, gilang); err != nil {
		return err
	}
	gilangFee := ledger.MustMoney("1100.00")
	gilangPrior, err := h.Bursar.CreateAccount(ctx, bursar.CreateAccountInput{
		StudentID: gilang.ID,
		Period:    priorPeriod,
		BaseFee:   &gilangFee,
		PaidType:  ledger.PaidPerSemester,
	})
	if err != nil {
		return err
	}
	if _, _, err := h.Bursar.RecordPayment(ctx, bursar.RecordPaymentInput{
		StudentID: gilang.ID,
		Period:    &priorPeriod,
		Amount:    ledger.MustMoney("1300.00"),
		PaidAt:    mustDate("2025-06-02"),
		Type:      ledger.PaymentTuition,
		Method:    ledger.MethodBankTransfer,
		Reference: "TRX-2025-0602",
	}); err != nil {
		return err
	}
	newGilangFee := ledger.MustMoney("1200.00")
	_, err = h.Bursar.Rollover(ctx, bursar.RolloverInput{
		AccountID: gilangPrior.Account.ID,
		BaseFee:   &newGilangFee,
	})
	return err
}

func (h *Handler) loadReversalScenario(ctx context.Context) error {
	hana := ledger.Student{ID: "stu-030", FullName: "Hana Yusuf", FacultyID: "fac-med", DepartmentID: "medicine", AcademicYear: scenarioYear, Semester: 1, Active: true}
	if _, err := h.Bursar.RegisterStudent(ctx, hana); err != nil {
		return err
	}
	if _, err := h.openAccount(ctx, hana.ID, 1, nil); err != nil {
		return err
	}

	period, err := ledger.NewPeriod(scenarioYear, 1)
	if err != nil {
		return err
	}
	event, _, err := h.Bursar.RecordPayment(ctx, bursar.RecordPaymentInput{
		StudentID: hana.ID,
		Period:    &period,
		Amount:    ledger.MustMoney("2500.00"),
		PaidAt:    mustDate("2025-09-15"),
		Type:      ledger.PaymentTuition,
		Method:    ledger.MethodBankTransfer,
		Reference: "TRX-2025-0915",
	})
	if err != nil {
		return err
	}

	// The transfer bounced three days later. The entry stays visible but
	// stops counting.
	_, _, err = h.Bursar.ReversePayment(ctx, event.ID)
	return err
}

// =============================================================================
// LOADER HELPERS
// =============================================================================

func (h *Handler) openAccount(ctx context.Context, studentID ledger.StudentID, semester int, fee *ledger.Money) (ledger.Snapshot, error) {
	period, err := ledger.NewPeriod(scenarioYear, semester)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	return h.Bursar.CreateAccount(ctx, bursar.CreateAccountInput{
		StudentID: studentID,
		Period:    period,
		BaseFee:   fee,
		PaidType:  ledger.PaidPerSemester,
	})
}

func (h *Handler) recordPayment(ctx context.Context, studentID ledger.StudentID, amount, paidAt string, method ledger.PaymentMethod, reference string) error {
	period, err := ledger.NewPeriod(scenarioYear, 1)
	if err != nil {
		return err
	}
	_, _, err = h.Bursar.RecordPayment(ctx, bursar.RecordPaymentInput{
		StudentID: studentID,
		Period:    &period,
		Amount:    ledger.MustMoney(amount),
		PaidAt:    mustDate(paidAt),
		Type:      ledger.PaymentTuition,
		Method:    method,
		Reference: reference,
	})
	return err
}

func mustDate(s string) ledger.Date {
	d, err := ledger.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
