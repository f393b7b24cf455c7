/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements ledger.Store and ledger.TxStore using SQLite. In production, the
  same patterns apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  ledger.AccountStore: account rows with optimistic version checks
  ledger.EventStore:   append-only payment journal
  ledger.StudentStore: student directory
  ledger.AuditLog:     append-only audit trail
  ledger.TxStore:      all of the above plus WithTx

APPEND-ONLY ENFORCEMENT:
  payment_events carries no general UPDATE path. The single permitted state
  change is setting the reversal marker, and the statement that sets it is
  guarded by "reversed_at IS NULL" so it can fire at most once per row.

KEY TABLES:
  students:       directory records the ledger reads for pricing
  accounts:       per-student, per-period fee accounts (versioned rows)
  payment_events: immutable journal of money received
  audit_entries:  who did what, written in the same transaction

INDEXES:
  - idx_accounts_active_key: partial unique index enforcing one ACTIVE
    account per (student, academic_year, semester); deactivated rows do
    not occupy the key
  - idx_events_idempotency: partial unique index deduping retried
    payment submissions
  - idx_events_student_period: aggregation hot path

CONCURRENCY:
  A sync.RWMutex serializes writers within this process; the version column
  on accounts catches lost updates across any path. WithTx holds the writer
  lock for the whole function body, so a transaction observes and produces a
  consistent state.

WAL MODE:
  The database is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/bursar.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper migration
  tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: interface definitions and semantics
  - ledger/store/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/meridian/bursar-engine/ledger"
)

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Students (directory records)
	CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		faculty_id TEXT,
		department_id TEXT NOT NULL,
		academic_year TEXT NOT NULL,
		semester INTEGER NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Accounts (versioned rows; deactivation instead of deletion)
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		academic_year TEXT NOT NULL,
		semester INTEGER NOT NULL,
		base_fee TEXT NOT NULL,
		other_charges TEXT NOT NULL,
		discount TEXT NOT NULL,
		scholarship_percent TEXT NOT NULL,
		forwarded TEXT NOT NULL,
		paid_type TEXT NOT NULL,
		active INTEGER NOT NULL,
		version INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- CRITICAL: one ACTIVE account per (student, year, semester). Deactivated
	-- rows keep their history without occupying the key, so a later account
	-- for the same term can exist alongside them.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_active_key
		ON accounts(student_id, academic_year, semester)
		WHERE active = 1;

	CREATE INDEX IF NOT EXISTS idx_accounts_student
		ON accounts(student_id);

	-- Payment events (append-only journal)
	CREATE TABLE IF NOT EXISTS payment_events (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		academic_year TEXT NOT NULL,
		semester INTEGER NOT NULL,
		amount TEXT NOT NULL,
		pay_type TEXT NOT NULL,
		method TEXT NOT NULL,
		status TEXT NOT NULL,
		paid_at TEXT NOT NULL,
		due_at TEXT,
		reference TEXT,
		idempotency_key TEXT,
		recorded_by TEXT NOT NULL,
		created_at TEXT NOT NULL,
		reversed_at TEXT,
		reversed_by TEXT
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_events_idempotency
		ON payment_events(idempotency_key) WHERE idempotency_key IS NOT NULL;

	-- Aggregation hot path: sum a student's period, reversed rows filtered
	CREATE INDEX IF NOT EXISTS idx_events_student_period
		ON payment_events(student_id, academic_year, semester, paid_at);

	-- Audit trail (append-only)
	CREATE TABLE IF NOT EXISTS audit_entries (
		id TEXT PRIMARY KEY,
		at TEXT NOT NULL,
		actor TEXT NOT NULL,
		action TEXT NOT NULL,
		student_id TEXT NOT NULL,
		account_id TEXT,
		payload_json TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_student
		ON audit_entries(student_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// queryer is satisfied by both *sql.DB and *sql.Tx so the same statement
// helpers serve direct calls and transaction bodies.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ACCOUNT STORE (ledger.AccountStore interface)
// =============================================================================

const accountColumns = `id, student_id, academic_year, semester, base_fee, other_charges,
	discount, scholarship_percent, forwarded, paid_type, active, version, created_at, updated_at`

// CreateAccount inserts a new account row.
func (s *Store) CreateAccount(ctx context.Context, acc ledger.LedgerAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createAccountIn(ctx, s.db, acc)
}

func (s *Store) createAccountIn(ctx context.Context, q queryer, acc ledger.LedgerAccount) error {
	if acc.Active {
		if holder, taken := s.activeHolderIn(ctx, q, acc.StudentID, acc.Period, acc.ID); taken {
			return &ledger.DuplicateAccountError{StudentID: acc.StudentID, Period: acc.Period, Existing: holder}
		}
	}

	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		acc.ID,
		acc.StudentID,
		acc.Period.Year,
		acc.Period.Semester,
		acc.BaseFee.String(),
		acc.OtherCharges.String(),
		acc.Discount.String(),
		acc.ScholarshipPercent.String(),
		acc.Forwarded.String(),
		acc.PaidType,
		acc.Active,
		acc.Version,
		acc.CreatedAt.UTC().Format(time.RFC3339),
		acc.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		// Backstop: the partial unique index catches what the pre-check
		// could not see.
		if isUniqueConstraintError(err) && strings.Contains(err.Error(), "accounts.student_id") {
			return &ledger.DuplicateAccountError{StudentID: acc.StudentID, Period: acc.Period}
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// activeHolderIn reports which other account, if any, actively holds the
// natural key.
func (s *Store) activeHolderIn(ctx context.Context, q queryer, studentID ledger.StudentID, period ledger.AcademicPeriod, exclude ledger.AccountID) (ledger.AccountID, bool) {
	var id string
	err := q.QueryRowContext(ctx, `
		SELECT id FROM accounts
		WHERE student_id = ? AND academic_year = ? AND semester = ? AND active = 1 AND id != ?
	`, studentID, period.Year, period.Semester, exclude).Scan(&id)
	if err != nil {
		return "", false
	}
	return ledger.AccountID(id), true
}

// Account loads by ID, active or not.
func (s *Store) Account(ctx context.Context, id ledger.AccountID) (ledger.LedgerAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accountIn(ctx, s.db, id)
}

func (s *Store) accountIn(ctx context.Context, q queryer, id ledger.AccountID) (ledger.LedgerAccount, error) {
	row := q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	acc, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return ledger.LedgerAccount{}, ledger.ErrAccountNotFound
	}
	return acc, err
}

// ActiveAccount loads the single active account for a natural key.
func (s *Store) ActiveAccount(ctx context.Context, studentID ledger.StudentID, period ledger.AcademicPeriod) (ledger.LedgerAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeAccountIn(ctx, s.db, studentID, period)
}

func (s *Store) activeAccountIn(ctx context.Context, q queryer, studentID ledger.StudentID, period ledger.AcademicPeriod) (ledger.LedgerAccount, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE student_id = ? AND academic_year = ? AND semester = ? AND active = 1
	`, studentID, period.Year, period.Semester)
	acc, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return ledger.LedgerAccount{}, ledger.ErrAccountNotFound
	}
	return acc, err
}

// AccountsByStudent returns every account of a student, ordered by period
// then creation time.
func (s *Store) AccountsByStudent(ctx context.Context, studentID ledger.StudentID) ([]ledger.LedgerAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accountsByStudentIn(ctx, s.db, studentID)
}

func (s *Store) accountsByStudentIn(ctx context.Context, q queryer, studentID ledger.StudentID) ([]ledger.LedgerAccount, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE student_id = ?
		ORDER BY academic_year ASC, semester ASC, created_at ASC
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []ledger.LedgerAccount
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

// UpdateAccount writes the row if the caller's version still matches, then
// increments the version.
func (s *Store) UpdateAccount(ctx context.Context, acc ledger.LedgerAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateAccountIn(ctx, s.db, acc)
}

func (s *Store) updateAccountIn(ctx context.Context, q queryer, acc ledger.LedgerAccount) error {
	if acc.Active {
		if holder, taken := s.activeHolderIn(ctx, q, acc.StudentID, acc.Period, acc.ID); taken {
			return &ledger.DuplicateAccountError{StudentID: acc.StudentID, Period: acc.Period, Existing: holder}
		}
	}

	query := `
		UPDATE accounts SET
			student_id = ?, academic_year = ?, semester = ?,
			base_fee = ?, other_charges = ?, discount = ?, scholarship_percent = ?,
			forwarded = ?, paid_type = ?, active = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`
	res, err := q.ExecContext(ctx, query,
		acc.StudentID,
		acc.Period.Year,
		acc.Period.Semester,
		acc.BaseFee.String(),
		acc.OtherCharges.String(),
		acc.Discount.String(),
		acc.ScholarshipPercent.String(),
		acc.Forwarded.String(),
		acc.PaidType,
		acc.Active,
		acc.UpdatedAt.UTC().Format(time.RFC3339),
		acc.ID,
		acc.Version,
	)
	if err != nil {
		if isUniqueConstraintError(err) && strings.Contains(err.Error(), "accounts.student_id") {
			return &ledger.DuplicateAccountError{StudentID: acc.StudentID, Period: acc.Period}
		}
		return fmt.Errorf("failed to update account: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if affected == 0 {
		// Either the row is gone or someone else won the version race.
		var one int
		if scanErr := q.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE id = ?`, acc.ID).Scan(&one); scanErr == sql.ErrNoRows {
			return ledger.ErrAccountNotFound
		}
		return ledger.ErrConcurrentModification
	}
	return nil
}

func scanAccount(r interface{ Scan(dest ...any) error }) (ledger.LedgerAccount, error) {
	var (
		acc                ledger.LedgerAccount
		baseFee            string
		otherCharges       string
		discount           string
		scholarshipPercent string
		forwarded          string
		createdAt          string
		updatedAt          string
	)

	err := r.Scan(
		&acc.ID, &acc.StudentID, &acc.Period.Year, &acc.Period.Semester,
		&baseFee, &otherCharges, &discount, &scholarshipPercent, &forwarded,
		&acc.PaidType, &acc.Active, &acc.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return acc, err
	}

	if acc.BaseFee, err = ledger.ParseMoney(baseFee); err != nil {
		return acc, fmt.Errorf("account %s: bad base_fee: %w", acc.ID, err)
	}
	if acc.OtherCharges, err = ledger.ParseMoney(otherCharges); err != nil {
		return acc, fmt.Errorf("account %s: bad other_charges: %w", acc.ID, err)
	}
	if acc.Discount, err = ledger.ParseMoney(discount); err != nil {
		return acc, fmt.Errorf("account %s: bad discount: %w", acc.ID, err)
	}
	if acc.ScholarshipPercent, err = decimal.NewFromString(scholarshipPercent); err != nil {
		return acc, fmt.Errorf("account %s: bad scholarship_percent: %w", acc.ID, err)
	}
	if acc.Forwarded, err = ledger.ParseMoney(forwarded); err != nil {
		return acc, fmt.Errorf("account %s: bad forwarded: %w", acc.ID, err)
	}

	acc.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	acc.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return acc, nil
}

// =============================================================================
// EVENT STORE (ledger.EventStore interface)
// =============================================================================

const eventColumns = `id, student_id, academic_year, semester, amount, pay_type, method,
	status, paid_at, due_at, reference, idempotency_key, recorded_by, created_at, reversed_at, reversed_by`

// AppendEvent persists a new payment event.
func (s *Store) AppendEvent(ctx context.Context, e ledger.PaymentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendEventIn(ctx, s.db, e)
}

func (s *Store) appendEventIn(ctx context.Context, q queryer, e ledger.PaymentEvent) error {
	var dueAt sql.NullString
	if e.DueAt != nil {
		dueAt = sql.NullString{String: e.DueAt.String(), Valid: true}
	}

	query := `
		INSERT INTO payment_events (` + eventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL)
	`
	_, err := q.ExecContext(ctx, query,
		e.ID,
		e.StudentID,
		e.Period.Year,
		e.Period.Semester,
		e.Amount.String(),
		e.Type,
		e.Method,
		e.Status,
		e.PaidAt.String(),
		dueAt,
		nullString(e.Reference),
		nullString(e.IdempotencyKey),
		e.RecordedBy,
		e.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) && strings.Contains(err.Error(), "idempotency_key") {
			return ledger.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to append payment event: %w", err)
	}
	return nil
}

// Event loads by ID, reversed or not.
func (s *Store) Event(ctx context.Context, id ledger.EventID) (ledger.PaymentEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eventIn(ctx, s.db, id)
}

func (s *Store) eventIn(ctx context.Context, q queryer, id ledger.EventID) (ledger.PaymentEvent, error) {
	row := q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM payment_events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return ledger.PaymentEvent{}, &ledger.EventNotFoundError{ID: id}
	}
	return e, err
}

// MarkReversed sets the reversal marker exactly once.
func (s *Store) MarkReversed(ctx context.Context, id ledger.EventID, by ledger.ActorID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markReversedIn(ctx, s.db, id, by, at)
}

func (s *Store) markReversedIn(ctx context.Context, q queryer, id ledger.EventID, by ledger.ActorID, at time.Time) error {
	res, err := q.ExecContext(ctx, `
		UPDATE payment_events SET reversed_at = ?, reversed_by = ?
		WHERE id = ? AND reversed_at IS NULL
	`, at.UTC().Format(time.RFC3339), by, id)
	if err != nil {
		return fmt.Errorf("failed to mark event reversed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark event reversed: %w", err)
	}
	if affected == 0 {
		var reversedAt sql.NullString
		scanErr := q.QueryRowContext(ctx, `SELECT reversed_at FROM payment_events WHERE id = ?`, id).Scan(&reversedAt)
		if scanErr == sql.ErrNoRows {
			return &ledger.EventNotFoundError{ID: id}
		}
		return &ledger.EventNotFoundError{ID: id, Reversed: true}
	}
	return nil
}

// EventsByPeriod returns a student's events for one period, reversed
// included, ordered by payment date then creation time.
func (s *Store) EventsByPeriod(ctx context.Context, studentID ledger.StudentID, period ledger.AcademicPeriod) ([]ledger.PaymentEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eventsByPeriodIn(ctx, s.db, studentID, period)
}

func (s *Store) eventsByPeriodIn(ctx context.Context, q queryer, studentID ledger.StudentID, period ledger.AcademicPeriod) ([]ledger.PaymentEvent, error) {
	return s.queryEvents(ctx, q, `
		SELECT `+eventColumns+` FROM payment_events
		WHERE student_id = ? AND academic_year = ? AND semester = ?
		ORDER BY paid_at ASC, created_at ASC
	`, studentID, period.Year, period.Semester)
}

// EventsByStudent returns all of a student's events across periods.
func (s *Store) EventsByStudent(ctx context.Context, studentID ledger.StudentID) ([]ledger.PaymentEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eventsByStudentIn(ctx, s.db, studentID)
}

func (s *Store) eventsByStudentIn(ctx context.Context, q queryer, studentID ledger.StudentID) ([]ledger.PaymentEvent, error) {
	return s.queryEvents(ctx, q, `
		SELECT `+eventColumns+` FROM payment_events
		WHERE student_id = ?
		ORDER BY paid_at ASC, created_at ASC
	`, studentID)
}

func (s *Store) queryEvents(ctx context.Context, q queryer, query string, args ...any) ([]ledger.PaymentEvent, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment events: %w", err)
	}
	defer rows.Close()

	var events []ledger.PaymentEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanEvent(r interface{ Scan(dest ...any) error }) (ledger.PaymentEvent, error) {
	var (
		e              ledger.PaymentEvent
		amount         string
		paidAt         string
		dueAt          sql.NullString
		reference      sql.NullString
		idempotencyKey sql.NullString
		createdAt      string
		reversedAt     sql.NullString
		reversedBy     sql.NullString
	)

	err := r.Scan(
		&e.ID, &e.StudentID, &e.Period.Year, &e.Period.Semester,
		&amount, &e.Type, &e.Method, &e.Status,
		&paidAt, &dueAt, &reference, &idempotencyKey,
		&e.RecordedBy, &createdAt, &reversedAt, &reversedBy,
	)
	if err != nil {
		return e, err
	}

	if e.Amount, err = ledger.ParseMoney(amount); err != nil {
		return e, fmt.Errorf("event %s: bad amount: %w", e.ID, err)
	}
	if e.PaidAt, err = ledger.ParseDate(paidAt); err != nil {
		return e, fmt.Errorf("event %s: bad paid_at: %w", e.ID, err)
	}
	if dueAt.Valid {
		d, err := ledger.ParseDate(dueAt.String)
		if err != nil {
			return e, fmt.Errorf("event %s: bad due_at: %w", e.ID, err)
		}
		e.DueAt = &d
	}

	e.Reference = reference.String
	e.IdempotencyKey = idempotencyKey.String
	e.ReversedBy = ledger.ActorID(reversedBy.String)
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if reversedAt.Valid {
		t, _ := time.Parse(time.RFC3339, reversedAt.String)
		e.ReversedAt = &t
	}
	return e, nil
}

// =============================================================================
// STUDENT STORE (ledger.StudentStore interface)
// =============================================================================

// SaveStudent inserts or replaces a student record.
func (s *Store) SaveStudent(ctx context.Context, st ledger.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveStudentIn(ctx, s.db, st)
}

func (s *Store) saveStudentIn(ctx context.Context, q queryer, st ledger.Student) error {
	query := `
		INSERT INTO students (id, full_name, faculty_id, department_id, academic_year, semester, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			full_name = excluded.full_name,
			faculty_id = excluded.faculty_id,
			department_id = excluded.department_id,
			academic_year = excluded.academic_year,
			semester = excluded.semester,
			active = excluded.active,
			updated_at = excluded.updated_at
	`
	_, err := q.ExecContext(ctx, query,
		st.ID, st.FullName, st.FacultyID, st.DepartmentID,
		st.AcademicYear, st.Semester, st.Active,
		st.CreatedAt.UTC().Format(time.RFC3339),
		st.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save student: %w", err)
	}
	return nil
}

// StudentByID loads one directory record.
func (s *Store) StudentByID(ctx context.Context, id ledger.StudentID) (ledger.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.studentByIDIn(ctx, s.db, id)
}

func (s *Store) studentByIDIn(ctx context.Context, q queryer, id ledger.StudentID) (ledger.Student, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, full_name, faculty_id, department_id, academic_year, semester, active, created_at, updated_at
		FROM students WHERE id = ?
	`, id)
	st, err := scanStudent(row)
	if err == sql.ErrNoRows {
		return ledger.Student{}, ledger.ErrStudentNotFound
	}
	return st, err
}

// Students lists the directory ordered by creation time.
func (s *Store) Students(ctx context.Context) ([]ledger.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.studentsIn(ctx, s.db)
}

func (s *Store) studentsIn(ctx context.Context, q queryer) ([]ledger.Student, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, full_name, faculty_id, department_id, academic_year, semester, active, created_at, updated_at
		FROM students ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	var students []ledger.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

func scanStudent(r interface{ Scan(dest ...any) error }) (ledger.Student, error) {
	var (
		st        ledger.Student
		facultyID sql.NullString
		createdAt string
		updatedAt string
	)
	err := r.Scan(
		&st.ID, &st.FullName, &facultyID, &st.DepartmentID,
		&st.AcademicYear, &st.Semester, &st.Active, &createdAt, &updatedAt,
	)
	if err != nil {
		return st, err
	}
	st.FacultyID = facultyID.String
	st.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	st.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return st, nil
}

// =============================================================================
// AUDIT LOG (ledger.AuditLog interface)
// =============================================================================

// AppendAudit writes one audit entry.
func (s *Store) AppendAudit(ctx context.Context, entry ledger.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendAuditIn(ctx, s.db, entry)
}

func (s *Store) appendAuditIn(ctx context.Context, q queryer, entry ledger.AuditEntry) error {
	payloadJSON, _ := json.Marshal(entry.Payload)

	_, err := q.ExecContext(ctx, `
		INSERT INTO audit_entries (id, at, actor, action, student_id, account_id, payload_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID,
		entry.At.UTC().Format(time.RFC3339),
		entry.Actor,
		entry.Action,
		entry.StudentID,
		entry.AccountID,
		string(payloadJSON),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// AuditByStudent returns a student's audit trail in write order.
func (s *Store) AuditByStudent(ctx context.Context, studentID ledger.StudentID) ([]ledger.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auditByStudentIn(ctx, s.db, studentID)
}

func (s *Store) auditByStudentIn(ctx context.Context, q queryer, studentID ledger.StudentID) ([]ledger.AuditEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, at, actor, action, student_id, account_id, payload_json
		FROM audit_entries WHERE student_id = ?
		ORDER BY at ASC, rowid ASC
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.AuditEntry
	for rows.Next() {
		var (
			entry       ledger.AuditEntry
			at          string
			accountID   sql.NullString
			payloadJSON sql.NullString
		)
		if err := rows.Scan(&entry.ID, &at, &entry.Actor, &entry.Action, &entry.StudentID, &accountID, &payloadJSON); err != nil {
			return nil, err
		}
		entry.At, _ = time.Parse(time.RFC3339, at)
		entry.AccountID = ledger.AccountID(accountID.String)
		if payloadJSON.Valid && payloadJSON.String != "" {
			json.Unmarshal([]byte(payloadJSON.String), &entry.Payload)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. The writer lock is held
// for the whole body; between that and the version column, same-account
// operations cannot interleave.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, parent: s}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore scopes every call to the open transaction. It never touches the
// parent mutex; WithTx already holds it.
type txStore struct {
	tx     *sql.Tx
	parent *Store
}

func (ts *txStore) CreateAccount(ctx context.Context, acc ledger.LedgerAccount) error {
	return ts.parent.createAccountIn(ctx, ts.tx, acc)
}

func (ts *txStore) Account(ctx context.Context, id ledger.AccountID) (ledger.LedgerAccount, error) {
	return ts.parent.accountIn(ctx, ts.tx, id)
}

func (ts *txStore) ActiveAccount(ctx context.Context, studentID ledger.StudentID, period ledger.AcademicPeriod) (ledger.LedgerAccount, error) {
	return ts.parent.activeAccountIn(ctx, ts.tx, studentID, period)
}

func (ts *txStore) AccountsByStudent(ctx context.Context, studentID ledger.StudentID) ([]ledger.LedgerAccount, error) {
	return ts.parent.accountsByStudentIn(ctx, ts.tx, studentID)
}

func (ts *txStore) UpdateAccount(ctx context.Context, acc ledger.LedgerAccount) error {
	return ts.parent.updateAccountIn(ctx, ts.tx, acc)
}

func (ts *txStore) AppendEvent(ctx context.Context, e ledger.PaymentEvent) error {
	return ts.parent.appendEventIn(ctx, ts.tx, e)
}

func (ts *txStore) Event(ctx context.Context, id ledger.EventID) (ledger.PaymentEvent, error) {
	return ts.parent.eventIn(ctx, ts.tx, id)
}

func (ts *txStore) MarkReversed(ctx context.Context, id ledger.EventID, by ledger.ActorID, at time.Time) error {
	return ts.parent.markReversedIn(ctx, ts.tx, id, by, at)
}

func (ts *txStore) EventsByPeriod(ctx context.Context, studentID ledger.StudentID, period ledger.AcademicPeriod) ([]ledger.PaymentEvent, error) {
	return ts.parent.eventsByPeriodIn(ctx, ts.tx, studentID, period)
}

func (ts *txStore) EventsByStudent(ctx context.Context, studentID ledger.StudentID) ([]ledger.PaymentEvent, error) {
	return ts.parent.eventsByStudentIn(ctx, ts.tx, studentID)
}

func (ts *txStore) SaveStudent(ctx context.Context, st ledger.Student) error {
	return ts.parent.saveStudentIn(ctx, ts.tx, st)
}

func (ts *txStore) StudentByID(ctx context.Context, id ledger.StudentID) (ledger.Student, error) {
	return ts.parent.studentByIDIn(ctx, ts.tx, id)
}

func (ts *txStore) Students(ctx context.Context) ([]ledger.Student, error) {
	return ts.parent.studentsIn(ctx, ts.tx)
}

func (ts *txStore) AppendAudit(ctx context.Context, entry ledger.AuditEntry) error {
	return ts.parent.appendAuditIn(ctx, ts.tx, entry)
}

func (ts *txStore) AuditByStudent(ctx context.Context, studentID ledger.StudentID) ([]ledger.AuditEntry, error) {
	return ts.parent.auditByStudentIn(ctx, ts.tx, studentID)
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// Reset drops all rows. Demo and test hook.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"payment_events", "audit_entries", "accounts", "students"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var (
	_ ledger.Store   = (*Store)(nil)
	_ ledger.Store   = (*txStore)(nil)
	_ ledger.TxStore = (*Store)(nil)
)
