// Package store provides the in-memory Store implementation used by tests
// and demo setups.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/meridian/bursar-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	accounts    map[ledger.AccountID]ledger.LedgerAccount
	events      map[ledger.EventID]ledger.PaymentEvent
	students    map[ledger.StudentID]ledger.Student
	audits      []ledger.AuditEntry
	idempotency map[string]ledger.EventID
}

func NewMemory() *Memory {
	return &Memory{
		accounts:    make(map[ledger.AccountID]ledger.LedgerAccount),
		events:      make(map[ledger.EventID]ledger.PaymentEvent),
		students:    make(map[ledger.StudentID]ledger.Student),
		idempotency: make(map[string]ledger.EventID),
	}
}

// ----- accounts -----

func (m *Memory) CreateAccount(_ context.Context, acc ledger.LedgerAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createAccountLocked(acc)
}

func (m *Memory) createAccountLocked(acc ledger.LedgerAccount) error {
	if acc.Active {
		if existing, taken := m.activeHolderLocked(acc.StudentID, acc.Period, acc.ID); taken {
			return &ledger.DuplicateAccountError{StudentID: acc.StudentID, Period: acc.Period, Existing: existing}
		}
	}
	m.accounts[acc.ID] = acc
	return nil
}

// activeHolderLocked reports which other account, if any, holds the natural
// key actively.
func (m *Memory) activeHolderLocked(studentID ledger.StudentID, period ledger.AcademicPeriod, exclude ledger.AccountID) (ledger.AccountID, bool) {
	for id, a := range m.accounts {
		if id == exclude {
			continue
		}
		if a.Active && a.StudentID == studentID && a.Period.Equal(period) {
			return id, true
		}
	}
	return "", false
}

func (m *Memory) Account(_ context.Context, id ledger.AccountID) (ledger.LedgerAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accountLocked(id)
}

func (m *Memory) accountLocked(id ledger.AccountID) (ledger.LedgerAccount, error) {
	acc, ok := m.accounts[id]
	if !ok {
		return ledger.LedgerAccount{}, ledger.ErrAccountNotFound
	}
	return acc, nil
}

func (m *Memory) ActiveAccount(_ context.Context, studentID ledger.StudentID, period ledger.AcademicPeriod) (ledger.LedgerAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeAccountLocked(studentID, period)
}

func (m *Memory) activeAccountLocked(studentID ledger.StudentID, period ledger.AcademicPeriod) (ledger.LedgerAccount, error) {
	for _, a := range m.accounts {
		if a.Active && a.StudentID == studentID && a.Period.Equal(period) {
			return a, nil
		}
	}
	return ledger.LedgerAccount{}, ledger.ErrAccountNotFound
}

func (m *Memory) AccountsByStudent(_ context.Context, studentID ledger.StudentID) ([]ledger.LedgerAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accountsByStudentLocked(studentID), nil
}

func (m *Memory) accountsByStudentLocked(studentID ledger.StudentID) []ledger.LedgerAccount {
	var result []ledger.LedgerAccount
	for _, a := range m.accounts {
		if a.StudentID == studentID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Period.Equal(result[j].Period) {
			return result[i].Period.Before(result[j].Period)
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (m *Memory) UpdateAccount(_ context.Context, acc ledger.LedgerAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateAccountLocked(acc)
}

func (m *Memory) updateAccountLocked(acc ledger.LedgerAccount) error {
	existing, ok := m.accounts[acc.ID]
	if !ok {
		return ledger.ErrAccountNotFound
	}
	if existing.Version != acc.Version {
		return ledger.ErrConcurrentModification
	}
	if acc.Active {
		if holder, taken := m.activeHolderLocked(acc.StudentID, acc.Period, acc.ID); taken {
			return &ledger.DuplicateAccountError{StudentID: acc.StudentID, Period: acc.Period, Existing: holder}
		}
	}
	acc.Version++
	m.accounts[acc.ID] = acc
	return nil
}

// ----- payment events -----

func (m *Memory) AppendEvent(_ context.Context, e ledger.PaymentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendEventLocked(e)
}

func (m *Memory) appendEventLocked(e ledger.PaymentEvent) error {
	if e.IdempotencyKey != "" {
		if _, exists := m.idempotency[e.IdempotencyKey]; exists {
			return ledger.ErrDuplicateIdempotencyKey
		}
	}
	m.events[e.ID] = e
	if e.IdempotencyKey != "" {
		m.idempotency[e.IdempotencyKey] = e.ID
	}
	return nil
}

func (m *Memory) Event(_ context.Context, id ledger.EventID) (ledger.PaymentEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.eventLocked(id)
}

func (m *Memory) eventLocked(id ledger.EventID) (ledger.PaymentEvent, error) {
	e, ok := m.events[id]
	if !ok {
		return ledger.PaymentEvent{}, &ledger.EventNotFoundError{ID: id}
	}
	return e, nil
}

func (m *Memory) MarkReversed(_ context.Context, id ledger.EventID, by ledger.ActorID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.markReversedLocked(id, by, at)
}

func (m *Memory) markReversedLocked(id ledger.EventID, by ledger.ActorID, at time.Time) error {
	e, ok := m.events[id]
	if !ok {
		return &ledger.EventNotFoundError{ID: id}
	}
	if e.Reversed() {
		return &ledger.EventNotFoundError{ID: id, Reversed: true}
	}
	e.ReversedAt = &at
	e.ReversedBy = by
	m.events[id] = e
	return nil
}

func (m *Memory) EventsByPeriod(_ context.Context, studentID ledger.StudentID, period ledger.AcademicPeriod) ([]ledger.PaymentEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.eventsLocked(studentID, &period), nil
}

func (m *Memory) EventsByStudent(_ context.Context, studentID ledger.StudentID) ([]ledger.PaymentEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.eventsLocked(studentID, nil), nil
}

func (m *Memory) eventsLocked(studentID ledger.StudentID, period *ledger.AcademicPeriod) []ledger.PaymentEvent {
	var result []ledger.PaymentEvent
	for _, e := range m.events {
		if e.StudentID != studentID {
			continue
		}
		if period != nil && !e.Period.Equal(*period) {
			continue
		}
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].PaidAt.Equal(result[j].PaidAt) {
			return result[i].PaidAt.Before(result[j].PaidAt)
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// ----- students -----

func (m *Memory) SaveStudent(_ context.Context, s ledger.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[s.ID] = s
	return nil
}

func (m *Memory) StudentByID(_ context.Context, id ledger.StudentID) (ledger.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.studentLocked(id)
}

func (m *Memory) studentLocked(id ledger.StudentID) (ledger.Student, error) {
	s, ok := m.students[id]
	if !ok {
		return ledger.Student{}, ledger.ErrStudentNotFound
	}
	return s, nil
}

func (m *Memory) Students(_ context.Context) ([]ledger.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.studentsLocked(), nil
}

func (m *Memory) studentsLocked() []ledger.Student {
	result := make([]ledger.Student, 0, len(m.students))
	for _, s := range m.students {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// ----- audit -----

func (m *Memory) AppendAudit(_ context.Context, entry ledger.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, entry)
	return nil
}

func (m *Memory) AuditByStudent(_ context.Context, studentID ledger.StudentID) ([]ledger.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []ledger.AuditEntry
	for _, a := range m.audits {
		if a.StudentID == studentID {
			result = append(result, a)
		}
	}
	return result, nil
}

// Reset drops everything. Demo and test hook.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = make(map[ledger.AccountID]ledger.LedgerAccount)
	m.events = make(map[ledger.EventID]ledger.PaymentEvent)
	m.students = make(map[ledger.StudentID]ledger.Student)
	m.audits = nil
	m.idempotency = make(map[string]ledger.EventID)
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn under the store lock with snapshot + rollback on error.
// Holding the lock for the whole body serializes transactions, which is the
// point: same-account operations must not interleave.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	view := &txMemoryView{parent: tm.Memory}

	if err := fn(view); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

func (tm *TxMemory) snapshot() memorySnapshot {
	accounts := make(map[ledger.AccountID]ledger.LedgerAccount, len(tm.accounts))
	for k, v := range tm.accounts {
		accounts[k] = v
	}
	events := make(map[ledger.EventID]ledger.PaymentEvent, len(tm.events))
	for k, v := range tm.events {
		events[k] = v
	}
	students := make(map[ledger.StudentID]ledger.Student, len(tm.students))
	for k, v := range tm.students {
		students[k] = v
	}
	idem := make(map[string]ledger.EventID, len(tm.idempotency))
	for k, v := range tm.idempotency {
		idem[k] = v
	}
	audits := append([]ledger.AuditEntry{}, tm.audits...)
	return memorySnapshot{accounts: accounts, events: events, students: students, audits: audits, idempotency: idem}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.accounts = s.accounts
	tm.events = s.events
	tm.students = s.students
	tm.audits = s.audits
	tm.idempotency = s.idempotency
}

type memorySnapshot struct {
	accounts    map[ledger.AccountID]ledger.LedgerAccount
	events      map[ledger.EventID]ledger.PaymentEvent
	students    map[ledger.StudentID]ledger.Student
	audits      []ledger.AuditEntry
	idempotency map[string]ledger.EventID
}

// txMemoryView gives the transaction body lock-free access to the already
// locked parent store.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) CreateAccount(_ context.Context, acc ledger.LedgerAccount) error {
	return tv.parent.createAccountLocked(acc)
}

func (tv *txMemoryView) Account(_ context.Context, id ledger.AccountID) (ledger.LedgerAccount, error) {
	return tv.parent.accountLocked(id)
}

func (tv *txMemoryView) ActiveAccount(_ context.Context, studentID ledger.StudentID, period ledger.AcademicPeriod) (ledger.LedgerAccount, error) {
	return tv.parent.activeAccountLocked(studentID, period)
}

func (tv *txMemoryView) AccountsByStudent(_ context.Context, studentID ledger.StudentID) ([]ledger.LedgerAccount, error) {
	return tv.parent.accountsByStudentLocked(studentID), nil
}

func (tv *txMemoryView) UpdateAccount(_ context.Context, acc ledger.LedgerAccount) error {
	return tv.parent.updateAccountLocked(acc)
}

func (tv *txMemoryView) AppendEvent(_ context.Context, e ledger.PaymentEvent) error {
	return tv.parent.appendEventLocked(e)
}

func (tv *txMemoryView) Event(_ context.Context, id ledger.EventID) (ledger.PaymentEvent, error) {
	return tv.parent.eventLocked(id)
}

func (tv *txMemoryView) MarkReversed(_ context.Context, id ledger.EventID, by ledger.ActorID, at time.Time) error {
	return tv.parent.markReversedLocked(id, by, at)
}

func (tv *txMemoryView) EventsByPeriod(_ context.Context, studentID ledger.StudentID, period ledger.AcademicPeriod) ([]ledger.PaymentEvent, error) {
	return tv.parent.eventsLocked(studentID, &period), nil
}

func (tv *txMemoryView) EventsByStudent(_ context.Context, studentID ledger.StudentID) ([]ledger.PaymentEvent, error) {
	return tv.parent.eventsLocked(studentID, nil), nil
}

func (tv *txMemoryView) SaveStudent(_ context.Context, s ledger.Student) error {
	tv.parent.students[s.ID] = s
	return nil
}

func (tv *txMemoryView) StudentByID(_ context.Context, id ledger.StudentID) (ledger.Student, error) {
	return tv.parent.studentLocked(id)
}

func (tv *txMemoryView) Students(_ context.Context) ([]ledger.Student, error) {
	return tv.parent.studentsLocked(), nil
}

func (tv *txMemoryView) AppendAudit(_ context.Context, entry ledger.AuditEntry) error {
	tv.parent.audits = append(tv.parent.audits, entry)
	return nil
}

func (tv *txMemoryView) AuditByStudent(_ context.Context, studentID ledger.StudentID) ([]ledger.AuditEntry, error) {
	var result []ledger.AuditEntry
	for _, a := range tv.parent.audits {
		if a.StudentID == studentID {
			result = append(result, a)
		}
	}
	return result, nil
}

var (
	_ ledger.Store   = (*Memory)(nil)
	_ ledger.Store   = (*txMemoryView)(nil)
	_ ledger.TxStore = (*TxMemory)(nil)
)
