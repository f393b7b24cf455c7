/*
service.go - Bursar operations with transactional guarantees

PURPOSE:
  The Service is the single write path into a student's financial state.
  Every operation follows the same shape:
    1. open a store transaction
    2. load and validate
    3. mutate facts (account fields or journal entries)
    4. version-bump the owning account
    5. recompute the derived view
    6. append an audit entry
  If ANY step fails, the transaction rolls back whole.

CONCURRENCY:
  The account version bump is the serialization point. Two operations on the
  same account cannot both commit against the same version; the loser gets
  ErrConcurrentModification and the service retries it on fresh state, a
  bounded number of times. Operations on different accounts never contend.

READS:
  Snapshot and history calls write nothing. Fetching a snapshot twice in a
  row with no interleaving mutation returns the same figures.

SEE ALSO:
  - ledger/account.go: Recompute, the pure derivation
  - ledger/journal.go: payment validation and reversal semantics
  - rollover.go: term close-out and carry-forward
*/
package bursar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian/bursar-engine/ledger"
)

// defaultRetries bounds optimistic-concurrency retries per operation.
const defaultRetries = 3

type Service struct {
	Store    ledger.TxStore
	Catalog  Catalog
	Calendar Calendar
	Identity Identity

	// Retries overrides the optimistic retry budget when > 0.
	Retries int

	// Now is the clock; tests pin it. Nil means time.Now.
	Now func() time.Time
}

func New(store ledger.TxStore, catalog Catalog, calendar Calendar, identity Identity) *Service {
	return &Service{Store: store, Catalog: catalog, Calendar: calendar, Identity: identity}
}

func (s *Service) timeNow() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) actor(ctx context.Context) ledger.ActorID {
	if s.Identity == nil {
		return SystemActor
	}
	if actor := s.Identity.CurrentActor(ctx); actor != "" {
		return actor
	}
	return SystemActor
}

// dueDate resolves the period deadline. An unconfigured period is not an
// error here: the account simply has no deadline, so it cannot be overdue.
func (s *Service) dueDate(ctx context.Context, period ledger.AcademicPeriod) (*ledger.Date, error) {
	if s.Calendar == nil {
		return nil, nil
	}
	d, err := s.Calendar.PaymentDueDate(ctx, period)
	if err != nil {
		if errors.Is(err, ledger.ErrDueDateNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func (s *Service) retry(op func() error) error {
	attempts := s.Retries
	if attempts <= 0 {
		attempts = defaultRetries
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = op()
		if err == nil || !ledger.IsRetryable(err) {
			return err
		}
	}
	return err
}

func (s *Service) auditEntry(ctx context.Context, action ledger.AuditAction, acc ledger.LedgerAccount, payload map[string]any, at time.Time) ledger.AuditEntry {
	return ledger.AuditEntry{
		ID:        uuid.NewString(),
		At:        at,
		Actor:     s.actor(ctx),
		Action:    action,
		StudentID: acc.StudentID,
		AccountID: acc.ID,
		Payload:   payload,
	}
}

// =============================================================================
// ACCOUNT LIFECYCLE
// =============================================================================

type CreateAccountInput struct {
	StudentID ledger.StudentID
	Period    ledger.AcademicPeriod

	// BaseFee nil means price from the catalog using the student's
	// department. A missing catalog entry fails the operation.
	BaseFee  *ledger.Money
	PaidType ledger.PaidType
}

// CreateAccount opens the term account for a student. At most one active
// account may hold the (student, year, semester) key.
func (s *Service) CreateAccount(ctx context.Context, in CreateAccountInput) (ledger.Snapshot, error) {
	var snap ledger.Snapshot
	err := s.retry(func() error {
		return s.Store.WithTx(ctx, func(st ledger.Store) error {
			student, err := st.StudentByID(ctx, in.StudentID)
			if err != nil {
				return err
			}
			if !student.Active {
				return fmt.Errorf("student %s: %w", student.ID, ledger.ErrInactiveStudent)
			}

			fee, err := s.resolveBaseFee(ctx, in.BaseFee, student.DepartmentID, in.Period)
			if err != nil {
				return err
			}

			now := s.timeNow()
			acc, err := ledger.NewAccount(ledger.AccountID(uuid.NewString()), in.StudentID, in.Period, fee, in.PaidType, now)
			if err != nil {
				return err
			}
			if err := st.CreateAccount(ctx, acc); err != nil {
				return err
			}

			snap, err = s.recomputeIn(ctx, st, acc, now)
			if err != nil {
				return err
			}
			return st.AppendAudit(ctx, s.auditEntry(ctx, ledger.AuditAccountCreated, acc, map[string]any{
				"period":    acc.Period.Key(),
				"base_fee":  acc.BaseFee.String(),
				"paid_type": string(acc.PaidType),
			}, now))
		})
	})
	return snap, err
}

// resolveBaseFee prefers an explicit fee and otherwise consults the catalog.
// There is no zero-fee fallback on a catalog miss; the error surfaces.
func (s *Service) resolveBaseFee(ctx context.Context, explicit *ledger.Money, departmentID string, period ledger.AcademicPeriod) (ledger.Money, error) {
	if explicit != nil {
		return *explicit, nil
	}
	if s.Catalog == nil {
		return ledger.Money{}, fmt.Errorf("no catalog configured: %w", ledger.ErrFeeScheduleNotFound)
	}
	return s.Catalog.BaseFee(ctx, departmentID, period)
}

// recomputeIn derives the fresh snapshot of acc inside the transaction st.
func (s *Service) recomputeIn(ctx context.Context, st ledger.Store, acc ledger.LedgerAccount, now time.Time) (ledger.Snapshot, error) {
	due, err := s.dueDate(ctx, acc.Period)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	events, err := st.EventsByPeriod(ctx, acc.StudentID, acc.Period)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	return ledger.Recompute(acc, events, due, ledger.DateOf(now)), nil
}

// mutateAccount is the shared shape of every fact mutation on an existing
// account: load, guard, mutate, version-bump, recompute, audit. The mutate
// callback runs inside the transaction and returns the audit payload.
func (s *Service) mutateAccount(ctx context.Context, id ledger.AccountID, action ledger.AuditAction, mutate func(st ledger.Store, acc *ledger.LedgerAccount) (map[string]any, error)) (ledger.Snapshot, error) {
	var snap ledger.Snapshot
	err := s.retry(func() error {
		return s.Store.WithTx(ctx, func(st ledger.Store) error {
			acc, err := st.Account(ctx, id)
			if err != nil {
				return err
			}
			if !acc.Active {
				return fmt.Errorf("account %s: %w", id, ledger.ErrInactiveAccount)
			}

			payload, err := mutate(st, &acc)
			if err != nil {
				return err
			}

			now := s.timeNow()
			acc.UpdatedAt = now
			if err := st.UpdateAccount(ctx, acc); err != nil {
				return err
			}
			acc.Version++

			snap, err = s.recomputeIn(ctx, st, acc, now)
			if err != nil {
				return err
			}
			return st.AppendAudit(ctx, s.auditEntry(ctx, action, acc, payload, now))
		})
	})
	return snap, err
}

// SetPaidType relabels the billing cadence.
func (s *Service) SetPaidType(ctx context.Context, id ledger.AccountID, pt ledger.PaidType) (ledger.Snapshot, error) {
	return s.mutateAccount(ctx, id, ledger.AuditPaidTypeChanged, func(_ ledger.Store, acc *ledger.LedgerAccount) (map[string]any, error) {
		from := acc.PaidType
		if err := acc.SetPaidType(pt); err != nil {
			return nil, err
		}
		return map[string]any{"from": string(from), "to": string(pt)}, nil
	})
}

// Deactivate closes the account to further mutation. History stays.
func (s *Service) Deactivate(ctx context.Context, id ledger.AccountID) (ledger.Snapshot, error) {
	return s.mutateAccount(ctx, id, ledger.AuditAccountDeactivated, func(_ ledger.Store, acc *ledger.LedgerAccount) (map[string]any, error) {
		acc.Deactivate()
		return map[string]any{"period": acc.Period.Key()}, nil
	})
}

// Reactivate reopens a deactivated account. Fails with ErrDuplicateAccount
// if another active account has taken the key since. Reactivating an
// already-active account returns its snapshot and writes nothing.
func (s *Service) Reactivate(ctx context.Context, id ledger.AccountID) (ledger.Snapshot, error) {
	var snap ledger.Snapshot
	err := s.retry(func() error {
		return s.Store.WithTx(ctx, func(st ledger.Store) error {
			acc, err := st.Account(ctx, id)
			if err != nil {
				return err
			}
			now := s.timeNow()
			if acc.Active {
				snap, err = s.recomputeIn(ctx, st, acc, now)
				return err
			}

			acc.Reactivate()
			acc.UpdatedAt = now
			if err := st.UpdateAccount(ctx, acc); err != nil {
				return err
			}
			acc.Version++

			snap, err = s.recomputeIn(ctx, st, acc, now)
			if err != nil {
				return err
			}
			return st.AppendAudit(ctx, s.auditEntry(ctx, ledger.AuditAccountReactivated, acc, map[string]any{
				"period": acc.Period.Key(),
			}, now))
		})
	})
	return snap, err
}

// =============================================================================
// ADJUSTMENTS
// =============================================================================

// ApplyDiscountAmount freezes an absolute discount on the account.
func (s *Service) ApplyDiscountAmount(ctx context.Context, id ledger.AccountID, amount ledger.Money) (ledger.Snapshot, error) {
	return s.mutateAccount(ctx, id, ledger.AuditDiscountApplied, func(_ ledger.Store, acc *ledger.LedgerAccount) (map[string]any, error) {
		if err := acc.ApplyDiscountAmount(amount); err != nil {
			return nil, err
		}
		return map[string]any{"discount": amount.String()}, nil
	})
}

// ApplyDiscountPercent converts a percentage of the current base fee into a
// frozen discount amount.
func (s *Service) ApplyDiscountPercent(ctx context.Context, id ledger.AccountID, percent decimal.Decimal) (ledger.Snapshot, error) {
	return s.mutateAccount(ctx, id, ledger.AuditDiscountApplied, func(_ ledger.Store, acc *ledger.LedgerAccount) (map[string]any, error) {
		if err := acc.ApplyDiscountPercent(percent); err != nil {
			return nil, err
		}
		return map[string]any{"percent": percent.String(), "discount": acc.Discount.String()}, nil
	})
}

// ApplyScholarship stores a floating scholarship percentage.
func (s *Service) ApplyScholarship(ctx context.Context, id ledger.AccountID, percent decimal.Decimal) (ledger.Snapshot, error) {
	return s.mutateAccount(ctx, id, ledger.AuditScholarshipApplied, func(_ ledger.Store, acc *ledger.LedgerAccount) (map[string]any, error) {
		if err := acc.ApplyScholarship(percent); err != nil {
			return nil, err
		}
		return map[string]any{"percent": percent.String()}, nil
	})
}

// ApplyForwarded sets the signed carry-in from a prior period.
func (s *Service) ApplyForwarded(ctx context.Context, id ledger.AccountID, amount ledger.Money) (ledger.Snapshot, error) {
	return s.mutateAccount(ctx, id, ledger.AuditForwardedApplied, func(_ ledger.Store, acc *ledger.LedgerAccount) (map[string]any, error) {
		acc.ApplyForwarded(amount)
		return map[string]any{"forwarded": amount.String()}, nil
	})
}

// AddCharge accumulates a non-tuition charge.
func (s *Service) AddCharge(ctx context.Context, id ledger.AccountID, amount ledger.Money, note string) (ledger.Snapshot, error) {
	return s.mutateAccount(ctx, id, ledger.AuditChargeAdded, func(_ ledger.Store, acc *ledger.LedgerAccount) (map[string]any, error) {
		if err := acc.AddCharge(amount); err != nil {
			return nil, err
		}
		return map[string]any{"charge": amount.String(), "note": note}, nil
	})
}

// Reprice replaces the base fee: explicitly, or from the catalog when fee is
// nil. The scholarship floats to the new fee; the frozen discount does not.
func (s *Service) Reprice(ctx context.Context, id ledger.AccountID, fee *ledger.Money) (ledger.Snapshot, error) {
	return s.mutateAccount(ctx, id, ledger.AuditAccountRepriced, func(st ledger.Store, acc *ledger.LedgerAccount) (map[string]any, error) {
		newFee := ledger.Money{}
		if fee != nil {
			newFee = *fee
		} else {
			student, err := st.StudentByID(ctx, acc.StudentID)
			if err != nil {
				return nil, err
			}
			newFee, err = s.resolveBaseFee(ctx, nil, student.DepartmentID, acc.Period)
			if err != nil {
				return nil, err
			}
		}
		from := acc.BaseFee
		if err := acc.Reprice(newFee); err != nil {
			return nil, err
		}
		return map[string]any{"from": from.String(), "to": newFee.String()}, nil
	})
}

// =============================================================================
// PAYMENTS
// =============================================================================

type RecordPaymentInput struct {
	StudentID ledger.StudentID

	// Period nil targets the student's latest active account.
	Period *ledger.AcademicPeriod

	Amount ledger.Money
	PaidAt ledger.Date
	Type   ledger.PaymentType
	Method ledger.PaymentMethod

	Reference      string
	IdempotencyKey string
}

// RecordPayment appends a journal event and recomputes the owning account in
// one transaction. The event inherits the account's period, so aggregation
// and the account can never disagree about scope.
func (s *Service) RecordPayment(ctx context.Context, in RecordPaymentInput) (ledger.PaymentEvent, ledger.Snapshot, error) {
	var (
		event ledger.PaymentEvent
		snap  ledger.Snapshot
	)
	err := s.retry(func() error {
		return s.Store.WithTx(ctx, func(st ledger.Store) error {
			acc, err := s.resolveAccount(ctx, st, in.StudentID, in.Period)
			if err != nil {
				return err
			}

			now := s.timeNow()
			due, err := s.dueDate(ctx, acc.Period)
			if err != nil {
				return err
			}
			event = ledger.PaymentEvent{
				ID:             ledger.EventID(uuid.NewString()),
				StudentID:      acc.StudentID,
				Period:         acc.Period,
				Amount:         in.Amount,
				Type:           in.Type,
				Method:         in.Method,
				Status:         ledger.StatusPaid,
				PaidAt:         in.PaidAt,
				DueAt:          due,
				Reference:      in.Reference,
				IdempotencyKey: in.IdempotencyKey,
				RecordedBy:     s.actor(ctx),
				CreatedAt:      now,
			}
			if err := ledger.NewJournal(st).Record(ctx, event); err != nil {
				return err
			}

			// The version bump is what serializes concurrent journal writes
			// against the same account.
			acc.UpdatedAt = now
			if err := st.UpdateAccount(ctx, acc); err != nil {
				return err
			}
			acc.Version++

			snap, err = s.recomputeIn(ctx, st, acc, now)
			if err != nil {
				return err
			}
			return st.AppendAudit(ctx, s.auditEntry(ctx, ledger.AuditPaymentRecorded, acc, map[string]any{
				"event_id": string(event.ID),
				"amount":   event.Amount.String(),
				"type":     string(event.Type),
				"method":   string(event.Method),
			}, now))
		})
	})
	if err != nil {
		return ledger.PaymentEvent{}, ledger.Snapshot{}, err
	}
	return event, snap, nil
}

// ReversePayment marks an event reversed and recomputes the owning account
// in one transaction. The account may already be deactivated; corrections
// to the journal stay possible for as long as the history exists.
func (s *Service) ReversePayment(ctx context.Context, eventID ledger.EventID) (ledger.PaymentEvent, ledger.Snapshot, error) {
	var (
		event ledger.PaymentEvent
		snap  ledger.Snapshot
	)
	err := s.retry(func() error {
		return s.Store.WithTx(ctx, func(st ledger.Store) error {
			now := s.timeNow()
			reversed, err := ledger.NewJournal(st).Reverse(ctx, eventID, s.actor(ctx), now)
			if err != nil {
				return err
			}
			event = reversed

			acc, err := s.accountForPeriod(ctx, st, event.StudentID, event.Period)
			if err != nil {
				return err
			}
			acc.UpdatedAt = now
			if err := st.UpdateAccount(ctx, acc); err != nil {
				return err
			}
			acc.Version++

			snap, err = s.recomputeIn(ctx, st, acc, now)
			if err != nil {
				return err
			}
			return st.AppendAudit(ctx, s.auditEntry(ctx, ledger.AuditPaymentReversed, acc, map[string]any{
				"event_id": string(event.ID),
				"amount":   event.Amount.String(),
			}, now))
		})
	})
	if err != nil {
		return ledger.PaymentEvent{}, ledger.Snapshot{}, err
	}
	return event, snap, nil
}

// resolveAccount targets a payment: an explicit period, or the latest active
// account when the caller did not name one.
func (s *Service) resolveAccount(ctx context.Context, st ledger.Store, studentID ledger.StudentID, period *ledger.AcademicPeriod) (ledger.LedgerAccount, error) {
	if period != nil {
		return st.ActiveAccount(ctx, studentID, *period)
	}
	accounts, err := st.AccountsByStudent(ctx, studentID)
	if err != nil {
		return ledger.LedgerAccount{}, err
	}
	for i := len(accounts) - 1; i >= 0; i-- {
		if accounts[i].Active {
			return accounts[i], nil
		}
	}
	return ledger.LedgerAccount{}, fmt.Errorf("student %s has no active account: %w", studentID, ledger.ErrAccountNotFound)
}

// accountForPeriod finds the account owning a period's journal, preferring
// the active one but accepting a deactivated owner for reversals.
func (s *Service) accountForPeriod(ctx context.Context, st ledger.Store, studentID ledger.StudentID, period ledger.AcademicPeriod) (ledger.LedgerAccount, error) {
	acc, err := st.ActiveAccount(ctx, studentID, period)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, ledger.ErrAccountNotFound) {
		return ledger.LedgerAccount{}, err
	}
	accounts, err := st.AccountsByStudent(ctx, studentID)
	if err != nil {
		return ledger.LedgerAccount{}, err
	}
	for i := len(accounts) - 1; i >= 0; i-- {
		if accounts[i].Period.Equal(period) {
			return accounts[i], nil
		}
	}
	return ledger.LedgerAccount{}, fmt.Errorf("no account for student %s in %s: %w", studentID, period, ledger.ErrAccountNotFound)
}

// =============================================================================
// READS - No observable effect
// =============================================================================

// AccountSnapshot recomputes the full derived view of one account.
func (s *Service) AccountSnapshot(ctx context.Context, id ledger.AccountID) (ledger.Snapshot, error) {
	acc, err := s.Store.Account(ctx, id)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	return s.recomputeIn(ctx, s.Store, acc, s.timeNow())
}

// ActiveAccountSnapshot recomputes the active account for a natural key.
func (s *Service) ActiveAccountSnapshot(ctx context.Context, studentID ledger.StudentID, period ledger.AcademicPeriod) (ledger.Snapshot, error) {
	acc, err := s.Store.ActiveAccount(ctx, studentID, period)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	return s.recomputeIn(ctx, s.Store, acc, s.timeNow())
}

// PaymentHistory lists every journal event of a student, reversed entries
// included.
func (s *Service) PaymentHistory(ctx context.Context, studentID ledger.StudentID) ([]ledger.PaymentEvent, error) {
	return s.Store.EventsByStudent(ctx, studentID)
}

// AuditTrail lists the audit entries recorded for a student's accounts.
func (s *Service) AuditTrail(ctx context.Context, studentID ledger.StudentID) ([]ledger.AuditEntry, error) {
	return s.Store.AuditByStudent(ctx, studentID)
}

// =============================================================================
// STUDENT DIRECTORY - Boundary plumbing
// =============================================================================

// RegisterStudent stores a boundary student record, minting an ID when the
// caller has none. New registrations are active.
func (s *Service) RegisterStudent(ctx context.Context, student ledger.Student) (ledger.Student, error) {
	if student.ID == "" {
		student.ID = ledger.StudentID(uuid.NewString())
	}
	now := s.timeNow()
	student.Active = true
	student.CreatedAt = now
	student.UpdatedAt = now
	if err := s.Store.SaveStudent(ctx, student); err != nil {
		return ledger.Student{}, err
	}
	return student, nil
}
