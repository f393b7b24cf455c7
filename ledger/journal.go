/*
journal.go - The payment journal

PURPOSE:
  The journal is the source of truth for money received. Every payment is an
  immutable event; the paid amount of an account is always computed by
  summing events, never maintained as a counter that can drift.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: events are never edited or deleted
  2. REVERSAL-ONLY CORRECTION: a mis-entered payment gets a reversal marker;
     it drops out of aggregation but stays in history
  3. STRICTLY POSITIVE: a payment event records money received, never a
     negative correction (that is what reversal is for)

EXAMPLE FLOW:
  1. Student pays 400.00 tuition        -> event e1, aggregate = 400.00
  2. Clerk typed the wrong student      -> Reverse(e1), aggregate = 0.00
  3. Payment re-entered correctly       -> event e2, aggregate = 400.00

  History still shows e1 with its reversal marker; nothing vanished.

SEE ALSO:
  - store.go: the EventStore this journal drives
  - account.go: Recompute consumes the journal's period slice
*/
package ledger

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// PAYMENT JOURNAL
// =============================================================================

// PaymentJournal records, reverses, and aggregates payment events.
// Corrections happen via Reverse, never by editing.
type PaymentJournal interface {
	// Record validates and appends a payment event.
	Record(ctx context.Context, e PaymentEvent) error

	// Reverse marks an event as excluded from aggregation, exactly once, and
	// returns the marked event. Missing or already-reversed events fail with
	// ErrEventNotFound.
	Reverse(ctx context.Context, id EventID, by ActorID, at time.Time) (PaymentEvent, error)

	// Aggregate sums the non-reversed event amounts of one student and
	// period. No events means zero, not an error.
	Aggregate(ctx context.Context, studentID StudentID, period AcademicPeriod) (Money, error)

	// PeriodEvents returns the full period slice, reversed entries included.
	PeriodEvents(ctx context.Context, studentID StudentID, period AcademicPeriod) ([]PaymentEvent, error)

	// History returns every event of a student across periods.
	History(ctx context.Context, studentID StudentID) ([]PaymentEvent, error)
}

// =============================================================================
// DEFAULT JOURNAL - Implementation using EventStore
// =============================================================================

type DefaultJournal struct {
	Events EventStore
}

func NewJournal(events EventStore) *DefaultJournal {
	return &DefaultJournal{Events: events}
}

func (j *DefaultJournal) Record(ctx context.Context, e PaymentEvent) error {
	if err := validateEvent(e); err != nil {
		return err
	}
	return j.Events.AppendEvent(ctx, e)
}

func (j *DefaultJournal) Reverse(ctx context.Context, id EventID, by ActorID, at time.Time) (PaymentEvent, error) {
	e, err := j.Events.Event(ctx, id)
	if err != nil {
		return PaymentEvent{}, err
	}
	if e.Reversed() {
		return PaymentEvent{}, &EventNotFoundError{ID: id, Reversed: true}
	}
	if err := j.Events.MarkReversed(ctx, id, by, at); err != nil {
		return PaymentEvent{}, err
	}
	e.ReversedAt = &at
	e.ReversedBy = by
	return e, nil
}

func (j *DefaultJournal) Aggregate(ctx context.Context, studentID StudentID, period AcademicPeriod) (Money, error) {
	events, err := j.Events.EventsByPeriod(ctx, studentID, period)
	if err != nil {
		return Money{}, err
	}
	total := Money{}
	for _, e := range events {
		if e.Reversed() {
			continue
		}
		total = total.Add(e.Amount)
	}
	return total, nil
}

func (j *DefaultJournal) PeriodEvents(ctx context.Context, studentID StudentID, period AcademicPeriod) ([]PaymentEvent, error) {
	return j.Events.EventsByPeriod(ctx, studentID, period)
}

func (j *DefaultJournal) History(ctx context.Context, studentID StudentID) ([]PaymentEvent, error) {
	return j.Events.EventsByStudent(ctx, studentID)
}

// validateEvent enforces the journal's closed sets and the strictly-positive
// amount rule before anything touches the store.
func validateEvent(e PaymentEvent) error {
	if e.ID == "" {
		return fmt.Errorf("payment event: missing id")
	}
	if e.StudentID == "" {
		return fmt.Errorf("payment event: missing student id")
	}
	if e.Period.IsZero() {
		return fmt.Errorf("payment event: missing academic period")
	}
	if !e.Amount.IsPositive() {
		return fmt.Errorf("%w: got %s", ErrNonPositiveAmount, e.Amount)
	}
	if !e.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPaymentType, e.Type)
	}
	if !e.Method.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, e.Method)
	}
	if e.PaidAt.IsZero() {
		return fmt.Errorf("payment event: missing payment date")
	}
	return nil
}

var _ PaymentJournal = (*DefaultJournal)(nil)
