package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/meridian/bursar-engine/ledger"
	"github.com/meridian/bursar-engine/ledger/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================
// Fixture builders (tuitionPayment and friends) live in account_test.go.

func newTestJournal() *ledger.DefaultJournal {
	return ledger.NewJournal(store.NewMemory())
}

// =============================================================================
// RECORDING
// =============================================================================

func TestJournalRecord_AppendsAndAggregates(t *testing.T) {
	// GIVEN: an empty journal
	// WHEN: recording a 400.00 tuition payment
	// THEN: the period aggregate reflects it

	ctx := context.Background()
	j := newTestJournal()

	if err := j.Record(ctx, tuitionPayment("evt-1", "400.00", 20)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	total, err := j.Aggregate(ctx, testStudent, fallTerm())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !total.Equal(ledger.MustMoney("400.00")) {
		t.Errorf("expected aggregate 400.00, got %s", total)
	}
}

func TestJournalRecord_RejectsIncompleteEvents(t *testing.T) {
	// Closed sets and required fields are enforced before the store is touched.
	ctx := context.Background()
	j := newTestJournal()

	cases := []struct {
		name   string
		mutate func(*ledger.PaymentEvent)
		want   error // nil means any error is acceptable
	}{
		{"missing id", func(e *ledger.PaymentEvent) { e.ID = "" }, nil},
		{"missing student", func(e *ledger.PaymentEvent) { e.StudentID = "" }, nil},
		{"missing period", func(e *ledger.PaymentEvent) { e.Period = ledger.AcademicPeriod{} }, nil},
		{"missing payment date", func(e *ledger.PaymentEvent) { e.PaidAt = ledger.Date{} }, nil},
		{"zero amount", func(e *ledger.PaymentEvent) { e.Amount = ledger.Money{} }, ledger.ErrNonPositiveAmount},
		{"negative amount", func(e *ledger.PaymentEvent) { e.Amount = ledger.MustMoney("-10.00") }, ledger.ErrNonPositiveAmount},
		{"unknown type", func(e *ledger.PaymentEvent) { e.Type = "lottery" }, ledger.ErrUnknownPaymentType},
		{"unknown method", func(e *ledger.PaymentEvent) { e.Method = "crypto" }, ledger.ErrUnknownPaymentMethod},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			e := tuitionPayment("evt-bad", "400.00", 20)
			c.mutate(&e)

			err := j.Record(ctx, e)
			if err == nil {
				t.Fatal("expected error, got none")
			}
			if c.want != nil && !errors.Is(err, c.want) {
				t.Errorf("expected %v, got %v", c.want, err)
			}
		})
	}

	// None of the rejected events should have reached the store.
	events, err := j.History(ctx, testStudent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected empty journal, got %d events", len(events))
	}
}

func TestJournalRecord_IdempotencyKeyReplay(t *testing.T) {
	// GIVEN: a payment recorded with an idempotency key
	// WHEN: the same submission is retried
	// THEN: the retry fails with the duplicate-key conflict and nothing doubles

	ctx := context.Background()
	j := newTestJournal()

	first := tuitionPayment("evt-1", "400.00", 20)
	first.IdempotencyKey = "receipt-778"
	if err := j.Record(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	retry := tuitionPayment("evt-2", "400.00", 20)
	retry.IdempotencyKey = "receipt-778"
	if err := j.Record(ctx, retry); !errors.Is(err, ledger.ErrDuplicateIdempotencyKey) {
		t.Fatalf("expected ErrDuplicateIdempotencyKey, got %v", err)
	}

	total, err := j.Aggregate(ctx, testStudent, fallTerm())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !total.Equal(ledger.MustMoney("400.00")) {
		t.Errorf("expected aggregate 400.00 after replay, got %s", total)
	}
}

// =============================================================================
// REVERSAL - the only correction path
// =============================================================================

func TestJournalReverse_DropsFromAggregationKeepsHistory(t *testing.T) {
	// GIVEN: payments of 400.00 and 600.00
	// WHEN: reversing the first
	// THEN: the aggregate drops to 600.00 but both events remain visible

	ctx := context.Background()
	j := newTestJournal()
	reversedAt := time.Date(2025, time.October, 1, 9, 0, 0, 0, time.UTC)

	if err := j.Record(ctx, tuitionPayment("evt-1", "400.00", 20)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := j.Record(ctx, tuitionPayment("evt-2", "600.00", 25)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e, err := j.Reverse(ctx, "evt-1", testClerk, reversedAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.Reversed() || e.ReversedBy != testClerk {
		t.Errorf("returned event should carry the reversal marker, got %+v", e)
	}

	total, err := j.Aggregate(ctx, testStudent, fallTerm())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !total.Equal(ledger.MustMoney("600.00")) {
		t.Errorf("expected aggregate 600.00, got %s", total)
	}

	events, err := j.PeriodEvents(ctx, testStudent, fallTerm())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events in history, got %d", len(events))
	}
	if !events[0].Reversed() {
		t.Error("the earlier payment should show its reversal marker")
	}
}

func TestJournalReverse_ExactlyOnce(t *testing.T) {
	// GIVEN: a reversed event
	// WHEN: reversing it again
	// THEN: the second attempt fails as not-found with the reversed flag

	ctx := context.Background()
	j := newTestJournal()
	at := time.Date(2025, time.October, 1, 9, 0, 0, 0, time.UTC)

	if err := j.Record(ctx, tuitionPayment("evt-1", "400.00", 20)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := j.Reverse(ctx, "evt-1", testClerk, at); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := j.Reverse(ctx, "evt-1", testClerk, at)
	if !errors.Is(err, ledger.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
	var notFound *ledger.EventNotFoundError
	if !errors.As(err, &notFound) || !notFound.Reversed {
		t.Errorf("expected already-reversed detail, got %v", err)
	}
}

func TestJournalReverse_MissingEvent(t *testing.T) {
	ctx := context.Background()
	j := newTestJournal()

	_, err := j.Reverse(ctx, "evt-ghost", testClerk, time.Now())
	if !errors.Is(err, ledger.ErrEventNotFound) {
		t.Errorf("expected ErrEventNotFound, got %v", err)
	}
}

// =============================================================================
// AGGREGATION AND HISTORY
// =============================================================================

func TestJournalAggregate_EmptyPeriodIsZero(t *testing.T) {
	// No events means zero money received, not an error.
	ctx := context.Background()
	j := newTestJournal()

	total, err := j.Aggregate(ctx, testStudent, fallTerm())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !total.IsZero() {
		t.Errorf("expected zero, got %s", total)
	}
}

func TestJournalHistory_SpansPeriods(t *testing.T) {
	// GIVEN: payments in semester 1 and semester 2
	// WHEN: reading per-period slices and the full history
	// THEN: aggregation stays scoped while history crosses periods

	ctx := context.Background()
	j := newTestJournal()

	if err := j.Record(ctx, tuitionPayment("evt-1", "400.00", 20)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	spring := tuitionPayment("evt-2", "700.00", 25)
	spring.Period = springTerm()
	if err := j.Record(ctx, spring); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fall, err := j.Aggregate(ctx, testStudent, fallTerm())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fall.Equal(ledger.MustMoney("400.00")) {
		t.Errorf("expected fall aggregate 400.00, got %s", fall)
	}

	periodEvents, err := j.PeriodEvents(ctx, testStudent, springTerm())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(periodEvents) != 1 || periodEvents[0].ID != "evt-2" {
		t.Errorf("expected only the spring payment, got %v", periodEvents)
	}

	history, err := j.History(ctx, testStudent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("expected 2 events across periods, got %d", len(history))
	}
}

// =============================================================================
// CLOSED ENUM PARSING
// =============================================================================

func TestParsePaymentEnums(t *testing.T) {
	if _, err := ledger.ParsePaymentType("tuition"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ledger.ParsePaymentType("bitcoin"); !errors.Is(err, ledger.ErrUnknownPaymentType) {
		t.Errorf("expected ErrUnknownPaymentType, got %v", err)
	}
	if _, err := ledger.ParsePaymentMethod("bank_transfer"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ledger.ParsePaymentMethod("barter"); !errors.Is(err, ledger.ErrUnknownPaymentMethod) {
		t.Errorf("expected ErrUnknownPaymentMethod, got %v", err)
	}
	if _, err := ledger.ParsePaidType("per-semester"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ledger.ParsePaidType("weekly"); !errors.Is(err, ledger.ErrInvalidPaidType) {
		t.Errorf("expected ErrInvalidPaidType, got %v", err)
	}
}
