package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/scolaris/tuition-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func money(n int64) engine.Money {
	return engine.NewMoney(n)
}

func date(year int, month time.Month, day int) engine.Date {
	return engine.NewDate(year, month, day)
}

// stdDue is the fee grid used across the engine tests: a small
// inscription fee plus three equal tuition installments.
func stdDue() map[engine.Bucket]engine.Money {
	return map[engine.Bucket]engine.Money{
		engine.BucketInscription: money(30_000),
		engine.BucketT1:          money(500_000),
		engine.BucketT2:          money(500_000),
		engine.BucketT3:          money(500_000),
	}
}

func stdDueDates() map[engine.Bucket]engine.Date {
	return map[engine.Bucket]engine.Date{
		engine.BucketInscription: date(2024, time.September, 30),
		engine.BucketT1:          date(2025, time.January, 10),
		engine.BucketT2:          date(2025, time.March, 5),
		engine.BucketT3:          date(2025, time.April, 6),
	}
}

func stdSchedule(t *testing.T) *engine.Schedule {
	t.Helper()
	s, err := engine.NewSchedule("student-001", "2024-2025", stdDue(), stdDueDates(), true, decimal.Zero)
	if err != nil {
		t.Fatalf("Failed to build schedule: %v", err)
	}
	return s
}

func strictSchedule(t *testing.T) *engine.Schedule {
	t.Helper()
	s, err := engine.NewSchedule("student-002", "2024-2025", stdDue(), stdDueDates(), false, decimal.Zero)
	if err != nil {
		t.Fatalf("Failed to build schedule: %v", err)
	}
	return s
}

func mustEqualMoney(t *testing.T, got, want engine.Money, label string) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s = %s, want %s", label, got, want)
	}
}

// =============================================================================
// SCHEDULE CONSTRUCTION
// =============================================================================

func TestNewSchedule_Valid(t *testing.T) {
	// GIVEN: A complete fee grid for one student-year
	// WHEN: Building the schedule
	// THEN: It starts UNPAID with a zero paid vector and version 1

	s := stdSchedule(t)

	if s.Status != engine.StatusUnpaid {
		t.Errorf("Status = %s, want %s", s.Status, engine.StatusUnpaid)
	}
	if s.Version != 1 {
		t.Errorf("Version = %d, want 1", s.Version)
	}
	mustEqualMoney(t, s.TotalDue(), money(1_530_000), "TotalDue")
	mustEqualMoney(t, s.TotalPaid(), engine.Zero(), "TotalPaid")
	mustEqualMoney(t, s.Outstanding(), money(1_530_000), "Outstanding")
}

func TestNewSchedule_MissingBucket_Rejected(t *testing.T) {
	// GIVEN: A fee grid without a T3 amount
	due := stdDue()
	delete(due, engine.BucketT3)

	// WHEN: Building the schedule
	_, err := engine.NewSchedule("student-001", "2024-2025", due, stdDueDates(), true, decimal.Zero)

	// THEN: BadSchedule
	if !errors.Is(err, engine.ErrBadSchedule) {
		t.Errorf("err = %v, want BadSchedule", err)
	}
}

func TestNewSchedule_NegativeDue_Rejected(t *testing.T) {
	// GIVEN: A fee grid with a negative T1 amount
	due := stdDue()
	due[engine.BucketT1] = engine.Money{Value: decimal.NewFromInt(-1)}

	_, err := engine.NewSchedule("student-001", "2024-2025", due, stdDueDates(), true, decimal.Zero)

	if !errors.Is(err, engine.ErrBadSchedule) {
		t.Errorf("err = %v, want BadSchedule", err)
	}
}

func TestNewSchedule_ZeroDue_Allowed(t *testing.T) {
	// GIVEN: A grid where inscription is waived (zero due)
	due := stdDue()
	due[engine.BucketInscription] = engine.Zero()

	// WHEN: Building the schedule
	s, err := engine.NewSchedule("student-001", "2024-2025", due, stdDueDates(), true, decimal.Zero)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// THEN: The zero-due bucket is already satisfied and never turns late
	if got := engine.ComputeStatus(s, date(2030, time.January, 1)); got != engine.StatusLate {
		// T1..T3 are still unpaid and overdue, so the schedule is late,
		// but only because of those buckets.
		t.Errorf("status = %s, want %s", got, engine.StatusLate)
	}
	mustEqualMoney(t, s.Room(engine.BucketInscription), engine.Zero(), "Room(INSCRIPTION)")
}

func TestNewSchedule_BackwardsDueDates_Rejected(t *testing.T) {
	// GIVEN: T2 due before T1
	dates := stdDueDates()
	dates[engine.BucketT2] = date(2024, time.December, 1)

	_, err := engine.NewSchedule("student-001", "2024-2025", stdDue(), dates, true, decimal.Zero)

	if !errors.Is(err, engine.ErrBadSchedule) {
		t.Errorf("err = %v, want BadSchedule", err)
	}
}

func TestNewSchedule_BadYear_Rejected(t *testing.T) {
	for _, year := range []engine.AcademicYear{"2024", "2024-2026", "24-25", ""} {
		_, err := engine.NewSchedule("student-001", year, stdDue(), stdDueDates(), true, decimal.Zero)
		if !errors.Is(err, engine.ErrBadSchedule) {
			t.Errorf("year %q: err = %v, want BadSchedule", year, err)
		}
	}
}

// =============================================================================
// APPLY / REVERSE
// =============================================================================

func TestApplyAllocation_UpdatesPaidVector(t *testing.T) {
	// GIVEN: A fresh schedule
	s := stdSchedule(t)

	// WHEN: Applying an inscription+T1 allocation
	delta := engine.Allocation{
		engine.BucketInscription: money(30_000),
		engine.BucketT1:          money(500_000),
	}
	if err := s.ApplyAllocation(delta); err != nil {
		t.Fatalf("ApplyAllocation: %v", err)
	}

	// THEN: Paid vector reflects the delta, outstanding shrinks
	mustEqualMoney(t, s.Paid[engine.BucketInscription], money(30_000), "Paid(INSCRIPTION)")
	mustEqualMoney(t, s.Paid[engine.BucketT1], money(500_000), "Paid(T1)")
	mustEqualMoney(t, s.Outstanding(), money(1_000_000), "Outstanding")
}

func TestApplyAllocation_Overfill_LeavesScheduleUntouched(t *testing.T) {
	// GIVEN: A schedule with inscription already full
	s := stdSchedule(t)
	if err := s.ApplyAllocation(engine.Allocation{engine.BucketInscription: money(30_000)}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	// WHEN: Applying a delta that would overfill inscription
	err := s.ApplyAllocation(engine.Allocation{engine.BucketInscription: money(1)})

	// THEN: Overfill, and the paid vector did not move
	if !errors.Is(err, engine.ErrOverfill) {
		t.Fatalf("err = %v, want Overfill", err)
	}
	mustEqualMoney(t, s.Paid[engine.BucketInscription], money(30_000), "Paid(INSCRIPTION)")
}

func TestReverseAllocation_RestoresPaidVector(t *testing.T) {
	// GIVEN: A schedule with an applied allocation
	s := stdSchedule(t)
	delta := engine.Allocation{
		engine.BucketInscription: money(30_000),
		engine.BucketT1:          money(200_000),
	}
	if err := s.ApplyAllocation(delta); err != nil {
		t.Fatalf("setup: %v", err)
	}

	// WHEN: Reversing the same allocation
	if err := s.ReverseAllocation(delta); err != nil {
		t.Fatalf("ReverseAllocation: %v", err)
	}

	// THEN: Back to a zero paid vector
	mustEqualMoney(t, s.TotalPaid(), engine.Zero(), "TotalPaid")
}

func TestReverseAllocation_MoreThanPaid_Rejected(t *testing.T) {
	// GIVEN: A schedule with 10 000 paid into T1
	s := stdSchedule(t)
	if err := s.ApplyAllocation(engine.Allocation{engine.BucketT1: money(10_000)}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	// WHEN: Reversing more than was paid
	err := s.ReverseAllocation(engine.Allocation{engine.BucketT1: money(20_000)})

	// THEN: InvariantViolation, paid vector untouched
	if !errors.Is(err, engine.ErrInvariantViolation) {
		t.Fatalf("err = %v, want InvariantViolation", err)
	}
	mustEqualMoney(t, s.Paid[engine.BucketT1], money(10_000), "Paid(T1)")
}
