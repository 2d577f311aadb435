package engine_test

import (
	"testing"
	"time"

	"github.com/scolaris/tuition-engine/engine"
)

func TestComputeStatus_Fresh_Unpaid(t *testing.T) {
	// GIVEN: Nothing paid, nothing overdue
	s := stdSchedule(t)

	// WHEN/THEN: Before the first due date the schedule is UNPAID
	if got := engine.ComputeStatus(s, date(2024, time.September, 1)); got != engine.StatusUnpaid {
		t.Errorf("status = %s, want UNPAID", got)
	}
}

func TestComputeStatus_OnDueDate_NotLate(t *testing.T) {
	// GIVEN: Inscription unpaid, today IS the inscription due date
	s := stdSchedule(t)

	// WHEN/THEN: Strict comparison, the due day itself is on time
	if got := engine.ComputeStatus(s, date(2024, time.September, 30)); got != engine.StatusUnpaid {
		t.Errorf("status = %s, want UNPAID", got)
	}
}

func TestComputeStatus_DayAfterDueDate_Late(t *testing.T) {
	// GIVEN: Inscription unpaid, today is one day past its due date
	s := stdSchedule(t)

	if got := engine.ComputeStatus(s, date(2024, time.October, 1)); got != engine.StatusLate {
		t.Errorf("status = %s, want LATE", got)
	}
}

func TestComputeStatus_PartialBeforeDue_PartiallyPaid(t *testing.T) {
	// GIVEN: Inscription paid, nothing overdue yet
	s := stdSchedule(t)
	if err := s.ApplyAllocation(engine.Allocation{engine.BucketInscription: money(30_000)}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if got := engine.ComputeStatus(s, date(2024, time.October, 15)); got != engine.StatusPartiallyPaid {
		t.Errorf("status = %s, want PARTIALLY_PAID", got)
	}
}

func TestComputeStatus_LateDominatesPartial(t *testing.T) {
	// GIVEN: Inscription paid, T1 half-paid, today past the T1 due date
	s := stdSchedule(t)
	if err := s.ApplyAllocation(engine.Allocation{
		engine.BucketInscription: money(30_000),
		engine.BucketT1:          money(200_000),
	}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if got := engine.ComputeStatus(s, date(2025, time.January, 11)); got != engine.StatusLate {
		t.Errorf("status = %s, want LATE", got)
	}
}

func TestComputeStatus_FullyPaidShortCircuitsLate(t *testing.T) {
	// GIVEN: Everything paid, today past every due date
	s := stdSchedule(t)
	if err := s.ApplyAllocation(engine.Allocation{
		engine.BucketInscription: money(30_000),
		engine.BucketT1:          money(500_000),
		engine.BucketT2:          money(500_000),
		engine.BucketT3:          money(500_000),
	}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	// WHEN/THEN: A saturated schedule is never late
	if got := engine.ComputeStatus(s, date(2025, time.June, 1)); got != engine.StatusFullyPaid {
		t.Errorf("status = %s, want FULLY_PAID", got)
	}
}

func TestComputeStatus_Idempotent(t *testing.T) {
	// GIVEN: Any schedule state and a fixed today
	s := stdSchedule(t)
	today := date(2025, time.February, 1)

	// WHEN: Deriving twice
	first := engine.ComputeStatus(s, today)
	second := engine.ComputeStatus(s, today)

	// THEN: Same answer
	if first != second {
		t.Errorf("status flapped: %s then %s", first, second)
	}
}
