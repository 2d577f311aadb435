package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/scolaris/tuition-engine/engine"
	"github.com/scolaris/tuition-engine/engine/store"
)

func seedSchedule(t *testing.T, m *store.Memory) *engine.Schedule {
	t.Helper()
	s, err := engine.NewSchedule("student-001", "2024-2025",
		map[engine.Bucket]engine.Money{
			engine.BucketInscription: engine.NewMoney(30_000),
			engine.BucketT1:          engine.NewMoney(500_000),
			engine.BucketT2:          engine.NewMoney(500_000),
			engine.BucketT3:          engine.NewMoney(500_000),
		},
		map[engine.Bucket]engine.Date{
			engine.BucketInscription: engine.NewDate(2024, time.September, 30),
			engine.BucketT1:          engine.NewDate(2025, time.January, 10),
			engine.BucketT2:          engine.NewDate(2025, time.March, 5),
			engine.BucketT3:          engine.NewDate(2025, time.April, 6),
		},
		true, decimal.Zero)
	if err != nil {
		t.Fatalf("NewSchedule: %v", err)
	}
	s.ID = "sched-001"
	if err := m.CreateSchedule(context.Background(), s); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}
	return s
}

func TestMemory_DuplicateStudentYear_Rejected(t *testing.T) {
	// GIVEN: A stored schedule for (student, year)
	m := store.NewMemory()
	seedSchedule(t, m)

	// WHEN: Creating a second schedule for the same pair
	dup, err := engine.NewSchedule("student-001", "2024-2025",
		map[engine.Bucket]engine.Money{
			engine.BucketInscription: engine.Zero(),
			engine.BucketT1:          engine.Zero(),
			engine.BucketT2:          engine.Zero(),
			engine.BucketT3:          engine.Zero(),
		},
		map[engine.Bucket]engine.Date{
			engine.BucketInscription: engine.NewDate(2024, time.September, 30),
			engine.BucketT1:          engine.NewDate(2025, time.January, 10),
			engine.BucketT2:          engine.NewDate(2025, time.March, 5),
			engine.BucketT3:          engine.NewDate(2025, time.April, 6),
		},
		true, decimal.Zero)
	if err != nil {
		t.Fatalf("NewSchedule: %v", err)
	}
	dup.ID = "sched-002"

	// THEN: Rejected
	if err := m.CreateSchedule(context.Background(), dup); err == nil {
		t.Errorf("duplicate (student, year) accepted")
	}
}

func TestMemory_VersionConflict(t *testing.T) {
	// GIVEN: Two readers holding the same schedule version
	m := store.NewMemory()
	seedSchedule(t, m)
	ctx := context.Background()

	a, err := m.GetSchedule(ctx, "student-001", "2024-2025")
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	b, err := m.GetSchedule(ctx, "student-001", "2024-2025")
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}

	// WHEN: Both write back
	if err := m.UpdateSchedule(ctx, a); err != nil {
		t.Fatalf("first update: %v", err)
	}
	err = m.UpdateSchedule(ctx, b)

	// THEN: The second loses with ConflictingUpdate
	if !errors.Is(err, engine.ErrConflictingUpdate) {
		t.Errorf("err = %v, want ConflictingUpdate", err)
	}
	if !engine.IsRetryable(err) {
		t.Errorf("conflict not classified retryable")
	}
}

func TestMemory_WithTx_RollsBackEverything(t *testing.T) {
	// GIVEN: A store with a schedule and one issued receipt
	m := store.NewMemory()
	s := seedSchedule(t, m)
	ctx := context.Background()

	if _, err := m.NextReceiptNumber(ctx, "SCH-001"); err != nil {
		t.Fatalf("NextReceiptNumber: %v", err)
	}

	// WHEN: A transaction mutates schedule, journal, and counter, then fails
	boom := errors.New("boom")
	err := m.WithTx(ctx, func(tx engine.Store) error {
		got, err := tx.GetScheduleByID(ctx, s.ID)
		if err != nil {
			return err
		}
		if err := got.ApplyAllocation(engine.Allocation{engine.BucketInscription: engine.NewMoney(30_000)}); err != nil {
			return err
		}
		if err := tx.UpdateSchedule(ctx, got); err != nil {
			return err
		}
		if err := tx.AppendJournal(ctx, engine.JournalEntry{ID: "j1", ScheduleID: s.ID, Kind: engine.EventAllocated}); err != nil {
			return err
		}
		if _, err := tx.NextReceiptNumber(ctx, "SCH-001"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	// THEN: No partial state survived
	got, err := m.GetScheduleByID(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetScheduleByID: %v", err)
	}
	if !got.TotalPaid().IsZero() {
		t.Errorf("TotalPaid = %s, want 0 after rollback", got.TotalPaid())
	}
	entries, _ := m.JournalBySchedule(ctx, s.ID)
	if len(entries) != 0 {
		t.Errorf("journal has %d entries, want 0", len(entries))
	}

	// AND: The receipt counter rewound with the transaction
	receipt, err := m.NextReceiptNumber(ctx, "SCH-001")
	if err != nil {
		t.Fatalf("NextReceiptNumber: %v", err)
	}
	if receipt != "SCH-001-000002" {
		t.Errorf("receipt = %q, want SCH-001-000002", receipt)
	}
}

func TestMemory_ReturnsCopies(t *testing.T) {
	// GIVEN: A stored schedule
	m := store.NewMemory()
	s := seedSchedule(t, m)
	ctx := context.Background()

	// WHEN: A caller mutates the returned copy without writing back
	got, err := m.GetScheduleByID(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetScheduleByID: %v", err)
	}
	got.Paid[engine.BucketInscription] = engine.NewMoney(999)

	// THEN: The stored record is unaffected
	fresh, err := m.GetScheduleByID(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetScheduleByID: %v", err)
	}
	if !fresh.Paid[engine.BucketInscription].IsZero() {
		t.Errorf("stored schedule mutated through a returned copy")
	}
}

func TestMemory_GetSchedule_NotFound(t *testing.T) {
	m := store.NewMemory()

	_, err := m.GetSchedule(context.Background(), "ghost", "2024-2025")

	if !engine.IsNotFound(err) {
		t.Errorf("err = %v, want NotFound", err)
	}
}
