/*
journal.go - Append-only audit log

PURPOSE:
  Every allocation, cancellation, status transition, and receipt issuance
  is recorded here. The journal is the audit trail consumed by reporting
  and reconciliation tools; the engine guarantees exactly one
  ALLOCATED/CANCELED entry per state-changing call, plus at most one
  STATUS_CHANGED entry, written in the same transaction as the state
  change itself.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete. EVER.
  2. CAUSAL ORDER: Entries for a single schedule reflect the order in
     which the changes committed.
  3. ATOMIC WITH STATE: A committed state change always has its entry,
     and vice versa.
*/
package engine

import (
	"context"
	"time"
)

// =============================================================================
// EVENT KINDS
// =============================================================================

type EventKind string

const (
	EventAllocated     EventKind = "ALLOCATED"
	EventCanceled      EventKind = "CANCELED"
	EventStatusChanged EventKind = "STATUS_CHANGED"
	EventReceiptIssued EventKind = "RECEIPT_ISSUED"
)

// =============================================================================
// JOURNAL ENTRY
// =============================================================================

// ScheduleSnapshot captures the paid vector and status at a point in time,
// recorded before and after each state-changing call.
type ScheduleSnapshot struct {
	Paid   Allocation
	Status ScheduleStatus
}

// SnapshotOf captures the current paid vector and status of a schedule.
func SnapshotOf(s *Schedule) ScheduleSnapshot {
	return ScheduleSnapshot{Paid: s.PaidVector(), Status: s.Status}
}

type JournalEntry struct {
	ID          string
	Timestamp   time.Time
	ActorID     string
	Kind        EventKind
	ScheduleID  ScheduleID
	PaymentID   PaymentID // empty for pure status sweeps
	Before      ScheduleSnapshot
	After       ScheduleSnapshot
	Description string
}

// Journal stores audit entries. Append-only, never updated in place.
type Journal interface {
	AppendJournal(ctx context.Context, entry JournalEntry) error

	// JournalBySchedule returns entries for a schedule in causal order.
	JournalBySchedule(ctx context.Context, scheduleID ScheduleID) ([]JournalEntry, error)
}
