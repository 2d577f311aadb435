/*
store.go - Persistence interfaces for schedules, payments, and audit data

PURPOSE:
  Defines the boundary between the engine and the database. Different
  implementations can use SQLite, PostgreSQL, or in-memory storage; the
  engine only depends on these interfaces.

KEY INTERFACES:
  ScheduleStore:  Schedule persistence with optimistic versioning
  PaymentStore:   Payment persistence and per-schedule listing
  Journal:        Append-only audit log (journal.go)
  ReceiptCounter: Per-school receipt numbering (receipt.go)
  TxStore:        All of the above plus WithTx for atomic operations

CONCURRENCY CONTRACT:
  A schedule is the unit of serialization. UpdateSchedule carries the
  version the caller read; a mismatch means a concurrent writer won and
  the store returns ConflictingUpdate. All reads-then-writes for one
  schedule run inside WithTx, so the journal entry commits with the state
  change or not at all.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite (same patterns apply to PostgreSQL)
  - engine/store: In-memory, for tests and development
*/
package engine

import "context"

// =============================================================================
// SCHEDULE STORE
// =============================================================================

type ScheduleStore interface {
	// CreateSchedule persists a new schedule and assigns its ID.
	// Fails with ConflictingUpdate if (student, year) already exists.
	CreateSchedule(ctx context.Context, s *Schedule) error

	// GetSchedule looks up by the (student, academic year) uniqueness scope.
	GetSchedule(ctx context.Context, studentID StudentID, year AcademicYear) (*Schedule, error)

	// GetScheduleByID looks up by schedule ID.
	GetScheduleByID(ctx context.Context, id ScheduleID) (*Schedule, error)

	// UpdateSchedule writes the paid vector, status, and bumped version.
	// Fails with ConflictingUpdate if the stored version moved since the
	// caller's read.
	UpdateSchedule(ctx context.Context, s *Schedule) error

	// ListScheduleIDs returns all schedule IDs, for the daily status sweep.
	ListScheduleIDs(ctx context.Context) ([]ScheduleID, error)
}

// =============================================================================
// PAYMENT STORE
// =============================================================================

type PaymentStore interface {
	// CreatePayment persists a new payment and assigns its ID.
	CreatePayment(ctx context.Context, p *Payment) error

	// GetPayment looks up by payment ID.
	GetPayment(ctx context.Context, id PaymentID) (*Payment, error)

	// UpdatePayment writes state transitions, allocation, and receipt.
	UpdatePayment(ctx context.Context, p *Payment) error

	// PaymentsForStudent returns payments for (student, year), oldest first.
	PaymentsForStudent(ctx context.Context, studentID StudentID, year AcademicYear) ([]Payment, error)
}

// =============================================================================
// COMPOSITE STORE
// =============================================================================

// Store bundles everything the service needs from persistence.
type Store interface {
	ScheduleStore
	PaymentStore
	Journal
	ReceiptCounter
}

// TxStore wraps Store with transaction support. WithTx executes fn within
// a transaction: if fn returns an error the transaction is rolled back and
// nothing - state change, journal entry, receipt number - survives.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
