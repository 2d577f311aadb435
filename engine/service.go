/*
service.go - The engine's call surface

PURPOSE:
  Implements the stable operations the host wires to its HTTP layer:
  schedule creation, payment recording, validation (allocation + receipt),
  cancellation, and status recomputation. Every state-changing operation
  runs inside a single store transaction so the schedule, the payment,
  the receipt counter, and the journal commit together or not at all.

TENANCY:
  There is no ambient "current school". SchoolID travels as an explicit
  parameter on every payment; the engine never reads request-bound state.

TIME:
  Every operation that derives status takes an explicit today. Only
  record-keeping timestamps (CreatedAt etc.) come from the injected Now
  func, which tests override.
*/
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service exposes the engine operations over a transactional store.
type Service struct {
	store TxStore

	// Now supplies persistence timestamps, not business dates. Business
	// "today" is always an explicit argument.
	Now func() time.Time
}

func NewService(store TxStore) *Service {
	return &Service{store: store, Now: time.Now}
}

// =============================================================================
// SCHEDULE OPERATIONS
// =============================================================================

// CreateScheduleInput carries the fee grid values for one student-year.
type CreateScheduleInput struct {
	StudentID      StudentID
	AcademicYear   AcademicYear
	Due            map[Bucket]Money
	DueDates       map[Bucket]Date
	AllowPartial   bool
	LatePenaltyPct decimal.Decimal
}

// CreateSchedule validates the inputs and persists a fresh schedule.
func (svc *Service) CreateSchedule(ctx context.Context, in CreateScheduleInput) (*Schedule, error) {
	s, err := NewSchedule(in.StudentID, in.AcademicYear, in.Due, in.DueDates, in.AllowPartial, in.LatePenaltyPct)
	if err != nil {
		return nil, err
	}
	s.ID = ScheduleID(uuid.NewString())
	now := svc.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	if err := svc.store.CreateSchedule(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// GetSchedule returns a snapshot of the schedule for (student, year).
func (svc *Service) GetSchedule(ctx context.Context, studentID StudentID, year AcademicYear) (*Schedule, error) {
	return svc.store.GetSchedule(ctx, studentID, year)
}

// =============================================================================
// PAYMENT OPERATIONS
// =============================================================================

// RecordPaymentInput describes a payment intent. No allocation happens at
// record time: the payment is persisted PENDING.
type RecordPaymentInput struct {
	SchoolID     SchoolID
	StudentID    StudentID
	AcademicYear AcademicYear
	Amount       Money
	Date         Date
	Type         PaymentType
	Method       string
	ActorID      string
}

// RecordPayment creates a PENDING payment after structural validation.
// The payment type must be in the closed enumeration and the amount
// strictly positive; the matching schedule must exist.
func (svc *Service) RecordPayment(ctx context.Context, in RecordPaymentInput) (*Payment, error) {
	if _, err := TargetBuckets(in.Type); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: payment amount must be positive", ErrIllegalState)
	}
	if in.SchoolID == "" {
		return nil, fmt.Errorf("%w: missing school id", ErrIllegalState)
	}
	if err := in.AcademicYear.Validate(); err != nil {
		return nil, err
	}
	if _, err := svc.store.GetSchedule(ctx, in.StudentID, in.AcademicYear); err != nil {
		return nil, err
	}

	p := &Payment{
		ID:           PaymentID(uuid.NewString()),
		SchoolID:     in.SchoolID,
		StudentID:    in.StudentID,
		AcademicYear: in.AcademicYear,
		Amount:       in.Amount,
		Date:         in.Date,
		Type:         in.Type,
		Method:       in.Method,
		State:        PaymentPending,
		CreatedAt:    svc.Now().UTC(),
	}
	if err := svc.store.CreatePayment(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ValidatePayment transitions PENDING -> VALIDATED, runs the allocator
// exactly once, assigns the receipt number, and journals. Lateness is
// judged against the payment's date, not the validation day: a payment
// dated on the due date stays on time however long it sits in the
// cashier's queue. today is recorded in the journal for audit only.
// Atomic: any failure leaves the schedule, the payment, and the journal
// unchanged.
func (svc *Service) ValidatePayment(ctx context.Context, paymentID PaymentID, today Date, actorID string) (*ValidationResult, error) {
	var result *ValidationResult

	err := svc.store.WithTx(ctx, func(tx Store) error {
		p, err := tx.GetPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.State != PaymentPending {
			return &StateError{PaymentID: p.ID, State: p.State, Operation: "validate"}
		}

		s, err := tx.GetSchedule(ctx, p.StudentID, p.AcademicYear)
		if err != nil {
			return err
		}
		before := SnapshotOf(s)

		outcome, err := Allocate(s, p, p.Date)
		if err != nil {
			return err
		}
		after := SnapshotOf(s)

		receipt, err := tx.NextReceiptNumber(ctx, p.SchoolID)
		if err != nil {
			return err
		}

		now := svc.Now().UTC()
		p.State = PaymentValidated
		p.Receipt = receipt
		p.Allocation = outcome.PerBucket.Clone()
		p.ValidatedAt = &now
		s.UpdatedAt = now

		if err := tx.UpdateSchedule(ctx, s); err != nil {
			return err
		}
		if err := tx.UpdatePayment(ctx, p); err != nil {
			return err
		}

		if err := svc.journal(ctx, tx, EventAllocated, actorID, s.ID, p.ID, before, after,
			fmt.Sprintf("allocated %s (%s)", p.Amount, p.Type)); err != nil {
			return err
		}
		if outcome.PreviousStatus != outcome.NewStatus {
			if err := svc.journal(ctx, tx, EventStatusChanged, actorID, s.ID, p.ID, before, after,
				fmt.Sprintf("status %s -> %s", outcome.PreviousStatus, outcome.NewStatus)); err != nil {
				return err
			}
		}
		if err := svc.journal(ctx, tx, EventReceiptIssued, actorID, s.ID, p.ID, after, after,
			fmt.Sprintf("receipt %s (validated %s)", receipt, today)); err != nil {
			return err
		}

		result = &ValidationResult{
			ReceiptNumber:    receipt,
			PerBucket:        outcome.PerBucket,
			NewStatus:        outcome.NewStatus,
			OutstandingAfter: outcome.OutstandingAfter,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CancelPayment reverses a validated payment's stored allocation,
// recomputes the status from scratch, and marks the payment CANCELED.
// A payment may be canceled only once; whether the school's policy
// permits a given cancellation is the caller's decision.
func (svc *Service) CancelPayment(ctx context.Context, paymentID PaymentID, today Date, actorID string) (*CancellationResult, error) {
	var result *CancellationResult

	err := svc.store.WithTx(ctx, func(tx Store) error {
		p, err := tx.GetPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.State != PaymentValidated {
			return &StateError{PaymentID: p.ID, State: p.State, Operation: "cancel"}
		}

		s, err := tx.GetSchedule(ctx, p.StudentID, p.AcademicYear)
		if err != nil {
			return err
		}
		before := SnapshotOf(s)
		previous := s.Status

		if err := s.ReverseAllocation(p.Allocation); err != nil {
			return err
		}
		newStatus := s.RecomputeStatus(today)
		after := SnapshotOf(s)

		now := svc.Now().UTC()
		p.State = PaymentCanceled
		p.CanceledAt = &now
		s.UpdatedAt = now

		if err := tx.UpdateSchedule(ctx, s); err != nil {
			return err
		}
		if err := tx.UpdatePayment(ctx, p); err != nil {
			return err
		}

		if err := svc.journal(ctx, tx, EventCanceled, actorID, s.ID, p.ID, before, after,
			fmt.Sprintf("canceled %s (receipt %s)", p.Amount, p.Receipt)); err != nil {
			return err
		}
		if previous != newStatus {
			if err := svc.journal(ctx, tx, EventStatusChanged, actorID, s.ID, p.ID, before, after,
				fmt.Sprintf("status %s -> %s", previous, newStatus)); err != nil {
				return err
			}
		}

		result = &CancellationResult{
			NewStatus:        newStatus,
			OutstandingAfter: s.Outstanding(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetPayment returns a payment by ID.
func (svc *Service) GetPayment(ctx context.Context, id PaymentID) (*Payment, error) {
	return svc.store.GetPayment(ctx, id)
}

// =============================================================================
// STATUS SWEEP
// =============================================================================

// RecomputeStatus recomputes and persists a schedule's status for the
// given reference date. Used by the daily sweep that catches schedules
// crossing a due date without any new payment. Idempotent for the same
// today.
func (svc *Service) RecomputeStatus(ctx context.Context, scheduleID ScheduleID, today Date, actorID string) (ScheduleStatus, error) {
	var status ScheduleStatus

	err := svc.store.WithTx(ctx, func(tx Store) error {
		s, err := tx.GetScheduleByID(ctx, scheduleID)
		if err != nil {
			return err
		}
		before := SnapshotOf(s)
		previous := s.Status
		status = s.RecomputeStatus(today)
		if status == previous {
			return nil
		}
		s.UpdatedAt = svc.Now().UTC()
		if err := tx.UpdateSchedule(ctx, s); err != nil {
			return err
		}
		return svc.journal(ctx, tx, EventStatusChanged, actorID, s.ID, "", before, SnapshotOf(s),
			fmt.Sprintf("status %s -> %s (sweep, %s)", previous, status, today))
	})
	if err != nil {
		return "", err
	}
	return status, nil
}

// ListScheduleIDs exposes the sweep's work list.
func (svc *Service) ListScheduleIDs(ctx context.Context) ([]ScheduleID, error) {
	return svc.store.ListScheduleIDs(ctx)
}

// JournalForSchedule returns the audit trail for a schedule.
func (svc *Service) JournalForSchedule(ctx context.Context, scheduleID ScheduleID) ([]JournalEntry, error) {
	return svc.store.JournalBySchedule(ctx, scheduleID)
}

// PaymentsForStudent returns the payments recorded for (student, year).
func (svc *Service) PaymentsForStudent(ctx context.Context, studentID StudentID, year AcademicYear) ([]Payment, error) {
	return svc.store.PaymentsForStudent(ctx, studentID, year)
}

func (svc *Service) journal(ctx context.Context, tx Store, kind EventKind, actorID string, scheduleID ScheduleID, paymentID PaymentID, before, after ScheduleSnapshot, desc string) error {
	return tx.AppendJournal(ctx, JournalEntry{
		ID:          uuid.NewString(),
		Timestamp:   svc.Now().UTC(),
		ActorID:     actorID,
		Kind:        kind,
		ScheduleID:  scheduleID,
		PaymentID:   paymentID,
		Before:      before,
		After:       after,
		Description: desc,
	})
}
