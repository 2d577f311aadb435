/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request structs carry go-playground/validator tags; handlers run the
  shared validator before touching the engine. Semantic rules (bucket
  room, date monotonicity, the closed payment-type table) stay in the
  engine - the tags only reject structurally broken requests early.

SEE ALSO:
  - handlers.go: Uses these types
  - engine/service.go: The operations these map onto
*/
package api

import (
	"time"

	"github.com/scolaris/tuition-engine/engine"
)

// =============================================================================
// SCHEDULE TYPES
// =============================================================================

// BucketAmounts carries one value per fee bucket, as decimal strings.
type BucketAmounts struct {
	Inscription string `json:"inscription" validate:"required"`
	T1          string `json:"t1" validate:"required"`
	T2          string `json:"t2" validate:"required"`
	T3          string `json:"t3" validate:"required"`
}

// BucketDates carries one due date per fee bucket, "YYYY-MM-DD".
type BucketDates struct {
	Inscription string `json:"inscription" validate:"required,datetime=2006-01-02"`
	T1          string `json:"t1" validate:"required,datetime=2006-01-02"`
	T2          string `json:"t2" validate:"required,datetime=2006-01-02"`
	T3          string `json:"t3" validate:"required,datetime=2006-01-02"`
}

// CreateScheduleRequest creates a fee schedule for a student enrollment.
type CreateScheduleRequest struct {
	StudentID      string        `json:"student_id" validate:"required"`
	AcademicYear   string        `json:"academic_year" validate:"required"`
	Due            BucketAmounts `json:"due"`
	DueDates       BucketDates   `json:"due_dates"`
	AllowPartial   bool          `json:"allow_partial"`
	LatePenaltyPct string        `json:"late_penalty_pct,omitempty"`
}

// ScheduleDTO is the API snapshot of a schedule.
type ScheduleDTO struct {
	ID             string            `json:"id"`
	StudentID      string            `json:"student_id"`
	AcademicYear   string            `json:"academic_year"`
	Due            map[string]string `json:"due"`
	Paid           map[string]string `json:"paid"`
	DueDates       map[string]string `json:"due_dates"`
	Status         string            `json:"status"`
	AllowPartial   bool              `json:"allow_partial"`
	LatePenaltyPct string            `json:"late_penalty_pct"`
	TotalDue       string            `json:"total_due"`
	TotalPaid      string            `json:"total_paid"`
	Outstanding    string            `json:"outstanding"`
}

func scheduleDTO(s *engine.Schedule) ScheduleDTO {
	due := make(map[string]string, 4)
	paid := make(map[string]string, 4)
	dates := make(map[string]string, 4)
	for _, b := range engine.BucketOrder {
		due[b.String()] = s.Due[b].String()
		paid[b.String()] = s.Paid[b].String()
		dates[b.String()] = s.DueDates[b].String()
	}
	return ScheduleDTO{
		ID:             string(s.ID),
		StudentID:      string(s.StudentID),
		AcademicYear:   string(s.AcademicYear),
		Due:            due,
		Paid:           paid,
		DueDates:       dates,
		Status:         string(s.Status),
		AllowPartial:   s.AllowPartial,
		LatePenaltyPct: s.LatePenaltyPct.String(),
		TotalDue:       s.TotalDue().String(),
		TotalPaid:      s.TotalPaid().String(),
		Outstanding:    s.Outstanding().String(),
	}
}

// =============================================================================
// PAYMENT TYPES
// =============================================================================

// RecordPaymentRequest records a PENDING payment intent.
type RecordPaymentRequest struct {
	SchoolID     string `json:"school_id" validate:"required"`
	StudentID    string `json:"student_id" validate:"required"`
	AcademicYear string `json:"academic_year" validate:"required"`
	Amount       string `json:"amount" validate:"required"`
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	Type         string `json:"type" validate:"required"`
	Method       string `json:"method,omitempty"`
	ActorID      string `json:"actor_id" validate:"required"`
}

// ValidatePaymentRequest promotes a payment to VALIDATED.
type ValidatePaymentRequest struct {
	Today   string `json:"today" validate:"required,datetime=2006-01-02"`
	ActorID string `json:"actor_id" validate:"required"`
}

// CancelPaymentRequest cancels a validated payment.
type CancelPaymentRequest struct {
	Today   string `json:"today" validate:"required,datetime=2006-01-02"`
	ActorID string `json:"actor_id" validate:"required"`
}

// PaymentDTO is the API snapshot of a payment.
type PaymentDTO struct {
	ID            string            `json:"id"`
	SchoolID      string            `json:"school_id"`
	StudentID     string            `json:"student_id"`
	AcademicYear  string            `json:"academic_year"`
	Amount        string            `json:"amount"`
	Date          string            `json:"date"`
	Type          string            `json:"type"`
	Method        string            `json:"method,omitempty"`
	ReceiptNumber string            `json:"receipt_number,omitempty"`
	State         string            `json:"state"`
	Allocation    map[string]string `json:"allocation,omitempty"`
}

func paymentDTO(p *engine.Payment) PaymentDTO {
	dto := PaymentDTO{
		ID:            string(p.ID),
		SchoolID:      string(p.SchoolID),
		StudentID:     string(p.StudentID),
		AcademicYear:  string(p.AcademicYear),
		Amount:        p.Amount.String(),
		Date:          p.Date.String(),
		Type:          string(p.Type),
		Method:        p.Method,
		ReceiptNumber: p.Receipt,
		State:         string(p.State),
	}
	if p.Allocation != nil {
		dto.Allocation = allocationDTO(p.Allocation)
	}
	return dto
}

func allocationDTO(a engine.Allocation) map[string]string {
	out := make(map[string]string, len(engine.BucketOrder))
	for _, b := range engine.BucketOrder {
		out[b.String()] = a.Get(b).String()
	}
	return out
}

// ValidationResultDTO mirrors engine.ValidationResult.
type ValidationResultDTO struct {
	ReceiptNumber    string            `json:"receipt_number"`
	PerBucket        map[string]string `json:"per_bucket"`
	NewStatus        string            `json:"new_status"`
	OutstandingAfter string            `json:"outstanding_after"`
}

// CancellationResultDTO mirrors engine.CancellationResult.
type CancellationResultDTO struct {
	NewStatus        string `json:"new_status"`
	OutstandingAfter string `json:"outstanding_after"`
}

// =============================================================================
// JOURNAL TYPES
// =============================================================================

// JournalEntryDTO is one audit-log line.
type JournalEntryDTO struct {
	ID          string              `json:"id"`
	Timestamp   string              `json:"timestamp"`
	ActorID     string              `json:"actor_id"`
	Kind        string              `json:"kind"`
	ScheduleID  string              `json:"schedule_id"`
	PaymentID   string              `json:"payment_id,omitempty"`
	Before      ScheduleSnapshotDTO `json:"before"`
	After       ScheduleSnapshotDTO `json:"after"`
	Description string              `json:"description"`
}

type ScheduleSnapshotDTO struct {
	Paid   map[string]string `json:"paid"`
	Status string            `json:"status"`
}

func journalEntryDTO(e engine.JournalEntry) JournalEntryDTO {
	return JournalEntryDTO{
		ID:          e.ID,
		Timestamp:   e.Timestamp.Format(time.RFC3339),
		ActorID:     e.ActorID,
		Kind:        string(e.Kind),
		ScheduleID:  string(e.ScheduleID),
		PaymentID:   string(e.PaymentID),
		Before:      snapshotDTO(e.Before),
		After:       snapshotDTO(e.After),
		Description: e.Description,
	}
}

func snapshotDTO(s engine.ScheduleSnapshot) ScheduleSnapshotDTO {
	return ScheduleSnapshotDTO{
		Paid:   allocationDTO(s.Paid),
		Status: string(s.Status),
	}
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorDTO is the uniform error body.
type ErrorDTO struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
