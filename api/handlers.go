/*
handlers.go - HTTP handlers for the tuition engine

PURPOSE:
  Thin adapters between HTTP and the engine service. Handlers decode and
  validate the request body, call exactly one service operation, and map
  the engine's error taxonomy onto status codes. No business logic lives
  here.

ERROR MAPPING:
  engine.IsNotFound    -> 404
  engine.IsClientError -> 422 (structurally valid, semantically refused)
  engine.IsRetryable   -> 409 (caller may retry)
  validation errors    -> 400
  anything else        -> 500

SEE ALSO:
  - dto.go: Request/response shapes
  - server.go: Routing
*/
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/scolaris/tuition-engine/engine"
)

// Handler holds the service and the shared request validator.
type Handler struct {
	svc      *engine.Service
	validate *validator.Validate
}

func NewHandler(svc *engine.Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

// =============================================================================
// SCHEDULE HANDLERS
// =============================================================================

// CreateSchedule handles POST /api/schedules.
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req CreateScheduleRequest
	if !h.decode(w, r, &req) {
		return
	}

	year, err := engine.ParseAcademicYear(req.AcademicYear)
	if err != nil {
		h.badRequest(w, err)
		return
	}
	due, err := bucketAmounts(req.Due)
	if err != nil {
		h.badRequest(w, err)
		return
	}
	dates, err := bucketDates(req.DueDates)
	if err != nil {
		h.badRequest(w, err)
		return
	}
	penalty := engine.PercentFromFloat(0)
	if req.LatePenaltyPct != "" {
		p, err := engine.ParseMoney(req.LatePenaltyPct)
		if err != nil {
			h.badRequest(w, err)
			return
		}
		penalty = p.Value
	}

	s, err := h.svc.CreateSchedule(r.Context(), engine.CreateScheduleInput{
		StudentID:      engine.StudentID(req.StudentID),
		AcademicYear:   year,
		Due:            due,
		DueDates:       dates,
		AllowPartial:   req.AllowPartial,
		LatePenaltyPct: penalty,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, scheduleDTO(s))
}

// GetSchedule handles GET /api/students/{studentID}/schedules/{year}.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	studentID := engine.StudentID(chi.URLParam(r, "studentID"))
	year := engine.AcademicYear(chi.URLParam(r, "year"))

	s, err := h.svc.GetSchedule(r.Context(), studentID, year)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, scheduleDTO(s))
}

// ListSchedules handles GET /api/schedules. Returns schedule IDs only;
// audit screens page through details via the student routes.
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.ListScheduleIDs(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	h.writeJSON(w, http.StatusOK, out)
}

// GetScheduleJournal handles GET /api/schedules/{id}/journal.
func (h *Handler) GetScheduleJournal(w http.ResponseWriter, r *http.Request) {
	id := engine.ScheduleID(chi.URLParam(r, "id"))

	entries, err := h.svc.JournalForSchedule(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]JournalEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, journalEntryDTO(e))
	}
	h.writeJSON(w, http.StatusOK, out)
}

// RecomputeStatus handles POST /api/schedules/{id}/recompute. The sweep
// endpoint: recomputes and persists the status for an explicit date.
func (h *Handler) RecomputeStatus(w http.ResponseWriter, r *http.Request) {
	id := engine.ScheduleID(chi.URLParam(r, "id"))

	var req struct {
		Today   string `json:"today" validate:"required,datetime=2006-01-02"`
		ActorID string `json:"actor_id" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	today, err := engine.ParseDate(req.Today)
	if err != nil {
		h.badRequest(w, err)
		return
	}

	status, err := h.svc.RecomputeStatus(r.Context(), id, today, req.ActorID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// RecordPayment handles POST /api/payments.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	amount, err := engine.ParseMoney(req.Amount)
	if err != nil {
		h.badRequest(w, err)
		return
	}
	date, err := engine.ParseDate(req.Date)
	if err != nil {
		h.badRequest(w, err)
		return
	}

	p, err := h.svc.RecordPayment(r.Context(), engine.RecordPaymentInput{
		SchoolID:     engine.SchoolID(req.SchoolID),
		StudentID:    engine.StudentID(req.StudentID),
		AcademicYear: engine.AcademicYear(req.AcademicYear),
		Amount:       amount,
		Date:         date,
		Type:         engine.PaymentType(req.Type),
		Method:       req.Method,
		ActorID:      req.ActorID,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, paymentDTO(p))
}

// GetPayment handles GET /api/payments/{id}.
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id := engine.PaymentID(chi.URLParam(r, "id"))

	p, err := h.svc.GetPayment(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, paymentDTO(p))
}

// ValidatePayment handles POST /api/payments/{id}/validate.
func (h *Handler) ValidatePayment(w http.ResponseWriter, r *http.Request) {
	id := engine.PaymentID(chi.URLParam(r, "id"))

	var req ValidatePaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	today, err := engine.ParseDate(req.Today)
	if err != nil {
		h.badRequest(w, err)
		return
	}

	result, err := h.svc.ValidatePayment(r.Context(), id, today, req.ActorID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ValidationResultDTO{
		ReceiptNumber:    result.ReceiptNumber,
		PerBucket:        allocationDTO(result.PerBucket),
		NewStatus:        string(result.NewStatus),
		OutstandingAfter: result.OutstandingAfter.String(),
	})
}

// CancelPayment handles POST /api/payments/{id}/cancel.
func (h *Handler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	id := engine.PaymentID(chi.URLParam(r, "id"))

	var req CancelPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	today, err := engine.ParseDate(req.Today)
	if err != nil {
		h.badRequest(w, err)
		return
	}

	result, err := h.svc.CancelPayment(r.Context(), id, today, req.ActorID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, CancellationResultDTO{
		NewStatus:        string(result.NewStatus),
		OutstandingAfter: result.OutstandingAfter.String(),
	})
}

// ListStudentPayments handles GET /api/students/{studentID}/payments/{year}.
func (h *Handler) ListStudentPayments(w http.ResponseWriter, r *http.Request) {
	studentID := engine.StudentID(chi.URLParam(r, "studentID"))
	year := engine.AcademicYear(chi.URLParam(r, "year"))

	payments, err := h.svc.PaymentsForStudent(r.Context(), studentID, year)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]PaymentDTO, 0, len(payments))
	for i := range payments {
		out = append(out, paymentDTO(&payments[i]))
	}
	h.writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorDTO{Error: "invalid JSON body"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorDTO{Error: err.Error(), Kind: "validation"})
		return false
	}
	return true
}

func (h *Handler) badRequest(w http.ResponseWriter, err error) {
	h.writeJSON(w, http.StatusBadRequest, ErrorDTO{Error: err.Error(), Kind: "bad_request"})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case engine.IsNotFound(err):
		h.writeJSON(w, http.StatusNotFound, ErrorDTO{Error: err.Error(), Kind: "not_found"})
	case engine.IsClientError(err):
		h.writeJSON(w, http.StatusUnprocessableEntity, ErrorDTO{Error: err.Error(), Kind: "rejected"})
	case engine.IsRetryable(err):
		h.writeJSON(w, http.StatusConflict, ErrorDTO{Error: err.Error(), Kind: "conflict"})
	case errors.Is(err, engine.ErrInvariantViolation):
		log.Printf("invariant violation: %v", err)
		h.writeJSON(w, http.StatusInternalServerError, ErrorDTO{Error: "internal inconsistency", Kind: "invariant"})
	default:
		log.Printf("internal error: %v", err)
		h.writeJSON(w, http.StatusInternalServerError, ErrorDTO{Error: "internal error"})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func bucketAmounts(in BucketAmounts) (map[engine.Bucket]engine.Money, error) {
	out := make(map[engine.Bucket]engine.Money, 4)
	for b, raw := range map[engine.Bucket]string{
		engine.BucketInscription: in.Inscription,
		engine.BucketT1:          in.T1,
		engine.BucketT2:          in.T2,
		engine.BucketT3:          in.T3,
	} {
		m, err := engine.ParseMoney(raw)
		if err != nil {
			return nil, err
		}
		out[b] = m
	}
	return out, nil
}

func bucketDates(in BucketDates) (map[engine.Bucket]engine.Date, error) {
	out := make(map[engine.Bucket]engine.Date, 4)
	for b, raw := range map[engine.Bucket]string{
		engine.BucketInscription: in.Inscription,
		engine.BucketT1:          in.T1,
		engine.BucketT2:          in.T2,
		engine.BucketT3:          in.T3,
	} {
		d, err := engine.ParseDate(raw)
		if err != nil {
			return nil, err
		}
		out[b] = d
	}
	return out, nil
}
