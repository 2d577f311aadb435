/*
errors.go - Centralized error types for the tuition engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Callers match with errors.Is / errors.As; the engine performs no
  retries and swallows nothing.

ERROR CATEGORIES:
  1. Structural errors  - Bad schedule inputs, unknown payment types
  2. Policy errors      - Overfill, partial deposits rejected by policy
  3. Consistency errors - Invariant violations (bugs), lost concurrent writes
  4. Lookup / lifecycle - Missing records, operations in the wrong state

USAGE:
  if errors.Is(err, engine.ErrOverfill) { ... }

  var pe *engine.PartialError
  if errors.As(err, &pe) { ... pe.Bucket ... }

SEE ALSO:
  - schedule.go: Raises BadSchedule, Overfill, PartialNotAllowed
  - allocator.go: Raises Overfill, PartialNotAllowed
  - service.go: Raises NotFound, IllegalState, ConflictingUpdate
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrBadSchedule is returned when schedule creation inputs violate
	// structural rules (negative due, non-monotone due dates, malformed
	// academic year).
	ErrBadSchedule = errors.New("bad schedule")

	// ErrUnknownPaymentType is returned for a type label outside the
	// closed classifier enumeration.
	ErrUnknownPaymentType = errors.New("unknown payment type")

	// ErrOverfill is returned when an allocation would push a bucket's
	// paid amount above its due amount, or when a payment amount exceeds
	// what its target buckets can absorb.
	ErrOverfill = errors.New("allocation overfills schedule")

	// ErrPartialNotAllowed is returned when policy forbids leaving a
	// bucket strictly between zero and its due amount.
	ErrPartialNotAllowed = errors.New("partial payment not allowed")

	// ErrInvariantViolation indicates an internal consistency check
	// failed. This is a bug; the host should treat it as fatal.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrConflictingUpdate is returned when a concurrent write lost.
	// The enclosing transaction should retry.
	ErrConflictingUpdate = errors.New("conflicting update")

	// ErrNotFound is returned when a referenced schedule or payment
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrIllegalState is returned for an operation against a payment in
	// an incompatible state (e.g. validating a canceled payment).
	ErrIllegalState = errors.New("illegal payment state")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// OverfillError details which bucket (or residual) caused the overfill.
type OverfillError struct {
	Bucket    Bucket
	Room      Money
	Requested Money
	Residual  Money // unallocatable remainder after the last target bucket
}

func (e *OverfillError) Error() string {
	if e.Residual.IsPositive() {
		return fmt.Sprintf("overfill: %s left unallocated after %s", e.Residual, e.Bucket)
	}
	return fmt.Sprintf("overfill: bucket %s has room %s, requested %s", e.Bucket, e.Room, e.Requested)
}

func (e *OverfillError) Unwrap() error { return ErrOverfill }

// PartialError details a partial deposit rejected by policy.
type PartialError struct {
	Bucket Bucket
	Room   Money
	Take   Money
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("partial not allowed: bucket %s needs %s, got %s", e.Bucket, e.Room, e.Take)
}

func (e *PartialError) Unwrap() error { return ErrPartialNotAllowed }

// InvariantError details a failed internal consistency check.
type InvariantError struct {
	Check  string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation [%s]: %s", e.Check, e.Detail)
}

func (e *InvariantError) Unwrap() error { return ErrInvariantViolation }

// StateError details an operation attempted in the wrong payment state.
type StateError struct {
	PaymentID PaymentID
	State     PaymentState
	Operation string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s payment %s in state %s", e.Operation, e.PaymentID, e.State)
}

func (e *StateError) Unwrap() error { return ErrIllegalState }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflictingUpdate)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrBadSchedule) ||
		errors.Is(err, ErrUnknownPaymentType) ||
		errors.Is(err, ErrOverfill) ||
		errors.Is(err, ErrPartialNotAllowed) ||
		errors.Is(err, ErrIllegalState)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
