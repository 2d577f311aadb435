/*
schedule.go - Per-student, per-year fee schedule

PURPOSE:
  A Schedule records what a student owes and has paid across the four fee
  buckets, each with a due date, plus a derived status. It is the unit of
  serialization: all mutations happen under the store's per-schedule
  transaction, and status is recomputed after every mutation, never
  trusted on write.

CRITICAL INVARIANTS (hold after every successful operation):
  1. 0 <= paid[b] <= due[b] for every bucket b
  2. total paid <= total due
  3. status == ComputeStatus(due, paid, due dates, today at last call)

MUTATION RULES:
  - ApplyAllocation validates the whole delta before writing anything,
    so a rejected allocation leaves the schedule untouched.
  - ReverseAllocation is the exact inverse, used only by cancellation.

SEE ALSO:
  - allocator.go: Produces the deltas applied here
  - status.go: Status derivation
*/
package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Schedule is the per-student, per-academic-year record of amounts due and
// paid. Uniqueness scope is (StudentID, AcademicYear).
type Schedule struct {
	ID           ScheduleID
	StudentID    StudentID
	AcademicYear AcademicYear

	Due      map[Bucket]Money
	Paid     map[Bucket]Money
	DueDates map[Bucket]Date

	Status       ScheduleStatus
	AllowPartial bool

	// LatePenaltyPct is metadata only: exposed so callers can bill a
	// penalty separately. The engine never computes a penalty amount.
	LatePenaltyPct decimal.Decimal

	// Version supports optimistic concurrency in stores that cannot hold
	// a row lock for the whole operation. Incremented on every update.
	Version int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSchedule validates inputs and builds a fresh, unpaid schedule.
// Fails with BadSchedule on negative due amounts, due dates that are not
// monotonically non-decreasing in canonical bucket order, or a malformed
// academic year. Zero due is allowed: a zero-due bucket is always satisfied.
func NewSchedule(studentID StudentID, year AcademicYear, due map[Bucket]Money, dueDates map[Bucket]Date, allowPartial bool, latePenaltyPct decimal.Decimal) (*Schedule, error) {
	if studentID == "" {
		return nil, fmt.Errorf("%w: empty student id", ErrBadSchedule)
	}
	if err := year.Validate(); err != nil {
		return nil, err
	}

	dueCopy := make(map[Bucket]Money, len(BucketOrder))
	datesCopy := make(map[Bucket]Date, len(BucketOrder))
	paid := make(map[Bucket]Money, len(BucketOrder))

	for _, b := range BucketOrder {
		amount, ok := due[b]
		if !ok {
			return nil, fmt.Errorf("%w: missing due amount for %s", ErrBadSchedule, b)
		}
		if amount.Value.IsNegative() {
			return nil, fmt.Errorf("%w: negative due amount for %s", ErrBadSchedule, b)
		}
		date, ok := dueDates[b]
		if !ok || date.IsZero() {
			return nil, fmt.Errorf("%w: missing due date for %s", ErrBadSchedule, b)
		}
		dueCopy[b] = amount
		datesCopy[b] = date
		paid[b] = Zero()
	}

	// Due dates must not go backwards along the canonical order.
	for i := 1; i < len(BucketOrder); i++ {
		prev, cur := BucketOrder[i-1], BucketOrder[i]
		if datesCopy[cur].Before(datesCopy[prev]) {
			return nil, fmt.Errorf("%w: due date for %s precedes %s", ErrBadSchedule, cur, prev)
		}
	}

	if latePenaltyPct.IsNegative() {
		return nil, fmt.Errorf("%w: negative late penalty", ErrBadSchedule)
	}

	return &Schedule{
		StudentID:      studentID,
		AcademicYear:   year,
		Due:            dueCopy,
		Paid:           paid,
		DueDates:       datesCopy,
		Status:         StatusUnpaid,
		AllowPartial:   allowPartial,
		LatePenaltyPct: latePenaltyPct,
		Version:        1,
	}, nil
}

// =============================================================================
// DERIVED TOTALS
// =============================================================================

func (s *Schedule) TotalDue() Money {
	total := Zero()
	for _, b := range BucketOrder {
		total = total.Add(s.Due[b])
	}
	return total
}

func (s *Schedule) TotalPaid() Money {
	total := Zero()
	for _, b := range BucketOrder {
		total = total.Add(s.Paid[b])
	}
	return total
}

// Outstanding is total due minus total paid. The paid<=due invariant makes
// this always non-negative; a failure here is a bug.
func (s *Schedule) Outstanding() Money {
	out, err := s.TotalDue().Sub(s.TotalPaid())
	if err != nil {
		panic(&InvariantError{Check: "outstanding", Detail: err.Error()})
	}
	return out
}

// Room returns how much bucket b can still absorb.
func (s *Schedule) Room(b Bucket) Money {
	room, err := s.Due[b].Sub(s.Paid[b])
	if err != nil {
		panic(&InvariantError{Check: "room", Detail: err.Error()})
	}
	return room
}

// =============================================================================
// MUTATIONS
// =============================================================================

// ApplyAllocation adds delta to the paid vector. The whole delta is
// validated first: on any rejection nothing is written.
// Fails with Overfill if a bucket would exceed its due amount, or with
// PartialNotAllowed if policy forbids the resulting partial fill.
func (s *Schedule) ApplyAllocation(delta Allocation) error {
	next := make(map[Bucket]Money, len(BucketOrder))
	for _, b := range BucketOrder {
		take := delta.Get(b)
		if take.Value.IsNegative() {
			return &InvariantError{Check: "apply_allocation", Detail: fmt.Sprintf("negative delta for %s", b)}
		}
		newPaid := s.Paid[b].Add(take)
		if newPaid.GreaterThan(s.Due[b]) {
			return &OverfillError{Bucket: b, Room: s.Room(b), Requested: take}
		}
		if !s.AllowPartial && take.IsPositive() && newPaid.LessThan(s.Due[b]) && newPaid.IsPositive() {
			return &PartialError{Bucket: b, Room: s.Room(b), Take: take}
		}
		next[b] = newPaid
	}
	for b, v := range next {
		s.Paid[b] = v
	}
	return nil
}

// ReverseAllocation subtracts delta from the paid vector. Used only when a
// payment is canceled. A negative result is an InvariantViolation: it means
// the stored allocation no longer matches the paid vector.
func (s *Schedule) ReverseAllocation(delta Allocation) error {
	next := make(map[Bucket]Money, len(BucketOrder))
	for _, b := range BucketOrder {
		newPaid, err := s.Paid[b].Sub(delta.Get(b))
		if err != nil {
			return &InvariantError{
				Check:  "reverse_allocation",
				Detail: fmt.Sprintf("bucket %s: paid %s < reversal %s", b, s.Paid[b], delta.Get(b)),
			}
		}
		next[b] = newPaid
	}
	for b, v := range next {
		s.Paid[b] = v
	}
	return nil
}

// RecomputeStatus derives and stores the status for the given reference
// date. Pure over the schedule state; idempotent for the same today.
func (s *Schedule) RecomputeStatus(today Date) ScheduleStatus {
	s.Status = ComputeStatus(s, today)
	return s.Status
}

// Clone returns a deep copy, used for snapshots and store isolation.
func (s *Schedule) Clone() *Schedule {
	c := *s
	c.Due = make(map[Bucket]Money, len(s.Due))
	c.Paid = make(map[Bucket]Money, len(s.Paid))
	c.DueDates = make(map[Bucket]Date, len(s.DueDates))
	for b, v := range s.Due {
		c.Due[b] = v
	}
	for b, v := range s.Paid {
		c.Paid[b] = v
	}
	for b, v := range s.DueDates {
		c.DueDates[b] = v
	}
	return &c
}

// PaidVector returns the paid amounts as an Allocation, for journaling.
func (s *Schedule) PaidVector() Allocation {
	out := make(Allocation, len(BucketOrder))
	for _, b := range BucketOrder {
		out[b] = s.Paid[b]
	}
	return out
}
