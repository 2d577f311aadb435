/*
allocator.go - Distribution of a payment across fee buckets

PURPOSE:
  Consumes a payment amount and a schedule, distributing the amount
  across the classifier-selected buckets in canonical order. Buckets that
  are already full are skipped silently; the amount flows into the next
  target bucket. The allocator never overfills a bucket and never leaves
  a residual: money the targeted buckets cannot absorb is an Overfill,
  whichever label the payment carries.

TWO PHASES:
  1. PlanAllocation - pure: reads the schedule, produces the per-bucket
     delta or an error. No mutation.
  2. Allocate - applies the plan, recomputes status, returns the result.
     Persistence and journaling belong to the service, which runs both
     inside the store transaction.

SEE ALSO:
  - classifier.go: Bucket selection
  - schedule.go: ApplyAllocation (validates before writing)
  - service.go: Transaction boundaries and journaling
*/
package engine

// PlanAllocation computes the per-bucket distribution of amount for a
// payment of the given type against the schedule's current state. Pure:
// the schedule is not modified.
func PlanAllocation(s *Schedule, paymentType PaymentType, amount Money) (Allocation, error) {
	buckets, err := TargetBuckets(paymentType)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		// Zero and negative amounts are rejected upstream; reaching here
		// means a caller bypassed payment validation.
		return nil, &InvariantError{Check: "plan_allocation", Detail: "non-positive payment amount"}
	}

	remaining := amount
	alloc := make(Allocation, len(buckets))

	for _, b := range buckets {
		alloc[b] = Zero()
	}

	for _, b := range buckets {
		room := s.Room(b)
		take := remaining.Min(room)
		if !s.AllowPartial && take.IsPositive() && take.LessThan(room) {
			return nil, &PartialError{Bucket: b, Room: room, Take: take}
		}
		alloc[b] = take
		remaining, err = remaining.Sub(take)
		if err != nil {
			return nil, err
		}
		if remaining.IsZero() {
			break
		}
	}

	if remaining.IsPositive() {
		// For annual types this means the payment exceeds total due; for
		// targeted types a more specific label must be chosen or the
		// schedule corrected. Either way the allocation is refused.
		last := buckets[len(buckets)-1]
		return nil, &OverfillError{Bucket: last, Room: s.Room(last), Requested: amount, Residual: remaining}
	}

	return alloc, nil
}

// AllocationOutcome is what Allocate reports back to the service.
type AllocationOutcome struct {
	PerBucket        Allocation
	PreviousStatus   ScheduleStatus
	NewStatus        ScheduleStatus
	OutstandingAfter Money
}

// Allocate plans and applies the payment against the schedule, then
// recomputes the status with the payment date as the reference "today".
// The schedule is mutated only on success; any error leaves it untouched.
func Allocate(s *Schedule, p *Payment, today Date) (*AllocationOutcome, error) {
	alloc, err := PlanAllocation(s, p.Type, p.Amount)
	if err != nil {
		return nil, err
	}

	previous := s.Status
	if err := s.ApplyAllocation(alloc); err != nil {
		return nil, err
	}

	newStatus := s.RecomputeStatus(today)

	return &AllocationOutcome{
		PerBucket:        alloc,
		PreviousStatus:   previous,
		NewStatus:        newStatus,
		OutstandingAfter: s.Outstanding(),
	}, nil
}
