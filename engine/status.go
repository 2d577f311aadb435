/*
status.go - Schedule status derivation

PURPOSE:
  Derives the aggregate status of a schedule from its due/paid vectors,
  due dates, and an explicit reference date. Time is always external: the
  caller supplies "today", the engine never reads a clock.

ORDERING:
  FULLY_PAID short-circuits lateness: a paid schedule is never late, even
  if it was paid after the fact. LATE dominates PARTIALLY_PAID whenever
  any bucket is past due and unsatisfied. Lateness uses a strict
  comparison: paying on the due date is on time.
*/
package engine

// ComputeStatus derives the schedule status for the given reference date.
// Pure and idempotent: calling it twice with the same today yields the
// same result.
func ComputeStatus(s *Schedule, today Date) ScheduleStatus {
	if s.Outstanding().IsZero() {
		return StatusFullyPaid
	}

	for _, b := range BucketOrder {
		if s.Paid[b].LessThan(s.Due[b]) && today.After(s.DueDates[b]) {
			return StatusLate
		}
	}

	if s.TotalPaid().IsZero() {
		return StatusUnpaid
	}
	return StatusPartiallyPaid
}
