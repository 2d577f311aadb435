/*
receipt.go - School-scoped receipt numbering

PURPOSE:
  Receipt numbers are unique within a school, monotonically increasing in
  issuance order, and collision-free under concurrent callers. The store
  serializes the counter per school: in SQLite that is an UPDATE on the
  counter row inside the enclosing transaction; in memory, a mutex.
  Two payments for different schools may receive numbers in parallel.

FORMAT:
  "<SCHOOL>-<6-digit counter>", stable for a given school. The engine
  treats the string as opaque beyond uniqueness and ordering.
*/
package engine

import (
	"context"
	"fmt"
)

// ReceiptCounter issues school-unique, monotonically increasing receipt
// numbers. Issuance must happen inside the same transaction as the payment
// validation so a committed payment always owns its number.
type ReceiptCounter interface {
	NextReceiptNumber(ctx context.Context, schoolID SchoolID) (string, error)
}

// FormatReceiptNumber renders the stable receipt format for a school.
// Store implementations share it so numbering stays uniform across
// backends.
func FormatReceiptNumber(schoolID SchoolID, n int64) string {
	return fmt.Sprintf("%s-%06d", schoolID, n)
}
