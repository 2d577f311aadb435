/*
Package engine provides the tuition payment allocation and installment
state engine.

PURPOSE:
  This package contains the domain types and algorithms that govern the
  financial correctness of a school's tuition ledger: how an incoming
  payment is attributed to fee buckets, how a student's schedule status
  is derived, and how every state change is journaled.

KEY CONCEPTS IN THIS FILE (types.go):
  - Bucket: One of the four fee compartments (inscription + 3 installments)
  - PaymentType: Closed set of declared payment intents
  - Payment: A recorded payment with its lifecycle state and allocation
  - AcademicYear: Opaque "YYYY-YYYY" key
  - School/Student/Schedule/Payment IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Exactness: Money uses decimal.Decimal, never floats
  2. Explicit time: "today" is injected, the engine never reads a clock
  3. Type Safety: Strong typing for IDs prevents mixing school/student IDs
  4. Auditability: Every allocation and cancellation is journaled

SEE ALSO:
  - schedule.go: Fee schedule state and mutation rules
  - classifier.go: Payment type to bucket mapping
  - allocator.go: Distribution of an amount across buckets
  - status.go: Derivation of the schedule status
*/
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type SchoolID string
type StudentID string
type ScheduleID string
type PaymentID string

// =============================================================================
// ACADEMIC YEAR - "YYYY-YYYY", second year = first + 1
// =============================================================================

type AcademicYear string

var academicYearRe = regexp.MustCompile(`^(\d{4})-(\d{4})$`)

// ParseAcademicYear validates the "YYYY-YYYY" form and the +1 rule.
func ParseAcademicYear(s string) (AcademicYear, error) {
	m := academicYearRe.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("%w: academic year %q not in YYYY-YYYY form", ErrBadSchedule, s)
	}
	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])
	if second != first+1 {
		return "", fmt.Errorf("%w: academic year %q must span consecutive years", ErrBadSchedule, s)
	}
	return AcademicYear(s), nil
}

func (y AcademicYear) Validate() error {
	_, err := ParseAcademicYear(string(y))
	return err
}

// =============================================================================
// BUCKET - Fee compartments in canonical order
// =============================================================================

// Bucket identifies one of the four fee compartments. The canonical order
// INSCRIPTION < T1 < T2 < T3 governs both allocation and lateness.
type Bucket int

const (
	BucketInscription Bucket = iota
	BucketT1
	BucketT2
	BucketT3
)

// BucketOrder is the canonical fill and evaluation order.
var BucketOrder = []Bucket{BucketInscription, BucketT1, BucketT2, BucketT3}

func (b Bucket) String() string {
	switch b {
	case BucketInscription:
		return "INSCRIPTION"
	case BucketT1:
		return "T1"
	case BucketT2:
		return "T2"
	case BucketT3:
		return "T3"
	default:
		return fmt.Sprintf("Bucket(%d)", int(b))
	}
}

// MarshalText makes Bucket usable as a JSON map key and field value.
func (b Bucket) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *Bucket) UnmarshalText(text []byte) error {
	parsed, err := ParseBucket(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// ParseBucket converts the stable string form back to a Bucket.
func ParseBucket(s string) (Bucket, error) {
	switch s {
	case "INSCRIPTION":
		return BucketInscription, nil
	case "T1":
		return BucketT1, nil
	case "T2":
		return BucketT2, nil
	case "T3":
		return BucketT3, nil
	default:
		return 0, fmt.Errorf("unknown bucket %q", s)
	}
}

// =============================================================================
// ALLOCATION - Per-bucket money vector
// =============================================================================

// Allocation maps buckets to the money attributed to them.
// Absent buckets count as zero.
type Allocation map[Bucket]Money

// Total sums the allocation across all buckets.
func (a Allocation) Total() Money {
	total := Zero()
	for _, b := range BucketOrder {
		if m, ok := a[b]; ok {
			total = total.Add(m)
		}
	}
	return total
}

// Clone returns an independent copy.
func (a Allocation) Clone() Allocation {
	out := make(Allocation, len(a))
	for b, m := range a {
		out[b] = m
	}
	return out
}

// Get returns the amount for a bucket, zero if absent.
func (a Allocation) Get(b Bucket) Money {
	if m, ok := a[b]; ok {
		return m
	}
	return Zero()
}

// =============================================================================
// SCHEDULE STATUS
// =============================================================================

type ScheduleStatus string

const (
	StatusUnpaid        ScheduleStatus = "UNPAID"
	StatusPartiallyPaid ScheduleStatus = "PARTIALLY_PAID"
	StatusFullyPaid     ScheduleStatus = "FULLY_PAID"
	StatusLate          ScheduleStatus = "LATE"
)

// =============================================================================
// PAYMENT
// =============================================================================

// PaymentType is the declared intent of a payment. The set is closed: the
// classifier rejects anything else with UnknownPaymentType.
type PaymentType string

const (
	PayInscriptionOnly       PaymentType = "INSCRIPTION_ONLY"
	PayInscriptionPlusT1     PaymentType = "INSCRIPTION_PLUS_T1"
	PayInscriptionPlusT1T2   PaymentType = "INSCRIPTION_PLUS_T1_T2"
	PayInscriptionPlusAnnual PaymentType = "INSCRIPTION_PLUS_ANNUAL"
	PayT1Only                PaymentType = "T1_ONLY"
	PayT2Only                PaymentType = "T2_ONLY"
	PayT3Only                PaymentType = "T3_ONLY"
	PayAnnualTuition         PaymentType = "ANNUAL_TUITION"
)

type PaymentState string

const (
	PaymentPending   PaymentState = "PENDING"
	PaymentValidated PaymentState = "VALIDATED"
	PaymentCanceled  PaymentState = "CANCELED"
)

// Payment is a recorded payment. Only VALIDATED payments participate in
// allocation; the Allocation field is filled exactly once, at validation.
type Payment struct {
	ID           PaymentID
	SchoolID     SchoolID
	StudentID    StudentID
	AcademicYear AcademicYear
	Amount       Money
	Date         Date
	Type         PaymentType
	Method       string // informational: cash, check, mobile-money, bank-transfer
	Receipt      string // school-unique receipt number, assigned at validation
	State        PaymentState
	Allocation   Allocation

	CreatedAt   time.Time
	ValidatedAt *time.Time
	CanceledAt  *time.Time
}

// =============================================================================
// RESULTS - Returned by the service call surface
// =============================================================================

// ValidationResult summarizes a successful payment validation.
type ValidationResult struct {
	ReceiptNumber    string
	PerBucket        Allocation
	NewStatus        ScheduleStatus
	OutstandingAfter Money
}

// CancellationResult summarizes a successful payment cancellation.
type CancellationResult struct {
	NewStatus        ScheduleStatus
	OutstandingAfter Money
}

// PercentFromFloat builds a late-penalty percentage. Informational only:
// the engine never computes a penalty amount.
func PercentFromFloat(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}
