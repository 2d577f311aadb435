/*
classifier.go - Payment type to bucket mapping

PURPOSE:
  Maps a payment's declared type to the ordered list of buckets it may
  fill. The enumeration is closed: adding a label is a one-point change in
  the table below, and anything else is UnknownPaymentType.

  The classifier is pure. It never consults the schedule: whether the
  targeted buckets have room is the allocator's concern.
*/
package engine

import "fmt"

// targetBuckets is the normative, closed mapping. Order is fill order.
var targetBuckets = map[PaymentType][]Bucket{
	PayInscriptionOnly:       {BucketInscription},
	PayInscriptionPlusT1:     {BucketInscription, BucketT1},
	PayInscriptionPlusT1T2:   {BucketInscription, BucketT1, BucketT2},
	PayInscriptionPlusAnnual: {BucketInscription, BucketT1, BucketT2, BucketT3},
	PayT1Only:                {BucketT1},
	PayT2Only:                {BucketT2},
	PayT3Only:                {BucketT3},
	PayAnnualTuition:         {BucketT1, BucketT2, BucketT3},
}

// TargetBuckets returns the buckets a payment of the given type may fill,
// in fill order. Fails with UnknownPaymentType for any label outside the
// closed enumeration.
func TargetBuckets(t PaymentType) ([]Bucket, error) {
	buckets, ok := targetBuckets[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPaymentType, t)
	}
	out := make([]Bucket, len(buckets))
	copy(out, buckets)
	return out, nil
}

// KnownPaymentTypes lists the closed enumeration, for validation layers.
func KnownPaymentTypes() []PaymentType {
	return []PaymentType{
		PayInscriptionOnly,
		PayInscriptionPlusT1,
		PayInscriptionPlusT1T2,
		PayInscriptionPlusAnnual,
		PayT1Only,
		PayT2Only,
		PayT3Only,
		PayAnnualTuition,
	}
}
