package engine_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/scolaris/tuition-engine/engine"
)

func TestTargetBuckets_ClosedTable(t *testing.T) {
	// GIVEN: The closed payment-type table
	// WHEN: Resolving each label
	// THEN: The ordered bucket list matches exactly

	cases := []struct {
		label engine.PaymentType
		want  []engine.Bucket
	}{
		{engine.PayInscriptionOnly, []engine.Bucket{engine.BucketInscription}},
		{engine.PayInscriptionPlusT1, []engine.Bucket{engine.BucketInscription, engine.BucketT1}},
		{engine.PayInscriptionPlusT1T2, []engine.Bucket{engine.BucketInscription, engine.BucketT1, engine.BucketT2}},
		{engine.PayInscriptionPlusAnnual, []engine.Bucket{engine.BucketInscription, engine.BucketT1, engine.BucketT2, engine.BucketT3}},
		{engine.PayT1Only, []engine.Bucket{engine.BucketT1}},
		{engine.PayT2Only, []engine.Bucket{engine.BucketT2}},
		{engine.PayT3Only, []engine.Bucket{engine.BucketT3}},
		{engine.PayAnnualTuition, []engine.Bucket{engine.BucketT1, engine.BucketT2, engine.BucketT3}},
	}

	for _, tc := range cases {
		got, err := engine.TargetBuckets(tc.label)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tc.label, err)
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s: buckets = %v, want %v", tc.label, got, tc.want)
		}
	}
}

func TestTargetBuckets_UnknownLabel(t *testing.T) {
	_, err := engine.TargetBuckets(engine.PaymentType("SCHOLARSHIP"))
	if !errors.Is(err, engine.ErrUnknownPaymentType) {
		t.Errorf("err = %v, want UnknownPaymentType", err)
	}
}

func TestTargetBuckets_ReturnsCopy(t *testing.T) {
	// GIVEN: A resolved bucket list
	got, err := engine.TargetBuckets(engine.PayAnnualTuition)
	if err != nil {
		t.Fatalf("TargetBuckets: %v", err)
	}

	// WHEN: The caller scribbles on it
	got[0] = engine.BucketInscription

	// THEN: The table itself is unaffected
	fresh, _ := engine.TargetBuckets(engine.PayAnnualTuition)
	if fresh[0] != engine.BucketT1 {
		t.Errorf("table mutated through returned slice")
	}
}

func TestKnownPaymentTypes_CoversTable(t *testing.T) {
	types := engine.KnownPaymentTypes()
	if len(types) != 8 {
		t.Fatalf("len = %d, want 8", len(types))
	}
	for _, pt := range types {
		if _, err := engine.TargetBuckets(pt); err != nil {
			t.Errorf("%s: listed but not resolvable: %v", pt, err)
		}
	}
}
