package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/scolaris/tuition-engine/engine"
)

const sampleGrid = `{
	"school_id": "GS-KLM",
	"level": "6EME",
	"academic_year": "2024-2025",
	"inscription": "30000",
	"t1": "500000",
	"t2": "500000",
	"t3": "500000",
	"due_dates": {
		"inscription": "2024-09-30",
		"t1": "2025-01-10",
		"t2": "2025-03-05",
		"t3": "2025-04-06"
	},
	"allow_partial": true,
	"late_penalty_pct": "5"
}`

func TestParseFeeGrid_Valid(t *testing.T) {
	// GIVEN: A well-formed grid document
	grid, err := engine.ParseFeeGrid([]byte(sampleGrid))
	if err != nil {
		t.Fatalf("ParseFeeGrid: %v", err)
	}

	// THEN: Amounts, dates, and flags are all bound
	if grid.SchoolID != "GS-KLM" || grid.Level != "6EME" {
		t.Errorf("identity = %s/%s, want GS-KLM/6EME", grid.SchoolID, grid.Level)
	}
	mustEqualMoney(t, grid.Due[engine.BucketInscription], money(30_000), "Due(INSCRIPTION)")
	mustEqualMoney(t, grid.Due[engine.BucketT3], money(500_000), "Due(T3)")
	if !grid.DueDates[engine.BucketT1].Equal(date(2025, time.January, 10)) {
		t.Errorf("DueDates(T1) = %s", grid.DueDates[engine.BucketT1])
	}
	if !grid.AllowPartial {
		t.Errorf("AllowPartial = false, want true")
	}
}

func TestParseFeeGrid_ScheduleInput(t *testing.T) {
	// GIVEN: A parsed grid
	grid, err := engine.ParseFeeGrid([]byte(sampleGrid))
	if err != nil {
		t.Fatalf("ParseFeeGrid: %v", err)
	}

	// WHEN: Binding it to a student
	in := grid.ScheduleInput("student-001")

	// THEN: The input builds a valid schedule
	s, err := engine.NewSchedule(in.StudentID, in.AcademicYear, in.Due, in.DueDates, in.AllowPartial, in.LatePenaltyPct)
	if err != nil {
		t.Fatalf("NewSchedule from grid input: %v", err)
	}
	mustEqualMoney(t, s.TotalDue(), money(1_530_000), "TotalDue")
}

func TestParseFeeGrid_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":        `{`,
		"missing school":  `{"academic_year":"2024-2025"}`,
		"bad year":        `{"school_id":"X","academic_year":"2024"}`,
		"negative amount": `{"school_id":"X","academic_year":"2024-2025","inscription":"-5","t1":"0","t2":"0","t3":"0","due_dates":{"inscription":"2024-09-30","t1":"2025-01-10","t2":"2025-03-05","t3":"2025-04-06"}}`,
		"bad date":        `{"school_id":"X","academic_year":"2024-2025","inscription":"0","t1":"0","t2":"0","t3":"0","due_dates":{"inscription":"soon","t1":"2025-01-10","t2":"2025-03-05","t3":"2025-04-06"}}`,
	}

	for name, doc := range cases {
		if _, err := engine.ParseFeeGrid([]byte(doc)); !errors.Is(err, engine.ErrBadSchedule) {
			t.Errorf("%s: err = %v, want BadSchedule", name, err)
		}
	}
}
