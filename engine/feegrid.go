/*
feegrid.go - Per-school fee grid parsing

PURPOSE:
  Schedules are populated from a per-school fee grid: the amounts due per
  bucket and the due dates for a class level in a given academic year.
  Grids live as JSON (admin-editable, database-storable); this file
  converts a grid document into CreateScheduleInput values.

JSON SCHEMA:
  {
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
  }
*/
package engine

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// FeeGridJSON is the JSON representation of one grid row (one school,
// one class level, one academic year).
type FeeGridJSON struct {
	SchoolID     string           `json:"school_id"`
	Level        string           `json:"level"`
	AcademicYear string           `json:"academic_year"`
	Inscription  string           `json:"inscription"`
	T1           string           `json:"t1"`
	T2           string           `json:"t2"`
	T3           string           `json:"t3"`
	DueDates     feeGridDatesJSON `json:"due_dates"`
	AllowPartial bool             `json:"allow_partial"`
	LatePenalty  string           `json:"late_penalty_pct,omitempty"`
}

type feeGridDatesJSON struct {
	Inscription string `json:"inscription"`
	T1          string `json:"t1"`
	T2          string `json:"t2"`
	T3          string `json:"t3"`
}

// FeeGrid is the parsed, validated grid.
type FeeGrid struct {
	SchoolID       SchoolID
	Level          string
	AcademicYear   AcademicYear
	Due            map[Bucket]Money
	DueDates       map[Bucket]Date
	AllowPartial   bool
	LatePenaltyPct decimal.Decimal
}

// ParseFeeGrid parses and validates a grid document. Validation reuses the
// schedule rules: amounts non-negative, dates monotone, year well-formed.
func ParseFeeGrid(data []byte) (*FeeGrid, error) {
	var doc FeeGridJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: invalid fee grid JSON: %v", ErrBadSchedule, err)
	}
	if doc.SchoolID == "" {
		return nil, fmt.Errorf("%w: fee grid missing school_id", ErrBadSchedule)
	}

	year, err := ParseAcademicYear(doc.AcademicYear)
	if err != nil {
		return nil, err
	}

	due := make(map[Bucket]Money, len(BucketOrder))
	for b, raw := range map[Bucket]string{
		BucketInscription: doc.Inscription,
		BucketT1:          doc.T1,
		BucketT2:          doc.T2,
		BucketT3:          doc.T3,
	} {
		m, err := ParseMoney(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: amount for %s: %v", ErrBadSchedule, b, err)
		}
		due[b] = m
	}

	dates := make(map[Bucket]Date, len(BucketOrder))
	for b, raw := range map[Bucket]string{
		BucketInscription: doc.DueDates.Inscription,
		BucketT1:          doc.DueDates.T1,
		BucketT2:          doc.DueDates.T2,
		BucketT3:          doc.DueDates.T3,
	} {
		d, err := ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: due date for %s: %v", ErrBadSchedule, b, err)
		}
		dates[b] = d
	}

	penalty := decimal.Zero
	if doc.LatePenalty != "" {
		penalty, err = decimal.NewFromString(doc.LatePenalty)
		if err != nil || penalty.IsNegative() {
			return nil, fmt.Errorf("%w: invalid late penalty %q", ErrBadSchedule, doc.LatePenalty)
		}
	}

	grid := &FeeGrid{
		SchoolID:       SchoolID(doc.SchoolID),
		Level:          doc.Level,
		AcademicYear:   year,
		Due:            due,
		DueDates:       dates,
		AllowPartial:   doc.AllowPartial,
		LatePenaltyPct: penalty,
	}

	// Run the schedule constructor once so a bad grid fails at parse time,
	// not at first enrollment.
	if _, err := NewSchedule("grid-probe", year, due, dates, doc.AllowPartial, penalty); err != nil {
		return nil, err
	}
	return grid, nil
}

// ScheduleInput binds the grid to one student enrollment.
func (g *FeeGrid) ScheduleInput(studentID StudentID) CreateScheduleInput {
	due := make(map[Bucket]Money, len(g.Due))
	dates := make(map[Bucket]Date, len(g.DueDates))
	for b, m := range g.Due {
		due[b] = m
	}
	for b, d := range g.DueDates {
		dates[b] = d
	}
	return CreateScheduleInput{
		StudentID:      studentID,
		AcademicYear:   g.AcademicYear,
		Due:            due,
		DueDates:       dates,
		AllowPartial:   g.AllowPartial,
		LatePenaltyPct: g.LatePenaltyPct,
	}
}
