package average

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Mode selects how the final average is derived from the per-term factors.
type Mode string

const (
	// ModeSum reports the plain sum of every defined ave_factor.
	ModeSum Mode = "SUM"
	// ModeSumDividedByBuckets divides that sum by the number of weighted buckets.
	ModeSumDividedByBuckets Mode = "SUM_DIVIDED_BY_BUCKETS"
)

const (
	// LabelRegular marks a term average built from regular grades only.
	LabelRegular = "regular"
	// LabelIncludesReinforcement marks a term average that folded in reinforcement grades.
	LabelIncludesReinforcement = "includes_reinforcement"
)

// Valid reports whether m is one of the supported modes.
func (m Mode) Valid() bool {
	return m == ModeSum || m == ModeSumDividedByBuckets
}

// ParseMode normalises user supplied mode names.
func ParseMode(raw string) (Mode, bool) {
	mode := Mode(strings.ToUpper(strings.TrimSpace(raw)))
	return mode, mode.Valid()
}

// Score is a grade value that may be absent. Values that fail numeric
// parsing, are negative or are not finite decode as absent rather than zero.
type Score struct {
	Value float64
	Valid bool
}

// NewScore returns a present score when v is finite and non-negative.
func NewScore(v float64) Score {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return Score{}
	}
	return Score{Value: v, Valid: true}
}

// ParseScore parses a raw cell/query value.
func ParseScore(raw string) Score {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Score{}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Score{}
	}
	return NewScore(v)
}

// UnmarshalJSON accepts numbers, numeric strings and null.
func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = Score{}
		return nil
	}
	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			*s = Score{}
			return nil
		}
		*s = ParseScore(raw)
		return nil
	}
	*s = ParseScore(string(data))
	return nil
}

// MarshalJSON renders absent scores as null.
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// Student identifies a learner in the roster being averaged.
type Student struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// LabelGrade is the grade for a single grade label.
type LabelGrade struct {
	LabelID int   `json:"label_id"`
	Grade   Score `json:"grade"`
}

// TermGrades groups the label grades recorded for one term.
type TermGrades struct {
	Term   string       `json:"term"`
	Grades []LabelGrade `json:"grades"`
}

// GradeRecord holds every term of grades for a student in a subject.
type GradeRecord struct {
	StudentID int          `json:"student_id"`
	SubjectID int          `json:"subject_id"`
	Terms     []TermGrades `json:"terms"`
}

// ReinforcementGrade is a remedial grade tagged to one term.
type ReinforcementGrade struct {
	StudentID int    `json:"student_id"`
	SubjectID int    `json:"subject_id"`
	Term      string `json:"term"`
	Label     string `json:"label"`
	Grade     Score  `json:"grade"`
}

// Weights maps a term bucket to its weight.
type Weights map[string]float64

// Group names a set of terms whose factors roll up into one partial average.
type Group struct {
	Name  string   `json:"name"`
	Terms []string `json:"terms"`
}

// TermAverage is the computed average for one term of one student.
type TermAverage struct {
	Term                  string   `json:"term"`
	Average               float64  `json:"average"`
	Weight                *float64 `json:"weight,omitempty"`
	AveFactor             *float64 `json:"ave_factor,omitempty"`
	GradeCount            int      `json:"grade_count"`
	IncludesReinforcement bool     `json:"includes_reinforcement"`
	Label                 string   `json:"label"`
}

// PartialAverage is the sum of the included factors of one group.
type PartialAverage struct {
	Name         string   `json:"name"`
	Terms        []string `json:"terms"`
	Value        float64  `json:"value"`
	Contributing int      `json:"contributing"`
}

// Record is the averaging outcome for one student.
type Record struct {
	StudentID             int              `json:"student_id"`
	StudentName           string           `json:"student_name"`
	PerTerm               []TermAverage    `json:"per_term"`
	PartialAverages       []PartialAverage `json:"partial_averages,omitempty"`
	FactorSum             float64          `json:"factor_sum"`
	FinalAverage          float64          `json:"final_average"`
	IncludesReinforcement bool             `json:"includes_reinforcement"`
}

// Term returns the per-term entry for term, if any.
func (r Record) Term(term string) (TermAverage, bool) {
	for _, t := range r.PerTerm {
		if t.Term == term {
			return t, true
		}
	}
	return TermAverage{}, false
}

// Result is the calculator output for one subject.
type Result struct {
	SubjectID   int          `json:"subject_id"`
	Mode        Mode         `json:"mode"`
	Buckets     int          `json:"buckets"`
	Terms       []string     `json:"terms"`
	Records     []Record     `json:"records"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	Rounded     bool         `json:"rounded"`
	// Unweighted results carry per-term averages only.
	Unweighted bool `json:"unweighted,omitempty"`
}

// Record returns the record for studentID, if any.
func (r *Result) Record(studentID int) (Record, bool) {
	if r == nil {
		return Record{}, false
	}
	for _, rec := range r.Records {
		if rec.StudentID == studentID {
			return rec, true
		}
	}
	return Record{}, false
}
