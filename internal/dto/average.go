package dto

import "github.com/noah-isme/classroom-averages/internal/average"

// AveragesRequest describes one averages computation for a classroom.
type AveragesRequest struct {
	ClassroomID int `validate:"required,gt=0"`
	// SubjectID narrows the computation to one subject; zero means every
	// subject of the classroom.
	SubjectID int `validate:"gte=0"`
	Mode      string
	// Weights holds raw term -> weight values as received.
	Weights map[string]string
	// Groups holds raw "name:term1,term2" partial-average groups.
	Groups    []string `validate:"dive,required"`
	GroupSize int      `validate:"gte=0,lte=12"`
}

// SubjectAverages is the averaging outcome for one subject.
type SubjectAverages struct {
	SubjectID   int             `json:"subject_id"`
	SubjectName string          `json:"subject_name"`
	Result      *average.Result `json:"result"`
}

// ClassroomAveragesResponse is returned by the averages endpoints. Results are
// rounded for display unless noted otherwise. Weighted is false when no term
// weight was requested; subjects then carry per-term averages only.
type ClassroomAveragesResponse struct {
	ClassroomID      int                  `json:"classroom_id"`
	ClassroomName    string               `json:"classroom_name"`
	AcademicPeriodID int                  `json:"academic_period_id"`
	Mode             average.Mode         `json:"mode"`
	Weighted         bool                 `json:"weighted"`
	Terms            []string             `json:"terms"`
	Weights          average.Weights      `json:"weights"`
	Groups           []average.Group      `json:"groups,omitempty"`
	Subjects         []SubjectAverages    `json:"subjects"`
	Diagnostics      []average.Diagnostic `json:"diagnostics,omitempty"`
}

// Subject returns the averages of one subject, if present.
func (r *ClassroomAveragesResponse) Subject(subjectID int) (SubjectAverages, bool) {
	if r == nil {
		return SubjectAverages{}, false
	}
	for _, s := range r.Subjects {
		if s.SubjectID == subjectID {
			return s, true
		}
	}
	return SubjectAverages{}, false
}

// Display returns a copy whose subject results are rounded for presentation.
func (r *ClassroomAveragesResponse) Display(round func(float64) float64) *ClassroomAveragesResponse {
	if r == nil {
		return nil
	}
	out := *r
	out.Subjects = make([]SubjectAverages, len(r.Subjects))
	for i, s := range r.Subjects {
		s.Result = s.Result.Display(round)
		out.Subjects[i] = s
	}
	return &out
}

// UpsertGradeRequest stores one label grade.
type UpsertGradeRequest struct {
	ClassroomID int     `json:"classroom_id" validate:"required,gt=0"`
	StudentID   int     `json:"student_id" validate:"required,gt=0"`
	SubjectID   int     `json:"subject_id" validate:"required,gt=0"`
	TermID      int     `json:"term_id" validate:"required,gt=0"`
	LabelID     int     `json:"label_id" validate:"required,gt=0"`
	Grade       float64 `json:"grade" validate:"gte=0,lte=10"`
}

// CreateReinforcementRequest stores one remedial grade for a term.
type CreateReinforcementRequest struct {
	ClassroomID int     `json:"classroom_id" validate:"required,gt=0"`
	StudentID   int     `json:"student_id" validate:"required,gt=0"`
	SubjectID   int     `json:"subject_id" validate:"required,gt=0"`
	TermID      int     `json:"term_id" validate:"required,gt=0"`
	Label       string  `json:"label" validate:"required,max=120"`
	Date        string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Skill       string  `json:"skill" validate:"max=255"`
	Grade       float64 `json:"grade" validate:"gte=0,lte=10"`
}

// ClassroomGradesResponse is the grade grid of a classroom for one academic
// period, optionally narrowed to one term.
type ClassroomGradesResponse struct {
	ClassroomID      int                    `json:"classroom_id"`
	AcademicPeriodID int                    `json:"academic_period_id"`
	TermID           int                    `json:"term_id,omitempty"`
	Grades           []StudentSubjectGrades `json:"grades"`
}

// StudentSubjectGrades holds the label grades of one student in one subject.
type StudentSubjectGrades struct {
	StudentID int              `json:"student_id"`
	SubjectID int              `json:"subject_id"`
	Grades    []LabelGradeCell `json:"grades"`
}

// LabelGradeCell is one cell of the grade grid. Grade is null when the label
// was never graded.
type LabelGradeCell struct {
	TermID  int      `json:"term_id"`
	Term    string   `json:"term"`
	LabelID int      `json:"label_id"`
	Label   string   `json:"label"`
	Grade   *float64 `json:"grade"`
}
