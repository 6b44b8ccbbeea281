package models

import (
	"database/sql"
	"time"
)

// GradeLabel names one graded activity within a term (homework, exam...).
type GradeLabel struct {
	ID    int    `db:"id" json:"id"`
	Label string `db:"label" json:"label"`
}

// Grade is a stored grade for one student, subject, term and label.
type Grade struct {
	ID          int       `db:"id" json:"id"`
	StudentID   int       `db:"student_id" json:"student_id"`
	SubjectID   int       `db:"subject_id" json:"subject_id"`
	TermID      int       `db:"term_id" json:"term_id"`
	LabelID     int       `db:"label_id" json:"label_id"`
	ClassroomID int       `db:"classroom_id" json:"classroom_id"`
	TeacherID   int       `db:"teacher_id" json:"teacher_id"`
	Grade       float64   `db:"grade" json:"grade"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// GradeEntry is a flattened grade row joined with its term name. A NULL grade
// marks a label that exists but was never graded.
type GradeEntry struct {
	StudentID int             `db:"student_id"`
	SubjectID int             `db:"subject_id"`
	TermID    int             `db:"term_id"`
	Term      string          `db:"term"`
	LabelID   int             `db:"label_id"`
	Label     string          `db:"label"`
	Grade     sql.NullFloat64 `db:"grade"`
}
