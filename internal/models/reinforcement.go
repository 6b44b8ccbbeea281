package models

import (
	"database/sql"
	"time"
)

// ReinforcementGrade is a remedial grade recorded for one term.
type ReinforcementGrade struct {
	ID          int       `db:"id" json:"id"`
	StudentID   int       `db:"student_id" json:"student_id"`
	ClassroomID int       `db:"classroom_id" json:"classroom_id"`
	SubjectID   int       `db:"subject_id" json:"subject_id"`
	TermID      int       `db:"term_id" json:"term_id"`
	Label       string    `db:"label" json:"label"`
	Date        time.Time `db:"date" json:"date"`
	Skill       string    `db:"skill" json:"skill"`
	TeacherID   int       `db:"teacher_id" json:"teacher_id"`
	Grade       float64   `db:"grade" json:"grade"`
}

// ReinforcementEntry is a reinforcement row joined with its term name.
type ReinforcementEntry struct {
	StudentID int             `db:"student_id"`
	SubjectID int             `db:"subject_id"`
	TermID    int             `db:"term_id"`
	Term      string          `db:"term"`
	Label     string          `db:"label"`
	Grade     sql.NullFloat64 `db:"grade"`
}
