package models

// Student represents a learner enrolled in a classroom.
type Student struct {
	ID          int    `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	ClassroomID int    `db:"classroom_id" json:"classroom_id"`
}
