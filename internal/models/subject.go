package models

// Subject represents an academic subject taught in a classroom.
type Subject struct {
	ID        int    `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	TeacherID int    `db:"teacher_id" json:"teacher_id"`
}
