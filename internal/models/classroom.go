package models

// Classroom is a group of students taught by one teacher.
type Classroom struct {
	ID        int    `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	TeacherID int    `db:"teacher_id" json:"teacher_id"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
