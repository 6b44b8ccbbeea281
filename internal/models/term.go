package models

// AcademicPeriod is a school year; its terms are the weight buckets.
type AcademicPeriod struct {
	ID   int    `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Term is a grading period (bimester, trimester...) within an academic period.
type Term struct {
	ID               int    `db:"id" json:"id"`
	Name             string `db:"name" json:"name"`
	AcademicPeriodID int    `db:"academic_period_id" json:"academic_period_id"`
}
