package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classroom-averages/internal/models"
)

// StudentRepository reads classroom rosters.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a student repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// ListByClassroom returns the roster ordered by name.
func (r *StudentRepository) ListByClassroom(ctx context.Context, classroomID int) ([]models.Student, error) {
	const query = `SELECT id, name, classroom_id FROM students WHERE classroom_id = $1 ORDER BY name, id`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, classroomID); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindInClassroom returns the student only when enrolled in the classroom.
func (r *StudentRepository) FindInClassroom(ctx context.Context, classroomID, studentID int) (*models.Student, error) {
	const query = `SELECT id, name, classroom_id FROM students WHERE classroom_id = $1 AND id = $2`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, classroomID, studentID); err != nil {
		return nil, fmt.Errorf("find student %d: %w", studentID, err)
	}
	return &student, nil
}
