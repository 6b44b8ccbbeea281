package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classroom-averages/internal/models"
)

// SubjectRepository reads the subjects assigned to classrooms.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a subject repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// ListByClassroom returns every subject taught in the classroom.
func (r *SubjectRepository) ListByClassroom(ctx context.Context, classroomID int) ([]models.Subject, error) {
	const query = `SELECT s.id, s.name, COALESCE(s.teacher_id, 0) AS teacher_id
        FROM subjects s
        JOIN classroom_subjects cs ON cs.subject_id = s.id
        WHERE cs.classroom_id = $1
        ORDER BY s.name, s.id`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, classroomID); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// FindInClassroom returns the subject only when it is assigned to the classroom.
func (r *SubjectRepository) FindInClassroom(ctx context.Context, classroomID, subjectID int) (*models.Subject, error) {
	const query = `SELECT s.id, s.name, COALESCE(s.teacher_id, 0) AS teacher_id
        FROM subjects s
        JOIN classroom_subjects cs ON cs.subject_id = s.id
        WHERE cs.classroom_id = $1 AND s.id = $2`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, classroomID, subjectID); err != nil {
		return nil, fmt.Errorf("find subject %d: %w", subjectID, err)
	}
	return &subject, nil
}

// HasLabel reports whether the grade label is attached to the subject.
func (r *SubjectRepository) HasLabel(ctx context.Context, subjectID, labelID int) (bool, error) {
	const query = `SELECT EXISTS (
            SELECT 1 FROM grade_labels_subjects WHERE subject_id = $1 AND grade_label_id = $2
        )`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, subjectID, labelID); err != nil {
		return false, fmt.Errorf("check label %d of subject %d: %w", labelID, subjectID, err)
	}
	return exists, nil
}
