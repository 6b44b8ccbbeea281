package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/classroom-averages/internal/models"
)

// ReinforcementRepository persists remedial grades.
type ReinforcementRepository struct {
	db *sqlx.DB
}

// NewReinforcementRepository creates a reinforcement repository.
func NewReinforcementRepository(db *sqlx.DB) *ReinforcementRepository {
	return &ReinforcementRepository{db: db}
}

const reinforcementColumns = `id, student_id, classroom_id, subject_id, term_id, label, date, COALESCE(skill, '') AS skill, teacher_id, grade`

// ListEntries returns the classroom's reinforcement grades for the academic
// period joined with their term names.
func (r *ReinforcementRepository) ListEntries(ctx context.Context, classroomID, academicPeriodID int, subjectIDs []int) ([]models.ReinforcementEntry, error) {
	query := `SELECT rg.student_id, rg.subject_id, rg.term_id, t.name AS term, rg.label, rg.grade
        FROM reinforcement_grade_labels rg
        JOIN terms t ON t.id = rg.term_id
        JOIN academic_period_terms apt ON apt.term_id = rg.term_id AND apt.academic_period_id = $2
        WHERE rg.classroom_id = $1`
	args := []interface{}{classroomID, academicPeriodID}
	if len(subjectIDs) > 0 {
		query += " AND rg.subject_id = ANY($3)"
		args = append(args, pq.Array(toInt64s(subjectIDs)))
	}
	query += " ORDER BY rg.student_id, rg.subject_id, rg.term_id, rg.id"

	var entries []models.ReinforcementEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list reinforcement grades: %w", err)
	}
	return entries, nil
}

// ListByClassroomAndTerm returns the stored reinforcement grades for one term.
func (r *ReinforcementRepository) ListByClassroomAndTerm(ctx context.Context, classroomID, termID int) ([]models.ReinforcementGrade, error) {
	query := `SELECT ` + reinforcementColumns + `
        FROM reinforcement_grade_labels
        WHERE classroom_id = $1 AND term_id = $2
        ORDER BY student_id, date, id`
	var grades []models.ReinforcementGrade
	if err := r.db.SelectContext(ctx, &grades, query, classroomID, termID); err != nil {
		return nil, fmt.Errorf("list reinforcement grades: %w", err)
	}
	return grades, nil
}

// FindByID returns one reinforcement grade.
func (r *ReinforcementRepository) FindByID(ctx context.Context, id int) (*models.ReinforcementGrade, error) {
	query := `SELECT ` + reinforcementColumns + ` FROM reinforcement_grade_labels WHERE id = $1`
	var grade models.ReinforcementGrade
	if err := r.db.GetContext(ctx, &grade, query, id); err != nil {
		return nil, fmt.Errorf("find reinforcement grade %d: %w", id, err)
	}
	return &grade, nil
}

// Create stores a reinforcement grade and sets its ID.
func (r *ReinforcementRepository) Create(ctx context.Context, grade *models.ReinforcementGrade) error {
	const query = `INSERT INTO reinforcement_grade_labels (student_id, classroom_id, subject_id, term_id, label, date, skill, teacher_id, grade)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		grade.StudentID, grade.ClassroomID, grade.SubjectID, grade.TermID,
		grade.Label, grade.Date, grade.Skill, grade.TeacherID, grade.Grade,
	).Scan(&grade.ID); err != nil {
		return fmt.Errorf("create reinforcement grade: %w", err)
	}
	return nil
}

// Delete removes a reinforcement grade. It reports whether a row was deleted.
func (r *ReinforcementRepository) Delete(ctx context.Context, id int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reinforcement_grade_labels WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete reinforcement grade %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete reinforcement grade %d: %w", id, err)
	}
	return affected > 0, nil
}
