package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/classroom-averages/internal/models"
)

// GradeRepository handles grade entry persistence.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a new grade repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// ListEntries returns the classroom's grades for the academic period, joined
// with their term names. An empty subjectIDs slice selects every subject.
func (r *GradeRepository) ListEntries(ctx context.Context, classroomID, academicPeriodID int, subjectIDs []int) ([]models.GradeEntry, error) {
	query := `SELECT g.student_id, g.subject_id, g.term_id, t.name AS term, g.label_id, g.grade
        FROM grades g
        JOIN terms t ON t.id = g.term_id
        JOIN academic_period_terms apt ON apt.term_id = g.term_id AND apt.academic_period_id = $2
        WHERE g.classroom_id = $1`
	args := []interface{}{classroomID, academicPeriodID}
	if len(subjectIDs) > 0 {
		query += " AND g.subject_id = ANY($3)"
		args = append(args, pq.Array(toInt64s(subjectIDs)))
	}
	query += " ORDER BY g.student_id, g.subject_id, g.term_id, g.label_id"

	var entries []models.GradeEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return entries, nil
}

// ListGrid returns every grade of the classroom for the academic period with
// its label name, ordered for a student by subject grid. A zero termID selects
// every term of the period.
func (r *GradeRepository) ListGrid(ctx context.Context, classroomID, academicPeriodID, termID int) ([]models.GradeEntry, error) {
	query := `SELECT g.student_id, g.subject_id, g.term_id, t.name AS term, g.label_id,
            COALESCE(l.label, '') AS label, g.grade
        FROM grades g
        JOIN terms t ON t.id = g.term_id
        JOIN academic_period_terms apt ON apt.term_id = g.term_id AND apt.academic_period_id = $2
        LEFT JOIN grade_labels l ON l.id = g.label_id
        WHERE g.classroom_id = $1`
	args := []interface{}{classroomID, academicPeriodID}
	if termID > 0 {
		query += " AND g.term_id = $3"
		args = append(args, termID)
	}
	query += " ORDER BY g.student_id, g.subject_id, g.term_id, g.label_id"

	var entries []models.GradeEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list grade grid: %w", err)
	}
	return entries, nil
}

// Upsert inserts or updates the grade for (student, subject, term, label).
func (r *GradeRepository) Upsert(ctx context.Context, grade *models.Grade) error {
	grade.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO grades (student_id, subject_id, term_id, label_id, classroom_id, teacher_id, grade, updated_at)
        VALUES (:student_id, :subject_id, :term_id, :label_id, :classroom_id, :teacher_id, :grade, :updated_at)
        ON CONFLICT (student_id, subject_id, term_id, label_id)
        DO UPDATE SET grade = EXCLUDED.grade, teacher_id = EXCLUDED.teacher_id, updated_at = EXCLUDED.updated_at
        RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, grade)
	if err != nil {
		return fmt.Errorf("upsert grade: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&grade.ID); err != nil {
			return fmt.Errorf("scan grade id: %w", err)
		}
	}
	return rows.Err()
}

func toInt64s(ids []int) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
