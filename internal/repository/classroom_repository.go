package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classroom-averages/internal/models"
)

// ClassroomRepository reads classrooms.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository creates a classroom repository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// FindByID returns a classroom. A missing row wraps sql.ErrNoRows.
func (r *ClassroomRepository) FindByID(ctx context.Context, id int) (*models.Classroom, error) {
	const query = `SELECT id, name, teacher_id FROM classrooms WHERE id = $1`
	var classroom models.Classroom
	if err := r.db.GetContext(ctx, &classroom, query, id); err != nil {
		return nil, fmt.Errorf("find classroom %d: %w", id, err)
	}
	return &classroom, nil
}
