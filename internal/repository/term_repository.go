package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classroom-averages/internal/models"
)

// TermRepository reads the terms of academic periods.
type TermRepository struct {
	db *sqlx.DB
}

// NewTermRepository creates a term repository.
func NewTermRepository(db *sqlx.DB) *TermRepository {
	return &TermRepository{db: db}
}

// ListByAcademicPeriod returns the period's terms in calendar order.
func (r *TermRepository) ListByAcademicPeriod(ctx context.Context, academicPeriodID int) ([]models.Term, error) {
	const query = `SELECT t.id, t.name, apt.academic_period_id
        FROM terms t
        JOIN academic_period_terms apt ON apt.term_id = t.id
        WHERE apt.academic_period_id = $1
        ORDER BY t.id`
	var terms []models.Term
	if err := r.db.SelectContext(ctx, &terms, query, academicPeriodID); err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	return terms, nil
}

// FindInAcademicPeriod returns the term only when it belongs to the period.
func (r *TermRepository) FindInAcademicPeriod(ctx context.Context, academicPeriodID, termID int) (*models.Term, error) {
	const query = `SELECT t.id, t.name, apt.academic_period_id
        FROM terms t
        JOIN academic_period_terms apt ON apt.term_id = t.id
        WHERE apt.academic_period_id = $1 AND t.id = $2`
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, academicPeriodID, termID); err != nil {
		return nil, fmt.Errorf("find term %d: %w", termID, err)
	}
	return &term, nil
}
