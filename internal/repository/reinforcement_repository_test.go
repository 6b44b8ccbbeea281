package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-averages/internal/models"
)

var reinforcementRowColumns = []string{"id", "student_id", "classroom_id", "subject_id", "term_id", "label", "date", "skill", "teacher_id", "grade"}

func TestReinforcementRepositoryListEntries(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReinforcementRepository(db)

	mock.ExpectQuery("FROM reinforcement_grade_labels rg\\s+JOIN terms t").
		WithArgs(3, 2024).
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "subject_id", "term_id", "term", "label", "grade"}).
			AddRow(1, 10, 1, "bimestre1", "refuerzo 1", 9.0))

	entries, err := repo.ListEntries(context.Background(), 3, 2024, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "refuerzo 1", entries[0].Label)
	assert.Equal(t, 9.0, entries[0].Grade.Float64)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReinforcementRepositoryListByClassroomAndTerm(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReinforcementRepository(db)
	day := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM reinforcement_grade_labels\\s+WHERE classroom_id = \\$1 AND term_id = \\$2").
		WithArgs(3, 1).
		WillReturnRows(sqlmock.NewRows(reinforcementRowColumns).
			AddRow(5, 1, 3, 10, 1, "refuerzo 1", day, "reading", 7, 8.0))

	grades, err := repo.ListByClassroomAndTerm(context.Background(), 3, 1)
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.Equal(t, 5, grades[0].ID)
	assert.Equal(t, day, grades[0].Date)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReinforcementRepositoryCreateFindDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReinforcementRepository(db)
	day := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO reinforcement_grade_labels").
		WithArgs(1, 3, 10, 1, "refuerzo 1", day, "", 7, 9.0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectQuery("FROM reinforcement_grade_labels WHERE id = \\$1").
		WithArgs(11).
		WillReturnRows(sqlmock.NewRows(reinforcementRowColumns).AddRow(11, 1, 3, 10, 1, "refuerzo 1", day, "", 7, 9.0))
	mock.ExpectExec("DELETE FROM reinforcement_grade_labels WHERE id = \\$1").
		WithArgs(11).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM reinforcement_grade_labels").
		WithArgs(11).
		WillReturnResult(sqlmock.NewResult(0, 0))

	grade := &models.ReinforcementGrade{StudentID: 1, ClassroomID: 3, SubjectID: 10, TermID: 1, Label: "refuerzo 1", Date: day, TeacherID: 7, Grade: 9}
	require.NoError(t, repo.Create(context.Background(), grade))
	assert.Equal(t, 11, grade.ID)

	found, err := repo.FindByID(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, 3, found.ClassroomID)

	deleted, err := repo.Delete(context.Background(), 11)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(context.Background(), 11)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
