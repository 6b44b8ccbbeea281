package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-averages/internal/dto"
	"github.com/noah-isme/classroom-averages/internal/models"
	appErrors "github.com/noah-isme/classroom-averages/pkg/errors"
)

type gradeStore interface {
	Upsert(ctx context.Context, grade *models.Grade) error
	ListGrid(ctx context.Context, classroomID, academicPeriodID, termID int) ([]models.GradeEntry, error)
}

type rosterFinder interface {
	FindInClassroom(ctx context.Context, classroomID, studentID int) (*models.Student, error)
}

type reinforcementStore interface {
	ListByClassroomAndTerm(ctx context.Context, classroomID, termID int) ([]models.ReinforcementGrade, error)
	FindByID(ctx context.Context, id int) (*models.ReinforcementGrade, error)
	Create(ctx context.Context, grade *models.ReinforcementGrade) error
	Delete(ctx context.Context, id int) (bool, error)
}

type periodTermFinder interface {
	FindInAcademicPeriod(ctx context.Context, academicPeriodID, termID int) (*models.Term, error)
}

type classroomSubjectFinder interface {
	FindInClassroom(ctx context.Context, classroomID, subjectID int) (*models.Subject, error)
	HasLabel(ctx context.Context, subjectID, labelID int) (bool, error)
}

// GradeService records and lists grades and reinforcement grades. Every write
// drops the cached averages of the affected classroom.
type GradeService struct {
	classrooms     classroomReader
	students       rosterFinder
	subjects       classroomSubjectFinder
	terms          periodTermFinder
	grades         gradeStore
	reinforcements reinforcementStore
	cache          *CacheService
	validator      *validator.Validate
	logger         *zap.Logger
	now            func() time.Time
}

// GradeServiceParams groups constructor dependencies.
type GradeServiceParams struct {
	Classrooms     classroomReader
	Students       rosterFinder
	Subjects       classroomSubjectFinder
	Terms          periodTermFinder
	Grades         gradeStore
	Reinforcements reinforcementStore
	Cache          *CacheService
	Validator      *validator.Validate
	Logger         *zap.Logger
}

// NewGradeService constructs a GradeService.
func NewGradeService(params GradeServiceParams) *GradeService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		classrooms:     params.Classrooms,
		students:       params.Students,
		subjects:       params.Subjects,
		terms:          params.Terms,
		grades:         params.Grades,
		reinforcements: params.Reinforcements,
		cache:          params.Cache,
		validator:      validate,
		logger:         logger,
		now:            time.Now,
	}
}

// UpsertGrade stores the grade of one label, replacing any previous value.
func (s *GradeService) UpsertGrade(ctx context.Context, session models.Session, req dto.UpsertGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	classroom, err := authorizeClassroom(ctx, s.classrooms, session, req.ClassroomID)
	if err != nil {
		return nil, err
	}
	if err := s.checkScope(ctx, session, classroom.ID, req.StudentID, req.SubjectID, req.TermID); err != nil {
		return nil, err
	}
	if err := s.checkLabel(ctx, req.SubjectID, req.LabelID); err != nil {
		return nil, err
	}

	grade := &models.Grade{
		StudentID:   req.StudentID,
		SubjectID:   req.SubjectID,
		TermID:      req.TermID,
		LabelID:     req.LabelID,
		ClassroomID: classroom.ID,
		TeacherID:   session.TeacherID,
		Grade:       req.Grade,
		UpdatedAt:   s.now().UTC(),
	}
	if err := s.grades.Upsert(ctx, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save grade")
	}
	s.invalidate(ctx, classroom.ID)
	return grade, nil
}

// AddReinforcement records a remedial grade for one term.
func (s *GradeService) AddReinforcement(ctx context.Context, session models.Session, req dto.CreateReinforcementRequest) (*models.ReinforcementGrade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reinforcement payload")
	}
	classroom, err := authorizeClassroom(ctx, s.classrooms, session, req.ClassroomID)
	if err != nil {
		return nil, err
	}
	if err := s.checkScope(ctx, session, classroom.ID, req.StudentID, req.SubjectID, req.TermID); err != nil {
		return nil, err
	}

	date := s.now().UTC().Truncate(24 * time.Hour)
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
		}
		date = parsed
	}

	grade := &models.ReinforcementGrade{
		StudentID:   req.StudentID,
		ClassroomID: classroom.ID,
		SubjectID:   req.SubjectID,
		TermID:      req.TermID,
		Label:       req.Label,
		Date:        date,
		Skill:       req.Skill,
		TeacherID:   session.TeacherID,
		Grade:       req.Grade,
	}
	if err := s.reinforcements.Create(ctx, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save reinforcement grade")
	}
	s.invalidate(ctx, classroom.ID)
	return grade, nil
}

// ListReinforcements returns the reinforcement grades of a classroom term.
func (s *GradeService) ListReinforcements(ctx context.Context, session models.Session, classroomID, termID int) ([]models.ReinforcementGrade, error) {
	classroom, err := authorizeClassroom(ctx, s.classrooms, session, classroomID)
	if err != nil {
		return nil, err
	}
	if err := s.checkTerm(ctx, session, termID); err != nil {
		return nil, err
	}
	grades, err := s.reinforcements.ListByClassroomAndTerm(ctx, classroom.ID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reinforcement grades")
	}
	return grades, nil
}

// ClassroomGrades returns the grade grid of a classroom for the session's
// academic period, one entry per student and subject. A zero termID selects
// every term of the period.
func (s *GradeService) ClassroomGrades(ctx context.Context, session models.Session, classroomID, termID int) (*dto.ClassroomGradesResponse, error) {
	classroom, err := authorizeClassroom(ctx, s.classrooms, session, classroomID)
	if err != nil {
		return nil, err
	}
	if termID > 0 {
		if err := s.checkTerm(ctx, session, termID); err != nil {
			return nil, err
		}
	}
	entries, err := s.grades.ListGrid(ctx, classroom.ID, session.AcademicPeriodID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return &dto.ClassroomGradesResponse{
		ClassroomID:      classroom.ID,
		AcademicPeriodID: session.AcademicPeriodID,
		TermID:           termID,
		Grades:           gradeGrid(entries),
	}, nil
}

// gradeGrid groups grade rows per student and subject, keeping row order.
func gradeGrid(entries []models.GradeEntry) []dto.StudentSubjectGrades {
	type cellKey struct{ student, subject int }

	grid := make([]dto.StudentSubjectGrades, 0)
	index := make(map[cellKey]int)
	for _, entry := range entries {
		key := cellKey{entry.StudentID, entry.SubjectID}
		i, ok := index[key]
		if !ok {
			i = len(grid)
			index[key] = i
			grid = append(grid, dto.StudentSubjectGrades{StudentID: entry.StudentID, SubjectID: entry.SubjectID})
		}
		cell := dto.LabelGradeCell{
			TermID:  entry.TermID,
			Term:    entry.Term,
			LabelID: entry.LabelID,
			Label:   entry.Label,
		}
		if entry.Grade.Valid {
			v := entry.Grade.Float64
			cell.Grade = &v
		}
		grid[i].Grades = append(grid[i].Grades, cell)
	}
	return grid
}

// DeleteReinforcement removes one reinforcement grade.
func (s *GradeService) DeleteReinforcement(ctx context.Context, session models.Session, id int) error {
	if err := requireSession(session); err != nil {
		return err
	}
	grade, err := s.reinforcements.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "reinforcement grade not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reinforcement grade")
	}
	if _, err := authorizeClassroom(ctx, s.classrooms, session, grade.ClassroomID); err != nil {
		return err
	}
	deleted, err := s.reinforcements.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete reinforcement grade")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "reinforcement grade not found")
	}
	s.invalidate(ctx, grade.ClassroomID)
	return nil
}

func (s *GradeService) checkScope(ctx context.Context, session models.Session, classroomID, studentID, subjectID, termID int) error {
	if _, err := s.students.FindInClassroom(ctx, classroomID, studentID); err != nil {
		if isNotFound(err) {
			return appErrors.Clone(appErrors.ErrValidation, "student is not enrolled in classroom")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if _, err := s.subjects.FindInClassroom(ctx, classroomID, subjectID); err != nil {
		if isNotFound(err) {
			return appErrors.Clone(appErrors.ErrValidation, "subject is not taught in classroom")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return s.checkTerm(ctx, session, termID)
}

func (s *GradeService) checkLabel(ctx context.Context, subjectID, labelID int) error {
	ok, err := s.subjects.HasLabel(ctx, subjectID, labelID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade label")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrValidation, "grade label is not used by subject")
	}
	return nil
}

func (s *GradeService) checkTerm(ctx context.Context, session models.Session, termID int) error {
	if _, err := s.terms.FindInAcademicPeriod(ctx, session.AcademicPeriodID, termID); err != nil {
		if isNotFound(err) {
			return appErrors.Clone(appErrors.ErrValidation, "term does not belong to the selected academic period")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	return nil
}

func (s *GradeService) invalidate(ctx context.Context, classroomID int) {
	if err := s.cache.InvalidateClassroom(ctx, classroomID); err != nil {
		s.logger.Warn("failed to invalidate averages cache", zap.Int("classroom_id", classroomID), zap.Error(err))
	}
}
