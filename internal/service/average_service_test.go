package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-averages/internal/average"
	"github.com/noah-isme/classroom-averages/internal/dto"
	"github.com/noah-isme/classroom-averages/internal/models"
	appErrors "github.com/noah-isme/classroom-averages/pkg/errors"
	"github.com/noah-isme/classroom-averages/pkg/jobs"
)

type fakeClassrooms struct {
	items map[int]*models.Classroom
	err   error
}

func (f *fakeClassrooms) FindByID(_ context.Context, id int) (*models.Classroom, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

type fakeStudents struct {
	items []models.Student
}

func (f *fakeStudents) ListByClassroom(_ context.Context, classroomID int) ([]models.Student, error) {
	var out []models.Student
	for _, s := range f.items {
		if s.ClassroomID == classroomID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStudents) FindInClassroom(_ context.Context, classroomID, studentID int) (*models.Student, error) {
	for _, s := range f.items {
		if s.ID == studentID && s.ClassroomID == classroomID {
			student := s
			return &student, nil
		}
	}
	return nil, sql.ErrNoRows
}

type fakeSubjects struct {
	byClassroom map[int][]models.Subject
	labels      map[int][]int
}

func (f *fakeSubjects) HasLabel(_ context.Context, subjectID, labelID int) (bool, error) {
	for _, id := range f.labels[subjectID] {
		if id == labelID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSubjects) ListByClassroom(_ context.Context, classroomID int) ([]models.Subject, error) {
	return f.byClassroom[classroomID], nil
}

func (f *fakeSubjects) FindInClassroom(_ context.Context, classroomID, subjectID int) (*models.Subject, error) {
	for _, s := range f.byClassroom[classroomID] {
		if s.ID == subjectID {
			subject := s
			return &subject, nil
		}
	}
	return nil, sql.ErrNoRows
}

type fakeTerms struct {
	items []models.Term
}

func (f *fakeTerms) ListByAcademicPeriod(_ context.Context, academicPeriodID int) ([]models.Term, error) {
	var out []models.Term
	for _, t := range f.items {
		if t.AcademicPeriodID == academicPeriodID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTerms) FindInAcademicPeriod(_ context.Context, academicPeriodID, termID int) (*models.Term, error) {
	for _, t := range f.items {
		if t.ID == termID && t.AcademicPeriodID == academicPeriodID {
			term := t
			return &term, nil
		}
	}
	return nil, sql.ErrNoRows
}

type fakeGradeEntries struct {
	items      []models.GradeEntry
	err        error
	calls      int
	subjectIDs []int
}

func (f *fakeGradeEntries) ListEntries(_ context.Context, _, _ int, subjectIDs []int) ([]models.GradeEntry, error) {
	f.calls++
	f.subjectIDs = subjectIDs
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

type fakeReinforcementEntries struct {
	items []models.ReinforcementEntry
}

func (f *fakeReinforcementEntries) ListEntries(_ context.Context, _, _ int, _ []int) ([]models.ReinforcementEntry, error) {
	return f.items, nil
}

type averageFixture struct {
	svc     *AverageService
	grades  *fakeGradeEntries
	cache   *stubCacheRepo
	metrics *MetricsService
}

func gradeEntry(student, subject, termID int, term string, label int, v float64) models.GradeEntry {
	return models.GradeEntry{StudentID: student, SubjectID: subject, TermID: termID, Term: term, LabelID: label, Grade: sql.NullFloat64{Float64: v, Valid: true}}
}

func newAverageFixture(t *testing.T, cfg AverageServiceConfig) *averageFixture {
	t.Helper()
	grades := &fakeGradeEntries{items: []models.GradeEntry{
		gradeEntry(1, 3, 1, "T1", 1, 8),
		gradeEntry(1, 3, 1, "T1", 2, 6),
		gradeEntry(1, 3, 2, "T2", 1, 9),
		gradeEntry(2, 3, 1, "T1", 1, 5),
		{StudentID: 2, SubjectID: 3, TermID: 1, Term: "T1", LabelID: 2},
	}}
	reinforcements := &fakeReinforcementEntries{items: []models.ReinforcementEntry{
		{StudentID: 2, SubjectID: 3, TermID: 1, Term: "T1", Label: "R1", Grade: sql.NullFloat64{Float64: 8, Valid: true}},
	}}
	cacheRepo := &stubCacheRepo{}
	metrics := NewMetricsService()
	svc := NewAverageService(AverageServiceParams{
		Classrooms: &fakeClassrooms{items: map[int]*models.Classroom{1: {ID: 1, Name: "5A", TeacherID: 10}}},
		Students: &fakeStudents{items: []models.Student{
			{ID: 1, Name: "Ana", ClassroomID: 1},
			{ID: 2, Name: "Ben", ClassroomID: 1},
			{ID: 9, Name: "Other", ClassroomID: 2},
		}},
		Subjects: &fakeSubjects{byClassroom: map[int][]models.Subject{1: {{ID: 3, Name: "Math"}, {ID: 4, Name: "Science"}}}},
		Terms: &fakeTerms{items: []models.Term{
			{ID: 1, Name: "T1", AcademicPeriodID: 5},
			{ID: 2, Name: "T2", AcademicPeriodID: 5},
		}},
		Grades:         grades,
		Reinforcements: reinforcements,
		Pool:           jobs.NewPool("averages", jobs.PoolConfig{Workers: 2}),
		Cache:          NewCacheService(cacheRepo, metrics, time.Minute, nil, true),
		Metrics:        metrics,
		Config:         cfg,
	})
	return &averageFixture{svc: svc, grades: grades, cache: cacheRepo, metrics: metrics}
}

var teacherSession = models.Session{TeacherID: 10, Role: models.RoleTeacher, AcademicPeriodID: 5}

func weightsReq(subjectID int) dto.AveragesRequest {
	return dto.AveragesRequest{ClassroomID: 1, SubjectID: subjectID, Weights: map[string]string{"T1": "0.4", "T2": "0.6"}}
}

func TestAverageServiceComputesEverySubject(t *testing.T) {
	f := newAverageFixture(t, AverageServiceConfig{})

	resp, hit, err := f.svc.ClassroomAverages(context.Background(), teacherSession, weightsReq(0))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "5A", resp.ClassroomName)
	assert.Equal(t, average.ModeSum, resp.Mode)
	assert.Equal(t, []string{"T1", "T2"}, resp.Terms)
	require.Len(t, resp.Subjects, 2)
	assert.ElementsMatch(t, []int{3, 4}, f.grades.subjectIDs)

	math, ok := resp.Subject(3)
	require.True(t, ok)
	assert.True(t, math.Result.Rounded)

	ana, ok := math.Result.Record(1)
	require.True(t, ok)
	t1, _ := ana.Term("T1")
	assert.Equal(t, 7.0, t1.Average)
	assert.Equal(t, 2.8, *t1.AveFactor)
	assert.Equal(t, 8.2, ana.FinalAverage)

	ben, ok := math.Result.Record(2)
	require.True(t, ok)
	bt1, _ := ben.Term("T1")
	assert.Equal(t, 6.5, bt1.Average)
	assert.True(t, bt1.IncludesReinforcement)
	_, hasT2 := ben.Term("T2")
	assert.False(t, hasT2)
	assert.Equal(t, 2.6, ben.FinalAverage)

	science, ok := resp.Subject(4)
	require.True(t, ok)
	assert.Len(t, science.Result.Records, 2)
	assert.True(t, science.Result.HasKind(average.KindInvalidInput))

	assert.Equal(t, uint64(2), f.metrics.Snapshot().AveragesComputed)
	assert.Len(t, f.cache.store, 1)
}

func TestAverageServiceServesFromCache(t *testing.T) {
	f := newAverageFixture(t, AverageServiceConfig{})
	ctx := context.Background()

	first, _, err := f.svc.ClassroomAverages(ctx, teacherSession, weightsReq(3))
	require.NoError(t, err)

	second, hit, err := f.svc.ClassroomAverages(ctx, teacherSession, weightsReq(3))
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, f.grades.calls)
	assert.Equal(t, first, second)

	other := weightsReq(3)
	other.Weights = map[string]string{"T1": "0.5", "T2": "0.5"}
	_, hit, err = f.svc.ClassroomAverages(ctx, teacherSession, other)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, f.grades.calls)
}

func TestAverageServiceCachesFullPrecision(t *testing.T) {
	f := newAverageFixture(t, AverageServiceConfig{})
	req := weightsReq(3)
	req.Weights = map[string]string{"T1": "0.333"}

	_, _, err := f.svc.ClassroomAverages(context.Background(), teacherSession, req)
	require.NoError(t, err)
	require.Len(t, f.cache.store, 1)

	for _, payload := range f.cache.store {
		var raw dto.ClassroomAveragesResponse
		require.NoError(t, jsonUnmarshal(payload, &raw))
		math, _ := raw.Subject(3)
		assert.False(t, math.Result.Rounded)
		ana, _ := math.Result.Record(1)
		assert.InDelta(t, 7*0.333, ana.FinalAverage, 1e-9)
	}
}

func TestAverageServiceSessionChecks(t *testing.T) {
	f := newAverageFixture(t, AverageServiceConfig{})
	ctx := context.Background()

	_, _, err := f.svc.ClassroomAverages(ctx, models.Session{AcademicPeriodID: 5}, weightsReq(0))
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, _, err = f.svc.ClassroomAverages(ctx, models.Session{TeacherID: 10}, weightsReq(0))
	assert.ErrorIs(t, err, appErrors.ErrPreconditionFailed)

	_, _, err = f.svc.ClassroomAverages(ctx, models.Session{TeacherID: 11, AcademicPeriodID: 5}, weightsReq(0))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	admin := models.Session{TeacherID: 99, Role: models.RoleAdmin, AcademicPeriodID: 5}
	_, _, err = f.svc.ClassroomAverages(ctx, admin, weightsReq(0))
	assert.NoError(t, err)

	req := weightsReq(0)
	req.ClassroomID = 42
	_, _, err = f.svc.ClassroomAverages(ctx, teacherSession, req)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestAverageServiceWeights(t *testing.T) {
	f := newAverageFixture(t, AverageServiceConfig{})
	ctx := context.Background()

	req := weightsReq(3)
	req.Weights = map[string]string{"T1": "abc", "T2": "1.5"}
	_, _, err := f.svc.ClassroomAverages(ctx, teacherSession, req)
	assert.ErrorIs(t, err, appErrors.ErrInvalidWeights)

	req.Weights = map[string]string{"T1": "0.4", "T2": "heavy"}
	resp, _, err := f.svc.ClassroomAverages(ctx, teacherSession, req)
	require.NoError(t, err)
	require.Len(t, resp.Diagnostics, 1)
	assert.Equal(t, average.KindInvalidWeight, resp.Diagnostics[0].Kind)
	math, _ := resp.Subject(3)
	ana, _ := math.Result.Record(1)
	t2, ok := ana.Term("T2")
	require.True(t, ok)
	assert.Nil(t, t2.AveFactor)
	assert.Equal(t, 2.8, ana.FinalAverage)
}

func TestAverageServiceCacheHitCarriesRequestDiagnostics(t *testing.T) {
	f := newAverageFixture(t, AverageServiceConfig{})
	ctx := context.Background()

	withInvalid := weightsReq(3)
	withInvalid.Weights = map[string]string{"T1": "0.4", "T2": "heavy"}
	resp, hit, err := f.svc.ClassroomAverages(ctx, teacherSession, withInvalid)
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, resp.Diagnostics, 1)

	clean := weightsReq(3)
	clean.Weights = map[string]string{"T1": "0.4"}
	resp, hit, err = f.svc.ClassroomAverages(ctx, teacherSession, clean)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Empty(t, resp.Diagnostics)

	resp, hit, err = f.svc.ClassroomAverages(ctx, teacherSession, withInvalid)
	require.NoError(t, err)
	assert.True(t, hit)
	require.Len(t, resp.Diagnostics, 1)
	assert.Equal(t, average.KindInvalidWeight, resp.Diagnostics[0].Kind)
	assert.Equal(t, "T2", resp.Diagnostics[0].Term)
	assert.Equal(t, 1, f.grades.calls)

	for _, payload := range f.cache.store {
		var raw dto.ClassroomAveragesResponse
		require.NoError(t, jsonUnmarshal(payload, &raw))
		assert.Empty(t, raw.Diagnostics)
	}
}

func TestAverageServiceIgnoresWeightsForUnknownTerms(t *testing.T) {
	f := newAverageFixture(t, AverageServiceConfig{DefaultMode: "SUM_DIVIDED_BY_BUCKETS"})
	req := weightsReq(3)
	req.Weights = map[string]string{"T1": "0.4", "T2": "0.6", "_": "0.5"}

	resp, _, err := f.svc.ClassroomAverages(context.Background(), teacherSession, req)
	require.NoError(t, err)
	require.Len(t, resp.Diagnostics, 1)
	assert.Equal(t, average.KindInvalidInput, resp.Diagnostics[0].Kind)
	assert.Equal(t, "_", resp.Diagnostics[0].Term)
	assert.Equal(t, average.Weights{"T1": 0.4, "T2": 0.6}, resp.Weights)

	math, _ := resp.Subject(3)
	assert.Equal(t, 2, math.Result.Buckets)
	ana, _ := math.Result.Record(1)
	assert.Equal(t, 4.1, ana.FinalAverage)
}

func TestAverageServiceUnweighted(t *testing.T) {
	f := newAverageFixture(t, AverageServiceConfig{GroupSize: 1})
	ctx := context.Background()
	req := weightsReq(3)
	req.Weights = nil

	resp, hit, err := f.svc.ClassroomAverages(ctx, teacherSession, req)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.False(t, resp.Weighted)
	assert.Empty(t, resp.Groups)
	assert.Empty(t, resp.Diagnostics)

	math, _ := resp.Subject(3)
	assert.True(t, math.Result.Unweighted)
	assert.False(t, math.Result.HasKind(average.KindInvalidWeight))
	ana, _ := math.Result.Record(1)
	t1, ok := ana.Term("T1")
	require.True(t, ok)
	assert.Equal(t, 7.0, t1.Average)
	assert.Nil(t, t1.AveFactor)
	t2, _ := ana.Term("T2")
	assert.Equal(t, 9.0, t2.Average)
	assert.Zero(t, ana.FinalAverage)

	req.Weights = map[string]string{"cache_buster": "1"}
	resp, hit, err = f.svc.ClassroomAverages(ctx, teacherSession, req)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.False(t, resp.Weighted)
	require.Len(t, resp.Diagnostics, 1)
	assert.Equal(t, average.KindInvalidInput, resp.Diagnostics[0].Kind)
}

func TestAverageServiceModeAndGroups(t *testing.T) {
	f := newAverageFixture(t, AverageServiceConfig{DefaultMode: "SUM_DIVIDED_BY_BUCKETS", GroupSize: 1})
	ctx := context.Background()

	resp, _, err := f.svc.ClassroomAverages(ctx, teacherSession, weightsReq(3))
	require.NoError(t, err)
	assert.Equal(t, average.ModeSumDividedByBuckets, resp.Mode)
	require.Len(t, resp.Groups, 2)
	math, _ := resp.Subject(3)
	assert.Equal(t, 2, math.Result.Buckets)
	ana, _ := math.Result.Record(1)
	require.Len(t, ana.PartialAverages, 2)
	assert.Equal(t, 2.8, ana.PartialAverages[0].Value)
	assert.Equal(t, 4.1, ana.FinalAverage)

	req := weightsReq(3)
	req.Mode = "sum"
	req.Groups = []string{"all:T1,T2"}
	resp, _, err = f.svc.ClassroomAverages(ctx, teacherSession, req)
	require.NoError(t, err)
	assert.Equal(t, average.ModeSum, resp.Mode)
	require.Len(t, resp.Groups, 1)
	assert.Equal(t, "all", resp.Groups[0].Name)

	req.Mode = "MEDIAN"
	_, _, err = f.svc.ClassroomAverages(ctx, teacherSession, req)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	req.Mode = ""
	req.Groups = []string{"empty:"}
	_, _, err = f.svc.ClassroomAverages(ctx, teacherSession, req)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAverageServiceSubjectScope(t *testing.T) {
	f := newAverageFixture(t, AverageServiceConfig{})
	ctx := context.Background()

	resp, _, err := f.svc.ClassroomAverages(ctx, teacherSession, weightsReq(3))
	require.NoError(t, err)
	require.Len(t, resp.Subjects, 1)
	assert.Equal(t, []int{3}, f.grades.subjectIDs)

	_, _, err = f.svc.ClassroomAverages(ctx, teacherSession, weightsReq(77))
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestAverageServiceRepositoryFailure(t *testing.T) {
	f := newAverageFixture(t, AverageServiceConfig{})
	f.grades.err = errors.New("connection reset")

	_, _, err := f.svc.ClassroomAverages(context.Background(), teacherSession, weightsReq(3))
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Empty(t, f.cache.store)
}

func TestGradeRecordsBySubjectNestsRows(t *testing.T) {
	records := gradeRecordsBySubject([]models.GradeEntry{
		gradeEntry(1, 3, 1, "T1", 1, 8),
		gradeEntry(1, 4, 1, "T1", 1, 2),
		gradeEntry(1, 3, 2, "T2", 1, 9),
		gradeEntry(1, 3, 1, "T1", 2, 6),
		{StudentID: 2, SubjectID: 3, Term: "T1", LabelID: 1},
	})

	require.Len(t, records[3], 2)
	require.Len(t, records[4], 1)
	first := records[3][0]
	require.Len(t, first.Terms, 2)
	assert.Equal(t, "T1", first.Terms[0].Term)
	assert.Len(t, first.Terms[0].Grades, 2)
	assert.False(t, records[3][1].Terms[0].Grades[0].Grade.Valid)
}
