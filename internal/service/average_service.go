package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-averages/internal/average"
	"github.com/noah-isme/classroom-averages/internal/dto"
	"github.com/noah-isme/classroom-averages/internal/models"
	appErrors "github.com/noah-isme/classroom-averages/pkg/errors"
	"github.com/noah-isme/classroom-averages/pkg/jobs"
)

type rosterReader interface {
	ListByClassroom(ctx context.Context, classroomID int) ([]models.Student, error)
}

type subjectReader interface {
	ListByClassroom(ctx context.Context, classroomID int) ([]models.Subject, error)
	FindInClassroom(ctx context.Context, classroomID, subjectID int) (*models.Subject, error)
}

type termReader interface {
	ListByAcademicPeriod(ctx context.Context, academicPeriodID int) ([]models.Term, error)
}

type gradeEntryReader interface {
	ListEntries(ctx context.Context, classroomID, academicPeriodID int, subjectIDs []int) ([]models.GradeEntry, error)
}

type reinforcementEntryReader interface {
	ListEntries(ctx context.Context, classroomID, academicPeriodID int, subjectIDs []int) ([]models.ReinforcementEntry, error)
}

// AverageServiceConfig tunes averages computation.
type AverageServiceConfig struct {
	DefaultMode string
	GroupSize   int
	CacheTTL    time.Duration
}

// AverageService loads a classroom snapshot and runs the calculator for each subject.
type AverageService struct {
	classrooms     classroomReader
	students       rosterReader
	subjects       subjectReader
	terms          termReader
	grades         gradeEntryReader
	reinforcements reinforcementEntryReader
	pool           *jobs.Pool
	cache          *CacheService
	metrics        *MetricsService
	validator      *validator.Validate
	logger         *zap.Logger
	cfg            AverageServiceConfig
}

// AverageServiceParams groups constructor dependencies.
type AverageServiceParams struct {
	Classrooms     classroomReader
	Students       rosterReader
	Subjects       subjectReader
	Terms          termReader
	Grades         gradeEntryReader
	Reinforcements reinforcementEntryReader
	Pool           *jobs.Pool
	Cache          *CacheService
	Metrics        *MetricsService
	Validator      *validator.Validate
	Logger         *zap.Logger
	Config         AverageServiceConfig
}

// NewAverageService constructs an AverageService.
func NewAverageService(params AverageServiceParams) *AverageService {
	cfg := params.Config
	if cfg.DefaultMode == "" {
		cfg.DefaultMode = string(average.ModeSum)
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	pool := params.Pool
	if pool == nil {
		pool = jobs.NewPool("averages", jobs.PoolConfig{Workers: 1, Logger: logger})
	}
	return &AverageService{
		classrooms:     params.Classrooms,
		students:       params.Students,
		subjects:       params.Subjects,
		terms:          params.Terms,
		grades:         params.Grades,
		reinforcements: params.Reinforcements,
		pool:           pool,
		cache:          params.Cache,
		metrics:        params.Metrics,
		validator:      validate,
		logger:         logger,
		cfg:            cfg,
	}
}

// ClassroomAverages computes the averages of every requested subject of a
// classroom for the session's academic period. The returned response is rounded
// for display; the boolean reports whether it was served from cache.
func (s *AverageService) ClassroomAverages(ctx context.Context, session models.Session, req dto.AveragesRequest) (*dto.ClassroomAveragesResponse, bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid averages request")
	}
	classroom, err := authorizeClassroom(ctx, s.classrooms, session, req.ClassroomID)
	if err != nil {
		return nil, false, err
	}

	rawMode := req.Mode
	if strings.TrimSpace(rawMode) == "" {
		rawMode = s.cfg.DefaultMode
	}
	mode, ok := average.ParseMode(rawMode)
	if !ok {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported mode %q", rawMode))
	}

	terms, err := s.loadTerms(ctx, session.AcademicPeriodID)
	if err != nil {
		return nil, false, err
	}
	termNames := make([]string, 0, len(terms))
	for _, t := range terms {
		termNames = append(termNames, t.Name)
	}

	termWeights, requestDiags := weightsForTerms(req.Weights, termNames)
	unweighted := len(termWeights) == 0
	var weights average.Weights
	if !unweighted {
		var weightDiags []average.Diagnostic
		weights, weightDiags = average.ParseWeights(termWeights)
		if len(weights) == 0 {
			return nil, false, appErrors.Clone(appErrors.ErrInvalidWeights, fmt.Sprintf("no valid weight among %d terms", len(termWeights)))
		}
		requestDiags = append(requestDiags, weightDiags...)
	}

	var groups []average.Group
	if !unweighted {
		groups, err = s.resolveGroups(req, termNames)
		if err != nil {
			return nil, false, err
		}
	}

	subjects, err := s.loadSubjects(ctx, classroom.ID, req.SubjectID)
	if err != nil {
		return nil, false, err
	}

	key := averagesCacheKey(classroom.ID, session.AcademicPeriodID, subjects, mode, weights, groups, unweighted)
	var cached dto.ClassroomAveragesResponse
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		cached.Diagnostics = requestDiags
		return cached.Display(nil), true, nil
	}

	calc, err := average.New(average.Config{Mode: mode, Groups: groups, TermOrder: termNames, Unweighted: unweighted})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid averages configuration")
	}

	snapshot, err := s.loadSnapshot(ctx, classroom.ID, session.AcademicPeriodID, subjects)
	if err != nil {
		return nil, false, err
	}

	start := time.Now()
	results := make([]*average.Result, len(subjects))
	tasks := make([]jobs.Task, len(subjects))
	for i, subject := range subjects {
		i, subjectID := i, subject.ID
		tasks[i] = func(context.Context) error {
			results[i] = calc.Compute(snapshot.students, snapshot.grades[subjectID], snapshot.reinforcements[subjectID], weights, subjectID)
			return nil
		}
	}
	if err := s.pool.Run(ctx, tasks); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute averages")
	}
	elapsed := time.Since(start)

	resp := &dto.ClassroomAveragesResponse{
		ClassroomID:      classroom.ID,
		ClassroomName:    classroom.Name,
		AcademicPeriodID: session.AcademicPeriodID,
		Mode:             mode,
		Terms:            termNames,
		Weighted:         !unweighted,
		Weights:          weights,
		Groups:           groups,
		Subjects:         make([]dto.SubjectAverages, len(subjects)),
		Diagnostics:      requestDiags,
	}
	for i, subject := range subjects {
		resp.Subjects[i] = dto.SubjectAverages{SubjectID: subject.ID, SubjectName: subject.Name, Result: results[i]}
	}

	s.metrics.ObserveAverages(string(mode), len(subjects), elapsed)
	s.reportDiagnostics(classroom.ID, resp)
	s.logger.Debug("averages computed",
		zap.Int("classroom_id", classroom.ID),
		zap.Int("academic_period_id", session.AcademicPeriodID),
		zap.String("mode", string(mode)),
		zap.Int("subjects", len(subjects)),
		zap.Int("students", len(snapshot.students)),
		zap.Duration("duration", elapsed),
	)

	// Request diagnostics depend on the raw query, not on the cache key.
	stored := *resp
	stored.Diagnostics = nil
	_ = s.cache.Set(ctx, key, &stored, s.cfg.CacheTTL)
	return resp.Display(nil), false, nil
}

// weightsForTerms keeps the raw weights whose key names a term of the period.
// Any other key is reported as invalid input and ignored.
func weightsForTerms(raw map[string]string, termNames []string) (map[string]string, []average.Diagnostic) {
	known := make(map[string]struct{}, len(termNames))
	for _, name := range termNames {
		known[name] = struct{}{}
	}
	kept := make(map[string]string, len(raw))
	var diags []average.Diagnostic
	for _, key := range sortedWeightKeys(raw) {
		if _, ok := known[key]; !ok {
			diags = append(diags, average.Diagnostic{
				Kind:    average.KindInvalidInput,
				Term:    key,
				Message: "weight names no term of the academic period",
			})
			continue
		}
		kept[key] = raw[key]
	}
	return kept, diags
}

func sortedWeightKeys(raw map[string]string) []string {
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (s *AverageService) resolveGroups(req dto.AveragesRequest, termNames []string) ([]average.Group, error) {
	if len(req.Groups) > 0 {
		groups := make([]average.Group, 0, len(req.Groups))
		for i, raw := range req.Groups {
			group, err := average.ParseGroup(raw, i+1)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid partial group")
			}
			groups = append(groups, group)
		}
		return groups, nil
	}
	size := req.GroupSize
	if size == 0 {
		size = s.cfg.GroupSize
	}
	return average.AdjacentGroups(termNames, size), nil
}

func (s *AverageService) loadTerms(ctx context.Context, academicPeriodID int) ([]models.Term, error) {
	start := time.Now()
	terms, err := s.terms.ListByAcademicPeriod(ctx, academicPeriodID)
	s.metrics.ObserveDBQuery("terms", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load terms")
	}
	return terms, nil
}

func (s *AverageService) loadSubjects(ctx context.Context, classroomID, subjectID int) ([]models.Subject, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveDBQuery("subjects", time.Since(start)) }()
	if subjectID > 0 {
		subject, err := s.subjects.FindInClassroom(ctx, classroomID, subjectID)
		if err != nil {
			if isNotFound(err) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not taught in classroom")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
		}
		return []models.Subject{*subject}, nil
	}
	subjects, err := s.subjects.ListByClassroom(ctx, classroomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	return subjects, nil
}

// classroomSnapshot is the calculator input for every subject of one request.
type classroomSnapshot struct {
	students       []average.Student
	grades         map[int][]average.GradeRecord
	reinforcements map[int][]average.ReinforcementGrade
}

func (s *AverageService) loadSnapshot(ctx context.Context, classroomID, academicPeriodID int, subjects []models.Subject) (*classroomSnapshot, error) {
	subjectIDs := make([]int, len(subjects))
	for i, subject := range subjects {
		subjectIDs[i] = subject.ID
	}

	start := time.Now()
	students, err := s.students.ListByClassroom(ctx, classroomID)
	s.metrics.ObserveDBQuery("students", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}

	start = time.Now()
	gradeEntries, err := s.grades.ListEntries(ctx, classroomID, academicPeriodID, subjectIDs)
	s.metrics.ObserveDBQuery("grades", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}

	start = time.Now()
	reinforcementEntries, err := s.reinforcements.ListEntries(ctx, classroomID, academicPeriodID, subjectIDs)
	s.metrics.ObserveDBQuery("reinforcements", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reinforcement grades")
	}

	snapshot := &classroomSnapshot{
		students:       make([]average.Student, len(students)),
		grades:         gradeRecordsBySubject(gradeEntries),
		reinforcements: make(map[int][]average.ReinforcementGrade),
	}
	for i, st := range students {
		snapshot.students[i] = average.Student{ID: st.ID, Name: st.Name}
	}
	for _, entry := range reinforcementEntries {
		snapshot.reinforcements[entry.SubjectID] = append(snapshot.reinforcements[entry.SubjectID], average.ReinforcementGrade{
			StudentID: entry.StudentID,
			SubjectID: entry.SubjectID,
			Term:      entry.Term,
			Label:     entry.Label,
			Grade:     scoreOf(entry.Grade.Float64, entry.Grade.Valid),
		})
	}
	return snapshot, nil
}

// gradeRecordsBySubject nests flat grade rows into one record per student and
// subject, keeping the row order of terms and labels.
func gradeRecordsBySubject(entries []models.GradeEntry) map[int][]average.GradeRecord {
	type recordKey struct{ student, subject int }

	out := make(map[int][]average.GradeRecord)
	records := make(map[recordKey]int)
	terms := make(map[recordKey]map[string]int)
	for _, entry := range entries {
		key := recordKey{entry.StudentID, entry.SubjectID}
		idx, ok := records[key]
		if !ok {
			idx = len(out[entry.SubjectID])
			out[entry.SubjectID] = append(out[entry.SubjectID], average.GradeRecord{StudentID: entry.StudentID, SubjectID: entry.SubjectID})
			records[key] = idx
			terms[key] = make(map[string]int)
		}
		record := &out[entry.SubjectID][idx]
		t, ok := terms[key][entry.Term]
		if !ok {
			t = len(record.Terms)
			record.Terms = append(record.Terms, average.TermGrades{Term: entry.Term})
			terms[key][entry.Term] = t
		}
		record.Terms[t].Grades = append(record.Terms[t].Grades, average.LabelGrade{
			LabelID: entry.LabelID,
			Grade:   scoreOf(entry.Grade.Float64, entry.Grade.Valid),
		})
	}
	return out
}

func scoreOf(v float64, valid bool) average.Score {
	if !valid {
		return average.Score{}
	}
	return average.NewScore(v)
}

func (s *AverageService) reportDiagnostics(classroomID int, resp *dto.ClassroomAveragesResponse) {
	counts := make(map[average.Kind]int)
	for _, d := range resp.Diagnostics {
		counts[d.Kind]++
	}
	for _, subject := range resp.Subjects {
		for _, d := range subject.Result.Diagnostics {
			counts[d.Kind]++
		}
	}
	if len(counts) == 0 {
		return
	}
	fields := []zap.Field{zap.Int("classroom_id", classroomID)}
	for kind, n := range counts {
		s.metrics.RecordDiagnostics(string(kind), n)
		fields = append(fields, zap.Int(strings.ToLower(string(kind)), n))
	}
	s.logger.Warn("averages computed with diagnostics", fields...)
}

// averagesCacheKey derives a stable key from every input that shapes the result.
func averagesCacheKey(classroomID, academicPeriodID int, subjects []models.Subject, mode average.Mode, weights average.Weights, groups []average.Group, unweighted bool) string {
	ids := make([]int, len(subjects))
	for i, subject := range subjects {
		ids[i] = subject.ID
	}
	sort.Ints(ids)

	var b strings.Builder
	b.WriteString("subjects=")
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(id))
	}
	b.WriteString(";mode=")
	b.WriteString(string(mode))
	if unweighted {
		b.WriteString(";unweighted")
	}
	b.WriteString(";weights=")
	for _, term := range weights.SortedTerms() {
		b.WriteString(term)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(weights[term], 'g', -1, 64))
		b.WriteByte(',')
	}
	b.WriteString(";groups=")
	for _, g := range groups {
		b.WriteString(g.Name)
		b.WriteByte(':')
		b.WriteString(strings.Join(g.Terms, ","))
		b.WriteByte('|')
	}

	digest := uuid.NewSHA1(uuid.NameSpaceURL, []byte(b.String()))
	return cacheKey(classroomID, "period", strconv.Itoa(academicPeriodID), digest.String())
}
