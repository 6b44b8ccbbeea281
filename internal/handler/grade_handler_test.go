package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-averages/internal/dto"
	"github.com/noah-isme/classroom-averages/internal/models"
	appErrors "github.com/noah-isme/classroom-averages/pkg/errors"
)

type fakeGradeSrv struct {
	upserted   dto.UpsertGradeRequest
	created    dto.CreateReinforcementRequest
	listed     [2]int
	deletedID  int
	err        error
	reinforced []models.ReinforcementGrade
	gridTerm   int
}

func (f *fakeGradeSrv) ClassroomGrades(_ context.Context, _ models.Session, classroomID, termID int) (*dto.ClassroomGradesResponse, error) {
	f.gridTerm = termID
	if f.err != nil {
		return nil, f.err
	}
	grade := 8.0
	return &dto.ClassroomGradesResponse{
		ClassroomID: classroomID,
		TermID:      termID,
		Grades: []dto.StudentSubjectGrades{{StudentID: 1, SubjectID: 3, Grades: []dto.LabelGradeCell{
			{TermID: 1, Term: "T1", LabelID: 2, Label: "Exam", Grade: &grade},
		}}},
	}, nil
}

func (f *fakeGradeSrv) UpsertGrade(_ context.Context, _ models.Session, req dto.UpsertGradeRequest) (*models.Grade, error) {
	f.upserted = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Grade{ID: 1, StudentID: req.StudentID, Grade: req.Grade}, nil
}

func (f *fakeGradeSrv) AddReinforcement(_ context.Context, _ models.Session, req dto.CreateReinforcementRequest) (*models.ReinforcementGrade, error) {
	f.created = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.ReinforcementGrade{ID: 4, Label: req.Label, Grade: req.Grade}, nil
}

func (f *fakeGradeSrv) ListReinforcements(_ context.Context, _ models.Session, classroomID, termID int) ([]models.ReinforcementGrade, error) {
	f.listed = [2]int{classroomID, termID}
	return f.reinforced, f.err
}

func (f *fakeGradeSrv) DeleteReinforcement(_ context.Context, _ models.Session, id int) error {
	f.deletedID = id
	return f.err
}

func jsonContext(t *testing.T, method, target string, payload interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	c, rec := newContext(method, target, &teacherSession, nil)
	c.Request = httptest.NewRequest(method, target, bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, rec
}

func TestGradeHandlerUpsert(t *testing.T) {
	srv := &fakeGradeSrv{}
	h := NewGradeHandler(srv)

	c, rec := jsonContext(t, http.MethodPost, "/grades", map[string]interface{}{
		"classroom_id": 1, "student_id": 2, "subject_id": 3, "term_id": 4, "label_id": 5, "grade": 9.5,
	})
	h.Upsert(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 9.5, srv.upserted.Grade)
	assert.Equal(t, 5, srv.upserted.LabelID)
}

func TestGradeHandlerUpsertBadPayload(t *testing.T) {
	h := NewGradeHandler(&fakeGradeSrv{})

	c, rec := newContext(http.MethodPost, "/grades", &teacherSession, nil)
	c.Request = httptest.NewRequest(http.MethodPost, "/grades", bytes.NewBufferString("{"))
	c.Request.Header.Set("Content-Type", "application/json")
	h.Upsert(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGradeHandlerReinforcements(t *testing.T) {
	srv := &fakeGradeSrv{}
	h := NewGradeHandler(srv)

	c, rec := jsonContext(t, http.MethodPost, "/reinforcement-grades", map[string]interface{}{
		"classroom_id": 1, "student_id": 2, "subject_id": 3, "term_id": 4, "label": "Oral", "grade": 7,
	})
	h.CreateReinforcement(c)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Oral", srv.created.Label)

	c, rec = newContext(http.MethodGet, "/classrooms/1/terms/4/reinforcement-grades", &teacherSession, gin.Params{{Key: "classroomID", Value: "1"}, {Key: "termID", Value: "4"}})
	h.ListReinforcements(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, [2]int{1, 4}, srv.listed)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())

	c, rec = newContext(http.MethodDelete, "/reinforcement-grades/4", &teacherSession, gin.Params{{Key: "id", Value: "4"}})
	h.DeleteReinforcement(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 4, srv.deletedID)
}

func TestGradeHandlerDeleteNotFound(t *testing.T) {
	srv := &fakeGradeSrv{err: appErrors.Clone(appErrors.ErrNotFound, "reinforcement grade not found")}
	h := NewGradeHandler(srv)

	c, rec := newContext(http.MethodDelete, "/reinforcement-grades/9", &teacherSession, gin.Params{{Key: "id", Value: "9"}})
	h.DeleteReinforcement(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = newContext(http.MethodDelete, "/reinforcement-grades/0", &teacherSession, gin.Params{{Key: "id", Value: "0"}})
	h.DeleteReinforcement(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGradeHandlerClassroomGrades(t *testing.T) {
	srv := &fakeGradeSrv{}
	h := NewGradeHandler(srv)

	c, rec := newContext(http.MethodGet, "/classrooms/1/grades", &teacherSession, gin.Params{{Key: "classroomID", Value: "1"}})
	h.ClassroomGrades(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, srv.gridTerm)
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	grades := env.Data["grades"].([]interface{})
	require.Len(t, grades, 1)
	cell := grades[0].(map[string]interface{})["grades"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Exam", cell["label"])
	assert.Equal(t, 8.0, cell["grade"])

	c, rec = newContext(http.MethodGet, "/classrooms/1/terms/4/grades", &teacherSession, gin.Params{{Key: "classroomID", Value: "1"}, {Key: "termID", Value: "4"}})
	h.ClassroomGrades(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, srv.gridTerm)

	c, rec = newContext(http.MethodGet, "/classrooms/1/grades?term_id=2", &teacherSession, gin.Params{{Key: "classroomID", Value: "1"}})
	h.ClassroomGrades(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, srv.gridTerm)

	c, rec = newContext(http.MethodGet, "/classrooms/1/grades?term_id=x", &teacherSession, gin.Params{{Key: "classroomID", Value: "1"}})
	h.ClassroomGrades(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
