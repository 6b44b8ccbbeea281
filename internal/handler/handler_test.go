package handler

import (
	"net/http/httptest"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-averages/internal/middleware"
	"github.com/noah-isme/classroom-averages/internal/models"
)

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Meta  map[string]interface{} `json:"meta"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

var teacherSession = models.Session{TeacherID: 10, Role: models.RoleTeacher, AcademicPeriodID: 5}

func init() {
	gin.SetMode(gin.TestMode)
}

// newContext builds a test context carrying session and the path params.
func newContext(method, target string, session *models.Session, params gin.Params) (*gin.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, nil)
	c.Params = params
	if session != nil {
		c.Set(middleware.ContextSessionKey, *session)
	}
	return c, rec
}
