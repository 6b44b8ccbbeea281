package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-averages/internal/dto"
	"github.com/noah-isme/classroom-averages/internal/models"
	appErrors "github.com/noah-isme/classroom-averages/pkg/errors"
	"github.com/noah-isme/classroom-averages/pkg/response"
)

type gradeService interface {
	UpsertGrade(ctx context.Context, session models.Session, req dto.UpsertGradeRequest) (*models.Grade, error)
	AddReinforcement(ctx context.Context, session models.Session, req dto.CreateReinforcementRequest) (*models.ReinforcementGrade, error)
	ListReinforcements(ctx context.Context, session models.Session, classroomID, termID int) ([]models.ReinforcementGrade, error)
	DeleteReinforcement(ctx context.Context, session models.Session, id int) error
	ClassroomGrades(ctx context.Context, session models.Session, classroomID, termID int) (*dto.ClassroomGradesResponse, error)
}

// GradeHandler records grades and reinforcement grades.
type GradeHandler struct {
	service gradeService
}

// NewGradeHandler constructs the handler.
func NewGradeHandler(service gradeService) *GradeHandler {
	return &GradeHandler{service: service}
}

// Upsert godoc
// @Summary Create or replace a label grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body dto.UpsertGradeRequest true "Grade"
// @Success 200 {object} response.Envelope
// @Router /grades [post]
func (h *GradeHandler) Upsert(c *gin.Context) {
	session, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpsertGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	grade, err := h.service.UpsertGrade(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}

// ClassroomGrades godoc
// @Summary Grade grid of a classroom
// @Tags Grades
// @Produce json
// @Param classroomID path int true "Classroom ID"
// @Param term_id query int false "Term ID"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{classroomID}/grades [get]
// @Router /classrooms/{classroomID}/terms/{termID}/grades [get]
func (h *GradeHandler) ClassroomGrades(c *gin.Context) {
	session, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	classroomID, err := idParam(c, "classroomID")
	if err != nil {
		response.Error(c, err)
		return
	}
	termID := 0
	if c.Param("termID") != "" {
		termID, err = idParam(c, "termID")
	} else if raw := c.Query("term_id"); raw != "" {
		termID, err = strconv.Atoi(raw)
		if err != nil || termID <= 0 {
			err = appErrors.Clone(appErrors.ErrValidation, "invalid term_id")
		}
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	grid, err := h.service.ClassroomGrades(c.Request.Context(), session, classroomID, termID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid, nil)
}

// ListReinforcements godoc
// @Summary Reinforcement grades of a classroom term
// @Tags Reinforcement
// @Produce json
// @Param classroomID path int true "Classroom ID"
// @Param termID path int true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{classroomID}/terms/{termID}/reinforcement-grades [get]
func (h *GradeHandler) ListReinforcements(c *gin.Context) {
	session, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	classroomID, err := idParam(c, "classroomID")
	if err != nil {
		response.Error(c, err)
		return
	}
	termID, err := idParam(c, "termID")
	if err != nil {
		response.Error(c, err)
		return
	}
	grades, err := h.service.ListReinforcements(c.Request.Context(), session, classroomID, termID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if grades == nil {
		grades = []models.ReinforcementGrade{}
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// CreateReinforcement godoc
// @Summary Record a reinforcement grade
// @Tags Reinforcement
// @Accept json
// @Produce json
// @Param payload body dto.CreateReinforcementRequest true "Reinforcement grade"
// @Success 201 {object} response.Envelope
// @Router /reinforcement-grades [post]
func (h *GradeHandler) CreateReinforcement(c *gin.Context) {
	session, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CreateReinforcementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	grade, err := h.service.AddReinforcement(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, grade)
}

// DeleteReinforcement godoc
// @Summary Delete a reinforcement grade
// @Tags Reinforcement
// @Param id path int true "Reinforcement grade ID"
// @Success 204
// @Router /reinforcement-grades/{id} [delete]
func (h *GradeHandler) DeleteReinforcement(c *gin.Context) {
	session, err := sessionFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.DeleteReinforcement(c.Request.Context(), session, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
