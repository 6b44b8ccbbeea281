package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-averages/internal/dto"
	"github.com/noah-isme/classroom-averages/internal/middleware"
	"github.com/noah-isme/classroom-averages/internal/models"
	"github.com/noah-isme/classroom-averages/internal/service"
	appErrors "github.com/noah-isme/classroom-averages/pkg/errors"
	"github.com/noah-isme/classroom-averages/pkg/response"
)

type averagesService interface {
	ClassroomAverages(ctx context.Context, session models.Session, req dto.AveragesRequest) (*dto.ClassroomAveragesResponse, bool, error)
}

type averagesExporter interface {
	AveragesCSV(resp *dto.ClassroomAveragesResponse) (*service.ExportResult, error)
}

// Query keys that configure the computation. Every other key is read as a term
// weight; keys naming no term of the period are reported and ignored. No weight
// at all yields unweighted term averages.
var reservedAverageParams = map[string]struct{}{
	"_":                  {},
	"mode":               {},
	"group":              {},
	"group_size":         {},
	"format":             {},
	"academic_period_id": {},
}

// AverageHandler serves computed grade averages.
type AverageHandler struct {
	service  averagesService
	exporter averagesExporter
}

// NewAverageHandler constructs the handler.
func NewAverageHandler(service averagesService, exporter averagesExporter) *AverageHandler {
	return &AverageHandler{service: service, exporter: exporter}
}

// Classroom godoc
// @Summary Averages of every subject of a classroom
// @Tags Averages
// @Produce json
// @Param classroomID path int true "Classroom ID"
// @Param mode query string false "SUM or SUM_DIVIDED_BY_BUCKETS"
// @Param group query []string false "Partial group name:term1,term2"
// @Param group_size query int false "Adjacent terms per partial group"
// @Param format query string false "json or csv"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{classroomID}/averages [get]
func (h *AverageHandler) Classroom(c *gin.Context) {
	h.serve(c, 0)
}

// Subject godoc
// @Summary Averages of one subject of a classroom
// @Tags Averages
// @Produce json
// @Param classroomID path int true "Classroom ID"
// @Param subjectID path int true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{classroomID}/subjects/{subjectID}/averages [get]
func (h *AverageHandler) Subject(c *gin.Context) {
	subjectID, err := idParam(c, "subjectID")
	if err != nil {
		response.Error(c, err)
		return
	}
	h.serve(c, subjectID)
}

func (h *AverageHandler) serve(c *gin.Context, subjectID int) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
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
	req, err := averagesRequest(c, classroomID, subjectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "json")))
	if format != "json" && format != "csv" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be json or csv"))
		return
	}

	result, cacheHit, err := h.service.ClassroomAverages(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	if format == "csv" {
		if h.exporter == nil {
			response.Error(c, appErrors.ErrInternal)
			return
		}
		file, err := h.exporter.AveragesCSV(result)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Attachment(c, file.Filename, file.ContentType, file.Payload)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

func averagesRequest(c *gin.Context, classroomID, subjectID int) (dto.AveragesRequest, error) {
	query := c.Request.URL.Query()
	req := dto.AveragesRequest{
		ClassroomID: classroomID,
		SubjectID:   subjectID,
		Mode:        query.Get("mode"),
		Groups:      query["group"],
		Weights:     make(map[string]string),
	}
	if raw := strings.TrimSpace(query.Get("group_size")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return req, appErrors.Clone(appErrors.ErrValidation, "group_size must be an integer")
		}
		req.GroupSize = size
	}
	for key, values := range query {
		if _, reserved := reservedAverageParams[key]; reserved || len(values) == 0 {
			continue
		}
		req.Weights[key] = values[0]
	}
	return req, nil
}
