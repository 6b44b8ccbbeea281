package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-averages/internal/middleware"
	"github.com/noah-isme/classroom-averages/internal/models"
	appErrors "github.com/noah-isme/classroom-averages/pkg/errors"
)

func sessionFromContext(c *gin.Context) (models.Session, error) {
	session, ok := middleware.SessionFromContext(c)
	if !ok {
		return models.Session{}, appErrors.ErrUnauthorized
	}
	return session, nil
}

// idParam parses a positive integer path parameter.
func idParam(c *gin.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid "+name)
	}
	return id, nil
}
