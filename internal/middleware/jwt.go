package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-averages/internal/models"
	appErrors "github.com/noah-isme/classroom-averages/pkg/errors"
	"github.com/noah-isme/classroom-averages/pkg/response"
)

const (
	// ContextUserKey is the gin context key storing JWT claims.
	ContextUserKey = "currentUser"
	// ContextSessionKey stores the models.Session built for the request.
	ContextSessionKey = "session"

	// AcademicPeriodHeader carries the academic period selected in the client.
	AcademicPeriodHeader = "X-Academic-Period"
	academicPeriodQuery  = "academic_period_id"
)

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// JWT protects routes by requiring a valid access token and folds the token
// and the selected academic period into a models.Session.
func JWT(tokens tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		periodID, err := academicPeriod(c)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Set(ContextSessionKey, models.Session{
			TeacherID:        claims.TeacherID,
			Role:             claims.Role,
			AcademicPeriodID: periodID,
		})
		c.Next()
	}
}

// academicPeriod reads the selected period; zero means none was selected.
func academicPeriod(c *gin.Context) (int, error) {
	raw := strings.TrimSpace(c.GetHeader(AcademicPeriodHeader))
	if raw == "" {
		raw = strings.TrimSpace(c.Query(academicPeriodQuery))
	}
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "academic period must be a positive integer")
	}
	return id, nil
}

// SessionFromContext returns the session stored by JWT.
func SessionFromContext(c *gin.Context) (models.Session, bool) {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return models.Session{}, false
	}
	session, ok := value.(models.Session)
	return session, ok
}
