package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/classroom-averages/internal/models"
	appErrors "github.com/noah-isme/classroom-averages/pkg/errors"
)

type classroomReader interface {
	FindByID(ctx context.Context, id int) (*models.Classroom, error)
}

// requireSession checks the explicit request context shared by every averages operation.
func requireSession(session models.Session) error {
	if session.TeacherID <= 0 {
		return appErrors.Clone(appErrors.ErrUnauthorized, "teacher session required")
	}
	if session.AcademicPeriodID <= 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "academic period must be selected")
	}
	return nil
}

// authorizeClassroom loads the classroom and checks the session teacher owns it.
// Admin sessions may act on any classroom.
func authorizeClassroom(ctx context.Context, classrooms classroomReader, session models.Session, classroomID int) (*models.Classroom, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	classroom, err := classrooms.FindByID(ctx, classroomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	if !session.IsAdmin() && classroom.TeacherID != session.TeacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "classroom belongs to another teacher")
	}
	return classroom, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
