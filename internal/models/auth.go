package models

import "github.com/golang-jwt/jwt/v5"

// Role distinguishes administrators from classroom teachers.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
)

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	TeacherID int    `json:"teacher_id"`
	Role      Role   `json:"role"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	jwt.RegisteredClaims
}

// Session is the explicit request context every averages operation runs in.
type Session struct {
	TeacherID        int
	Role             Role
	AcademicPeriodID int
}

// IsAdmin reports whether the session may act on any classroom.
func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}
