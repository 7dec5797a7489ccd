package entity

import "time"

// Tipos de sujeto dueño de un refresh token.
const (
	SubjectUser  = "user"
	SubjectAdmin = "admin"
)

// RefreshToken guarda el hash (sha256) de un refresh token emitido. Un sujeto puede tener
// varios activos a la vez (multi-dispositivo).
type RefreshToken struct {
	ID          string
	SubjectID   string
	SubjectType string // user | admin
	TokenHash   string
	ExpiresAt   time.Time
	IsActive    bool
	CreatedAt   time.Time
	RevokedAt   *time.Time
}
