package entity

import "time"

// Roles de operador de plataforma.
const (
	AdminRoleSuper    = "superadmin"
	AdminRoleOperator = "admin"
)

// Admin es un operador de la plataforma. No pertenece a ningún tenant ni tiene tier.
type Admin struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	IsActive     bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
