package dto

import (
	"time"

	"github.com/rukioi/legal-saas-api/internal/domain/access"
)

// LoginRequest entrada para login de usuario o admin.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest entrada para registro con clave de registro.
type RegisterRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	Name            string `json:"name" validate:"required,max=200"`
	RegistrationKey string `json:"key" validate:"required"`
}

// RefreshRequest entrada para refresh y logout.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// ChangePasswordRequest entrada para cambio de contraseña.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

// TokenPair par de tokens emitidos.
type TokenPair struct {
	AccessToken           string    `json:"accessToken"`
	RefreshToken          string    `json:"refreshToken"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
}

// UserResponse salida de un usuario (sin password).
type UserResponse struct {
	ID                 string     `json:"id"`
	TenantID           string     `json:"tenantId"`
	Email              string     `json:"email"`
	Name               string     `json:"name"`
	AccountType        string     `json:"accountType"`
	IsActive           bool       `json:"isActive"`
	MustChangePassword bool       `json:"mustChangePassword"`
	LastLoginAt        *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
}

// AdminResponse salida de un admin (sin password).
type AdminResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// LoginResponse salida del login de usuario.
type LoginResponse struct {
	User   UserResponse `json:"user"`
	Tokens TokenPair    `json:"tokens"`
}

// AdminLoginResponse salida del login de admin.
type AdminLoginResponse struct {
	Admin  AdminResponse `json:"admin"`
	Tokens TokenPair     `json:"tokens"`
}

// RegisterResponse salida del registro.
type RegisterResponse struct {
	User        UserResponse `json:"user"`
	Tokens      TokenPair    `json:"tokens"`
	IsNewTenant bool         `json:"isNewTenant"`
}

// RefreshResponse salida de la rotación de tokens. User o Admin según el sujeto.
type RefreshResponse struct {
	User   *UserResponse  `json:"user,omitempty"`
	Admin  *AdminResponse `json:"admin,omitempty"`
	Tokens TokenPair      `json:"tokens"`
}

// MeResponse perfil del usuario autenticado con sus flags de dashboard.
type MeResponse struct {
	User        UserResponse       `json:"user"`
	Permissions access.Permissions `json:"permissions"`
}
