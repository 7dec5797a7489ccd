package repository

import (
	"context"

	"github.com/rukioi/legal-saas-api/internal/domain/entity"
)

// RefreshTokenRepository define el puerto de persistencia para refresh tokens (hash sha256).
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *entity.RefreshToken) error
	// GetByHash devuelve el registro (activo o no) con ese hash, o nil.
	GetByHash(ctx context.Context, tokenHash string) (*entity.RefreshToken, error)
	ListActiveBySubject(ctx context.Context, subjectType, subjectID string) ([]*entity.RefreshToken, error)
	// Revoke desactiva el registro. Devuelve false si ya estaba inactivo o no existe.
	Revoke(ctx context.Context, id string) (bool, error)
	RevokeAllBySubject(ctx context.Context, subjectType, subjectID string) (int64, error)
}
