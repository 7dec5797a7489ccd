package repository

import (
	"context"

	"github.com/rukioi/legal-saas-api/internal/domain/entity"
)

// AdminRepository define el puerto de persistencia para operadores de plataforma.
type AdminRepository interface {
	Create(ctx context.Context, admin *entity.Admin) error
	GetByID(ctx context.Context, id string) (*entity.Admin, error)
	GetByEmail(ctx context.Context, email string) (*entity.Admin, error)
	UpdateLastLogin(ctx context.Context, id string) error
}
