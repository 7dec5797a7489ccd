package repository

import (
	"context"

	"github.com/rukioi/legal-saas-api/internal/domain/entity"
)

// TenantRepository define el puerto de persistencia para Tenant (DIP).
// La implementación vive en infrastructure.
type TenantRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Tenant, error)
	List(ctx context.Context) ([]*entity.Tenant, error)
}
