// Package cache envuelve repositorios de lectura frecuente con un cache en proceso.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/rukioi/legal-saas-api/internal/domain/entity"
	"github.com/rukioi/legal-saas-api/internal/domain/repository"
)

var _ repository.TenantRepository = (*TenantRepository)(nil)

// TenantRepository cachea GetByID por tenant. Solo se cachean tenants encontrados:
// un tenant recién creado se ve en la siguiente consulta.
type TenantRepository struct {
	next repository.TenantRepository
	c    *gocache.Cache
}

// NewTenantRepository envuelve next con un cache de ttl.
func NewTenantRepository(next repository.TenantRepository, ttl time.Duration) *TenantRepository {
	return &TenantRepository{next: next, c: gocache.New(ttl, time.Minute)}
}

func (r *TenantRepository) GetByID(ctx context.Context, id string) (*entity.Tenant, error) {
	if v, ok := r.c.Get(id); ok {
		t := *v.(*entity.Tenant)
		return &t, nil
	}
	t, err := r.next.GetByID(ctx, id)
	if err != nil || t == nil {
		return t, err
	}
	c := *t
	r.c.SetDefault(id, &c)
	return t, nil
}

// List no se cachea.
func (r *TenantRepository) List(ctx context.Context) ([]*entity.Tenant, error) {
	return r.next.List(ctx)
}

// Invalidate descarta la entrada de un tenant.
func (r *TenantRepository) Invalidate(id string) { r.c.Delete(id) }
