// Package memory implementa los puertos de persistencia en memoria, protegidos por un mutex.
// Se usa en tests y en el modo --dry-run del CLI de claves.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rukioi/legal-saas-api/internal/domain"
	"github.com/rukioi/legal-saas-api/internal/domain/entity"
	"github.com/rukioi/legal-saas-api/internal/domain/repository"
)

var (
	_ repository.UserRepository            = (*UserRepo)(nil)
	_ repository.AdminRepository           = (*AdminRepo)(nil)
	_ repository.TenantRepository          = (*TenantRepo)(nil)
	_ repository.RegistrationKeyRepository = (*KeyRepo)(nil)
	_ repository.RefreshTokenRepository    = (*RefreshTokenRepo)(nil)
	_ repository.TxRunner                  = (*TxRunner)(nil)
)

// Store agrupa todas las tablas en memoria.
type Store struct {
	mu      sync.Mutex
	users   map[string]*entity.User
	admins  map[string]*entity.Admin
	tenants map[string]*entity.Tenant
	keys    map[string]*entity.RegistrationKey
	tokens  map[string]*entity.RefreshToken

	// FailTokenCreate fuerza un error al persistir refresh tokens (tests de efectos secundarios).
	FailTokenCreate error
	// FailUserCreate fuerza un error al insertar usuarios (tests de rollback).
	FailUserCreate error
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		users:   make(map[string]*entity.User),
		admins:  make(map[string]*entity.Admin),
		tenants: make(map[string]*entity.Tenant),
		keys:    make(map[string]*entity.RegistrationKey),
		tokens:  make(map[string]*entity.RefreshToken),
	}
}

func (s *Store) Users() *UserRepo                 { return &UserRepo{s: s} }
func (s *Store) Admins() *AdminRepo               { return &AdminRepo{s: s} }
func (s *Store) Tenants() *TenantRepo             { return &TenantRepo{s: s} }
func (s *Store) Keys() *KeyRepo                   { return &KeyRepo{s: s} }
func (s *Store) RefreshTokens() *RefreshTokenRepo { return &RefreshTokenRepo{s: s} }
func (s *Store) TxRunner() *TxRunner              { return &TxRunner{s: s} }

// AddTenant inserta un tenant (seed de tests).
func (s *Store) AddTenant(t *entity.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *t
	s.tenants[t.ID] = &c
}

// ──────────────────────────────────────────────────────────────────────────────
// Users
// ──────────────────────────────────────────────────────────────────────────────

// UserRepo usuarios en memoria.
type UserRepo struct{ s *Store }

func (r *UserRepo) Create(_ context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailUserCreate != nil {
		return r.s.FailUserCreate
	}
	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return domain.ErrUserExists
		}
	}
	c := *u
	r.s.users[u.ID] = &c
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (r *UserRepo) Update(_ context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.ID]; !ok {
		return domain.ErrNotFound
	}
	c := *u
	r.s.users[u.ID] = &c
	return nil
}

func (r *UserRepo) UpdateLastLogin(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now()
	u.LastLoginAt = &now
	return nil
}

func (r *UserRepo) CountByTenant(_ context.Context, tenantID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, u := range r.s.users {
		if u.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

func (r *UserRepo) delete(id string) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.users, id)
}

// ──────────────────────────────────────────────────────────────────────────────
// Admins y tenants
// ──────────────────────────────────────────────────────────────────────────────

// AdminRepo admins en memoria.
type AdminRepo struct{ s *Store }

func (r *AdminRepo) Create(_ context.Context, a *entity.Admin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *a
	r.s.admins[a.ID] = &c
	return nil
}

func (r *AdminRepo) GetByID(_ context.Context, id string) (*entity.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a, ok := r.s.admins[id]; ok {
		c := *a
		return &c, nil
	}
	return nil, nil
}

func (r *AdminRepo) GetByEmail(_ context.Context, email string) (*entity.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.admins {
		if strings.EqualFold(a.Email, email) {
			c := *a
			return &c, nil
		}
	}
	return nil, nil
}

func (r *AdminRepo) UpdateLastLogin(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.admins[id]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now()
	a.LastLoginAt = &now
	return nil
}

// TenantRepo tenants en memoria.
type TenantRepo struct{ s *Store }

func (r *TenantRepo) GetByID(_ context.Context, id string) (*entity.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.tenants[id]; ok {
		c := *t
		return &c, nil
	}
	return nil, nil
}

func (r *TenantRepo) List(_ context.Context) ([]*entity.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entity.Tenant, 0, len(r.s.tenants))
	for _, t := range r.s.tenants {
		c := *t
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Registration keys
// ──────────────────────────────────────────────────────────────────────────────

// KeyRepo claves de registro en memoria.
type KeyRepo struct{ s *Store }

func cloneKey(k *entity.RegistrationKey) *entity.RegistrationKey {
	c := *k
	c.UsedLogs = slices.Clone(k.UsedLogs)
	return &c
}

func (r *KeyRepo) Create(_ context.Context, k *entity.RegistrationKey) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.keys {
		if existing.KeyPrefix == k.KeyPrefix {
			return fmt.Errorf("prefijo de clave duplicado: %w", domain.ErrConflict)
		}
	}
	r.s.keys[k.ID] = cloneKey(k)
	return nil
}

func (r *KeyRepo) GetByID(_ context.Context, id string) (*entity.RegistrationKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if k, ok := r.s.keys[id]; ok {
		return cloneKey(k), nil
	}
	return nil, nil
}

func (r *KeyRepo) GetByPrefix(_ context.Context, prefix string) (*entity.RegistrationKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, k := range r.s.keys {
		if k.KeyPrefix == prefix {
			return cloneKey(k), nil
		}
	}
	return nil, nil
}

func (r *KeyRepo) List(_ context.Context, tenantID string) ([]*entity.RegistrationKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entity.RegistrationKey, 0, len(r.s.keys))
	for _, k := range r.s.keys {
		if tenantID == "" || k.TenantID == tenantID {
			out = append(out, cloneKey(k))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *KeyRepo) Revoke(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k, ok := r.s.keys[id]
	if !ok {
		return domain.ErrNotFound
	}
	k.Revoked = true
	k.UpdatedAt = time.Now()
	return nil
}

func (r *KeyRepo) Consume(_ context.Context, id string, usage entity.KeyUsage) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k, ok := r.s.keys[id]
	if !ok || k.Revoked || k.UsesLeft <= 0 {
		return false, nil
	}
	k.UsesLeft--
	k.UsedLogs = append(k.UsedLogs, usage)
	k.UpdatedAt = time.Now()
	return true, nil
}

func (r *KeyRepo) unconsume(id string) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if k, ok := r.s.keys[id]; ok && len(k.UsedLogs) > 0 {
		k.UsesLeft++
		k.UsedLogs = k.UsedLogs[:len(k.UsedLogs)-1]
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Refresh tokens
// ──────────────────────────────────────────────────────────────────────────────

// RefreshTokenRepo refresh tokens en memoria.
type RefreshTokenRepo struct{ s *Store }

func (r *RefreshTokenRepo) Create(_ context.Context, t *entity.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailTokenCreate != nil {
		return r.s.FailTokenCreate
	}
	c := *t
	r.s.tokens[t.ID] = &c
	return nil
}

func (r *RefreshTokenRepo) GetByHash(_ context.Context, hash string) (*entity.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tokens {
		if t.TokenHash == hash {
			c := *t
			return &c, nil
		}
	}
	return nil, nil
}

func (r *RefreshTokenRepo) ListActiveBySubject(_ context.Context, subjectType, subjectID string) ([]*entity.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.RefreshToken
	for _, t := range r.s.tokens {
		if t.IsActive && t.SubjectType == subjectType && t.SubjectID == subjectID {
			c := *t
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *RefreshTokenRepo) Revoke(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[id]
	if !ok || !t.IsActive {
		return false, nil
	}
	now := time.Now()
	t.IsActive = false
	t.RevokedAt = &now
	return true, nil
}

func (r *RefreshTokenRepo) RevokeAllBySubject(_ context.Context, subjectType, subjectID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	now := time.Now()
	for _, t := range r.s.tokens {
		if t.IsActive && t.SubjectType == subjectType && t.SubjectID == subjectID {
			t.IsActive = false
			t.RevokedAt = &now
			n++
		}
	}
	return n, nil
}
