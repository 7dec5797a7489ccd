package repository

import (
	"context"

	"github.com/rukioi/legal-saas-api/internal/domain/entity"
)

// RegistrationKeyRepository define el puerto de persistencia para claves de registro.
type RegistrationKeyRepository interface {
	Create(ctx context.Context, key *entity.RegistrationKey) error
	GetByID(ctx context.Context, id string) (*entity.RegistrationKey, error)
	// GetByPrefix busca por el identificador público de la clave.
	GetByPrefix(ctx context.Context, prefix string) (*entity.RegistrationKey, error)
	// List devuelve todas las claves, o solo las del tenant si tenantID no es vacío.
	List(ctx context.Context, tenantID string) ([]*entity.RegistrationKey, error)
	Revoke(ctx context.Context, id string) error
	// Consume decrementa UsesLeft y agrega usage al log en un único paso atómico,
	// solo si la clave no está revocada y le quedan usos. Devuelve false si no se consumió.
	Consume(ctx context.Context, id string, usage entity.KeyUsage) (bool, error)
}
