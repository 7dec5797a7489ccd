package entity

import "time"

// Tenant representa un escritorio/organización cliente (raíz de la partición de datos).
// Cada tenant tiene su propio schema PostgreSQL para los datos de negocio.
type Tenant struct {
	ID         string
	Name       string
	SchemaName string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
