package entity

import "time"

// KeyUsage es una entrada del log de usos (append-only) de una clave de registro.
type KeyUsage struct {
	UsedAt time.Time `json:"used_at"`
	UsedBy string    `json:"used_by"`
	Email  string    `json:"email,omitempty"`
}

// RegistrationKey es una clave de onboarding emitida fuera de banda.
// Solo se guarda el hash bcrypt de la clave completa; KeyPrefix es público y sirve de índice.
type RegistrationKey struct {
	ID          string
	KeyPrefix   string
	KeyHash     string
	TenantID    string
	AccountType AccountType
	UsesAllowed int
	UsesLeft    int
	SingleUse   bool
	ExpiresAt   *time.Time // nil = sin vencimiento
	Revoked     bool
	Metadata    map[string]any
	UsedLogs    []KeyUsage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsExpired informa si la clave venció en el instante now.
func (k *RegistrationKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && !now.Before(*k.ExpiresAt)
}
