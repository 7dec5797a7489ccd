package dto

import "time"

// GenerateKeyRequest entrada para emitir una clave de registro.
type GenerateKeyRequest struct {
	TenantID    string         `json:"tenantId" validate:"required"`
	AccountType string         `json:"accountType" validate:"required,oneof=SIMPLES COMPOSTA GERENCIAL"`
	UsesAllowed *int           `json:"usesAllowed,omitempty"`
	ExpiresAt   *time.Time     `json:"expiresAt,omitempty"`
	SingleUse   bool           `json:"singleUse"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// GeneratedKeyResponse devuelve la clave en texto plano. Es la única vez que se expone.
type GeneratedKeyResponse struct {
	ID           string                  `json:"id"`
	Key          string                  `json:"key"`
	Registration RegistrationKeyResponse `json:"registrationKey"`
}

// RegistrationKeyResponse vista de una clave sin material secreto.
type RegistrationKeyResponse struct {
	ID          string         `json:"id"`
	KeyPrefix   string         `json:"keyPrefix"`
	TenantID    string         `json:"tenantId"`
	AccountType string         `json:"accountType"`
	UsesAllowed int            `json:"usesAllowed"`
	UsesLeft    int            `json:"usesLeft"`
	SingleUse   bool           `json:"singleUse"`
	ExpiresAt   *time.Time     `json:"expiresAt,omitempty"`
	Revoked     bool           `json:"revoked"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// KeyUsageEntry entrada del log de usos.
type KeyUsageEntry struct {
	UsedAt time.Time `json:"usedAt"`
	UsedBy string    `json:"usedBy"`
	Email  string    `json:"email,omitempty"`
}

// KeyUsageResponse resumen de uso de una clave.
type KeyUsageResponse struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenantId"`
	UsesAllowed int             `json:"usesAllowed"`
	UsesLeft    int             `json:"usesLeft"`
	UsesCount   int             `json:"usesCount"`
	Revoked     bool            `json:"revoked"`
	Expired     bool            `json:"expired"`
	Logs        []KeyUsageEntry `json:"logs"`
}

// ConsumedKey resultado de consumir una clave.
type ConsumedKey struct {
	KeyID       string `json:"keyId"`
	TenantID    string `json:"tenantId"`
	AccountType string `json:"accountType"`
}
