package access

import (
	"slices"

	"github.com/rukioi/legal-saas-api/internal/domain/entity"
)

// Códigos de decisión legibles por máquina.
const (
	CodeAllowed                = "ALLOWED"
	CodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	CodePermissionDenied       = "PERMISSION_DENIED"
	CodeTenantAccessDenied     = "TENANT_ACCESS_DENIED"
)

// Identity es la identidad ya resuelta del llamador (a partir del access token).
type Identity struct {
	UserID      string
	Email       string
	Name        string
	TenantID    string
	AccountType entity.AccountType
	Role        string // solo admins
}

// IsAdmin informa si la identidad es de un operador de plataforma.
func (i *Identity) IsAdmin() bool { return i != nil && i.Role != "" }

// Decision es el resultado de un guard RBAC. Nunca es un error: siempre es paso o denegación.
type Decision struct {
	Allowed  bool
	Code     string
	Required []entity.AccountType
	Current  entity.AccountType
}

func allow() Decision { return Decision{Allowed: true, Code: CodeAllowed} }

func unauthenticated() Decision {
	return Decision{Code: CodeAuthenticationRequired}
}

// RequireAccountTypes deja pasar solo si el tier del llamador está en allowed.
func RequireAccountTypes(id *Identity, allowed ...entity.AccountType) Decision {
	if id == nil || id.UserID == "" {
		return unauthenticated()
	}
	if slices.Contains(allowed, id.AccountType) {
		return allow()
	}
	return Decision{Code: CodePermissionDenied, Required: allowed, Current: id.AccountType}
}

// ForbidAccountTypes deja pasar salvo que el tier del llamador esté en forbidden.
func ForbidAccountTypes(id *Identity, forbidden ...entity.AccountType) Decision {
	if id == nil || id.UserID == "" {
		return unauthenticated()
	}
	if !slices.Contains(forbidden, id.AccountType) {
		return allow()
	}
	required := make([]entity.AccountType, 0, len(entity.AccountTypes))
	for _, t := range entity.AccountTypes {
		if !slices.Contains(forbidden, t) {
			required = append(required, t)
		}
	}
	return Decision{Code: CodePermissionDenied, Required: required, Current: id.AccountType}
}

// CheckFeature aplica la regla de Policy de la feature.
func CheckFeature(id *Identity, f Feature) Decision {
	if id == nil || id.UserID == "" {
		return unauthenticated()
	}
	rule, ok := Policy[f]
	if !ok {
		return Decision{Code: CodePermissionDenied, Current: id.AccountType}
	}
	if rule.Allows(id.AccountType) {
		return allow()
	}
	return Decision{Code: CodePermissionDenied, Required: rule.Tiers(), Current: id.AccountType}
}

// CheckTenant compara el tenant de la ruta con el del llamador.
func CheckTenant(id *Identity, pathTenantID string) Decision {
	if id == nil || id.UserID == "" {
		return unauthenticated()
	}
	if pathTenantID == "" || id.TenantID == "" || pathTenantID != id.TenantID {
		return Decision{Code: CodeTenantAccessDenied, Current: id.AccountType}
	}
	return allow()
}
