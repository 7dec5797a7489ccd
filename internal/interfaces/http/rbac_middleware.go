package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rukioi/legal-saas-api/internal/application/dto"
	"github.com/rukioi/legal-saas-api/internal/domain/access"
	"github.com/rukioi/legal-saas-api/internal/domain/entity"
)

// Guards RBAC. Deben usarse DESPUÉS de AuthMiddleware. Las decisiones salen de internal/domain/access;
// aquí solo se traducen a HTTP:
//   - 401 AUTHENTICATION_REQUIRED → no hay identidad en el contexto.
//   - 403 PERMISSION_DENIED       → tier insuficiente (incluye required/current).
//   - 403 TENANT_ACCESS_DENIED    → el tenant de la ruta no es el del token.

// RequireAccountTypes deja pasar solo a los tiers indicados.
func RequireAccountTypes(allowed ...entity.AccountType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return enforce(c, access.RequireAccountTypes(GetIdentity(c), allowed...))
	}
}

// ForbidAccountTypes bloquea a los tiers indicados.
func ForbidAccountTypes(forbidden ...entity.AccountType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return enforce(c, access.ForbidAccountTypes(GetIdentity(c), forbidden...))
	}
}

// RequireFeature aplica la regla de la tabla de políticas para la feature.
func RequireFeature(f access.Feature) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return enforce(c, access.CheckFeature(GetIdentity(c), f))
	}
}

// ValidateTenantAccess compara el parámetro de ruta param con el tenant del token.
func ValidateTenantAccess(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return enforce(c, access.CheckTenant(GetIdentity(c), c.Params(param)))
	}
}

// RequireAdmin deja pasar solo a operadores de plataforma.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := GetIdentity(c)
		if id == nil || id.UserID == "" {
			return enforce(c, access.Decision{Code: access.CodeAuthenticationRequired})
		}
		if !id.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: access.CodePermissionDenied, Message: "se requiere un administrador"})
		}
		return c.Next()
	}
}

func enforce(c *fiber.Ctx, d access.Decision) error {
	if d.Allowed {
		return c.Next()
	}
	switch d.Code {
	case access.CodeAuthenticationRequired:
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: d.Code, Message: "autenticación requerida"})
	case access.CodeTenantAccessDenied:
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: d.Code, Message: "no tiene acceso a este tenant"})
	}
	required := make([]string, 0, len(d.Required))
	for _, t := range d.Required {
		required = append(required, string(t))
	}
	return c.Status(fiber.StatusForbidden).JSON(dto.PermissionDeniedResponse{
		Code:     access.CodePermissionDenied,
		Message:  "su tipo de cuenta no permite esta operación",
		Required: required,
		Current:  string(d.Current),
	})
}
