package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rukioi/legal-saas-api/internal/application/dto"
	"github.com/rukioi/legal-saas-api/internal/domain/access"
)

// LocalIdentity clave de c.Locals donde AuthMiddleware deja la *access.Identity.
const LocalIdentity = "identity"

// TokenVerifier valida un access token y devuelve la identidad del llamador.
// Lo implementa *auth.AuthUseCase.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*access.Identity, error)
}

// AuthMiddleware valida el Bearer Token y deja la identidad en c.Locals.
// Token expirado y token mal formado responden igual.
func AuthMiddleware(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: access.CodeAuthenticationRequired, Message: "Authorization header requerido"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: access.CodeAuthenticationRequired, Message: "token vacío"})
		}
		id, err := verifier.VerifyAccessToken(tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}
		c.Locals(LocalIdentity, id)
		return c.Next()
	}
}

// GetIdentity devuelve la identidad del contexto (después del middleware de auth), o nil.
func GetIdentity(c *fiber.Ctx) *access.Identity {
	id, _ := c.Locals(LocalIdentity).(*access.Identity)
	return id
}

// GetUserID devuelve el ID del usuario o admin autenticado.
func GetUserID(c *fiber.Ctx) string {
	if id := GetIdentity(c); id != nil {
		return id.UserID
	}
	return ""
}

// GetTenantID devuelve el tenant del usuario autenticado (vacío para admins).
func GetTenantID(c *fiber.Ctx) string {
	if id := GetIdentity(c); id != nil {
		return id.TenantID
	}
	return ""
}
