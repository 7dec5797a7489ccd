package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rukioi/legal-saas-api/internal/application/dto"
	"github.com/rukioi/legal-saas-api/internal/application/regkey"
	"github.com/rukioi/legal-saas-api/pkg/logger"
)

// RegistrationKeyHandler endpoints de administración de claves de registro (solo admins).
type RegistrationKeyHandler struct {
	ks  *regkey.KeyStore
	log *logger.Logger
}

// NewRegistrationKeyHandler construye el handler.
func NewRegistrationKeyHandler(ks *regkey.KeyStore, log *logger.Logger) *RegistrationKeyHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &RegistrationKeyHandler{ks: ks, log: log}
}

// Generate godoc
// @Summary      Emitir clave de registro
// @Description  La clave en texto plano se devuelve solo en esta respuesta.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  dto.GenerateKeyRequest  true  "tenantId, accountType, usesAllowed, expiresAt, singleUse, metadata"
// @Success      201   {object}  dto.GeneratedKeyResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/admin/registration-keys [post]
func (h *RegistrationKeyHandler) Generate(c *fiber.Ctx) error {
	var in dto.GenerateKeyRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.ks.GenerateKey(c.UserContext(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	h.log.Info().Str("admin_id", GetUserID(c)).Str("key_id", out.ID).Msg("clave emitida vía API")
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar claves de registro
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        tenant_id  query  string  false  "filtrar por tenant"
// @Success      200   {array}   dto.RegistrationKeyResponse
// @Router       /api/admin/registration-keys [get]
func (h *RegistrationKeyHandler) List(c *fiber.Ctx) error {
	out, err := h.ks.ListKeys(c.UserContext(), c.Query("tenant_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Revoke godoc
// @Summary      Revocar clave de registro
// @Tags         admin
// @Security     BearerAuth
// @Param        id   path  string  true  "ID de la clave"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/admin/registration-keys/{id} [delete]
func (h *RegistrationKeyHandler) Revoke(c *fiber.Ctx) error {
	if err := h.ks.RevokeKey(c.UserContext(), c.Params("id")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Usage godoc
// @Summary      Uso de una clave de registro
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "ID de la clave"
// @Success      200  {object}  dto.KeyUsageResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/admin/registration-keys/{id}/usage [get]
func (h *RegistrationKeyHandler) Usage(c *fiber.Ctx) error {
	out, err := h.ks.GetKeyUsage(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}
