package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rukioi/legal-saas-api/internal/domain/access"
)

// TenantHandler rutas del tenant protegidas por RBAC. El contenido de negocio vive en otros
// servicios; aquí se expone la vista que el tier del llamador puede ver.
type TenantHandler struct{}

// NewTenantHandler construye el handler.
func NewTenantHandler() *TenantHandler { return &TenantHandler{} }

// Dashboard devuelve los flags de secciones visibles para el tier del llamador.
// @Router /api/tenants/{tenantId}/dashboard [get]
func (h *TenantHandler) Dashboard(c *fiber.Ctx) error {
	id := GetIdentity(c)
	return c.JSON(fiber.Map{
		"tenantId":    id.TenantID,
		"accountType": id.AccountType,
		"permissions": access.DashboardPermissions(id.AccountType),
	})
}

// CashFlow sección de flujo de caja (COMPOSTA o superior).
// @Router /api/tenants/{tenantId}/cash-flow [get]
func (h *TenantHandler) CashFlow(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"tenantId": GetTenantID(c), "feature": access.FeatureCashFlow, "entries": []any{}})
}

// Settings configuración del tenant (solo GERENCIAL).
// @Router /api/tenants/{tenantId}/settings [get]
func (h *TenantHandler) Settings(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"tenantId": GetTenantID(c), "feature": access.FeatureSettings, "settings": fiber.Map{}})
}
