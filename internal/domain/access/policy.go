// Package access contiene la política de acceso por tier y las decisiones RBAC puras
// (sin I/O). Tanto el middleware HTTP como DashboardPermissions consultan la misma tabla.
package access

import "github.com/rukioi/legal-saas-api/internal/domain/entity"

// Feature es un área funcional de la aplicación protegida por tier.
type Feature string

const (
	FeatureBilling       Feature = "billing"
	FeatureFinancialData Feature = "financial_data"
	FeatureCashFlow      Feature = "cash_flow"
	FeatureSettings      Feature = "settings"
)

// Rule describe qué tiers acceden a una feature. Si Exact es true solo MinTier accede.
type Rule struct {
	MinTier entity.AccountType
	Exact   bool
}

// Allows informa si el tier cumple la regla.
func (r Rule) Allows(t entity.AccountType) bool {
	if !t.Valid() {
		return false
	}
	if r.Exact {
		return t == r.MinTier
	}
	return t.Rank() >= r.MinTier.Rank()
}

// Tiers devuelve los tiers que cumplen la regla, en orden ascendente.
func (r Rule) Tiers() []entity.AccountType {
	out := make([]entity.AccountType, 0, len(entity.AccountTypes))
	for _, t := range entity.AccountTypes {
		if r.Allows(t) {
			out = append(out, t)
		}
	}
	return out
}

// Policy es la única tabla de reglas de negocio por tier.
var Policy = map[Feature]Rule{
	FeatureBilling:       {MinTier: entity.AccountSimples},
	FeatureFinancialData: {MinTier: entity.AccountComposta},
	FeatureCashFlow:      {MinTier: entity.AccountComposta},
	FeatureSettings:      {MinTier: entity.AccountGerencial, Exact: true},
}

// Permissions son los flags de capacidad que consume la capa de presentación.
type Permissions struct {
	CanViewBilling       bool `json:"canViewBilling"`
	CanViewFinancialData bool `json:"canViewFinancialData"`
	CanViewCashFlow      bool `json:"canViewCashFlow"`
	CanViewSettings      bool `json:"canViewSettings"`
}

// DashboardPermissions deriva los flags del tier a partir de Policy.
func DashboardPermissions(t entity.AccountType) Permissions {
	return Permissions{
		CanViewBilling:       Can(t, FeatureBilling),
		CanViewFinancialData: Can(t, FeatureFinancialData),
		CanViewCashFlow:      Can(t, FeatureCashFlow),
		CanViewSettings:      Can(t, FeatureSettings),
	}
}

// Can informa si el tier accede a la feature. Features desconocidas se deniegan.
func Can(t entity.AccountType, f Feature) bool {
	rule, ok := Policy[f]
	if !ok {
		return false
	}
	return rule.Allows(t)
}
