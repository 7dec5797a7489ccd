package access_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rukioi/legal-saas-api/internal/domain/access"
	"github.com/rukioi/legal-saas-api/internal/domain/entity"
)

func identity(t entity.AccountType) *access.Identity {
	return &access.Identity{UserID: "u-1", TenantID: "T1", AccountType: t}
}

func TestDashboardPermissions_PorTier(t *testing.T) {
	cases := []struct {
		tier entity.AccountType
		want access.Permissions
	}{
		{entity.AccountSimples, access.Permissions{CanViewBilling: true}},
		{entity.AccountComposta, access.Permissions{CanViewBilling: true, CanViewFinancialData: true, CanViewCashFlow: true}},
		{entity.AccountGerencial, access.Permissions{CanViewBilling: true, CanViewFinancialData: true, CanViewCashFlow: true, CanViewSettings: true}},
		{entity.AccountType("OTRO"), access.Permissions{}},
	}
	for _, tc := range cases {
		t.Run(string(tc.tier), func(t *testing.T) {
			assert.Equal(t, tc.want, access.DashboardPermissions(tc.tier))
		})
	}
}

// Los flags de presentación y el guard por feature deben coincidir para todo tier.
func TestDashboardPermissions_CoincideConCheckFeature(t *testing.T) {
	for _, tier := range entity.AccountTypes {
		perms := access.DashboardPermissions(tier)
		assert.Equal(t, perms.CanViewCashFlow, access.CheckFeature(identity(tier), access.FeatureCashFlow).Allowed)
		assert.Equal(t, perms.CanViewSettings, access.CheckFeature(identity(tier), access.FeatureSettings).Allowed)
		assert.Equal(t, perms.CanViewFinancialData, access.CheckFeature(identity(tier), access.FeatureFinancialData).Allowed)
		assert.Equal(t, perms.CanViewBilling, access.CheckFeature(identity(tier), access.FeatureBilling).Allowed)
	}
}

func TestRequireAccountTypes_ComposteEnRutaGerencial(t *testing.T) {
	d := access.RequireAccountTypes(identity(entity.AccountComposta), entity.AccountGerencial)

	assert.False(t, d.Allowed)
	assert.Equal(t, access.CodePermissionDenied, d.Code)
	assert.Equal(t, []entity.AccountType{entity.AccountGerencial}, d.Required)
	assert.Equal(t, entity.AccountComposta, d.Current)
}

func TestRequireAccountTypes_SinIdentidad(t *testing.T) {
	d := access.RequireAccountTypes(nil, entity.AccountSimples)
	assert.False(t, d.Allowed)
	assert.Equal(t, access.CodeAuthenticationRequired, d.Code)
}

func TestForbidAccountTypes(t *testing.T) {
	d := access.ForbidAccountTypes(identity(entity.AccountSimples), entity.AccountSimples)
	assert.False(t, d.Allowed)
	assert.Equal(t, []entity.AccountType{entity.AccountComposta, entity.AccountGerencial}, d.Required)

	assert.True(t, access.ForbidAccountTypes(identity(entity.AccountComposta), entity.AccountSimples).Allowed)
}

func TestCheckFeature_SettingsSoloGerencial(t *testing.T) {
	d := access.CheckFeature(identity(entity.AccountComposta), access.FeatureSettings)
	assert.False(t, d.Allowed)
	assert.Equal(t, []entity.AccountType{entity.AccountGerencial}, d.Required)

	assert.True(t, access.CheckFeature(identity(entity.AccountGerencial), access.FeatureSettings).Allowed)
	assert.False(t, access.CheckFeature(identity(entity.AccountGerencial), access.Feature("desconocida")).Allowed)
}

func TestCheckTenant(t *testing.T) {
	assert.True(t, access.CheckTenant(identity(entity.AccountSimples), "T1").Allowed)

	d := access.CheckTenant(identity(entity.AccountGerencial), "T2")
	assert.False(t, d.Allowed)
	assert.Equal(t, access.CodeTenantAccessDenied, d.Code)

	assert.False(t, access.CheckTenant(identity(entity.AccountGerencial), "").Allowed)
	assert.Equal(t, access.CodeAuthenticationRequired, access.CheckTenant(nil, "T1").Code)
}
