package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rukioi/legal-saas-api/internal/application/auth"
	"github.com/rukioi/legal-saas-api/internal/application/regkey"
	"github.com/rukioi/legal-saas-api/internal/domain/access"
	"github.com/rukioi/legal-saas-api/internal/domain/entity"
	"github.com/rukioi/legal-saas-api/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC   *auth.AuthUseCase
	KeyStore *regkey.KeyStore
	Limiter  RateLimiter         // nil desactiva el rate limiting
	Gatherer prometheus.Gatherer // nil desactiva /metrics
	Logger   *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")
	requireAuth := AuthMiddleware(deps.AuthUC)

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC, deps.Logger)
	authGroup.Post("/register", RateLimit("register", deps.Limiter, deps.Logger), authHandler.Register)
	authGroup.Post("/login", RateLimit("login", deps.Limiter, deps.Logger), authHandler.Login)
	authGroup.Post("/refresh", authHandler.Refresh)
	authGroup.Post("/logout", authHandler.Logout)

	// Auth (protegido)
	authGroup.Post("/logout-all", requireAuth, authHandler.LogoutAll)
	authGroup.Get("/me", requireAuth, authHandler.Me)
	authGroup.Post("/change-password", requireAuth, authHandler.ChangePassword)

	// Admin
	admin := api.Group("/admin")
	admin.Post("/auth/login", RateLimit("admin-login", deps.Limiter, deps.Logger), authHandler.AdminLogin)

	keys := admin.Group("/registration-keys", requireAuth, RequireAdmin())
	keyHandler := NewRegistrationKeyHandler(deps.KeyStore, deps.Logger)
	keys.Post("/", keyHandler.Generate)
	keys.Get("/", keyHandler.List)
	keys.Delete("/:id", keyHandler.Revoke)
	keys.Get("/:id/usage", keyHandler.Usage)

	// Tenant (protegido por tier y por tenant)
	tenants := api.Group("/tenants/:tenantId")
	tenantAccess := ValidateTenantAccess("tenantId")
	tenantHandler := NewTenantHandler()
	tenants.Get("/dashboard", requireAuth, tenantAccess, RequireAccountTypes(entity.AccountTypes...), tenantHandler.Dashboard)
	tenants.Get("/cash-flow", requireAuth, tenantAccess, RequireFeature(access.FeatureCashFlow), tenantHandler.CashFlow)
	tenants.Get("/settings", requireAuth, tenantAccess, RequireFeature(access.FeatureSettings), tenantHandler.Settings)
}
