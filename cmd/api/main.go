package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rukioi/legal-saas-api/internal/application/auth"
	"github.com/rukioi/legal-saas-api/internal/application/regkey"
	"github.com/rukioi/legal-saas-api/internal/infrastructure/cache"
	"github.com/rukioi/legal-saas-api/internal/infrastructure/metrics"
	"github.com/rukioi/legal-saas-api/internal/infrastructure/postgres"
	"github.com/rukioi/legal-saas-api/internal/infrastructure/ratelimit"
	httpRouter "github.com/rukioi/legal-saas-api/internal/interfaces/http"
	"github.com/rukioi/legal-saas-api/pkg/config"
	"github.com/rukioi/legal-saas-api/pkg/logger"
	"github.com/rukioi/legal-saas-api/pkg/password"
)

const swaggerFile = "./docs/swagger.json"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})

	warnings, err := cfg.Validate()
	if err != nil {
		log.Fatal().Err(err).Msg("configuración JWT inválida")
	}
	for _, w := range warnings {
		log.Warn().Msg(w)
	}
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	userRepo := postgres.NewUserRepository(pool)
	adminRepo := postgres.NewAdminRepository(pool)
	tenantRepo := cache.NewTenantRepository(postgres.NewTenantRepository(pool), cfg.Security.TenantCacheTTL)
	keyRepo := postgres.NewRegistrationKeyRepository(pool)
	refreshRepo := postgres.NewRefreshTokenRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	authMetrics, err := metrics.NewAuthMetrics(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("registrar métricas")
	}

	hasher := password.NewHasher(cfg.Security.BcryptCost)
	keyStore := regkey.NewKeyStore(keyRepo, hasher, regkey.Options{
		Metrics:      authMetrics,
		Logger:       log.Named("regkey"),
		StoreTimeout: cfg.Security.StoreTimeout,
	})

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:    cfg.JWT.AccessSecret,
		RefreshSecret:   cfg.JWT.RefreshSecret,
		AccessIssuer:    cfg.JWT.AccessIssuer,
		RefreshIssuer:   cfg.JWT.RefreshIssuer,
		AccessAudience:  cfg.JWT.AccessAudience,
		RefreshAudience: cfg.JWT.RefreshAudience,
		AccessTTL:       cfg.JWT.AccessTTL,
		RefreshTTL:      cfg.JWT.RefreshTTL,
		RevokeOnReuse:   cfg.JWT.RevokeOnReuse,
	}, refreshRepo, authMetrics, log.Named("tokens"))
	if err != nil {
		log.Fatal().Err(err).Msg("servicio de tokens")
	}

	authUC := auth.NewAuthUseCase(auth.Deps{
		Users:        userRepo,
		Admins:       adminRepo,
		Tenants:      tenantRepo,
		Tx:           txRunner,
		Keys:         keyStore,
		Tokens:       tokens,
		Hasher:       hasher,
		Metrics:      authMetrics,
		Logger:       log.Named("auth"),
		StoreTimeout: cfg.Security.StoreTimeout,
	})

	// Sin Redis no hay rate limiting: la interfaz debe quedar nil, no un *RedisLimiter nil.
	var limiter httpRouter.RateLimiter
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis no responde; el limitador dejará pasar las peticiones mientras falle")
		}
		limiter = ratelimit.NewRedisLimiter(rdb, "legal-saas:rl:", cfg.Security.LoginRateLimit, cfg.Security.LoginRateWindow)
	} else {
		log.Warn().Msg("REDIS_ADDR no definido: rate limiting de login desactivado")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "Legal SaaS API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := pool.Ping(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": cfg.App.Name})
		}
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:   authUC,
		KeyStore: keyStore,
		Limiter:  limiter,
		Gatherer: reg,
		Logger:   log.Named("http"),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
