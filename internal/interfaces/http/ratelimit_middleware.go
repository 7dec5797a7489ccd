package http

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rukioi/legal-saas-api/internal/application/dto"
	"github.com/rukioi/legal-saas-api/internal/infrastructure/ratelimit"
	"github.com/rukioi/legal-saas-api/pkg/logger"
)

// RateLimiter lo implementa *ratelimit.RedisLimiter.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Result, error)
}

// RateLimit limita por scope + IP + email del body. Sin limiter no hace nada; si el
// limiter falla se deja pasar la petición y se registra el error.
func RateLimit(scope string, limiter RateLimiter, log *logger.Logger) fiber.Handler {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *fiber.Ctx) error {
		if limiter == nil {
			return c.Next()
		}
		var probe struct {
			Email string `json:"email"`
		}
		_ = c.BodyParser(&probe)
		key := scope + ":" + c.IP() + ":" + strings.ToLower(strings.TrimSpace(probe.Email))

		res, err := limiter.Allow(c.UserContext(), key)
		if err != nil {
			log.Warn().Err(err).Str("scope", scope).Msg("rate limiter no disponible")
			return c.Next()
		}
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
		if !res.Allowed {
			secs := int64(res.RetryAfter.Seconds())
			if secs < 1 {
				secs = 1
			}
			c.Set(fiber.HeaderRetryAfter, strconv.FormatInt(secs, 10))
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{Code: "RATE_LIMITED", Message: "demasiados intentos, intente más tarde"})
		}
		return c.Next()
	}
}
