package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rukioi/legal-saas-api/internal/application/auth"
	"github.com/rukioi/legal-saas-api/internal/application/regkey"
	"github.com/rukioi/legal-saas-api/internal/domain/entity"
	"github.com/rukioi/legal-saas-api/internal/infrastructure/memory"
	"github.com/rukioi/legal-saas-api/internal/infrastructure/metrics"
	"github.com/rukioi/legal-saas-api/internal/infrastructure/ratelimit"
	apphttp "github.com/rukioi/legal-saas-api/internal/interfaces/http"
	"github.com/rukioi/legal-saas-api/pkg/password"
)

// ──────────────────────────────────────────────────────────────────────────────
// Servidor de test sobre el store en memoria
// ──────────────────────────────────────────────────────────────────────────────

type server struct {
	app   *fiber.App
	store *memory.Store
}

type fakeLimiter struct {
	max  int64
	hits map[string]int64
}

func (l *fakeLimiter) Allow(_ context.Context, key string) (ratelimit.Result, error) {
	l.hits[key]++
	n := l.hits[key]
	return ratelimit.Result{Allowed: n <= l.max, Remaining: max(l.max-n, 0), RetryAfter: 30 * time.Second}, nil
}

func newServer(t *testing.T, limiter apphttp.RateLimiter) *server {
	t.Helper()
	store := memory.NewStore()
	hasher := password.NewHasher(bcrypt.MinCost)
	reg := prometheus.NewRegistry()
	m, err := metrics.NewAuthMetrics(reg)
	require.NoError(t, err)

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:    "access-secret-for-http-tests",
		RefreshSecret:   "refresh-secret-for-http-tests",
		AccessIssuer:    "legal-saas",
		RefreshIssuer:   "legal-saas-refresh",
		AccessAudience:  "legal-saas-api",
		RefreshAudience: "legal-saas-refresh",
		AccessTTL:       15 * time.Minute,
		RefreshTTL:      time.Hour,
	}, store.RefreshTokens(), m, nil)
	require.NoError(t, err)
	keys := regkey.NewKeyStore(store.Keys(), hasher, regkey.Options{Metrics: m})
	uc := auth.NewAuthUseCase(auth.Deps{
		Users: store.Users(), Admins: store.Admins(), Tenants: store.Tenants(), Tx: store.TxRunner(),
		Keys: keys, Tokens: tokens, Hasher: hasher, Metrics: m,
	})

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{AuthUC: uc, KeyStore: keys, Limiter: limiter, Gatherer: reg})

	store.AddTenant(&entity.Tenant{ID: "T1", Name: "Estudio Uno", IsActive: true})
	store.AddTenant(&entity.Tenant{ID: "T2", Name: "Estudio Dos", IsActive: true})
	adminHash, err := hasher.Hash("admin-pass-1")
	require.NoError(t, err)
	require.NoError(t, store.Admins().Create(context.Background(), &entity.Admin{
		ID: "admin-1", Email: "root@plataforma.com", Name: "Root", PasswordHash: adminHash,
		Role: entity.AdminRoleSuper, IsActive: true,
	}))
	return &server{app: app, store: store}
}

func (s *server) doRaw(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func (s *server) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	resp, raw := s.doRaw(t, method, path, token, body)
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return resp, out
}

func (s *server) adminToken(t *testing.T) string {
	t.Helper()
	resp, body := s.do(t, http.MethodPost, "/api/admin/auth/login", "", fiber.Map{"email": "root@plataforma.com", "password": "admin-pass-1"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	return body["tokens"].(map[string]any)["accessToken"].(string)
}

func (s *server) issueKey(t *testing.T, adminToken, tenantID, accountType string, uses int) (id, key string) {
	t.Helper()
	resp, body := s.do(t, http.MethodPost, "/api/admin/registration-keys", adminToken, fiber.Map{
		"tenantId": tenantID, "accountType": accountType, "usesAllowed": uses,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, "%v", body)
	return body["id"].(string), body["key"].(string)
}

func (s *server) register(t *testing.T, key, email string) map[string]any {
	t.Helper()
	resp, body := s.do(t, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"email": email, "password": "password-1", "name": "Usuario", "key": key,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, "%v", body)
	return body
}

func tokensOf(body map[string]any) (accessToken, refreshToken string) {
	tk := body["tokens"].(map[string]any)
	return tk["accessToken"].(string), tk["refreshToken"].(string)
}

// ──────────────────────────────────────────────────────────────────────────────
// Flujos completos
// ──────────────────────────────────────────────────────────────────────────────

func TestFlujo_RegistroConClaveYAccesoPorTier(t *testing.T) {
	s := newServer(t, nil)
	admin := s.adminToken(t)
	_, key := s.issueKey(t, admin, "T1", "COMPOSTA", 5)

	body := s.register(t, key, "ana@firma.com")
	assert.Equal(t, true, body["isNewTenant"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "T1", user["tenantId"])
	assert.Equal(t, "COMPOSTA", user["accountType"])
	assert.NotContains(t, user, "passwordHash")
	access, _ := tokensOf(body)

	resp, me := s.do(t, http.MethodGet, "/api/auth/me", access, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{
		"canViewBilling": true, "canViewFinancialData": true, "canViewCashFlow": true, "canViewSettings": false,
	}, me["permissions"])

	resp, _ = s.do(t, http.MethodGet, "/api/tenants/T1/dashboard", access, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = s.do(t, http.MethodGet, "/api/tenants/T1/cash-flow", access, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, denied := s.do(t, http.MethodGet, "/api/tenants/T1/settings", access, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "PERMISSION_DENIED", denied["code"])
	assert.Equal(t, []any{"GERENCIAL"}, denied["required"])
	assert.Equal(t, "COMPOSTA", denied["current"])

	resp, other := s.do(t, http.MethodGet, "/api/tenants/T2/dashboard", access, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "TENANT_ACCESS_DENIED", other["code"])
}

func TestFlujo_LoginRefreshYReutilizacion(t *testing.T) {
	s := newServer(t, nil)
	admin := s.adminToken(t)
	_, key := s.issueKey(t, admin, "T1", "SIMPLES", 1)
	s.register(t, key, "ana@firma.com")

	resp, login := s.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{"email": "ana@firma.com", "password": "password-1"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	_, refresh := tokensOf(login)

	resp, rotated := s.do(t, http.MethodPost, "/api/auth/refresh", "", fiber.Map{"refreshToken": refresh})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	_, newRefresh := tokensOf(rotated)

	resp, reused := s.do(t, http.MethodPost, "/api/auth/refresh", "", fiber.Map{"refreshToken": refresh})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_TOKEN", reused["code"])

	// la reutilización no invalida el token recién emitido
	resp, again := s.do(t, http.MethodPost, "/api/auth/refresh", "", fiber.Map{"refreshToken": newRefresh})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	_, latest := tokensOf(again)
	assert.NotEmpty(t, latest)
	assert.NotEqual(t, newRefresh, latest)
}

func TestFlujo_CredencialesInvalidasSonGenericas(t *testing.T) {
	s := newServer(t, nil)
	admin := s.adminToken(t)
	_, key := s.issueKey(t, admin, "T1", "SIMPLES", 1)
	s.register(t, key, "ana@firma.com")

	resp1, b1 := s.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{"email": "nadie@firma.com", "password": "password-1"})
	resp2, b2 := s.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{"email": "ana@firma.com", "password": "incorrecta"})
	assert.Equal(t, fiber.StatusUnauthorized, resp1.StatusCode)
	assert.Equal(t, resp1.StatusCode, resp2.StatusCode)
	assert.Equal(t, b1, b2)
}

func TestFlujo_AdministracionDeClaves(t *testing.T) {
	s := newServer(t, nil)
	admin := s.adminToken(t)
	id, key := s.issueKey(t, admin, "T1", "GERENCIAL", 2)
	s.issueKey(t, admin, "T2", "SIMPLES", 1)

	resp, raw := s.doRaw(t, http.MethodGet, "/api/admin/registration-keys?tenant_id=T1", admin, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0]["id"])
	assert.NotContains(t, list[0], "keyHash")

	s.register(t, key, "ana@firma.com")

	resp, usage := s.do(t, http.MethodGet, "/api/admin/registration-keys/"+id+"/usage", admin, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, usage["usesCount"])
	assert.EqualValues(t, 1, usage["usesLeft"])

	resp, _ = s.do(t, http.MethodDelete, "/api/admin/registration-keys/"+id, admin, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, body := s.do(t, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"email": "otro@firma.com", "password": "password-1", "name": "Otro", "key": key,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_KEY", body["code"])

	resp, _ = s.do(t, http.MethodDelete, "/api/admin/registration-keys/no-existe", admin, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestFlujo_ClavesSoloParaAdmins(t *testing.T) {
	s := newServer(t, nil)
	admin := s.adminToken(t)
	_, key := s.issueKey(t, admin, "T1", "GERENCIAL", 1)
	access, _ := tokensOf(s.register(t, key, "ana@firma.com"))

	resp, _ := s.do(t, http.MethodGet, "/api/admin/registration-keys", access, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/api/admin/registration-keys", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestFlujo_RegistroValidaciones(t *testing.T) {
	s := newServer(t, nil)

	resp, body := s.do(t, http.MethodPost, "/api/auth/register", "", fiber.Map{"email": "a@b.com", "password": "password-1"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", body["code"])

	resp, body = s.do(t, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"email": "a@b.com", "password": "password-1", "name": "A", "key": "rk_inexistente",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_KEY", body["code"])
}

func TestFlujo_LogoutAllYChangePassword(t *testing.T) {
	s := newServer(t, nil)
	admin := s.adminToken(t)
	_, key := s.issueKey(t, admin, "T1", "SIMPLES", 1)
	access, refresh := tokensOf(s.register(t, key, "ana@firma.com"))

	resp, out := s.do(t, http.MethodPost, "/api/auth/logout-all", access, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, out["revoked"])

	resp, _ = s.do(t, http.MethodPost, "/api/auth/refresh", "", fiber.Map{"refreshToken": refresh})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/auth/change-password", access, fiber.Map{"currentPassword": "password-1", "newPassword": "nueva-clave-1"})
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{"email": "ana@firma.com", "password": "nueva-clave-1"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRateLimit_LoginDevuelve429(t *testing.T) {
	s := newServer(t, &fakeLimiter{max: 2, hits: map[string]int64{}})

	for i := 0; i < 2; i++ {
		resp, _ := s.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{"email": "x@firma.com", "password": "p"})
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	}
	resp, body := s.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{"email": "x@firma.com", "password": "p"})
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "RATE_LIMITED", body["code"])
	assert.Equal(t, "30", resp.Header.Get("Retry-After"))

	// otro email tiene su propio contador
	resp, _ = s.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{"email": "y@firma.com", "password": "p"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestMetrics_Expone(t *testing.T) {
	s := newServer(t, nil)
	s.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{"email": "x@firma.com", "password": "p"})

	resp, raw := s.doRaw(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `auth_logins_total{result="invalid_credentials",subject="user"} 1`)
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (ratelimit.Result, error) {
	return ratelimit.Result{}, errors.New("redis caído")
}

func TestRateLimit_LimiterCaidoDejaPasar(t *testing.T) {
	s := newServer(t, brokenLimiter{})
	for i := 0; i < 5; i++ {
		resp, _ := s.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{"email": "x@firma.com", "password": "p"})
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	}
}
