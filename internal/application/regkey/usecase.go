// Package regkey implementa el almacén de claves de registro: emisión, listado, revocación,
// consulta de uso y validación/consumo atómico.
package regkey

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rukioi/legal-saas-api/internal/application/dto"
	"github.com/rukioi/legal-saas-api/internal/application/ports"
	"github.com/rukioi/legal-saas-api/internal/domain"
	"github.com/rukioi/legal-saas-api/internal/domain/entity"
	"github.com/rukioi/legal-saas-api/internal/domain/repository"
	"github.com/rukioi/legal-saas-api/pkg/logger"
	"github.com/rukioi/legal-saas-api/pkg/password"
)

// Formato de la clave en texto plano: rk_<prefix>_<secret>.
const (
	keyScheme    = "rk_"
	prefixBytes  = 6 // 12 caracteres hex
	secretBytes  = 32
	prefixLength = prefixBytes * 2

	maxGenerateAttempts = 3
)

// Options dependencias opcionales del KeyStore.
type Options struct {
	Metrics      ports.AuthMetrics
	Logger       *logger.Logger
	StoreTimeout time.Duration
	Now          func() time.Time
}

// KeyStore casos de uso de claves de registro.
type KeyStore struct {
	keys    repository.RegistrationKeyRepository
	hasher  *password.Hasher
	metrics ports.AuthMetrics
	log     *logger.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewKeyStore construye el almacén de claves.
func NewKeyStore(keys repository.RegistrationKeyRepository, hasher *password.Hasher, opts Options) *KeyStore {
	s := &KeyStore{
		keys:    keys,
		hasher:  hasher,
		metrics: opts.Metrics,
		log:     opts.Logger,
		timeout: opts.StoreTimeout,
		now:     opts.Now,
	}
	if s.metrics == nil {
		s.metrics = ports.NopMetrics{}
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *KeyStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// GenerateKey emite una clave nueva. El texto plano se devuelve solo aquí; se persiste
// únicamente el prefijo público y el hash bcrypt de la clave completa.
func (s *KeyStore) GenerateKey(ctx context.Context, in dto.GenerateKeyRequest) (*dto.GeneratedKeyResponse, error) {
	tenantID := strings.TrimSpace(in.TenantID)
	if tenantID == "" {
		return nil, domain.Validationf("tenantId es obligatorio")
	}
	accountType := entity.AccountType(strings.ToUpper(strings.TrimSpace(in.AccountType)))
	if !accountType.Valid() {
		return nil, domain.Validationf("accountType inválido: %q", in.AccountType)
	}
	uses := 1
	if in.UsesAllowed != nil {
		uses = *in.UsesAllowed
	}
	if in.SingleUse {
		uses = 1
	}
	if uses < 1 {
		return nil, domain.Validationf("usesAllowed debe ser al menos 1")
	}
	now := s.now()
	if in.ExpiresAt != nil && !in.ExpiresAt.After(now) {
		return nil, domain.Validationf("expiresAt debe ser futuro")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		key   *entity.RegistrationKey
		plain string
	)
	for attempt := 1; ; attempt++ {
		var (
			prefix string
			err    error
		)
		plain, prefix, err = newPlaintextKey()
		if err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash(plain)
		if err != nil {
			return nil, err
		}
		key = &entity.RegistrationKey{
			ID:          uuid.NewString(),
			KeyPrefix:   prefix,
			KeyHash:     hash,
			TenantID:    tenantID,
			AccountType: accountType,
			UsesAllowed: uses,
			UsesLeft:    uses,
			SingleUse:   in.SingleUse,
			ExpiresAt:   in.ExpiresAt,
			Metadata:    in.Metadata,
			UsedLogs:    []entity.KeyUsage{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		err = s.keys.Create(ctx, key)
		if err == nil {
			break
		}
		// el prefijo es aleatorio: una colisión con el índice único se resuelve regenerando
		if !errors.Is(err, domain.ErrConflict) || attempt == maxGenerateAttempts {
			return nil, fmt.Errorf("guardar clave de registro: %w", err)
		}
		s.log.Warn().Str("key_prefix", prefix).Int("attempt", attempt).Msg("prefijo de clave repetido, regenerando")
	}

	s.log.Info().
		Str("key_id", key.ID).
		Str("key_prefix", key.KeyPrefix).
		Str("tenant_id", tenantID).
		Str("account_type", string(accountType)).
		Int("uses_allowed", uses).
		Msg("clave de registro emitida")

	return &dto.GeneratedKeyResponse{ID: key.ID, Key: plain, Registration: toKeyResponse(key)}, nil
}

// ListKeys lista las claves, opcionalmente filtradas por tenant.
func (s *KeyStore) ListKeys(ctx context.Context, tenantID string) ([]dto.RegistrationKeyResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	keys, err := s.keys.List(ctx, strings.TrimSpace(tenantID))
	if err != nil {
		return nil, fmt.Errorf("listar claves: %w", err)
	}
	out := make([]dto.RegistrationKeyResponse, 0, len(keys))
	for _, k := range keys {
		out = append(out, toKeyResponse(k))
	}
	return out, nil
}

// RevokeKey marca la clave como revocada. Revocar dos veces no es error.
func (s *KeyStore) RevokeKey(ctx context.Context, keyID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	key, err := s.keys.GetByID(ctx, keyID)
	if err != nil {
		return fmt.Errorf("obtener clave: %w", err)
	}
	if key == nil {
		return domain.ErrNotFound
	}
	if key.Revoked {
		return nil
	}
	if err := s.keys.Revoke(ctx, keyID); err != nil {
		return fmt.Errorf("revocar clave: %w", err)
	}
	s.log.Info().Str("key_id", keyID).Msg("clave de registro revocada")
	return nil
}

// GetKeyUsage devuelve el resumen de uso de una clave.
func (s *KeyStore) GetKeyUsage(ctx context.Context, keyID string) (*dto.KeyUsageResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	key, err := s.keys.GetByID(ctx, keyID)
	if err != nil {
		return nil, fmt.Errorf("obtener clave: %w", err)
	}
	if key == nil {
		return nil, domain.ErrNotFound
	}
	logs := make([]dto.KeyUsageEntry, 0, len(key.UsedLogs))
	for _, u := range key.UsedLogs {
		logs = append(logs, dto.KeyUsageEntry{UsedAt: u.UsedAt, UsedBy: u.UsedBy, Email: u.Email})
	}
	return &dto.KeyUsageResponse{
		ID:          key.ID,
		TenantID:    key.TenantID,
		UsesAllowed: key.UsesAllowed,
		UsesLeft:    key.UsesLeft,
		UsesCount:   key.UsesAllowed - key.UsesLeft,
		Revoked:     key.Revoked,
		Expired:     key.IsExpired(s.now()),
		Logs:        logs,
	}, nil
}

// Inspect localiza la clave por su prefijo, verifica el hash y comprueba, en orden,
// revocada → expirada → agotada. No consume.
func (s *KeyStore) Inspect(ctx context.Context, plaintext string) (*entity.RegistrationKey, error) {
	prefix, ok := parsePrefix(plaintext)
	if !ok {
		s.hasher.Burn(plaintext)
		return nil, s.reject(domain.KeyNotFound)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	key, err := s.keys.GetByPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("buscar clave: %w", err)
	}
	if key == nil {
		s.hasher.Burn(plaintext)
		return nil, s.reject(domain.KeyNotFound)
	}
	if !s.hasher.Verify(plaintext, key.KeyHash) {
		return nil, s.reject(domain.KeyNotFound)
	}
	if err := s.checkUsable(key); err != nil {
		return nil, err
	}
	return key, nil
}

func (s *KeyStore) checkUsable(key *entity.RegistrationKey) error {
	switch {
	case key.Revoked:
		return s.reject(domain.KeyRevoked)
	case key.IsExpired(s.now()):
		return s.reject(domain.KeyExpired)
	case key.UsesLeft <= 0:
		return s.reject(domain.KeyExhausted)
	}
	return nil
}

// ValidateAndConsumeKey valida la clave para tenantID y, si es válida, decrementa
// atómicamente sus usos y registra usedBy en el log.
func (s *KeyStore) ValidateAndConsumeKey(ctx context.Context, plaintext, tenantID, usedBy string) (*dto.ConsumedKey, error) {
	key, err := s.Inspect(ctx, plaintext)
	if err != nil {
		return nil, err
	}
	if key.TenantID != tenantID {
		return nil, s.reject(domain.KeyTenantMismatch)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.ConsumeWith(ctx, s.keys, key, entity.KeyUsage{UsedAt: s.now(), UsedBy: usedBy}); err != nil {
		return nil, err
	}
	return &dto.ConsumedKey{KeyID: key.ID, TenantID: key.TenantID, AccountType: string(key.AccountType)}, nil
}

// ConsumeWith ejecuta el decremento condicional sobre repo (que puede estar atado a una
// transacción). Si la clave se agotó o revocó entre la inspección y el consumo, devuelve
// el KeyError correspondiente.
func (s *KeyStore) ConsumeWith(ctx context.Context, repo repository.RegistrationKeyRepository, key *entity.RegistrationKey, usage entity.KeyUsage) error {
	ok, err := repo.Consume(ctx, key.ID, usage)
	if err != nil {
		return fmt.Errorf("consumir clave: %w", err)
	}
	if !ok {
		cause := domain.KeyExhausted
		if current, gerr := repo.GetByID(ctx, key.ID); gerr == nil && current != nil && current.Revoked {
			cause = domain.KeyRevoked
		}
		return s.reject(cause)
	}
	s.metrics.KeyConsumption("ok")
	s.log.Info().
		Str("key_id", key.ID).
		Str("tenant_id", key.TenantID).
		Str("used_by", usage.UsedBy).
		Msg("clave de registro consumida")
	return nil
}

func (s *KeyStore) reject(cause domain.KeyFailure) error {
	s.metrics.KeyConsumption(string(cause))
	return domain.NewKeyError(cause)
}

func newPlaintextKey() (plain, prefix string, err error) {
	p := make([]byte, prefixBytes)
	if _, err := rand.Read(p); err != nil {
		return "", "", fmt.Errorf("generar prefijo: %w", err)
	}
	secret := make([]byte, secretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", "", fmt.Errorf("generar secreto: %w", err)
	}
	prefix = hex.EncodeToString(p)
	return keyScheme + prefix + "_" + base64.RawURLEncoding.EncodeToString(secret), prefix, nil
}

// parsePrefix extrae el prefijo público de rk_<prefix>_<secret>.
func parsePrefix(plain string) (string, bool) {
	plain = strings.TrimSpace(plain)
	if !strings.HasPrefix(plain, keyScheme) || len(plain) <= len(keyScheme)+prefixLength+1 {
		return "", false
	}
	prefix := plain[len(keyScheme) : len(keyScheme)+prefixLength]
	if plain[len(keyScheme)+prefixLength] != '_' {
		return "", false
	}
	if _, err := hex.DecodeString(prefix); err != nil {
		return "", false
	}
	return prefix, true
}

func toKeyResponse(k *entity.RegistrationKey) dto.RegistrationKeyResponse {
	return dto.RegistrationKeyResponse{
		ID:          k.ID,
		KeyPrefix:   k.KeyPrefix,
		TenantID:    k.TenantID,
		AccountType: string(k.AccountType),
		UsesAllowed: k.UsesAllowed,
		UsesLeft:    k.UsesLeft,
		SingleUse:   k.SingleUse,
		ExpiresAt:   k.ExpiresAt,
		Revoked:     k.Revoked,
		Metadata:    k.Metadata,
		CreatedAt:   k.CreatedAt,
	}
}
