package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rukioi/legal-saas-api/internal/application/dto"
	"github.com/rukioi/legal-saas-api/internal/application/ports"
	"github.com/rukioi/legal-saas-api/internal/domain"
	"github.com/rukioi/legal-saas-api/internal/domain/access"
	"github.com/rukioi/legal-saas-api/internal/domain/entity"
	"github.com/rukioi/legal-saas-api/internal/domain/repository"
	"github.com/rukioi/legal-saas-api/pkg/jwt"
	"github.com/rukioi/legal-saas-api/pkg/logger"
)

// TokenConfig configuración de emisión de tokens. Access y refresh deben tener secretos distintos.
type TokenConfig struct {
	AccessSecret    string
	RefreshSecret   string
	AccessIssuer    string
	RefreshIssuer   string
	AccessAudience  string
	RefreshAudience string
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	RevokeOnReuse   bool
}

// IssuedTokens es el resultado de emitir un par de tokens. Bookkeeping informa si falló el
// efecto secundario de persistir el hash del refresh token; el par emitido sigue siendo válido
// como respuesta, pero ese refresh token no podrá rotarse.
type IssuedTokens struct {
	Pair        dto.TokenPair
	Bookkeeping error
}

// VerifiedRefresh es un refresh token válido y activo.
type VerifiedRefresh struct {
	Identity access.Identity
	RecordID string
}

// TokenService firma, verifica y registra tokens.
type TokenService struct {
	access        *jwt.Signer
	refresh       *jwt.Signer
	tokens        repository.RefreshTokenRepository
	revokeOnReuse bool
	metrics       ports.AuthMetrics
	log           *logger.Logger
	now           func() time.Time
}

// NewTokenService construye el servicio de tokens.
func NewTokenService(cfg TokenConfig, tokens repository.RefreshTokenRepository, metrics ports.AuthMetrics, log *logger.Logger) (*TokenService, error) {
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, fmt.Errorf("auth: access y refresh deben usar secretos distintos")
	}
	accessSigner, err := jwt.NewSigner(cfg.AccessSecret, cfg.AccessIssuer, cfg.AccessAudience, cfg.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("auth: signer de access: %w", err)
	}
	refreshSigner, err := jwt.NewSigner(cfg.RefreshSecret, cfg.RefreshIssuer, cfg.RefreshAudience, cfg.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("auth: signer de refresh: %w", err)
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &TokenService{
		access:        accessSigner,
		refresh:       refreshSigner,
		tokens:        tokens,
		revokeOnReuse: cfg.RevokeOnReuse,
		metrics:       metrics,
		log:           log,
		now:           time.Now,
	}, nil
}

func subjectType(id access.Identity) string {
	if id.IsAdmin() {
		return entity.SubjectAdmin
	}
	return entity.SubjectUser
}

func payloadOf(id access.Identity) jwt.Payload {
	p := jwt.Payload{UserID: id.UserID, Email: id.Email, Name: id.Name}
	if id.IsAdmin() {
		p.Role = id.Role
		return p
	}
	p.TenantID = id.TenantID
	p.AccountType = string(id.AccountType)
	return p
}

func identityOf(c *jwt.Claims) access.Identity {
	return access.Identity{
		UserID:      c.UserID,
		Email:       c.Email,
		Name:        c.Name,
		TenantID:    c.TenantID,
		AccountType: entity.AccountType(c.AccountType),
		Role:        c.Role,
	}
}

// HashToken devuelve el sha256 hex del token; es lo único que se persiste.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Generate firma el par access/refresh y persiste el hash del refresh token.
// Nunca sobrescribe tokens previos del sujeto.
func (s *TokenService) Generate(ctx context.Context, id access.Identity) (*IssuedTokens, error) {
	p := payloadOf(id)
	accessToken, accessExp, err := s.access.Generate(p)
	if err != nil {
		return nil, err
	}
	refreshToken, refreshExp, err := s.refresh.Generate(p)
	if err != nil {
		return nil, err
	}

	out := &IssuedTokens{Pair: dto.TokenPair{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		AccessTokenExpiresAt:  accessExp,
		RefreshTokenExpiresAt: refreshExp,
	}}

	record := &entity.RefreshToken{
		ID:          uuid.NewString(),
		SubjectID:   id.UserID,
		SubjectType: subjectType(id),
		TokenHash:   HashToken(refreshToken),
		ExpiresAt:   refreshExp,
		IsActive:    true,
		CreatedAt:   s.now(),
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		out.Bookkeeping = fmt.Errorf("persistir refresh token: %w", err)
		s.metrics.Bookkeeping("refresh_token_create")
		s.log.Warn().Err(err).
			Str("subject_id", id.UserID).
			Str("subject_type", record.SubjectType).
			Msg("no se pudo persistir el refresh token; la sesión no podrá rotarse")
	}
	return out, nil
}

// VerifyAccess valida un access token. Cualquier fallo (firma, issuer, audience, expiración)
// se devuelve como domain.ErrInvalidToken.
func (s *TokenService) VerifyAccess(token string) (*access.Identity, error) {
	claims, err := s.access.Parse(token)
	if err != nil {
		s.log.Debug().Err(err).Bool("expired", errors.Is(err, jwt.ErrExpired)).Msg("access token rechazado")
		return nil, domain.ErrInvalidToken
	}
	id := identityOf(claims)
	if id.UserID == "" {
		return nil, domain.ErrInvalidToken
	}
	return &id, nil
}

// VerifyRefresh valida firma/issuer/audience y además exige que el hash del token esté entre
// los refresh tokens activos del sujeto. Si el token existe pero ya fue rotado o revocado
// y RevokeOnReuse está activo, se revocan todas las sesiones del sujeto.
func (s *TokenService) VerifyRefresh(ctx context.Context, token string) (*VerifiedRefresh, error) {
	claims, err := s.refresh.Parse(token)
	if err != nil {
		s.log.Debug().Err(err).Bool("expired", errors.Is(err, jwt.ErrExpired)).Msg("refresh token rechazado")
		return nil, domain.ErrInvalidToken
	}
	id := identityOf(claims)
	if id.UserID == "" {
		return nil, domain.ErrInvalidToken
	}
	st := subjectType(id)
	hash := HashToken(token)

	active, err := s.tokens.ListActiveBySubject(ctx, st, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("listar refresh tokens: %w", err)
	}
	now := s.now()
	for _, rec := range active {
		if subtle.ConstantTimeCompare([]byte(rec.TokenHash), []byte(hash)) == 1 {
			if !now.Before(rec.ExpiresAt) {
				return nil, domain.ErrInvalidToken
			}
			return &VerifiedRefresh{Identity: id, RecordID: rec.ID}, nil
		}
	}

	s.detectReuse(ctx, st, id.UserID, hash)
	return nil, domain.ErrInvalidToken
}

func (s *TokenService) detectReuse(ctx context.Context, st, subjectID, hash string) {
	rec, err := s.tokens.GetByHash(ctx, hash)
	if err != nil || rec == nil || rec.IsActive {
		return
	}
	s.metrics.RefreshReuse(st)
	ev := s.log.Warn().Str("subject_id", subjectID).Str("subject_type", st).Str("token_id", rec.ID)
	if !s.revokeOnReuse {
		ev.Msg("refresh token reutilizado")
		return
	}
	n, err := s.tokens.RevokeAllBySubject(ctx, st, subjectID)
	if err != nil {
		s.metrics.Bookkeeping("refresh_reuse_revoke_all")
		ev.Err(err).Msg("refresh token reutilizado; falló la revocación de sesiones")
		return
	}
	ev.Int64("revoked", n).Msg("refresh token reutilizado; sesiones revocadas")
}

// Revoke desactiva un registro de refresh token. Si otra petición ya lo desactivó
// devuelve domain.ErrInvalidToken: cada refresh token se canjea una sola vez.
func (s *TokenService) Revoke(ctx context.Context, recordID string) error {
	revoked, err := s.tokens.Revoke(ctx, recordID)
	if err != nil {
		return fmt.Errorf("revocar refresh token: %w", err)
	}
	if !revoked {
		s.log.Warn().Str("token_id", recordID).Msg("refresh token ya consumido por otra petición")
		return domain.ErrInvalidToken
	}
	return nil
}

// RevokeAll desactiva todos los refresh tokens del sujeto.
func (s *TokenService) RevokeAll(ctx context.Context, subjectID string, isAdmin bool) (int64, error) {
	st := entity.SubjectUser
	if isAdmin {
		st = entity.SubjectAdmin
	}
	n, err := s.tokens.RevokeAllBySubject(ctx, st, subjectID)
	if err != nil {
		return 0, fmt.Errorf("revocar refresh tokens: %w", err)
	}
	return n, nil
}
