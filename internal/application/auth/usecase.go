package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rukioi/legal-saas-api/internal/application/dto"
	"github.com/rukioi/legal-saas-api/internal/application/ports"
	"github.com/rukioi/legal-saas-api/internal/application/regkey"
	"github.com/rukioi/legal-saas-api/internal/domain"
	"github.com/rukioi/legal-saas-api/internal/domain/access"
	"github.com/rukioi/legal-saas-api/internal/domain/entity"
	"github.com/rukioi/legal-saas-api/internal/domain/repository"
	"github.com/rukioi/legal-saas-api/pkg/logger"
	"github.com/rukioi/legal-saas-api/pkg/password"
)

const minPasswordLength = 8

// Deps dependencias del caso de uso de auth.
type Deps struct {
	Users        repository.UserRepository
	Admins       repository.AdminRepository
	Tenants      repository.TenantRepository
	Tx           repository.TxRunner
	Keys         *regkey.KeyStore
	Tokens       *TokenService
	Hasher       *password.Hasher
	Metrics      ports.AuthMetrics
	Logger       *logger.Logger
	StoreTimeout time.Duration
}

// AuthUseCase casos de uso de autenticación: login, registro con clave, rotación y revocación.
type AuthUseCase struct {
	users   repository.UserRepository
	admins  repository.AdminRepository
	tenants repository.TenantRepository
	tx      repository.TxRunner
	keys    *regkey.KeyStore
	tokens  *TokenService
	hasher  *password.Hasher
	metrics ports.AuthMetrics
	log     *logger.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(d Deps) *AuthUseCase {
	uc := &AuthUseCase{
		users:   d.Users,
		admins:  d.Admins,
		tenants: d.Tenants,
		tx:      d.Tx,
		keys:    d.Keys,
		tokens:  d.Tokens,
		hasher:  d.Hasher,
		metrics: d.Metrics,
		log:     d.Logger,
		timeout: d.StoreTimeout,
		now:     time.Now,
	}
	if uc.metrics == nil {
		uc.metrics = ports.NopMetrics{}
	}
	if uc.log == nil {
		uc.log = logger.Nop()
	}
	return uc
}

func (uc *AuthUseCase) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if uc.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, uc.timeout)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// VerifyAccessToken expone la verificación de access tokens para el middleware HTTP.
func (uc *AuthUseCase) VerifyAccessToken(token string) (*access.Identity, error) {
	return uc.tokens.VerifyAccess(token)
}

// LoginUser verifica email/password de un usuario de tenant y emite tokens.
// Email desconocido y password incorrecta devuelven el mismo ErrInvalidCredentials.
func (uc *AuthUseCase) LoginUser(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	ctx, cancel := uc.withTimeout(ctx)
	defer cancel()

	user, err := uc.users.GetByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		return nil, fmt.Errorf("buscar usuario: %w", err)
	}
	if user == nil {
		uc.hasher.Burn(in.Password)
		uc.metrics.Login(entity.SubjectUser, "invalid_credentials")
		return nil, domain.ErrInvalidCredentials
	}
	if !uc.hasher.Verify(in.Password, user.PasswordHash) {
		uc.metrics.Login(entity.SubjectUser, "invalid_credentials")
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		uc.metrics.Login(entity.SubjectUser, "deactivated")
		return nil, domain.ErrAccountDeactivated
	}

	now := uc.now()
	if err := uc.users.UpdateLastLogin(ctx, user.ID); err != nil {
		uc.bookkeeping("user_last_login", err, user.ID)
	} else {
		user.LastLoginAt = &now
	}

	issued, err := uc.tokens.Generate(ctx, userIdentity(user))
	if err != nil {
		return nil, fmt.Errorf("emitir tokens: %w", err)
	}
	uc.metrics.Login(entity.SubjectUser, "success")
	uc.log.Info().Str("user_id", user.ID).Str("tenant_id", user.TenantID).Msg("login de usuario")
	return &dto.LoginResponse{User: toUserResponse(user), Tokens: issued.Pair}, nil
}

// LoginAdmin verifica email/password de un administrador y emite tokens con su rol.
func (uc *AuthUseCase) LoginAdmin(ctx context.Context, in dto.LoginRequest) (*dto.AdminLoginResponse, error) {
	ctx, cancel := uc.withTimeout(ctx)
	defer cancel()

	admin, err := uc.admins.GetByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		return nil, fmt.Errorf("buscar admin: %w", err)
	}
	if admin == nil {
		uc.hasher.Burn(in.Password)
		uc.metrics.Login(entity.SubjectAdmin, "invalid_credentials")
		return nil, domain.ErrInvalidCredentials
	}
	if !uc.hasher.Verify(in.Password, admin.PasswordHash) {
		uc.metrics.Login(entity.SubjectAdmin, "invalid_credentials")
		return nil, domain.ErrInvalidCredentials
	}
	if !admin.IsActive {
		uc.metrics.Login(entity.SubjectAdmin, "deactivated")
		return nil, domain.ErrAccountDeactivated
	}

	now := uc.now()
	if err := uc.admins.UpdateLastLogin(ctx, admin.ID); err != nil {
		uc.bookkeeping("admin_last_login", err, admin.ID)
	} else {
		admin.LastLoginAt = &now
	}

	issued, err := uc.tokens.Generate(ctx, adminIdentity(admin))
	if err != nil {
		return nil, fmt.Errorf("emitir tokens: %w", err)
	}
	uc.metrics.Login(entity.SubjectAdmin, "success")
	uc.log.Info().Str("admin_id", admin.ID).Str("role", admin.Role).Msg("login de admin")
	return &dto.AdminLoginResponse{Admin: toAdminResponse(admin), Tokens: issued.Pair}, nil
}

// RegisterUser crea un usuario a partir de una clave de registro. El tenant y el tipo de
// cuenta salen de la clave. El consumo de la clave y el alta del usuario ocurren en la misma
// transacción: si uno falla, ninguno persiste.
func (uc *AuthUseCase) RegisterUser(ctx context.Context, in dto.RegisterRequest) (*dto.RegisterResponse, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	switch {
	case email == "" || !strings.Contains(email, "@"):
		return nil, domain.Validationf("email inválido")
	case len(in.Password) < minPasswordLength:
		return nil, domain.Validationf("la contraseña debe tener al menos %d caracteres", minPasswordLength)
	case name == "":
		return nil, domain.Validationf("name es obligatorio")
	}

	resp, err := uc.register(ctx, email, name, in)
	if err != nil {
		uc.metrics.Registration(registrationResult(err))
		return nil, err
	}
	uc.metrics.Registration("success")
	return resp, nil
}

func (uc *AuthUseCase) register(ctx context.Context, email, name string, in dto.RegisterRequest) (*dto.RegisterResponse, error) {
	key, err := uc.keys.Inspect(ctx, in.RegistrationKey)
	if err != nil {
		return nil, err
	}
	if key.TenantID == "" {
		return nil, domain.NewKeyError(domain.KeyMissingTenant)
	}

	ctx, cancel := uc.withTimeout(ctx)
	defer cancel()

	existing, err := uc.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("buscar usuario: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrUserExists
	}
	tenant, err := uc.tenants.GetByID(ctx, key.TenantID)
	if err != nil {
		return nil, fmt.Errorf("buscar tenant: %w", err)
	}
	if tenant == nil {
		return nil, domain.ErrTenantNotFound
	}
	if !tenant.IsActive {
		uc.log.Warn().Str("tenant_id", tenant.ID).Str("key_id", key.ID).Msg("registro rechazado: tenant desactivado")
		return nil, fmt.Errorf("tenant %s desactivado: %w", tenant.ID, domain.ErrTenantNotFound)
	}
	count, err := uc.users.CountByTenant(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("contar usuarios del tenant: %w", err)
	}

	hash, err := uc.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return nil, domain.Validationf("la contraseña es demasiado larga")
		}
		return nil, err
	}
	now := uc.now()
	user := &entity.User{
		ID:           uuid.NewString(),
		TenantID:     tenant.ID,
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		AccountType:  key.AccountType,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = uc.tx.Run(ctx, func(repos repository.TxRepos) error {
		usage := entity.KeyUsage{UsedAt: now, UsedBy: user.ID, Email: email}
		if err := uc.keys.ConsumeWith(ctx, repos.Keys, key, usage); err != nil {
			return err
		}
		return repos.Users.Create(ctx, user)
	})
	if err != nil {
		var keyErr *domain.KeyError
		if errors.As(err, &keyErr) || errors.Is(err, domain.ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("registrar usuario: %w", err)
	}

	uc.log.Info().
		Str("user_id", user.ID).
		Str("tenant_id", tenant.ID).
		Str("account_type", string(user.AccountType)).
		Str("key_id", key.ID).
		Bool("new_tenant", count == 0).
		Msg("usuario registrado")

	issued, err := uc.tokens.Generate(ctx, userIdentity(user))
	if err != nil {
		return nil, fmt.Errorf("emitir tokens: %w", err)
	}
	return &dto.RegisterResponse{
		User:        toUserResponse(user),
		Tokens:      issued.Pair,
		IsNewTenant: count == 0,
	}, nil
}

func registrationResult(err error) string {
	if cause := domain.KeyFailureOf(err); cause != "" {
		return "key_" + string(cause)
	}
	switch {
	case errors.Is(err, domain.ErrUserExists):
		return "user_exists"
	case errors.Is(err, domain.ErrTenantNotFound):
		return "tenant_not_found"
	}
	return "error"
}

// RefreshTokens rota el par: valida el refresh token presentado, recarga el sujeto,
// revoca el registro presentado y emite un par nuevo.
func (uc *AuthUseCase) RefreshTokens(ctx context.Context, refreshToken string) (*dto.RefreshResponse, error) {
	ctx, cancel := uc.withTimeout(ctx)
	defer cancel()

	v, err := uc.tokens.VerifyRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	resp := &dto.RefreshResponse{}
	var id access.Identity
	if v.Identity.IsAdmin() {
		admin, err := uc.admins.GetByID(ctx, v.Identity.UserID)
		if err != nil {
			return nil, fmt.Errorf("buscar admin: %w", err)
		}
		if admin == nil {
			return nil, domain.ErrInvalidToken
		}
		if !admin.IsActive {
			return nil, domain.ErrAccountDeactivated
		}
		id = adminIdentity(admin)
		a := toAdminResponse(admin)
		resp.Admin = &a
	} else {
		user, err := uc.users.GetByID(ctx, v.Identity.UserID)
		if err != nil {
			return nil, fmt.Errorf("buscar usuario: %w", err)
		}
		if user == nil {
			return nil, domain.ErrInvalidToken
		}
		if !user.IsActive {
			return nil, domain.ErrAccountDeactivated
		}
		id = userIdentity(user)
		u := toUserResponse(user)
		resp.User = &u
	}

	if err := uc.tokens.Revoke(ctx, v.RecordID); err != nil {
		return nil, err
	}
	issued, err := uc.tokens.Generate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("emitir tokens: %w", err)
	}
	resp.Tokens = issued.Pair
	return resp, nil
}

// Logout revoca el refresh token presentado.
func (uc *AuthUseCase) Logout(ctx context.Context, refreshToken string) error {
	ctx, cancel := uc.withTimeout(ctx)
	defer cancel()

	v, err := uc.tokens.VerifyRefresh(ctx, refreshToken)
	if err != nil {
		return err
	}
	return uc.tokens.Revoke(ctx, v.RecordID)
}

// RevokeAllTokens revoca todas las sesiones del sujeto. Devuelve cuántas se revocaron.
func (uc *AuthUseCase) RevokeAllTokens(ctx context.Context, subjectID string, isAdmin bool) (int64, error) {
	ctx, cancel := uc.withTimeout(ctx)
	defer cancel()

	n, err := uc.tokens.RevokeAll(ctx, subjectID, isAdmin)
	if err != nil {
		return 0, err
	}
	uc.log.Info().Str("subject_id", subjectID).Bool("admin", isAdmin).Int64("revoked", n).Msg("sesiones revocadas")
	return n, nil
}

// ChangePassword verifica la contraseña actual, guarda la nueva y cierra todas las sesiones.
func (uc *AuthUseCase) ChangePassword(ctx context.Context, userID string, in dto.ChangePasswordRequest) error {
	if len(in.NewPassword) < minPasswordLength {
		return domain.Validationf("la contraseña debe tener al menos %d caracteres", minPasswordLength)
	}

	ctx, cancel := uc.withTimeout(ctx)
	defer cancel()

	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("buscar usuario: %w", err)
	}
	if user == nil {
		return domain.ErrNotFound
	}
	if !uc.hasher.Verify(in.CurrentPassword, user.PasswordHash) {
		return domain.ErrInvalidCredentials
	}
	hash, err := uc.hasher.Hash(in.NewPassword)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return domain.Validationf("la contraseña es demasiado larga")
		}
		return err
	}
	user.PasswordHash = hash
	user.MustChangePassword = false
	user.UpdatedAt = uc.now()
	if err := uc.users.Update(ctx, user); err != nil {
		return fmt.Errorf("actualizar usuario: %w", err)
	}
	if _, err := uc.tokens.RevokeAll(ctx, user.ID, false); err != nil {
		return err
	}
	uc.log.Info().Str("user_id", user.ID).Msg("contraseña cambiada")
	return nil
}

// Me devuelve el perfil actual del usuario autenticado y sus flags de dashboard.
func (uc *AuthUseCase) Me(ctx context.Context, id access.Identity) (*dto.MeResponse, error) {
	ctx, cancel := uc.withTimeout(ctx)
	defer cancel()

	user, err := uc.users.GetByID(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("buscar usuario: %w", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	if !user.IsActive {
		return nil, domain.ErrAccountDeactivated
	}
	return &dto.MeResponse{
		User:        toUserResponse(user),
		Permissions: access.DashboardPermissions(user.AccountType),
	}, nil
}

func (uc *AuthUseCase) bookkeeping(op string, err error, subjectID string) {
	uc.metrics.Bookkeeping(op)
	uc.log.Warn().Err(err).Str("operation", op).Str("subject_id", subjectID).Msg("efecto secundario fallido")
}

func userIdentity(u *entity.User) access.Identity {
	return access.Identity{
		UserID:      u.ID,
		Email:       u.Email,
		Name:        u.Name,
		TenantID:    u.TenantID,
		AccountType: u.AccountType,
	}
}

func adminIdentity(a *entity.Admin) access.Identity {
	return access.Identity{
		UserID: a.ID,
		Email:  a.Email,
		Name:   a.Name,
		Role:   a.Role,
	}
}

func toUserResponse(u *entity.User) dto.UserResponse {
	return dto.UserResponse{
		ID:                 u.ID,
		TenantID:           u.TenantID,
		Email:              u.Email,
		Name:               u.Name,
		AccountType:        string(u.AccountType),
		IsActive:           u.IsActive,
		MustChangePassword: u.MustChangePassword,
		LastLoginAt:        u.LastLoginAt,
		CreatedAt:          u.CreatedAt,
	}
}

func toAdminResponse(a *entity.Admin) dto.AdminResponse {
	return dto.AdminResponse{
		ID:          a.ID,
		Email:       a.Email,
		Name:        a.Name,
		Role:        a.Role,
		LastLoginAt: a.LastLoginAt,
	}
}
