package postgres

import (
	"context"
	"fmt"

	"github.com/rukioi/legal-saas-api/internal/domain"
	"github.com/rukioi/legal-saas-api/internal/domain/entity"
	"github.com/rukioi/legal-saas-api/internal/domain/repository"
)

var _ repository.RegistrationKeyRepository = (*RegistrationKeyRepo)(nil)

// RegistrationKeyRepo claves de registro sobre PostgreSQL (usable con pool o tx).
// metadata y used_logs son columnas jsonb.
type RegistrationKeyRepo struct {
	q Querier
}

// NewRegistrationKeyRepository construye el adaptador. Pasar pool o tx (Querier).
func NewRegistrationKeyRepository(q Querier) *RegistrationKeyRepo {
	return &RegistrationKeyRepo{q: q}
}

const keyColumns = `id, key_prefix, key_hash, tenant_id, account_type, uses_allowed, uses_left,
	single_use, expires_at, revoked, metadata, used_logs, created_at, updated_at`

func scanKey(row interface{ Scan(dest ...any) error }) (*entity.RegistrationKey, error) {
	var k entity.RegistrationKey
	var accountType string
	var tenantID *string
	err := row.Scan(
		&k.ID, &k.KeyPrefix, &k.KeyHash, &tenantID, &accountType, &k.UsesAllowed, &k.UsesLeft,
		&k.SingleUse, &k.ExpiresAt, &k.Revoked, &k.Metadata, &k.UsedLogs, &k.CreatedAt, &k.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if tenantID != nil {
		k.TenantID = *tenantID
	}
	k.AccountType = entity.AccountType(accountType)
	if k.UsedLogs == nil {
		k.UsedLogs = []entity.KeyUsage{}
	}
	return &k, nil
}

// Create persiste una clave nueva. Solo se guarda el prefijo y el hash, nunca el texto plano.
func (r *RegistrationKeyRepo) Create(ctx context.Context, k *entity.RegistrationKey) error {
	logs := k.UsedLogs
	if logs == nil {
		logs = []entity.KeyUsage{}
	}
	query := `
		INSERT INTO registration_keys (id, key_prefix, key_hash, tenant_id, account_type, uses_allowed,
			uses_left, single_use, expires_at, revoked, metadata, used_logs, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		k.ID, k.KeyPrefix, k.KeyHash, k.TenantID, string(k.AccountType), k.UsesAllowed,
		k.UsesLeft, k.SingleUse, k.ExpiresAt, k.Revoked, k.Metadata, logs, k.CreatedAt, k.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("prefijo de clave duplicado: %w", domain.ErrConflict)
		}
		return fmt.Errorf("insert registration key: %w", err)
	}
	return nil
}

func (r *RegistrationKeyRepo) GetByID(ctx context.Context, id string) (*entity.RegistrationKey, error) {
	k, err := scanKey(r.q.QueryRow(ctx, `SELECT `+keyColumns+` FROM registration_keys WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get registration key: %w", err)
	}
	return k, nil
}

// GetByPrefix busca por el prefijo público (índice único).
func (r *RegistrationKeyRepo) GetByPrefix(ctx context.Context, prefix string) (*entity.RegistrationKey, error) {
	k, err := scanKey(r.q.QueryRow(ctx, `SELECT `+keyColumns+` FROM registration_keys WHERE key_prefix = $1`, prefix))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get registration key by prefix: %w", err)
	}
	return k, nil
}

// List devuelve las claves (todas o las de un tenant), más recientes primero.
func (r *RegistrationKeyRepo) List(ctx context.Context, tenantID string) ([]*entity.RegistrationKey, error) {
	query := `SELECT ` + keyColumns + ` FROM registration_keys
		WHERE ($1::text = '' OR tenant_id = $1::text) ORDER BY created_at DESC`
	rows, err := r.q.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list registration keys: %w", err)
	}
	defer rows.Close()

	var list []*entity.RegistrationKey
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration key: %w", err)
		}
		list = append(list, k)
	}
	return list, rows.Err()
}

func (r *RegistrationKeyRepo) Revoke(ctx context.Context, id string) error {
	cmd, err := r.q.Exec(ctx, `UPDATE registration_keys SET revoked = true, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("revoke registration key: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Consume decrementa uses_left y agrega la entrada al log en una sola sentencia condicional.
// Devuelve false si la clave no existe, está revocada o no le quedan usos.
func (r *RegistrationKeyRepo) Consume(ctx context.Context, id string, usage entity.KeyUsage) (bool, error) {
	query := `
		UPDATE registration_keys
		   SET uses_left  = uses_left - 1,
		       used_logs  = used_logs || $2::jsonb,
		       updated_at = now()
		 WHERE id = $1
		   AND uses_left > 0
		   AND NOT revoked
		RETURNING uses_left`
	var left int
	err := r.q.QueryRow(ctx, query, id, []entity.KeyUsage{usage}).Scan(&left)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("consume registration key: %w", err)
	}
	return true, nil
}
