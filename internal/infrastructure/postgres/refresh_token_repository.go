package postgres

import (
	"context"
	"fmt"

	"github.com/rukioi/legal-saas-api/internal/domain/entity"
	"github.com/rukioi/legal-saas-api/internal/domain/repository"
)

var _ repository.RefreshTokenRepository = (*RefreshTokenRepo)(nil)

// RefreshTokenRepo hashes de refresh tokens sobre PostgreSQL.
type RefreshTokenRepo struct {
	q Querier
}

// NewRefreshTokenRepository construye el adaptador.
func NewRefreshTokenRepository(q Querier) *RefreshTokenRepo {
	return &RefreshTokenRepo{q: q}
}

const refreshColumns = `id, subject_id, subject_type, token_hash, expires_at, is_active, created_at, revoked_at`

func scanRefresh(row interface{ Scan(dest ...any) error }) (*entity.RefreshToken, error) {
	var t entity.RefreshToken
	if err := row.Scan(&t.ID, &t.SubjectID, &t.SubjectType, &t.TokenHash, &t.ExpiresAt, &t.IsActive, &t.CreatedAt, &t.RevokedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *RefreshTokenRepo) Create(ctx context.Context, t *entity.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, subject_id, subject_type, token_hash, expires_at, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query, t.ID, t.SubjectID, t.SubjectType, t.TokenHash, t.ExpiresAt, t.IsActive, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepo) GetByHash(ctx context.Context, hash string) (*entity.RefreshToken, error) {
	t, err := scanRefresh(r.q.QueryRow(ctx, `SELECT `+refreshColumns+` FROM refresh_tokens WHERE token_hash = $1`, hash))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	return t, nil
}

// ListActiveBySubject devuelve los refresh tokens activos y no expirados del sujeto.
func (r *RefreshTokenRepo) ListActiveBySubject(ctx context.Context, subjectType, subjectID string) ([]*entity.RefreshToken, error) {
	rows, err := r.q.Query(ctx, `SELECT `+refreshColumns+` FROM refresh_tokens
		WHERE subject_type = $1 AND subject_id = $2 AND is_active AND expires_at > now()`, subjectType, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list refresh tokens: %w", err)
	}
	defer rows.Close()

	var list []*entity.RefreshToken
	for rows.Next() {
		t, err := scanRefresh(rows)
		if err != nil {
			return nil, fmt.Errorf("scan refresh token: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// Revoke solo cuenta como revocación si la fila pasó de activa a inactiva en esta sentencia.
func (r *RefreshTokenRepo) Revoke(ctx context.Context, id string) (bool, error) {
	cmd, err := r.q.Exec(ctx, `UPDATE refresh_tokens SET is_active = false, revoked_at = now()
		WHERE id = $1 AND is_active`, id)
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *RefreshTokenRepo) RevokeAllBySubject(ctx context.Context, subjectType, subjectID string) (int64, error) {
	cmd, err := r.q.Exec(ctx, `UPDATE refresh_tokens SET is_active = false, revoked_at = now()
		WHERE subject_type = $1 AND subject_id = $2 AND is_active`, subjectType, subjectID)
	if err != nil {
		return 0, fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return cmd.RowsAffected(), nil
}
