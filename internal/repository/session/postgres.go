package session

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"raices-verdes/internal/db"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

// Revoke is idempotent: revoking the same token twice is not an error.
func (r *postgresRepo) Revoke(ctx context.Context, rev Revocation) error {
	const q = `
INSERT INTO revoked_sessions (token_id, identity_id, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (token_id) DO NOTHING
`
	if _, err := r.pool.Exec(ctx, q, rev.TokenID, rev.IdentityID, rev.ExpiresAt); err != nil {
		return db.TranslateError(err)
	}
	return nil
}

func (r *postgresRepo) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var revoked bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM revoked_sessions WHERE token_id = $1)`, tokenID).Scan(&revoked)
	if err != nil {
		return false, err
	}
	return revoked, nil
}

func (r *postgresRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM revoked_sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
