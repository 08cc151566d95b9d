package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentora/checkout/internal/domain/auth"
)

const getTokenByHashSQL = `SELECT t.user_id, u.email
	FROM access_tokens t JOIN users u ON u.id = t.user_id
	WHERE t.token_hash = $1`

var _ auth.Repository = (*TokenRepository)(nil)

// TokenRepository provides access-token lookups backed by PostgreSQL.
type TokenRepository struct {
	pool *pgxpool.Pool
}

// NewTokenRepository returns a TokenRepository that uses the given pool.
func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// FindByHash resolves an HMAC-SHA256 token hash to the owning identity.
func (r *TokenRepository) FindByHash(ctx context.Context, hash string) (*auth.Identity, error) {
	var id auth.Identity
	err := r.pool.QueryRow(ctx, getTokenByHashSQL, hash).Scan(&id.UserID, &id.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("access token not found: %w", err)
		}
		return nil, fmt.Errorf("finding access token: %w", err)
	}
	return &id, nil
}
