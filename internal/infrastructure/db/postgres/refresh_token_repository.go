package postgres

import (
	"context"
	"time"

	"github.com/samber/oops"
)

// RefreshTokenRepository implements ports.RefreshTokenRepository on PostgreSQL.
type RefreshTokenRepository struct {
	pool poolIface
	now  func() time.Time
}

// NewRefreshTokenRepository creates a new RefreshTokenRepository.
func NewRefreshTokenRepository(pool poolIface) *RefreshTokenRepository {
	return &RefreshTokenRepository{pool: pool, now: time.Now}
}

// InsertRefreshToken persists a token for the account.
func (r *RefreshTokenRepository) InsertRefreshToken(ctx context.Context, accountID, token string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (account_id, token, issued_at)
		VALUES ($1, $2, $3)
	`, accountID, token, r.now().UTC())
	if err != nil {
		return oops.Code("REFRESH_TOKEN_INSERT_FAILED").
			With("operation", "insert refresh token").
			With("account_id", accountID).
			Wrap(err)
	}
	return nil
}
