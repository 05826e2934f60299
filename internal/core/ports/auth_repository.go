package ports

import (
	"context"

	"github.com/artilun/credential-service/internal/core/domain"
)

// AccountRepository persists accounts.
type AccountRepository interface {
	// InsertAccount stores a new account and returns its id. A uniqueness
	// violation is reported as *domain.ConstraintError.
	InsertAccount(ctx context.Context, account *domain.Account) (string, error)
	// FindAccountByEmail returns domain.ErrAccountNotFound when no row matches.
	FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	// ConstraintField maps a schema constraint name to the input field it guards.
	ConstraintField(constraint string) (field string, ok bool)
}

// RefreshTokenRepository persists issued refresh tokens keyed by account.
type RefreshTokenRepository interface {
	InsertRefreshToken(ctx context.Context, accountID, token string) error
}

// LoginThrottle tracks failed logins per email. Implementations count
// unknown emails the same as known ones.
type LoginThrottle interface {
	Allow(ctx context.Context, email string) (bool, error)
	RecordFailure(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}
