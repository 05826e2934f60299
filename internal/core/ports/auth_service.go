package ports

import (
	"context"

	"github.com/artilun/credential-service/internal/core/domain"
)

// RegisterInput is the decoded registration body.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// LoginInput is the decoded login body.
type LoginInput struct {
	Email    string
	Password string
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(ctx context.Context, password []byte) (string, error)
	// Verify returns (false, nil) on mismatch and an error only when the
	// stored hash itself is unusable.
	Verify(ctx context.Context, encoded string, password []byte) (bool, error)
}

// TokenVerifier validates presented access tokens.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*domain.AccessClaims, error)
}

// TokenIssuer mints access and refresh tokens.
type TokenIssuer interface {
	TokenVerifier
	IssueAccessToken(account *domain.Account) (string, error)
	IssueRefreshToken() (string, error)
}

// AuthService runs the registration and login flows. Every returned error is
// a *problem.Problem.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) error
	Login(ctx context.Context, in LoginInput) (*domain.TokenPair, error)
}
