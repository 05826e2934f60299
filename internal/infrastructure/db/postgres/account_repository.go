package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/artilun/credential-service/internal/core/domain"
)

// AccountRepository implements ports.AccountRepository on PostgreSQL.
type AccountRepository struct {
	pool poolIface
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool poolIface) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// InsertAccount stores a new account and returns its id. Unique violations
// come back as *domain.ConstraintError.
func (r *AccountRepository) InsertAccount(ctx context.Context, account *domain.Account) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, email, username, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`,
		account.ID,
		account.Email,
		account.Username,
		account.PasswordHash,
		string(account.Role),
		account.CreatedAt,
		account.UpdatedAt,
	).Scan(&id)
	if err != nil {
		if ce, ok := asConstraintError(err); ok {
			return "", ce
		}
		return "", oops.Code("ACCOUNT_INSERT_FAILED").
			With("operation", "insert account").
			Wrap(err)
	}
	return id, nil
}

// FindAccountByEmail retrieves an account by exact email.
func (r *AccountRepository) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var (
		a    domain.Account
		role string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, username, password_hash, role::text, created_at, updated_at
		FROM accounts
		WHERE email = $1
	`, email).Scan(&a.ID, &a.Email, &a.Username, &a.PasswordHash, &role, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").Wrap(domain.ErrAccountNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_EMAIL_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}
	a.Role = domain.Role(role)
	if !a.Role.Valid() {
		return nil, oops.Code("ACCOUNT_ROLE_INVALID").
			With("role", role).
			Errorf("account %s has unknown role", a.ID)
	}
	return &a, nil
}

// ConstraintField reports the registration field guarded by a constraint.
func (r *AccountRepository) ConstraintField(constraint string) (string, bool) {
	return constraintField(constraint)
}
