package postgres

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/artilun/credential-service/internal/core/domain"
)

const (
	emailConstraint    = "accounts_email_key"
	usernameConstraint = "accounts_username_key"
)

// constraintFields maps unique constraints declared in the migrations to the
// registration field they guard.
var constraintFields = map[string]string{
	emailConstraint:    "email",
	usernameConstraint: "username",
}

func constraintField(constraint string) (string, bool) {
	field, ok := constraintFields[constraint]
	return field, ok
}

// asConstraintError converts a unique violation into a *domain.ConstraintError
// carrying the constraint name reported by the server.
func asConstraintError(err error) (*domain.ConstraintError, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return nil, false
	}
	return &domain.ConstraintError{Constraint: pgErr.ConstraintName, Err: err}, true
}
