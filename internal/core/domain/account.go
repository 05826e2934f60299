package domain

import (
	"errors"
	"fmt"
	"time"
)

// Role is the authorization role carried in access token claims.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidToken    = errors.New("invalid token")
)

// Account is the persisted identity record. PasswordHash is never plaintext.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ConstraintError is returned by stores when a named uniqueness constraint
// rejects a write. Constraint is the schema-level name, e.g. accounts_email_key.
type ConstraintError struct {
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint %q violated", e.Constraint)
}

func (e *ConstraintError) Unwrap() error { return e.Err }
