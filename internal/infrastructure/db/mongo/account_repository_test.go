package mongo

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/artilun/credential-service/internal/core/domain"
)

func duplicateKey(msg string) error {
	return mongo.WriteException{
		WriteErrors: mongo.WriteErrors{{Code: 11000, Message: msg}},
	}
}

func TestAsConstraintError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantOK         bool
		wantConstraint string
	}{
		{
			name:           "email index",
			err:            duplicateKey(`E11000 duplicate key error collection: credentials.accounts index: accounts_email_key dup key: { email: "a@example.com" }`),
			wantOK:         true,
			wantConstraint: emailIndex,
		},
		{
			name:           "username index",
			err:            duplicateKey(`E11000 duplicate key error collection: credentials.accounts index: accounts_username_key dup key: { username: "alice" }`),
			wantOK:         true,
			wantConstraint: usernameIndex,
		},
		{
			name:   "unknown index",
			err:    duplicateKey(`E11000 duplicate key error collection: credentials.accounts index: _id_ dup key: { _id: "x" }`),
			wantOK: true,
		},
		{
			name: "not a duplicate",
			err:  errors.New("server selection timeout"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce, ok := asConstraintError(tt.err)
			if ok != tt.wantOK {
				t.Fatalf("ok: expected %v, got %v", tt.wantOK, ok)
			}
			if !ok {
				return
			}
			if ce.Constraint != tt.wantConstraint {
				t.Fatalf("constraint: expected %q, got %q", tt.wantConstraint, ce.Constraint)
			}
			var we mongo.WriteException
			if !errors.As(ce, &we) {
				t.Fatalf("expected constraint error to wrap the driver error")
			}
		})
	}
}

func TestConstraintField(t *testing.T) {
	repo := &AccountRepository{}

	if field, ok := repo.ConstraintField(emailIndex); !ok || field != "email" {
		t.Fatalf("email index: got %q, %v", field, ok)
	}
	if field, ok := repo.ConstraintField(usernameIndex); !ok || field != "username" {
		t.Fatalf("username index: got %q, %v", field, ok)
	}
	if _, ok := repo.ConstraintField(""); ok {
		t.Fatalf("empty constraint must not map to a field")
	}
}

func TestIndexInMessage_RequiresExactName(t *testing.T) {
	if _, ok := indexInMessage("index: accounts_email_key_v2 dup key"); ok {
		t.Fatalf("prefix of another index name must not match")
	}
}

func TestMongoAccount_ToDomain(t *testing.T) {
	t.Run("known role", func(t *testing.T) {
		account, err := mongoAccount{ID: "acc-1", Email: "a@example.com", Username: "alice", Role: "Admin"}.toDomain()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if account.Role != domain.RoleAdmin {
			t.Fatalf("expected admin role, got %s", account.Role)
		}
	})

	t.Run("unknown role", func(t *testing.T) {
		if _, err := (mongoAccount{ID: "acc-1", Role: "superuser"}).toDomain(); err == nil {
			t.Fatalf("expected unknown stored role to be rejected")
		}
	})
}
