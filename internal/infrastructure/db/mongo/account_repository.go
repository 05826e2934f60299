package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/artilun/credential-service/internal/core/domain"
)

const (
	accountsCollection      = "accounts"
	refreshTokensCollection = "refresh_tokens"

	emailIndex    = "accounts_email_key"
	usernameIndex = "accounts_username_key"
)

// indexFields maps the unique indexes created by EnsureIndexes to the
// registration field they guard.
var indexFields = map[string]string{
	emailIndex:    "email",
	usernameIndex: "username",
}

// AccountRepository implements ports.AccountRepository and
// ports.RefreshTokenRepository on MongoDB.
type AccountRepository struct {
	accounts      *mongo.Collection
	refreshTokens *mongo.Collection
	now           func() time.Time
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{
		accounts:      db.Collection(accountsCollection),
		refreshTokens: db.Collection(refreshTokensCollection),
		now:           time.Now,
	}
}

type mongoAccount struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	Username     string    `bson:"username"`
	PasswordHash string    `bson:"password_hash"`
	Role         string    `bson:"role"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

type mongoRefreshToken struct {
	AccountID string    `bson:"account_id"`
	Token     string    `bson:"token"`
	IssuedAt  time.Time `bson:"issued_at"`
}

// EnsureIndexes creates the named unique indexes duplicate detection relies on.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.accounts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(emailIndex).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName(usernameIndex).SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("create account indexes: %w", err)
	}

	_, err = r.refreshTokens.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "account_id", Value: 1}},
		Options: options.Index().SetName("refresh_tokens_account_id_idx"),
	})
	if err != nil {
		return fmt.Errorf("create refresh token index: %w", err)
	}
	return nil
}

func (r *AccountRepository) InsertAccount(ctx context.Context, account *domain.Account) (string, error) {
	doc := mongoAccount{
		ID:           account.ID,
		Email:        account.Email,
		Username:     account.Username,
		PasswordHash: account.PasswordHash,
		Role:         string(account.Role),
		CreatedAt:    account.CreatedAt.UTC(),
		UpdatedAt:    account.UpdatedAt.UTC(),
	}

	if _, err := r.accounts.InsertOne(ctx, doc); err != nil {
		if ce, ok := asConstraintError(err); ok {
			return "", ce
		}
		return "", fmt.Errorf("insert account: %w", err)
	}
	return account.ID, nil
}

func (r *AccountRepository) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var doc mongoAccount
	if err := r.accounts.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return doc.toDomain()
}

func (d mongoAccount) toDomain() (*domain.Account, error) {
	role := domain.Role(d.Role)
	if !role.Valid() {
		return nil, fmt.Errorf("account %s has unknown role %q", d.ID, d.Role)
	}
	return &domain.Account{
		ID:           d.ID,
		Email:        d.Email,
		Username:     d.Username,
		PasswordHash: d.PasswordHash,
		Role:         role,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}, nil
}

func (r *AccountRepository) ConstraintField(constraint string) (string, bool) {
	field, ok := indexFields[constraint]
	return field, ok
}

func (r *AccountRepository) InsertRefreshToken(ctx context.Context, accountID, token string) error {
	doc := mongoRefreshToken{AccountID: accountID, Token: token, IssuedAt: r.now().UTC()}
	if _, err := r.refreshTokens.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// asConstraintError turns a duplicate-key write error into a
// *domain.ConstraintError naming the violated index. The index is found by
// looking up each known name in the server message; an unknown index yields
// an empty constraint.
func asConstraintError(err error) (*domain.ConstraintError, bool) {
	if !mongo.IsDuplicateKeyError(err) {
		return nil, false
	}

	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, writeErr := range we.WriteErrors {
			if name, ok := indexInMessage(writeErr.Message); ok {
				return &domain.ConstraintError{Constraint: name, Err: err}, true
			}
		}
	}
	return &domain.ConstraintError{Err: err}, true
}

func indexInMessage(msg string) (string, bool) {
	for name := range indexFields {
		if strings.Contains(msg, "index: "+name+" ") {
			return name, true
		}
	}
	return "", false
}
