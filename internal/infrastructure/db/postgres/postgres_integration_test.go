//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/artilun/credential-service/internal/core/domain"
)

func TestPostgres_Integration(t *testing.T) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:18-alpine",
		tcpostgres.WithDatabase("credentials_test"),
		tcpostgres.WithUsername("credentials"),
		tcpostgres.WithPassword("credentials"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := Connect(ctx, Config{DSN: dsn}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))

	accounts := NewAccountRepository(pool)
	tokens := NewRefreshTokenRepository(pool)

	account := testAccount()
	id, err := accounts.InsertAccount(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, account.ID, id)

	dupEmail := testAccount()
	dupEmail.ID = "01HZY3J5W1Q7K8Y6R4T2N0M9C9"
	dupEmail.Username = "alice2"
	_, err = accounts.InsertAccount(ctx, dupEmail)
	var ce *domain.ConstraintError
	require.ErrorAs(t, err, &ce)
	field, ok := accounts.ConstraintField(ce.Constraint)
	require.True(t, ok)
	assert.Equal(t, "email", field)

	dupUsername := testAccount()
	dupUsername.ID = "01HZY3J5W1Q7K8Y6R4T2N0M9D0"
	dupUsername.Email = "other@example.com"
	_, err = accounts.InsertAccount(ctx, dupUsername)
	require.ErrorAs(t, err, &ce)
	field, ok = accounts.ConstraintField(ce.Constraint)
	require.True(t, ok)
	assert.Equal(t, "username", field)

	got, err := accounts.FindAccountByEmail(ctx, account.Email)
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)
	assert.Equal(t, domain.RoleUser, got.Role)
	assert.True(t, account.CreatedAt.Equal(got.CreatedAt))

	_, err = accounts.FindAccountByEmail(ctx, "ghost@example.com")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	require.NoError(t, tokens.InsertRefreshToken(ctx, account.ID, "abcdefghijklmnopqrstuvwxyz012345"))
}
