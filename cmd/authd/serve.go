package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/artilun/credential-service/internal/api"
	"github.com/artilun/credential-service/internal/api/handler"
	"github.com/artilun/credential-service/internal/core/ports"
	"github.com/artilun/credential-service/internal/core/security"
	"github.com/artilun/credential-service/internal/core/service"
	"github.com/artilun/credential-service/internal/infrastructure/config"
	"github.com/artilun/credential-service/internal/infrastructure/db/mongo"
	"github.com/artilun/credential-service/internal/infrastructure/db/postgres"
	"github.com/artilun/credential-service/internal/infrastructure/db/redis"
	"github.com/artilun/credential-service/internal/infrastructure/tracing"
	"github.com/artilun/credential-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server exposing /auth, health probes, metrics and
the Swagger UI. Stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), autoMigrate)
		},
	}
	cmd.Flags().BoolVar(&autoMigrate, "migrate", false, "apply postgres migrations before serving")

	return cmd
}

// storage bundles the persistence collaborators chosen by STORAGE_DRIVER.
type storage struct {
	accounts      ports.AccountRepository
	refreshTokens ports.RefreshTokenRepository
	checks        map[string]handler.Check
	close         func(context.Context)
}

func runServe(ctx context.Context, autoMigrate bool) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.IsDevelopment(), Service: serviceName})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, serviceName, version, cfg.Tracing.OTLPEndpoint, log)
	if err != nil {
		return oops.Code("TRACING_SETUP_FAILED").Wrap(err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()

	key, err := security.LoadSigningKey(cfg.JWT.PrivateKey)
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("setting", "JWT_PRIVATE_KEY").Wrap(err)
	}
	issuer, err := security.NewTokenIssuer(security.TokenConfig{
		Key:      key,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	}, log.With().Str("component", "token_issuer").Logger())
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	hasher, err := security.NewArgon2idHasher([]byte(cfg.Hash.Pepper), security.Argon2Params{
		Memory:      cfg.Hash.MemoryKiB,
		Iterations:  cfg.Hash.Iterations,
		Parallelism: uint8(cfg.Hash.Parallelism),
	})
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("setting", "HASH_*").Wrap(err)
	}

	store, err := openStorage(ctx, cfg, autoMigrate, log)
	if err != nil {
		return err
	}
	defer store.close(context.Background())

	var throttle ports.LoginThrottle
	if cfg.Throttle.Enabled {
		rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return oops.Code("REDIS_CONNECT_FAILED").Wrap(err)
		}
		defer rdb.Close()
		throttle = redis.NewLoginThrottle(rdb, cfg.Throttle.MaxFailures, cfg.Throttle.Window)
		store.checks["redis"] = redis.Ping(rdb)
	}

	authService, err := service.NewAuthService(
		store.accounts,
		store.refreshTokens,
		hasher,
		issuer,
		throttle,
		log.With().Str("component", "auth_service").Logger(),
	)
	if err != nil {
		return oops.Code("AUTH_SERVICE_INIT_FAILED").Wrap(err)
	}

	e := api.NewRouter(api.Dependencies{
		AuthService:     authService,
		Verifier:        issuer,
		ReadinessChecks: store.checks,
		SecureCookies:   cfg.CookieSecure,
		Log:             log.With().Str("component", "http").Logger(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("storage", cfg.StorageDriver).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return oops.Code("SERVER_FAILED").Wrap(err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, autoMigrate bool, log zerolog.Logger) (*storage, error) {
	switch cfg.StorageDriver {
	case config.DriverMongo:
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, oops.Code("DB_CONNECT_FAILED").Wrap(err)
		}
		repo := mongo.NewAccountRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, oops.Code("DB_INDEX_FAILED").Wrap(err)
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("mongo connected")
		return &storage{
			accounts:      repo,
			refreshTokens: repo,
			checks:        map[string]handler.Check{"mongodb": mongo.Ping(client)},
			close:         func(ctx context.Context) { _ = client.Disconnect(ctx) },
		}, nil

	default:
		pool, err := postgres.Connect(ctx, postgres.Config{DSN: cfg.Postgres.URL}, log)
		if err != nil {
			return nil, oops.Code("DB_CONNECT_FAILED").Wrap(err)
		}
		if autoMigrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, oops.Code("MIGRATION_FAILED").Wrap(err)
			}
		}
		return &storage{
			accounts:      postgres.NewAccountRepository(pool),
			refreshTokens: postgres.NewRefreshTokenRepository(pool),
			checks:        map[string]handler.Check{"postgres": pool.Ping},
			close:         func(context.Context) { pool.Close() },
		}, nil
	}
}
