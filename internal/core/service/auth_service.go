package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/artilun/credential-service/internal/api/metrics"
	"github.com/artilun/credential-service/internal/core/domain"
	"github.com/artilun/credential-service/internal/core/ports"
	"github.com/artilun/credential-service/internal/core/problem"
	"github.com/artilun/credential-service/internal/core/validation"
)

var tracer = otel.Tracer("github.com/artilun/credential-service/internal/core/service")

// AuthService implements registration and login. It holds no per-request
// state; every failure leaves as a *problem.Problem.
type AuthService struct {
	accounts      ports.AccountRepository
	refreshTokens ports.RefreshTokenRepository
	hasher        ports.PasswordHasher
	tokens        ports.TokenIssuer
	throttle      ports.LoginThrottle // optional
	log           zerolog.Logger
	now           func() time.Time

	// decoyHash is verified against on unknown emails. It is produced by the
	// configured hasher so its cost matches stored hashes.
	decoyHash string
}

// NewAuthService wires the orchestrator. throttle may be nil. It fails when
// the hasher cannot produce the decoy hash used for unknown emails.
func NewAuthService(
	accounts ports.AccountRepository,
	refreshTokens ports.RefreshTokenRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenIssuer,
	throttle ports.LoginThrottle,
	log zerolog.Logger,
) (*AuthService, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("decoy secret: %w", err)
	}
	decoy, err := hasher.Hash(context.Background(), secret)
	if err != nil {
		return nil, fmt.Errorf("decoy hash: %w", err)
	}

	return &AuthService{
		accounts:      accounts,
		refreshTokens: refreshTokens,
		hasher:        hasher,
		tokens:        tokens,
		throttle:      throttle,
		log:           log,
		now:           time.Now,
		decoyHash:     decoy,
	}, nil
}

// Register validates the input, hashes the password and stores a new account
// with the user role. No token is issued.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) error {
	ctx, span := tracer.Start(ctx, "AuthService.Register")
	defer span.End()

	if issues := validation.Registration(in.Email, in.Username, in.Password); len(issues) > 0 {
		metrics.RegistrationsTotal.WithLabelValues(metrics.ResultInvalidForm).Inc()
		return fail(span, problem.Form(issues))
	}

	hash, err := s.hash(ctx, in.Password)
	if err != nil {
		s.log.Error().Err(err).Msg("password hashing failed")
		metrics.RegistrationsTotal.WithLabelValues(metrics.ResultError).Inc()
		return fail(span, problem.Internal())
	}

	now := s.now().UTC()
	account := &domain.Account{
		ID:           ulid.Make().String(),
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	id, err := s.accounts.InsertAccount(ctx, account)
	if err != nil {
		var ce *domain.ConstraintError
		if errors.As(err, &ce) {
			if field, ok := s.accounts.ConstraintField(ce.Constraint); ok {
				s.log.Info().Str("field", field).Msg("registration rejected: duplicate value")
				metrics.RegistrationsTotal.WithLabelValues(metrics.ResultConflict).Inc()
				return fail(span, problem.Conflict(field))
			}
			s.log.Warn().Str("constraint", ce.Constraint).Msg("registration hit an unmapped constraint")
		} else {
			s.log.Error().Err(err).Msg("insert account failed")
		}
		metrics.RegistrationsTotal.WithLabelValues(metrics.ResultError).Inc()
		return fail(span, problem.RegistrationFailed())
	}

	s.log.Info().Str("account_id", id).Msg("account registered")
	metrics.RegistrationsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	return nil
}

// Login authenticates by email and password and returns a fresh token pair.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*domain.TokenPair, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	if s.throttle != nil {
		allowed, err := s.throttle.Allow(ctx, in.Email)
		if err != nil {
			s.log.Warn().Err(err).Msg("login throttle check failed, allowing attempt")
		} else if !allowed {
			metrics.LoginsTotal.WithLabelValues(metrics.ResultThrottled).Inc()
			return nil, fail(span, problem.TooManyAttempts())
		}
	}

	account, err := s.accounts.FindAccountByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			s.decoyVerify(ctx, in.Password)
			return nil, s.rejectLogin(ctx, span, in.Email)
		}
		s.log.Error().Err(err).Msg("find account failed")
		return nil, s.loginError(span)
	}

	ok, err := s.verify(ctx, account.PasswordHash, in.Password)
	if err != nil {
		s.log.Error().Err(err).Str("account_id", account.ID).Msg("password verification failed")
		return nil, s.loginError(span)
	}
	if !ok {
		return nil, s.rejectLogin(ctx, span, in.Email)
	}

	access, err := s.tokens.IssueAccessToken(account)
	if err != nil {
		s.log.Error().Err(err).Str("account_id", account.ID).Msg("issue access token failed")
		return nil, s.loginError(span)
	}
	refresh, err := s.tokens.IssueRefreshToken()
	if err != nil {
		s.log.Error().Err(err).Str("account_id", account.ID).Msg("issue refresh token failed")
		return nil, s.loginError(span)
	}
	if err := s.refreshTokens.InsertRefreshToken(ctx, account.ID, refresh); err != nil {
		s.log.Error().Err(err).Str("account_id", account.ID).Msg("store refresh token failed")
		return nil, s.loginError(span)
	}
	metrics.TokensIssuedTotal.WithLabelValues("access").Inc()
	metrics.TokensIssuedTotal.WithLabelValues("refresh").Inc()

	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, in.Email); err != nil {
			s.log.Warn().Err(err).Msg("login throttle reset failed")
		}
	}

	s.log.Info().Str("account_id", account.ID).Msg("login succeeded")
	metrics.LoginsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) rejectLogin(ctx context.Context, span trace.Span, email string) error {
	if s.throttle != nil {
		if err := s.throttle.RecordFailure(ctx, email); err != nil {
			s.log.Warn().Err(err).Msg("login throttle record failed")
		}
	}
	metrics.LoginsTotal.WithLabelValues(metrics.ResultInvalidCredentials).Inc()
	return fail(span, problem.InvalidCredentials())
}

func (s *AuthService) loginError(span trace.Span) error {
	metrics.LoginsTotal.WithLabelValues(metrics.ResultError).Inc()
	return fail(span, problem.Internal())
}

func (s *AuthService) hash(ctx context.Context, password string) (string, error) {
	start := time.Now()
	defer func() {
		metrics.PasswordHashDuration.WithLabelValues("hash").Observe(time.Since(start).Seconds())
	}()
	return s.hasher.Hash(ctx, []byte(password))
}

func (s *AuthService) verify(ctx context.Context, encoded, password string) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.PasswordHashDuration.WithLabelValues("verify").Observe(time.Since(start).Seconds())
	}()
	return s.hasher.Verify(ctx, encoded, []byte(password))
}

// decoyVerify spends the same hashing cost on unknown emails as on real ones
// so response timing does not reveal whether an account exists.
func (s *AuthService) decoyVerify(ctx context.Context, password string) {
	_, _ = s.verify(ctx, s.decoyHash, password)
}

func fail(span trace.Span, p *problem.Problem) error {
	span.SetStatus(codes.Error, p.Title)
	return p
}
