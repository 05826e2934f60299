package security

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/artilun/credential-service/internal/core/domain"
)

const (
	// AccessTokenTTL is fixed; tokens are never renewed in place.
	AccessTokenTTL = 15 * time.Minute

	RefreshTokenLength = 32

	DefaultIssuer   = "auth.artilun.com"
	DefaultAudience = "www.artilun.com"
)

const refreshAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// TokenConfig configures a TokenIssuer.
type TokenConfig struct {
	Key      ed25519.PrivateKey
	Issuer   string
	Audience string
}

type accessClaims struct {
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies EdDSA access tokens and mints opaque
// refresh tokens.
type TokenIssuer struct {
	key      ed25519.PrivateKey
	pub      ed25519.PublicKey
	issuer   string
	audience string
	now      func() time.Time
	parser   *jwt.Parser
	log      zerolog.Logger
}

// NewTokenIssuer validates cfg and returns an issuer. An invalid key is a
// startup error.
func NewTokenIssuer(cfg TokenConfig, log zerolog.Logger) (*TokenIssuer, error) {
	if len(cfg.Key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSigningKey, ed25519.PrivateKeySize, len(cfg.Key))
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.Audience == "" {
		cfg.Audience = DefaultAudience
	}

	pub, ok := cfg.Key.Public().(ed25519.PublicKey)
	if !ok {
		return nil, ErrInvalidSigningKey
	}

	t := &TokenIssuer{
		key:      cfg.Key,
		pub:      pub,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      time.Now,
		log:      log,
	}
	t.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return t.now() }),
	)
	return t, nil
}

// IssueAccessToken signs a token for account valid for AccessTokenTTL.
func (t *TokenIssuer) IssueAccessToken(account *domain.Account) (string, error) {
	now := t.now().UTC().Truncate(time.Second)
	claims := accessClaims{
		Username: account.Username,
		Role:     account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			Issuer:    t.issuer,
			Audience:  jwt.ClaimStrings{t.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken checks signature, issuer, audience and time bounds. Every
// failure is reported as domain.ErrInvalidToken; the cause is only logged.
func (t *TokenIssuer) VerifyAccessToken(token string) (*domain.AccessClaims, error) {
	var claims accessClaims
	parsed, err := t.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.pub, nil
	})
	if err != nil || !parsed.Valid {
		t.log.Debug().Err(err).Str("reason", rejectionReason(err)).Msg("access token rejected")
		return nil, domain.ErrInvalidToken
	}

	out := &domain.AccessClaims{
		Subject:  claims.Subject,
		Issuer:   claims.Issuer,
		Audience: claims.Audience,
		Username: claims.Username,
		Role:     claims.Role,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.NotBefore != nil {
		out.NotBefore = claims.NotBefore.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// IssueRefreshToken returns RefreshTokenLength random alphanumeric characters.
func (t *TokenIssuer) IssueRefreshToken() (string, error) {
	return randomString(RefreshTokenLength)
}

func randomString(n int) (string, error) {
	limit := big.NewInt(int64(len(refreshAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate refresh token: %w", err)
		}
		b[i] = refreshAlphabet[idx.Int64()]
	}
	return string(b), nil
}

func rejectionReason(err error) string {
	switch {
	case err == nil:
		return "invalid"
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return "premature"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "signature"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
		return "claims"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	default:
		return "other"
	}
}
