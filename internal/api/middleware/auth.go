package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/artilun/credential-service/internal/core/ports"
	"github.com/artilun/credential-service/internal/core/problem"
)

const (
	// ClaimsKey is the echo context key holding *domain.AccessClaims.
	ClaimsKey = "claims"
	// AccessTokenCookie carries the access token set at login.
	AccessTokenCookie = "access_token"
)

// Auth verifies the access token and injects its claims into the context.
// The token is read from the Authorization bearer header, falling back to
// the access_token cookie.
func Auth(verifier ports.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := accessToken(c)
			if !ok {
				return problem.InvalidToken()
			}

			claims, err := verifier.VerifyAccessToken(token)
			if err != nil {
				return problem.From(err)
			}

			c.Set(ClaimsKey, claims)
			return next(c)
		}
	}
}

func accessToken(c echo.Context) (string, bool) {
	if authHeader := c.Request().Header.Get(echo.HeaderAuthorization); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}

	cookie, err := c.Cookie(AccessTokenCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
