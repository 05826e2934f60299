package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/artilun/credential-service/internal/api/middleware"
	"github.com/artilun/credential-service/internal/core/domain"
	"github.com/artilun/credential-service/internal/core/problem"
)

// ctxClaims returns the claims injected by the Auth middleware. Their absence
// means the route was mounted without it and is treated as an invalid token.
func ctxClaims(c echo.Context) (*domain.AccessClaims, error) {
	claims, ok := c.Get(middleware.ClaimsKey).(*domain.AccessClaims)
	if !ok || claims == nil {
		return nil, problem.InvalidToken()
	}
	return claims, nil
}
