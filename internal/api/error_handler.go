package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/artilun/credential-service/internal/core/problem"
)

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Renders *problem.Problem values with their own status.
//   - Turns echo's own errors (unknown route, bad method) into a Problem.
//   - Logs anything else and answers with the generic internal Problem.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		p := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(p.Status)
			return
		}
		_ = c.JSON(p.Status, p)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) *problem.Problem {
	var p *problem.Problem
	if errors.As(err, &p) {
		return p
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return problem.FromStatus(he.Code, fmt.Sprintf("%v", he.Message))
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return problem.From(err)
}
