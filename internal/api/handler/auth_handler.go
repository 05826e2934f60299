package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/artilun/credential-service/internal/api/middleware"
	"github.com/artilun/credential-service/internal/core/ports"
	"github.com/artilun/credential-service/internal/core/problem"
	"github.com/artilun/credential-service/internal/core/security"
)

const refreshTokenCookie = "refresh_token"

type AuthHandler struct {
	authService   ports.AuthService
	secureCookies bool
}

func NewAuthHandler(authService ports.AuthService, secureCookies bool) *AuthHandler {
	return &AuthHandler{authService: authService, secureCookies: secureCookies}
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Register creates a new user account. No credentials are issued.
//
// @Summary      Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Account details"
// @Success      201
// @Failure      400   {object}  problem.Problem
// @Failure      409   {object}  problem.Problem
// @Failure      500   {object}  problem.Problem
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return problem.BadRequest("The request body is not valid JSON.")
	}

	if err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	}); err != nil {
		return err
	}

	return c.NoContent(http.StatusCreated)
}

// Login authenticates by email and password and sets the session cookies.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   "refresh_token and access_token cookies are set"
// @Failure      400   {object}  problem.Problem
// @Failure      401   {object}  problem.Problem
// @Failure      429   {object}  problem.Problem
// @Failure      500   {object}  problem.Problem
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return problem.BadRequest("The request body is not valid JSON.")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	pair, err := h.authService.Login(c.Request().Context(), ports.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	c.SetCookie(h.cookie(refreshTokenCookie, pair.RefreshToken, 0))
	c.SetCookie(h.cookie(middleware.AccessTokenCookie, pair.AccessToken, int(security.AccessTokenTTL.Seconds())))
	return c.NoContent(http.StatusOK)
}

// Session returns the claims of the presented access token.
//
// @Summary      Current session
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200   {object}  domain.AccessClaims
// @Failure      401   {object}  problem.Problem
// @Router       /auth/session [get]
func (h *AuthHandler) Session(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, claims)
}

func (h *AuthHandler) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	}
}
