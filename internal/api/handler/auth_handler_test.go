package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/artilun/credential-service/internal/api/middleware"
	"github.com/artilun/credential-service/internal/core/domain"
	"github.com/artilun/credential-service/internal/core/ports"
	"github.com/artilun/credential-service/internal/core/problem"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) error
	loginFn    func(ctx context.Context, in ports.LoginInput) (*domain.TokenPair, error)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) error {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, in ports.LoginInput) (*domain.TokenPair, error) {
	return s.loginFn(ctx, in)
}

func newContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func requireProblem(t *testing.T, err error, status int) *problem.Problem {
	t.Helper()
	var p *problem.Problem
	if !errors.As(err, &p) {
		t.Fatalf("expected problem, got %v", err)
	}
	if p.Status != status {
		t.Fatalf("expected status %d, got %d (%+v)", status, p.Status, p)
	}
	return p
}

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(_ context.Context, in ports.RegisterInput) error {
			if in.Email != "a@example.com" || in.Username != "alice" || in.Password != "Sup3r$ecret" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return nil
		},
	}
	handler := NewAuthHandler(stub, true)

	c, rec := newContext(http.MethodPost, "/auth/register", `{"email":"a@example.com","username":"alice","password":"Sup3r$ecret"}`)
	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", rec.Body.String())
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("register must not set cookies")
	}
}

func TestAuthHandler_Register_Conflict(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(context.Context, ports.RegisterInput) error {
			return problem.Conflict("email")
		},
	}
	handler := NewAuthHandler(stub, true)

	c, _ := newContext(http.MethodPost, "/auth/register", `{"email":"a@example.com"}`)
	p := requireProblem(t, handler.Register(c), http.StatusConflict)
	if p.Title != "Invalid email" {
		t.Fatalf("unexpected title: %s", p.Title)
	}
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(context.Context, ports.RegisterInput) error {
			t.Fatalf("should not be called")
			return nil
		},
	}
	handler := NewAuthHandler(stub, true)

	c, _ := newContext(http.MethodPost, "/auth/register", "not-json")
	requireProblem(t, handler.Register(c), http.StatusBadRequest)
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(_ context.Context, in ports.LoginInput) (*domain.TokenPair, error) {
			if in.Email != "alice@example.com" || in.Password != "secret" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.TokenPair{AccessToken: "access123", RefreshToken: "refresh123"}, nil
		},
	}
	handler := NewAuthHandler(stub, true)

	c, rec := newContext(http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"secret"}`)
	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("tokens must travel in cookies only, got body %q", rec.Body.String())
	}

	cookies := map[string]*http.Cookie{}
	for _, ck := range rec.Result().Cookies() {
		cookies[ck.Name] = ck
	}
	refresh, access := cookies["refresh_token"], cookies[middleware.AccessTokenCookie]
	if refresh == nil || refresh.Value != "refresh123" {
		t.Fatalf("missing refresh cookie: %+v", cookies)
	}
	if access == nil || access.Value != "access123" || access.MaxAge != 900 {
		t.Fatalf("unexpected access cookie: %+v", access)
	}
	for _, ck := range []*http.Cookie{refresh, access} {
		if ck.Path != "/" || !ck.HttpOnly || !ck.Secure || ck.SameSite != http.SameSiteStrictMode {
			t.Fatalf("unexpected cookie attributes: %+v", ck)
		}
	}
}

func TestAuthHandler_Login_InsecureCookies(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, ports.LoginInput) (*domain.TokenPair, error) {
			return &domain.TokenPair{AccessToken: "a", RefreshToken: "r"}, nil
		},
	}
	handler := NewAuthHandler(stub, false)

	c, rec := newContext(http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"secret"}`)
	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	for _, ck := range rec.Result().Cookies() {
		if ck.Secure {
			t.Fatalf("cookie %s must not be secure", ck.Name)
		}
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, ports.LoginInput) (*domain.TokenPair, error) {
			return nil, problem.InvalidCredentials()
		},
	}
	handler := NewAuthHandler(stub, true)

	c, rec := newContext(http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"bad"}`)
	requireProblem(t, handler.Login(c), http.StatusUnauthorized)
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("failed login must not set cookies")
	}
}

func TestAuthHandler_Login_MissingFields(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, ports.LoginInput) (*domain.TokenPair, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewAuthHandler(stub, true)

	c, _ := newContext(http.MethodPost, "/auth/login", `{}`)
	p := requireProblem(t, handler.Login(c), http.StatusBadRequest)

	body, _ := json.Marshal(p)
	want := `{"title":"Invalid form","detail":"One or more fields are invalid.","form":[{"field":"email","issues":["Required"]},{"field":"password","issues":["Required"]}]}`
	if string(body) != want {
		t.Fatalf("unexpected body:\n got %s\nwant %s", body, want)
	}
}

func TestAuthHandler_Login_InvalidPayload(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, ports.LoginInput) (*domain.TokenPair, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewAuthHandler(stub, true)

	c, _ := newContext(http.MethodPost, "/auth/login", "{")
	requireProblem(t, handler.Login(c), http.StatusBadRequest)
}

func TestAuthHandler_Session(t *testing.T) {
	handler := NewAuthHandler(&stubAuthService{}, true)

	c, rec := newContext(http.MethodGet, "/auth/session", "")
	c.Set(middleware.ClaimsKey, &domain.AccessClaims{Subject: "acc-1", Username: "alice", Role: domain.RoleUser})
	if err := handler.Session(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["sub"] != "acc-1" || resp["username"] != "alice" || resp["role"] != "User" {
		t.Fatalf("unexpected claims payload: %+v", resp)
	}

	c, _ = newContext(http.MethodGet, "/auth/session", "")
	requireProblem(t, handler.Session(c), http.StatusUnauthorized)
}
