package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/artilun/credential-service/internal/api/handler"
	"github.com/artilun/credential-service/internal/core/domain"
	"github.com/artilun/credential-service/internal/core/ports"
	"github.com/artilun/credential-service/internal/core/problem"
)

type stubAuthService struct {
	registerErr error
	loginErr    error
}

func (s *stubAuthService) Register(context.Context, ports.RegisterInput) error {
	return s.registerErr
}

func (s *stubAuthService) Login(context.Context, ports.LoginInput) (*domain.TokenPair, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &domain.TokenPair{AccessToken: "good-token", RefreshToken: "refresh"}, nil
}

type stubVerifier struct{}

func (stubVerifier) VerifyAccessToken(token string) (*domain.AccessClaims, error) {
	if token != "good-token" {
		return nil, domain.ErrInvalidToken
	}
	return &domain.AccessClaims{Subject: "acc-1", Username: "alice", Role: domain.RoleUser}, nil
}

func newTestRouter(svc *stubAuthService) *echo.Echo {
	return NewRouter(Dependencies{
		AuthService:     svc,
		Verifier:        stubVerifier{},
		ReadinessChecks: map[string]handler.Check{"store": func(context.Context) error { return nil }},
		SecureCookies:   true,
		Log:             zerolog.Nop(),
		Registry:        prometheus.NewRegistry(),
	})
}

func do(e *echo.Echo, method, path, body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	if _, ok := body["status"]; ok {
		t.Fatalf("status must travel out of band: %v", body)
	}
	return body
}

func TestRouter_RegisterAndLogin(t *testing.T) {
	e := newTestRouter(&stubAuthService{})

	rec := do(e, http.MethodPost, "/auth/register", `{"email":"a@example.com","username":"alice","password":"Sup3r$ecret"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", rec.Code)
	}

	rec = do(e, http.MethodPost, "/auth/login", `{"email":"a@example.com","password":"Sup3r$ecret"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", rec.Code)
	}
	if got := len(rec.Result().Cookies()); got != 2 {
		t.Fatalf("expected 2 cookies, got %d", got)
	}
}

func TestRouter_ProblemRendering(t *testing.T) {
	tests := []struct {
		name       string
		svc        *stubAuthService
		path       string
		body       string
		wantStatus int
		wantTitle  string
	}{
		{"conflict", &stubAuthService{registerErr: problem.Conflict("username")}, "/auth/register", `{}`, http.StatusConflict, "Invalid username"},
		{"invalid credentials", &stubAuthService{loginErr: problem.InvalidCredentials()}, "/auth/login", `{"email":"a","password":"b"}`, http.StatusUnauthorized, "Invalid email or password"},
		{"unexpected error", &stubAuthService{registerErr: errors.New("pq: relation does not exist")}, "/auth/register", `{}`, http.StatusInternalServerError, "Internal server error"},
		{"malformed json", &stubAuthService{}, "/auth/login", `{`, http.StatusBadRequest, "Invalid payload"},
		{"missing login fields", &stubAuthService{}, "/auth/login", `{"email":""}`, http.StatusBadRequest, "Invalid form"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(newTestRouter(tt.svc), http.MethodPost, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			body := decodeProblem(t, rec)
			if body["title"] != tt.wantTitle {
				t.Fatalf("unexpected title: %v", body)
			}
			if strings.Contains(rec.Body.String(), "relation") {
				t.Fatalf("internal error leaked: %s", rec.Body.String())
			}
		})
	}
}

func TestRouter_Session(t *testing.T) {
	e := newTestRouter(&stubAuthService{})

	rec := do(e, http.MethodGet, "/auth/session", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer good-token")
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"sub":"acc-1"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	rec = do(e, http.MethodGet, "/auth/session", "", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "access_token", Value: "expired"})
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if body := decodeProblem(t, rec); body["title"] != "Invalid token" {
		t.Fatalf("unexpected problem: %v", body)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	rec := do(newTestRouter(&stubAuthService{}), http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if body := decodeProblem(t, rec); body["title"] != "Not Found" {
		t.Fatalf("unexpected problem: %v", body)
	}
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	e := newTestRouter(&stubAuthService{})

	if rec := do(e, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("liveness: expected 200, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/health/ready", ""); rec.Code != http.StatusOK {
		t.Fatalf("readiness: expected 200, got %d", rec.Code)
	}

	_ = do(e, http.MethodGet, "/health", "")
	rec := do(e, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "credential_requests_total") {
		t.Fatalf("http metrics missing from /metrics")
	}
}
