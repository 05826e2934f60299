// Package problem defines the uniform error envelope returned to clients.
//
// Every failure that crosses the service boundary is a *Problem. The HTTP
// status travels out of band; only title, detail and the optional form
// issues are serialized.
package problem

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/artilun/credential-service/internal/core/domain"
)

// FieldIssues lists every rule a single input field violated.
type FieldIssues struct {
	Field  string   `json:"field"`
	Issues []string `json:"issues"`
}

// Problem is the client-facing error shape.
type Problem struct {
	Status int           `json:"-"`
	Title  string        `json:"title"`
	Detail string        `json:"detail"`
	Form   []FieldIssues `json:"form,omitempty"`
}

func (p *Problem) Error() string {
	return fmt.Sprintf("%d %s: %s", p.Status, p.Title, p.Detail)
}

// Form reports validation failures for one or more fields.
func Form(issues []FieldIssues) *Problem {
	return &Problem{
		Status: http.StatusBadRequest,
		Title:  "Invalid form",
		Detail: "One or more fields are invalid.",
		Form:   issues,
	}
}

// Conflict reports that field collides with an existing account.
func Conflict(field string) *Problem {
	return &Problem{
		Status: http.StatusConflict,
		Title:  "Invalid " + field,
		Detail: fmt.Sprintf("The %s already exists.", field),
	}
}

// InvalidCredentials is shared by the unknown-email and wrong-password paths.
// Both must produce identical responses.
func InvalidCredentials() *Problem {
	return &Problem{
		Status: http.StatusUnauthorized,
		Title:  "Invalid email or password",
		Detail: "The email or password used is invalid.",
	}
}

func RegistrationFailed() *Problem {
	return &Problem{
		Status: http.StatusInternalServerError,
		Title:  "Failed to register",
		Detail: "Failed to register user.",
	}
}

func Internal() *Problem {
	return &Problem{
		Status: http.StatusInternalServerError,
		Title:  "Internal server error",
		Detail: "An unexpected error occurred.",
	}
}

func TooManyAttempts() *Problem {
	return &Problem{
		Status: http.StatusTooManyRequests,
		Title:  "Too many attempts",
		Detail: "Too many failed login attempts, try again later.",
	}
}

// InvalidToken does not say whether the token was expired, premature or forged.
func InvalidToken() *Problem {
	return &Problem{
		Status: http.StatusUnauthorized,
		Title:  "Invalid token",
		Detail: "The access token is invalid or has expired.",
	}
}

func BadRequest(detail string) *Problem {
	return &Problem{
		Status: http.StatusBadRequest,
		Title:  "Invalid payload",
		Detail: detail,
	}
}

// FromStatus builds a problem for transport-level failures such as unknown
// routes or disallowed methods.
func FromStatus(status int, detail string) *Problem {
	title := http.StatusText(status)
	if title == "" {
		title = "Error"
	}
	return &Problem{Status: status, Title: title, Detail: detail}
}

// From converts any error into a Problem. Anything not explicitly classified
// falls through to Internal.
func From(err error) *Problem {
	var p *Problem
	switch {
	case err == nil:
		return nil
	case errors.As(err, &p):
		return p
	case errors.Is(err, domain.ErrInvalidToken):
		return InvalidToken()
	default:
		return Internal()
	}
}
