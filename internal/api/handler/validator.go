package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/artilun/credential-service/internal/core/problem"
)

// IssueRequired is reported for a missing payload field.
const IssueRequired = "Required"

// echoValidator wraps go-playground/validator so Echo can call c.Validate(req).
type echoValidator struct {
	v *validator.Validate
}

// NewValidator returns an echoValidator ready to be assigned to echo.Echo.Validator.
// Field names in reported issues follow the json tags.
func NewValidator() *echoValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &echoValidator{v: v}
}

// Validate satisfies the echo.Validator interface. Violations come back as a
// Form problem listing issues per field in declaration order.
func (ev *echoValidator) Validate(i any) error {
	err := ev.v.Struct(i)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}

	var form []problem.FieldIssues
	index := make(map[string]int)
	for _, fe := range ve {
		field := fe.Field()
		pos, ok := index[field]
		if !ok {
			pos = len(form)
			index[field] = pos
			form = append(form, problem.FieldIssues{Field: field})
		}
		form[pos].Issues = append(form[pos].Issues, issueFor(fe))
	}
	return problem.Form(form)
}

func issueFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return IssueRequired
	default:
		return "Invalid"
	}
}
