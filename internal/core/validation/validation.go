// Package validation checks raw credential fields against syntactic and
// policy rules. Every rule for a field is evaluated, so callers can report
// all problems in one response.
package validation

import (
	"regexp"
	"unicode/utf8"

	"github.com/artilun/credential-service/internal/core/problem"
)

// Issue names returned in problem form entries.
const (
	TooShort            = "TooShort"
	TooLong             = "TooLong"
	InvalidFormat       = "InvalidFormat"
	NotAlphanumeric     = "NotAlphanumeric"
	NoUppercase         = "NoUppercase"
	NoLowercase         = "NoLowercase"
	NoNumbers           = "NoNumbers"
	NoSpecialCharacters = "NoSpecialCharacters"
)

const (
	EmailMinLen    = 6
	EmailMaxLen    = 64
	UsernameMinLen = 3
	UsernameMaxLen = 32
	PasswordMinLen = 8
	PasswordMaxLen = 100
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}$`)

// Email returns the violated rules for an email address. Length and pattern
// are checked independently.
func Email(email string) []string {
	var issues []string
	issues = appendLength(issues, email, EmailMinLen, EmailMaxLen)
	if !emailPattern.MatchString(email) {
		issues = append(issues, InvalidFormat)
	}
	return issues
}

// Username returns the violated rules for a username.
func Username(username string) []string {
	var issues []string
	issues = appendLength(issues, username, UsernameMinLen, UsernameMaxLen)
	for i := 0; i < len(username); i++ {
		if !isAlnum(username[i]) {
			issues = append(issues, NotAlphanumeric)
			break
		}
	}
	return issues
}

// Password returns the violated rules for a password. Each missing
// character class is reported separately.
func Password(password string) []string {
	var issues []string
	issues = appendLength(issues, password, PasswordMinLen, PasswordMaxLen)

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			special = true
		}
	}
	if !upper {
		issues = append(issues, NoUppercase)
	}
	if !lower {
		issues = append(issues, NoLowercase)
	}
	if !digit {
		issues = append(issues, NoNumbers)
	}
	if !special {
		issues = append(issues, NoSpecialCharacters)
	}
	return issues
}

// Registration validates all three registration fields and returns the
// form entries for those that failed, in email, username, password order.
// An empty result means the input is valid.
func Registration(email, username, password string) []problem.FieldIssues {
	var form []problem.FieldIssues
	add := func(field string, issues []string) {
		if len(issues) > 0 {
			form = append(form, problem.FieldIssues{Field: field, Issues: issues})
		}
	}
	add("email", Email(email))
	add("username", Username(username))
	add("password", Password(password))
	return form
}

func appendLength(issues []string, s string, lo, hi int) []string {
	n := utf8.RuneCountInString(s)
	switch {
	case n < lo:
		return append(issues, TooShort)
	case n > hi:
		return append(issues, TooLong)
	}
	return issues
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
