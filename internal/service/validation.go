package service

import (
	"regexp"
	"strings"
	"unicode/utf8"

	apperrors "github.com/deskline/helpdesk/pkg/util/errorutil"
)

const (
	minNameLength = 3
	maxNameLength = 50
)

var emailPattern = regexp.MustCompile(`^[^@ \t\r\n]+@[^@ \t\r\n]+\.[^@ \t\r\n]+$`)

// fieldErrors collects per-field validation messages.
type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, exists := f[field]; !exists {
		f[field] = msg
	}
}

func (f fieldErrors) err(message string) error {
	if len(f) == 0 {
		return nil
	}
	details := make(map[string]any, len(f))
	for k, v := range f {
		details[k] = v
	}
	return apperrors.NewValidationError(message, details)
}

func checkName(f fieldErrors, name string) {
	n := utf8.RuneCountInString(name)
	switch {
	case n == 0:
		f.add("name", "required")
	case n < minNameLength || n > maxNameLength:
		f.add("name", "must be between 3 and 50 characters")
	}
}

func checkEmail(f fieldErrors, email string) {
	switch {
	case email == "":
		f.add("email", "required")
	case !emailPattern.MatchString(email):
		f.add("email", "invalid format")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
