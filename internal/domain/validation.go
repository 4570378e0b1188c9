package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.([a-z]{2,})+$`)

// NormalizeUsername trims and lower-cases a username. Lookups and storage
// always use the normalised form.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidateUsername checks the shape of an already normalised username.
func ValidateUsername(username string) error {
	if len(username) < 3 || len(username) > 50 {
		return fmt.Errorf("%w: username must be between 3 and 50 characters", ErrInvalidInput)
	}
	for _, ch := range username {
		if !(ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9') {
			return fmt.Errorf("%w: username must be english alphanumeric", ErrInvalidInput)
		}
	}
	if username == BroadcastReceiver {
		return fmt.Errorf("%w: username %q is reserved", ErrInvalidInput, BroadcastReceiver)
	}
	return nil
}

// NormalizeEmail lower-cases and validates an optional email. An empty input
// is valid and stays empty.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", nil
	}
	if !emailPattern.MatchString(email) {
		return "", fmt.Errorf("%w: wrong email format", ErrInvalidInput)
	}
	return email, nil
}
