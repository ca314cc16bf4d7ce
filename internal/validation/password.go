// Package validation provides input validation utilities
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	digitRegex   = regexp.MustCompile(`[0-9]`)
	specialRegex = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?]`)
	emailRegex   = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9\-]+(\.[a-zA-Z0-9\-]+)*\.[a-zA-Z]{2,}$`)
)

// Field limits.
const (
	PasswordMinLength = 12
	PasswordMaxLength = 128
	NameMaxLength     = 100
	BioMaxLength      = 500
	TagNameMaxLength  = 50
	EmailMaxLength    = 254
)

// ValidatePassword checks if a password meets security requirements
func ValidatePassword(password string) error {
	if len(password) < PasswordMinLength {
		return fmt.Errorf("password must be at least %d characters long", PasswordMinLength)
	}
	if len(password) > PasswordMaxLength {
		return fmt.Errorf("password must not exceed %d characters", PasswordMaxLength)
	}

	var hasUpper, hasLower bool
	for _, r := range password {
		hasUpper = hasUpper || unicode.IsUpper(r)
		hasLower = hasLower || unicode.IsLower(r)
	}
	if !hasUpper {
		return errors.New("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return errors.New("password must contain at least one lowercase letter")
	}
	if !digitRegex.MatchString(password) {
		return errors.New("password must contain at least one digit")
	}
	if !specialRegex.MatchString(password) {
		return errors.New("password must contain at least one special character (!@#$%^&*)")
	}
	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if len(email) > EmailMaxLength {
		return fmt.Errorf("email must not exceed %d characters", EmailMaxLength)
	}
	if !emailRegex.MatchString(email) {
		return errors.New("invalid email format")
	}
	return nil
}

// ValidateName checks a display name.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return errors.New("name is required")
	}
	if utf8.RuneCountInString(trimmed) > NameMaxLength {
		return fmt.Errorf("name must not exceed %d characters", NameMaxLength)
	}
	return nil
}

// ValidateBio checks a profile bio. Empty is allowed.
func ValidateBio(bio string) error {
	if utf8.RuneCountInString(bio) > BioMaxLength {
		return fmt.Errorf("bio must not exceed %d characters", BioMaxLength)
	}
	return nil
}

// ValidateTagName checks a tag name before it is slugified.
func ValidateTagName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return errors.New("Tag name is required")
	}
	if utf8.RuneCountInString(trimmed) > TagNameMaxLength {
		return fmt.Errorf("tag name must not exceed %d characters", TagNameMaxLength)
	}
	return nil
}
