// Package validation checks user-entered login input before it is sent.
package validation

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"

	apperrors "github.com/bikepark/parkclient/internal/errors"
)

var phoneRegex = regexp.MustCompile(`^\+?[0-9]{6,15}$`)

func ValidatePhone(phone string) bool {
	phone = strings.TrimSpace(phone)
	return phone != "" && phoneRegex.MatchString(phone)
}

func ValidatePassword(password string) bool {
	return password != "" && len(password) <= 128
}

// ValidateLogin returns an error wrapping ErrInvalidInput describing the
// first problem found.
func ValidateLogin(phone, password string) error {
	if strings.TrimSpace(phone) == "" || password == "" {
		return errors.Wrap(apperrors.ErrInvalidInput, "please enter both phone number and password")
	}
	if !ValidatePhone(phone) {
		return errors.Wrap(apperrors.ErrInvalidInput, "phone number must contain 6 to 15 digits")
	}
	if !ValidatePassword(password) {
		return errors.Wrap(apperrors.ErrInvalidInput, "password is too long")
	}
	return nil
}
