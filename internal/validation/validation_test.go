package validation_test

import (
	"testing"

	apperrors "github.com/bikepark/parkclient/internal/errors"
	"github.com/bikepark/parkclient/internal/validation"
	"github.com/stretchr/testify/require"
)

func TestValidatePhone(t *testing.T) {
	valid := []string{"9999999999", "+447700900123", " 123456 "}
	for _, p := range valid {
		require.True(t, validation.ValidatePhone(p), p)
	}

	invalid := []string{"", "12345", "99-99-99", "abcdefgh", "1234567890123456"}
	for _, p := range invalid {
		require.False(t, validation.ValidatePhone(p), p)
	}
}

func TestValidateLogin(t *testing.T) {
	require.NoError(t, validation.ValidateLogin("9999999999", "secret"))

	err := validation.ValidateLogin("", "secret")
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	require.Contains(t, err.Error(), "both phone number and password")

	err = validation.ValidateLogin("9999999999", "")
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)

	err = validation.ValidateLogin("12", "secret")
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	require.Contains(t, err.Error(), "6 to 15 digits")
}
