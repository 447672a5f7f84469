package errors

import (
	"errors"
)

// Error taxonomy for the parking client
var (
	// Credential errors
	ErrInvalidCredentials = errors.New("invalid phone number or password")
	ErrInvalidInput       = errors.New("invalid input")

	// Transport and parse errors
	ErrUnexpectedStatus  = errors.New("unexpected status")
	ErrMalformedResponse = errors.New("malformed response")

	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrBusy             = errors.New("operation already in progress")

	// Business-rule errors
	ErrNoBicycles          = errors.New("no bicycles registered")
	ErrPermissionDenied    = errors.New("camera permission denied")
	ErrInvalidTransition   = errors.New("invalid scan state transition")
	ErrUnknownBicycle      = errors.New("unknown bicycle")
	ErrZoneNotExitable     = errors.New("bicycle is not parked in an exitable zone")
	ErrExitInProgress      = errors.New("exit already in progress")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrZoneUpdateRejected  = errors.New("zone update rejected")
	ErrExitRejected        = errors.New("exit rejected")
	ErrStaleAttempt        = errors.New("scan attempt was reset")
)

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
