package service

import (
	"errors"
	"fmt"
)

// Domain errors returned by every service. Handlers map them to HTTP
// status codes in one place.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("operation not permitted for this role")
	ErrNotFound        = errors.New("not found")
	ErrDuplicateName   = errors.New("major name already exists")
	ErrDuplicateID     = errors.New("student id already exists")
	ErrUnknownMajor    = errors.New("unknown major")
	ErrInUse           = errors.New("major still has students")
	ErrValidation      = errors.New("validation failed")
	ErrStore           = errors.New("store failure")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrCaptchaInvalid     = errors.New("captcha invalid or expired")
)

var domainErrors = []error{
	ErrUnauthenticated, ErrForbidden, ErrNotFound, ErrDuplicateName, ErrDuplicateID,
	ErrUnknownMajor, ErrInUse, ErrValidation, ErrStore,
	ErrInvalidCredentials, ErrDuplicateUsername, ErrCaptchaInvalid,
}

// ValidationError describes one rejected input field. It matches ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func storeFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

// classify passes domain errors through and wraps anything else as a store failure.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range domainErrors {
		if errors.Is(err, known) {
			return err
		}
	}
	return storeFailure(op, err)
}

func isStoreFailure(err error) bool {
	return errors.Is(err, ErrStore)
}
