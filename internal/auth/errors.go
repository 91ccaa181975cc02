package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrDuplicateEmail     = errors.New("Email already registered")
	ErrNotAuthenticated   = errors.New("Not authenticated")

	// ErrValidation matches every registration input error via errors.Is.
	ErrValidation = errors.New("validation error")

	ErrFieldsRequired   = &ValidationError{Message: "All fields are required"}
	ErrPasswordTooShort = &ValidationError{Message: "Password must be at least 6 characters"}
	ErrInvalidEmail     = &ValidationError{Message: "Invalid email format"}
)

// ValidationError rejects registration input. The message is shown to users as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
