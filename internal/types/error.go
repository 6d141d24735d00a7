package types

import "fmt"

// ErrorKind discriminates the expected failure categories services
// return. Callers render targeted UI from the kind; none of these are
// retried automatically.
type ErrorKind string

const (
	ErrValidation       ErrorKind = "validation"
	ErrUnauthenticated  ErrorKind = "unauthenticated"
	ErrUserNotFound     ErrorKind = "user_not_found"
	ErrNotFoundOrDenied ErrorKind = "not_found_or_denied"
	ErrOwnership        ErrorKind = "ownership"
	ErrLimitReached     ErrorKind = "limit_reached"
	ErrEmptyDeck        ErrorKind = "empty_deck"
	ErrPrematureAnswer  ErrorKind = "premature_answer"
	ErrOperationFailed  ErrorKind = "operation_failed"
	ErrPersistence      ErrorKind = "persistence"
)

// ServiceError is the discriminated failure result every service
// operation returns instead of raising past its own boundary.
// Fields holds per-field validation messages for ErrValidation.
type ServiceError struct {
	Kind    ErrorKind           `json:"kind"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewServiceError builds a ServiceError with no field detail
func NewServiceError(kind ErrorKind, message string) *ServiceError {
	return &ServiceError{Kind: kind, Message: message}
}

// NewValidationError builds an ErrValidation carrying every violated field
func NewValidationError(fields map[string][]string) *ServiceError {
	return &ServiceError{
		Kind:    ErrValidation,
		Message: "Validation failed",
		Fields:  fields,
	}
}

type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}
