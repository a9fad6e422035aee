package services

import (
	"errors"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	ErrUnauthenticated    = errors.New("no token, authorization denied")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrAccountNotFound    = errors.New("user not found")
	ErrAccountDeactivated = errors.New("account is deactivated")
	ErrForbidden          = errors.New("access denied")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("user already exists")

	ErrNotFound           = errors.New("not found")
	ErrSchedulingConflict = errors.New("you already have an interview scheduled at this time")
	ErrInvalidState       = errors.New("operation not allowed in the current status")
	ErrValidation         = errors.New("validation failed")

	ErrStorageDisabled = errors.New("recording storage is not configured")
	ErrNoRecording     = errors.New("no recording uploaded")
)

// StateError rejects an operation the interview's current status forbids.
// errors.Is(err, ErrInvalidState) holds for any StateError.
type StateError struct {
	Message string
}

func (e *StateError) Error() string { return e.Message }

func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}

var (
	ErrUpdateCompleted = &StateError{Message: "Cannot update completed interview"}
	ErrCancelCompleted = &StateError{Message: "Cannot cancel completed interview"}
)

// FieldError is a single field-level validation message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every field that failed validation.
// errors.Is(err, ErrValidation) holds for any ValidationError.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// fieldError builds a ValidationError for a single field.
func fieldError(field, message string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// validationFailure converts ozzo-validation output into a ValidationError.
// Internal rule errors are returned unchanged.
func validationFailure(err error) error {
	if err == nil {
		return nil
	}
	var internal validation.InternalError
	if errors.As(err, &internal) {
		return err
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return fieldError("", err.Error())
	}

	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	out := &ValidationError{}
	for _, field := range fields {
		fieldErr := errs[field]
		if fieldErr == nil {
			continue
		}
		out.Fields = append(out.Fields, FieldError{Field: field, Message: fieldErr.Error()})
	}
	if len(out.Fields) == 0 {
		return nil
	}
	return out
}

func stringValues[T ~string](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
