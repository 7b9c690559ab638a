package services

import "fmt"

const (
	msgGenerationFailed = "Failed to generate lessons. Please try again."
	msgPersistenceError = "Failed to save your course. Please try again."
	msgGenericFailure   = "Something went wrong. Please try again."
)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

// GenerationFailedError covers every failure of the completion call and its
// parsing. The caller only ever sees the fixed message.
type GenerationFailedError struct {
	Cause error
}

func (e *GenerationFailedError) Error() string { return msgGenerationFailed }
func (e *GenerationFailedError) Unwrap() error { return e.Cause }

type ResponseShapeError struct {
	Got string
}

func (e *ResponseShapeError) Error() string {
	return fmt.Sprintf("completion payload is a JSON %s, expected an array", e.Got)
}

type PersistenceError struct {
	Op    string
	Cause error
}

func (e *PersistenceError) Error() string { return msgPersistenceError }
func (e *PersistenceError) Unwrap() error { return e.Cause }

type AuthError struct{ Message string }

func (e *AuthError) Error() string { return e.Message }

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

// UserMessage is the text shown for err, falling back to a generic message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return msgGenericFailure
}
