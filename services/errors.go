package services

import (
	"errors"
	"fmt"

	"lesson-league-system/repository"

	"github.com/google/uuid"
)

// Error kinds. Match with errors.Is.
var (
	ErrAuthentication     = errors.New("authentication_error")
	ErrNotFound           = errors.New("not_found")
	ErrValidation         = errors.New("validation_error")
	ErrUpstreamGeneration = errors.New("upstream_generation_error")
)

// AppError carries a kind, the failing operation and a client-safe message.
type AppError struct {
	Kind    error
	Op      string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) Is(target error) bool {
	return e.Kind == target
}

func authError(op, msg string) error {
	return &AppError{Kind: ErrAuthentication, Op: op, Message: msg}
}

func notFound(op, msg string) error {
	return &AppError{Kind: ErrNotFound, Op: op, Message: msg}
}

func invalid(op, msg string) error {
	return &AppError{Kind: ErrValidation, Op: op, Message: msg}
}

func upstream(op, msg string, err error) error {
	return &AppError{Kind: ErrUpstreamGeneration, Op: op, Message: msg, Err: err}
}

// storeErr converts repository.ErrNotFound into a NotFound AppError and
// wraps anything else with op.
func storeErr(op, what string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(op, what+" not found")
	}
	return fmt.Errorf("%s: %w", op, err)
}

// checkID rejects ids that are not UUIDs before they reach the store.
func checkID(op, what, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return invalid(op, "Invalid "+what+" ID")
	}
	return nil
}
