package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ValidationError indicates a malformed request, e.g. a missing field.
// Message always names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s is required", e.Field)
}

// NewValidation creates a ValidationError for a missing or invalid field.
func NewValidation(field string) *ValidationError {
	return &ValidationError{Field: field}
}

// NotFoundError indicates the requested resource does not exist, or exists
// but belongs to a facility the caller cannot see. The two cases are
// deliberately indistinguishable so ownership is never leaked.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// NewNotFound creates a NotFoundError for the given resource.
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// AuthorizationError indicates the caller's role does not permit the
// operation at all (as opposed to not owning a specific resource, which
// surfaces as NotFoundError).
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "forbidden"
}

// NewAuthorization creates an AuthorizationError.
func NewAuthorization(message string) *AuthorizationError {
	return &AuthorizationError{Message: message}
}

// ConflictError indicates a state conflict: a sync already running for the
// facility, or a duplicate entity mapping.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// NewConflict creates a ConflictError.
func NewConflict(message string) *ConflictError {
	return &ConflictError{Message: message}
}

// ProviderError indicates the external FMS provider failed (timeout, auth,
// malformed payload). A ProviderError aborts the sync run before any change
// is persisted.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProvider wraps an adapter failure.
func NewProvider(provider, op string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, Err: err}
}

// ApplyError indicates a single change failed to apply. It is recorded in
// the apply result and never aborts the rest of the batch.
type ApplyError struct {
	ChangeID string
	Message  string
}

func (e *ApplyError) Error() string {
	if e.ChangeID == "" {
		return e.Message
	}
	return fmt.Sprintf("change %s: %s", e.ChangeID, e.Message)
}

// NewApply creates an ApplyError for a single change.
func NewApply(changeID, message string) *ApplyError {
	return &ApplyError{ChangeID: changeID, Message: message}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// StatusCode maps an error to the HTTP status the handler should return.
func StatusCode(err error) int {
	var (
		validation *ValidationError
		notFound   *NotFoundError
		authz      *AuthorizationError
		conflict   *ConflictError
		provider   *ProviderError
	)

	switch {
	case errors.As(err, &validation):
		return fiber.StatusBadRequest
	case errors.As(err, &notFound):
		return fiber.StatusNotFound
	case errors.As(err, &authz):
		return fiber.StatusForbidden
	case errors.As(err, &conflict):
		return fiber.StatusConflict
	case errors.As(err, &provider):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
