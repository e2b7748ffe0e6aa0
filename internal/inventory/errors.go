package inventory

import (
	"errors"
	"fmt"
)

// ErrGrantExists indicates the (inventory, user) pair already has a grant.
var ErrGrantExists = errors.New("inventory: grant already exists")

// VersionConflictError rejects a stale write. Current is the version the
// caller must re-read before retrying.
type VersionConflictError struct {
	Current int64
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("inventory: version conflict, current version is %d", e.Current)
}

// DuplicateCustomIDError reports that the attempted custom id already exists
// within the inventory. The caller can retry with an override.
type DuplicateCustomIDError struct {
	Attempted string
}

func (e *DuplicateCustomIDError) Error() string {
	return fmt.Sprintf("inventory: custom id %q already exists", e.Attempted)
}

// FieldLimitExceededError rejects adding a field past the per-kind cap.
type FieldLimitExceededError struct {
	Kind  FieldKind
	Limit int
}

func (e *FieldLimitExceededError) Error() string {
	return fmt.Sprintf("inventory: at most %d fields of kind %s allowed", e.Limit, e.Kind)
}

// NotFoundError reports a missing entity by type and identifier.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("inventory: %s %q not found", e.Entity, e.ID)
}

// ServiceError wraps infrastructure failures with a dotted operation code.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the dotted operation code for logging and metrics.
func (e *ServiceError) Code() string {
	return e.code
}

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}
