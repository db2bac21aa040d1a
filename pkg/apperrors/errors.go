package apperrors

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrTemplateDeleted = errors.New("template has been deleted")
)

// DuplicateTemplateError is returned when a submitted configuration hashes to an
// active template that already exists in the same workspace. It carries the
// existing row's identity so callers can reuse it instead of creating a second one.
type DuplicateTemplateError struct {
	ExistingID   uuid.UUID
	ExistingName string
	ConfigHash   string
}

func (e *DuplicateTemplateError) Error() string {
	return fmt.Sprintf("configuration already exists as template %q (%s)", e.ExistingName, e.ExistingID)
}

// Is makes DuplicateTemplateError match ErrConflict in errors.Is checks.
func (e *DuplicateTemplateError) Is(target error) bool {
	return target == ErrConflict
}
