package types

import (
	"errors"
	"fmt"
)

// Error categories. Callers classify failures with errors.Is against these.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("entity not found")
	ErrNoActiveWorkspace = errors.New("no active workspace")
	ErrMalformedBackup   = errors.New("malformed backup")
	ErrPartialImport     = errors.New("partial import failure")
	ErrStorage           = errors.New("storage failure")
)

// Specific errors. Each wraps one of the categories above.
var (
	ErrInvalidID             = fmt.Errorf("%w: invalid entity ID", ErrValidation)
	ErrInvalidName           = fmt.Errorf("%w: name must not be empty", ErrValidation)
	ErrActiveWorkspaceDelete = fmt.Errorf("%w: cannot delete the active workspace, switch to another one first", ErrValidation)
	ErrDestinationRequired   = fmt.Errorf("%w: import destination must be chosen", ErrValidation)
	ErrInvalidImportMode     = fmt.Errorf("%w: import mode must be merge or replace", ErrValidation)
	ErrAssignmentNotFound    = fmt.Errorf("%w: assignment not found", ErrNotFound)
	ErrStoreClosed           = fmt.Errorf("%w: store is closed", ErrStorage)
	ErrAlreadyOpen           = fmt.Errorf("%w: store is already open", ErrStorage)
)

// IsUserError reports whether err is recoverable at the call site that
// triggered it (shown to the user, no retry).
func IsUserError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrNoActiveWorkspace) ||
		errors.Is(err, ErrMalformedBackup)
}
