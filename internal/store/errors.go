package store

import (
	"errors"
	"fmt"
)

// Errors returned by every store implementation. Postgres failures are
// translated into these by postgres.MapError.
var (
	ErrNotFound          = errors.New("entity not found")
	ErrDuplicate         = errors.New("entity already exists")
	ErrInvalidEntity     = errors.New("invalid entity")
	ErrUpdateFailed      = errors.New("update failed")
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrGenerationNotFound covers both a missing record and one owned by
	// another user; callers cannot tell the two apart.
	ErrGenerationNotFound = fmt.Errorf("%w: generation", ErrNotFound)
	ErrTemplateNotFound   = fmt.Errorf("%w: template", ErrNotFound)
	ErrDatasetNotFound    = fmt.Errorf("%w: dataset", ErrNotFound)

	// ErrNotPending is returned by UpdateTerminal when the record already
	// reached a terminal state.
	ErrNotPending = fmt.Errorf("%w: generation is not pending", ErrUpdateFailed)
)

// IsNotFoundError reports whether err is ErrNotFound or one of its
// entity-specific forms.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError reports whether err is ErrDuplicate.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
