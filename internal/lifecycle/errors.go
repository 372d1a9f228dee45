package lifecycle

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput indicates a malformed create or edit request.
	// Nothing is mutated when it is returned.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound indicates a referenced group does not exist.
	ErrNotFound = errors.New("not found")
	// ErrGroupFinished indicates an item mutation on a finished group.
	ErrGroupFinished = fmt.Errorf("%w: group is finished", ErrInvalidInput)
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
