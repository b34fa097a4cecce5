package loading

import (
	"errors"
	"fmt"
)

// Set of error variables for the loading path.
var (
	ErrOutOfRange        = errors.New("height out of range")
	ErrNotFound          = errors.New("record not found")
	ErrMaterialization   = errors.New("record materialization failed")
	ErrMissingDifficulty = errors.New("missing difficulty")
	ErrRangeTooWide      = errors.New("work range too wide")
)

// OutOfRangeError is returned when a height at or past the chain length is
// requested. It is a caller bug and is always surfaced.
type OutOfRangeError struct {
	Height uint64
	Length uint64
}

// Error implements the error interface.
func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("height %d out of range, chain length %d", e.Height, e.Length)
}

// Is allows errors.Is to match ErrOutOfRange.
func (e *OutOfRangeError) Is(target error) bool {
	return target == ErrOutOfRange
}

// MaterializationError wraps a storage or population fault raised while
// building a record.
type MaterializationError struct {
	Height uint64
	Err    error
}

// Error implements the error interface.
func (e *MaterializationError) Error() string {
	return fmt.Sprintf("materializing record %d: %s", e.Height, e.Err)
}

// Unwrap provides access to the underlying fault.
func (e *MaterializationError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is to match ErrMaterialization.
func (e *MaterializationError) Is(target error) bool {
	return target == ErrMaterialization
}

// MissingDifficultyError is returned when the difficulty entry a work value
// depends on is absent or malformed.
type MissingDifficultyError struct {
	Height uint64
	Err    error
}

// Error implements the error interface.
func (e *MissingDifficultyError) Error() string {
	return fmt.Sprintf("missing difficulty for height %d: %s", e.Height, e.Err)
}

// Unwrap provides access to the underlying storage error.
func (e *MissingDifficultyError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is to match ErrMissingDifficulty.
func (e *MissingDifficultyError) Is(target error) bool {
	return target == ErrMissingDifficulty
}
