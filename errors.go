package faceindex

import (
	"errors"
	"fmt"

	"github.com/hupe1980/faceindex/engine"
)

var (
	// ErrAppend is returned when the engine rejects an append.
	ErrAppend = errors.New("faceindex: append failed")

	// ErrBuild is returned when index compilation fails.
	ErrBuild = errors.New("faceindex: build failed")

	// ErrSearch is returned when the engine rejects a search.
	ErrSearch = errors.New("faceindex: search failed")

	// ErrPersist is returned when saving an index fails.
	ErrPersist = errors.New("faceindex: save failed")

	// ErrLoad is returned when loading an index fails.
	ErrLoad = errors.New("faceindex: load failed")

	// ErrInvalidTarget is returned when a save path is unusable: it denotes
	// a directory, or its parent directory does not exist.
	ErrInvalidTarget = errors.New("faceindex: invalid save target")

	// ErrPermission is returned when the process lacks permission to write
	// the save target.
	ErrPermission = errors.New("faceindex: permission denied")

	// ErrFileNotFound is returned when a load path does not exist.
	ErrFileNotFound = errors.New("faceindex: file not found")

	// ErrInvalidArgument is returned when an operation argument is invalid,
	// such as a non-positive result limit or an unknown index type.
	ErrInvalidArgument = errors.New("faceindex: invalid argument")

	// ErrUnsupportedOperation is returned when an operation is not available
	// on the index type it was called on, such as removal from a dense index.
	ErrUnsupportedOperation = errors.New("faceindex: unsupported operation")
)

// ErrOutOfRange indicates a descriptor position outside [0, Count).
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrOutOfRange struct {
	Position int
	Count    int
	cause    error
}

func (e *ErrOutOfRange) Error() string {
	return fmt.Sprintf("faceindex: position %d out of range [0, %d)", e.Position, e.Count)
}

func (e *ErrOutOfRange) Unwrap() error { return e.cause }

// ErrVersionMismatch indicates a descriptor whose model version differs from
// the version the index is bound to. Descriptors from different model
// versions are not comparable.
type ErrVersionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrVersionMismatch) Error() string {
	return fmt.Sprintf("faceindex: descriptor version mismatch: index bound to %d, got %d", e.Expected, e.Actual)
}

// translateError normalizes engine errors into the package taxonomy.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var oor *engine.ErrPositionOutOfRange
	if errors.As(err, &oor) {
		return &ErrOutOfRange{Position: oor.Position, Count: oor.Count, cause: err}
	}

	return err
}
