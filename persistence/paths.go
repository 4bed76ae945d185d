package persistence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrTargetIsDirectory is returned when a save or load path denotes a
	// directory.
	ErrTargetIsDirectory = errors.New("persistence: path is a directory")

	// ErrParentMissing is returned when the parent of a save target does not
	// exist or is not a directory.
	ErrParentMissing = errors.New("persistence: parent directory does not exist")

	// ErrParentNotWritable is returned when the parent of a save target is
	// not writable by the current process.
	ErrParentNotWritable = errors.New("persistence: parent directory not writable")
)

// ValidateSaveTarget checks the path preconditions for writing an index
// file: the target must not be an existing directory, and its parent must
// exist and be writable. These checks run before any engine work so a
// failed save leaves no partial state.
func ValidateSaveTarget(path string) error {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return fmt.Errorf("%w: %s", ErrTargetIsDirectory, path)
	}

	parent := filepath.Dir(path)
	fi, err := os.Stat(parent)
	if err != nil || !fi.IsDir() {
		return fmt.Errorf("%w: %s", ErrParentMissing, parent)
	}

	if err := writable(parent); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrParentNotWritable, parent, err)
	}
	return nil
}

// ValidateLoadSource checks that path exists and is a regular file before
// a load is attempted. A missing file satisfies errors.Is(err, os.ErrNotExist).
func ValidateLoadSource(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return fmt.Errorf("%w: %s", ErrTargetIsDirectory, path)
	}
	return nil
}
