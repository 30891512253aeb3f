package store

import (
	"errors"
	"fmt"
)

var (
	// ErrCorrupt matches a log file that exists but cannot be parsed.
	ErrCorrupt = errors.New("store: corrupt log file")
	// ErrStorageSetup matches failures to create or read the log location.
	ErrStorageSetup = errors.New("store: storage setup failed")
)

// CorruptStoreError reports a log file that must not be overwritten.
type CorruptStoreError struct {
	Path string
	Err  error
}

func (e *CorruptStoreError) Error() string {
	return fmt.Sprintf("corrupt log file %s: %v", e.Path, e.Err)
}

func (e *CorruptStoreError) Unwrap() error {
	return e.Err
}

func (e *CorruptStoreError) Is(target error) bool {
	return target == ErrCorrupt
}

// StorageSetupError reports that the log directory or file is unusable.
type StorageSetupError struct {
	Path string
	Err  error
}

func (e *StorageSetupError) Error() string {
	return fmt.Sprintf("storage setup %s: %v", e.Path, e.Err)
}

func (e *StorageSetupError) Unwrap() error {
	return e.Err
}

func (e *StorageSetupError) Is(target error) bool {
	return target == ErrStorageSetup
}
