package snapshot

import (
	"errors"
	"fmt"
)

var (
	// ErrResultsDirExists is returned when the results directory is already present and force was not requested.
	ErrResultsDirExists = errors.New("results directory already exists")
	// ErrInvalidWhitelist is returned for relative, duplicate or nested whitelist entries.
	ErrInvalidWhitelist = errors.New("invalid whitelist")
	// ErrUnsupportedFileType is returned for devices, sockets and named pipes.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrVerifyMismatch is returned when a copied file does not hash to the same digest as its source.
	ErrVerifyMismatch = errors.New("copied content differs from source")
)

// PrepareError reports a failure while creating or recreating the results directory.
type PrepareError struct {
	Path string
	Err  error
}

func (e *PrepareError) Error() string {
	return fmt.Sprintf("prepare results directory %q: %v", e.Path, e.Err)
}

func (e *PrepareError) Unwrap() error { return e.Err }

// EntryError reports a failure while copying a single whitelist entry.
type EntryError struct {
	Source      string
	Destination string
	Err         error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("sync %s -> %s: %v", e.Source, e.Destination, e.Err)
}

func (e *EntryError) Unwrap() error { return e.Err }
