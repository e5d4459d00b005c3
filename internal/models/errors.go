package models

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType int

const (
	ErrConfig ErrorType = iota
	ErrArchive
	ErrRemove
	ErrRecover
	ErrHarvest
	ErrList
	ErrLock
	ErrFetch
	ErrChecksum
	ErrSignature
	ErrInstall
	ErrPatch
	ErrLinkage
	ErrGenerate
	ErrFileOp
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrConfig:
		return "Config"
	case ErrArchive:
		return "Archive"
	case ErrRemove:
		return "Remove"
	case ErrRecover:
		return "Recover"
	case ErrHarvest:
		return "Harvest"
	case ErrList:
		return "List"
	case ErrLock:
		return "Lock"
	case ErrFetch:
		return "Fetch"
	case ErrChecksum:
		return "Checksum"
	case ErrSignature:
		return "Signature"
	case ErrInstall:
		return "Install"
	case ErrPatch:
		return "Patch"
	case ErrLinkage:
		return "Linkage"
	case ErrGenerate:
		return "Generate"
	case ErrFileOp:
		return "FileOp"
	default:
		return "Unknown"
	}
}

// RmrfError represents an error raised by one of the rmrf operations
type RmrfError struct {
	Type ErrorType
	Path string
	Err  error
}

// Error implements the error interface
func (e *RmrfError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Path, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Type, e.Err)
}

// Unwrap returns the wrapped error
func (e *RmrfError) Unwrap() error {
	return e.Err
}

// NewError wraps err with the given type. It returns nil for a nil err.
func NewError(t ErrorType, path string, err error) error {
	if err == nil {
		return nil
	}
	return &RmrfError{Type: t, Path: path, Err: err}
}

// IsType reports whether err wraps an RmrfError of type t
func IsType(err error, t ErrorType) bool {
	var re *RmrfError
	return errors.As(err, &re) && re.Type == t
}
