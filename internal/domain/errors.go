package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat is returned when a document is unreadable or corrupt.
	ErrFormat = errors.New("unreadable document")

	// ErrSchema is returned when a tabular document is missing a required column.
	ErrSchema = errors.New("required column missing")

	// ErrRow marks a single malformed row. Always recovered: the row is
	// skipped and reported as a warning, never fatal for the file.
	ErrRow = errors.New("malformed row")

	// ErrNoBids is returned when no submitted document yields any usable line items.
	ErrNoBids = errors.New("no bids could be read")

	// ErrExport is returned when a spreadsheet artifact cannot be produced
	// from an otherwise valid result.
	ErrExport = errors.New("export failed")

	// ErrInvalidRequest is returned when request parameters are invalid.
	ErrInvalidRequest = errors.New("invalid request parameters")
)

// FileError names the document a parse failure belongs to. It unwraps to
// one of the sentinel errors above so callers can branch with errors.Is.
type FileError struct {
	File string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// NewFileError wraps err with the name of the offending document.
func NewFileError(file string, err error) *FileError {
	return &FileError{File: file, Err: err}
}
