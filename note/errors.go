package note

import (
	"errors"
	"fmt"
)

// Kinds of container failures. A FormatError unwraps to exactly one of them.
var (
	ErrBadMagic           = errors.New("bad magic")
	ErrUnsupportedVersion = errors.New("unsupported version")
	ErrTruncated          = errors.New("truncated file")
	ErrOutOfBounds        = errors.New("address out of bounds")
	ErrPageCount          = errors.New("inconsistent page index")
	ErrUnknownEncoding    = errors.New("unknown layer encoding")
	ErrMissingField       = errors.New("missing required field")
	ErrMalformed          = errors.New("malformed field")
	ErrLimit              = errors.New("limit exceeded")
)

// FormatError reports a malformed or unsupported container.
type FormatError struct {
	File   string
	Offset int64 // -1 when no single offset applies
	Field  string
	Kind   error
	Detail string
}

func (e *FormatError) Error() string {
	msg := "note"
	if e.File != "" {
		msg += " " + e.File
	}
	if e.Offset >= 0 {
		msg += fmt.Sprintf(" at offset %d", e.Offset)
	}
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	msg += ": " + e.Kind.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Kind }
