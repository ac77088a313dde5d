package raster

import (
	"errors"
	"fmt"
)

var (
	ErrTruncated    = errors.New("stream ends inside a token")
	ErrUnknownColor = errors.New("unknown colour code")
	ErrOverflow     = errors.New("expansion exceeds bitmap size")
	ErrUnderflow    = errors.New("expansion short of bitmap size")
	ErrSize         = errors.New("image size mismatch")
	ErrCorrupt      = errors.New("corrupt image")
	ErrEncoding     = errors.New("unsupported encoding")
)

// DecodeError reports a layer stream that does not expand to a full bitmap.
type DecodeError struct {
	Layer  string
	Offset int64 // absolute file offset of the failing token
	Kind   error
	Detail string
}

func (e *DecodeError) Error() string {
	msg := "raster"
	if e.Layer != "" {
		msg += " layer " + e.Layer
	}
	msg += fmt.Sprintf(" at offset %d: %s", e.Offset, e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Kind }
