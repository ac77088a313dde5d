package pipeline

import (
	"errors"
	"fmt"

	"github.com/wudi/notekit/note"
	"github.com/wudi/notekit/raster"
	"github.com/wudi/notekit/trace"
)

// PageError pins a failure to one page of one file.
type PageError struct {
	File  string
	Page  int
	Layer string
	Err   error
}

func (e *PageError) Error() string {
	msg := fmt.Sprintf("%s page %d", e.File, e.Page+1)
	if e.Layer != "" {
		msg += " layer " + e.Layer
	}
	return msg + ": " + e.Err.Error()
}

func (e *PageError) Unwrap() error { return e.Err }

// component names the stage that produced err.
func component(err error) (string, int64) {
	var fe *note.FormatError
	if errors.As(err, &fe) {
		return "note", fe.Offset
	}
	var de *raster.DecodeError
	if errors.As(err, &de) {
		return "raster", de.Offset
	}
	var te *trace.TraceError
	if errors.As(err, &te) {
		return "trace", 0
	}
	return "", 0
}
