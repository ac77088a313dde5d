package trace

import (
	"fmt"

	"github.com/wudi/notekit/band"
)

// TraceError reports a broken tracer invariant. Valid input never produces
// one.
type TraceError struct {
	Band   band.Band
	X, Y   int
	Reason string
}

func (e *TraceError) Error() string {
	return fmt.Sprintf("trace %s band at (%d,%d): %s", e.Band, e.X, e.Y, e.Reason)
}
