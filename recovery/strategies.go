package recovery

import (
	"context"
	"fmt"
	"sync"

	"github.com/wudi/notekit/observability"
)

// StrictStrategy implements a fail-fast recovery strategy.
type StrictStrategy struct{}

func NewStrictStrategy() *StrictStrategy {
	return &StrictStrategy{}
}

func (s *StrictStrategy) OnError(ctx context.Context, err error, location Location) Action {
	return ActionFail
}

// LenientStrategy skips failed pages and keeps every error it saw. It is
// safe for use by concurrent page workers.
type LenientStrategy struct {
	mu     sync.Mutex
	errors []error
}

func NewLenientStrategy() *LenientStrategy {
	return &LenientStrategy{}
}

func (s *LenientStrategy) OnError(ctx context.Context, err error, location Location) Action {
	s.mu.Lock()
	s.errors = append(s.errors, fmt.Errorf("%s: %w", location, err))
	s.mu.Unlock()
	return ActionSkip
}

// Errors returns a copy of the recorded errors.
func (s *LenientStrategy) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errors...)
}

type loggingStrategy struct {
	next   Strategy
	logger observability.Logger
}

// WithLogger reports every decision of next on logger.
func WithLogger(next Strategy, logger observability.Logger) Strategy {
	if logger == nil {
		return next
	}
	return &loggingStrategy{next: next, logger: logger}
}

func (s *loggingStrategy) OnError(ctx context.Context, err error, location Location) Action {
	action := s.next.OnError(ctx, err, location)
	fields := []observability.Field{
		observability.String("file", location.File),
		observability.Int("page", location.Page+1),
		observability.Error("error", err),
		observability.Stringer("action", action),
	}
	if action == ActionFail {
		s.logger.Error("page failed", fields...)
	} else {
		s.logger.Warn("page skipped", fields...)
	}
	return action
}
