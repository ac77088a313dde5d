package recovery_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/wudi/notekit/observability"
	"github.com/wudi/notekit/recovery"
)

func TestRecoveryStrategies(t *testing.T) {
	ctx := context.Background()
	loc := recovery.Location{File: "a.note", Page: 2, ByteOffset: 4096, Component: "MAINLAYER"}
	cause := errors.New("bad run")

	t.Run("StrictStrategy", func(t *testing.T) {
		if got := recovery.NewStrictStrategy().OnError(ctx, cause, loc); got != recovery.ActionFail {
			t.Fatalf("strict returned %v", got)
		}
	})

	t.Run("LenientStrategy", func(t *testing.T) {
		rec := recovery.NewLenientStrategy()
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if got := rec.OnError(ctx, cause, loc); got != recovery.ActionSkip {
					t.Errorf("lenient returned %v", got)
				}
			}()
		}
		wg.Wait()
		errs := rec.Errors()
		if len(errs) != 8 {
			t.Fatalf("expected 8 recorded errors, got %d", len(errs))
		}
		if !errors.Is(errs[0], cause) {
			t.Fatalf("recorded error does not wrap cause: %v", errs[0])
		}
		if msg := errs[0].Error(); !strings.Contains(msg, "a.note page 3 [MAINLAYER] offset 4096") {
			t.Fatalf("location missing from %q", msg)
		}
	})

	t.Run("WithLogger", func(t *testing.T) {
		var buf bytes.Buffer
		s := recovery.WithLogger(recovery.NewLenientStrategy(), observability.NewLogger(&buf, observability.LevelDebug))
		if got := s.OnError(ctx, cause, loc); got != recovery.ActionSkip {
			t.Fatalf("wrapped strategy returned %v", got)
		}
		if out := buf.String(); !strings.Contains(out, "page skipped") || !strings.Contains(out, "action=skip") {
			t.Fatalf("unexpected log output %q", out)
		}
	})
}
