package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestNopTracer(t *testing.T) {
	tracer := NopTracer()
	ctx := context.Background()
	ctx2, span := tracer.StartSpan(ctx, SpanPage)
	if ctx2 != ctx {
		t.Fatalf("nop tracer should return same context")
	}
	span.SetTag("key", "value")
	span.SetError(nil)
	span.Finish()
}

func TestTextLoggerLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LevelInfo).With(String("file", "a b.note"))

	logger.Debug("hidden")
	logger.Warn("page skipped", Int("page", 3), Error("err", errors.New("bad run")))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug entry should be filtered: %q", out)
	}
	for _, want := range []string{"warn page skipped", `file="a b.note"`, "page=3", `err="bad run"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log line %q missing %q", out, want)
		}
	}
}

func TestRecorderLogsFinishedSpans(t *testing.T) {
	var buf bytes.Buffer
	rec := &Recorder{Logger: NewLogger(&buf, LevelDebug)}

	_, span := rec.StartSpan(context.Background(), SpanPage)
	span.SetTag("page", 4)
	span.SetError(errors.New("unknown colour"))
	span.Finish()
	span.Finish()
	_, span = rec.StartSpan(context.Background(), SpanWrite)
	span.Finish()

	spans := rec.Spans()
	if len(spans) != 2 || rec.Count(SpanPage) != 1 {
		t.Fatalf("spans = %+v", spans)
	}
	if spans[0].Err == nil || spans[0].Tags["page"] != 4 {
		t.Fatalf("page span = %+v", spans[0])
	}
	out := buf.String()
	for _, want := range []string{"stage finished stage=page.trace", "page=4", `err="unknown colour"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log %q missing %q", out, want)
		}
	}
}
