// Package observability carries the logging and stage tracing hooks used
// across the conversion pipeline. Everything defaults to a no-op.
package observability

import (
	"context"
	"sync"
	"time"
)

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

// Field is one key=value pair attached to a log entry.
type Field struct {
	key string
	val interface{}
}

func (f Field) Key() string        { return f.key }
func (f Field) Value() interface{} { return f.val }

func String(key, value string) Field    { return Field{key, value} }
func Int(key string, value int) Field   { return Field{key, value} }
func Error(key string, err error) Field { return Field{key, err} }

// Stringer records the String form of value, typically a time.Duration.
func Stringer(key string, value interface{ String() string }) Field {
	return Field{key, value.String()}
}

type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}
func (NopLogger) With(...Field) Logger   { return NopLogger{} }

// Tracer opens a span around each pipeline stage.
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

// Span represents a tracing span.
type Span interface {
	SetTag(key string, value interface{})
	SetError(err error)
	Finish()
}

type nopTracer struct{}

func (nopTracer) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, nopSpan{}
}

// NopTracer returns a tracer that does nothing.
func NopTracer() Tracer { return nopTracer{} }

type nopSpan struct{}

func (nopSpan) SetTag(string, interface{}) {}
func (nopSpan) SetError(error)             {}
func (nopSpan) Finish()                    {}

// Span names for the conversion stages.
const (
	SpanDecode   = "note.decode"
	SpanPage     = "page.trace"
	SpanAssemble = "doc.assemble"
	SpanWrite    = "pdf.write"
)

// SpanRecord is a finished span.
type SpanRecord struct {
	Name    string
	Tags    map[string]interface{}
	Err     error
	Elapsed time.Duration
}

// Recorder is a Tracer keeping every finished span in memory. When Logger is
// set each span is also logged at debug level as it finishes.
type Recorder struct {
	Logger Logger

	mu    sync.Mutex
	spans []SpanRecord
}

func (r *Recorder) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	return ctx, &recordedSpan{rec: r, name: name, start: time.Now()}
}

// Spans returns the finished spans in completion order.
func (r *Recorder) Spans() []SpanRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SpanRecord(nil), r.spans...)
}

// Count returns how many spans named name have finished.
func (r *Recorder) Count(name string) int {
	n := 0
	for _, s := range r.Spans() {
		if s.Name == name {
			n++
		}
	}
	return n
}

type recordedSpan struct {
	rec   *Recorder
	name  string
	start time.Time
	tags  map[string]interface{}
	err   error
	done  bool
}

func (s *recordedSpan) SetTag(key string, value interface{}) {
	if s.tags == nil {
		s.tags = make(map[string]interface{})
	}
	s.tags[key] = value
}

func (s *recordedSpan) SetError(err error) {
	if err != nil {
		s.err = err
	}
}

func (s *recordedSpan) Finish() {
	if s.done {
		return
	}
	s.done = true
	rec := SpanRecord{Name: s.name, Tags: s.tags, Err: s.err, Elapsed: time.Since(s.start)}
	s.rec.mu.Lock()
	s.rec.spans = append(s.rec.spans, rec)
	s.rec.mu.Unlock()
	if s.rec.Logger == nil {
		return
	}
	fields := []Field{String("stage", s.name), Stringer("took", rec.Elapsed)}
	if page, ok := s.tags["page"].(int); ok {
		fields = append(fields, Int("page", page))
	}
	if s.err != nil {
		fields = append(fields, Error("err", s.err))
	}
	s.rec.Logger.Debug("stage finished", fields...)
}
