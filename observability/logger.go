package observability

import (
	"fmt"
	"io"
	"log"
	"strings"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	default:
		return "error"
	}
}

type textLogger struct {
	out    *log.Logger
	min    Level
	fields []Field
}

// NewLogger writes "level msg key=value ..." lines to w, dropping entries
// below min.
func NewLogger(w io.Writer, min Level) Logger {
	return &textLogger{out: log.New(w, "", log.LstdFlags), min: min}
}

func (l *textLogger) Debug(msg string, fields ...Field) { l.emit(LevelDebug, msg, fields) }
func (l *textLogger) Info(msg string, fields ...Field)  { l.emit(LevelInfo, msg, fields) }
func (l *textLogger) Warn(msg string, fields ...Field)  { l.emit(LevelWarn, msg, fields) }
func (l *textLogger) Error(msg string, fields ...Field) { l.emit(LevelError, msg, fields) }

func (l *textLogger) With(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &textLogger{out: l.out, min: l.min, fields: merged}
}

func (l *textLogger) emit(level Level, msg string, fields []Field) {
	if level < l.min {
		return
	}
	var b strings.Builder
	b.WriteString(level.String())
	b.WriteByte(' ')
	b.WriteString(msg)
	for _, f := range l.fields {
		writeField(&b, f)
	}
	for _, f := range fields {
		writeField(&b, f)
	}
	l.out.Print(b.String())
}

func writeField(b *strings.Builder, f Field) {
	v := fmt.Sprint(f.Value())
	if strings.ContainsAny(v, " \t\"=") {
		v = fmt.Sprintf("%q", v)
	}
	b.WriteByte(' ')
	b.WriteString(f.Key())
	b.WriteByte('=')
	b.WriteString(v)
}
