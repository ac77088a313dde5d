// Package writer serializes a semantic document into PDF bytes.
package writer

import (
	"context"
	"io"

	"github.com/wudi/notekit/ir/raw"
	"github.com/wudi/notekit/ir/semantic"
)

type PDFVersion string

const (
	PDF17 PDFVersion = "1.7"
)

type ContentFilter int

const (
	FilterNone ContentFilter = iota
	FilterFlate
)

type Config struct {
	Version PDFVersion
	// Compression is the flate level for content and font streams; 0 leaves
	// them uncompressed unless ContentFilter asks for flate.
	Compression   int
	ContentFilter ContentFilter
	// Deterministic derives the file ID from the content and omits dates so
	// identical input yields identical bytes.
	Deterministic bool
	Producer      string
}

// DefaultConfig compresses streams and writes reproducible output.
func DefaultConfig() Config {
	return Config{Version: PDF17, Compression: 6, ContentFilter: FilterFlate, Deterministic: true, Producer: "notekit"}
}

type Writer interface {
	Write(ctx context.Context, doc *semantic.Document, w io.Writer, cfg Config) error
	SerializeObject(ref raw.ObjectRef, obj raw.Object) ([]byte, error)
}

// Interceptor observes every indirect object as it is written.
type Interceptor interface {
	BeforeWrite(ctx context.Context, ref raw.ObjectRef, obj raw.Object) error
	AfterWrite(ctx context.Context, ref raw.ObjectRef, obj raw.Object, bytesWritten int64) error
}

type WriterBuilder struct{ interceptors []Interceptor }

func (b *WriterBuilder) WithInterceptor(i Interceptor) *WriterBuilder {
	b.interceptors = append(b.interceptors, i)
	return b
}
func (b *WriterBuilder) Build() Writer { return &impl{interceptors: b.interceptors} }
