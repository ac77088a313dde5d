// Package titles transcribes the handwritten title regions of a page into
// text for the table of contents and the hidden text layer.
package titles

import (
	"context"
	"image"

	"github.com/wudi/notekit/note"
)

// Region is one title crop awaiting transcription.
type Region struct {
	File      string
	FileID    string
	PageIndex int
	PageID    string
	// Index is the position of the title on its page, in reading order.
	Index int
	Level int
	Rect  note.Rect
	// Image is the title area of the composited page; nil when the page
	// raster was not available.
	Image       *image.Gray
	Fingerprint Fingerprint
}

// Source turns a title crop into text. ok is false when the source has no
// answer, in which case the next source may be asked.
type Source interface {
	Transcribe(ctx context.Context, r Region) (text string, ok bool, err error)
}

// Func adapts a function to Source.
type Func func(ctx context.Context, r Region) (string, bool, error)

func (f Func) Transcribe(ctx context.Context, r Region) (string, bool, error) { return f(ctx, r) }

// Chain asks each source in order and returns the first answer.
type Chain []Source

func (c Chain) Transcribe(ctx context.Context, r Region) (string, bool, error) {
	for _, s := range c {
		if s == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return "", false, err
		}
		text, ok, err := s.Transcribe(ctx, r)
		if err != nil {
			return "", false, err
		}
		if ok {
			return text, true, nil
		}
	}
	return "", false, nil
}

// None never answers; titles stay untitled.
var None Source = Func(func(context.Context, Region) (string, bool, error) { return "", false, nil })
