package titles

import (
	"context"
	"fmt"
	"strings"

	"github.com/wudi/notekit/ocr"
)

// OCRSource recognizes title crops with an OCR engine.
type OCRSource struct {
	Engine    ocr.Engine
	Languages []string
	DPI       int
	Prepare   ocr.PrepareOptions
	// Charset limits recognized characters when set.
	Charset string
	// MinConfidence rejects results whose mean word confidence is lower.
	// Results without word boxes are accepted.
	MinConfidence float64
}

// NewOCRSource returns a single-line OCR source at the device resolution.
func NewOCRSource(engine ocr.Engine, langs ...string) *OCRSource {
	return &OCRSource{
		Engine:        engine,
		Languages:     langs,
		DPI:           226,
		Prepare:       ocr.DefaultPrepareOptions(),
		MinConfidence: 0.3,
	}
}

func (s *OCRSource) Transcribe(ctx context.Context, r Region) (string, bool, error) {
	if r.Image == nil || r.Image.Bounds().Empty() {
		return "", false, nil
	}
	id := fmt.Sprintf("%s#p%d-t%d", r.File, r.PageIndex+1, r.Index+1)
	opts := append(ocr.TitleLine(), ocr.WithCharset(s.Charset))
	if len(s.Languages) > 0 {
		opts = append(opts, ocr.WithLanguages(s.Languages...))
	}
	in, err := ocr.InputFromImage(id, r.PageIndex, r.Image, s.DPI, s.Prepare, opts...)
	if err != nil {
		return "", false, err
	}
	res, err := s.Engine.Recognize(ctx, in)
	if err != nil {
		return "", false, fmt.Errorf("ocr %s: %w", id, err)
	}
	text := strings.TrimSpace(res.PlainText)
	if text == "" || (len(res.Words) > 0 && res.Confidence < s.MinConfidence) {
		return "", false, nil
	}
	return text, true, nil
}
