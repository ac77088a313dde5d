package ocr

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// InputOption mutates an OCR input.
type InputOption func(*Input)

// WithLanguages sets language hints on the OCR input.
func WithLanguages(langs ...string) InputOption {
	return func(in *Input) { in.Languages = append([]string(nil), langs...) }
}

// WithDPI overrides the DPI value on the OCR input.
func WithDPI(dpi int) InputOption {
	return func(in *Input) { in.DPI = dpi }
}

// WithMetadata sets provider-specific metadata for the input.
func WithMetadata(metadata map[string]string) InputOption {
	return func(in *Input) {
		if len(metadata) == 0 {
			in.Metadata = nil
			return
		}
		in.Metadata = make(map[string]string, len(metadata))
		for k, v := range metadata {
			in.Metadata[k] = v
		}
	}
}

// PrepareOptions controls crop preprocessing.
type PrepareOptions struct {
	// Scale enlarges the crop; recognizers do poorly on strokes only a
	// few pixels tall.
	Scale float64
	// Margin is white padding added on every side, in source pixels.
	Margin int
	Sharpen float64
}

// DefaultPrepareOptions suits title crops taken at the device resolution.
func DefaultPrepareOptions() PrepareOptions {
	return PrepareOptions{Scale: 2, Margin: 8, Sharpen: 0.8}
}

// Prepare converts img to grayscale, pads it with white and upscales it.
func Prepare(img image.Image, opts PrepareOptions) image.Image {
	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	if opts.Margin > 0 {
		canvas := imaging.New(b.Dx()+2*opts.Margin, b.Dy()+2*opts.Margin, image.White.C)
		gray = imaging.Paste(canvas, gray, image.Pt(opts.Margin, opts.Margin))
		b = gray.Bounds()
	}
	if opts.Scale > 1 {
		w := int(float64(b.Dx()) * opts.Scale)
		gray = imaging.Resize(gray, w, 0, imaging.Lanczos)
	}
	if opts.Sharpen > 0 {
		gray = imaging.Sharpen(gray, opts.Sharpen)
	}
	return gray
}

// InputFromImage preprocesses img and encodes it as PNG. dpi is the
// resolution of img before preprocessing.
func InputFromImage(id string, page int, img image.Image, dpi int, prep PrepareOptions, opts ...InputOption) (Input, error) {
	b := img.Bounds()
	if b.Empty() {
		return Input{}, fmt.Errorf("ocr input %s: empty image", id)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, Prepare(img, prep), imaging.PNG); err != nil {
		return Input{}, fmt.Errorf("encode %s: %w", id, err)
	}
	if prep.Scale > 1 {
		dpi = int(float64(dpi) * prep.Scale)
	}
	in := Input{
		ID:        id,
		Image:     buf.Bytes(),
		Format:    ImageFormatPNG,
		PageIndex: page,
		DPI:       dpi,
	}
	for _, opt := range opts {
		opt(&in)
	}
	return in, nil
}
