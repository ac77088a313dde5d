package ocr

import "strconv"

// Segmentation is a Tesseract page segmentation mode.
type Segmentation int

const (
	SegmentAuto  Segmentation = 3
	SegmentBlock Segmentation = 6
	SegmentLine  Segmentation = 7
	SegmentWord  Segmentation = 8
)

// WithVariable sets an engine variable by name.
func WithVariable(name, value string) InputOption {
	return func(in *Input) {
		if in.Metadata == nil {
			in.Metadata = make(map[string]string)
		}
		in.Metadata[name] = value
	}
}

func WithSegmentation(mode Segmentation) InputOption {
	return WithVariable("tessedit_pageseg_mode", strconv.Itoa(int(mode)))
}

// WithCharset restricts recognition to chars. An empty charset is ignored.
func WithCharset(chars string) InputOption {
	if chars == "" {
		return func(*Input) {}
	}
	return WithVariable("tessedit_char_whitelist", chars)
}

// TitleLine configures recognition of a single handwritten heading: one text
// line with its word gaps kept.
func TitleLine() []InputOption {
	return []InputOption{
		WithSegmentation(SegmentLine),
		WithVariable("preserve_interword_spaces", "1"),
	}
}
