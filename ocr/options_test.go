package ocr

import "testing"

func TestTitleLineOptions(t *testing.T) {
	in := Input{}
	for _, opt := range TitleLine() {
		opt(&in)
	}
	WithCharset("")(&in)
	if len(in.Metadata) != 2 || in.Metadata["tessedit_pageseg_mode"] != "7" || in.Metadata["preserve_interword_spaces"] != "1" {
		t.Fatalf("metadata = %v", in.Metadata)
	}
	WithCharset("ABC")(&in)
	if got := in.Metadata["tessedit_char_whitelist"]; got != "ABC" {
		t.Fatalf("charset = %q", got)
	}
}
