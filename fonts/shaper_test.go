package fonts_test

import (
	"testing"

	"github.com/go-text/typesetting/language"
	"github.com/wudi/notekit/fonts"
)

func TestDetectScript(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect language.Script
	}{
		{"Latin", "Hello World", language.Latin},
		{"Cyrillic", "Привет мир", language.Cyrillic},
		{"Greek", "Γειά σου Κόσμε", language.Greek},
		{"Mixed Latin/Arabic (Latin dominant)", "Hello World مرحبا", language.Latin},
		{"CJK (Han)", "你好世界", language.Han},
		{"Digits only", "1234", language.Latin},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := fonts.DetectScript([]rune(tc.input))
			if got != tc.expect {
				t.Errorf("Expected %v, got %v", tc.expect, got)
			}
		})
	}
}

func TestShapeDefaultFont(t *testing.T) {
	font, err := fonts.Default()
	if err != nil {
		t.Fatalf("default font: %v", err)
	}
	if font.Subtype != "Type0" || font.Encoding != "Identity-H" || font.DescendantFont == nil {
		t.Fatalf("unexpected font %+v", font)
	}
	glyphs, err := fonts.Shape("Intro", font)
	if err != nil {
		t.Fatalf("shape: %v", err)
	}
	if len(glyphs) != 5 {
		t.Fatalf("expected 5 glyphs, got %d", len(glyphs))
	}
	var text []rune
	for _, g := range glyphs {
		if g.ID == 0 {
			t.Fatalf("glyph for %q missing from font", g.Runes)
		}
		text = append(text, g.Runes...)
	}
	if string(text) != "Intro" {
		t.Fatalf("cluster text = %q", string(text))
	}
	if adv := fonts.Advance(glyphs); adv <= 0 || adv > 5000 {
		t.Fatalf("advance = %v", adv)
	}
	if empty, err := fonts.Shape("", font); err != nil || empty != nil {
		t.Fatalf("empty text: %v %v", empty, err)
	}
}

func TestLoadTrueTypeRejectsGarbage(t *testing.T) {
	if _, err := fonts.LoadTrueType("x", nil); err == nil {
		t.Fatalf("expected error for empty data")
	}
	if _, err := fonts.LoadTrueType("x", []byte("not a font")); err == nil {
		t.Fatalf("expected parse error")
	}
}
