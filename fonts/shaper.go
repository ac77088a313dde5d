package fonts

import (
	"bytes"
	"fmt"
	"unicode"

	"github.com/go-text/typesetting/di"
	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"

	"github.com/wudi/notekit/ir/semantic"
)

// ShapedGlyph represents a single shaped glyph with positioning information.
type ShapedGlyph struct {
	ID       int
	Cluster  int
	XAdvance float64 // In PDF text units (1/1000 em)
	// Runes is the text the glyph stands for; only the first glyph of a
	// cluster carries it.
	Runes []rune
}

// Shape shapes text with the embedded program of font. Advances come out
// in 1/1000 em.
func Shape(text string, font *semantic.Font) ([]ShapedGlyph, error) {
	if font == nil || font.DescendantFont == nil || font.DescendantFont.Descriptor == nil ||
		len(font.DescendantFont.Descriptor.FontFile) == 0 {
		return nil, fmt.Errorf("font has no embedded program")
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}
	face, err := gofont.ParseTTF(bytes.NewReader(font.DescendantFont.Descriptor.FontFile))
	if err != nil {
		return nil, fmt.Errorf("parse font program: %w", err)
	}
	script := DetectScript(runes)
	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: scriptDirection(script),
		Face:      face,
		// 1 em = 1000 units, matching PDF glyph space.
		Size:     fixed.Int26_6(1000 * 64),
		Script:   script,
		Language: language.DefaultLanguage(),
	}
	output := (&shaping.HarfbuzzShaper{}).Shape(input)

	glyphs := make([]ShapedGlyph, 0, len(output.Glyphs))
	seen := make(map[int]bool, len(output.Glyphs))
	for _, g := range output.Glyphs {
		sg := ShapedGlyph{
			ID:       int(g.GlyphID),
			Cluster:  g.ClusterIndex,
			XAdvance: float64(g.XAdvance) / 64.0,
		}
		if !seen[g.ClusterIndex] {
			seen[g.ClusterIndex] = true
			sg.Runes = clusterRunes(runes, g.ClusterIndex, g.RuneCount)
		}
		glyphs = append(glyphs, sg)
	}
	return glyphs, nil
}

// Advance sums the horizontal advances of glyphs in 1/1000 em.
func Advance(glyphs []ShapedGlyph) float64 {
	total := 0.0
	for _, g := range glyphs {
		total += g.XAdvance
	}
	return total
}

func clusterRunes(runes []rune, start, count int) []rune {
	if start < 0 || start >= len(runes) {
		return nil
	}
	if count < 1 {
		count = 1
	}
	end := start + count
	if end > len(runes) {
		end = len(runes)
	}
	return append([]rune(nil), runes[start:end]...)
}

func scriptDirection(script language.Script) di.Direction {
	switch script {
	case language.Arabic, language.Hebrew, language.Syriac, language.Thaana, language.Nko:
		return di.DirectionRTL
	default:
		return di.DirectionLTR
	}
}

// DetectScript returns the most frequent script among runes, Latin when
// none is recognised.
func DetectScript(runes []rune) language.Script {
	counts := make(map[language.Script]int)
	maxCount := 0
	bestScript := language.Latin

	for _, r := range runes {
		script := scriptFromRune(r)
		if script == language.Unknown {
			continue
		}
		counts[script]++
		if counts[script] > maxCount {
			maxCount = counts[script]
			bestScript = script
		}
	}
	return bestScript
}

func scriptFromRune(r rune) language.Script {
	switch {
	case unicode.Is(unicode.Latin, r):
		return language.Latin
	case unicode.Is(unicode.Arabic, r):
		return language.Arabic
	case unicode.Is(unicode.Hebrew, r):
		return language.Hebrew
	case unicode.Is(unicode.Cyrillic, r):
		return language.Cyrillic
	case unicode.Is(unicode.Greek, r):
		return language.Greek
	case unicode.Is(unicode.Han, r):
		return language.Han
	case unicode.Is(unicode.Hiragana, r):
		return language.Hiragana
	case unicode.Is(unicode.Katakana, r):
		return language.Katakana
	case unicode.Is(unicode.Hangul, r):
		return language.Hangul
	}
	return language.Unknown
}
