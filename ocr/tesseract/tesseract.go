// Package tesseract implements ocr.Engine on libtesseract through gosseract.
// Importing it installs the engine as ocr.DefaultEngine.
package tesseract

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/wudi/notekit/ocr"
)

func init() {
	ocr.SetDefaultEngine(New())
}

// Engine recognizes title crops with a fresh gosseract client per crop, so
// variables set for one crop never leak into the next.
type Engine struct {
	newClient func() *gosseract.Client
}

func New() *Engine {
	return &Engine{newClient: gosseract.NewClient}
}

func (e *Engine) Name() string { return "tesseract" }

func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}
	c := e.newClient()
	defer c.Close()
	if err := configure(c, in); err != nil {
		return ocr.Result{}, fmt.Errorf("configure %s: %w", in.ID, err)
	}
	text, err := c.Text()
	if err != nil {
		return ocr.Result{}, fmt.Errorf("recognize %s: %w", in.ID, err)
	}
	res := ocr.Result{
		InputID:   in.ID,
		PlainText: strings.Join(strings.Fields(text), " "),
	}
	if len(in.Languages) > 0 {
		res.Language = in.Languages[0]
	}
	res.Words, res.Confidence = words(c)
	return res, nil
}

// RecognizeBatch recognizes inputs in order and stops at the first failure.
func (e *Engine) RecognizeBatch(ctx context.Context, inputs []ocr.Input) ([]ocr.Result, error) {
	results := make([]ocr.Result, 0, len(inputs))
	for _, in := range inputs {
		res, err := e.Recognize(ctx, in)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func configure(c *gosseract.Client, in ocr.Input) error {
	if err := c.SetImageFromBytes(in.Image); err != nil {
		return err
	}
	if len(in.Languages) > 0 {
		if err := c.SetLanguage(in.Languages...); err != nil {
			return err
		}
	}
	vars := make(map[string]string, len(in.Metadata)+1)
	for k, v := range in.Metadata {
		vars[k] = v
	}
	if in.DPI > 0 {
		vars["user_defined_dpi"] = fmt.Sprint(in.DPI)
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := c.SetVariable(gosseract.SettableVariable(k), vars[k]); err != nil {
			return fmt.Errorf("variable %s: %w", k, err)
		}
	}
	return nil
}

// words returns the word boxes in crop pixels and their mean confidence
// in [0, 1]. Missing boxes give zero confidence.
func words(c *gosseract.Client) ([]ocr.TextWord, float64) {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return nil, 0
	}
	out := make([]ocr.TextWord, 0, len(boxes))
	var sum float64
	for _, b := range boxes {
		if strings.TrimSpace(b.Word) == "" {
			continue
		}
		conf := b.Confidence / 100
		sum += conf
		out = append(out, ocr.TextWord{
			Text:       b.Word,
			Bounds:     ocr.Region{X: float64(b.Box.Min.X), Y: float64(b.Box.Min.Y), Width: float64(b.Box.Dx()), Height: float64(b.Box.Dy())},
			Confidence: conf,
		})
	}
	if len(out) == 0 {
		return nil, 0
	}
	return out, sum / float64(len(out))
}
