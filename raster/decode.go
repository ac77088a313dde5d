package raster

import (
	"bytes"
	"image/png"

	"github.com/wudi/notekit/note"
)

// Decode expands a layer into a w*h bitmap according to its encoding.
func Decode(l note.Layer, w, h int) (*Bitmap, error) {
	switch l.Encoding {
	case note.EncodingRattaRLE:
		return DecodeRLE(l.Data, w, h, l.Name, l.Offset)
	case note.EncodingPNG:
		return DecodePNG(l.Data, w, h, l.Name, l.Offset)
	}
	return nil, &DecodeError{Layer: l.Name, Offset: l.Offset, Kind: ErrEncoding, Detail: l.Encoding.String()}
}

// DecodePNG decodes a PNG layer and checks its size.
func DecodePNG(data []byte, w, h int, layer string, base int64) (*Bitmap, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Layer: layer, Offset: base, Kind: ErrCorrupt, Detail: err.Error()}
	}
	if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
		return nil, &DecodeError{Layer: layer, Offset: base, Kind: ErrSize, Detail: b.Size().String()}
	}
	return FromImage(img), nil
}
