package raster

import "fmt"

const (
	codeBackground = 0x62
	specialLength  = 0x4000
	lengthSpecial  = 0xFF
	lengthHeld     = 0x80
)

// intensity maps a colour code to its intensity; -1 marks unknown codes.
var intensity = func() [256]int16 {
	var t [256]int16
	for i := range t {
		t[i] = -1
	}
	t[0x61], t[0x66] = int16(Black), int16(Black)
	t[0x9D], t[0x9E] = int16(DarkGray), int16(DarkGray)
	t[0xC9], t[0xCA] = int16(Gray), int16(Gray)
	t[0x65] = int16(White)
	t[codeBackground] = int16(Blank)
	return t
}()

type rleDecoder struct {
	pix   []uint8
	pos   int
	layer string
	base  int64
}

func (d *rleDecoder) fail(off int, kind error, format string, args ...interface{}) error {
	return &DecodeError{Layer: d.layer, Offset: d.base + int64(off), Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// emit writes a run of n pixels. A background run that overshoots the
// bitmap is clamped since the device pads the last run of a layer.
func (d *rleDecoder) emit(off int, code byte, n int) error {
	v := intensity[code]
	if v < 0 {
		return d.fail(off, ErrUnknownColor, "code 0x%02x", code)
	}
	if rest := len(d.pix) - d.pos; n > rest {
		if code != codeBackground {
			return d.fail(off, ErrOverflow, "run of %d pixels at pixel %d, %d left", n, d.pos, rest)
		}
		n = rest
	}
	fill(d.pix[d.pos:d.pos+n], uint8(v))
	d.pos += n
	return nil
}

// DecodeRLE expands a RATTA_RLE stream into a w*h bitmap. The stream is a
// sequence of (colour code, length) byte pairs; base is the file offset of
// data and only affects error reporting.
func DecodeRLE(data []byte, w, h int, layer string, base int64) (*Bitmap, error) {
	d := &rleDecoder{pix: make([]uint8, w*h), layer: layer, base: base}
	var (
		held     bool
		heldCode byte
		heldLen  byte
		heldOff  int
	)
	for i := 0; i < len(data); i += 2 {
		if i+1 >= len(data) {
			return nil, d.fail(i, ErrTruncated, "odd stream length %d", len(data))
		}
		code, length := data[i], data[i+1]
		if held {
			held = false
			if code == heldCode {
				n := 1 + int(length) + ((int(heldLen&0x7F) + 1) << 7)
				if err := d.emit(heldOff, code, n); err != nil {
					return nil, err
				}
				continue
			}
			if err := d.emit(heldOff, heldCode, (int(heldLen&0x7F)+1)<<7); err != nil {
				return nil, err
			}
		}
		switch {
		case length == lengthSpecial:
			if err := d.emit(i, code, specialLength); err != nil {
				return nil, err
			}
		case length&lengthHeld != 0:
			held, heldCode, heldLen, heldOff = true, code, length, i
		default:
			if err := d.emit(i, code, int(length)+1); err != nil {
				return nil, err
			}
		}
	}
	if held {
		if n := tailLength(heldLen, len(d.pix)-d.pos); n > 0 {
			if err := d.emit(heldOff, heldCode, n); err != nil {
				return nil, err
			}
		}
	}
	if d.pos != len(d.pix) {
		return nil, d.fail(len(data), ErrUnderflow, "%d of %d pixels", d.pos, len(d.pix))
	}
	return &Bitmap{Width: w, Height: h, Pix: d.pix}, nil
}

// tailLength is the largest ((b&0x7F)+1) << i, i from 7 down to 0, that
// fits into gap.
func tailLength(b byte, gap int) int {
	unit := int(b&0x7F) + 1
	for i := 7; i >= 0; i-- {
		if n := unit << i; n <= gap {
			return n
		}
	}
	return 0
}
