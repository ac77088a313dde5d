package titles

import (
	"encoding/binary"
	"encoding/hex"
	"image"

	"golang.org/x/crypto/blake2b"

	"github.com/wudi/notekit/note"
)

// Fingerprint identifies the ink of a title independently of the file it
// lives in, so a transcription survives re-exports and copies.
type Fingerprint [blake2b.Size256]byte

func (f Fingerprint) String() string { return hex.EncodeToString(f[:]) }

// IsZero reports whether f was never computed.
func (f Fingerprint) IsZero() bool { return f == Fingerprint{} }

// ParseFingerprint decodes the String form.
func ParseFingerprint(s string) (Fingerprint, bool) {
	var f Fingerprint
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(f) {
		return f, false
	}
	copy(f[:], b)
	return f, true
}

// Fingerprinter hashes the stored title bitmap when present and the
// rendered crop otherwise. Both include the rectangle size.
func Fingerprinter(t note.Title, crop *image.Gray) Fingerprint {
	h, _ := blake2b.New256(nil)
	var dims [8]byte
	binary.LittleEndian.PutUint32(dims[:4], uint32(t.Rect.W))
	binary.LittleEndian.PutUint32(dims[4:], uint32(t.Rect.H))
	h.Write(dims[:])
	switch {
	case len(t.Bitmap) > 0:
		h.Write([]byte{'b'})
		h.Write(t.Bitmap)
	case crop != nil:
		h.Write([]byte{'c'})
		b := crop.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			off := crop.PixOffset(b.Min.X, y)
			h.Write(crop.Pix[off : off+b.Dx()])
		}
	}
	var f Fingerprint
	copy(f[:], h.Sum(nil))
	return f
}
