package raw

import (
	"bytes"
	"testing"
)

func TestTextString(t *testing.T) {
	if s := TextString("Intro"); s.IsHex() || string(s.Value()) != "Intro" {
		t.Fatalf("ascii text = %+v", s)
	}
	s := TextString("Ü")
	if !s.IsHex() || !bytes.Equal(s.Value(), []byte{0xFE, 0xFF, 0x00, 0xDC}) {
		t.Fatalf("unicode text = % X", s.Value())
	}
}

func TestDocumentAddReserve(t *testing.T) {
	d := NewDocument("1.7")
	a := d.Reserve()
	b := d.Add(NumberInt(3))
	if a.Num != 1 || b.Num != 2 {
		t.Fatalf("refs = %v %v", a, b)
	}
	d.Set(a, NameLiteral("Catalog"))
	if n, ok := d.Objects[a].(NameObj); !ok || n.Value() != "Catalog" {
		t.Fatalf("reserved object not replaced: %#v", d.Objects[a])
	}
}
