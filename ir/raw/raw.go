// Package raw is the PDF object model the writer serializes.
package raw

import "fmt"

// ObjectRef uniquely identifies an indirect PDF object.
type ObjectRef struct {
	Num int
	Gen int
}

func (r ObjectRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Object is the base interface for all raw PDF objects.
type Object interface {
	Type() string
	IsIndirect() bool
}

// Dictionary represents a PDF dictionary object.
type Dictionary interface {
	Object
	Get(key Name) (Object, bool)
	Set(key Name, value Object)
	Keys() []Name
	Len() int
}

// Array represents a PDF array object.
type Array interface {
	Object
	Get(index int) (Object, bool)
	Len() int
	Append(obj Object)
}

// Stream represents a PDF stream with already encoded data.
type Stream interface {
	Object
	Dictionary() Dictionary
	RawData() []byte
	Length() int64
}

// Name represents a PDF name object.
type Name interface {
	Object
	Value() string
}

// String represents a PDF string (literal or hex).
type String interface {
	Object
	Value() []byte
	IsHex() bool
}

// Number represents a PDF numeric value.
type Number interface {
	Object
	Int() int64
	Float() float64
	IsInteger() bool
}

// Boolean represents a PDF boolean.
type Boolean interface {
	Object
	Value() bool
}

// Null represents the PDF null object.
type Null interface{ Object }

// Reference represents an indirect object reference.
type Reference interface {
	Object
	Ref() ObjectRef
}

// Document is a flat set of indirect objects plus the trailer.
type Document struct {
	Objects map[ObjectRef]Object
	Trailer Dictionary
	Version string // e.g., "1.7"

	last int
}

// NewDocument returns an empty document for the given header version.
func NewDocument(version string) *Document {
	return &Document{Objects: make(map[ObjectRef]Object), Trailer: Dict(), Version: version}
}

// Add stores obj under the next free object number and returns its reference.
func (d *Document) Add(obj Object) ObjectRef {
	ref := d.Reserve()
	d.Objects[ref] = obj
	return ref
}

// Reserve allocates an object number without storing anything yet, for
// objects that must refer to each other.
func (d *Document) Reserve() ObjectRef {
	for {
		d.last++
		if _, taken := d.Objects[ObjectRef{Num: d.last}]; !taken {
			break
		}
	}
	ref := ObjectRef{Num: d.last}
	d.Objects[ref] = NullObj{}
	return ref
}

// Set replaces the object stored under ref.
func (d *Document) Set(ref ObjectRef, obj Object) { d.Objects[ref] = obj }
