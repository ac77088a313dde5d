// Package semantic is the page level document model handed from the builder
// to the writer.
package semantic

// Document is the semantic representation of a PDF.
type Document struct {
	Pages    []*Page
	Info     *DocumentInfo
	Outlines []OutlineItem
	// PageMode /UseOutlines opens the bookmark panel when outlines exist.
	PageMode string
}

// Page models a single PDF page.
type Page struct {
	Index       int
	MediaBox    Rectangle
	Resources   *Resources
	Contents    []ContentStream
	Annotations []Annotation
}

// ContentStream is a sequence of operations on a page.
type ContentStream struct {
	Operations []Operation
	RawBytes   []byte
}

// Operation represents a PDF operator and operands.
type Operation struct {
	Operator string
	Operands []Operand
}

// Operand is a type-safe operand value.
type Operand interface {
	operand()
	Type() string
}

type NumberOperand struct{ Value float64 }

func (NumberOperand) operand()     {}
func (NumberOperand) Type() string { return "number" }

type NameOperand struct{ Value string }

func (NameOperand) operand()     {}
func (NameOperand) Type() string { return "name" }

// StringOperand is written as a literal string, or as a hex string when
// Hex is set (glyph id runs of Type0 fonts).
type StringOperand struct {
	Value []byte
	Hex   bool
}

func (StringOperand) operand()     {}
func (StringOperand) Type() string { return "string" }

type ArrayOperand struct{ Values []Operand }

func (ArrayOperand) operand()     {}
func (ArrayOperand) Type() string { return "array" }

// Resources holds per-page resources.
type Resources struct {
	Fonts      map[string]*Font
	ExtGStates map[string]ExtGState
}

// ExtGState captures the transparency defaults used for translucent fills.
type ExtGState struct {
	FillAlpha *float64
}

// Font represents a font resource. Only Type0 fonts with an Identity-H
// encoding and an embedded TrueType descendant are written.
type Font struct {
	Subtype        string // Type0
	BaseFont       string
	Encoding       string
	ToUnicode      map[int][]rune // glyph id -> text
	DescendantFont *CIDFont
}

// CIDSystemInfo describes the registry/ordering of a CID font.
type CIDSystemInfo struct {
	Registry   string
	Ordering   string
	Supplement int
}

// CIDFont describes a descendant font for Type0 fonts.
type CIDFont struct {
	Subtype         string // CIDFontType2
	BaseFont        string
	CIDSystemInfo   CIDSystemInfo
	DW              int
	W               map[int]int // CID -> width
	CIDToGIDMapName string      // "Identity"
	Descriptor      *FontDescriptor
}

// FontDescriptor carries metrics and font file embedding details.
type FontDescriptor struct {
	FontName    string
	Flags       int
	ItalicAngle float64
	Ascent      float64
	Descent     float64
	CapHeight   float64
	StemV       int
	FontBBox    [4]float64
	FontFile    []byte // FontFile2
}

// Rectangle represents a PDF rectangle.
type Rectangle struct {
	LLX, LLY, URX, URY float64
}

// DocumentInfo is the /Info dictionary.
type DocumentInfo struct {
	Title    string
	Author   string
	Subject  string
	Creator  string
	Producer string
	Keywords []string
}

// Annotation is a page annotation.
type Annotation interface {
	Type() string
	Rect() Rectangle
	Base() *BaseAnnotation
}

// BaseAnnotation provides common fields for annotations.
type BaseAnnotation struct {
	Subtype  string
	RectVal  Rectangle
	Contents string
	Flags    int
	Border   []float64
}

func (a *BaseAnnotation) Type() string          { return a.Subtype }
func (a *BaseAnnotation) Rect() Rectangle       { return a.RectVal }
func (a *BaseAnnotation) Base() *BaseAnnotation { return a }

// LinkAnnotation represents a hyperlink annotation.
type LinkAnnotation struct {
	BaseAnnotation
	Action Action
}

// Action represents a PDF action.
type Action interface {
	ActionType() string
}

// URIAction represents a URI action.
type URIAction struct {
	URI string
}

func (a URIAction) ActionType() string { return "URI" }

// GoToAction represents a GoTo action to a page of the same document.
type GoToAction struct {
	Dest      *OutlineDestination
	PageIndex int
}

func (a GoToAction) ActionType() string { return "GoTo" }

// OutlineItem is one bookmark.
type OutlineItem struct {
	Title     string
	PageIndex int
	Dest      *OutlineDestination
	Children  []OutlineItem
}

// OutlineDestination describes an outline destination using XYZ coordinates.
// Nil fields indicate "leave unchanged" semantics (ISO 32000 7.9).
type OutlineDestination struct {
	X    *float64
	Y    *float64
	Zoom *float64
}

// Count returns the number of items in the outline tree rooted at items.
func Count(items []OutlineItem) int {
	n := 0
	for _, it := range items {
		n += 1 + Count(it.Children)
	}
	return n
}
