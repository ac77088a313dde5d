package note

// Document is one decoded container. Pages keep file order.
type Document struct {
	Name    string
	Version int
	FileID  string
	Header  Meta
	Pages   []*Page
}

// PageIndex maps a PAGEID to the zero based page index.
func (d *Document) PageIndex(id string) (int, bool) {
	if id == "" {
		return 0, false
	}
	for i, p := range d.Pages {
		if p.ID == id {
			return i, true
		}
	}
	return 0, false
}

// Titles returns every title in (page, position) order.
func (d *Document) Titles() []Title {
	var out []Title
	for _, p := range d.Pages {
		out = append(out, p.Titles...)
	}
	return out
}

// Page is one fixed-size page of the notebook.
type Page struct {
	Index  int
	ID     string
	Style  string
	Offset int64
	// Layers in bottom to top draw order.
	Layers []Layer
	Titles []Title
	Links  []Link
	Meta   Meta
	// Err is set when the page's own record is unreadable; the rest of
	// the document still decodes.
	Err error
}

// Layer is one compressed raster sub-image of a page.
type Layer struct {
	Name     string
	Encoding LayerEncoding
	Data     []byte
	// Offset of Data in the file.
	Offset int64
	// Err is set when the layer's records are unreadable. The layer then
	// has no Data and its page cannot be drawn.
	Err error
}

// Background reports whether the layer holds the page template.
func (l Layer) Background() bool { return l.Name == backgroundLayer }

// Title is a heading region marked on a page. Text stays empty until a
// transcription source fills it.
type Title struct {
	Page   int
	Rect   Rect
	Level  int
	Bitmap []byte
	Offset int64
	Text   string
}

// Link is an outgoing anchor on a page.
type Link struct {
	Page   int
	Rect   Rect
	Target LinkTarget
	Offset int64
}

// LinkTarget is one of PageTarget, FileTarget or WebTarget.
type LinkTarget interface {
	linkTarget()
}

// PageTarget points to a page of the same file.
type PageTarget struct {
	PageID string
}

// FileTarget points to another note file, optionally to one of its pages.
type FileTarget struct {
	FileID string
	PageID string
	Path   string
}

// WebTarget points to a URL.
type WebTarget struct {
	URL string
}

func (PageTarget) linkTarget() {}
func (FileTarget) linkTarget() {}
func (WebTarget) linkTarget()  {}
