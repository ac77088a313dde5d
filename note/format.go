package note

import (
	"strconv"
	"strings"
)

// Page geometry of the A5X. Every page and every layer bitmap has this size.
const (
	PageWidth  = 1404
	PageHeight = 1872
)

// Container versions this package understands. Files outside the range are
// rejected with ErrUnsupportedVersion instead of being parsed best-effort.
const (
	MinVersion = 20200001
	MaxVersion = 20230015
)

const (
	fileMagic    = "note"
	versionTag   = "SN_FILE_VER_"
	versionStart = 16
	versionLen   = 8
	headerLen    = versionStart + versionLen
	addrSize     = 4
)

// Footer keys and key prefixes.
const (
	keyFileFeature = "FILE_FEATURE"
	prefixPage     = "PAGE"
	prefixTitle    = "TITLE_"
	prefixLink     = "LINKO_"
	prefixKeyword  = "KEYWORD_"
)

// Layer keys in default bottom-to-top draw order.
var layerKeys = []string{"BGLAYER", "MAINLAYER", "LAYER1", "LAYER2", "LAYER3"}

const backgroundLayer = "BGLAYER"

// blockKind classifies the footer entries. The set is fixed by the format.
type blockKind int

const (
	blockUnknown blockKind = iota
	blockHeader
	blockPage
	blockTitle
	blockLink
	blockKeyword
)

func (k blockKind) String() string {
	switch k {
	case blockHeader:
		return "header"
	case blockPage:
		return "page"
	case blockTitle:
		return "title"
	case blockLink:
		return "link"
	case blockKeyword:
		return "keyword"
	default:
		return "unknown"
	}
}

// classifyFooterKey returns the kind of a footer key and, for page, title
// and link entries, the 1-based page number encoded in the key.
func classifyFooterKey(key string) (blockKind, int) {
	switch {
	case key == keyFileFeature:
		return blockHeader, 0
	case strings.HasPrefix(key, prefixTitle):
		return blockTitle, keyPageNumber(key)
	case strings.HasPrefix(key, prefixLink):
		return blockLink, keyPageNumber(key)
	case strings.HasPrefix(key, prefixKeyword):
		return blockKeyword, keyPageNumber(key)
	case strings.HasPrefix(key, prefixPage):
		n, err := strconv.Atoi(key[len(prefixPage):])
		if err != nil || n <= 0 {
			return blockUnknown, 0
		}
		return blockPage, n
	}
	return blockUnknown, 0
}

// keyPageNumber extracts the four digit page number stored at characters
// 6..10 of TITLE_, LINKO_ and KEYWORD_ keys. It returns 0 when absent.
func keyPageNumber(key string) int {
	if len(key) < 10 {
		return 0
	}
	n, err := strconv.Atoi(key[6:10])
	if err != nil {
		return 0
	}
	return n
}

// LayerEncoding is the compression variant of a layer bitmap.
type LayerEncoding int

const (
	EncodingRattaRLE LayerEncoding = iota + 1
	EncodingPNG
)

func (e LayerEncoding) String() string {
	switch e {
	case EncodingRattaRLE:
		return "RATTA_RLE"
	case EncodingPNG:
		return "PNG"
	default:
		return "LayerEncoding(" + strconv.Itoa(int(e)) + ")"
	}
}

// ParseLayerEncoding maps a LAYERPROTOCOL value to its encoding.
func ParseLayerEncoding(s string) (LayerEncoding, bool) {
	switch strings.TrimSpace(s) {
	case "RATTA_RLE":
		return EncodingRattaRLE, true
	case "PNG":
		return EncodingPNG, true
	}
	return 0, false
}

// Link type codes stored in LINKTYPE.
const (
	linkTypePage = 0
	linkTypeFile = 1
	linkTypeWeb  = 4
)
