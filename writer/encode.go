package writer

import (
	"math"
	"sort"
	"strconv"

	"github.com/wudi/notekit/ir/raw"
	"github.com/wudi/notekit/ir/semantic"
)

const hexDigits = "0123456789ABCDEF"

// appendObject appends the PDF syntax of o to dst. Dictionary keys are
// written sorted so output is reproducible.
func appendObject(dst []byte, o raw.Object) []byte {
	switch v := o.(type) {
	case raw.NameObj:
		return appendName(dst, v.Value())
	case raw.NumberObj:
		if v.IsInteger() {
			return strconv.AppendInt(dst, v.Int(), 10)
		}
		return appendNumber(dst, roundPt(v.Float()))
	case raw.BoolObj:
		return strconv.AppendBool(dst, v.Value())
	case raw.String:
		if v.IsHex() {
			return appendHex(dst, v.Value())
		}
		return appendLiteral(dst, v.Value())
	case *raw.ArrayObj:
		dst = append(dst, '[')
		for i, it := range v.Items {
			if i > 0 {
				dst = append(dst, ' ')
			}
			dst = appendObject(dst, it)
		}
		return append(dst, ']')
	case *raw.DictObj:
		keys := make([]string, 0, len(v.KV))
		for k := range v.KV {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		dst = append(dst, "<<"...)
		for _, k := range keys {
			dst = appendName(dst, k)
			dst = append(dst, ' ')
			dst = appendObject(dst, v.KV[k])
		}
		return append(dst, ">>"...)
	case *raw.StreamObj:
		dst = appendObject(dst, v.Dict)
		dst = append(dst, "\nstream\n"...)
		dst = append(dst, v.Data...)
		return append(dst, "\nendstream"...)
	case raw.RefObj:
		r := v.Ref()
		dst = strconv.AppendInt(dst, int64(r.Num), 10)
		dst = append(dst, ' ')
		dst = strconv.AppendInt(dst, int64(r.Gen), 10)
		return append(dst, " R"...)
	}
	return append(dst, "null"...)
}

// appendNumber writes v in fixed notation with no trailing zeros. Non-finite
// values become 0.
func appendNumber(dst []byte, v float64) []byte {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return append(dst, '0')
	case v == math.Trunc(v) && math.Abs(v) < 1<<53:
		return strconv.AppendInt(dst, int64(v), 10)
	}
	return strconv.AppendFloat(dst, v, 'f', -1, 64)
}

// roundPt keeps four decimals, well below a 1/226 inch device pixel.
func roundPt(v float64) float64 { return math.Round(v*1e4) / 1e4 }

func formatNumber(v float64) string { return string(appendNumber(nil, v)) }

// appendName writes /name, escaping every byte outside the regular
// character set as #XX.
func appendName(dst []byte, name string) []byte {
	dst = append(dst, '/')
	for i := 0; i < len(name); i++ {
		c := name[i]
		if regularNameByte(c) {
			dst = append(dst, c)
			continue
		}
		dst = append(dst, '#', hexDigits[c>>4], hexDigits[c&0xF])
	}
	return dst
}

func regularNameByte(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '+', '*':
		return true
	}
	return false
}

func appendHex(dst, b []byte) []byte {
	dst = append(dst, '<')
	for _, c := range b {
		dst = append(dst, hexDigits[c>>4], hexDigits[c&0xF])
	}
	return append(dst, '>')
}

var literalEscapes = map[byte]string{
	'\\': `\\`, '(': `\(`, ')': `\)`,
	'\n': `\n`, '\r': `\r`, '\t': `\t`, '\b': `\b`, '\f': `\f`,
}

// appendLiteral writes a (literal) string; bytes outside printable ASCII
// are octal escaped.
func appendLiteral(dst, b []byte) []byte {
	dst = append(dst, '(')
	for _, c := range b {
		if esc, ok := literalEscapes[c]; ok {
			dst = append(dst, esc...)
			continue
		}
		if c < 0x20 || c >= 0x80 {
			dst = append(dst, '\\', '0'+c>>6, '0'+(c>>3)&7, '0'+c&7)
			continue
		}
		dst = append(dst, c)
	}
	return append(dst, ')')
}

// encodeContent writes one operation per line: operands then operator.
func encodeContent(cs semantic.ContentStream) []byte {
	if len(cs.RawBytes) > 0 {
		return cs.RawBytes
	}
	var dst []byte
	for _, op := range cs.Operations {
		for _, operand := range op.Operands {
			dst = appendOperand(dst, operand)
			dst = append(dst, ' ')
		}
		dst = append(dst, op.Operator...)
		dst = append(dst, '\n')
	}
	return dst
}

func appendOperand(dst []byte, op semantic.Operand) []byte {
	switch v := op.(type) {
	case semantic.NumberOperand:
		return appendNumber(dst, v.Value)
	case semantic.NameOperand:
		return appendName(dst, v.Value)
	case semantic.StringOperand:
		if v.Hex {
			return appendHex(dst, v.Value)
		}
		return appendLiteral(dst, v.Value)
	case semantic.ArrayOperand:
		dst = append(dst, '[')
		for i, it := range v.Values {
			if i > 0 {
				dst = append(dst, ' ')
			}
			dst = appendOperand(dst, it)
		}
		return append(dst, ']')
	}
	return append(dst, "null"...)
}
