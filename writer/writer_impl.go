package writer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/wudi/notekit/ir/raw"
	"github.com/wudi/notekit/ir/semantic"
)

type impl struct{ interceptors []Interceptor }

func (w *impl) SerializeObject(ref raw.ObjectRef, obj raw.Object) ([]byte, error) {
	if obj == nil {
		return nil, fmt.Errorf("object %s is nil", ref)
	}
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("%d %d obj\n", ref.Num, ref.Gen))
	buf.Write(appendObject(nil, obj))
	buf.WriteString("\nendobj\n")
	return buf.Bytes(), nil
}

// Write lowers doc to raw objects and writes a complete PDF with a classic
// cross-reference table. Nothing reaches out when building fails.
func (w *impl) Write(ctx context.Context, doc *semantic.Document, out io.Writer, cfg Config) error {
	if doc == nil {
		return fmt.Errorf("nil document")
	}
	rawDoc, err := newObjectBuilder(doc, cfg).Build(ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-" + rawDoc.Version + "\n%\xE2\xE3\xCF\xD3\n")
	offsets := make(map[int]int64, len(rawDoc.Objects))

	ordered := make([]raw.ObjectRef, 0, len(rawDoc.Objects))
	for ref := range rawDoc.Objects {
		ordered = append(ordered, ref)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Num < ordered[j].Num })
	for i, ref := range ordered {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		obj := rawDoc.Objects[ref]
		for _, ic := range w.interceptors {
			if err := ic.BeforeWrite(ctx, ref, obj); err != nil {
				return err
			}
		}
		offset := int64(buf.Len())
		serialized, err := w.SerializeObject(ref, obj)
		if err != nil {
			return err
		}
		buf.Write(serialized)
		offsets[ref.Num] = offset
		for _, ic := range w.interceptors {
			if err := ic.AfterWrite(ctx, ref, obj, int64(len(serialized))); err != nil {
				return err
			}
		}
	}

	xrefOffset := buf.Len()
	maxObjNum := ordered[len(ordered)-1].Num
	buf.WriteString(fmt.Sprintf("xref\n0 %d\n", maxObjNum+1))
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= maxObjNum; i++ {
		if off, ok := offsets[i]; ok {
			buf.WriteString(fmt.Sprintf("%010d 00000 n \n", off))
		} else {
			buf.WriteString("0000000000 65535 f \n")
		}
	}
	buf.WriteString("trailer\n")
	buf.Write(appendObject(nil, rawDoc.Trailer))
	buf.WriteString(fmt.Sprintf("\nstartxref\n%d\n%%%%EOF\n", xrefOffset))

	_, err = out.Write(buf.Bytes())
	return err
}
