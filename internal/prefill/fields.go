// Package prefill reads a PDF's interactive form fields and maps them onto
// inspection header hints. It is best effort: a document it cannot read
// simply has nothing to prefill.
package prefill

import (
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/rotisserie/eris"

	"github.com/sells-group/inspection-review/internal/pdfdoc"
)

// FieldType is the PDF field type (the FT entry).
type FieldType string

const (
	FieldText      FieldType = "Tx"
	FieldButton    FieldType = "Btn"
	FieldChoice    FieldType = "Ch"
	FieldSignature FieldType = "Sig"
)

// Field is one terminal AcroForm field.
type Field struct {
	// Name is the fully qualified name, parent names joined with ".".
	Name  string    `json:"name"`
	Type  FieldType `json:"type"`
	Value string    `json:"value"`
}

// maxDepth bounds the Kids walk against reference cycles.
const maxDepth = 32

// ReadFields returns every terminal field of the document's AcroForm. A
// document without an AcroForm yields no fields and no error.
func ReadFields(pdf []byte) ([]Field, error) {
	ctx, err := pdfdoc.Open(pdf)
	if err != nil {
		return nil, err
	}

	root, err := ctx.Catalog()
	if err != nil {
		return nil, eris.Wrap(err, "prefill: catalog")
	}
	formObj, ok := root.Find("AcroForm")
	if !ok {
		return nil, nil
	}
	form, err := ctx.DereferenceDict(formObj)
	if err != nil {
		return nil, eris.Wrap(err, "prefill: AcroForm")
	}
	if form == nil {
		return nil, nil
	}
	fieldsObj, ok := form.Find("Fields")
	if !ok {
		return nil, nil
	}
	top, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, eris.Wrap(err, "prefill: AcroForm fields")
	}

	w := walker{ctx: ctx}
	for _, obj := range top {
		w.visit(obj, node{}, 0)
	}
	return w.out, nil
}

// node carries inheritable attributes down the field tree.
type node struct {
	name  string
	ftype FieldType
	value types.Object
}

type walker struct {
	ctx *model.Context
	out []Field
}

func (w *walker) visit(obj types.Object, parent node, depth int) {
	if depth > maxDepth {
		return
	}
	d, err := w.ctx.DereferenceDict(obj)
	if err != nil || d == nil {
		return
	}

	n := parent
	if t, ok := d.Find("T"); ok {
		if s, err := w.ctx.DereferenceStringOrHexLiteral(t, model.V10, nil); err == nil && s != "" {
			if n.name == "" {
				n.name = s
			} else {
				n.name = n.name + "." + s
			}
		}
	}
	if ft, ok := d.Find("FT"); ok {
		if name, err := w.ctx.DereferenceName(ft, model.V10, nil); err == nil {
			n.ftype = FieldType(name)
		}
	}
	if v, ok := d.Find("V"); ok {
		n.value = v
	}

	if kidsObj, ok := d.Find("Kids"); ok {
		if kids, err := w.ctx.DereferenceArray(kidsObj); err == nil && len(kids) > 0 {
			for _, k := range kids {
				w.visit(k, n, depth+1)
			}
			return
		}
	}

	// Widgets without a name belong to the parent field, which has
	// already been seen through its other widgets.
	if n.name == "" || n.name == parent.name && depth > 0 && w.seen(n.name) {
		return
	}
	w.out = append(w.out, Field{Name: n.name, Type: n.ftype, Value: w.value(n)})
}

func (w *walker) seen(name string) bool {
	for _, f := range w.out {
		if f.Name == name {
			return true
		}
	}
	return false
}

func (w *walker) value(n node) string {
	if n.value == nil {
		return ""
	}
	switch n.ftype {
	case FieldButton:
		if name, err := w.ctx.DereferenceName(n.value, model.V10, nil); err == nil {
			return string(name)
		}
	default:
		if s, err := w.ctx.DereferenceStringOrHexLiteral(n.value, model.V10, nil); err == nil {
			return strings.TrimSpace(s)
		}
		if name, err := w.ctx.DereferenceName(n.value, model.V10, nil); err == nil {
			return string(name)
		}
	}
	return ""
}
