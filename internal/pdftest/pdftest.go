// Package pdftest builds small, well-formed PDF documents in memory for
// tests that need real files: blank pages and optional AcroForm fields.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Field describes an AcroForm field. Type is a PDF field type (Tx, Btn,
// Ch). For Btn fields Value is written as a name, otherwise as a string.
// A field with Kids is written as a non-terminal node whose children
// inherit its type when their own Type is empty.
type Field struct {
	Name  string
	Type  string
	Value string
	Kids  []Field
}

// Text returns a text field.
func Text(name, value string) Field { return Field{Name: name, Type: "Tx", Value: value} }

// Checkbox returns a checkbox field, checked when on is true.
func Checkbox(name string, on bool) Field {
	v := "Off"
	if on {
		v = "Yes"
	}
	return Field{Name: name, Type: "Btn", Value: v}
}

// Doc describes a document to build.
type Doc struct {
	Pages int
	// AcroForm writes an /AcroForm dictionary even when Fields is empty.
	AcroForm bool
	Fields   []Field
}

// Build renders d as PDF bytes with a correct cross-reference table.
func Build(d Doc) []byte {
	if d.Pages < 1 {
		d.Pages = 1
	}
	w := &writer{}

	catalog := w.reserve()
	pages := w.reserve()

	pageRefs := make([]string, d.Pages)
	for i := range d.Pages {
		content := w.add(stream(fmt.Sprintf("BT /F1 12 Tf 72 720 Td (Page %d) Tj ET", i+1)))
		page := w.add(fmt.Sprintf("<< /Type /Page /Parent %s /MediaBox [0 0 612 792] /Contents %s /Resources << >> >>",
			ref(pages), ref(content)))
		pageRefs[i] = ref(page)
	}
	w.set(pages, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(pageRefs, " "), d.Pages))

	cat := fmt.Sprintf("<< /Type /Catalog /Pages %s >>", ref(pages))
	if d.AcroForm || len(d.Fields) > 0 {
		var top []string
		for _, f := range d.Fields {
			top = append(top, ref(w.field(f, 0)))
		}
		form := w.add(fmt.Sprintf("<< /Fields [%s] >>", strings.Join(top, " ")))
		cat = fmt.Sprintf("<< /Type /Catalog /Pages %s /AcroForm %s >>", ref(pages), ref(form))
	}
	w.set(catalog, cat)

	return w.bytes(catalog)
}

// Pages returns a plain document with n blank pages and no form.
func Pages(n int) []byte { return Build(Doc{Pages: n}) }

// Form returns a one-page document carrying the given fields.
func Form(fields ...Field) []byte { return Build(Doc{Pages: 1, AcroForm: true, Fields: fields}) }

type writer struct {
	objs []string
}

func (w *writer) reserve() int {
	w.objs = append(w.objs, "")
	return len(w.objs)
}

func (w *writer) add(body string) int {
	w.objs = append(w.objs, body)
	return len(w.objs)
}

func (w *writer) set(num int, body string) { w.objs[num-1] = body }

func (w *writer) field(f Field, parent int) int {
	num := w.reserve()
	var b strings.Builder
	b.WriteString("<< /T ")
	b.WriteString(literal(f.Name))
	if f.Type != "" {
		b.WriteString(" /FT /" + f.Type)
	}
	if parent > 0 {
		b.WriteString(" /Parent " + ref(parent))
	}
	if len(f.Kids) > 0 {
		kids := make([]string, len(f.Kids))
		for i, k := range f.Kids {
			kids[i] = ref(w.field(k, num))
		}
		b.WriteString(" /Kids [" + strings.Join(kids, " ") + "]")
	} else if f.Type == "Btn" {
		b.WriteString(" /V /" + f.Value)
	} else {
		b.WriteString(" /V " + literal(f.Value))
	}
	b.WriteString(" >>")
	w.set(num, b.String())
	return num
}

func (w *writer) bytes(root int) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, len(w.objs))
	for i, body := range w.objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(w.objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %s >>\nstartxref\n%d\n%%%%EOF\n", len(w.objs)+1, ref(root), xref)
	return buf.Bytes()
}

func ref(n int) string { return fmt.Sprintf("%d 0 R", n) }

func stream(content string) string {
	return fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content)
}

func literal(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return "(" + r.Replace(s) + ")"
}
