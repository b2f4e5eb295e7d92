// Package pdfdoc opens PDF documents with pdfcpu for structural reads:
// page counts and the AcroForm tree. It never renders.
package pdfdoc

import (
	"bytes"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rotisserie/eris"
)

// Open parses pdf in relaxed mode and resolves its page count. pdfcpu can
// panic on some malformed inputs; that is reported as an error.
func Open(pdf []byte) (ctx *model.Context, err error) {
	if len(pdf) == 0 {
		return nil, eris.New("pdfdoc: empty document")
	}

	defer func() {
		if r := recover(); r != nil {
			ctx = nil
			err = eris.Errorf("pdfdoc: malformed document: %v", r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err = api.ReadContext(bytes.NewReader(pdf), conf)
	if err != nil {
		return nil, eris.Wrap(err, "pdfdoc: read context")
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, eris.Wrap(err, "pdfdoc: page count")
	}
	return ctx, nil
}

// PageCount returns the number of pages in pdf.
func PageCount(pdf []byte) (int, error) {
	ctx, err := Open(pdf)
	if err != nil {
		return 0, err
	}
	return ctx.PageCount, nil
}
