package raster

import "fmt"

// DocumentParseError reports that the input is not a readable PDF, or that
// no page of it could be rendered.
type DocumentParseError struct {
	Err error
}

func (e *DocumentParseError) Error() string {
	return "raster: document parse: " + e.Err.Error()
}

func (e *DocumentParseError) Unwrap() error { return e.Err }

// PageRenderError reports that a single page failed to render. Page is
// 1-based.
type PageRenderError struct {
	Page int
	Err  error
}

func (e *PageRenderError) Error() string {
	return fmt.Sprintf("raster: page %d: %v", e.Page, e.Err)
}

func (e *PageRenderError) Unwrap() error { return e.Err }
