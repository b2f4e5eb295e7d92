// Package raster renders PDF pages to JPEG images with poppler's pdftoppm.
// Annotation appearance streams and form-field values are drawn onto the
// same raster, so filled widgets and stamps are visible in the output.
package raster

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/inspection-review/internal/pdfdoc"
)

const (
	// ExtractionScale renders pages for the extraction service.
	ExtractionScale = 2.0
	// ThumbnailScale renders preview images.
	ThumbnailScale = 0.4
	// DefaultQuality is the JPEG quality used for document pages.
	DefaultQuality = 92

	basePPI = 72.0
)

// Page is one rendered page.
type Page struct {
	Number    int // 1-based
	MediaType string
	Data      []byte
}

// Options configures a Renderer.
type Options struct {
	// PdftoppmPath is the pdftoppm binary. Empty means "pdftoppm" on PATH.
	PdftoppmPath string
	// Quality is the JPEG quality, 1-100. Default: 92.
	Quality int
	// MaxPages caps how many pages are rendered. Zero renders all.
	MaxPages int
	// TempDir is the parent for per-document work directories.
	TempDir string
	// ThumbnailScale overrides the preview scale. Default: ThumbnailScale.
	ThumbnailScale float64
}

// Renderer rasterizes PDF documents.
type Renderer struct {
	bin      string
	quality  int
	maxPages int
	tmpDir   string
	thumb    float64
}

// NewRenderer creates a Renderer.
func NewRenderer(opts Options) *Renderer {
	if opts.PdftoppmPath == "" {
		opts.PdftoppmPath = "pdftoppm"
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultQuality
	}
	if opts.ThumbnailScale <= 0 {
		opts.ThumbnailScale = ThumbnailScale
	}
	return &Renderer{
		bin:      opts.PdftoppmPath,
		quality:  opts.Quality,
		maxPages: opts.MaxPages,
		tmpDir:   opts.TempDir,
		thumb:    opts.ThumbnailScale,
	}
}

// Default returns the process-wide renderer, locating pdftoppm on PATH the
// first time it is called. Later calls return the same renderer and error.
var Default = sync.OnceValues(func() (*Renderer, error) {
	bin, err := exec.LookPath("pdftoppm")
	if err != nil {
		return nil, eris.Wrap(err, "raster: pdftoppm not found (install poppler-utils)")
	}
	return NewRenderer(Options{PdftoppmPath: bin}), nil
})

// Binary returns the pdftoppm executable the renderer runs.
func (r *Renderer) Binary() string { return r.bin }

// PageCount returns the number of pages in pdf.
func PageCount(pdf []byte) (int, error) {
	n, err := pdfdoc.PageCount(pdf)
	if err != nil {
		return 0, &DocumentParseError{Err: err}
	}
	if n == 0 {
		return 0, &DocumentParseError{Err: eris.New("document has no pages")}
	}
	return n, nil
}

// Pages lazily renders pdf page by page, in order, at scale (1.0 = 72
// PPI). A parse failure yields a *DocumentParseError and ends the
// sequence. A failed page yields a *PageRenderError and the sequence
// continues with the next page unless the consumer stops. The work
// directory is removed however iteration ends.
func (r *Renderer) Pages(ctx context.Context, pdf []byte, scale float64) iter.Seq2[Page, error] {
	return func(yield func(Page, error) bool) {
		n, err := PageCount(pdf)
		if err != nil {
			yield(Page{}, err)
			return
		}
		if r.maxPages > 0 && n > r.maxPages {
			n = r.maxPages
		}
		if scale <= 0 {
			scale = ExtractionScale
		}

		dir, err := os.MkdirTemp(r.tmpDir, "raster-*")
		if err != nil {
			yield(Page{}, eris.Wrap(err, "raster: create work dir"))
			return
		}
		defer os.RemoveAll(dir)

		src := filepath.Join(dir, "input.pdf")
		if err := os.WriteFile(src, pdf, 0o600); err != nil {
			yield(Page{}, eris.Wrap(err, "raster: stage document"))
			return
		}

		for i := 1; i <= n; i++ {
			if err := ctx.Err(); err != nil {
				yield(Page{}, err)
				return
			}
			page, err := r.renderPage(ctx, src, dir, i, scale)
			if err != nil {
				if !yield(Page{Number: i}, err) {
					return
				}
				continue
			}
			if !yield(page, nil) {
				return
			}
		}
	}
}

func (r *Renderer) renderPage(ctx context.Context, src, dir string, num int, scale float64) (Page, error) {
	prefix := filepath.Join(dir, "page-"+strconv.Itoa(num))
	page := strconv.Itoa(num)

	cmd := exec.CommandContext(ctx, r.bin,
		"-jpeg",
		"-jpegopt", "quality="+strconv.Itoa(r.quality),
		"-r", strconv.FormatFloat(basePPI*scale, 'f', -1, 64),
		"-f", page, "-l", page,
		"-singlefile",
		src, prefix,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Page{}, &PageRenderError{Page: num, Err: eris.Wrapf(err, "pdftoppm: %s", stderr.String())}
	}

	out := prefix + ".jpg"
	defer os.Remove(out)
	data, err := os.ReadFile(out)
	if err != nil {
		return Page{}, &PageRenderError{Page: num, Err: eris.Wrap(err, "read output")}
	}
	if len(data) == 0 {
		return Page{}, &PageRenderError{Page: num, Err: eris.New("empty output")}
	}
	return Page{Number: num, MediaType: "image/jpeg", Data: data}, nil
}

// PagePolicy decides what RenderAll does with a failed page.
type PagePolicy int

const (
	// SkipFailedPages drops failed pages and reports them as warnings.
	SkipFailedPages PagePolicy = iota
	// AbortOnPageError stops at the first failed page.
	AbortOnPageError
)

// RenderAll renders every page of pdf. With SkipFailedPages the failed
// pages are returned as warnings; if none rendered at all the document is
// treated as unreadable.
func (r *Renderer) RenderAll(ctx context.Context, pdf []byte, scale float64, policy PagePolicy) ([]Page, []error, error) {
	var (
		pages    []Page
		warnings []error
	)
	for page, err := range r.Pages(ctx, pdf, scale) {
		if err == nil {
			pages = append(pages, page)
			continue
		}
		var pe *PageRenderError
		if !errors.As(err, &pe) || policy == AbortOnPageError {
			return nil, warnings, err
		}
		zap.L().Warn("raster: skipping page", zap.Int("page", pe.Page), zap.Error(pe.Err))
		warnings = append(warnings, err)
	}
	if len(pages) == 0 {
		return nil, warnings, &DocumentParseError{Err: eris.Errorf("none of %d page(s) could be rendered", len(warnings))}
	}
	return pages, warnings, nil
}

// Thumbnail renders the first page at the renderer's thumbnail scale.
func (r *Renderer) Thumbnail(ctx context.Context, pdf []byte) (Page, error) {
	for page, err := range r.Pages(ctx, pdf, r.thumb) {
		return page, err
	}
	return Page{}, &DocumentParseError{Err: eris.New("document has no pages")}
}

// Generation hands out tickets so that only the most recent of several
// overlapping renders commits its result.
type Generation struct {
	n atomic.Uint64
}

// Begin starts a new generation, superseding every earlier ticket.
func (g *Generation) Begin() uint64 { return g.n.Add(1) }

// Current reports whether ticket is still the latest generation.
func (g *Generation) Current(ticket uint64) bool { return g.n.Load() == ticket }
