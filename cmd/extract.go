package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/inspection-review/internal/extract"
	"github.com/sells-group/inspection-review/internal/model"
	"github.com/sells-group/inspection-review/internal/prefill"
	"github.com/sells-group/inspection-review/internal/raster"
	"github.com/sells-group/inspection-review/internal/review"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file.pdf>",
	Short: "Extract an inspection record from a PDF and print it as JSON",
	Long:  "Rasterizes the PDF, reads its form fields as hints, and sends the pages to the extraction service. Hints given as flags take precedence over form fields.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("extract"); err != nil {
			return err
		}

		pdf, err := readPDFFile(args[0])
		if err != nil {
			return err
		}
		matcher, err := initMatcher()
		if err != nil {
			return err
		}

		renderer, err := initRenderer()
		if err != nil {
			return err
		}

		data, err := runExtract(cmd.Context(), pdf, hintsFromFlags(cmd), renderer, matcher, initExtractor())
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, data)
	},
}

var fieldsCmd = &cobra.Command{
	Use:   "fields <file.pdf>",
	Short: "Print a PDF's form fields and the hints matched from them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pdf, err := readPDFFile(args[0])
		if err != nil {
			return err
		}
		matcher, err := initMatcher()
		if err != nil {
			return err
		}

		fields, err := prefill.ReadFields(pdf)
		if err != nil {
			return err
		}
		if fields == nil {
			fields = []prefill.Field{}
		}
		res := matcher.Match(fields)
		return printJSON(os.Stdout, map[string]any{
			"fields":         fields,
			"prefill":        res,
			"acroFormStatus": res.Status(),
		})
	},
}

var renderCmd = &cobra.Command{
	Use:   "render <file.pdf>",
	Short: "Render PDF pages to JPEG files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("render"); err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")
		scale, _ := cmd.Flags().GetFloat64("scale")
		if scale <= 0 {
			scale = cfg.Raster.ExtractionScale
		}

		pdf, err := readPDFFile(args[0])
		if err != nil {
			return err
		}
		renderer, err := initRenderer()
		if err != nil {
			return err
		}
		pages, warnings, err := renderer.RenderAll(cmd.Context(), pdf, scale, pagePolicy())
		if err != nil {
			return err
		}
		for _, w := range warnings {
			fmt.Fprintln(os.Stderr, "warning:", w)
		}

		paths, err := writePages(out, pages)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Println(p)
		}
		return nil
	},
}

func readPDFFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	return data, nil
}

// hintFlags maps flag names onto hint keys.
var hintFlags = []struct {
	flag  string
	key   model.HintKey
	usage string
}{
	{"facility", model.HintFacilityName, "facility name hint"},
	{"address", model.HintFacilityAddress, "facility address hint"},
	{"permit", model.HintPermitNumber, "permit number hint"},
	{"date", model.HintInspectionDate, "inspection date hint"},
	{"inspector", model.HintInspectorName, "inspector name hint"},
	{"weather", model.HintWeatherConditions, "weather conditions hint"},
}

func hintsFromFlags(cmd *cobra.Command) model.FieldHints {
	var h model.FieldHints
	for _, hf := range hintFlags {
		v, _ := cmd.Flags().GetString(hf.flag)
		h.Set(hf.key, v)
	}
	return h
}

// runExtract matches form fields, renders pdf, and calls the extractor
// once. Form hints are used only when no hint flags were given; otherwise
// they are logged and the flags are sent as typed.
func runExtract(ctx context.Context, pdf []byte, hints model.FieldHints, r review.Rasterizer, p review.Prefiller, ex extract.Extractor) (*model.InspectionData, error) {
	pre := p.Extract(pdf)
	userHints := !hints.IsEmpty()
	if !userHints {
		hints = pre.Hints
	}
	zap.L().Info("prefill",
		zap.String("acroform", string(pre.Status())),
		zap.Bool("user_hints", userHints),
		zap.Bool("hints", !hints.IsEmpty()),
	)
	if userHints && !pre.Hints.IsEmpty() {
		zap.L().Info("prefill: form hints not applied", zap.Any("form_hints", pre.Hints))
	}

	pages, warnings, err := r.RenderAll(ctx, pdf, cfg.Raster.ExtractionScale, pagePolicy())
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		zap.L().Warn("page skipped", zap.Error(w))
	}
	return ex.Extract(ctx, pages, hints)
}

// writePages writes each page as page-NNN.jpg under dir.
func writePages(dir string, pages []raster.Page) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "create %s", dir)
	}
	paths := make([]string, 0, len(pages))
	for _, pg := range pages {
		p := filepath.Join(dir, fmt.Sprintf("page-%03d.jpg", pg.Number))
		if err := os.WriteFile(p, pg.Data, 0o644); err != nil {
			return nil, eris.Wrapf(err, "write %s", p)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode json")
}

func init() {
	for _, hf := range hintFlags {
		extractCmd.Flags().String(hf.flag, "", hf.usage)
	}
	renderCmd.Flags().String("out", "pages", "output directory")
	renderCmd.Flags().Float64("scale", 0, "render scale (default from config)")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(fieldsCmd)
	rootCmd.AddCommand(renderCmd)
}
