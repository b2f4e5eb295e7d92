package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/inspection-review/internal/model"
	"github.com/sells-group/inspection-review/internal/raster"
)

type fakeRasterizer struct {
	scale float64
}

func (f *fakeRasterizer) RenderAll(_ context.Context, _ []byte, scale float64, _ raster.PagePolicy) ([]raster.Page, []error, error) {
	f.scale = scale
	return []raster.Page{{Number: 1, MediaType: "image/jpeg", Data: []byte{0xFF, 0xD8}}}, nil, nil
}

func (f *fakeRasterizer) Thumbnail(context.Context, []byte) (raster.Page, error) {
	return raster.Page{}, nil
}

type fakePrefiller struct {
	res model.PrefillResult
}

func (f fakePrefiller) Extract([]byte) model.PrefillResult { return f.res }

type fakeExtractor struct {
	hints model.FieldHints
	pages int
}

func (f *fakeExtractor) Extract(_ context.Context, pages []raster.Page, hints model.FieldHints) (*model.InspectionData, error) {
	f.hints = hints
	f.pages = len(pages)
	d := model.NewInspectionData()
	d.FacilityName = hints.FacilityName
	return d, nil
}

func TestRunExtract_FlagHintsReplaceFormHints(t *testing.T) {
	withConfig(t, testConfig(t))

	r := &fakeRasterizer{}
	p := fakePrefiller{res: model.PrefillResult{
		HasAcroForm:  true,
		AnyPrefilled: true,
		Hints:        model.FieldHints{FacilityName: "From Form", PermitNumber: "TXR150000"},
	}}
	ex := &fakeExtractor{}

	d, err := runExtract(context.Background(), []byte("%PDF-1.4"), model.FieldHints{FacilityName: "From Flag"}, r, p, ex)
	require.NoError(t, err)

	assert.Equal(t, "From Flag", d.FacilityName)
	assert.Equal(t, model.FieldHints{FacilityName: "From Flag"}, ex.hints)
	assert.Empty(t, ex.hints.PermitNumber)
	assert.Equal(t, 1, ex.pages)
	assert.InDelta(t, 2.0, r.scale, 0.001)
}

func TestRunExtract_FormHintsWithoutFlags(t *testing.T) {
	withConfig(t, testConfig(t))

	form := model.FieldHints{FacilityName: "From Form", PermitNumber: "TXR150000"}
	p := fakePrefiller{res: model.PrefillResult{HasAcroForm: true, AnyPrefilled: true, Hints: form}}
	ex := &fakeExtractor{}

	d, err := runExtract(context.Background(), []byte("%PDF-1.4"), model.FieldHints{}, &fakeRasterizer{}, p, ex)
	require.NoError(t, err)

	assert.Equal(t, "From Form", d.FacilityName)
	assert.Equal(t, form, ex.hints)
}

func TestHintsFromFlags(t *testing.T) {
	cmd := &cobra.Command{}
	for _, hf := range hintFlags {
		cmd.Flags().String(hf.flag, "", hf.usage)
	}
	require.NoError(t, cmd.Flags().Set("permit", "TXR150000"))
	require.NoError(t, cmd.Flags().Set("inspector", "Dana Reyes"))

	h := hintsFromFlags(cmd)
	assert.Equal(t, model.FieldHints{PermitNumber: "TXR150000", InspectorName: "Dana Reyes"}, h)
}

func TestWritePages(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := writePages(dir, []raster.Page{
		{Number: 1, Data: []byte("one")},
		{Number: 3, Data: []byte("three")},
	})
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "page-003.jpg"), paths[1])

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, model.FieldHints{PermitNumber: "P-1"}))
	assert.Equal(t, "{\n  \"permitNumber\": \"P-1\"\n}\n", buf.String())
}

func TestReadPDFFile_Missing(t *testing.T) {
	_, err := readPDFFile(filepath.Join(t.TempDir(), "nope.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.pdf")
}
