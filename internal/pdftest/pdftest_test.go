package pdftest

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_XrefOffsetsPointAtObjects(t *testing.T) {
	pdf := Form(Text("Facility Name", "Acme (East)"), Checkbox("Rain", true))

	lines := strings.Split(string(pdf), "\n")
	var xrefAt int
	for i, l := range lines {
		if l == "xref" {
			xrefAt = i
		}
	}
	require.NotZero(t, xrefAt)

	count, err := strconv.Atoi(strings.Fields(lines[xrefAt+1])[1])
	require.NoError(t, err)
	for n := 1; n < count; n++ {
		off, err := strconv.Atoi(strings.Fields(lines[xrefAt+2+n])[0])
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(pdf[off:], []byte(strconv.Itoa(n)+" 0 obj")), "object %d", n)
	}
}

func TestBuild_EscapesLiterals(t *testing.T) {
	pdf := Form(Text("Name", `a(b)\c`))
	assert.Contains(t, string(pdf), `(a\(b\)\\c)`)
}

func TestPages_NoAcroForm(t *testing.T) {
	pdf := Pages(3)
	assert.NotContains(t, string(pdf), "/AcroForm")
	assert.Contains(t, string(pdf), "/Count 3")
}
