package importer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectCSVDelimiter(t *testing.T) {
	cases := map[string]struct {
		data string
		want rune
	}{
		"comma":     {"a,b,c\n1,2,3\n", ','},
		"semicolon": {"a;b;c\n1;2;3\n", ';'},
		"tab":       {"a\tb\tc\n1\t2\t3\n", '\t'},
		"pipe":      {"a|b|c\n1|2|3\n", '|'},
	}
	for name, tc := range cases {
		got := DetectCSVDelimiter([]byte(tc.data))
		assert.Equal(t, tc.want, got, name)
	}
}

func TestDetectColumns_HeaderAliases(t *testing.T) {
	mapping, hasHeader := DetectColumns([]string{"Name", "W", "H", "Qty"})
	require.True(t, hasHeader)
	assert.Equal(t, 0, mapping.Label)
	assert.Equal(t, 1, mapping.Width)
	assert.Equal(t, 2, mapping.Height)
	assert.Equal(t, 3, mapping.Quantity)
}

func TestDetectColumns_ShuffledHeader(t *testing.T) {
	mapping, hasHeader := DetectColumns([]string{"quantity", "height", "width", "label"})
	require.True(t, hasHeader)
	assert.Equal(t, 3, mapping.Label)
	assert.Equal(t, 2, mapping.Width)
	assert.Equal(t, 1, mapping.Height)
	assert.Equal(t, 0, mapping.Quantity)
}

func TestDetectColumns_NoHeaderFallsBackToPositional(t *testing.T) {
	mapping, hasHeader := DetectColumns([]string{"Shelf", "600", "400", "2"})
	assert.False(t, hasHeader)
	assert.Equal(t, 0, mapping.Label)
	assert.Equal(t, 1, mapping.Width)
	assert.Equal(t, 2, mapping.Height)
	assert.Equal(t, 3, mapping.Quantity)
}

func TestImportCSVFromReader_WithHeader(t *testing.T) {
	csv := strings.Join([]string{
		"Label,Width,Height,Quantity",
		"Door,600,720,2",
		"Side,500,720,4",
		"",
		"Shelf,564,300,3",
	}, "\n")

	result := ImportCSVFromReader(strings.NewReader(csv), ',')

	require.Empty(t, result.Errors)
	require.Len(t, result.Parts, 3)

	door := result.Parts[0]
	assert.Equal(t, "Door", door.Label)
	assert.Equal(t, 2, door.Quantity)
	assert.InDelta(t, 600*720, door.Area(), 1e-9)

	b := door.Outline.Bounds()
	assert.Equal(t, 600.0, b.MaxX)
	assert.Equal(t, 720.0, b.MaxY)
}

func TestImportCSVFromReader_BadRowsAreReportedNotFatal(t *testing.T) {
	csv := strings.Join([]string{
		"Label,Width,Height,Quantity",
		"Good,100,50,1",
		"NoWidth,,50,1",
		"BadQty,100,50,xyz",
		"Negative,-5,50,1",
	}, "\n")

	result := ImportCSVFromReader(strings.NewReader(csv), ',')

	assert.Len(t, result.Parts, 1)
	assert.Len(t, result.Errors, 3)
	for _, e := range result.Errors {
		assert.Contains(t, e, "Line")
	}
}

func TestImportCSV_SemicolonFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "parts.csv")
	content := "Label;Width;Height;Quantity\nPanel;800;400;2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	result := ImportCSV(path)

	require.Empty(t, result.Errors)
	require.Len(t, result.Parts, 1)
	assert.Equal(t, "Panel", result.Parts[0].Label)
	assert.NotEmpty(t, result.Warnings, "delimiter detection is surfaced as a warning")
}

func TestImportCSV_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0644))

	result := ImportCSV(path)
	assert.NotEmpty(t, result.Errors)
	assert.Empty(t, result.Parts)
}

func TestImportCSV_MissingFile(t *testing.T) {
	result := ImportCSV(filepath.Join(t.TempDir(), "nope.csv"))
	assert.NotEmpty(t, result.Errors)
}

func TestImportSVG_BasicShapes(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg">
  <rect x="10" y="10" width="100" height="50"/>
  <polygon points="0,0 40,0 20,30"/>
  <circle cx="50" cy="50" r="25"/>
</svg>`
	dir := t.TempDir()
	path := filepath.Join(dir, "shapes.svg")
	require.NoError(t, os.WriteFile(path, []byte(svg), 0644))

	result := ImportSVG(path)
	require.Empty(t, result.Errors)
	require.Len(t, result.Parts, 3)

	// The rect part is normalized to the origin.
	b := result.Parts[0].Outline.Bounds()
	assert.Equal(t, 0.0, b.MinX)
	assert.Equal(t, 0.0, b.MinY)
	assert.InDelta(t, 100, b.Width(), 1e-9)
	assert.InDelta(t, 50, b.Height(), 1e-9)

	// The triangle keeps its area.
	assert.InDelta(t, 600, result.Parts[1].Area(), 1e-6)

	// The circle is approximated within the curve tolerance.
	circle := result.Parts[2]
	cb := circle.Outline.Bounds()
	assert.InDelta(t, 50, cb.Width(), 2*svgCurveTolerance)
	assert.InDelta(t, 50, cb.Height(), 2*svgCurveTolerance)
}

func TestImportSVG_PathCommands(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg">
  <path d="M 0 0 L 60 0 L 60 40 H 0 Z"/>
</svg>`
	dir := t.TempDir()
	path := filepath.Join(dir, "path.svg")
	require.NoError(t, os.WriteFile(path, []byte(svg), 0644))

	result := ImportSVG(path)
	require.Empty(t, result.Errors)
	require.Len(t, result.Parts, 1)
	assert.InDelta(t, 2400, result.Parts[0].Area(), 1e-6)
}

func TestImportSVG_RelativePathCommands(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg">
  <path d="m 10 10 l 50 0 l 0 30 l -50 0 z"/>
</svg>`
	dir := t.TempDir()
	path := filepath.Join(dir, "rel.svg")
	require.NoError(t, os.WriteFile(path, []byte(svg), 0644))

	result := ImportSVG(path)
	require.Empty(t, result.Errors)
	require.Len(t, result.Parts, 1)
	assert.InDelta(t, 1500, result.Parts[0].Area(), 1e-6)
}

func TestImportSVG_NoShapes(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg"><desc>empty</desc></svg>`
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.svg")
	require.NoError(t, os.WriteFile(path, []byte(svg), 0644))

	result := ImportSVG(path)
	assert.NotEmpty(t, result.Errors)
	assert.Empty(t, result.Parts)
}

func TestImportSVG_DegenerateShapeSkipped(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg">
  <polygon points="0,0 10,0 20,0"/>
  <rect width="30" height="30"/>
</svg>`
	dir := t.TempDir()
	path := filepath.Join(dir, "degen.svg")
	require.NoError(t, os.WriteFile(path, []byte(svg), 0644))

	result := ImportSVG(path)
	require.Len(t, result.Parts, 1)
	assert.NotEmpty(t, result.Warnings)
}
