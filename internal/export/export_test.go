package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/polynest/internal/geometry"
	"github.com/piwi3910/polynest/internal/model"
)

func sampleResult() (model.NestResult, model.Sheet) {
	sheet := model.NewSheet("Plywood 18mm", 200, 100)

	square := geometry.Polygon{
		{X: 0, Y: 0}, {X: 50, Y: 0}, {X: 50, Y: 50}, {X: 0, Y: 50},
	}
	result := model.NestResult{
		Placements: []model.Placement{
			{PartID: "p1", Label: "Door", Instance: 0, SheetID: sheet.ID, X: 0, Y: 0, Outline: square},
			{PartID: "p1", Label: "Door", Instance: 1, SheetID: sheet.ID, X: 50, Y: 0, Rotation: 90,
				Outline: square.Translate(50, 0)},
		},
		Unplaced:    []model.UnplacedPart{{PartID: "p2", Label: "Shelf", Instance: 0}},
		Utilization: 0.25,
		Fitness:     42,
	}
	return result, sheet
}

func TestExportSVG_WritesValidDocument(t *testing.T) {
	result, sheet := sampleResult()
	path := filepath.Join(t.TempDir(), "layout.svg")

	require.NoError(t, ExportSVG(path, result, sheet))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "<svg")
	assert.Contains(t, content, `viewBox="0 0 200 100"`)
	assert.Contains(t, content, "</svg>")
	assert.Contains(t, content, "Door")
	assert.Contains(t, content, "2 parts placed, 1 unplaced, 25.0% utilization")
	assert.Equal(t, 3, strings.Count(content, "<polygon"), "sheet plus two placements")
}

func TestExportSVG_EscapesLabels(t *testing.T) {
	result, sheet := sampleResult()
	result.Placements[0].Label = `A<B&"C"`
	path := filepath.Join(t.TempDir(), "layout.svg")

	require.NoError(t, ExportSVG(path, result, sheet))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "A&lt;B&amp;&quot;C&quot;")
	assert.NotContains(t, string(data), `>A<B&`)
}

func TestExportJSON_RoundTrips(t *testing.T) {
	result, sheet := sampleResult()
	path := filepath.Join(t.TempDir(), "report.json")

	require.NoError(t, ExportJSON(path, result, sheet))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var report JSONReport
	require.NoError(t, json.Unmarshal(data, &report))

	assert.False(t, report.GeneratedAt.IsZero())
	assert.Equal(t, sheet.Label, report.Sheet.Label)
	require.Len(t, report.Result.Placements, 2)
	assert.Equal(t, "Door", report.Result.Placements[0].Label)
	assert.Equal(t, 90.0, report.Result.Placements[1].Rotation)
	require.Len(t, report.Result.Unplaced, 1)
	assert.Equal(t, "Shelf", report.Result.Unplaced[0].Label)
	assert.Equal(t, 0.25, report.Result.Utilization)
}

func TestExportPNG_WritesImage(t *testing.T) {
	result, sheet := sampleResult()
	path := filepath.Join(t.TempDir(), "layout.png")

	require.NoError(t, ExportPNG(path, result, sheet, 400))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data[:4])
}

func TestExportPNG_DefaultWidth(t *testing.T) {
	result, sheet := sampleResult()
	path := filepath.Join(t.TempDir(), "layout.png")

	require.NoError(t, ExportPNG(path, result, sheet, 0))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestExportPDF_WritesDocument(t *testing.T) {
	result, sheet := sampleResult()
	path := filepath.Join(t.TempDir(), "report.pdf")

	require.NoError(t, ExportPDF(path, result, sheet))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}

func TestExportLabels_WritesDocument(t *testing.T) {
	result, sheet := sampleResult()
	path := filepath.Join(t.TempDir(), "labels.pdf")

	require.NoError(t, ExportLabels(path, result, sheet))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}

func TestExportLabels_NothingPlaced(t *testing.T) {
	_, sheet := sampleResult()
	path := filepath.Join(t.TempDir(), "labels.pdf")

	err := ExportLabels(path, model.NestResult{}, sheet)
	assert.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCollectLabelInfos_NaturalOrder(t *testing.T) {
	sheet := model.NewSheet("S", 100, 100)
	result := model.NestResult{
		Placements: []model.Placement{
			{Label: "Part 10", Instance: 0, X: 1},
			{Label: "Part 2", Instance: 1, Y: 2},
			{Label: "Part 2", Instance: 0, Rotation: 180},
		},
	}

	labels := CollectLabelInfos(result, sheet)
	require.Len(t, labels, 3)

	assert.Equal(t, "Part 2", labels[0].PartLabel)
	assert.Equal(t, 0, labels[0].Instance)
	assert.Equal(t, 180.0, labels[0].Rotation)
	assert.Equal(t, "Part 2", labels[1].PartLabel)
	assert.Equal(t, 1, labels[1].Instance)
	assert.Equal(t, "Part 10", labels[2].PartLabel)
	assert.Equal(t, "S", labels[0].SheetLabel)
}

func TestCentroid(t *testing.T) {
	square := geometry.Polygon{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10},
	}
	c := centroid(square)
	assert.Equal(t, 5.0, c.X)
	assert.Equal(t, 5.0, c.Y)

	assert.Equal(t, geometry.Point{}, centroid(nil))
}

func TestColorForInstance_CyclesPalette(t *testing.T) {
	assert.Equal(t, partColors[0], colorForInstance(0))
	assert.Equal(t, partColors[0], colorForInstance(len(partColors)))
	assert.Equal(t, partColors[3], colorForInstance(len(partColors)+3))
	assert.Equal(t, "#4caf50", colorForInstance(0).hex())
}
