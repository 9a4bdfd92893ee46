package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/polynest/internal/model"
)

func TestEstimateMaxQuantity(t *testing.T) {
	part := model.NewRectPart("Sq", 50, 50, 1)
	sheet := model.NewSheet("S", 200, 100)

	assert.Equal(t, 8, EstimateMaxQuantity(part, sheet))
	assert.Equal(t, 0, EstimateMaxQuantity(model.NewRectPart("Huge", 500, 500, 1), sheet))
}

func TestEstimateMaxQuantity_IsAnUpperBound(t *testing.T) {
	// Area admits 7 but geometry only 6: 50x50 squares on 160x120.
	part := model.NewRectPart("Sq", 50, 50, 1)
	sheet := model.NewSheet("S", 160, 120)
	assert.Equal(t, 7, EstimateMaxQuantity(part, sheet))
}

func TestNestMaxQuantity_PerfectTile(t *testing.T) {
	part := model.NewRectPart("Sq", 50, 50, 1)
	sheet := model.NewSheet("S", 100, 100)

	qty, result, err := NestMaxQuantity(part, sheet, fastConfig())
	require.NoError(t, err)

	assert.Equal(t, 4, qty)
	assert.Equal(t, 4, result.PlacedCount())
	assert.Empty(t, result.Unplaced)
	assert.InDelta(t, 1.0, result.Utilization, 1e-9)
}

func TestNestMaxQuantity_GeometryBelowAreaBound(t *testing.T) {
	part := model.NewRectPart("Sq", 50, 50, 1)
	sheet := model.NewSheet("S", 160, 120)

	qty, result, err := NestMaxQuantity(part, sheet, fastConfig())
	require.NoError(t, err)

	assert.Equal(t, 6, qty, "only a 3x2 grid fits despite the area bound of 7")
	assert.Equal(t, 6, result.PlacedCount())
	assert.Empty(t, result.Unplaced)
}

func TestNestMaxQuantity_NothingFits(t *testing.T) {
	part := model.NewRectPart("Big", 300, 300, 1)
	sheet := model.NewSheet("S", 100, 100)

	qty, result, err := NestMaxQuantity(part, sheet, fastConfig())
	require.NoError(t, err)
	assert.Zero(t, qty)
	assert.Zero(t, result.PlacedCount())
}

func TestCompareSheets_PicksTheSheetThatPlacesEverything(t *testing.T) {
	parts := []model.Part{model.NewRectPart("Sq", 50, 50, 4)}
	options := []SheetOption{
		{Name: "small", Sheet: model.NewSheet("small", 60, 60)},
		{Name: "big", Sheet: model.NewSheet("big", 100, 100)},
	}

	reports, best, err := CompareSheets(options, parts, fastConfig())
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, 1, best, "the 100x100 sheet places all four parts")
	assert.Equal(t, 4, reports[1].PlacedCount)
	assert.Zero(t, reports[1].UnplacedCount)
	assert.InDelta(t, 100, reports[1].Utilization, 1e-6)
	assert.InDelta(t, 0, reports[1].WastePercent, 1e-6)
	assert.InDelta(t, 4.0/10000.0, reports[1].PartsPerArea, 1e-12)

	assert.Equal(t, 1, reports[0].PlacedCount, "only one square fits the 60x60 sheet")
	assert.Equal(t, 3, reports[0].UnplacedCount)
}

func TestCompareSheets_UtilizationBreaksTies(t *testing.T) {
	// Both sheets take all parts; the smaller one wins on utilization.
	parts := []model.Part{model.NewRectPart("Sq", 50, 50, 2)}
	options := []SheetOption{
		{Name: "roomy", Sheet: model.NewSheet("roomy", 300, 300)},
		{Name: "snug", Sheet: model.NewSheet("snug", 110, 60)},
	}

	reports, best, err := CompareSheets(options, parts, fastConfig())
	require.NoError(t, err)

	assert.Equal(t, 1, best)
	assert.Zero(t, reports[0].UnplacedCount)
	assert.Zero(t, reports[1].UnplacedCount)
	assert.Greater(t, reports[1].Utilization, reports[0].Utilization)
}

func TestCompareSheets_Empty(t *testing.T) {
	reports, best, err := CompareSheets(nil, nil, fastConfig())
	require.NoError(t, err)
	assert.Empty(t, reports)
	assert.Equal(t, -1, best)
}
