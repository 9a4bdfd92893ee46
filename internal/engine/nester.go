package engine

import (
	"math"

	"github.com/piwi3910/polynest/internal/model"
)

// EstimateMaxQuantity returns an area-based upper bound on how many copies
// of the part can fit the sheet. The true maximum is never higher, so it is
// a safe starting point for NestMaxQuantity's descent.
func EstimateMaxQuantity(part model.Part, sheet model.Sheet) int {
	area := part.Area()
	if area <= 0 {
		return 0
	}
	return int(math.Floor(sheet.Area() / area))
}

// NestMaxQuantity finds the largest number of copies of a single part that
// actually nests on the sheet. It starts from the area bound and walks the
// quantity down until a solve places every copy, returning that result. The
// part's own Quantity field is ignored.
func NestMaxQuantity(part model.Part, sheet model.Sheet, cfg model.Config) (int, model.NestResult, error) {
	qty := EstimateMaxQuantity(part, sheet)
	for ; qty > 0; qty-- {
		p := part
		p.Quantity = qty
		result, err := Solve([]model.Part{p}, sheet, cfg)
		if err != nil {
			return 0, model.NestResult{}, err
		}
		if len(result.Unplaced) == 0 {
			return qty, result, nil
		}
		// A solve that placed fewer than requested still tells us where
		// the next attempt should start: the loop decrement lands on
		// placed+1, the first quantity not yet ruled out.
		if placed := result.PlacedCount(); placed+2 < qty {
			qty = placed + 2
		}
	}
	return 0, model.NestResult{}, nil
}
