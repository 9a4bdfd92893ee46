package engine

import (
	"github.com/piwi3910/polynest/internal/model"
)

// SheetOption is one candidate sheet for a comparison run.
type SheetOption struct {
	Name  string
	Sheet model.Sheet
}

// SheetReport holds the nesting result and derived statistics for a single
// candidate sheet.
type SheetReport struct {
	Option        SheetOption
	Result        model.NestResult
	PlacedCount   int
	UnplacedCount int
	Utilization   float64 // percent
	WastePercent  float64
	// PartsPerArea normalizes the placed count by sheet area, so sheets of
	// different sizes compare fairly.
	PartsPerArea float64
}

// CompareSheets nests the same part list onto each candidate sheet and
// returns a report per sheet, in input order, plus the index of the best
// option. Best means fewest unplaced parts, with higher utilization
// breaking ties. An empty option list returns best = -1.
func CompareSheets(options []SheetOption, parts []model.Part, cfg model.Config) ([]SheetReport, int, error) {
	reports := make([]SheetReport, 0, len(options))
	best := -1

	for _, opt := range options {
		result, err := Solve(parts, opt.Sheet, cfg)
		if err != nil {
			return nil, -1, err
		}

		report := SheetReport{
			Option:        opt,
			Result:        result,
			PlacedCount:   result.PlacedCount(),
			UnplacedCount: len(result.Unplaced),
			Utilization:   result.UtilizationPercent(),
			WastePercent:  100 - result.UtilizationPercent(),
		}
		if area := opt.Sheet.Area(); area > 0 {
			report.PartsPerArea = float64(report.PlacedCount) / area
		}
		reports = append(reports, report)

		if best < 0 || better(report, reports[best]) {
			best = len(reports) - 1
		}
	}
	return reports, best, nil
}

func better(a, b SheetReport) bool {
	if a.UnplacedCount != b.UnplacedCount {
		return a.UnplacedCount < b.UnplacedCount
	}
	return a.Utilization > b.Utilization
}
