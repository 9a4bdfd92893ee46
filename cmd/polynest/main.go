// PolyNest - Polygon Nesting Optimizer
//
// A command line tool that nests polygonal parts onto a sheet using
// no-fit polygons and a genetic algorithm, then exports the layout.
//
// Build:
//   go build -o polynest ./cmd/polynest
//
// Examples:
//   polynest -parts parts.csv -sheet 2440x1220 -spacing 5 -svg layout.svg
//   polynest -parts shapes.dxf -sheet 1000x500 -pdf report.pdf -labels labels.pdf
//   polynest -parts parts.csv -compare 2440x1220,3050x1525
//   polynest -parts panel.svg -max-qty -sheet 600x400

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/piwi3910/polynest/internal/engine"
	"github.com/piwi3910/polynest/internal/export"
	"github.com/piwi3910/polynest/internal/importer"
	"github.com/piwi3910/polynest/internal/model"
	"github.com/piwi3910/polynest/internal/project"
)

func main() {
	var (
		partsPath   = flag.String("parts", "", "part list file (.csv, .xlsx, .dxf, .svg)")
		sheetSpec   = flag.String("sheet", "2440x1220", "sheet dimensions as WxH")
		sheetLabel  = flag.String("sheet-label", "Sheet", "sheet label used in exports")
		spacing     = flag.Float64("spacing", 0, "minimum distance between parts")
		rotations   = flag.Int("rotations", 4, "number of evenly spaced rotation angles")
		population  = flag.Int("population", 10, "genetic algorithm population size")
		generations = flag.Int("generations", 50, "genetic algorithm generation budget")
		mutation    = flag.Float64("mutation", 10, "mutation rate in percent")
		seed        = flag.Int64("seed", 1, "random seed, same seed gives same layout")
		workers     = flag.Int("workers", 0, "parallel fitness workers, 0 = all CPUs")
		svgPath     = flag.String("svg", "", "write layout SVG to this path")
		pngPath     = flag.String("png", "", "write layout PNG to this path")
		pdfPath     = flag.String("pdf", "", "write PDF report to this path")
		jsonPath    = flag.String("json", "", "write JSON result to this path")
		labelsPath  = flag.String("labels", "", "write QR part labels PDF to this path")
		projectPath = flag.String("save-project", "", "save parts, sheet, config, and result as a project file")
		compareSpec = flag.String("compare", "", "comma separated WxH sheet sizes to compare")
		maxQty      = flag.Bool("max-qty", false, "find the maximum quantity of the first part that fits")
		verbose     = flag.Bool("v", false, "print per-generation progress")
	)
	flag.Parse()

	if *partsPath == "" {
		fmt.Fprintln(os.Stderr, "error: -parts is required")
		flag.Usage()
		os.Exit(2)
	}

	parts, err := loadParts(*partsPath)
	if err != nil {
		fatal(err)
	}

	cfg := model.DefaultConfig()
	cfg.PopulationSize = *population
	cfg.MaxGenerations = *generations
	cfg.RotationCount = *rotations
	cfg.MutationRate = *mutation
	cfg.Spacing = *spacing
	cfg.Seed = *seed
	cfg.Workers = *workers

	if *compareSpec != "" {
		if err := runCompare(*compareSpec, parts, cfg); err != nil {
			fatal(err)
		}
		return
	}

	w, h, err := parseSheetSpec(*sheetSpec)
	if err != nil {
		fatal(err)
	}
	sheet := model.NewSheet(*sheetLabel, w, h)

	if *maxQty {
		qty, result, err := engine.NestMaxQuantity(parts[0], sheet, cfg)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("%s: %d copies fit on %.0fx%.0f (%.1f%% utilization)\n",
			parts[0].Label, qty, w, h, result.UtilizationPercent())
		writeExports(result, sheet, *svgPath, *pngPath, *pdfPath, *jsonPath, *labelsPath)
		return
	}

	var progress engine.ProgressFunc
	if *verbose {
		progress = func(s engine.GenerationStats) {
			fmt.Printf("gen %3d  best %.0f  mean %.0f  stddev %.0f  best-ever %.0f\n",
				s.Generation, s.BestFitness, s.MeanFitness, s.StdDev, s.BestEver)
		}
	}

	result, err := engine.SolveWithProgress(parts, sheet, cfg, progress)
	if err != nil {
		fatal(err)
	}

	fmt.Printf("Placed %d/%d parts, %.1f%% utilization\n",
		result.PlacedCount(), result.PlacedCount()+len(result.Unplaced), result.UtilizationPercent())
	for _, u := range result.Unplaced {
		fmt.Printf("  unplaced: %s (copy %d)\n", u.Label, u.Instance+1)
	}

	writeExports(result, sheet, *svgPath, *pngPath, *pdfPath, *jsonPath, *labelsPath)

	if *projectPath != "" {
		proj := project.New(strings.TrimSuffix(filepath.Base(*projectPath), filepath.Ext(*projectPath)))
		proj.Parts = parts
		proj.Sheet = sheet
		proj.Config = cfg
		proj.Result = &result
		if err := project.Save(*projectPath, proj); err != nil {
			fatal(err)
		}
		fmt.Printf("Project saved to %s\n", *projectPath)
	}
}

// loadParts dispatches on the file extension to the matching importer.
func loadParts(path string) ([]model.Part, error) {
	var res importer.ImportResult
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		res = importer.ImportCSV(path)
	case ".xlsx", ".xls":
		res = importer.ImportExcel(path)
	case ".dxf":
		res = importer.ImportDXF(path)
	case ".svg":
		res = importer.ImportSVG(path)
	default:
		return nil, fmt.Errorf("unsupported part file format: %s", path)
	}

	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	for _, e := range res.Errors {
		fmt.Fprintf(os.Stderr, "error: %s\n", e)
	}
	if len(res.Parts) == 0 {
		return nil, fmt.Errorf("no usable parts in %s", path)
	}
	return res.Parts, nil
}

// parseSheetSpec parses a "WxH" dimension string.
func parseSheetSpec(spec string) (float64, float64, error) {
	fields := strings.SplitN(strings.ToLower(spec), "x", 2)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("invalid sheet spec %q, expected WxH", spec)
	}
	w, errW := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	h, errH := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid sheet spec %q, expected WxH", spec)
	}
	return w, h, nil
}

// runCompare nests the parts on every candidate sheet size and prints a
// comparison table.
func runCompare(spec string, parts []model.Part, cfg model.Config) error {
	var options []engine.SheetOption
	for _, s := range strings.Split(spec, ",") {
		w, h, err := parseSheetSpec(s)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("%.0fx%.0f", w, h)
		options = append(options, engine.SheetOption{
			Name:  name,
			Sheet: model.NewSheet(name, w, h),
		})
	}

	reports, best, err := engine.CompareSheets(options, parts, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("%-12s %8s %10s %12s %8s\n", "Sheet", "Placed", "Unplaced", "Utilization", "Waste")
	for i, r := range reports {
		marker := "  "
		if i == best {
			marker = " *"
		}
		fmt.Printf("%-12s %8d %10d %11.1f%% %7.1f%%%s\n",
			r.Option.Name, r.PlacedCount, r.UnplacedCount, r.Utilization, r.WastePercent, marker)
	}
	return nil
}

// writeExports runs every requested exporter, reporting failures without
// aborting the remaining ones.
func writeExports(result model.NestResult, sheet model.Sheet, svgPath, pngPath, pdfPath, jsonPath, labelsPath string) {
	run := func(name, path string, fn func() error) {
		if path == "" {
			return
		}
		if err := fn(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %s export failed: %v\n", name, err)
			return
		}
		fmt.Printf("%s written to %s\n", name, path)
	}

	run("SVG", svgPath, func() error { return export.ExportSVG(svgPath, result, sheet) })
	run("PNG", pngPath, func() error { return export.ExportPNG(pngPath, result, sheet, 1200) })
	run("PDF", pdfPath, func() error { return export.ExportPDF(pdfPath, result, sheet) })
	run("JSON", jsonPath, func() error { return export.ExportJSON(jsonPath, result, sheet) })
	run("Labels", labelsPath, func() error { return export.ExportLabels(labelsPath, result, sheet) })
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
