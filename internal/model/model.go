// Package model defines the data types shared between the nesting engine,
// the importers, and the exporters: parts, sheets, placements, results, and
// the solver configuration.
package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/piwi3910/polynest/internal/geometry"
)

// ErrInvalidConfig is wrapped by all configuration validation failures.
var ErrInvalidConfig = errors.New("model: invalid config")

// Part is a polygonal piece to be nested, with a requested number of copies
// and an optional explicit set of allowed rotation angles.
type Part struct {
	ID       string           `json:"id"`
	Label    string           `json:"label"`
	Outline  geometry.Polygon `json:"outline"`
	Quantity int              `json:"quantity"`
	// Rotations overrides the evenly spaced angle set derived from
	// Config.RotationCount. Angles are degrees counter-clockwise.
	Rotations []float64 `json:"rotations,omitempty"`
}

// NewPart creates a part with a fresh short ID.
func NewPart(label string, outline geometry.Polygon, qty int) Part {
	return Part{
		ID:       uuid.New().String()[:8],
		Label:    label,
		Outline:  outline,
		Quantity: qty,
	}
}

// NewRectPart creates a rectangular part of the given dimensions with its
// bounding box anchored at the origin.
func NewRectPart(label string, w, h float64, qty int) Part {
	return NewPart(label, geometry.Polygon{
		{X: 0, Y: 0},
		{X: w, Y: 0},
		{X: w, Y: h},
		{X: 0, Y: h},
	}, qty)
}

// Area returns the absolute outline area of one copy.
func (p Part) Area() float64 {
	return math.Abs(p.Outline.Area())
}

// Sheet is the placement container. Commonly an axis-aligned rectangle, but
// any simple polygon outline is accepted.
type Sheet struct {
	ID      string           `json:"id"`
	Label   string           `json:"label"`
	Outline geometry.Polygon `json:"outline"`
	Units   string           `json:"units,omitempty"`
}

// NewSheet creates a rectangular sheet with its origin at (0, 0).
func NewSheet(label string, w, h float64) Sheet {
	return Sheet{
		ID:    uuid.New().String()[:8],
		Label: label,
		Outline: geometry.Polygon{
			{X: 0, Y: 0},
			{X: w, Y: 0},
			{X: w, Y: h},
			{X: 0, Y: h},
		},
		Units: "mm",
	}
}

// Width returns the horizontal extent of the sheet outline.
func (s Sheet) Width() float64 { return s.Outline.Bounds().Width() }

// Height returns the vertical extent of the sheet outline.
func (s Sheet) Height() float64 { return s.Outline.Bounds().Height() }

// Area returns the absolute outline area.
func (s Sheet) Area() float64 { return math.Abs(s.Outline.Area()) }

// IsRectangular reports whether the outline is exactly its bounding box.
func (s Sheet) IsRectangular() bool {
	if len(s.Outline) != 4 {
		return false
	}
	b := s.Outline.Bounds()
	for _, pt := range s.Outline {
		onX := pt.X == b.MinX || pt.X == b.MaxX
		onY := pt.Y == b.MinY || pt.Y == b.MaxY
		if !onX || !onY {
			return false
		}
	}
	return true
}

// Config holds the genetic solver parameters.
type Config struct {
	PopulationSize int     `json:"population_size"` // individuals per generation
	MaxGenerations int     `json:"max_generations"` // hard generation budget
	RotationCount  int     `json:"rotation_count"`  // evenly spaced allowed angles
	MutationRate   float64 `json:"mutation_rate"`   // percent, 0..100
	Spacing        float64 `json:"spacing"`         // minimum part separation
	TournamentSize int     `json:"tournament_size"` // parent selection pressure
	StallLimit     int     `json:"stall_limit"`     // stop after N stale generations, 0 = never
	Workers        int     `json:"workers"`         // parallel evaluations, 0 = NumCPU
	Seed           int64   `json:"seed"`            // RNG seed for reproducible runs
}

// DefaultConfig returns the standard solver parameters.
func DefaultConfig() Config {
	return Config{
		PopulationSize: 10,
		MaxGenerations: 50,
		RotationCount:  4,
		MutationRate:   10,
		Spacing:        0,
		TournamentSize: 3,
		StallLimit:     10,
		Workers:        0,
		Seed:           1,
	}
}

// Validate checks the configuration, wrapping ErrInvalidConfig on failure.
func (c Config) Validate() error {
	if c.PopulationSize <= 0 {
		return fmt.Errorf("%w: population size %d must be positive", ErrInvalidConfig, c.PopulationSize)
	}
	if c.MaxGenerations <= 0 {
		return fmt.Errorf("%w: max generations %d must be positive", ErrInvalidConfig, c.MaxGenerations)
	}
	if c.RotationCount <= 0 {
		return fmt.Errorf("%w: rotation count %d must be positive", ErrInvalidConfig, c.RotationCount)
	}
	if c.MutationRate < 0 || c.MutationRate > 100 {
		return fmt.Errorf("%w: mutation rate %g%% outside [0,100]", ErrInvalidConfig, c.MutationRate)
	}
	if c.Spacing < 0 {
		return fmt.Errorf("%w: spacing %g must not be negative", ErrInvalidConfig, c.Spacing)
	}
	if c.TournamentSize <= 0 {
		return fmt.Errorf("%w: tournament size %d must be positive", ErrInvalidConfig, c.TournamentSize)
	}
	if c.StallLimit < 0 {
		return fmt.Errorf("%w: stall limit %d must not be negative", ErrInvalidConfig, c.StallLimit)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers %d must not be negative", ErrInvalidConfig, c.Workers)
	}
	return nil
}

// AppConfig holds user-level application state persisted between runs.
type AppConfig struct {
	RecentProjects []string `json:"recent_projects"`
	LastImportDir  string   `json:"last_import_dir,omitempty"`
	LastExportDir  string   `json:"last_export_dir,omitempty"`
	Solver         Config   `json:"solver"`
}

// DefaultAppConfig returns the application config used on first run.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		RecentProjects: []string{},
		Solver:         DefaultConfig(),
	}
}

// AddRecentProject prepends path to the recent list, dropping duplicates
// and keeping at most ten entries.
func (c *AppConfig) AddRecentProject(path string) {
	recent := []string{path}
	for _, p := range c.RecentProjects {
		if p != path && len(recent) < 10 {
			recent = append(recent, p)
		}
	}
	c.RecentProjects = recent
}

// Placement is one committed part position. The part's outline, rotated by
// Rotation degrees about the origin and then translated by (X, Y), does not
// overlap the sheet boundary or any earlier placement.
type Placement struct {
	PartID   string  `json:"part_id"`
	Label    string  `json:"label"`
	Instance int     `json:"instance"` // copy number, 0-based
	SheetID  string  `json:"sheet_id"`
	Rotation float64 `json:"rotation"` // degrees CCW
	X        float64 `json:"x"`
	Y        float64 `json:"y"`

	// Outline is the part outline in sheet coordinates.
	Outline geometry.Polygon `json:"outline"`
}

// UnplacedPart records a part instance that could not be placed. Not an
// error: it contributes to the fitness score instead.
type UnplacedPart struct {
	PartID   string `json:"part_id"`
	Label    string `json:"label"`
	Instance int    `json:"instance"`
}

// NestResult is the outcome of evaluating one chromosome, or of a whole
// solve (in which case it belongs to the best chromosome ever seen).
type NestResult struct {
	Placements []Placement    `json:"placements"`
	Unplaced   []UnplacedPart `json:"unplaced"`

	// Utilization is placed part area over sheet area, in [0, 1].
	Utilization float64 `json:"utilization"`

	// Fitness is the scalarized lexicographic score: unplaced count
	// dominates, the bounding-box area of the placed set breaks ties.
	// Lower is better.
	Fitness float64 `json:"fitness"`

	// Order and RotationSteps are the chromosome that produced this
	// result: a permutation of part-instance indices and the chosen
	// rotation step per instance.
	Order         []int `json:"order,omitempty"`
	RotationSteps []int `json:"rotation_steps,omitempty"`
}

// PlacedCount returns the number of committed placements.
func (r NestResult) PlacedCount() int { return len(r.Placements) }

// UtilizationPercent returns the utilization as a percentage.
func (r NestResult) UtilizationPercent() float64 { return r.Utilization * 100 }

// PlacedBounds returns the bounding box covering all placed outlines.
func (r NestResult) PlacedBounds() geometry.Rect {
	if len(r.Placements) == 0 {
		return geometry.Rect{}
	}
	b := r.Placements[0].Outline.Bounds()
	for _, p := range r.Placements[1:] {
		b = b.Union(p.Outline.Bounds())
	}
	return b
}
