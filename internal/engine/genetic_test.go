package engine

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/polynest/internal/geometry"
	"github.com/piwi3910/polynest/internal/model"
	"github.com/piwi3910/polynest/internal/nfp"
)

func TestSolve_PerfectTiling(t *testing.T) {
	parts := []model.Part{model.NewRectPart("Sq", 50, 50, 8)}
	sheet := model.NewSheet("S", 200, 100)

	result, err := Solve(parts, sheet, fastConfig())
	require.NoError(t, err)

	assert.Equal(t, 8, result.PlacedCount())
	assert.Empty(t, result.Unplaced)
	assert.InDelta(t, 1.0, result.Utilization, 1e-9)
}

func TestSolve_MixedSizesAllPlaced(t *testing.T) {
	parts := []model.Part{
		model.NewRectPart("A", 80, 60, 1),
		model.NewRectPart("B", 40, 40, 2),
		model.NewRectPart("C", 20, 20, 4),
	}
	sheet := model.NewSheet("S", 300, 200)
	cfg := fastConfig()
	cfg.RotationCount = 4

	result, err := Solve(parts, sheet, cfg)
	require.NoError(t, err)

	assert.Equal(t, 7, result.PlacedCount())
	assert.Empty(t, result.Unplaced)
	assert.Positive(t, result.Utilization)
	assert.LessOrEqual(t, result.Utilization, 1.0)
	assertNoBoxOverlap(t, result.Placements)
}

func TestSolve_DefaultRotationsNeverOverlap(t *testing.T) {
	// The default config explores four rotations, so the solver commits
	// placements computed from rotated fit polygons; none of them may
	// overlap, no matter which rotations the search settles on.
	parts := []model.Part{model.NewRectPart("Sq", 50, 50, 4)}
	sheet := model.NewSheet("S", 200, 100)
	cfg := model.DefaultConfig()
	cfg.Workers = 1

	result, err := Solve(parts, sheet, cfg)
	require.NoError(t, err)

	assert.Equal(t, 4, result.PlacedCount())
	assert.Empty(t, result.Unplaced)
	assertNoBoxOverlap(t, result.Placements)

	cfg.Spacing = 5
	spaced, err := Solve([]model.Part{model.NewRectPart("Sq", 50, 50, 2)}, sheet, cfg)
	require.NoError(t, err)
	require.Equal(t, 2, spaced.PlacedCount())
	assertNoBoxOverlap(t, spaced.Placements)

	b0 := spaced.Placements[0].Outline.Bounds()
	b1 := spaced.Placements[1].Outline.Bounds()
	gap := math.Max(
		math.Max(b1.MinX-b0.MaxX, b0.MinX-b1.MaxX),
		math.Max(b1.MinY-b0.MaxY, b0.MinY-b1.MaxY))
	assert.GreaterOrEqual(t, gap, 5.0-1e-6, "spacing holds for rotated variants")
}

func TestSolve_SameSeedSameLayout(t *testing.T) {
	parts := []model.Part{
		model.NewRectPart("A", 60, 40, 2),
		model.NewRectPart("B", 30, 50, 2),
	}
	sheet := model.NewSheet("S", 200, 100)
	cfg := fastConfig()
	cfg.RotationCount = 4
	cfg.Workers = 4 // parallel evaluation must not affect the outcome

	first, err := Solve(parts, sheet, cfg)
	require.NoError(t, err)
	second, err := Solve(parts, sheet, cfg)
	require.NoError(t, err)

	require.Equal(t, len(first.Placements), len(second.Placements))
	for i := range first.Placements {
		assert.Equal(t, first.Placements[i].X, second.Placements[i].X)
		assert.Equal(t, first.Placements[i].Y, second.Placements[i].Y)
		assert.Equal(t, first.Placements[i].Rotation, second.Placements[i].Rotation)
	}
	assert.Equal(t, first.Fitness, second.Fitness)
	assert.Equal(t, first.Order, second.Order)
}

func TestSolve_ProgressReportsMonotonicBest(t *testing.T) {
	parts := []model.Part{model.NewRectPart("Sq", 30, 30, 6)}
	sheet := model.NewSheet("S", 200, 100)
	cfg := fastConfig()
	cfg.StallLimit = 0 // run the full budget

	var stats []GenerationStats
	_, err := SolveWithProgress(parts, sheet, cfg, func(s GenerationStats) {
		stats = append(stats, s)
	})
	require.NoError(t, err)
	require.Len(t, stats, cfg.MaxGenerations)

	for i := 1; i < len(stats); i++ {
		assert.LessOrEqual(t, stats[i].BestEver, stats[i-1].BestEver,
			"elitism forbids the best-ever fitness from regressing")
		assert.Equal(t, i, stats[i].Generation)
	}
	for _, s := range stats {
		assert.GreaterOrEqual(t, s.MeanFitness, s.BestFitness*(1-1e-12))
	}
}

func TestSolve_StallLimitStopsEarly(t *testing.T) {
	// A single square converges immediately, so the stall limit kicks in.
	parts := []model.Part{model.NewRectPart("Sq", 50, 50, 1)}
	sheet := model.NewSheet("S", 200, 100)
	cfg := fastConfig()
	cfg.MaxGenerations = 100
	cfg.StallLimit = 3

	generations := 0
	_, err := SolveWithProgress(parts, sheet, cfg, func(GenerationStats) {
		generations++
	})
	require.NoError(t, err)
	assert.Less(t, generations, cfg.MaxGenerations)
}

func TestSolve_InvalidConfig(t *testing.T) {
	cfg := fastConfig()
	cfg.PopulationSize = 0

	_, err := Solve([]model.Part{model.NewRectPart("A", 10, 10, 1)}, model.NewSheet("S", 100, 100), cfg)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}

func TestSolve_DegenerateSheet(t *testing.T) {
	sheet := model.Sheet{ID: "s", Label: "Line", Outline: geometry.Polygon{
		{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 200, Y: 0},
	}}

	_, err := Solve([]model.Part{model.NewRectPart("A", 10, 10, 1)}, sheet, fastConfig())
	assert.ErrorIs(t, err, geometry.ErrDegenerate)
}

func TestSolve_DegeneratePart(t *testing.T) {
	bad := model.Part{ID: "x", Label: "Bad", Quantity: 1, Outline: geometry.Polygon{
		{X: 0, Y: 0}, {X: 5, Y: 5},
	}}

	_, err := Solve([]model.Part{bad}, model.NewSheet("S", 100, 100), fastConfig())
	assert.ErrorIs(t, err, geometry.ErrDegenerate)
}

func TestSolve_NoParts(t *testing.T) {
	result, err := Solve(nil, model.NewSheet("S", 100, 100), fastConfig())
	require.NoError(t, err)
	assert.Zero(t, result.PlacedCount())
	assert.Empty(t, result.Unplaced)
	assert.Zero(t, result.Utilization)
}

func TestSolve_NothingFitsIsNotAnError(t *testing.T) {
	parts := []model.Part{model.NewRectPart("Huge", 500, 500, 2)}
	result, err := Solve(parts, model.NewSheet("S", 100, 100), fastConfig())
	require.NoError(t, err)

	assert.Zero(t, result.PlacedCount())
	assert.Len(t, result.Unplaced, 2)
	assert.Zero(t, result.Utilization)
	assert.Positive(t, result.Fitness)
}

func TestCrossover_PreservesPermutation(t *testing.T) {
	parts := []model.Part{model.NewRectPart("A", 10, 10, 6)}
	cfg := fastConfig()
	cfg.RotationCount = 4

	instances, err := prepareInstances(parts, cfg)
	require.NoError(t, err)

	s := newTestSolver(t, instances, cfg)
	population := s.initPopulation()

	for trial := 0; trial < 50; trial++ {
		p1 := population[trial%len(population)]
		p2 := population[(trial+1)%len(population)]
		child := s.crossover(p1, p2)

		require.Len(t, child.genes, len(instances))
		seen := make(map[int]bool, len(child.genes))
		for _, g := range child.genes {
			assert.False(t, seen[g.instance], "instance %d duplicated", g.instance)
			seen[g.instance] = true
			assert.Less(t, g.step, len(instances[g.instance].variants))
		}
	}
}

func TestMutate_KeepsChromosomeValid(t *testing.T) {
	parts := []model.Part{model.NewRectPart("A", 10, 10, 5)}
	cfg := fastConfig()
	cfg.RotationCount = 4
	cfg.MutationRate = 100 // force both mutations every call

	instances, err := prepareInstances(parts, cfg)
	require.NoError(t, err)

	s := newTestSolver(t, instances, cfg)
	c := s.initPopulation()[0]

	for i := 0; i < 100; i++ {
		s.mutate(&c)
		seen := make(map[int]bool, len(c.genes))
		for _, g := range c.genes {
			require.False(t, seen[g.instance])
			seen[g.instance] = true
			require.GreaterOrEqual(t, g.step, 0)
			require.Less(t, g.step, len(instances[g.instance].variants))
		}
	}
}

func newTestSolver(t *testing.T, instances []instance, cfg model.Config) *solver {
	t.Helper()
	sheet := model.NewSheet("S", 1000, 1000)
	return &solver{
		cfg:       cfg,
		instances: instances,
		eval:      NewEvaluator(sheet, instances, nfp.NewCache()),
		rng:       rand.New(rand.NewSource(cfg.Seed)),
	}
}
