package engine

import (
	"errors"
	"math"
	"sort"

	"github.com/piwi3910/polynest/internal/geometry"
	"github.com/piwi3910/polynest/internal/model"
	"github.com/piwi3910/polynest/internal/nfp"
)

// gene is one placement decision: which part instance, at which rotation
// step.
type gene struct {
	instance int
	step     int
}

// chromosome is a candidate solution: an ordering of all part instances
// with a rotation step per gene. Lower fitness is better.
type chromosome struct {
	genes   []gene
	fitness float64
}

// Evaluator deterministically turns a chromosome into a nesting result.
// It is safe for concurrent use: it only reads the prepared instances and
// the sheet, and the fit cache serializes its own writes.
type Evaluator struct {
	sheet       model.Sheet
	rectSheet   bool
	sheetBounds geometry.Rect
	instances   []instance
	cache       *nfp.Cache
}

// NewEvaluator builds an evaluator for one sheet and one prepared instance
// set, sharing the given fit cache.
func NewEvaluator(sheet model.Sheet, instances []instance, cache *nfp.Cache) *Evaluator {
	return &Evaluator{
		sheet:       sheet,
		rectSheet:   sheet.IsRectangular(),
		sheetBounds: sheet.Outline.Bounds(),
		instances:   instances,
		cache:       cache,
	}
}

// placedItem tracks a committed placement during evaluation, keeping the
// inflated outline for subsequent no-fit tests.
type placedItem struct {
	partID   string
	angle    float64
	offset   geometry.Point
	variant  *variant
	instance int
}

// Evaluate processes the chromosome genes in sequence order, placing each
// part instance at the bottom-left-most feasible position, and scores the
// outcome. Identical inputs always produce identical placements: candidate
// positions are ordered by smallest Y, then smallest X, then generation
// order.
func (e *Evaluator) Evaluate(c chromosome) model.NestResult {
	result := model.NestResult{
		Order:         make([]int, len(c.genes)),
		RotationSteps: make([]int, len(c.genes)),
	}
	var placed []placedItem
	var placedArea float64

	for gi, g := range c.genes {
		result.Order[gi] = g.instance
		result.RotationSteps[gi] = g.step

		inst := &e.instances[g.instance]
		v := &inst.variants[g.step%len(inst.variants)]

		pos, ok := e.findPosition(inst, v, placed)
		if !ok {
			result.Unplaced = append(result.Unplaced, model.UnplacedPart{
				PartID:   inst.part.ID,
				Label:    inst.part.Label,
				Instance: inst.copyNum,
			})
			continue
		}

		placed = append(placed, placedItem{
			partID:   inst.part.ID,
			angle:    v.angle,
			offset:   pos,
			variant:  v,
			instance: g.instance,
		})
		placedArea += inst.part.Area()
		result.Placements = append(result.Placements, model.Placement{
			PartID:   inst.part.ID,
			Label:    inst.part.Label,
			Instance: inst.copyNum,
			SheetID:  e.sheet.ID,
			Rotation: v.angle,
			X:        pos.X,
			Y:        pos.Y,
			Outline:  v.outline.Translate(pos.X, pos.Y),
		})
	}

	if sheetArea := e.sheet.Area(); sheetArea > 0 {
		result.Utilization = placedArea / sheetArea
	}
	result.Fitness = e.fitness(result)
	return result
}

// fitness scalarizes the lexicographic (unplaced count, wasted bounding
// area) objective. The placed bounding box never exceeds the sheet box, so
// a penalty of twice the sheet box per unplaced part makes the unplaced
// count strictly dominate.
func (e *Evaluator) fitness(r model.NestResult) float64 {
	penalty := 2 * e.sheetBounds.Area()
	score := float64(len(r.Unplaced)) * penalty
	if len(r.Placements) > 0 {
		score += r.PlacedBounds().Area()
	}
	return score
}

// findPosition computes the feasible region for one part variant and picks
// the bottom-left candidate. Returns false when the part cannot be placed
// in this pass.
func (e *Evaluator) findPosition(inst *instance, v *variant, placed []placedItem) (geometry.Point, bool) {
	ifp, err := e.cache.Get(nfp.Key{
		StationaryID: e.sheet.ID,
		OrbitingID:   inst.part.ID,
		OrbitingRot:  v.angle,
		Inner:        true,
	}, func() (geometry.Polygon, error) {
		return nfp.InnerFitPolygon(e.sheet.Outline, v.inflated)
	})
	if err != nil {
		// Part does not fit the sheet at this rotation; recorded as
		// unplaced, never raised.
		return geometry.Point{}, false
	}

	// No-fit polygons against every committed placement, shifted to each
	// obstacle's position.
	obstacles := make([]geometry.Polygon, 0, len(placed))
	for _, ob := range placed {
		base, err := e.cache.Get(nfp.Key{
			StationaryID:  ob.partID,
			StationaryRot: ob.angle,
			OrbitingID:    inst.part.ID,
			OrbitingRot:   v.angle,
		}, func() (geometry.Polygon, error) {
			return nfp.NoFitPolygon(ob.variant.inflated, v.inflated)
		})
		if errors.Is(err, nfp.ErrNoFit) {
			// No placement is derivable against this obstacle, so the
			// part cannot go anywhere this pass.
			return geometry.Point{}, false
		}
		if err != nil {
			return geometry.Point{}, false
		}
		obstacles = append(obstacles, base.Translate(ob.offset.X, ob.offset.Y))
	}

	candidates := e.collectCandidates(ifp, obstacles)
	for _, cand := range candidates {
		if e.feasible(cand, ifp, obstacles, v) {
			return cand, true
		}
	}
	return geometry.Point{}, false
}

// collectCandidates gathers the candidate reference positions: the inner
// fit vertices, the no-fit vertices lying inside the inner fit region, and
// the intersections of no-fit edges with the inner fit boundary and with
// each other. Candidates are sorted bottom-left first so the first feasible
// one wins.
func (e *Evaluator) collectCandidates(ifp geometry.Polygon, obstacles []geometry.Polygon) []geometry.Point {
	var cands []geometry.Point
	cands = append(cands, ifp...)

	for i, ob := range obstacles {
		for _, pt := range ob {
			if ifp.Contains(pt) {
				cands = append(cands, pt)
			}
		}
		cands = append(cands, nfp.EdgeIntersections(ob, ifp)...)
		for j := i + 1; j < len(obstacles); j++ {
			for _, pt := range nfp.EdgeIntersections(ob, obstacles[j]) {
				if ifp.Contains(pt) {
					cands = append(cands, pt)
				}
			}
		}
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if math.Abs(cands[i].Y-cands[j].Y) > geometry.Tol {
			return cands[i].Y < cands[j].Y
		}
		return cands[i].X < cands[j].X
	})

	// Drop duplicates so the deterministic tie-break is over distinct
	// positions.
	out := cands[:0]
	for _, pt := range cands {
		if len(out) == 0 || !pt.Eq(out[len(out)-1]) {
			out = append(out, pt)
		}
	}
	return out
}

// feasible reports whether the candidate translation keeps the part inside
// the sheet and out of every obstacle's interior. Touching an obstacle's
// no-fit boundary is legal; being strictly inside it is an overlap.
func (e *Evaluator) feasible(cand geometry.Point, ifp geometry.Polygon, obstacles []geometry.Polygon, v *variant) bool {
	if !ifp.Contains(cand) {
		return false
	}
	if !e.rectSheet {
		// The inner fit region is bounding-box derived; for non
		// rectangular sheets additionally require every vertex inside
		// the true outline. Edge crossings into container concavities
		// are not detected, a documented simplification.
		for _, pt := range v.inflated {
			if !e.sheet.Outline.Contains(pt.Add(cand)) {
				return false
			}
		}
	}
	for _, ob := range obstacles {
		if ob.ContainsInterior(cand) {
			return false
		}
	}
	return true
}
