// Package nfp computes no-fit polygons and inner-fit polygons between
// polygon pairs at fixed rotations, with memoized results.
//
// The no-fit polygon NFP(A, B) is expressed in translation space: it is the
// set of translations t such that B translated by t touches stationary A.
// Its interior is the set of overlapping translations, so a translation is
// collision-free exactly when it is not strictly inside the NFP.
//
// Only the outer NFP loop is computed. Inner loops, which would describe B
// fitting inside concavities or holes of A, are deliberately not traced;
// this is the engine's documented simplification and the dominant source of
// suboptimal nesting for concave parts.
package nfp

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/piwi3910/polynest/internal/geometry"
)

// ErrNoFit signals that no valid fit is derivable for a pair, e.g. a part
// larger than its container or a degenerate input polygon.
var ErrNoFit = errors.New("nfp: no valid fit")

// NoFitPolygon computes the outer no-fit loop for orbiting polygon b around
// stationary polygon a. Both polygons must already be at their final
// rotations. Convex pairs are computed exactly by Minkowski edge merge; if
// either polygon is concave the orbiting tracer is used, falling back to the
// convex-hull NFP when the trace does not close.
func NoFitPolygon(a, b geometry.Polygon) (geometry.Polygon, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("%w: stationary: %v", ErrNoFit, err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: orbiting: %v", ErrNoFit, err)
	}

	if a.IsConvex() && b.IsConvex() {
		if loop := minkowskiNFP(a, b); convexClosed(loop) {
			return loop, nil
		}
		// The merge rejected its own output; the tracer does not depend
		// on sorted edge angles and handles the pair directly.
		if loop := orbitTrace(a.CCW(), b.CCW()); len(loop) >= 3 {
			return loop, nil
		}
		return nil, fmt.Errorf("%w: no closed loop found", ErrNoFit)
	}

	if loop := orbitTrace(a.CCW(), b.CCW()); len(loop) >= 3 {
		return loop, nil
	}
	// Conservative over-approximation: hulls never admit an overlap the
	// true shapes would reject, they only forbid some tight fits.
	if loop := minkowskiNFP(geometry.ConvexHull(a), geometry.ConvexHull(b)); convexClosed(loop) {
		return loop, nil
	}
	return nil, fmt.Errorf("%w: no closed loop found", ErrNoFit)
}

// InnerFitPolygon computes the locus of translations that keep part inside
// container, derived from the two bounding boxes. For rectangular containers
// this is exact; for arbitrary container outlines the placement evaluator
// additionally verifies vertex containment against the container polygon.
// Returns ErrNoFit when the part cannot fit at this rotation.
func InnerFitPolygon(container, part geometry.Polygon) (geometry.Polygon, error) {
	if err := container.Validate(); err != nil {
		return nil, fmt.Errorf("%w: container: %v", ErrNoFit, err)
	}
	if err := part.Validate(); err != nil {
		return nil, fmt.Errorf("%w: part: %v", ErrNoFit, err)
	}

	cb := container.Bounds()
	pb := part.Bounds()

	minX := cb.MinX - pb.MinX
	maxX := cb.MaxX - pb.MaxX
	minY := cb.MinY - pb.MinY
	maxY := cb.MaxY - pb.MaxY

	if maxX < minX-geometry.Tol || maxY < minY-geometry.Tol {
		return nil, fmt.Errorf("%w: part %gx%g exceeds container %gx%g",
			ErrNoFit, pb.Width(), pb.Height(), cb.Width(), cb.Height())
	}
	// Clamp the zero-slack axis so the ring stays well ordered.
	if maxX < minX {
		maxX = minX
	}
	if maxY < minY {
		maxY = minY
	}

	return geometry.Polygon{
		{X: minX, Y: minY},
		{X: maxX, Y: minY},
		{X: maxX, Y: maxY},
		{X: minX, Y: maxY},
	}, nil
}

// minkowskiNFP computes NFP(A, B) = A ⊕ −B for convex A and B by the
// classic edge-angle merge. The result is exact: its boundary is the
// touching locus and its interior the overlapping translations.
func minkowskiNFP(a, b geometry.Polygon) geometry.Polygon {
	pa := startAtLowest(a.CCW())

	// Reflect B through the origin; translations t with (B+t) ∩ A ≠ ∅
	// are exactly A ⊕ −B.
	neg := make(geometry.Polygon, len(b))
	for i, pt := range b {
		neg[i] = geometry.Point{X: -pt.X, Y: -pt.Y}
	}
	pb := startAtLowest(neg.CCW())

	n, m := len(pa), len(pb)
	sum := make(geometry.Polygon, 0, n+m)
	i, j := 0, 0
	for i < n || j < m {
		sum = append(sum, pa[i%n].Add(pb[j%m]))
		ta := edgeAngle(pa, i)
		tb := edgeAngle(pb, j)
		switch {
		case i >= n:
			j++
		case j >= m:
			i++
		case ta < tb-geometry.Tol:
			i++
		case tb < ta-geometry.Tol:
			j++
		default:
			// Parallel edges advance together, merging into one.
			i++
			j++
		}
	}
	return dedupe(sum)
}

// edgeAngle returns the polar angle of edge i of ring p, in [0, 2π). Both
// rings start at their lowest vertex, so the angle sequence of a CCW ring is
// non-decreasing and the merge is a plain sorted merge.
func edgeAngle(p geometry.Polygon, i int) float64 {
	e := p[(i+1)%len(p)].Sub(p[i%len(p)])
	t := math.Atan2(e.Y, e.X)
	if t < 0 {
		t += 2 * math.Pi
	}
	// After a rotation, a nominally horizontal edge can point a hair below
	// the axis. Its angle must read as 0, not as almost a full turn, or the
	// sorted-merge precondition breaks.
	if 2*math.Pi-t < geometry.Tol {
		t = 0
	}
	return t
}

// convexClosed reports whether the ring is a single simple convex CCW lap:
// started at its lowest vertex, the edge angle sequence never decreases. A
// merge fed a non-monotone angle sequence can emit a loop that winds twice;
// such loops pass a pure convexity check but fail this one.
func convexClosed(p geometry.Polygon) bool {
	if p.Validate() != nil || !p.IsConvex() || p.Area() <= 0 {
		return false
	}
	q := startAtLowest(p)
	prev := 0.0
	for i := range q {
		t := edgeAngle(q, i)
		if t < prev-geometry.Tol {
			return false
		}
		prev = t
	}
	return true
}

// startAtLowest rotates the ring so it begins at the lowest (then leftmost)
// vertex, the canonical start for the Minkowski merge.
func startAtLowest(p geometry.Polygon) geometry.Polygon {
	start := 0
	for i := 1; i < len(p); i++ {
		if p[i].Y < p[start].Y-geometry.Tol ||
			(p[i].Y < p[start].Y+geometry.Tol && p[i].X < p[start].X) {
			start = i
		}
	}
	out := make(geometry.Polygon, len(p))
	for i := range p {
		out[i] = p[(start+i)%len(p)]
	}
	return out
}

// dedupe drops consecutive duplicate vertices, including a duplicate closing
// vertex.
func dedupe(p geometry.Polygon) geometry.Polygon {
	if len(p) == 0 {
		return p
	}
	out := geometry.Polygon{p[0]}
	for _, pt := range p[1:] {
		if !pt.Eq(out[len(out)-1]) {
			out = append(out, pt)
		}
	}
	if len(out) > 1 && out[0].Eq(out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	return out
}

// EdgeIntersections returns all pairwise intersection points between the
// edges of p and the edges of q, sorted bottom-left first for deterministic
// downstream use. Touching loops contribute candidate placement positions.
func EdgeIntersections(p, q geometry.Polygon) []geometry.Point {
	var pts []geometry.Point
	for i := range p {
		a1 := p[i]
		a2 := p[(i+1)%len(p)]
		for j := range q {
			b1 := q[j]
			b2 := q[(j+1)%len(q)]
			if pt, ok := geometry.SegmentIntersection(a1, a2, b1, b2); ok {
				pts = append(pts, pt)
			}
		}
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].Y != pts[j].Y {
			return pts[i].Y < pts[j].Y
		}
		return pts[i].X < pts[j].X
	})
	return pts
}
