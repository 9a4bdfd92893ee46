package geometry

import (
	"fmt"
	"math"
)

// Offset returns the polygon inflated outward by dist (or deflated for a
// negative dist). Each edge is shifted along its outward normal and adjacent
// edges are re-intersected (miter join). Parts are pre-expanded by half the
// configured spacing so placement only has to test for touch/overlap instead
// of maintaining an explicit minimum-distance constraint.
//
// The miter construction is exact for convex rings. On reflex vertices the
// offset ring can self-intersect for large distances; that matches the
// engine's documented concavity handling and is not corrected here.
func Offset(p Polygon, dist float64) (Polygon, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if dist == 0 {
		return p.Clone(), nil
	}

	ccw := p.CCW()
	n := len(ccw)
	out := make(Polygon, 0, n)

	for i := 0; i < n; i++ {
		prev := ccw[(i+n-1)%n]
		cur := ccw[i]
		next := ccw[(i+1)%n]

		// Shift both edges meeting at cur along their outward normals.
		p1a, p1b := shiftEdge(prev, cur, dist)
		p2a, p2b := shiftEdge(cur, next, dist)

		if pt, ok := LineIntersection(p1a, p1b, p2a, p2b); ok {
			out = append(out, pt)
		} else {
			// Collinear edges: the shifted lines coincide, keep the
			// shared shifted endpoint.
			out = append(out, p1b)
		}
	}

	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("offset by %g collapsed polygon: %w", dist, err)
	}
	// A deflate large enough to flip the winding has eaten the polygon.
	if out.Area()*ccw.Area() < 0 {
		return nil, fmt.Errorf("offset by %g collapsed polygon: %w", dist, ErrDegenerate)
	}
	return out, nil
}

// shiftEdge moves edge ab outward (for a CCW ring) by dist.
func shiftEdge(a, b Point, dist float64) (Point, Point) {
	dx := b.X - a.X
	dy := b.Y - a.Y
	l := math.Hypot(dx, dy)
	if l < Tol {
		return a, b
	}
	// Outward normal of a CCW ring points right of the edge direction.
	nx := dy / l * dist
	ny := -dx / l * dist
	return Point{X: a.X + nx, Y: a.Y + ny}, Point{X: b.X + nx, Y: b.Y + ny}
}
