// Package geometry provides the 2D primitives and transforms used by the
// nesting engine: points, polygons, rigid transforms, area and bounding-box
// metrics, point containment, polygon offsetting, and segment intersection.
//
// All transforms return new polygons; inputs are never mutated. This keeps
// rotated/inflated variants safely shareable across cache entries and
// concurrent fitness evaluations.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

// Tol is the coordinate tolerance used throughout the engine.
const Tol = 1e-9

// ErrDegenerate is returned for polygons that cannot participate in
// placement: fewer than 3 distinct vertices or (near) zero area.
var ErrDegenerate = errors.New("geometry: degenerate polygon")

// Point is an immutable 2D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q as a vector.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Eq reports whether two points coincide within Tol.
func (p Point) Eq(q Point) bool {
	return scalar.EqualWithinAbs(p.X, q.X, Tol) && scalar.EqualWithinAbs(p.Y, q.Y, Tol)
}

// Polygon is a closed ring of vertices. The first point is not repeated at
// the end; the closing edge is implicit. Positive signed area means
// counter-clockwise winding.
type Polygon []Point

// Rect is an axis-aligned bounding box.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// Width returns the horizontal extent of the box.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns the vertical extent of the box.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Area returns the box area.
func (r Rect) Area() float64 { return r.Width() * r.Height() }

// ContainsPoint reports whether p lies in the box, boundary included,
// within Tol.
func (r Rect) ContainsPoint(p Point) bool {
	return p.X >= r.MinX-Tol && p.X <= r.MaxX+Tol &&
		p.Y >= r.MinY-Tol && p.Y <= r.MaxY+Tol
}

// Union returns the smallest box covering both r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		MinX: math.Min(r.MinX, o.MinX),
		MinY: math.Min(r.MinY, o.MinY),
		MaxX: math.Max(r.MaxX, o.MaxX),
		MaxY: math.Max(r.MaxY, o.MaxY),
	}
}

// Validate checks that the polygon is usable for placement. It returns
// ErrDegenerate (wrapped with detail) for rings with fewer than 3 distinct
// vertices or near-zero area.
func (p Polygon) Validate() error {
	distinct := 0
	for i, pt := range p {
		dup := false
		for j := 0; j < i; j++ {
			if pt.Eq(p[j]) {
				dup = true
				break
			}
		}
		if !dup {
			distinct++
		}
	}
	if distinct < 3 {
		return fmt.Errorf("%w: %d distinct vertices", ErrDegenerate, distinct)
	}
	if math.Abs(p.Area()) < Tol {
		return fmt.Errorf("%w: zero area", ErrDegenerate)
	}
	return nil
}

// Translate returns a copy of the polygon shifted by (dx, dy).
func (p Polygon) Translate(dx, dy float64) Polygon {
	out := make(Polygon, len(p))
	for i, pt := range p {
		out[i] = Point{X: pt.X + dx, Y: pt.Y + dy}
	}
	return out
}

// Rotate returns a copy rotated by deg degrees counter-clockwise about the
// origin.
func (p Polygon) Rotate(deg float64) Polygon {
	return p.RotateAround(deg, Point{})
}

// RotateAround returns a copy rotated by deg degrees counter-clockwise about
// the given pivot. The rotation is rigid: edge lengths and area are
// preserved up to floating-point noise.
func (p Polygon) RotateAround(deg float64, pivot Point) Polygon {
	rad := deg * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	out := make(Polygon, len(p))
	for i, pt := range p {
		x := pt.X - pivot.X
		y := pt.Y - pivot.Y
		out[i] = Point{
			X: pivot.X + x*cos - y*sin,
			Y: pivot.Y + x*sin + y*cos,
		}
	}
	return out
}

// Area returns the signed area by the shoelace formula. Positive means
// counter-clockwise winding.
func (p Polygon) Area() float64 {
	if len(p) < 3 {
		return 0
	}
	var sum float64
	for i := range p {
		j := (i + 1) % len(p)
		sum += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return sum / 2
}

// Bounds returns the axis-aligned bounding box of the polygon.
func (p Polygon) Bounds() Rect {
	if len(p) == 0 {
		return Rect{}
	}
	r := Rect{MinX: p[0].X, MinY: p[0].Y, MaxX: p[0].X, MaxY: p[0].Y}
	for _, pt := range p[1:] {
		r.MinX = math.Min(r.MinX, pt.X)
		r.MinY = math.Min(r.MinY, pt.Y)
		r.MaxX = math.Max(r.MaxX, pt.X)
		r.MaxY = math.Max(r.MaxY, pt.Y)
	}
	return r
}

// Reverse returns a copy with the opposite winding.
func (p Polygon) Reverse() Polygon {
	out := make(Polygon, len(p))
	for i, pt := range p {
		out[len(p)-1-i] = pt
	}
	return out
}

// CCW returns the polygon with counter-clockwise winding, reversing if
// needed.
func (p Polygon) CCW() Polygon {
	if p.Area() < 0 {
		return p.Reverse()
	}
	return p
}

// Clone returns an independent copy of the polygon.
func (p Polygon) Clone() Polygon {
	out := make(Polygon, len(p))
	copy(out, p)
	return out
}

// IsConvex reports whether the polygon is convex. Collinear runs are
// tolerated. The result is only meaningful for simple polygons.
func (p Polygon) IsConvex() bool {
	n := len(p)
	if n < 4 {
		return n == 3
	}
	sign := 0
	for i := 0; i < n; i++ {
		a, b, c := p[i], p[(i+1)%n], p[(i+2)%n]
		cross := (b.X-a.X)*(c.Y-b.Y) - (b.Y-a.Y)*(c.X-b.X)
		if math.Abs(cross) < Tol {
			continue
		}
		s := 1
		if cross < 0 {
			s = -1
		}
		if sign == 0 {
			sign = s
		} else if s != sign {
			return false
		}
	}
	return true
}

// OnBoundary reports whether pt lies on the polygon outline within Tol.
func (p Polygon) OnBoundary(pt Point) bool {
	for i := range p {
		j := (i + 1) % len(p)
		if PointSegmentDist(pt, p[i], p[j]) < Tol {
			return true
		}
	}
	return false
}

// Contains reports whether pt is inside the polygon. The boundary counts as
// inside, matching the touch-is-legal convention of placement tests.
// Results on self-intersecting polygons are unspecified.
func (p Polygon) Contains(pt Point) bool {
	if len(p) < 3 {
		return false
	}
	if p.OnBoundary(pt) {
		return true
	}
	return p.raycast(pt)
}

// ContainsInterior reports whether pt is strictly inside the polygon,
// boundary excluded. Used to test candidate placements against no-fit
// regions, where touching is allowed but interior overlap is not.
func (p Polygon) ContainsInterior(pt Point) bool {
	if len(p) < 3 {
		return false
	}
	if p.OnBoundary(pt) {
		return false
	}
	return p.raycast(pt)
}

// raycast runs the even-odd crossing test. Callers resolve boundary points
// beforehand; on-edge behaviour of the raw test is unreliable.
func (p Polygon) raycast(pt Point) bool {
	inside := false
	j := len(p) - 1
	for i := 0; i < len(p); i++ {
		xi, yi := p[i].X, p[i].Y
		xj, yj := p[j].X, p[j].Y
		if (yi > pt.Y) != (yj > pt.Y) &&
			pt.X < (xj-xi)*(pt.Y-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}

// PointSegmentDist returns the distance from pt to the segment ab.
func PointSegmentDist(pt, a, b Point) float64 {
	abx, aby := b.X-a.X, b.Y-a.Y
	l2 := abx*abx + aby*aby
	if l2 < Tol*Tol {
		return pt.Dist(a)
	}
	t := ((pt.X-a.X)*abx + (pt.Y-a.Y)*aby) / l2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	proj := Point{X: a.X + t*abx, Y: a.Y + t*aby}
	return pt.Dist(proj)
}

// SegmentIntersection returns the intersection point of segments AB and EF.
// Parallel and collinear segments report no intersection; collinear overlap
// (polygons sliding along a shared edge) is a legal touch, not a crossing.
func SegmentIntersection(a, b, e, f Point) (Point, bool) {
	return lineIntersect(a, b, e, f, false)
}

// LineIntersection intersects the infinite lines through AB and EF.
func LineIntersection(a, b, e, f Point) (Point, bool) {
	return lineIntersect(a, b, e, f, true)
}

// lineIntersect solves the general-form line equations, then optionally
// rejects points outside either segment's coordinate range.
func lineIntersect(a, b, e, f Point, infinite bool) (Point, bool) {
	a1 := b.Y - a.Y
	b1 := a.X - b.X
	c1 := b.X*a.Y - a.X*b.Y
	a2 := f.Y - e.Y
	b2 := e.X - f.X
	c2 := f.X*e.Y - e.X*f.Y

	denom := a1*b2 - a2*b1
	if scalar.EqualWithinAbs(denom, 0, Tol) {
		return Point{}, false
	}

	x := (b1*c2 - b2*c1) / denom
	y := (a2*c1 - a1*c2) / denom
	if math.IsInf(x, 0) || math.IsInf(y, 0) || math.IsNaN(x) || math.IsNaN(y) {
		return Point{}, false
	}

	if !infinite {
		if !inRange(x, a.X, b.X) || !inRange(y, a.Y, b.Y) ||
			!inRange(x, e.X, f.X) || !inRange(y, e.Y, f.Y) {
			return Point{}, false
		}
	}
	return Point{X: x, Y: y}, true
}

func inRange(v, lo, hi float64) bool {
	if lo > hi {
		lo, hi = hi, lo
	}
	return v >= lo-Tol && v <= hi+Tol
}
