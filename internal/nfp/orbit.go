package nfp

import (
	"math"

	"github.com/piwi3910/polynest/internal/geometry"
)

// The orbiting tracer slides the orbiting polygon B around the stationary
// polygon A while they stay in contact, recording B's translation after
// every slide. The recorded path is the outer no-fit loop. Inner loops are
// not searched for; a start position on the outer boundary is always chosen
// (B touching A from below), so concavity pockets are never entered.

// contact describes one touching configuration between A and B at the
// current offset.
type contact struct {
	touch geometry.Point // absolute touch point
	onB   bool           // touch point travels with B (B vertex against A)
}

// orbitTrace returns the traced outer loop in translation space, or nil if
// the trace fails to close. Both polygons must be CCW and non-degenerate.
func orbitTrace(a, b geometry.Polygon) geometry.Polygon {
	ab := a.Bounds()
	bb := b.Bounds()
	scale := math.Max(ab.Width()+bb.Width(), ab.Height()+bb.Height())
	if scale == 0 {
		return nil
	}
	eps := 1e-6 * scale      // penetration probe step
	sMin := 1e-7 * scale     // minimum slide before a hit counts
	closeTol := 1e-5 * scale // loop closure tolerance

	// Start with B touching A from below: A's lowest vertex against B's
	// highest vertex. B lies entirely below A there, so the position is on
	// the outer loop by construction.
	start := lowestVertex(a).Sub(highestVertex(b))
	offset := start
	loop := geometry.Polygon{start}

	var prevDir geometry.Point
	havePrev := false

	maxIter := 10 * (len(a) + len(b))
	for iter := 0; iter < maxIter; iter++ {
		bAbs := b.Translate(offset.X, offset.Y)
		contacts, vectors := findContacts(a, bAbs, eps)
		if len(vectors) == 0 {
			return nil
		}

		bestDist := 0.0
		var bestDir geometry.Point
		found := false
		for _, v := range vectors {
			l := math.Hypot(v.X, v.Y)
			if l < geometry.Tol {
				continue
			}
			u := geometry.Point{X: v.X / l, Y: v.Y / l}
			if havePrev && u.X*prevDir.X+u.Y*prevDir.Y < -1+1e-9 {
				continue // exact backtrack would retrace the last slide
			}
			if penetrates(a, bAbs, contacts, u, eps) {
				continue
			}
			d := slideDistance(a, bAbs, u, sMin)
			if d > l {
				d = l // never slide past the touching feature
			}
			if d <= sMin {
				continue
			}
			if d > bestDist {
				bestDist = d
				bestDir = u
				found = true
			}
		}
		if !found {
			return nil
		}

		offset = geometry.Point{
			X: offset.X + bestDir.X*bestDist,
			Y: offset.Y + bestDir.Y*bestDist,
		}
		if iter > 0 && offset.Dist(start) < closeTol {
			return dedupe(loop)
		}
		loop = append(loop, offset)
		prevDir = bestDir
		havePrev = true
	}
	return nil // never closed
}

// findContacts locates all touching configurations of A and the translated
// orbiting polygon, and derives the candidate slide vectors from the edges
// meeting at each contact.
func findContacts(a, bAbs geometry.Polygon, tol float64) ([]contact, []geometry.Point) {
	var contacts []contact
	var vectors []geometry.Point

	n, m := len(a), len(bAbs)
	for i := 0; i < n; i++ {
		aPrev := a[(i+n-1)%n]
		aCur := a[i]
		aNext := a[(i+1)%n]
		for j := 0; j < m; j++ {
			bPrev := bAbs[(j+m-1)%m]
			bCur := bAbs[j]
			bNext := bAbs[(j+1)%m]

			switch {
			case aCur.Dist(bCur) < tol:
				// Vertex on vertex: slide along any of the four
				// incident edges (B edges reversed, since moving B
				// backwards along its own edge slides the contact
				// forwards along B's boundary).
				contacts = append(contacts,
					contact{touch: bCur, onB: true},
					contact{touch: aCur, onB: false})
				vectors = append(vectors,
					aNext.Sub(aCur),
					aPrev.Sub(aCur),
					bCur.Sub(bNext),
					bCur.Sub(bPrev))

			case geometry.PointSegmentDist(bCur, aCur, aNext) < tol:
				// B vertex resting on an A edge: slide toward either
				// end of that edge.
				contacts = append(contacts, contact{touch: bCur, onB: true})
				vectors = append(vectors,
					aNext.Sub(bCur),
					aCur.Sub(bCur))

			case geometry.PointSegmentDist(aCur, bCur, bNext) < tol:
				// A vertex resting on a B edge: slide B along its own
				// edge direction, either way.
				contacts = append(contacts, contact{touch: aCur, onB: false})
				vectors = append(vectors,
					bCur.Sub(bNext),
					bNext.Sub(bCur))
			}
		}
	}
	return contacts, vectors
}

// penetrates reports whether an infinitesimal slide of B along dir pushes
// any contact into the opposing polygon's interior.
func penetrates(a, bAbs geometry.Polygon, contacts []contact, dir geometry.Point, eps float64) bool {
	for _, c := range contacts {
		if c.onB {
			probe := geometry.Point{X: c.touch.X + dir.X*eps, Y: c.touch.Y + dir.Y*eps}
			if a.ContainsInterior(probe) {
				return true
			}
		} else {
			// The A vertex is fixed; relative to the moving B it
			// travels the opposite way.
			probe := geometry.Point{X: c.touch.X - dir.X*eps, Y: c.touch.Y - dir.Y*eps}
			if bAbs.ContainsInterior(probe) {
				return true
			}
		}
	}
	return false
}

// slideDistance returns how far B can translate along unit vector dir
// before a new contact with A occurs. Hits closer than sMin are treated as
// the current contact and ignored.
func slideDistance(a, bAbs geometry.Polygon, dir geometry.Point, sMin float64) float64 {
	best := math.Inf(1)

	// B vertices striking A edges.
	for _, v := range bAbs {
		for i := range a {
			if s, ok := raySegment(v, dir, a[i], a[(i+1)%len(a)], sMin); ok && s < best {
				best = s
			}
		}
	}
	// A vertices striking B edges (B moves along dir, so relative to B the
	// A vertices travel along -dir).
	back := geometry.Point{X: -dir.X, Y: -dir.Y}
	for _, v := range a {
		for j := range bAbs {
			if s, ok := raySegment(v, back, bAbs[j], bAbs[(j+1)%len(bAbs)], sMin); ok && s < best {
				best = s
			}
		}
	}
	if math.IsInf(best, 1) {
		return 0
	}
	return best
}

// raySegment intersects the ray origin + s*dir (s > sMin) with segment
// p1p2 and returns the smallest valid s.
func raySegment(origin, dir, p1, p2 geometry.Point, sMin float64) (float64, bool) {
	ex := p2.X - p1.X
	ey := p2.Y - p1.Y
	wx := p1.X - origin.X
	wy := p1.Y - origin.Y

	denom := dir.X*ey - dir.Y*ex
	if math.Abs(denom) < geometry.Tol {
		// Parallel. If collinear, the nearest endpoint ahead is the hit.
		if math.Abs(wx*dir.Y-wy*dir.X) > geometry.Tol {
			return 0, false
		}
		s1 := wx*dir.X + wy*dir.Y
		s2 := (p2.X-origin.X)*dir.X + (p2.Y-origin.Y)*dir.Y
		s := math.Inf(1)
		if s1 > sMin {
			s = s1
		}
		if s2 > sMin && s2 < s {
			s = s2
		}
		if math.IsInf(s, 1) {
			return 0, false
		}
		return s, true
	}

	s := (wx*ey - wy*ex) / denom
	t := (wx*dir.Y - wy*dir.X) / denom
	if s > sMin && t >= -geometry.Tol && t <= 1+geometry.Tol {
		return s, true
	}
	return 0, false
}

// lowestVertex returns the vertex with the smallest Y (then smallest X).
func lowestVertex(p geometry.Polygon) geometry.Point {
	best := p[0]
	for _, pt := range p[1:] {
		if pt.Y < best.Y-geometry.Tol ||
			(pt.Y < best.Y+geometry.Tol && pt.X < best.X) {
			best = pt
		}
	}
	return best
}

// highestVertex returns the vertex with the largest Y (then largest X).
func highestVertex(p geometry.Polygon) geometry.Point {
	best := p[0]
	for _, pt := range p[1:] {
		if pt.Y > best.Y+geometry.Tol ||
			(pt.Y > best.Y-geometry.Tol && pt.X > best.X) {
			best = pt
		}
	}
	return best
}
