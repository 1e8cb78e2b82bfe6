package polygon

import "math"

// Intersects reports whether two convex polygons overlap, using the
// separating axis theorem over the edge normals of both polygons.
func Intersects(a, b []Point) bool {
	if len(a) < 3 || len(b) < 3 {
		return false
	}
	return !hasSeparatingAxis(a, b) && !hasSeparatingAxis(b, a)
}

// hasSeparatingAxis tests the edge normals of the first polygon.
func hasSeparatingAxis(a, b []Point) bool {
	n := len(a)
	for i := 0; i < n; i++ {
		edge := a[(i+1)%n].Sub(a[i])
		axis := Point{-edge.Y, edge.X}

		minA, maxA := project(a, axis)
		minB, maxB := project(b, axis)
		if maxA < minB || maxB < minA {
			return true
		}
	}
	return false
}

// project returns the min and max scalar projection of the polygon onto axis.
func project(poly []Point, axis Point) (float64, float64) {
	min := poly[0].X*axis.X + poly[0].Y*axis.Y
	max := min
	for _, p := range poly[1:] {
		d := p.X*axis.X + p.Y*axis.Y
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}
	return min, max
}

// Separation returns the minimum distance between two convex polygons, or
// zero if they overlap or touch.
func Separation(a, b []Point) float64 {
	if Intersects(a, b) {
		return 0
	}
	best := math.Inf(1)
	for _, p := range a {
		if d := distanceToBoundary(p, b); d < best {
			best = d
		}
	}
	for _, p := range b {
		if d := distanceToBoundary(p, a); d < best {
			best = d
		}
	}
	return best
}

// distanceToBoundary returns the minimum distance from a point to the edges
// of a polygon.
func distanceToBoundary(p Point, poly []Point) float64 {
	best := math.Inf(1)
	n := len(poly)
	for i := 0; i < n; i++ {
		if d := pointSegmentDistance(p, poly[i], poly[(i+1)%n]); d < best {
			best = d
		}
	}
	return best
}

// pointSegmentDistance returns the distance from p to the segment a-b.
func pointSegmentDistance(p, a, b Point) float64 {
	ab := b.Sub(a)
	ap := p.Sub(a)
	lenSq := ab.X*ab.X + ab.Y*ab.Y
	if lenSq == 0 {
		return ap.Norm()
	}
	t := (ap.X*ab.X + ap.Y*ab.Y) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	closest := a.Add(ab.Scale(t))
	return p.Sub(closest).Norm()
}

// PointInPolygon tests if a point is inside a polygon using ray casting.
func PointInPolygon(p Point, poly []Point) bool {
	if len(poly) < 3 {
		return false
	}
	inside := false
	n := len(poly)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		pi, pj := poly[i], poly[j]
		if ((pi.Y > p.Y) != (pj.Y > p.Y)) &&
			(p.X < (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y)+pi.X) {
			inside = !inside
		}
	}
	return inside
}

// Centroid returns the vertex centroid of a polygon.
func Centroid(poly []Point) Point {
	var c Point
	if len(poly) == 0 {
		return c
	}
	for _, p := range poly {
		c.X += p.X
		c.Y += p.Y
	}
	c.X /= float64(len(poly))
	c.Y /= float64(len(poly))
	return c
}
