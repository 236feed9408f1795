// Package geometry provides the obstacle placement primitives: sampling
// rectangles inside feasible circles, conservative circle coverings of
// rotated rectangles, and distance queries against placement bounds and
// flight trajectories. All functions are pure given their inputs; sampling
// functions take an explicit random source so searches are reproducible.
package geometry

import (
	"math"

	"golang.org/x/exp/rand"
)

// Point is a 2D position.
type Point struct {
	X float64
	Y float64
}

// Rect is a rotated rectangle described by its center, full side lengths
// and a counter-clockwise rotation from the x-axis in degrees.
type Rect struct {
	X float64
	Y float64
	L float64
	W float64
	R float64
}

// Circle is a circle described by its center and radius.
type Circle struct {
	X      float64
	Y      float64
	Radius float64
}

// Bounds is an axis-aligned placement area.
type Bounds struct {
	MinX float64
	MaxX float64
	MinY float64
	MaxY float64
}

// Contains reports whether p lies strictly inside the bounds.
func (b Bounds) Contains(p Point) bool {
	return b.MinX < p.X && p.X < b.MaxX && b.MinY < p.Y && p.Y < b.MaxY
}

const (
	// sideEps bounds the sampled side length away from 0 and the radius.
	sideEps = 0.1
	// shrink keeps sampled rectangles strictly inside their circle.
	shrink = 0.999
)

// RandomRectangle samples a rectangle centered at (cx, cy) whose corners
// stay inside a circle of the given radius. The half side lengths are drawn
// so their quadrature sum equals the radius, then both sides are scaled
// down slightly so the fit is strict. Rotation is uniform in [0, 90).
func RandomRectangle(rng *rand.Rand, cx, cy, radius float64) Rect {
	minLength := sideEps * radius
	maxLength := (1 - sideEps) * radius
	length := minLength + rng.Float64()*(maxLength-minLength)
	width := math.Sqrt(radius*radius - length*length)
	rotation := rng.Float64() * 90
	return Rect{
		X: cx,
		Y: cy,
		L: shrink * length * 2,
		W: shrink * width * 2,
		R: rotation,
	}
}

// Subrectangles splits r into count x count equal cells. Cell centers are
// placed on the unrotated grid and then rotated around the rectangle
// center, so the union of cells tiles the rotated rectangle.
func Subrectangles(r Rect, count int) []Rect {
	rad := r.R * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)

	xmin := r.X - r.L/2
	ymin := r.Y - r.W/2

	cells := make([]Rect, 0, count*count)
	for i := 0; i < count; i++ {
		for j := 0; j < count; j++ {
			cx := xmin + (float64(i)+0.5)*r.L/float64(count)
			cy := ymin + (float64(j)+0.5)*r.W/float64(count)

			dx := cx - r.X
			dy := cy - r.Y
			cells = append(cells, Rect{
				X: r.X + cos*dx - sin*dy,
				Y: r.Y + sin*dx + cos*dy,
				L: r.L / float64(count),
				W: r.W / float64(count),
				R: r.R,
			})
		}
	}
	return cells
}

// EnclosingCircle returns the minimal circle containing r, centered at the
// rectangle center with the half-diagonal as radius.
func EnclosingCircle(r Rect) Circle {
	return Circle{
		X:      r.X,
		Y:      r.Y,
		Radius: math.Hypot(r.L/2, r.W/2),
	}
}

// CircleCoverage conservatively approximates a rotated rectangle by the
// enclosing circles of its subdivisions x subdivisions grid cells. The
// approximation error shrinks as subdivisions grows; intersection tests
// against the covering are then plain circle-circle checks.
func CircleCoverage(r Rect, subdivisions int) []Circle {
	cells := Subrectangles(r, subdivisions)
	circles := make([]Circle, len(cells))
	for i, cell := range cells {
		circles[i] = EnclosingCircle(cell)
	}
	return circles
}

// BoundaryDistance returns the minimum distance from p to the four edges
// of the bounds. Negative when p lies outside.
func BoundaryDistance(p Point, b Bounds) float64 {
	return min(b.MaxY-p.Y, p.Y-b.MinY, p.X-b.MinX, b.MaxX-p.X)
}

// MaxFeasibleRadius computes the largest radius of a circle at center that
// neither overlaps any of the given circles nor crosses the bounds.
func MaxFeasibleRadius(center Point, b Bounds, others []Circle) float64 {
	radius := BoundaryDistance(center, b)
	for _, c := range others {
		distance := math.Hypot(c.X-center.X, c.Y-center.Y)
		radius = math.Min(radius, distance-c.Radius)
	}
	return radius
}

// RandomNonintersectingCircle places the largest circle at center that
// avoids the given circles and stays inside the bounds, scaled by a random
// factor in [0.5, 0.9) so placements are not always maximal. Reports false
// when no feasible radius exists.
func RandomNonintersectingCircle(rng *rand.Rand, center Point, b Bounds, others []Circle) (Circle, bool) {
	radius := MaxFeasibleRadius(center, b, others)
	if radius <= 0 {
		return Circle{}, false
	}
	coeff := 0.5 + rng.Float64()*0.4
	return Circle{X: center.X, Y: center.Y, Radius: coeff * radius}, true
}

// RandomNonintersectingRect samples a rectangle at center that avoids the
// given rectangles (via their circle coverings) and the bounds. Reports
// false when no feasible placement exists.
func RandomNonintersectingRect(rng *rand.Rand, center Point, b Bounds, others []Rect, subdivisions int) (Rect, bool) {
	var covering []Circle
	for _, other := range others {
		covering = append(covering, CircleCoverage(other, subdivisions)...)
	}
	circle, ok := RandomNonintersectingCircle(rng, center, b, covering)
	if !ok {
		return Rect{}, false
	}
	return RandomRectangle(rng, circle.X, circle.Y, circle.Radius), true
}

// ClosestPoint returns the trajectory point nearest to p, the distance to
// it, and the angle in degrees between the x-axis and the vector from p to
// that point. The angle is in [0, 180]; it is 0 when p coincides with the
// nearest point. Panics on an empty trajectory.
func ClosestPoint(trajectory []Point, p Point) (Point, float64, float64) {
	if len(trajectory) == 0 {
		panic("geometry: closest point on empty trajectory")
	}

	closest := trajectory[0]
	minDistance := math.Hypot(closest.X-p.X, closest.Y-p.Y)
	for _, tp := range trajectory[1:] {
		if d := math.Hypot(tp.X-p.X, tp.Y-p.Y); d < minDistance {
			minDistance = d
			closest = tp
		}
	}

	if minDistance == 0 {
		return closest, 0, 0
	}
	angle := math.Acos((closest.X-p.X)/minDistance) * 180 / math.Pi
	return closest, minDistance, angle
}
