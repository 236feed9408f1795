package mission

import (
	"math"

	"palm/geometry"
)

// Vec3 is a 3D position along a flown trajectory.
type Vec3 struct {
	X float64
	Y float64
	Z float64
}

// Trajectory is the ordered sequence of positions a drone flew during one
// simulated mission.
type Trajectory struct {
	Positions []Vec3
}

// Projection2D returns the trajectory projected onto the horizontal plane.
func (t *Trajectory) Projection2D() []geometry.Point {
	points := make([]geometry.Point, len(t.Positions))
	for i, p := range t.Positions {
		points[i] = geometry.Point{X: p.X, Y: p.Y}
	}
	return points
}

// MinDistanceTo returns the minimum Euclidean clearance between the
// trajectory and the given obstacles, treating each obstacle as a solid
// rotated box from its base altitude to its height. Returns +Inf when
// either the trajectory or the obstacle list is empty.
func (t *Trajectory) MinDistanceTo(obstacles []Obstacle) float64 {
	minDistance := math.Inf(1)
	for _, o := range obstacles {
		for _, p := range t.Positions {
			if d := distanceToObstacle(p, o); d < minDistance {
				minDistance = d
			}
		}
	}
	return minDistance
}

// distanceToObstacle computes the distance from a point to the closest
// surface point of the obstacle box; 0 when the point is inside.
func distanceToObstacle(p Vec3, o Obstacle) float64 {
	// Transform into the obstacle frame: translate to its center, then
	// rotate by the negative obstacle rotation.
	rad := -o.Position.R * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	dx := p.X - o.Position.X
	dy := p.Y - o.Position.Y
	localX := cos*dx - sin*dy
	localY := sin*dx + cos*dy

	outX := math.Max(math.Abs(localX)-o.Size.L/2, 0)
	outY := math.Max(math.Abs(localY)-o.Size.W/2, 0)

	outZ := 0.0
	if p.Z < o.Position.Z {
		outZ = o.Position.Z - p.Z
	} else if top := o.Position.Z + o.Size.H; p.Z > top {
		outZ = p.Z - top
	}

	return math.Sqrt(outX*outX + outY*outY + outZ*outZ)
}
