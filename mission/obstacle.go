package mission

import (
	"fmt"

	"palm/geometry"
)

// Size is an obstacle's extent: full length and width in the horizontal
// plane and height above ground.
type Size struct {
	L float64 `yaml:"l"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

// Position is an obstacle's placement: center coordinates, base altitude
// and rotation in degrees counter-clockwise from the x-axis.
type Position struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
	R float64 `yaml:"r"`
}

// Obstacle is a rectangular prism placed in the simulation world. Values
// are never mutated after creation; scenario changes always build new
// obstacles.
type Obstacle struct {
	Size     Size     `yaml:"size"`
	Position Position `yaml:"position"`
}

// NewObstacle builds an obstacle from a sampled footprint rectangle and a
// height.
func NewObstacle(rect geometry.Rect, height float64) Obstacle {
	return Obstacle{
		Size:     Size{L: rect.L, W: rect.W, H: height},
		Position: Position{X: rect.X, Y: rect.Y, Z: 0, R: rect.R},
	}
}

// Rect returns the obstacle's horizontal footprint.
func (o Obstacle) Rect() geometry.Rect {
	return geometry.Rect{
		X: o.Position.X,
		Y: o.Position.Y,
		L: o.Size.L,
		W: o.Size.W,
		R: o.Position.R,
	}
}

// Key is a canonical descriptor used for set-wise scenario comparison.
func (o Obstacle) Key() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f",
		o.Position.X, o.Position.Y, o.Position.Z, o.Position.R,
		o.Size.L, o.Size.W, o.Size.H)
}

func (o Obstacle) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f, %.2f, %.2f)",
		o.Position.X, o.Position.Y, o.Size.L, o.Size.W, o.Position.R)
}
