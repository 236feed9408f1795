package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestRandomRectangle(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	t.Run("half-diagonal stays inside the circle", func(t *testing.T) {
		for i := 0; i < 1000; i++ {
			rect := RandomRectangle(rng, 3, -2, 5)
			halfDiagonal := math.Hypot(rect.L/2, rect.W/2)
			require.LessOrEqual(t, halfDiagonal, 5.0, "Rectangle should fit inside the sampling circle")
			require.Equal(t, 3.0, rect.X, "Rectangle should keep the requested center")
			require.Equal(t, -2.0, rect.Y, "Rectangle should keep the requested center")
		}
	})

	t.Run("rotation within [0, 90)", func(t *testing.T) {
		for i := 0; i < 1000; i++ {
			rect := RandomRectangle(rng, 0, 0, 1)
			require.GreaterOrEqual(t, rect.R, 0.0, "Rotation should be non-negative")
			require.Less(t, rect.R, 90.0, "Rotation should stay below 90 degrees")
		}
	})
}

func TestSubrectangles(t *testing.T) {
	t.Run("unrotated grid tiles the rectangle", func(t *testing.T) {
		cells := Subrectangles(Rect{X: 0, Y: 0, L: 4, W: 2, R: 0}, 4)
		require.Len(t, cells, 16, "4x4 subdivision should yield 16 cells")
		for _, cell := range cells {
			require.Equal(t, 1.0, cell.L, "Cell length should be a quarter of the original")
			require.Equal(t, 0.5, cell.W, "Cell width should be a quarter of the original")
			require.LessOrEqual(t, math.Abs(cell.X), 2.0, "Cell centers should stay within the rectangle")
			require.LessOrEqual(t, math.Abs(cell.Y), 1.0, "Cell centers should stay within the rectangle")
		}
	})

	t.Run("rotation moves cell centers around the rectangle center", func(t *testing.T) {
		cells := Subrectangles(Rect{X: 1, Y: 1, L: 2, W: 2, R: 90}, 2)
		require.Len(t, cells, 4)
		// The cell that starts at (0.5, 0.5) relative offset rotates by 90
		// degrees around (1, 1): offset (-0.5, -0.5) becomes (0.5, -0.5).
		require.InDelta(t, 1.5, cells[0].X, 1e-9)
		require.InDelta(t, 0.5, cells[0].Y, 1e-9)
	})
}

func TestCircleCoverage(t *testing.T) {
	rect := Rect{X: 0, Y: 0, L: 8, W: 4, R: 30}
	circles := CircleCoverage(rect, 4)

	require.Len(t, circles, 16, "Coverage should contain one circle per cell")
	for _, c := range circles {
		require.InDelta(t, math.Hypot(1, 0.5), c.Radius, 1e-9,
			"Each circle should be the enclosing circle of an equal cell")
	}
}

func TestBoundaryDistance(t *testing.T) {
	bounds := Bounds{MinX: -40, MaxX: 30, MinY: 10, MaxY: 40}

	require.Equal(t, 5.0, BoundaryDistance(Point{X: 0, Y: 15}, bounds), "Bottom edge should be nearest")
	require.Equal(t, 2.0, BoundaryDistance(Point{X: 28, Y: 25}, bounds), "Right edge should be nearest")
	require.Negative(t, BoundaryDistance(Point{X: 50, Y: 25}, bounds), "Points outside should yield a negative distance")
}

func TestRandomNonintersectingCircle(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	bounds := Bounds{MinX: -40, MaxX: 30, MinY: 10, MaxY: 40}

	t.Run("returns a strictly smaller circle when feasible", func(t *testing.T) {
		center := Point{X: 0, Y: 25}
		others := []Circle{{X: 10, Y: 25, Radius: 2}}
		maxRadius := MaxFeasibleRadius(center, bounds, others)
		require.Equal(t, 8.0, maxRadius)

		for i := 0; i < 100; i++ {
			circle, ok := RandomNonintersectingCircle(rng, center, bounds, others)
			require.True(t, ok, "Placement should be feasible")
			require.Less(t, circle.Radius, maxRadius, "Radius should be scaled below the maximum")
			require.GreaterOrEqual(t, circle.Radius, 0.5*maxRadius, "Radius should not shrink below half the maximum")
		}
	})

	t.Run("infeasible when the center is covered by another circle", func(t *testing.T) {
		_, ok := RandomNonintersectingCircle(rng, Point{X: 0, Y: 25}, bounds, []Circle{{X: 1, Y: 25, Radius: 3}})
		require.False(t, ok, "No circle should be produced when the maximal radius is non-positive")
	})

	t.Run("infeasible outside the bounds", func(t *testing.T) {
		_, ok := RandomNonintersectingCircle(rng, Point{X: 100, Y: 25}, bounds, nil)
		require.False(t, ok, "No circle should be produced outside the placement area")
	})
}

func TestRandomNonintersectingRect(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	bounds := Bounds{MinX: -40, MaxX: 30, MinY: 10, MaxY: 40}
	others := []Rect{{X: -20, Y: 25, L: 10, W: 5, R: 15}}

	t.Run("sampled rectangle avoids the covering of the others", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			rect, ok := RandomNonintersectingRect(rng, Point{X: 10, Y: 25}, bounds, others, 4)
			require.True(t, ok, "Placement should be feasible far from the other rectangle")

			sampled := EnclosingCircle(rect)
			for _, c := range CircleCoverage(others[0], 4) {
				distance := math.Hypot(c.X-sampled.X, c.Y-sampled.Y)
				require.Greater(t, distance, c.Radius, "Sampled rectangle center should stay clear of the covering")
			}
		}
	})

	t.Run("infeasible when the center lies on another rectangle", func(t *testing.T) {
		_, ok := RandomNonintersectingRect(rng, Point{X: -20, Y: 25}, bounds, others, 4)
		require.False(t, ok, "No rectangle should be produced on top of an existing one")
	})
}

func TestClosestPoint(t *testing.T) {
	trajectory := []Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 3, Y: 1}}

	t.Run("nearest point and distance", func(t *testing.T) {
		closest, distance, _ := ClosestPoint(trajectory, Point{X: 2.1, Y: 1})
		require.Equal(t, Point{X: 2, Y: 0}, closest)
		require.InDelta(t, math.Hypot(0.1, 1), distance, 1e-9)
	})

	t.Run("angle measured from the x-axis", func(t *testing.T) {
		_, _, angle := ClosestPoint([]Point{{X: 1, Y: 1}}, Point{X: 0, Y: 0})
		require.InDelta(t, 45.0, angle, 1e-9, "Diagonal vector should yield 45 degrees")

		_, _, angle = ClosestPoint([]Point{{X: -1, Y: 1}}, Point{X: 0, Y: 0})
		require.InDelta(t, 135.0, angle, 1e-9, "Angle should be measured in [0, 180]")
	})

	t.Run("coincident point yields zero distance and angle", func(t *testing.T) {
		closest, distance, angle := ClosestPoint(trajectory, Point{X: 1, Y: 0})
		require.Equal(t, Point{X: 1, Y: 0}, closest)
		require.Zero(t, distance)
		require.Zero(t, angle)
	})
}
