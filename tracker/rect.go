package tracker

import "math"

// Point represents the x,y coordinates of the center of a bounding box
type Point struct {
	X, Y float64
}

// DistanceTo returns the Euclidean distance to another point
func (p Point) DistanceTo(other Point) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// Rect represents a rectangle in tlwh (top-left x, top-left y, width,
// height) format
type Rect struct {
	X, Y, W, H float64
}

// NewRect creates a new Rect with given top-left coordinates and dimensions
func NewRect(x, y, width, height float64) Rect {
	return Rect{X: x, Y: y, W: width, H: height}
}

// Width returns the width of the rectangle
func (r Rect) Width() float64 {
	return r.W
}

// Height returns the height of the rectangle
func (r Rect) Height() float64 {
	return r.H
}

// Center returns the centroid of the rectangle, used as the position summary
// for matching and crossing tests
func (r Rect) Center() Point {
	return Point{
		X: r.X + r.W/2,
		Y: r.Y + r.H/2,
	}
}

// Valid reports whether the rectangle has positive dimensions
func (r Rect) Valid() bool {
	return r.W > 0 && r.H > 0
}
