// Package counter turns track positions into counted crossing events,
// direction classifications, speed estimates and aggregated statistics.
package counter

import "github.com/roadmetric/go-vehicletrack/tracker"

// Direction is the classified direction of travel at the moment of crossing
type Direction int

const (
	// DirectionUnknown is reported when direction detection is disabled
	DirectionUnknown Direction = 0
	// Northbound is travel toward the top of the frame (decreasing y)
	// under default polarity
	Northbound Direction = 1
	// Southbound is travel toward the bottom of the frame (increasing y)
	// under default polarity
	Southbound Direction = 2
)

// String returns the direction name as used in persisted records
func (d Direction) String() string {
	switch d {
	case Northbound:
		return "north"
	case Southbound:
		return "south"
	default:
		return "unknown"
	}
}

// Polarity maps the sign of the y displacement onto a direction
type Polarity int

const (
	// DecreasingYNorth is the default polarity: a centroid moving up the
	// frame is northbound
	DecreasingYNorth Polarity = 0
	// DecreasingYSouth inverts the mapping for cameras mounted facing the
	// other way
	DecreasingYSouth Polarity = 1
)

// Line is the horizontal reference line vehicles are counted against
type Line struct {
	// Y is the line coordinate in pixels
	Y float64
	// Polarity selects which side of the line counts as north
	Polarity Polarity
}

// NewLine builds a Line from the configured fractional position and the
// frame height
func NewLine(fraction float64, frameHeight int, polarity Polarity) Line {
	return Line{
		Y:        fraction * float64(frameHeight),
		Polarity: polarity,
	}
}

// side returns which side of the line the point lies on: -1 above, +1
// below, 0 exactly on the line
func (l Line) side(p tracker.Point) int {
	switch {
	case p.Y < l.Y:
		return -1
	case p.Y > l.Y:
		return 1
	default:
		return 0
	}
}

// Crossed reports whether moving from prev to curr crosses the line.  The
// test compares the side of the line each centroid lies on and fires only
// when they differ, so a fast object that skips over the line between
// sampled frames is still counted and a slow object lingering near the line
// is counted only once.  Proximity to the line is never considered.
func (l Line) Crossed(prev, curr tracker.Point) bool {

	prevSide := l.side(prev)
	currSide := l.side(curr)

	// a centroid that lands exactly on the line has not crossed yet, the
	// crossing completes when it moves past
	if currSide == 0 {
		return false
	}

	// coming from exactly on the line and moving past it counts
	if prevSide == 0 {
		return true
	}

	return prevSide != currSide
}

// Direction classifies the direction of travel from the sign of the y
// displacement, mapped through the configured polarity
func (l Line) Direction(prev, curr tracker.Point) Direction {

	if curr.Y == prev.Y {
		return DirectionUnknown
	}

	decreasing := curr.Y < prev.Y

	if l.Polarity == DecreasingYSouth {
		decreasing = !decreasing
	}

	if decreasing {
		return Northbound
	}

	return Southbound
}
