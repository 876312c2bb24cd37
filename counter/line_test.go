package counter

import (
	"testing"

	"github.com/roadmetric/go-vehicletrack/tracker"
)

func pt(x, y float64) tracker.Point {
	return tracker.Point{X: x, Y: y}
}

// TestLineCrossed tests the before/after side test against positions around
// a line at y=50 in a 100px tall frame
func TestLineCrossed(t *testing.T) {

	line := NewLine(0.5, 100, DecreasingYNorth)

	if line.Y != 50 {
		t.Fatalf("line position = %v, want 50", line.Y)
	}

	tests := []struct {
		name       string
		prev, curr tracker.Point
		want       bool
	}{
		{"downward crossing", pt(10, 40), pt(10, 60), true},
		{"upward crossing", pt(10, 60), pt(10, 40), true},
		{"fast skip over line", pt(10, 5), pt(10, 95), true},
		{"lingering above", pt(10, 48), pt(10, 49), false},
		{"lingering below", pt(10, 51), pt(10, 52), false},
		{"close but same side", pt(10, 49.5), pt(10, 49.9), false},
		{"landing exactly on line", pt(10, 40), pt(10, 50), false},
		{"on line then past", pt(10, 50), pt(10, 55), true},
		{"no movement", pt(10, 40), pt(10, 40), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := line.Crossed(tc.prev, tc.curr); got != tc.want {
				t.Errorf("Crossed(%v -> %v) = %v, want %v",
					tc.prev.Y, tc.curr.Y, got, tc.want)
			}
		})
	}
}

// TestLineDirection tests direction classification under both polarities
func TestLineDirection(t *testing.T) {

	tests := []struct {
		name       string
		polarity   Polarity
		prev, curr tracker.Point
		want       Direction
	}{
		{"downward default polarity", DecreasingYNorth, pt(0, 40), pt(0, 60), Southbound},
		{"upward default polarity", DecreasingYNorth, pt(0, 60), pt(0, 40), Northbound},
		{"downward inverted polarity", DecreasingYSouth, pt(0, 40), pt(0, 60), Northbound},
		{"upward inverted polarity", DecreasingYSouth, pt(0, 60), pt(0, 40), Southbound},
		{"no vertical movement", DecreasingYNorth, pt(0, 50), pt(10, 50), DirectionUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			line := NewLine(0.5, 100, tc.polarity)

			if got := line.Direction(tc.prev, tc.curr); got != tc.want {
				t.Errorf("Direction = %v, want %v", got, tc.want)
			}
		})
	}
}

// TestDirectionString verifies the persisted record naming
func TestDirectionString(t *testing.T) {

	if Northbound.String() != "north" || Southbound.String() != "south" ||
		DirectionUnknown.String() != "unknown" {
		t.Errorf("unexpected direction names: %v %v %v",
			Northbound, Southbound, DirectionUnknown)
	}
}
