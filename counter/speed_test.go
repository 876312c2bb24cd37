package counter

import (
	"math"
	"testing"

	"github.com/roadmetric/go-vehicletrack/tracker"
)

// almostEqual checks if two float64 values are approximately equal
func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func history(samples ...[3]float64) []tracker.Position {

	var out []tracker.Position

	for _, s := range samples {
		out = append(out, tracker.Position{
			FrameIndex: int(s[0]),
			Center:     tracker.Point{X: s[1], Y: s[2]},
		})
	}

	return out
}

// TestSpeedEstimate verifies the kinematic computation: displacement over
// elapsed time converted through the calibration factor
func TestSpeedEstimate(t *testing.T) {

	// 0.1 m/px, 30 fps.  300px in 30 frames = 300px/s = 30 m/s = 108 km/h
	est := SpeedEstimator{FrameRate: 30, MetersPerPixel: 0.1}

	speed, ok := est.Estimate(history(
		[3]float64{0, 100, 0},
		[3]float64{15, 100, 150},
		[3]float64{30, 100, 300},
	))

	if !ok {
		t.Fatalf("expected speed estimate to be available")
	}

	if !almostEqual(speed, 108.0, 1e-9) {
		t.Errorf("speed = %v, want 108", speed)
	}
}

// TestSpeedUnavailable verifies that no speed is fabricated when the inputs
// are insufficient
func TestSpeedUnavailable(t *testing.T) {

	tests := []struct {
		name string
		est  SpeedEstimator
		hist []tracker.Position
	}{
		{
			"single position",
			SpeedEstimator{FrameRate: 30, MetersPerPixel: 0.1},
			history([3]float64{0, 100, 100}),
		},
		{
			"no calibration",
			SpeedEstimator{FrameRate: 30},
			history([3]float64{0, 0, 0}, [3]float64{10, 0, 100}),
		},
		{
			"no frame rate",
			SpeedEstimator{MetersPerPixel: 0.1},
			history([3]float64{0, 0, 0}, [3]float64{10, 0, 100}),
		},
		{
			"zero frame span",
			SpeedEstimator{FrameRate: 30, MetersPerPixel: 0.1},
			history([3]float64{5, 0, 0}, [3]float64{5, 0, 100}),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if speed, ok := tc.est.Estimate(tc.hist); ok {
				t.Errorf("expected unavailable, got %v", speed)
			}
		})
	}
}
