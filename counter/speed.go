package counter

import "github.com/roadmetric/go-vehicletrack/tracker"

// mpsToKmh converts meters per second to kilometers per hour
const mpsToKmh = 3.6

// SpeedEstimator computes a kinematic speed estimate from a track's
// displacement and elapsed time, converted to km/h via a calibration
// factor.  It never synthesizes a speed: when the inputs are insufficient
// or the calibration is unset the estimate is reported as unavailable.
type SpeedEstimator struct {
	// FrameRate is the video frame rate in frames per second
	FrameRate float64
	// MetersPerPixel is the pixel to real world distance calibration
	// factor.  Zero or negative means uncalibrated.
	MetersPerPixel float64
}

// Estimate returns the speed in km/h derived from the displacement between
// the earliest and latest recorded positions.  The second return value is
// false when no estimate is possible.
func (e SpeedEstimator) Estimate(history []tracker.Position) (float64, bool) {

	if len(history) < 2 {
		return 0, false
	}

	if e.FrameRate <= 0 || e.MetersPerPixel <= 0 {
		return 0, false
	}

	first := history[0]
	last := history[len(history)-1]

	frames := last.FrameIndex - first.FrameIndex

	if frames <= 0 {
		return 0, false
	}

	pixels := first.Center.DistanceTo(last.Center)
	seconds := float64(frames) / e.FrameRate

	return pixels * e.MetersPerPixel / seconds * mpsToKmh, true
}
