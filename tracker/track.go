package tracker

import "gonum.org/v1/gonum/mat"

// Position is one sample of a track's centroid history
type Position struct {
	// FrameIndex is the frame the centroid was observed in
	FrameIndex int
	// Center is the observed bounding box centroid
	Center Point
}

// Track represents a persistent object identity across frames.  A track is
// created when a detection cannot be matched to any active track and evicted
// once it has gone unmatched longer than the disappearance threshold.
type Track struct {
	// Kalman filter used for centroid prediction
	kalmanFilter *KalmanFilter
	// Mean state vector
	mean StateMean
	// Covariance matrix
	covariance StateCov
	// id is the unique track identifier, assigned on creation and
	// never reused
	id int
	// classID is the object class, fixed at creation.  A track never
	// changes class
	classID int
	// history is the ordered sequence of observed centroid positions,
	// append only and bounded to maxHistory samples
	history []Position
	// maxHistory caps the history length, oldest samples are dropped
	maxHistory int
	// framesSinceSeen counts consecutive frames without a matching
	// detection
	framesSinceSeen int
	// crossed records that the track has crossed the count line.  Set at
	// most once, never cleared
	crossed bool
	// box is the most recently observed bounding box
	box Rect
}

// newTrack creates a track from its first detection
func newTrack(id int, det Detection, frameIndex, maxHistory int) *Track {

	t := &Track{
		kalmanFilter: NewKalmanFilter(1.0/20, 1.0/160),
		mean:         make(StateMean, 4),
		covariance:   StateCov{mat.NewDense(4, 4, nil)},
		id:           id,
		classID:      det.ClassID,
		maxHistory:   maxHistory,
		box:          det.Box,
	}

	center := det.Box.Center()

	t.kalmanFilter.Initiate(t.mean, &t.covariance,
		Measurement{center.X, center.Y}, det.Box.Height())

	t.history = append(t.history, Position{FrameIndex: frameIndex, Center: center})

	return t
}

// ID returns the unique identifier of the track
func (t *Track) ID() int {
	return t.id
}

// ClassID returns the object class the track was created with
func (t *Track) ClassID() int {
	return t.classID
}

// Box returns the most recently observed bounding box
func (t *Track) Box() Rect {
	return t.box
}

// History returns the recorded centroid positions in observation order.
// The returned slice is owned by the track and must not be mutated.
func (t *Track) History() []Position {
	return t.history
}

// Center returns the most recently observed centroid
func (t *Track) Center() Point {
	return t.history[len(t.history)-1].Center
}

// FramesSinceSeen returns the number of consecutive frames the track has
// gone unmatched
func (t *Track) FramesSinceSeen() int {
	return t.framesSinceSeen
}

// Crossed reports whether the track has already crossed the count line
func (t *Track) Crossed() bool {
	return t.crossed
}

// MarkCrossed sets the crossed flag.  It returns false if the flag was
// already set, so a crossing can never be recorded twice for one track.
func (t *Track) MarkCrossed() bool {

	if t.crossed {
		return false
	}

	t.crossed = true

	return true
}

// predict advances the Kalman state one frame
func (t *Track) predict() {
	t.kalmanFilter.Predict(t.mean, &t.covariance, t.box.Height())
}

// PredictedCenter returns the Kalman predicted centroid for the current
// frame.  Prediction is only used to build the matching cost matrix, the
// history records observed centroids.
func (t *Track) PredictedCenter() Point {
	return Point{X: t.mean[0], Y: t.mean[1]}
}

// observe records a matched detection for the given frame
func (t *Track) observe(det Detection, frameIndex int) error {

	center := det.Box.Center()

	err := t.kalmanFilter.Update(t.mean, &t.covariance,
		Measurement{center.X, center.Y}, det.Box.Height())

	if err != nil {
		return err
	}

	t.box = det.Box
	t.framesSinceSeen = 0
	t.history = append(t.history, Position{FrameIndex: frameIndex, Center: center})

	// drop oldest samples beyond the history bound
	if len(t.history) > t.maxHistory {
		t.history = t.history[len(t.history)-t.maxHistory:]
	}

	return nil
}

// age increments the unmatched frame counter
func (t *Track) age() {
	t.framesSinceSeen++
}
