package counter

import (
	"fmt"
	"time"
)

// Event is an immutable crossing event, emitted at most once per track
type Event struct {
	// TrackID identifies the track that crossed the line
	TrackID int
	// ClassID is the vehicle class of the track
	ClassID int
	// Direction is the classified direction of travel, DirectionUnknown
	// when direction detection is disabled
	Direction Direction
	// Speed is the estimated speed in km/h, nil when unavailable or when
	// speed estimation is disabled
	Speed *float64
	// FrameIndex is the frame the crossing was detected in
	FrameIndex int
}

// Snapshot is an immutable view of the cumulative counters at a point in
// time, suitable for external persistence.  Counts never decrease across
// the snapshots of one run.
type Snapshot struct {
	// Timestamp is when the snapshot was taken
	Timestamp time.Time
	// FrameIndex is the frame the snapshot corresponds to
	FrameIndex int
	// Total is the number of crossing events recorded so far
	Total int
	// PerClass maps vehicle class ID to its crossing count
	PerClass map[int]int
	// Northbound and Southbound are the per direction crossing counts
	Northbound int
	Southbound int
	// AvgSpeed is the running mean of the recorded speed estimates in
	// km/h, 0 when no speeds have been recorded
	AvgSpeed float64
	// SpeedSamples is the number of speed estimates folded into AvgSpeed
	SpeedSamples int
}

// DuplicateEventError reports a crossing event for a track that has already
// been recorded.  It indicates an upstream invariant violation and is never
// retried.
type DuplicateEventError struct {
	TrackID int
}

func (e *DuplicateEventError) Error() string {
	return fmt.Sprintf("duplicate crossing event for track %d", e.TrackID)
}

// Aggregator accumulates per class and per direction crossing counts and a
// running mean speed.  It exclusively owns its counters, every mutation is
// driven by exactly one Event through Record.
type Aggregator struct {
	total      int
	perClass   map[int]int
	northbound int
	southbound int
	avgSpeed   float64
	speedCount int
	// recorded guards against double application of an event for the
	// same track
	recorded map[int]bool
	// now is the clock, replaceable in tests
	now func() time.Time
}

// NewAggregator returns an empty Aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{
		perClass: make(map[int]int),
		recorded: make(map[int]bool),
		now:      time.Now,
	}
}

// Record applies one crossing event and returns the resulting snapshot.
// An event for an already recorded track returns a DuplicateEventError and
// leaves every counter untouched.
func (a *Aggregator) Record(ev Event) (Snapshot, error) {

	if a.recorded[ev.TrackID] {
		return a.Current(ev.FrameIndex), &DuplicateEventError{TrackID: ev.TrackID}
	}

	a.recorded[ev.TrackID] = true

	a.total++
	a.perClass[ev.ClassID]++

	switch ev.Direction {
	case Northbound:
		a.northbound++
	case Southbound:
		a.southbound++
	}

	if ev.Speed != nil {
		// incremental mean update, O(1) per event
		a.speedCount++
		a.avgSpeed += (*ev.Speed - a.avgSpeed) / float64(a.speedCount)
	}

	return a.Current(ev.FrameIndex), nil
}

// Current returns a snapshot of the counters without recording anything
func (a *Aggregator) Current(frameIndex int) Snapshot {

	perClass := make(map[int]int, len(a.perClass))

	for k, v := range a.perClass {
		perClass[k] = v
	}

	return Snapshot{
		Timestamp:    a.now(),
		FrameIndex:   frameIndex,
		Total:        a.total,
		PerClass:     perClass,
		Northbound:   a.northbound,
		Southbound:   a.southbound,
		AvgSpeed:     a.avgSpeed,
		SpeedSamples: a.speedCount,
	}
}
