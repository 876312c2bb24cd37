// Package tracker maintains stable object identities across video frames by
// matching per-frame detections against active tracks.
package tracker

import (
	"fmt"
	"sort"
)

// Detection is a single frame observation handed to the tracker
type Detection struct {
	// ClassID is the object class of the detection
	ClassID int
	// Box is the bounding box of the detection
	Box Rect
	// Score is the detector confidence
	Score float64
}

// Config holds the tracker parameters
type Config struct {
	// MaxDistance is the gating threshold in pixels.  A detection further
	// than this from every predicted track centroid starts a new track
	MaxDistance float64
	// MaxDisappeared is the number of consecutive unmatched frames before
	// a track is evicted
	MaxDisappeared int
	// MaxHistory bounds each track's recorded centroid history
	MaxHistory int
}

// Update is one element of a frame's tracking result
type Update struct {
	// Track is the matched or newly created track
	Track *Track
	// IsNew reports that the track was created this frame
	IsNew bool
}

// Tracker owns the table of active tracks.  It is not safe for concurrent
// use, frames must be processed one at a time in frame order because
// matching, aging and eviction all depend on monotonic frame progression.
type Tracker struct {
	cfg Config
	// tracks is the active track table in creation order
	tracks []*Track
	// trackIDCount is the counter for assigning unique track IDs
	trackIDCount int
}

// New returns a Tracker with the given configuration.  Zero or negative
// MaxHistory falls back to a default bound.
func New(cfg Config) *Tracker {

	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = 90
	}

	return &Tracker{
		cfg:    cfg,
		tracks: make([]*Track, 0),
	}
}

// Len returns the number of active tracks
func (tk *Tracker) Len() int {
	return len(tk.tracks)
}

// ActiveTracks returns the active track table in creation order.  The
// returned slice is a copy, the tracks themselves are shared.
func (tk *Tracker) ActiveTracks() []*Track {
	out := make([]*Track, len(tk.tracks))
	copy(out, tk.tracks)
	return out
}

// Reset clears the track table.  Track IDs are not reused across a reset.
func (tk *Tracker) Reset() {
	tk.tracks = make([]*Track, 0)
}

// Update matches the frame's detections against the active tracks and
// returns the tracks that received a new position this frame.
//
// Matching is class partitioned: a track is only ever matched to a
// detection of its own class, so a bus track can never absorb a nearby car
// detection.  Within each class the association is solved globally with
// LAPJV over centroid distances, gated by MaxDistance.  Unmatched
// detections spawn new tracks, unmatched tracks age, and tracks that have
// been unseen longer than MaxDisappeared are evicted after matching so a
// reappearing object still has a chance to match in the same frame.
func (tk *Tracker) Update(frameIndex int, dets []Detection) ([]Update, error) {

	// reject degenerate boxes, they must not take part in matching
	valid := make([]Detection, 0, len(dets))

	for _, det := range dets {
		if det.Box.Valid() {
			valid = append(valid, det)
		}
	}

	// predict current centroids before building cost matrices
	for _, track := range tk.tracks {
		track.predict()
	}

	// partition tracks and detections by class
	trackIdx := make(map[int][]int)
	detIdx := make(map[int][]int)

	for i, track := range tk.tracks {
		trackIdx[track.ClassID()] = append(trackIdx[track.ClassID()], i)
	}

	for i, det := range valid {
		detIdx[det.ClassID] = append(detIdx[det.ClassID], i)
	}

	classes := make([]int, 0, len(trackIdx)+len(detIdx))

	for c := range trackIdx {
		classes = append(classes, c)
	}

	for c := range detIdx {
		if _, seen := trackIdx[c]; !seen {
			classes = append(classes, c)
		}
	}

	// deterministic processing order regardless of map iteration
	sort.Ints(classes)

	matchedTracks := make(map[int]bool, len(tk.tracks))
	var updates []Update

	for _, class := range classes {

		rows := trackIdx[class]
		cols := detIdx[class]

		// cost matrix of distances between predicted track centroids and
		// detection centroids
		cost := make([][]float64, len(rows))

		for i, ti := range rows {
			cost[i] = make([]float64, len(cols))
			predicted := tk.tracks[ti].PredictedCenter()

			for j, di := range cols {
				cost[i][j] = predicted.DistanceTo(valid[di].Box.Center())
			}
		}

		matches, _, unmatchedDets, err := linearAssignment(
			cost, len(rows), len(cols), tk.cfg.MaxDistance)

		if err != nil {
			return nil, fmt.Errorf("fatal error in assignment for class %d: %w",
				class, err)
		}

		for _, match := range matches {

			track := tk.tracks[rows[match[0]]]
			det := valid[cols[match[1]]]

			if err := track.observe(det, frameIndex); err != nil {
				return nil, fmt.Errorf("error updating track %d: %w",
					track.ID(), err)
			}

			matchedTracks[track.ID()] = true
			updates = append(updates, Update{Track: track})
		}

		// unmatched detections spawn new tracks
		for _, j := range unmatchedDets {
			tk.trackIDCount++
			track := newTrack(tk.trackIDCount, valid[cols[j]], frameIndex,
				tk.cfg.MaxHistory)
			tk.tracks = append(tk.tracks, track)
			matchedTracks[track.ID()] = true
			updates = append(updates, Update{Track: track, IsNew: true})
		}
	}

	// age unmatched tracks, then evict the ones gone too long.  Eviction
	// happens strictly after matching so a reappearing object could still
	// have matched above.
	kept := tk.tracks[:0]

	for _, track := range tk.tracks {

		if !matchedTracks[track.ID()] {
			track.age()
		}

		if track.FramesSinceSeen() > tk.cfg.MaxDisappeared {
			continue
		}

		kept = append(kept, track)
	}

	tk.tracks = kept

	return updates, nil
}
