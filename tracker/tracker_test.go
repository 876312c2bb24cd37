package tracker

import (
	"testing"
)

// det builds a Detection from box corners
func det(classID int, x1, y1, x2, y2 float64) Detection {
	return Detection{
		ClassID: classID,
		Box:     NewRect(x1, y1, x2-x1, y2-y1),
		Score:   0.9,
	}
}

// singleTrackID runs the updates and asserts exactly one track was reported,
// returning its ID
func singleTrackID(t *testing.T, updates []Update, err error) int {
	t.Helper()

	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if len(updates) != 1 {
		t.Fatalf("expected 1 track update, got %d", len(updates))
	}

	return updates[0].Track.ID()
}

// TestStableIdentity feeds a detection drifting a few pixels per frame and
// verifies the same track persists with an unchanged ID
func TestStableIdentity(t *testing.T) {

	tk := New(Config{MaxDistance: 10, MaxDisappeared: 30})

	// centroid moves at most 3px per step
	frames := [][4]float64{
		{100, 100, 140, 160},
		{102, 101, 142, 161},
		{105, 103, 145, 163},
		{107, 106, 147, 166},
		{110, 108, 150, 168},
	}

	firstID := 0

	for i, box := range frames {

		updates, err := tk.Update(i, []Detection{det(2, box[0], box[1], box[2], box[3])})
		id := singleTrackID(t, updates, err)

		if i == 0 {
			firstID = id

			if !updates[0].IsNew {
				t.Errorf("first frame should create a new track")
			}
			continue
		}

		if id != firstID {
			t.Errorf("frame %d: track ID changed from %d to %d", i, firstID, id)
		}

		if updates[0].IsNew {
			t.Errorf("frame %d: existing track reported as new", i)
		}
	}

	if tk.Len() != 1 {
		t.Errorf("expected 1 active track, got %d", tk.Len())
	}

	track := tk.ActiveTracks()[0]

	if len(track.History()) != len(frames) {
		t.Errorf("expected %d history samples, got %d", len(frames), len(track.History()))
	}
}

// TestEvictionAndNewIdentity verifies a track unseen beyond the
// disappearance threshold is evicted and that a reappearing detection gets a
// fresh track ID
func TestEvictionAndNewIdentity(t *testing.T) {

	const threshold = 30

	tk := New(Config{MaxDistance: 50, MaxDisappeared: threshold})

	updates, err := tk.Update(0, []Detection{det(2, 100, 100, 140, 160)})
	firstID := singleTrackID(t, updates, err)

	// age the track for 31 empty frames, it must be evicted at frame 31
	for i := 1; i <= threshold+1; i++ {

		updates, err := tk.Update(i, nil)

		if err != nil {
			t.Fatalf("Update returned error: %v", err)
		}

		if len(updates) != 0 {
			t.Fatalf("frame %d: no updates expected with zero detections", i)
		}

		if i <= threshold && tk.Len() != 1 {
			t.Errorf("frame %d: track evicted too early", i)
		}
	}

	if tk.Len() != 0 {
		t.Fatalf("track not evicted after %d unmatched frames", threshold+1)
	}

	// a similar detection reappearing creates a new identity
	updates, err = tk.Update(threshold+2, []Detection{det(2, 101, 101, 141, 161)})
	newID := singleTrackID(t, updates, err)

	if newID == firstID {
		t.Errorf("evicted track ID %d was reused", firstID)
	}

	if !updates[0].IsNew {
		t.Errorf("reappearing detection should create a new track")
	}
}

// TestClassPartitionedMatching verifies two adjacent objects of different
// classes are never merged into one track
func TestClassPartitionedMatching(t *testing.T) {

	tk := New(Config{MaxDistance: 100, MaxDisappeared: 30})

	// a bus and a car right next to each other
	updates, err := tk.Update(0, []Detection{
		det(5, 100, 100, 180, 160),
		det(2, 120, 105, 170, 150),
	})

	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if len(updates) != 2 {
		t.Fatalf("expected 2 new tracks, got %d", len(updates))
	}

	ids := make(map[int]int) // classID -> trackID

	for _, u := range updates {
		ids[u.Track.ClassID()] = u.Track.ID()
	}

	// next frame only the car detection is present, shifted slightly.  It
	// must match the car track and never the closer bus track
	updates, err = tk.Update(1, []Detection{det(2, 122, 106, 172, 151)})

	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if len(updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(updates))
	}

	u := updates[0]

	if u.IsNew {
		t.Fatalf("car detection spawned a new track instead of matching")
	}

	if u.Track.ID() != ids[2] {
		t.Errorf("car detection matched track %d, want car track %d", u.Track.ID(), ids[2])
	}

	if u.Track.ClassID() != 2 {
		t.Errorf("matched track has class %d, want 2", u.Track.ClassID())
	}
}

// TestMonotonicTrackIDs verifies IDs strictly increase across creations
func TestMonotonicTrackIDs(t *testing.T) {

	tk := New(Config{MaxDistance: 10, MaxDisappeared: 1})

	lastID := 0

	// widely separated detections each spawn a new track
	for i := 0; i < 5; i++ {

		x := float64(i * 500)
		updates, err := tk.Update(i, []Detection{det(2, x, 0, x+40, 40)})

		if err != nil {
			t.Fatalf("Update returned error: %v", err)
		}

		for _, u := range updates {
			if u.IsNew {
				if u.Track.ID() <= lastID {
					t.Errorf("track ID %d not greater than previous %d", u.Track.ID(), lastID)
				}
				lastID = u.Track.ID()
			}
		}
	}
}

// TestDegenerateDetectionsExcluded verifies invalid boxes neither match nor
// spawn tracks
func TestDegenerateDetectionsExcluded(t *testing.T) {

	tk := New(Config{MaxDistance: 50, MaxDisappeared: 30})

	updates, err := tk.Update(0, []Detection{
		det(2, 100, 100, 100, 160), // zero width
		det(2, 100, 100, 140, 90),  // negative height
	})

	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if len(updates) != 0 || tk.Len() != 0 {
		t.Errorf("degenerate detections created tracks: %d updates, %d tracks",
			len(updates), tk.Len())
	}
}

// TestZeroTracksZeroDetections verifies the degenerate frame cases
func TestZeroTracksZeroDetections(t *testing.T) {

	tk := New(Config{MaxDistance: 50, MaxDisappeared: 30})

	// zero tracks and zero detections
	updates, err := tk.Update(0, nil)

	if err != nil || len(updates) != 0 {
		t.Fatalf("empty frame on empty tracker: updates=%d err=%v", len(updates), err)
	}

	// zero tracks, all detections spawn
	updates, err = tk.Update(1, []Detection{
		det(2, 0, 0, 40, 40),
		det(3, 200, 200, 240, 240),
	})

	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if len(updates) != 2 || tk.Len() != 2 {
		t.Fatalf("expected 2 spawned tracks, got %d updates, %d tracks",
			len(updates), tk.Len())
	}

	// zero detections, all tracks age
	if _, err := tk.Update(2, nil); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	for _, track := range tk.ActiveTracks() {
		if track.FramesSinceSeen() != 1 {
			t.Errorf("track %d FramesSinceSeen = %d, want 1",
				track.ID(), track.FramesSinceSeen())
		}
	}
}

// TestHistoryBound verifies the centroid history stays within its bound
func TestHistoryBound(t *testing.T) {

	tk := New(Config{MaxDistance: 20, MaxDisappeared: 30, MaxHistory: 5})

	for i := 0; i < 12; i++ {
		d := float64(i * 2)
		if _, err := tk.Update(i, []Detection{det(2, d, d, d+40, d+40)}); err != nil {
			t.Fatalf("Update returned error: %v", err)
		}
	}

	track := tk.ActiveTracks()[0]

	if len(track.History()) != 5 {
		t.Errorf("history length = %d, want 5", len(track.History()))
	}

	// newest sample must be the latest frame
	last := track.History()[len(track.History())-1]

	if last.FrameIndex != 11 {
		t.Errorf("latest history sample frame = %d, want 11", last.FrameIndex)
	}
}

// TestMarkCrossedWriteOnce verifies the crossed flag can be set exactly once
func TestMarkCrossedWriteOnce(t *testing.T) {

	tk := New(Config{MaxDistance: 20, MaxDisappeared: 30})

	updates, err := tk.Update(0, []Detection{det(2, 0, 0, 40, 40)})
	singleTrackID(t, updates, err)

	track := updates[0].Track

	if track.Crossed() {
		t.Fatalf("new track already marked crossed")
	}

	if !track.MarkCrossed() {
		t.Fatalf("first MarkCrossed returned false")
	}

	if track.MarkCrossed() {
		t.Errorf("second MarkCrossed returned true")
	}

	if !track.Crossed() {
		t.Errorf("Crossed() false after MarkCrossed")
	}
}
