// Package render draws the counting pipeline's annotations onto video
// frames: detection boxes, track trails, the count line and the running
// statistics block.  It never mutates tracking state.
package render

import (
	"fmt"
	"image"
	"sort"

	"gocv.io/x/gocv"

	"github.com/roadmetric/go-vehicletrack/counter"
	"github.com/roadmetric/go-vehicletrack/tracker"
)

// Style defines the parameters used for rendering the overlay
type Style struct {
	// BoxThickness is the line thickness of bounding boxes
	BoxThickness int
	// TrailThickness is the line thickness of track trails
	TrailThickness int
	// CircleRadius is the radius of the centroid marker
	CircleRadius int
	// Font is used for box labels and the statistics block
	Font Font
	// StatsFace optionally renders the statistics block with a TTF face
	// instead of the Hershey font
	StatsFace *FontFace
}

// DefaultStyle returns default overlay style settings
func DefaultStyle() Style {
	return Style{
		BoxThickness:   2,
		TrailThickness: 1,
		CircleRadius:   4,
		Font:           DefaultFont(),
	}
}

// State is everything the overlay draws for one frame
type State struct {
	// FrameIndex is the current frame number
	FrameIndex int
	// Tracks are the active tracks to annotate
	Tracks []*tracker.Track
	// LineY is the count line coordinate in pixels
	LineY float64
	// Snapshot is the cumulative statistics to print
	Snapshot counter.Snapshot
	// Labels maps class IDs to display names
	Labels []string
	// DirectionEnabled includes the per direction counters in the stats
	// block
	DirectionEnabled bool
	// SpeedEnabled includes the average speed in the stats block
	SpeedEnabled bool
}

// Overlay draws the full annotation set onto the image
func Overlay(img *gocv.Mat, state State, style Style) {

	drawTracks(img, state, style)
	drawCountLine(img, state, style)
	drawStats(img, state, style)
}

// drawTracks renders each track's bounding box, label, centroid and trail
func drawTracks(img *gocv.Mat, state State, style Style) {

	for _, track := range state.Tracks {

		clr := TrackColor(track.ID())
		box := track.Box()

		rect := image.Rect(int(box.X), int(box.Y),
			int(box.X+box.Width()), int(box.Y+box.Height()))

		gocv.Rectangle(img, rect, clr, style.BoxThickness)

		// label with class name and track ID above the box
		text := fmt.Sprintf("%s #%d",
			className(state.Labels, track.ClassID()), track.ID())

		gocv.PutTextWithParams(img, text,
			image.Pt(rect.Min.X, rect.Min.Y-style.Font.BottomPad),
			style.Font.Face, style.Font.Scale, style.Font.Color,
			style.Font.Thickness, style.Font.LineType, false)

		// centroid marker
		center := track.Center()
		gocv.Circle(img, image.Pt(int(center.X), int(center.Y)),
			style.CircleRadius, clr, -1)

		// trail through the recorded history
		history := track.History()

		for i := 1; i < len(history); i++ {
			gocv.Line(img,
				image.Pt(int(history[i-1].Center.X), int(history[i-1].Center.Y)),
				image.Pt(int(history[i].Center.X), int(history[i].Center.Y)),
				clr, style.TrailThickness)
		}
	}
}

// drawCountLine renders the reference line across the full frame width
func drawCountLine(img *gocv.Mat, state State, style Style) {

	y := int(state.LineY)

	gocv.Line(img, image.Pt(0, y), image.Pt(img.Cols(), y), Yellow,
		style.BoxThickness)
}

// drawStats prints the cumulative counters in the top left corner, matching
// the order of the persisted record: total, per class, directions, speed
func drawStats(img *gocv.Mat, state State, style Style) {

	snap := state.Snapshot
	lines := []string{fmt.Sprintf("Total: %d", snap.Total)}

	// per class counts in stable class ID order
	classIDs := make([]int, 0, len(snap.PerClass))

	for id := range snap.PerClass {
		classIDs = append(classIDs, id)
	}

	sort.Ints(classIDs)

	for _, id := range classIDs {
		lines = append(lines, fmt.Sprintf("%s: %d",
			className(state.Labels, id), snap.PerClass[id]))
	}

	if state.DirectionEnabled {
		lines = append(lines,
			fmt.Sprintf("North: %d", snap.Northbound),
			fmt.Sprintf("South: %d", snap.Southbound),
		)
	}

	if state.SpeedEnabled && snap.SpeedSamples > 0 {
		lines = append(lines, fmt.Sprintf("Avg Speed: %.1f km/h", snap.AvgSpeed))
	}

	for i, line := range lines {

		pt := image.Pt(10, 30+i*30)

		if style.StatsFace != nil {
			// TTF rendering handles text the Hershey fonts cannot
			style.StatsFace.DrawText(img, line, pt.X, pt.Y, Green)
			continue
		}

		gocv.PutTextWithParams(img, line, pt, style.Font.Face, 0.8, Green,
			2, style.Font.LineType, false)
	}
}

// className returns the display name for a class ID
func className(labels []string, classID int) string {

	if classID < 0 || classID >= len(labels) {
		return fmt.Sprintf("class %d", classID)
	}

	return labels[classID]
}
