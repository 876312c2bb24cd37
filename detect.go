package vehicletrack

import (
	"context"
	"log"

	"github.com/roadmetric/go-vehicletrack/tracker"
	"gocv.io/x/gocv"
)

// Detection is a single observation reported by the external detector for
// one frame
type Detection struct {
	// ClassID is the detector class of the object
	ClassID int
	// X1, Y1, X2, Y2 are the corners of the axis aligned bounding box
	X1, Y1, X2, Y2 float64
	// Confidence is the detector confidence in the range 0 to 1
	Confidence float64
	// FrameIndex is the frame the observation belongs to
	FrameIndex int
}

// Valid reports whether the detection has a usable bounding box.  Degenerate
// boxes with non positive dimensions are a data quality problem in the
// detector output and must not reach the tracker.
func (d Detection) Valid() bool {
	return d.X2 > d.X1 && d.Y2 > d.Y1
}

// Detector is the contract with the external object detection model.  Given
// a frame it returns the objects found in it.  Implementations may block on
// model inference, the engine calls Detect once per frame in frame order.
type Detector interface {
	Detect(ctx context.Context, frame gocv.Mat, frameIndex int) ([]Detection, error)
}

// filterDetections drops detections the pipeline must never act on: classes
// outside the vehicle set, confidences below the configured threshold, and
// degenerate boxes.  Dropped degenerate boxes are logged as a data quality
// signal, the frame itself is still processed.
func filterDetections(s Settings, dets []Detection) []Detection {

	kept := make([]Detection, 0, len(dets))

	for _, det := range dets {

		if !s.isVehicleClass(det.ClassID) {
			continue
		}

		if det.Confidence < s.DetectionConfidence {
			continue
		}

		if !det.Valid() {
			log.Printf("dropping degenerate detection box (class=%d frame=%d): %.1f,%.1f,%.1f,%.1f",
				det.ClassID, det.FrameIndex, det.X1, det.Y1, det.X2, det.Y2)
			continue
		}

		kept = append(kept, det)
	}

	return kept
}

// toTrackerDetections converts adapter detections into the tracker input
// format
func toTrackerDetections(dets []Detection) []tracker.Detection {

	var objs []tracker.Detection

	for _, det := range dets {
		objs = append(objs, tracker.Detection{
			ClassID: det.ClassID,
			Box:     tracker.NewRect(det.X1, det.Y1, det.X2-det.X1, det.Y2-det.Y1),
			Score:   det.Confidence,
		})
	}

	return objs
}
