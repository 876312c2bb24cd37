package vehicletrack

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gocv.io/x/gocv"

	"github.com/roadmetric/go-vehicletrack/counter"
	"github.com/roadmetric/go-vehicletrack/render"
	"github.com/roadmetric/go-vehicletrack/tracker"
)

// FrameSource yields video frames in order with a known frame rate
type FrameSource interface {
	// Read reads the next frame, returning false when the stream is
	// exhausted
	Read(img *gocv.Mat) bool
	// FrameRate returns the source frame rate in frames per second
	FrameRate() float64
	// Height returns the frame height in pixels
	Height() int
	// Close releases the source.  Must be safe to call more than once.
	Close() error
}

// FrameSink accepts annotated frames in the same order the originals were
// read
type FrameSink interface {
	Write(img gocv.Mat) error
	Close() error
}

// SnapshotStore persists stats snapshots as append-only records
type SnapshotStore interface {
	Append(snap counter.Snapshot) error
}

// FrameResult is what one processed frame produced, delivered to the
// observer at the presentation boundary
type FrameResult struct {
	// FrameIndex is the processed frame number
	FrameIndex int
	// Events are the crossing events detected in this frame, often empty
	Events []counter.Event
	// Snapshot is the cumulative statistics after this frame
	Snapshot counter.Snapshot
}

// Observer receives each frame's result.  It is called synchronously from
// the frame loop and must not block for long.
type Observer func(FrameResult)

// Option configures an Engine
type Option func(*Engine)

// WithSink attaches a video sink for annotated frames.  Frames are only
// written when SaveProcessedVideo is enabled in the settings.
func WithSink(sink FrameSink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithStore attaches a persistence store receiving one snapshot row per
// processed frame
func WithStore(store SnapshotStore) Option {
	return func(e *Engine) { e.store = store }
}

// WithObserver attaches a presentation callback
func WithObserver(fn Observer) Option {
	return func(e *Engine) { e.observer = fn }
}

// WithLabels sets the class display names used in annotations
func WithLabels(labels []string) Option {
	return func(e *Engine) { e.labels = labels }
}

// WithPolarity overrides the direction polarity of the count line
func WithPolarity(p counter.Polarity) Option {
	return func(e *Engine) { e.polarity = p }
}

// WithOverlayStyle overrides the annotation style
func WithOverlayStyle(style render.Style) Option {
	return func(e *Engine) { e.style = style }
}

// WithMaxDetectorFailures sets how many consecutive detector failures are
// tolerated before the pipeline aborts
func WithMaxDetectorFailures(n int) Option {
	return func(e *Engine) { e.maxDetectorFailures = n }
}

// Engine drives the frame loop: one frame at a time, in video order, through
// detection, identity tracking, crossing evaluation and stats aggregation.
// It owns no shared state across frames other than the tracker table and is
// strictly single pass: Run may be called once.
type Engine struct {
	settings Settings
	detector Detector
	source   FrameSource

	sink     FrameSink
	store    SnapshotStore
	observer Observer
	labels   []string
	style    render.Style
	polarity counter.Polarity

	maxDetectorFailures int

	tracks *tracker.Tracker
	line   counter.Line
	speed  counter.SpeedEstimator
	agg    *counter.Aggregator

	lastFrame int
	used      bool
}

// NewEngine builds a pipeline engine over the given detector and frame
// source
func NewEngine(settings Settings, detector Detector, source FrameSource,
	opts ...Option) (*Engine, error) {

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	if detector == nil {
		return nil, errors.New("detector is required")
	}

	if source == nil {
		return nil, errors.New("frame source is required")
	}

	e := &Engine{
		settings:            settings,
		detector:            detector,
		source:              source,
		style:               render.DefaultStyle(),
		maxDetectorFailures: 30,
		lastFrame:           -1,
		agg:                 counter.NewAggregator(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.tracks = tracker.New(tracker.Config{
		MaxDistance:    settings.MatchMaxDistance,
		MaxDisappeared: settings.TrackingPersistence,
	})

	e.line = counter.NewLine(settings.CountLinePosition, source.Height(), e.polarity)

	e.speed = counter.SpeedEstimator{
		FrameRate:      source.FrameRate(),
		MetersPerPixel: settings.SpeedCalibration,
	}

	return e, nil
}

// Snapshot returns the cumulative statistics as of the last processed frame
func (e *Engine) Snapshot() counter.Snapshot {
	return e.agg.Current(e.lastFrame)
}

// Run processes the video stream until it is exhausted, the context is
// cancelled, or the detector becomes unavailable.  Source and sink are
// released on every exit path.  A cancelled or aborted run still flushes
// the final stats snapshot to the store.
func (e *Engine) Run(ctx context.Context) error {

	if e.used {
		return ErrEngineUsed
	}

	e.used = true

	defer e.source.Close()

	if e.sink != nil {
		defer e.sink.Close()
	}

	img := gocv.NewMat()
	defer img.Close()

	failures := 0

	for {
		// cancellation is honored between frames
		select {
		case <-ctx.Done():
			e.flush()
			return ctx.Err()
		default:
		}

		if ok := e.source.Read(&img); !ok {
			// stream exhausted, terminal state
			return nil
		}

		e.lastFrame++
		frameIndex := e.lastFrame

		dets, err := e.detector.Detect(ctx, img, frameIndex)

		if err != nil {
			failures++

			if failures >= e.maxDetectorFailures {
				e.flush()
				return &DetectionUnavailableError{Failures: failures, Err: err}
			}

			// frame is skipped but tracks still age below
			log.Printf("detector failed on frame %d (%d consecutive): %v",
				frameIndex, failures, err)
			dets = nil

		} else {
			failures = 0
		}

		filtered := filterDetections(e.settings, dets)

		updates, err := e.tracks.Update(frameIndex, toTrackerDetections(filtered))

		if err != nil {
			// a failed association leaves the track table consistent,
			// treat like a skipped frame
			log.Printf("tracking failed on frame %d: %v", frameIndex, err)
			continue
		}

		events := e.evaluate(frameIndex, updates)
		snap := e.agg.Current(frameIndex)

		if e.store != nil {
			if err := e.store.Append(snap); err != nil {
				return fmt.Errorf("persisting stats for frame %d: %w",
					frameIndex, err)
			}
		}

		if e.observer != nil {
			e.observer(FrameResult{
				FrameIndex: frameIndex,
				Events:     events,
				Snapshot:   snap,
			})
		}

		if e.sink != nil && e.settings.SaveProcessedVideo {

			render.Overlay(&img, render.State{
				FrameIndex:       frameIndex,
				Tracks:           e.tracks.ActiveTracks(),
				LineY:            e.line.Y,
				Snapshot:         snap,
				Labels:           e.labels,
				DirectionEnabled: e.settings.DirectionDetectionEnabled,
				SpeedEnabled:     e.settings.SpeedEstimationEnabled,
			}, e.style)

			if err := e.sink.Write(img); err != nil {
				return fmt.Errorf("writing annotated frame %d: %w",
					frameIndex, err)
			}
		}
	}
}

// evaluate runs crossing detection over the tracks that received a new
// position this frame and records the resulting events
func (e *Engine) evaluate(frameIndex int, updates []tracker.Update) []counter.Event {

	var events []counter.Event

	for _, u := range updates {

		track := u.Track

		// new tracks have a single position, nothing to compare against
		if u.IsNew || track.Crossed() {
			continue
		}

		history := track.History()

		if len(history) < 2 {
			continue
		}

		prev := history[len(history)-2].Center
		curr := history[len(history)-1].Center

		if !e.line.Crossed(prev, curr) {
			continue
		}

		// the crossed flag is checked and immediately set so one
		// continuous motion can never count twice
		if !track.MarkCrossed() {
			continue
		}

		direction := counter.DirectionUnknown

		if e.settings.DirectionDetectionEnabled {
			direction = e.line.Direction(prev, curr)
		}

		var speed *float64

		if e.settings.SpeedEstimationEnabled {
			if v, ok := e.speed.Estimate(history); ok {
				speed = &v
			}
		}

		ev := counter.Event{
			TrackID:    track.ID(),
			ClassID:    track.ClassID(),
			Direction:  direction,
			Speed:      speed,
			FrameIndex: frameIndex,
		}

		if _, err := e.agg.Record(ev); err != nil {
			// duplicate events indicate an upstream invariant violation,
			// surface them and drop the event, never retry
			log.Printf("dropping crossing event: %v", err)
			continue
		}

		events = append(events, ev)
	}

	return events
}

// flush persists the final snapshot on early exit paths so the last state
// of an interrupted run is never lost
func (e *Engine) flush() {

	if e.store == nil || e.lastFrame < 0 {
		return
	}

	if err := e.store.Append(e.agg.Current(e.lastFrame)); err != nil {
		log.Printf("failed to flush final stats snapshot: %v", err)
	}
}
