// Package video wraps the gocv video boundary: an ordered frame source with
// a known frame rate and an ordered annotated frame sink.
package video

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Source reads frames from a video file in order
type Source struct {
	cap    *gocv.VideoCapture
	path   string
	width  int
	height int
	fps    float64

	closeOnce sync.Once
	closeErr  error
}

// OpenSource opens the video file for reading.  A file that cannot be
// opened is fatal at startup, no partial processing is attempted.
func OpenSource(path string) (*Source, error) {

	cap, err := gocv.VideoCaptureFile(path)

	if err != nil {
		return nil, fmt.Errorf("error opening video source %s: %w", path, err)
	}

	s := &Source{
		cap:    cap,
		path:   path,
		width:  int(cap.Get(gocv.VideoCaptureFrameWidth)),
		height: int(cap.Get(gocv.VideoCaptureFrameHeight)),
		fps:    cap.Get(gocv.VideoCaptureFPS),
	}

	if s.width <= 0 || s.height <= 0 {
		cap.Close()
		return nil, fmt.Errorf("video source %s reports invalid dimensions %dx%d",
			path, s.width, s.height)
	}

	return s, nil
}

// Path returns the source file path
func (s *Source) Path() string {
	return s.path
}

// Width returns the frame width in pixels
func (s *Source) Width() int {
	return s.width
}

// Height returns the frame height in pixels
func (s *Source) Height() int {
	return s.height
}

// FrameRate returns the source frame rate in frames per second
func (s *Source) FrameRate() float64 {
	return s.fps
}

// Read reads the next frame into img.  It returns false when the stream
// is exhausted, which ends the pipeline normally.
func (s *Source) Read(img *gocv.Mat) bool {

	if ok := s.cap.Read(img); !ok {
		return false
	}

	// decoder can emit empty frames at stream boundaries, skip them
	for img.Empty() {
		if ok := s.cap.Read(img); !ok {
			return false
		}
	}

	return true
}

// Close releases the capture handle.  Safe to call more than once.
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.cap.Close()
	})
	return s.closeErr
}
