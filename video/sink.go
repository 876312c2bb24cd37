package video

import (
	"fmt"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"
)

// Sink writes annotated frames to a video file in the order they are given
type Sink struct {
	writer *gocv.VideoWriter
	path   string

	closeOnce sync.Once
	closeErr  error
}

// ProcessedPath returns the default output location for an annotated copy
// of the given source video: processed_<name> beside the input
func ProcessedPath(sourcePath string) string {
	dir, name := filepath.Split(sourcePath)
	return filepath.Join(dir, "processed_"+name)
}

// OpenSink opens a video writer matching the source geometry and frame
// rate.  A sink that cannot be opened is fatal at startup.
func OpenSink(path string, fps float64, width, height int) (*Sink, error) {

	writer, err := gocv.VideoWriterFile(path, "mp4v", fps, width, height, true)

	if err != nil {
		return nil, fmt.Errorf("error opening video sink %s: %w", path, err)
	}

	if !writer.IsOpened() {
		writer.Close()
		return nil, fmt.Errorf("video sink %s could not be opened for writing", path)
	}

	return &Sink{writer: writer, path: path}, nil
}

// Path returns the sink file path
func (s *Sink) Path() string {
	return s.path
}

// Write appends one frame
func (s *Sink) Write(img gocv.Mat) error {

	if err := s.writer.Write(img); err != nil {
		return fmt.Errorf("error writing frame to %s: %w", s.path, err)
	}

	return nil
}

// Close releases the writer handle.  Safe to call more than once.
func (s *Sink) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.writer.Close()
	})
	return s.closeErr
}
