package vehicletrack

import (
	"errors"
	"fmt"
)

// ErrEngineUsed is returned when Run is called on an Engine whose single
// pass has already been consumed.  Restarting requires reopening the frame
// source and building a new Engine.
var ErrEngineUsed = errors.New("engine has already been run")

// DetectionUnavailableError is returned when the external detector fails for
// more consecutive frames than the engine tolerates and the pipeline aborts
type DetectionUnavailableError struct {
	// Failures is the number of consecutive detector failures observed
	Failures int
	// Err is the last error returned by the detector
	Err error
}

func (e *DetectionUnavailableError) Error() string {
	return fmt.Sprintf("detector unavailable after %d consecutive failures: %v",
		e.Failures, e.Err)
}

func (e *DetectionUnavailableError) Unwrap() error {
	return e.Err
}
