package vehicletrack

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Settings holds the runtime configuration for the counting pipeline.  The
// zero value is not usable, use DefaultSettings as the starting point.
type Settings struct {
	// DetectionConfidence is the minimum confidence passed to the external
	// detector.  Detections below this value are never seen by the pipeline
	DetectionConfidence float64 `json:"detection_confidence"`
	// TrackingPersistence is the number of consecutive frames a track may go
	// unmatched before it is evicted
	TrackingPersistence int `json:"tracking_persistence"`
	// CountLinePosition is the y coordinate of the count line expressed as a
	// fraction of the frame height, in the range (0,1)
	CountLinePosition float64 `json:"count_line_position"`
	// SpeedEstimationEnabled enables the kinematic speed estimator
	SpeedEstimationEnabled bool `json:"speed_estimation_enabled"`
	// DirectionDetectionEnabled enables direction classification of
	// crossing events
	DirectionDetectionEnabled bool `json:"direction_detection_enabled"`
	// SaveProcessedVideo controls whether annotated frames are written to
	// the video sink
	SaveProcessedVideo bool `json:"save_processed_video"`
	// SpeedCalibration is the pixel to real world conversion factor in
	// meters per pixel.  A value of 0 means uncalibrated, in which case
	// speed is reported as unavailable
	SpeedCalibration float64 `json:"speed_calibration"`
	// MatchMaxDistance is the gating threshold in pixels for associating a
	// detection with an existing track
	MatchMaxDistance float64 `json:"match_max_distance"`
	// VehicleClasses is the set of detector class IDs treated as vehicles.
	// Detections of any other class are ignored
	VehicleClasses []int `json:"vehicle_classes"`
}

// DefaultSettings returns the default pipeline settings.  Vehicle classes
// default to the COCO IDs for bicycle, car, motorcycle, bus, and truck.
func DefaultSettings() Settings {
	return Settings{
		DetectionConfidence:       0.5,
		TrackingPersistence:       30,
		CountLinePosition:         0.5,
		SpeedEstimationEnabled:    true,
		DirectionDetectionEnabled: true,
		SaveProcessedVideo:        false,
		SpeedCalibration:          0,
		MatchMaxDistance:          80,
		VehicleClasses:            []int{1, 2, 3, 5, 7},
	}
}

// LoadSettings reads settings from the given JSON file.  A missing file is
// not an error, defaults are returned instead so a fresh deployment works
// without any configuration.
func LoadSettings(path string) (Settings, error) {

	s := DefaultSettings()

	data, err := os.ReadFile(path)

	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}

		return s, fmt.Errorf("error reading settings file: %w", err)
	}

	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("error parsing settings file: %w", err)
	}

	if err := s.Validate(); err != nil {
		return s, err
	}

	return s, nil
}

// Save writes the settings to the given file as indented JSON
func (s Settings) Save(path string) error {

	data, err := json.MarshalIndent(s, "", "    ")

	if err != nil {
		return fmt.Errorf("error encoding settings: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing settings file: %w", err)
	}

	return nil
}

// Validate checks the settings for values that would make the pipeline
// misbehave silently
func (s Settings) Validate() error {

	if s.DetectionConfidence < 0 || s.DetectionConfidence > 1 {
		return fmt.Errorf("detection_confidence must be in [0,1], got %v",
			s.DetectionConfidence)
	}

	if s.TrackingPersistence < 1 {
		return fmt.Errorf("tracking_persistence must be at least 1, got %d",
			s.TrackingPersistence)
	}

	if s.CountLinePosition <= 0 || s.CountLinePosition >= 1 {
		return fmt.Errorf("count_line_position must be in (0,1), got %v",
			s.CountLinePosition)
	}

	if s.MatchMaxDistance <= 0 {
		return fmt.Errorf("match_max_distance must be positive, got %v",
			s.MatchMaxDistance)
	}

	if len(s.VehicleClasses) == 0 {
		return errors.New("vehicle_classes must not be empty")
	}

	return nil
}

// isVehicleClass reports whether the class ID is in the configured vehicle
// class set
func (s Settings) isVehicleClass(classID int) bool {
	for _, c := range s.VehicleClasses {
		if c == classID {
			return true
		}
	}

	return false
}
