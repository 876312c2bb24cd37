/*
go-vehicletrack turns per-frame vehicle detections from a video stream into
traffic statistics: counts by class, counts by direction of travel, and
estimated speeds, persisted as append-only records.

The object detector itself is treated as a black box behind the Detector
interface.  This module consumes its bounding boxes, maintains stable track
identities across frames, detects reference-line crossings exactly once per
vehicle, and aggregates the resulting crossing events into snapshots suitable
for persistence.

See example code and usage in the example subdirectory.
*/
package vehicletrack
