package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gocv.io/x/gocv"

	"github.com/roadmetric/go-vehicletrack"
	"github.com/roadmetric/go-vehicletrack/counter"
	"github.com/roadmetric/go-vehicletrack/statsdb"
	"github.com/roadmetric/go-vehicletrack/video"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	vidFile := flag.String("v", "../data/traffic.mp4", "Video file to run vehicle counting on")
	detFile := flag.String("d", "../data/traffic-detections.jsonl", "JSONL file of per frame detections to replay")
	labelFile := flag.String("l", "../data/coco_80_labels_list.txt", "Text file containing detector class labels")
	settingsFile := flag.String("s", "settings.json", "JSON settings file, defaults are used if missing")
	dbFile := flag.String("db", "traffic_stats.db", "SQLite database file to append statistics to")
	outFile := flag.String("o", "", "Annotated video output file, defaults to processed_<input> next to the input")
	northDown := flag.Bool("n", false, "Treat increasing y as northbound, for cameras mounted facing the other way")

	flag.Parse()

	settings, err := vehicletrack.LoadSettings(*settingsFile)

	if err != nil {
		log.Fatalf("Error loading settings: %v", err)
	}

	labels, err := vehicletrack.LoadLabels(*labelFile)

	if err != nil {
		log.Fatalf("Error loading labels: %v", err)
	}

	detector, err := NewReplayDetector(*detFile)

	if err != nil {
		log.Fatalf("Error loading detections: %v", err)
	}

	source, err := video.OpenSource(*vidFile)

	if err != nil {
		log.Fatalf("Error opening video: %v", err)
	}

	store, err := statsdb.Open(*dbFile)

	if err != nil {
		log.Fatalf("Error opening stats database: %v", err)
	}

	defer store.Close()

	log.Printf("Run ID: %s", store.RunID())

	opts := []vehicletrack.Option{
		vehicletrack.WithStore(store),
		vehicletrack.WithLabels(labels),
		vehicletrack.WithObserver(logCrossings(labels)),
	}

	if *northDown {
		opts = append(opts, vehicletrack.WithPolarity(counter.DecreasingYSouth))
	}

	if settings.SaveProcessedVideo {

		outPath := *outFile

		if outPath == "" {
			outPath = video.ProcessedPath(*vidFile)
		}

		sink, err := video.OpenSink(outPath, source.FrameRate(),
			source.Width(), source.Height())

		if err != nil {
			log.Fatalf("Error opening video output: %v", err)
		}

		log.Printf("Writing annotated video to %s", outPath)
		opts = append(opts, vehicletrack.WithSink(sink))
	}

	engine, err := vehicletrack.NewEngine(settings, detector, source, opts...)

	if err != nil {
		log.Fatalf("Error creating engine: %v", err)
	}

	// ctrl-c stops the run cleanly, stats written so far are kept
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.Run(ctx); err != nil {
		log.Fatalf("Run failed: %v", err)
	}

	printSummary(engine.Snapshot(), labels)
}

// logCrossings returns an observer that prints each crossing event as it
// happens
func logCrossings(labels []string) vehicletrack.Observer {

	return func(res vehicletrack.FrameResult) {
		for _, ev := range res.Events {

			line := fmt.Sprintf("Frame %d: %s #%d crossed",
				ev.FrameIndex, vehicletrack.ClassName(labels, ev.ClassID),
				ev.TrackID)

			if ev.Direction != counter.DirectionUnknown {
				line += " " + ev.Direction.String()
			}

			if ev.Speed != nil {
				line += fmt.Sprintf(" at %.1f km/h", *ev.Speed)
			}

			log.Print(line)
		}
	}
}

// printSummary prints the final statistics to the log
func printSummary(snap counter.Snapshot, labels []string) {

	log.Printf("Total vehicles counted: %d", snap.Total)

	for classID, count := range snap.PerClass {
		log.Printf("  %s: %d", vehicletrack.ClassName(labels, classID), count)
	}

	log.Printf("Northbound: %d, Southbound: %d", snap.Northbound, snap.Southbound)

	if snap.SpeedSamples > 0 {
		log.Printf("Average speed: %.1f km/h over %d vehicles",
			snap.AvgSpeed, snap.SpeedSamples)
	}
}

// ReplayDetector replays detections recorded to a JSONL file, one detection
// per line keyed by frame number.  It stands in for a live detector so the
// counting pipeline can be run offline against saved inference output.
type ReplayDetector struct {
	frames map[int][]vehicletrack.Detection
}

// detectionLine is the JSONL record format
type detectionLine struct {
	Frame      int     `json:"frame"`
	ClassID    int     `json:"class_id"`
	Confidence float64 `json:"confidence"`
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
}

// NewReplayDetector loads the JSONL detections file
func NewReplayDetector(path string) (*ReplayDetector, error) {

	f, err := os.Open(path)

	if err != nil {
		return nil, fmt.Errorf("error opening detections file: %w", err)
	}

	defer f.Close()

	d := &ReplayDetector{
		frames: make(map[int][]vehicletrack.Detection),
	}

	scanner := bufio.NewScanner(f)
	lineNum := 0

	for scanner.Scan() {
		lineNum++

		if len(scanner.Bytes()) == 0 {
			continue
		}

		var rec detectionLine

		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("error parsing detections line %d: %w",
				lineNum, err)
		}

		d.frames[rec.Frame] = append(d.frames[rec.Frame],
			vehicletrack.Detection{
				ClassID:    rec.ClassID,
				X1:         rec.X1,
				Y1:         rec.Y1,
				X2:         rec.X2,
				Y2:         rec.Y2,
				Confidence: rec.Confidence,
				FrameIndex: rec.Frame,
			})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading detections file: %w", err)
	}

	return d, nil
}

// Detect returns the recorded detections for the frame
func (d *ReplayDetector) Detect(ctx context.Context, frame gocv.Mat,
	frameIndex int) ([]vehicletrack.Detection, error) {

	return d.frames[frameIndex], nil
}
