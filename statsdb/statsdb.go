// Package statsdb persists traffic statistics snapshots as append-only
// SQLite records with a schema that stays stable across runs.
package statsdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/roadmetric/go-vehicletrack/counter"
)

// schema is the append-only stats table.  Columns must remain stable across
// runs so external consumers can keep appending and reading safely.
const schema = `
CREATE TABLE IF NOT EXISTS traffic_stats (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT    NOT NULL,
	ts            TIMESTAMP NOT NULL,
	frame_index   INTEGER NOT NULL,
	total_count   INTEGER NOT NULL,
	north_count   INTEGER NOT NULL,
	south_count   INTEGER NOT NULL,
	avg_speed     REAL    NOT NULL,
	speed_samples INTEGER NOT NULL,
	class_counts  TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_traffic_stats_run ON traffic_stats(run_id, id);
`

// Record is one persisted stats row
type Record struct {
	ID           int64
	RunID        string
	Timestamp    time.Time
	FrameIndex   int
	TotalCount   int
	NorthCount   int
	SouthCount   int
	AvgSpeed     float64
	SpeedSamples int
	// ClassCounts maps vehicle class ID to its cumulative count
	ClassCounts map[int]int
}

// Store appends stats snapshots for a single processing run
type Store struct {
	db    *sql.DB
	runID string
}

// Open opens (creating if needed) the stats database at the given path and
// assigns a fresh run ID.  A failure to open or migrate is fatal at startup,
// no partial processing is attempted.
func Open(path string) (*Store, error) {

	db, err := sql.Open("sqlite", path)

	if err != nil {
		return nil, fmt.Errorf("failed to open stats database: %w", err)
	}

	// WAL keeps appends cheap and readers unblocked
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create stats schema: %w", err)
	}

	return &Store{
		db:    db,
		runID: uuid.NewString(),
	}, nil
}

// RunID returns the identifier assigned to this processing run
func (s *Store) RunID() string {
	return s.runID
}

// Append writes one snapshot as a new row.  Rows are only ever inserted,
// never updated or deleted.
func (s *Store) Append(snap counter.Snapshot) error {

	classCounts, err := encodeClassCounts(snap.PerClass)

	if err != nil {
		return fmt.Errorf("failed to encode class counts: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO traffic_stats
			(run_id, ts, frame_index, total_count, north_count,
			 south_count, avg_speed, speed_samples, class_counts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, snap.Timestamp, snap.FrameIndex, snap.Total,
		snap.Northbound, snap.Southbound, snap.AvgSpeed,
		snap.SpeedSamples, classCounts,
	)

	if err != nil {
		return fmt.Errorf("failed to append stats row: %w", err)
	}

	return nil
}

// LatestRecord returns the most recent row of the current run, or nil when
// the run has no rows yet
func (s *Store) LatestRecord() (*Record, error) {

	row := s.db.QueryRow(`
		SELECT id, run_id, ts, frame_index, total_count, north_count,
		       south_count, avg_speed, speed_samples, class_counts
		FROM traffic_stats
		WHERE run_id = ?
		ORDER BY id DESC LIMIT 1`, s.runID)

	rec, err := scanRecord(row)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read latest stats row: %w", err)
	}

	return rec, nil
}

// RecordsForRun returns every row of the given run in append order
func (s *Store) RecordsForRun(runID string) ([]*Record, error) {

	rows, err := s.db.Query(`
		SELECT id, run_id, ts, frame_index, total_count, north_count,
		       south_count, avg_speed, speed_samples, class_counts
		FROM traffic_stats
		WHERE run_id = ?
		ORDER BY id ASC`, runID)

	if err != nil {
		return nil, fmt.Errorf("failed to query stats rows: %w", err)
	}

	defer rows.Close()

	var out []*Record

	for rows.Next() {

		rec, err := scanRecord(rows)

		if err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}

		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating stats rows: %w", err)
	}

	return out, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*Record, error) {

	var rec Record
	var classCounts string

	err := sc.Scan(&rec.ID, &rec.RunID, &rec.Timestamp, &rec.FrameIndex,
		&rec.TotalCount, &rec.NorthCount, &rec.SouthCount, &rec.AvgSpeed,
		&rec.SpeedSamples, &classCounts)

	if err != nil {
		return nil, err
	}

	rec.ClassCounts, err = decodeClassCounts(classCounts)

	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// encodeClassCounts serializes the per class counters as a JSON object with
// string keys, the stable wire form for the class_counts column
func encodeClassCounts(counts map[int]int) (string, error) {

	m := make(map[string]int, len(counts))

	for k, v := range counts {
		m[strconv.Itoa(k)] = v
	}

	data, err := json.Marshal(m)

	if err != nil {
		return "", err
	}

	return string(data), nil
}

func decodeClassCounts(s string) (map[int]int, error) {

	var m map[string]int

	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}

	out := make(map[int]int, len(m))

	for k, v := range m {

		id, err := strconv.Atoi(k)

		if err != nil {
			return nil, fmt.Errorf("invalid class id %q: %w", k, err)
		}

		out[id] = v
	}

	return out, nil
}
