// Package runlog keeps a history of patch runs in a SQLite database:
// one row per run, one row per operation result, and zstd-compressed
// snapshots of the document parts a run touched. The snapshots pair
// with Result.AffectedFiles so a caller can roll a document back
// without the engine's involvement.
package runlog

import (
	"bytes"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"github.com/tokenlayer/oxpatch/patchop"
)

//go:embed schema.sql
var schemaSQL string

//go:embed pragmas.sql
var pragmasSQL string

var (
	ErrRunNotFound      = errors.New("run not found")
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// Store wraps a SQLite connection holding run history.
type Store struct {
	conn *sql.DB
	path string
}

// Open opens or creates the run-history database at path.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	for _, pragma := range strings.Split(pragmasSQL, "\n") {
		pragma = strings.TrimSpace(pragma)
		if pragma == "" || strings.HasPrefix(pragma, "--") {
			continue
		}
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Run is one recorded patch run. Kind is the document format name,
// Strategy the error-handling strategy the run used. The counts follow
// the engine's bookkeeping: Applied counts successes, Failed counts
// error-or-worse outcomes, and zero-match warnings count as neither.
type Run struct {
	ID        string
	File      string
	Kind      string
	Strategy  string
	Processed int
	Applied   int
	Failed    int
	StartedAt time.Time
	Duration  time.Duration
}

// Entry is one recorded operation result within a run.
type Entry struct {
	Index    int
	Kind     string
	Target   string
	Success  bool
	Severity string
	Message  string
}

// Record stores a run and its per-operation results in one
// transaction and returns the run ID. An empty Run.ID is filled with
// a fresh UUID; the counts are derived from the results, overriding
// whatever the caller set.
func (s *Store) Record(run Run, results []patchop.Result) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.Processed = len(results)
	run.Applied = 0
	run.Failed = 0
	for i := range results {
		switch {
		case results[i].Success:
			run.Applied++
		case results[i].Severity.AtLeast(patchop.Error):
			run.Failed++
		}
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO runs (id, file, kind, strategy, processed, applied, failed, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.File, run.Kind, run.Strategy,
		run.Processed, run.Applied, run.Failed,
		run.StartedAt.UnixMilli(), run.Duration.Milliseconds(),
	); err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	for i := range results {
		r := &results[i]
		if _, err := tx.Exec(
			`INSERT INTO results (run_id, idx, kind, target, success, severity, message)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, r.Index, r.Kind.String(), r.Target, r.Success, r.Severity.String(), r.Message,
		); err != nil {
			return "", fmt.Errorf("inserting result %d: %w", r.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return run.ID, nil
}

// GetRun retrieves one run by ID.
func (s *Store) GetRun(id string) (*Run, error) {
	var r Run
	var started, durMs int64
	err := s.conn.QueryRow(
		`SELECT id, file, kind, strategy, processed, applied, failed, started_at, duration_ms
		 FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &r.File, &r.Kind, &r.Strategy, &r.Processed, &r.Applied, &r.Failed, &started, &durMs)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	r.StartedAt = time.UnixMilli(started)
	r.Duration = time.Duration(durMs) * time.Millisecond
	return &r, nil
}

// Results retrieves the recorded results of a run in submission order.
func (s *Store) Results(runID string) ([]Entry, error) {
	rows, err := s.conn.Query(
		`SELECT idx, kind, target, success, severity, message
		 FROM results WHERE run_id = ? ORDER BY idx`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Index, &e.Kind, &e.Target, &e.Success, &e.Severity, &e.Message); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Recent lists the most recent runs, newest first.
func (s *Store) Recent(limit int) ([]*Run, error) {
	rows, err := s.conn.Query(
		`SELECT id, file, kind, strategy, processed, applied, failed, started_at, duration_ms
		 FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var r Run
		var started, durMs int64
		if err := rows.Scan(&r.ID, &r.File, &r.Kind, &r.Strategy, &r.Processed, &r.Applied, &r.Failed, &started, &durMs); err != nil {
			return nil, err
		}
		r.StartedAt = time.UnixMilli(started)
		r.Duration = time.Duration(durMs) * time.Millisecond
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// ----- Snapshots -----

// Snapshot stores the pre-patch bytes of one document part, compressed.
// The run must already be recorded; snapshotting the same part again
// replaces the earlier blob.
func (s *Store) Snapshot(runID, part string, data []byte) error {
	blob, err := compress(data)
	if err != nil {
		return fmt.Errorf("compressing snapshot: %w", err)
	}
	if _, err := s.conn.Exec(
		`INSERT OR REPLACE INTO snapshots (run_id, part, size, blob) VALUES (?, ?, ?, ?)`,
		runID, part, len(data), blob,
	); err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}
	return nil
}

// Restore retrieves and decompresses a stored part snapshot.
func (s *Store) Restore(runID, part string) ([]byte, error) {
	var blob []byte
	err := s.conn.QueryRow(
		`SELECT blob FROM snapshots WHERE run_id = ? AND part = ?`, runID, part,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}
	return decompress(blob)
}

// Snapshots lists the part names snapshotted for a run, sorted.
func (s *Store) Snapshots(runID string) ([]string, error) {
	rows, err := s.conn.Query(`SELECT part FROM snapshots WHERE run_id = ? ORDER BY part`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var parts []string
	for rows.Next() {
		var part string
		if err := rows.Scan(&part); err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return parts, rows.Err()
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	encoder, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	if _, err := encoder.Write(data); err != nil {
		encoder.Close()
		return nil, fmt.Errorf("compressing: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("closing encoder: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(blob []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer decoder.Close()
	return io.ReadAll(decoder)
}
