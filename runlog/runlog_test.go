package runlog

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tokenlayer/oxpatch/patchop"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// sampleResults mirrors a skip-failed run: one success, one
// zero-match warning, one hard failure.
func sampleResults() []patchop.Result {
	ok := patchop.Succeeded(patchop.Operation{Kind: patchop.Set, Target: "//w:t"}, 2)
	ok.Index = 0
	miss := patchop.ZeroMatch(patchop.Operation{Kind: patchop.Insert, Target: "//w:zz"})
	miss.Index = 1
	bad := patchop.Failed(patchop.Operation{Kind: patchop.Extend, Target: "//w:body"},
		patchop.Error, "value", "list value required")
	bad.Index = 2
	return []patchop.Result{ok, miss, bad}
}

func TestRecordAndGet(t *testing.T) {
	s := openTemp(t)

	started := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	id, err := s.Record(Run{
		File:      "report.docx",
		Kind:      "word",
		Strategy:  "best_effort",
		StartedAt: started,
		Duration:  42 * time.Millisecond,
	}, sampleResults())
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if id == "" {
		t.Fatal("Record returned empty id")
	}

	run, err := s.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.File != "report.docx" || run.Kind != "word" || run.Strategy != "best_effort" {
		t.Errorf("run = %+v", run)
	}
	if run.Processed != 3 || run.Applied != 1 || run.Failed != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/1/1", run.Processed, run.Applied, run.Failed)
	}
	if !run.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", run.StartedAt, started)
	}
	if run.Duration != 42*time.Millisecond {
		t.Errorf("Duration = %v", run.Duration)
	}
}

func TestRecordKeepsCallerID(t *testing.T) {
	s := openTemp(t)
	id, err := s.Record(Run{ID: "fixed-id", File: "a.docx", Kind: "word", Strategy: "fail_fast"}, nil)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if id != "fixed-id" {
		t.Errorf("id = %q, want fixed-id", id)
	}
	if _, err := s.GetRun("fixed-id"); err != nil {
		t.Errorf("GetRun: %v", err)
	}
}

func TestResultsRoundTrip(t *testing.T) {
	s := openTemp(t)
	id, err := s.Record(Run{File: "deck.pptx", Kind: "presentation", Strategy: "skip_failed"}, sampleResults())
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := s.Results(id)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	if entries[0].Kind != "set" || !entries[0].Success || entries[0].Severity != "info" {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].Success || entries[1].Severity != "warning" || entries[1].Target != "//w:zz" {
		t.Errorf("entries[1] = %+v", entries[1])
	}
	if entries[2].Kind != "extend" || entries[2].Severity != "error" || entries[2].Message != "list value required" {
		t.Errorf("entries[2] = %+v", entries[2])
	}
	for i := range entries {
		if entries[i].Index != i {
			t.Errorf("entries[%d].Index = %d", i, entries[i].Index)
		}
	}
}

func TestGetRunMissing(t *testing.T) {
	s := openTemp(t)
	if _, err := s.GetRun("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("err = %v, want ErrRunNotFound", err)
	}
}

func TestRecent(t *testing.T) {
	s := openTemp(t)
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i, file := range []string{"a.docx", "b.docx", "c.docx"} {
		_, err := s.Record(Run{
			File:      file,
			Kind:      "word",
			Strategy:  "skip_failed",
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}, nil)
		if err != nil {
			t.Fatalf("Record %s: %v", file, err)
		}
	}

	runs, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len = %d, want 2", len(runs))
	}
	if runs[0].File != "c.docx" || runs[1].File != "b.docx" {
		t.Errorf("order = %s, %s, want c.docx, b.docx", runs[0].File, runs[1].File)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := openTemp(t)
	id, err := s.Record(Run{File: "x.docx", Kind: "word", Strategy: "best_effort"}, nil)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	original := bytes.Repeat([]byte("<w:p><w:r><w:t>hello</w:t></w:r></w:p>"), 200)
	if err := s.Snapshot(id, "word/document.xml", original); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if err := s.Snapshot(id, "word/styles.xml", []byte("<w:styles/>")); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	got, err := s.Restore(id, "word/document.xml")
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !bytes.Equal(got, original) {
		t.Errorf("restored %d bytes, want %d identical bytes", len(got), len(original))
	}

	// The stored blob is compressed, not the raw part.
	var stored int
	if err := s.conn.QueryRow(
		`SELECT length(blob) FROM snapshots WHERE run_id = ? AND part = ?`,
		id, "word/document.xml",
	).Scan(&stored); err != nil {
		t.Fatalf("length query: %v", err)
	}
	if stored >= len(original) {
		t.Errorf("stored blob is %d bytes, original %d", stored, len(original))
	}

	parts, err := s.Snapshots(id)
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}
	if len(parts) != 2 || parts[0] != "word/document.xml" || parts[1] != "word/styles.xml" {
		t.Errorf("parts = %v", parts)
	}

	if _, err := s.Restore(id, "word/missing.xml"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("err = %v, want ErrSnapshotNotFound", err)
	}
}

func TestSnapshotReplaces(t *testing.T) {
	s := openTemp(t)
	id, err := s.Record(Run{File: "y.docx", Kind: "word", Strategy: "fail_fast"}, nil)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	if err := s.Snapshot(id, "word/document.xml", []byte("first")); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if err := s.Snapshot(id, "word/document.xml", []byte("second")); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	got, err := s.Restore(id, "word/document.xml")
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("restored %q, want second", got)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runs.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	id, err := s.Record(Run{File: "z.docx", Kind: "word", Strategy: "best_effort"}, sampleResults())
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	run, err := s2.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun after reopen: %v", err)
	}
	if run.Processed != 3 {
		t.Errorf("Processed = %d, want 3", run.Processed)
	}
}
