package analytics

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
)

func TestExportParquetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.parquet")

	continuous := []float32{1.5, 2.5, 3.5}
	degrees := []int{4, 8, 2}

	if err := ExportParquet(path, continuous, degrees); err != nil {
		t.Fatalf("ExportParquet: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	rows, err := parquet.Read[DegreeRow](f, info.Size())
	if err != nil {
		t.Fatalf("parquet.Read: %v", err)
	}
	if len(rows) != len(continuous) {
		t.Fatalf("got %d rows, want %d", len(rows), len(continuous))
	}
	for i, r := range rows {
		if r.ID != uint32(i) || r.Continuous != continuous[i] || r.Degree != degrees[i] {
			t.Fatalf("row %d = %+v, want {ID:%d Continuous:%v Degree:%v}", i, r, i, continuous[i], degrees[i])
		}
	}
}

func TestExportParquetLengthMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.parquet")
	if err := ExportParquet(path, []float32{1}, nil); err == nil {
		t.Fatal("expected error for mismatched slice lengths")
	}
}

func TestQueryLogRecordAndSummarize(t *testing.T) {
	log, err := NewQueryLog()
	if err != nil {
		t.Fatalf("NewQueryLog: %v", err)
	}
	defer log.Close()

	ctx := context.Background()
	records := []QueryRecord{
		{Type: 2, L: 10, R: 20, CandidateSize: 50, Route: "brute", LatencyMS: 1.2},
		{Type: 2, L: 0, R: 100, CandidateSize: 9000, Route: "graph", LatencyMS: 3.4},
		{Type: 2, L: 5, R: 15, CandidateSize: 30, Route: "brute", LatencyMS: 0.9},
	}
	for _, r := range records {
		if err := log.Record(ctx, r); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	rows, err := log.Summarize(ctx, "SELECT route, COUNT(*) AS n FROM query_log GROUP BY route ORDER BY route")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d groups, want 2", len(rows))
	}
	if rows[0]["route"] != "brute" {
		t.Fatalf("rows[0][route] = %v, want brute", rows[0]["route"])
	}
}
