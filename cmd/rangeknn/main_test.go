package main

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rangeknn/hybridindex/internal/layout"
	"github.com/rangeknn/hybridindex/internal/pointio"
)

func writeRows(t *testing.T, path string, rows [][]float32) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	if err := binary.Write(f, binary.LittleEndian, uint32(len(rows))); err != nil {
		t.Fatalf("write row count: %v", err)
	}
	for _, row := range rows {
		for _, v := range row {
			bits := math.Float32bits(v)
			if err := binary.Write(f, binary.LittleEndian, bits); err != nil {
				t.Fatalf("write value: %v", err)
			}
		}
	}
}

func datasetRow(continuous float32, vec ...float32) []float32 {
	row := []float32{0, continuous}
	row = append(row, vec...)
	for len(row) < layout.NodeDimension(layout.D) {
		row = append(row, 0)
	}
	return row
}

func queryRow(l, r float32, vec ...float32) []float32 {
	row := []float32{layout.TypeRangeFilteredA, 0, l, r}
	row = append(row, vec...)
	for len(row) < layout.QueryDimension(layout.D) {
		row = append(row, 0)
	}
	return row
}

func TestEngineConfigFromCLIConfig(t *testing.T) {
	cfg := DefaultConfig()
	ecfg := engineConfig(cfg)
	if ecfg.Order != cfg.BPTreeOrder {
		t.Errorf("Order = %d, want %d", ecfg.Order, cfg.BPTreeOrder)
	}
	if ecfg.Dispatch.TBrute != cfg.TBrute {
		t.Errorf("TBrute = %d, want %d", ecfg.Dispatch.TBrute, cfg.TBrute)
	}
	if ecfg.Dispatch.K != cfg.K {
		t.Errorf("K = %d, want %d", ecfg.Dispatch.K, cfg.K)
	}
}

func TestRunQueryEndToEnd(t *testing.T) {
	dir := t.TempDir()

	rows := make([][]float32, 40)
	for i := range rows {
		vec := make([]float32, layout.D)
		vec[0] = float32(i)
		rows[i] = datasetRow(float32(i), vec...)
	}
	datasetPath := filepath.Join(dir, "dataset.bin")
	writeRows(t, datasetPath, rows)

	queryVec := make([]float32, layout.D)
	queryVec[0] = 10
	queries := [][]float32{queryRow(5, 15, queryVec...)}
	queryPath := filepath.Join(dir, "queries.bin")
	writeRows(t, queryPath, queries)

	outputPath := filepath.Join(dir, "output.bin")

	cfg := DefaultConfig()
	cfg.K = 3
	cfg.TBrute = 3000
	cfg.DegreesPath = filepath.Join(dir, "degrees.parquet")
	runQuery(cfg, []string{datasetPath, queryPath, outputPath})

	results, err := pointio.ReadKNN(outputPath, cfg.K)
	if err != nil {
		t.Fatalf("ReadKNN: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d result rows, want 1", len(results))
	}
	for _, id := range results[0] {
		if id < 5 || id > 15 {
			t.Errorf("result id %d outside queried range [5, 15]", id)
		}
	}
}
