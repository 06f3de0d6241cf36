package main

import "testing"

func TestValidateConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DatasetPath = "dataset.bin"
	if err := ValidateConfig(&cfg); err != nil {
		t.Errorf("ValidateConfig() error = %v, want nil", err)
	}
}

func TestValidateConfigEmptyDatasetPath(t *testing.T) {
	cfg := DefaultConfig()
	if err := ValidateConfig(&cfg); err != ErrInvalidDatasetPath {
		t.Errorf("ValidateConfig() error = %v, want %v", err, ErrInvalidDatasetPath)
	}
}

func TestValidateConfigInvalidFillFactor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DatasetPath = "dataset.bin"
	cfg.BPTreeFillFactor = 1.5
	if err := ValidateConfig(&cfg); err != ErrInvalidFillFactor {
		t.Errorf("ValidateConfig() error = %v, want %v", err, ErrInvalidFillFactor)
	}

	cfg.BPTreeFillFactor = 0
	if err := ValidateConfig(&cfg); err != ErrInvalidFillFactor {
		t.Errorf("ValidateConfig() with zero error = %v, want %v", err, ErrInvalidFillFactor)
	}
}

func TestValidateConfigInvalidLogFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DatasetPath = "dataset.bin"
	cfg.LogFormat = "xml"
	if err := ValidateConfig(&cfg); err != ErrInvalidLogFormat {
		t.Errorf("ValidateConfig() error = %v, want %v", err, ErrInvalidLogFormat)
	}
}

func TestValidateConfigInvalidLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DatasetPath = "dataset.bin"
	cfg.LogLevel = "trace"
	if err := ValidateConfig(&cfg); err != ErrInvalidLogLevel {
		t.Errorf("ValidateConfig() error = %v, want %v", err, ErrInvalidLogLevel)
	}
}

func TestBuildGRPCServerOptions(t *testing.T) {
	cfg := DefaultConfig()
	opts := cfg.BuildGRPCServerOptions()
	if len(opts) == 0 {
		t.Fatal("expected at least one gRPC server option")
	}
}
