package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Defaults()
	if cfg != want {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadParsesYAMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	contents := []byte("table:\n  fetch_pad_min: 5\n  fetch_pad_max: 40\ntrack:\n  chunk_duration_ns: 60000000000\n")
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Table.FetchPadMin != 5 || cfg.Table.FetchPadMax != 40 {
		t.Fatalf("expected overridden pad bounds, got %+v", cfg.Table)
	}
	if cfg.Track.ChunkDurationNs != 60_000_000_000 {
		t.Fatalf("expected overridden chunk duration, got %d", cfg.Track.ChunkDurationNs)
	}
	// untouched sections still carry their defaults
	if cfg.Backend.Workers != Defaults().Backend.Workers {
		t.Fatalf("expected default backend workers, got %d", cfg.Backend.Workers)
	}
}

func TestEnvOverlayTakesPrecedenceOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("backend:\n  workers: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TRACEVIS_BACKEND_WORKERS", "9")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend.Workers != 9 {
		t.Fatalf("expected env override to win, got %d", cfg.Backend.Workers)
	}
}

func TestEnvOverlayMalformedValueIsIgnored(t *testing.T) {
	t.Setenv("TRACEVIS_BACKEND_WORKERS", "not-a-number")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend.Workers != Defaults().Backend.Workers {
		t.Fatalf("expected malformed env override to be ignored, got %d", cfg.Backend.Workers)
	}
}

func TestEnvOverlayParsesDuration(t *testing.T) {
	t.Setenv("TRACEVIS_RESOURCES_CHECKPOINT_INTERVAL", "250ms")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Resources.CheckpointInterval != 250*time.Millisecond {
		t.Fatalf("expected overridden checkpoint interval, got %v", cfg.Resources.CheckpointInterval)
	}
}

func TestValidateRejectsInvertedPadBounds(t *testing.T) {
	cfg := Defaults()
	cfg.Table.FetchPadMin = 40
	cfg.Table.FetchPadMax = 10
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for inverted pad bounds")
	}
}

func TestValidateRejectsZeroChunkDuration(t *testing.T) {
	cfg := Defaults()
	cfg.Track.ChunkDurationNs = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero chunk duration")
	}
}

func TestValidateRejectsNonPositiveBackendWorkers(t *testing.T) {
	cfg := Defaults()
	cfg.Backend.Workers = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero backend workers")
	}
}
