// Package config loads the provider and table engine's tuning knobs from a
// YAML file, overlaid with environment variables, mirroring the layered
// file-then-env resolution used elsewhere in the broader configuration
// surface (spec §6.3).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Table holds the infinite-scroll table engine's prefetch tuning (§4.3).
type Table struct {
	FetchPadMin     int `yaml:"fetch_pad_min"`
	FetchPadMax     int `yaml:"fetch_pad_max"`
	FetchChunkFloor int `yaml:"fetch_chunk_floor"`
	FetchThreshold  int `yaml:"fetch_threshold_items"`
}

// Track holds the track-chunk fetch tuning (§4.2.3).
type Track struct {
	ChunkDurationNs uint64 `yaml:"chunk_duration_ns"`
}

// Resources holds the eviction-cache tuning (mirrors resources.Config).
type Resources struct {
	CacheCapacity      int           `yaml:"cache_capacity"`
	MaxInFlight        int           `yaml:"max_in_flight"`
	SpillDirectory     string        `yaml:"spill_directory"`
	CheckpointPath     string        `yaml:"checkpoint_path"`
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"`
}

// Backend holds the reference controller backend's concurrency tuning.
type Backend struct {
	Workers       int `yaml:"workers"`
	QueueCapacity int `yaml:"queue_capacity"`
}

// Config is the full set of tuning knobs, loaded from YAML and overlaid with
// environment variables prefixed TRACEVIS_.
type Config struct {
	Table     Table     `yaml:"table"`
	Track     Track     `yaml:"track"`
	Resources Resources `yaml:"resources"`
	Backend   Backend   `yaml:"backend"`
}

// Defaults returns the tuning values Load starts from before a file or env
// overlay is applied. The Table values match the table engine's built-in
// constants. The Resources values differ from a zero resources.Config, which
// gives an unbounded cache, no in-flight limit and no checkpoint loop.
func Defaults() Config {
	return Config{
		Table: Table{
			FetchPadMin:     10,
			FetchPadMax:     30,
			FetchChunkFloor: 1000,
			FetchThreshold:  10,
		},
		Track: Track{
			ChunkDurationNs: 30_000_000_000,
		},
		Resources: Resources{
			CacheCapacity:      64,
			MaxInFlight:        16,
			CheckpointInterval: 50 * time.Millisecond,
		},
		Backend: Backend{
			Workers:       4,
			QueueCapacity: 64,
		},
	}
}

// Load reads path as YAML over top of Defaults(), then applies the
// TRACEVIS_* environment overlay, and validates the result. A missing file
// is not an error: Load falls back to Defaults()-plus-env in that case,
// mirroring the teacher's "zero-value config if the file doesn't exist yet"
// idiom.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// fall through with defaults
		default:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	applyEnvOverlay(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envOverlay describes one environment variable's binding into Config.
type envOverlay struct {
	key   string
	apply func(*Config, string) error
}

var envOverlays = []envOverlay{
	{"TRACEVIS_TABLE_FETCH_PAD_MIN", func(c *Config, v string) error { return setInt(&c.Table.FetchPadMin, v) }},
	{"TRACEVIS_TABLE_FETCH_PAD_MAX", func(c *Config, v string) error { return setInt(&c.Table.FetchPadMax, v) }},
	{"TRACEVIS_TABLE_FETCH_CHUNK_FLOOR", func(c *Config, v string) error { return setInt(&c.Table.FetchChunkFloor, v) }},
	{"TRACEVIS_TABLE_FETCH_THRESHOLD_ITEMS", func(c *Config, v string) error { return setInt(&c.Table.FetchThreshold, v) }},
	{"TRACEVIS_TRACK_CHUNK_DURATION_NS", func(c *Config, v string) error { return setUint64(&c.Track.ChunkDurationNs, v) }},
	{"TRACEVIS_RESOURCES_CACHE_CAPACITY", func(c *Config, v string) error { return setInt(&c.Resources.CacheCapacity, v) }},
	{"TRACEVIS_RESOURCES_MAX_IN_FLIGHT", func(c *Config, v string) error { return setInt(&c.Resources.MaxInFlight, v) }},
	{"TRACEVIS_RESOURCES_SPILL_DIRECTORY", func(c *Config, v string) error { c.Resources.SpillDirectory = v; return nil }},
	{"TRACEVIS_RESOURCES_CHECKPOINT_PATH", func(c *Config, v string) error { c.Resources.CheckpointPath = v; return nil }},
	{"TRACEVIS_RESOURCES_CHECKPOINT_INTERVAL", func(c *Config, v string) error { return setDuration(&c.Resources.CheckpointInterval, v) }},
	{"TRACEVIS_BACKEND_WORKERS", func(c *Config, v string) error { return setInt(&c.Backend.Workers, v) }},
	{"TRACEVIS_BACKEND_QUEUE_CAPACITY", func(c *Config, v string) error { return setInt(&c.Backend.QueueCapacity, v) }},
}

// applyEnvOverlay mutates cfg in place for every recognized TRACEVIS_*
// variable present in the environment; malformed values are silently
// skipped rather than failing the whole load, since an operator's typo in
// one override shouldn't take down the entire tuning surface.
func applyEnvOverlay(cfg *Config) {
	for _, o := range envOverlays {
		v, ok := os.LookupEnv(o.key)
		if !ok || v == "" {
			continue
		}
		_ = o.apply(cfg, v)
	}
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setUint64(dst *uint64, v string) error {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, v string) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

// Validate checks the invariants the table engine and resource manager
// assume hold, delegating to a helper per section the way the teacher's
// own unified config validates each policy independently.
func (c Config) Validate() error {
	if err := validateTable(c.Table); err != nil {
		return err
	}
	if err := validateTrack(c.Track); err != nil {
		return err
	}
	if err := validateResources(c.Resources); err != nil {
		return err
	}
	if err := validateBackend(c.Backend); err != nil {
		return err
	}
	return nil
}

func validateTable(t Table) error {
	if t.FetchPadMin <= 0 || t.FetchPadMax <= 0 {
		return fmt.Errorf("config: table.fetch_pad_min/max must be positive")
	}
	if t.FetchPadMin > t.FetchPadMax {
		return fmt.Errorf("config: table.fetch_pad_min must not exceed fetch_pad_max")
	}
	if t.FetchChunkFloor <= 0 {
		return fmt.Errorf("config: table.fetch_chunk_floor must be positive")
	}
	if t.FetchThreshold < 0 {
		return fmt.Errorf("config: table.fetch_threshold_items must not be negative")
	}
	return nil
}

func validateTrack(t Track) error {
	if t.ChunkDurationNs == 0 {
		return fmt.Errorf("config: track.chunk_duration_ns must be positive")
	}
	return nil
}

func validateResources(r Resources) error {
	if r.CacheCapacity < 0 || r.MaxInFlight < 0 {
		return fmt.Errorf("config: resources.cache_capacity/max_in_flight must not be negative")
	}
	if r.CheckpointInterval < 0 {
		return fmt.Errorf("config: resources.checkpoint_interval must not be negative")
	}
	return nil
}

func validateBackend(b Backend) error {
	if b.Workers <= 0 {
		return fmt.Errorf("config: backend.workers must be positive")
	}
	if b.QueueCapacity <= 0 {
		return fmt.Errorf("config: backend.queue_capacity must be positive")
	}
	return nil
}
