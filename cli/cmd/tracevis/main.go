// Command tracevis drives the provider and table engine headlessly: load a
// trace, wait for it to become ready, and dump its topology and table
// contents to stdout. It exists to exercise the bridge/provider/table stack
// end to end outside of a real rendering front end (a stated Non-goal).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gputrace/tracevis/engine/config"
	"github.com/gputrace/tracevis/engine/internal/backend"
	"github.com/gputrace/tracevis/engine/models"
	"github.com/gputrace/tracevis/engine/provider"
	"github.com/gputrace/tracevis/engine/resources"
	"github.com/gputrace/tracevis/engine/settings"
	"github.com/gputrace/tracevis/engine/table"
	"github.com/gputrace/tracevis/engine/telemetry/logging"
)

var (
	configPath string
	tracePath  string
	timeout    time.Duration
)

func main() {
	root := &cobra.Command{
		Use:   "tracevis",
		Short: "Headless driver for the trace provider and table engine",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML tuning config (optional)")

	load := &cobra.Command{
		Use:   "load <trace-path>",
		Short: "Load a trace and print its track/topology summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(args[0])
		},
	}
	load.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "how long to wait for the trace to become ready")

	tables := &cobra.Command{
		Use:   "tables <trace-path>",
		Short: "Load a trace and dump the event table's first page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTables(args[0])
		},
	}
	tables.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "how long to wait for the trace to become ready")

	root.AddCommand(load, tables)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// buildProvider wires a reference backend, resource manager, and provider
// together using tuning loaded from configPath (or its own defaults if
// configPath is empty), the same assembly a real front end would perform
// before handing the provider to its driver loop.
func buildProvider() (*provider.Provider, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load tuning config: %w", err)
	}

	b := backend.New(backend.Options{
		Workers:       cfg.Backend.Workers,
		QueueCapacity: cfg.Backend.QueueCapacity,
	})

	resMgr := resources.NewManager(resources.Config{
		CacheCapacity:      cfg.Resources.CacheCapacity,
		MaxInFlight:        cfg.Resources.MaxInFlight,
		SpillDirectory:     cfg.Resources.SpillDirectory,
		CheckpointPath:     cfg.Resources.CheckpointPath,
		CheckpointInterval: cfg.Resources.CheckpointInterval,
	})

	logger := logging.New(nil)
	p := provider.New(b, provider.Callbacks{}, provider.WithResourceManager(resMgr), provider.WithLogger(logger))

	cleanup := func() {
		resMgr.Close()
		b.Close()
	}
	return p, cleanup, nil
}

// driveUntilReady pumps Update() until the provider leaves kLoading or the
// deadline passes, mirroring the single-goroutine polling loop a real
// front end's frame callback would perform.
func driveUntilReady(ctx context.Context, p *provider.Provider, deadline time.Time) error {
	for time.Now().Before(deadline) {
		p.Update(ctx)
		if p.State() != models.ProviderStateLoading {
			return nil
		}
		time.Sleep(2 * time.Millisecond)
	}
	return fmt.Errorf("timed out waiting for trace to become ready")
}

func runLoad(path string) error {
	p, cleanup, err := buildProvider()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	if !p.FetchTrace(ctx, path) {
		return fmt.Errorf("provider rejected FetchTrace for %s", path)
	}
	if err := driveUntilReady(ctx, p, time.Now().Add(timeout)); err != nil {
		return err
	}
	if p.State() != models.ProviderStateReady {
		return fmt.Errorf("trace load failed: state=%v", p.State())
	}

	pf, err := settings.LoadProjectFile(path)
	if err != nil {
		return fmt.Errorf("load project file: %w", err)
	}

	out := struct {
		Path   string             `json:"path"`
		Tracks []models.TrackInfo `json:"tracks"`
		Notes  int                `json:"sticky_notes"`
	}{Path: path, Tracks: p.Tracks(), Notes: len(pf.StickyNotes)}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func runTables(path string) error {
	p, cleanup, err := buildProvider()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	if !p.FetchTrace(ctx, path) {
		return fmt.Errorf("provider rejected FetchTrace for %s", path)
	}
	if err := driveUntilReady(ctx, p, time.Now().Add(timeout)); err != nil {
		return err
	}

	eng := table.NewEngine(p, models.TableTypeEvent)
	deadline := time.Now().Add(timeout)
	var layout table.SpacerLayout
	for time.Now().Before(deadline) {
		p.Update(ctx)
		layout = eng.OnFrame(0, 600, 20)
		if info, ok := p.TableInfo(models.TableTypeEvent); ok && len(info.Rows) > 0 {
			break
		}
	}

	info, ok := p.TableInfo(models.TableTypeEvent)
	if !ok {
		return fmt.Errorf("event table never became available")
	}

	out := struct {
		Header []string           `json:"header"`
		Rows   []models.Row       `json:"rows"`
		Layout table.SpacerLayout `json:"layout"`
	}{Header: info.Header, Rows: info.Rows, Layout: layout}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
