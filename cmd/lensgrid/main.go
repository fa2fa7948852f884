package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/term"

	"github.com/mmcdole/lensgrid/internal/adapter"
	"github.com/mmcdole/lensgrid/internal/adapter/library"
	"github.com/mmcdole/lensgrid/internal/metrics"
	"github.com/mmcdole/lensgrid/internal/prefetch"
	"github.com/mmcdole/lensgrid/internal/store"
	"github.com/mmcdole/lensgrid/internal/tui"
)

// Version is set at build time via -ldflags
var Version = "dev"

type options struct {
	configDir  string
	list       bool
	clearCache bool
}

func main() {
	var showVersion bool
	var opts options
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.StringVar(&opts.configDir, "config", "", "directory containing config.yaml")
	flag.BoolVar(&opts.list, "list", false, "print the library listing and exit")
	flag.BoolVar(&opts.clearCache, "clear-cache", false, "remove cached thumbnails and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("lensgrid %s\n", Version)
		return
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	// Load configuration
	var cfg *adapter.Config
	var err error
	if opts.configDir != "" {
		cfg, err = adapter.LoadConfigFrom(opts.configDir)
	} else {
		cfg, err = adapter.LoadConfig()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if flag.NArg() > 0 {
		cfg.Library.Path = flag.Arg(0)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if opts.clearCache {
		return adapter.ClearCache(cfg)
	}

	// Setup logger
	logger, closer, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
	} else {
		defer closer.Close()
	}
	slog.SetDefault(logger)

	logger.Info("starting lensgrid", "version", Version, "library", cfg.Library.Path)

	thumbs, err := store.NewThumbnailStore(cfg.Cache.Dir, cfg.Library.Path, cfg.Cache.MemoryEntries)
	if err != nil {
		return fmt.Errorf("failed to open thumbnail cache: %w", err)
	}
	defer thumbs.Close()

	lib, err := library.New(library.Options{
		Root:       cfg.Library.Path,
		Match:      cfg.Library.Match,
		MaxDecodes: cfg.Cache.MaxDecodes,
		Thumbs:     thumbs,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	defer lib.Close()

	if opts.list || !term.IsTerminal(int(os.Stdout.Fd())) {
		return printListing(lib)
	}

	rec, stopMetrics := startMetrics(cfg.Metrics.Addr, logger)
	defer stopMetrics()

	sched := tui.NewScheduler()
	ctrl := prefetch.New(lib, sched, cfg.PrefetchConfig(), logger, rec)
	defer ctrl.Close()

	viewer := adapter.NewViewer(cfg.Viewer, logger)
	model := tui.NewModel(ctrl, sched, lib, logger).WithOpener(viewer, lib)

	// Run the TUI
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	logger.Info("starting TUI")

	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}

// printListing writes the library in grid order, one file per line
func printListing(lib *library.Library) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	assets, status, err := prefetch.ReadAssets(ctx, lib)
	if err != nil {
		return err
	}
	if !status.CanRead() {
		return fmt.Errorf("library %s is not readable: %s", lib.Root(), status)
	}
	for _, a := range assets {
		path, err := lib.Path(a.ID)
		if err != nil {
			continue
		}
		fmt.Println(path)
	}
	return nil
}

// startMetrics serves Prometheus metrics on addr. An empty addr disables
// metrics and returns a no-op recorder.
func startMetrics(addr string, logger *slog.Logger) (metrics.Recorder, func()) {
	if addr == "" {
		return metrics.NewNop(), func() {}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)

	return metrics.NewPrometheus(reg, "lensgrid"), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
