package adapter

import (
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Viewer opens photos in an external image viewer
type Viewer struct {
	command string   // configured viewer command, empty for auto-detection
	args    []string // additional arguments for the viewer
	logger  *slog.Logger

	// lookPath and start are replaced in tests
	lookPath func(string) (string, error)
	start    func(name string, args ...string) error
}

// launchPath is one way to start a viewer
type launchPath struct {
	path string   // Command name, or "open-a:AppName" for macOS apps
	args []string // Arguments placed before the file
}

// viewers registry - preferred order per platform
var viewers = map[string][]launchPath{
	"darwin": {
		{path: "open-a:Preview"},
	},
	"linux": {
		{path: "nsxiv"},
		{path: "sxiv"},
		{path: "feh", args: []string{"--scale-down", "--auto-zoom"}},
		{path: "eog"},
		{path: "gwenview"},
	},
	"windows": {},
}

// NewViewer creates a viewer. An empty command auto-detects one.
func NewViewer(cfg ViewerConfig, logger *slog.Logger) *Viewer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Viewer{
		command:  cfg.Command,
		args:     cfg.Args,
		logger:   logger,
		lookPath: exec.LookPath,
		start: func(name string, args ...string) error {
			return exec.Command(name, args...).Start()
		},
	}
}

// Open shows the file at path. It returns once the viewer has been started.
func (v *Viewer) Open(path string) error {
	// Tier 1: configured viewer
	if v.command != "" {
		args := append(append([]string{}, v.args...), path)
		v.logger.Info("opening with configured viewer", "command", v.command, "path", path)
		if err := v.start(v.command, args...); err != nil {
			return fmt.Errorf("failed to start %s: %w", v.command, err)
		}
		return nil
	}

	// Tier 2: known viewers for this platform
	if name, args, ok := v.detect(runtime.GOOS, path); ok {
		v.logger.Info("opening with detected viewer", "command", name, "path", path)
		if err := v.start(name, args...); err == nil {
			return nil
		}
	}

	// Tier 3: system default handler
	name, args := defaultOpener(runtime.GOOS, path)
	v.logger.Info("opening with system default", "os", runtime.GOOS, "path", path)
	if err := v.start(name, args...); err != nil {
		return fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	return nil
}

// detect returns the first registered viewer available on goos
func (v *Viewer) detect(goos, path string) (string, []string, bool) {
	for _, lp := range viewers[goos] {
		if app, ok := strings.CutPrefix(lp.path, "open-a:"); ok {
			return "open", []string{"-a", app, path}, true
		}
		if _, err := v.lookPath(lp.path); err != nil {
			v.logger.Debug("viewer not available", "command", lp.path)
			continue
		}
		return lp.path, append(append([]string{}, lp.args...), path), true
	}
	return "", nil, false
}

// defaultOpener returns the platform's default open command
func defaultOpener(goos, path string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{path}
	case "windows":
		return "cmd", []string{"/c", "start", "", path}
	default:
		return "xdg-open", []string{path}
	}
}
