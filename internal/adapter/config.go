package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mmcdole/lensgrid/internal/domain"
	"github.com/mmcdole/lensgrid/internal/prefetch"
)

// Config holds all application configuration
type Config struct {
	Library LibraryConfig `mapstructure:"library"`
	Grid    GridConfig    `mapstructure:"grid"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Viewer  ViewerConfig  `mapstructure:"viewer"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// LibraryConfig holds the photo library location
type LibraryConfig struct {
	Path  string `mapstructure:"path"`  // Directory scanned for photos
	Match string `mapstructure:"match"` // Fuzzy file name filter; empty shows everything
}

// GridConfig holds the zoom and prefetch tuning
type GridConfig struct {
	BaseColumns       int           `mapstructure:"base_columns"`
	MinScale          float64       `mapstructure:"min_scale"`
	MaxScale          float64       `mapstructure:"max_scale"`
	Spacing           float64       `mapstructure:"spacing"`
	PixelDensity      float64       `mapstructure:"pixel_density"`
	PreheatFactor     float64       `mapstructure:"preheat_factor"`
	ThresholdFraction float64       `mapstructure:"threshold_fraction"`
	SettleDelay       time.Duration `mapstructure:"settle_delay"`
	LowFiSize         int           `mapstructure:"low_fi_size"` // Side of the fast-pass thumbnail in pixels
	Crossfade         time.Duration `mapstructure:"crossfade"`
}

// CacheConfig holds thumbnail cache settings
type CacheConfig struct {
	Dir           string `mapstructure:"dir"`            // Empty keeps thumbnails in memory only
	MemoryEntries int    `mapstructure:"memory_entries"` // Thumbnails held in memory
	MaxDecodes    int    `mapstructure:"max_decodes"`    // Concurrent source decodes
}

// ViewerConfig holds the external image viewer opened on selection
type ViewerConfig struct {
	Command string   `mapstructure:"command"` // Empty auto-detects
	Args    []string `mapstructure:"args"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // e.g. "127.0.0.1:9090"; empty disables
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	grid := prefetch.DefaultConfig()
	return &Config{
		Library: LibraryConfig{
			Path: defaultLibraryPath(),
		},
		Grid: GridConfig{
			BaseColumns:       grid.BaseColumns,
			MinScale:          grid.MinScale,
			MaxScale:          grid.MaxScale,
			Spacing:           grid.Spacing,
			PixelDensity:      grid.PixelDensity,
			PreheatFactor:     grid.PreheatFactor,
			ThresholdFraction: grid.ThresholdFraction,
			SettleDelay:       grid.SettleDelay,
			LowFiSize:         int(grid.LowFiSize.Width),
			Crossfade:         grid.Crossfade,
		},
		Cache: CacheConfig{
			Dir:           defaultCachePath(),
			MemoryEntries: 512,
			MaxDecodes:    max(runtime.NumCPU(), 2),
		},
		Viewer: ViewerConfig{
			Args: []string{},
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// PrefetchConfig converts the grid section for the prefetch controller
func (c *Config) PrefetchConfig() prefetch.Config {
	side := float64(c.Grid.LowFiSize)
	return prefetch.Config{
		BaseColumns:       c.Grid.BaseColumns,
		MinScale:          c.Grid.MinScale,
		MaxScale:          c.Grid.MaxScale,
		Spacing:           c.Grid.Spacing,
		PixelDensity:      c.Grid.PixelDensity,
		PreheatFactor:     c.Grid.PreheatFactor,
		ThresholdFraction: c.Grid.ThresholdFraction,
		SettleDelay:       c.Grid.SettleDelay,
		LowFiSize:         domain.Size{Width: side, Height: side},
		Crossfade:         c.Grid.Crossfade,
	}
}

// Validate reports settings the grid cannot work with
func (c *Config) Validate() error {
	switch {
	case c.Library.Path == "":
		return fmt.Errorf("library.path is not set")
	case c.Grid.BaseColumns < 1:
		return fmt.Errorf("grid.base_columns must be at least 1, got %d", c.Grid.BaseColumns)
	case c.Grid.MinScale <= 0 || c.Grid.MaxScale < c.Grid.MinScale:
		return fmt.Errorf("grid scale range [%g, %g] is invalid", c.Grid.MinScale, c.Grid.MaxScale)
	case c.Grid.ThresholdFraction < 0 || c.Grid.PreheatFactor < 0:
		return fmt.Errorf("grid.threshold_fraction and grid.preheat_factor must not be negative")
	}
	return nil
}

// defaultLibraryPath returns the user's pictures directory
func defaultLibraryPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Pictures")
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "lensgrid", "lensgrid.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "lensgrid", "lensgrid.log")
	}
}

// defaultConfigPath returns the default config file path for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "lensgrid")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "lensgrid")
	}
}

// defaultCachePath returns the default cache directory path for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "lensgrid", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".cache", "lensgrid")
	}
}

// newViper creates a viper instance with every key defaulted so that
// environment overrides apply even without a config file
func newViper(cfg *Config) *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Environment variable overrides, e.g. LENSGRID_GRID_BASE_COLUMNS
	v.SetEnvPrefix("LENSGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setAll(v, cfg)
	return v
}

func setAll(v *viper.Viper, cfg *Config) {
	v.SetDefault("library.path", cfg.Library.Path)
	v.SetDefault("library.match", cfg.Library.Match)

	v.SetDefault("grid.base_columns", cfg.Grid.BaseColumns)
	v.SetDefault("grid.min_scale", cfg.Grid.MinScale)
	v.SetDefault("grid.max_scale", cfg.Grid.MaxScale)
	v.SetDefault("grid.spacing", cfg.Grid.Spacing)
	v.SetDefault("grid.pixel_density", cfg.Grid.PixelDensity)
	v.SetDefault("grid.preheat_factor", cfg.Grid.PreheatFactor)
	v.SetDefault("grid.threshold_fraction", cfg.Grid.ThresholdFraction)
	v.SetDefault("grid.settle_delay", cfg.Grid.SettleDelay)
	v.SetDefault("grid.low_fi_size", cfg.Grid.LowFiSize)
	v.SetDefault("grid.crossfade", cfg.Grid.Crossfade)

	v.SetDefault("cache.dir", cfg.Cache.Dir)
	v.SetDefault("cache.memory_entries", cfg.Cache.MemoryEntries)
	v.SetDefault("cache.max_decodes", cfg.Cache.MaxDecodes)

	v.SetDefault("viewer.command", cfg.Viewer.Command)
	v.SetDefault("viewer.args", cfg.Viewer.Args)

	v.SetDefault("metrics.addr", cfg.Metrics.Addr)

	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
}

// LoadConfig loads configuration from the default locations and environment
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(defaultConfigPath(), ".")
}

// LoadConfigFrom loads configuration searching dirs in order
func LoadConfigFrom(dirs ...string) (*Config, error) {
	cfg := DefaultConfig()
	v := newViper(cfg)
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the default config file
func SaveConfig(cfg *Config) error {
	return SaveConfigTo(defaultConfigPath(), cfg)
}

// SaveConfigTo writes cfg as config.yaml in dir
func SaveConfigTo(dir string, cfg *Config) error {
	// Ensure config directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	setAll(v, cfg)
	// Durations are written in their string form so the file stays readable
	v.Set("grid.settle_delay", cfg.Grid.SettleDelay.String())
	v.Set("grid.crossfade", cfg.Grid.Crossfade.String())

	configFile := filepath.Join(dir, "config.yaml")
	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ClearCache removes all cached thumbnails
func ClearCache(cfg *Config) error {
	if cfg.Cache.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(cfg.Cache.Dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
