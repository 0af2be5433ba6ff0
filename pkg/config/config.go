// Package config handles loading and saving gr configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/gr/config.yaml
//   - Data:    ~/.local/share/gr/ (registered datasets)
//   - State:   ~/.local/state/gr/ (recent charts, view state cache)
//
// GR_CONFIG_DIR overrides the config directory wholesale.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/grapher/pkg/metrics"
)

// Dataset represents a registered dataset in the config.
type Dataset struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// UIConfig holds UI preference settings.
type UIConfig struct {
	Theme      string `yaml:"theme,omitempty"`       // dark, light
	DefaultTab string `yaml:"default_tab,omitempty"` // chart, table, sources
	HideHelp   bool   `yaml:"hide_help,omitempty"`   // Suppress the footer help line
}

// PlaybackConfig controls timeline animation.
type PlaybackConfig struct {
	FPS int `yaml:"fps,omitempty"` // Frames per second (5-60)
}

// ExportConfig holds export defaults.
type ExportConfig struct {
	Format string `yaml:"format,omitempty"` // csv, svg, png, md
	Dir    string `yaml:"dir,omitempty"`    // Output directory (default: cwd)
}

// DiscoveryConfig controls auto-discovery of datasets.
type DiscoveryConfig struct {
	ScanPaths []string `yaml:"scan_paths,omitempty"` // Directories to scan for data files
	MaxDepth  int      `yaml:"max_depth,omitempty"`  // How deep to scan (default 3)
}

// ExperimentalConfig holds experimental feature flags.
type ExperimentalConfig struct {
	LoopPlayback *bool `yaml:"loop_playback,omitempty"`
}

// Loop reports whether the experimental playback loop is enabled.
func (c ExperimentalConfig) Loop() bool {
	return c.LoopPlayback != nil && *c.LoopPlayback
}

// Config is the top-level configuration for gr.
type Config struct {
	Datasets     []Dataset          `yaml:"datasets,omitempty"`
	Favorites    map[int]string     `yaml:"favorites,omitempty"` // Number key (1-9) -> dataset name
	UI           UIConfig           `yaml:"ui,omitempty"`
	Playback     PlaybackConfig     `yaml:"playback,omitempty"`
	Export       ExportConfig       `yaml:"export,omitempty"`
	Discovery    DiscoveryConfig    `yaml:"discovery,omitempty"`
	Experimental ExperimentalConfig `yaml:"experimental,omitempty"`
}

// Playback FPS limits. Values outside the range are clamped on load.
const (
	MinPlaybackFPS     = 5
	MaxPlaybackFPS     = 60
	DefaultPlaybackFPS = 20
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Favorites: make(map[int]string),
		UI: UIConfig{
			Theme:      "dark",
			DefaultTab: "chart",
		},
		Playback: PlaybackConfig{
			FPS: DefaultPlaybackFPS,
		},
		Export: ExportConfig{
			Format: "csv",
		},
		Discovery: DiscoveryConfig{
			MaxDepth: 3,
		},
	}
}

// ConfigDir returns the config directory for gr.
func ConfigDir() string {
	if dir := os.Getenv("GR_CONFIG_DIR"); dir != "" {
		return dir
	}
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "gr")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "gr")
}

// DataDir returns the XDG data directory for gr.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "gr")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "gr")
}

// StateDir returns the XDG state directory for gr.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "gr")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "gr")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	defer metrics.Timer(metrics.ConfigLoad)()
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	// Ensure favorites map is initialized
	if cfg.Favorites == nil {
		cfg.Favorites = make(map[int]string)
	}

	// Clamp playback rate into the supported band
	if cfg.Playback.FPS < MinPlaybackFPS {
		cfg.Playback.FPS = MinPlaybackFPS
	}
	if cfg.Playback.FPS > MaxPlaybackFPS {
		cfg.Playback.FPS = MaxPlaybackFPS
	}

	// Expand ~ in dataset paths
	for i := range cfg.Datasets {
		cfg.Datasets[i].Path = expandHome(cfg.Datasets[i].Path)
	}
	for i := range cfg.Discovery.ScanPaths {
		cfg.Discovery.ScanPaths[i] = expandHome(cfg.Discovery.ScanPaths[i])
	}
	cfg.Export.Dir = expandHome(cfg.Export.Dir)

	return cfg, nil
}

// Save writes the config to the config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// FindDataset returns the dataset with the given name, or nil.
func (c Config) FindDataset(name string) *Dataset {
	for i := range c.Datasets {
		if strings.EqualFold(c.Datasets[i].Name, name) {
			return &c.Datasets[i]
		}
	}
	return nil
}

// FavoriteDataset returns the dataset assigned to number key n (1-9), or nil.
func (c Config) FavoriteDataset(n int) *Dataset {
	name, ok := c.Favorites[n]
	if !ok {
		return nil
	}
	return c.FindDataset(name)
}

// SetFavorite assigns a dataset name to a number key (1-9).
func (c *Config) SetFavorite(n int, datasetName string) {
	if c.Favorites == nil {
		c.Favorites = make(map[int]string)
	}
	if datasetName == "" {
		delete(c.Favorites, n)
	} else {
		c.Favorites[n] = datasetName
	}
}

// DatasetFavoriteNumber returns the favorite number (1-9) for a dataset name, or 0 if not favorited.
func (c Config) DatasetFavoriteNumber(name string) int {
	for n, dname := range c.Favorites {
		if strings.EqualFold(dname, name) {
			return n
		}
	}
	return 0
}

// ResolvedPath returns the dataset path with ~ expanded.
func (d Dataset) ResolvedPath() string {
	return expandHome(d.Path)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
