package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.UI.Theme != "dark" {
		t.Errorf("expected default theme 'dark', got %q", cfg.UI.Theme)
	}
	if cfg.UI.DefaultTab != "chart" {
		t.Errorf("expected default tab 'chart', got %q", cfg.UI.DefaultTab)
	}
	if cfg.Playback.FPS != DefaultPlaybackFPS {
		t.Errorf("expected playback fps %d, got %d", DefaultPlaybackFPS, cfg.Playback.FPS)
	}
	if cfg.Export.Format != "csv" {
		t.Errorf("expected export format 'csv', got %q", cfg.Export.Format)
	}
	if cfg.Discovery.MaxDepth != 3 {
		t.Errorf("expected max depth 3, got %d", cfg.Discovery.MaxDepth)
	}
	if cfg.Favorites == nil {
		t.Error("expected favorites map to be initialized")
	}
}

func TestLoadFrom_NonExistent(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.UI.Theme != "dark" {
		t.Errorf("expected default config, got theme %q", cfg.UI.Theme)
	}
}

func TestLoadFrom_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
datasets:
  - name: energy
    path: ~/data/energy.db
  - name: population
    path: /absolute/population.csv

favorites:
  1: energy
  2: population

ui:
  theme: light
  default_tab: table

playback:
  fps: 30

export:
  format: svg
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Datasets) != 2 {
		t.Fatalf("expected 2 datasets, got %d", len(cfg.Datasets))
	}
	if cfg.Datasets[0].Name != "energy" {
		t.Errorf("expected dataset name 'energy', got %q", cfg.Datasets[0].Name)
	}
	// Path should have ~ expanded
	home, _ := os.UserHomeDir()
	expectedPath := filepath.Join(home, "data/energy.db")
	if cfg.Datasets[0].Path != expectedPath {
		t.Errorf("expected expanded path %q, got %q", expectedPath, cfg.Datasets[0].Path)
	}
	if cfg.Datasets[1].Path != "/absolute/population.csv" {
		t.Errorf("expected absolute path preserved, got %q", cfg.Datasets[1].Path)
	}

	if cfg.Favorites[1] != "energy" {
		t.Errorf("expected favorite 1 = 'energy', got %q", cfg.Favorites[1])
	}

	if cfg.UI.Theme != "light" {
		t.Errorf("expected theme 'light', got %q", cfg.UI.Theme)
	}
	if cfg.UI.DefaultTab != "table" {
		t.Errorf("expected default_tab 'table', got %q", cfg.UI.DefaultTab)
	}
	if cfg.Playback.FPS != 30 {
		t.Errorf("expected fps 30, got %d", cfg.Playback.FPS)
	}
	if cfg.Export.Format != "svg" {
		t.Errorf("expected export format 'svg', got %q", cfg.Export.Format)
	}
}

func TestLoadFrom_ClampsPlaybackFPS(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		yaml string
		want int
	}{
		{"too low", "playback:\n  fps: 1\n", MinPlaybackFPS},
		{"too high", "playback:\n  fps: 500\n", MaxPlaybackFPS},
		{"in range", "playback:\n  fps: 24\n", 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatal(err)
			}
			cfg, err := LoadFrom(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if cfg.Playback.FPS != tt.want {
				t.Errorf("fps = %d, want %d", cfg.Playback.FPS, tt.want)
			}
		})
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFrom(path)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := Config{
		Datasets: []Dataset{
			{Name: "energy", Path: "/data/energy.db"},
			{Name: "gdp", Path: "/data/gdp.csv"},
		},
		Favorites: map[int]string{
			1: "energy",
			3: "gdp",
		},
		UI: UIConfig{
			Theme:      "light",
			DefaultTab: "sources",
		},
		Playback: PlaybackConfig{FPS: 15},
	}

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load after save failed: %v", err)
	}

	if len(loaded.Datasets) != 2 {
		t.Errorf("expected 2 datasets, got %d", len(loaded.Datasets))
	}
	if loaded.Datasets[0].Name != "energy" {
		t.Errorf("expected 'energy', got %q", loaded.Datasets[0].Name)
	}
	if loaded.Favorites[1] != "energy" {
		t.Errorf("expected favorite 1 = 'energy', got %q", loaded.Favorites[1])
	}
	if loaded.Favorites[3] != "gdp" {
		t.Errorf("expected favorite 3 = 'gdp', got %q", loaded.Favorites[3])
	}
	if loaded.UI.Theme != "light" {
		t.Errorf("expected 'light', got %q", loaded.UI.Theme)
	}
	if loaded.Playback.FPS != 15 {
		t.Errorf("expected fps 15, got %d", loaded.Playback.FPS)
	}
}

func TestFindDataset(t *testing.T) {
	cfg := Config{
		Datasets: []Dataset{
			{Name: "alpha", Path: "/a"},
			{Name: "Beta", Path: "/b"},
		},
	}

	d := cfg.FindDataset("alpha")
	if d == nil || d.Name != "alpha" {
		t.Error("expected to find 'alpha'")
	}

	// Case-insensitive
	d = cfg.FindDataset("BETA")
	if d == nil || d.Name != "Beta" {
		t.Error("expected to find 'Beta' case-insensitively")
	}

	d = cfg.FindDataset("nonexistent")
	if d != nil {
		t.Error("expected nil for nonexistent dataset")
	}
}

func TestFavoriteDataset(t *testing.T) {
	cfg := Config{
		Datasets: []Dataset{
			{Name: "energy", Path: "/e"},
		},
		Favorites: map[int]string{
			1: "energy",
		},
	}

	d := cfg.FavoriteDataset(1)
	if d == nil || d.Name != "energy" {
		t.Error("expected favorite 1 to return energy")
	}

	d = cfg.FavoriteDataset(5)
	if d != nil {
		t.Error("expected nil for unset favorite")
	}
}

func TestSetFavorite(t *testing.T) {
	cfg := Config{Favorites: make(map[int]string)}

	cfg.SetFavorite(1, "energy")
	if cfg.Favorites[1] != "energy" {
		t.Error("expected favorite 1 set to 'energy'")
	}

	// Clear favorite
	cfg.SetFavorite(1, "")
	if _, ok := cfg.Favorites[1]; ok {
		t.Error("expected favorite 1 to be cleared")
	}
}

func TestDatasetFavoriteNumber(t *testing.T) {
	cfg := Config{
		Favorites: map[int]string{
			2: "energy",
			5: "gdp",
		},
	}

	if n := cfg.DatasetFavoriteNumber("energy"); n != 2 {
		t.Errorf("expected 2, got %d", n)
	}
	if n := cfg.DatasetFavoriteNumber("gdp"); n != 5 {
		t.Errorf("expected 5, got %d", n)
	}
	if n := cfg.DatasetFavoriteNumber("unknown"); n != 0 {
		t.Errorf("expected 0 for unknown, got %d", n)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home dir")
	}

	tests := []struct {
		input    string
		expected string
	}{
		{"~/foo", filepath.Join(home, "foo")},
		{"~/", filepath.Join(home, "")},
		{"/absolute", "/absolute"},
		{"relative", "relative"},
	}

	for _, tt := range tests {
		got := expandHome(tt.input)
		if got != tt.expected {
			t.Errorf("expandHome(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestConfigDir_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GR_CONFIG_DIR", dir)

	if got := ConfigDir(); got != dir {
		t.Errorf("expected %q, got %q", dir, got)
	}
}

func TestConfigDir_XDGOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GR_CONFIG_DIR", "")
	t.Setenv("XDG_CONFIG_HOME", dir)

	got := ConfigDir()
	expected := filepath.Join(dir, "gr")
	if got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

func TestDataDir_XDGOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	got := DataDir()
	expected := filepath.Join(dir, "gr")
	if got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

func TestStateDir_XDGOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)

	got := StateDir()
	expected := filepath.Join(dir, "gr")
	if got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

func TestLoadFrom_EmptyFavorites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
datasets:
  - name: solo
    path: /solo.csv
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Favorites == nil {
		t.Error("expected favorites map to be initialized even when empty in config")
	}
}

func TestExperimentalConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
experimental:
  loop_playback: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Experimental.LoopPlayback == nil {
		t.Fatal("expected loop_playback to be set")
	}
	if !cfg.Experimental.Loop() {
		t.Error("Loop() = false with loop_playback: true")
	}
	if (ExperimentalConfig{}).Loop() {
		t.Error("Loop() = true on an unset flag")
	}
}
