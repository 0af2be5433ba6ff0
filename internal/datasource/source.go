// Package datasource discovers, validates and loads chart datasets. It
// selects the freshest valid source from SQLite databases, JSON documents
// and wide CSV files, and pairs the data with its sidecar chart config.
package datasource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vanderheijden86/grapher/pkg/metrics"
)

// SourceType identifies the type of data source
type SourceType string

const (
	// SourceTypeSQLite is a dataset database (.db)
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeJSON is a dataset JSON document
	SourceTypeJSON SourceType = "json"
	// SourceTypeCSV is a wide CSV file (entity rows, year columns)
	SourceTypeCSV SourceType = "csv"
)

// Priority values for source types (higher = more authoritative)
const (
	PrioritySQLite = 100
	PriorityJSON   = 80
	PriorityCSV    = 50
)

// DataSource represents a potential source of chart data
type DataSource struct {
	// Type identifies the source type
	Type SourceType `json:"type"`
	// Path is the absolute path to the source file
	Path string `json:"path"`
	// Priority determines preference when timestamps are equal (higher = preferred)
	Priority int `json:"priority"`
	// ModTime is the last modification time of the source
	ModTime time.Time `json:"mod_time"`
	// Valid indicates whether the source passed validation
	Valid bool `json:"valid"`
	// ValidationError describes why validation failed (if Valid is false)
	ValidationError string `json:"validation_error,omitempty"`
	// ObservationCount is the number of observations in the source (set during validation)
	ObservationCount int `json:"observation_count"`
	// Size is the file size in bytes
	Size int64 `json:"size"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, obs=%d, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), s.ObservationCount, status)
}

// ConfigSidecarPath returns the path of the chart config expected next to
// the data file: <name>.config.json.
func (s DataSource) ConfigSidecarPath() string {
	base := strings.TrimSuffix(s.Path, filepath.Ext(s.Path))
	return base + ".config.json"
}

// DiscoveryOptions configures source discovery behavior
type DiscoveryOptions struct {
	// Path is a data file or a directory to scan
	Path string
	// ValidateAfterDiscovery runs validation on each discovered source
	ValidateAfterDiscovery bool
	// IncludeInvalid includes sources that failed validation in results
	IncludeInvalid bool
	// Verbose enables detailed logging during discovery
	Verbose bool
	// Logger receives log messages when Verbose is true
	Logger func(msg string)
}

// typeForExt maps a file extension to a source type and its priority.
func typeForExt(path string) (SourceType, int, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite":
		return SourceTypeSQLite, PrioritySQLite, true
	case ".json":
		return SourceTypeJSON, PriorityJSON, true
	case ".csv":
		return SourceTypeCSV, PriorityCSV, true
	default:
		return "", 0, false
	}
}

// DiscoverSources finds all potential data sources at the given path. A
// file path yields at most one source; a directory is scanned one level
// deep. Config sidecars are never sources themselves.
func DiscoverSources(opts DiscoveryOptions) ([]DataSource, error) {
	defer metrics.Timer(metrics.SourceScan)()
	if opts.Logger == nil {
		opts.Logger = func(string) {}
	}

	path := opts.Path
	if path == "" {
		var err error
		path, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovering sources in: %s", path))
	}

	var sources []DataSource
	if info.IsDir() {
		sources, err = scanDirectory(path, opts)
		if err != nil {
			return nil, err
		}
	} else {
		st, prio, ok := typeForExt(path)
		if !ok {
			return nil, fmt.Errorf("unsupported data file %s (want .db, .json or .csv)", path)
		}
		sources = append(sources, DataSource{
			Type:     st,
			Path:     path,
			Priority: prio,
			ModTime:  info.ModTime(),
			Size:     info.Size(),
		})
	}

	// Validate sources if requested
	if opts.ValidateAfterDiscovery {
		for i := range sources {
			if err := ValidateSource(&sources[i]); err != nil && opts.Verbose {
				opts.Logger(fmt.Sprintf("Validation failed for %s: %v", sources[i].Path, err))
			}
		}
	}

	// Filter out invalid sources if not including them
	if opts.ValidateAfterDiscovery && !opts.IncludeInvalid {
		var validSources []DataSource
		for _, s := range sources {
			if s.Valid {
				validSources = append(validSources, s)
			}
		}
		sources = validSources
	}

	// Sort by mod time, then priority
	sort.Slice(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})

	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovered %d sources", len(sources)))
	}

	return sources, nil
}

// scanDirectory enumerates data files one level deep.
func scanDirectory(dir string, opts DiscoveryOptions) ([]DataSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var sources []DataSource
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()

		// Sidecar configs describe charts, they are not data
		if strings.HasSuffix(name, ".config.json") {
			continue
		}
		// Skip backups and editor droppings
		if strings.HasSuffix(name, "~") || strings.Contains(name, ".backup") ||
			strings.Contains(name, ".orig") {
			continue
		}

		st, prio, ok := typeForExt(name)
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(dir, name)
		sources = append(sources, DataSource{
			Type:     st,
			Path:     path,
			Priority: prio,
			ModTime:  info.ModTime(),
			Size:     info.Size(),
		})
		if opts.Verbose {
			opts.Logger(fmt.Sprintf("Found %s: %s (mod=%s)", st, path, info.ModTime().Format(time.RFC3339)))
		}
	}
	return sources, nil
}

// SelectBestSource picks the preferred source from a discovery result: the
// list is already ordered freshest-first with priority as the tiebreak, so
// the first entry wins.
func SelectBestSource(sources []DataSource) (DataSource, error) {
	if len(sources) == 0 {
		return DataSource{}, fmt.Errorf("no usable data sources")
	}
	return sources[0], nil
}

// ValidateSource checks that a source parses and counts its observations.
// The result is recorded on the source; the returned error mirrors
// ValidationError for callers that want it directly.
func ValidateSource(s *DataSource) error {
	ds, err := loadDatasetFromSource(context.Background(), *s)
	if err != nil {
		s.Valid = false
		s.ValidationError = err.Error()
		return err
	}
	s.Valid = true
	s.ValidationError = ""
	s.ObservationCount = len(ds.Observations)
	return nil
}
