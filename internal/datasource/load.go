package datasource

import (
	"context"
	"fmt"
	"os"

	"github.com/vanderheijden86/grapher/pkg/debug"
	"github.com/vanderheijden86/grapher/pkg/metrics"
	"github.com/vanderheijden86/grapher/pkg/model"
)

// LoadResult bundles everything a chart needs: the dataset, its config and
// the source it came from (the watch target for live reload).
type LoadResult struct {
	Dataset *model.Dataset
	Config  model.ChartConfig
	Source  DataSource
}

// Load performs source detection and loading for a data path. It discovers
// candidate sources (a single file, or every data file in a directory),
// validates them, selects the freshest valid one and loads it together
// with its sidecar chart config.
func Load(ctx context.Context, path string) (*LoadResult, error) {
	defer metrics.Timer(metrics.DatasetLoad)()

	sources, err := DiscoverSources(DiscoveryOptions{
		Path:                   path,
		ValidateAfterDiscovery: true,
		IncludeInvalid:         false,
		Verbose:                debug.Enabled(),
		Logger:                 func(msg string) { debug.Log("datasource: %s", msg) },
	})
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no valid data sources at %s", path)
	}

	best, err := SelectBestSource(sources)
	if err != nil {
		return nil, err
	}
	return LoadFromSource(ctx, best)
}

// LoadFromSource loads a dataset from a specific DataSource, dispatching to
// the appropriate reader based on source type, and pairs it with the
// sidecar config when one exists.
func LoadFromSource(ctx context.Context, source DataSource) (*LoadResult, error) {
	ds, err := loadDatasetFromSource(ctx, source)
	if err != nil {
		return nil, err
	}
	if ds.IsEmpty() {
		// Usable but worth flagging: the scrubber will run on its
		// fallback span.
		debug.Log("datasource: %s has no observations", source.Path)
	}

	cfg, err := loadSidecarConfig(source, ds)
	if err != nil {
		return nil, err
	}
	return &LoadResult{Dataset: ds, Config: cfg, Source: source}, nil
}

// loadDatasetFromSource dispatches on the source type.
func loadDatasetFromSource(ctx context.Context, source DataSource) (*model.Dataset, error) {
	switch source.Type {
	case SourceTypeSQLite:
		reader, err := NewSQLiteReader(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite source %s: %w", source.Path, err)
		}
		defer reader.Close()
		return reader.LoadDataset(ctx)

	case SourceTypeJSON:
		return loadJSONDataset(source.Path)

	case SourceTypeCSV:
		return loadCSVDataset(source.Path)

	default:
		return nil, fmt.Errorf("unknown source type: %s", source.Type)
	}
}

// loadSidecarConfig reads <name>.config.json next to the data file. A
// missing sidecar is the normal case and yields defaults derived from the
// dataset; a malformed one is a real error.
func loadSidecarConfig(source DataSource, ds *model.Dataset) (model.ChartConfig, error) {
	path := source.ConfigSidecarPath()
	if _, err := os.Stat(path); err != nil {
		cfg := model.DefaultChartConfig()
		cfg.Title = ds.Name
		return cfg, nil
	}
	cfg, err := model.LoadChartConfig(path)
	if err != nil {
		return model.ChartConfig{}, err
	}
	if cfg.Title == "" {
		cfg.Title = ds.Name
	}
	return cfg, nil
}
