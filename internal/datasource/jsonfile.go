package datasource

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/grapher/pkg/metrics"
	"github.com/vanderheijden86/grapher/pkg/model"
)

// loadJSONDataset reads a dataset document: the model.Dataset shape with
// a variables catalog and an observations list.
func loadJSONDataset(path string) (*model.Dataset, error) {
	defer metrics.Timer(metrics.JSONParsing)()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var ds model.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if ds.Name == "" {
		ds.Name = datasetNameFromPath(path)
	}
	if len(ds.Variables) == 0 {
		// Tolerate bare observation dumps: synthesize the catalog entry
		// the rest of the app keys on.
		ds.Variables = []model.Variable{{ID: 1, Name: ds.Name}}
	}
	return &ds, nil
}
