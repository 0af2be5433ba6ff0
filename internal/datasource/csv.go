package datasource

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/vanderheijden86/grapher/pkg/debug"
	"github.com/vanderheijden86/grapher/pkg/model"
)

// loadCSVDataset parses the wide layout: the first column holds entity
// names, every remaining header is a year. Empty cells are missing data,
// not zeros.
func loadCSVDataset(path string) (*model.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) < 1 || len(records[0]) < 2 {
		return nil, fmt.Errorf("%s: need a header row with at least one year column", path)
	}

	header := records[0]
	years := make([]int, len(header)-1)
	for i, h := range header[1:] {
		year, err := strconv.Atoi(strings.TrimSpace(h))
		if err != nil {
			return nil, fmt.Errorf("%s: header column %d (%q) is not a year", path, i+2, h)
		}
		years[i] = year
	}

	name := datasetNameFromPath(path)
	ds := &model.Dataset{
		Name:      name,
		Variables: []model.Variable{{ID: 1, Name: name}},
	}
	skipped := 0
	for rowIdx, rec := range records[1:] {
		if len(rec) == 0 {
			continue
		}
		entity := strings.TrimSpace(rec[0])
		if entity == "" {
			continue
		}
		for col := 1; col < len(rec) && col <= len(years); col++ {
			cell := strings.TrimSpace(rec[col])
			if cell == "" {
				continue
			}
			value, err := strconv.ParseFloat(cell, 64)
			// ParseFloat accepts NaN and Inf spellings; neither is a
			// plottable observation.
			if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
				skipped++
				debug.Log("csv: %s row %d col %d: bad value %q", path, rowIdx+2, col+1, cell)
				continue
			}
			ds.Observations = append(ds.Observations, model.Observation{
				Entity:     entity,
				VariableID: 1,
				Year:       years[col-1],
				Value:      value,
			})
		}
	}
	if skipped > 0 {
		debug.Log("csv: %s: skipped %d unparseable cells", path, skipped)
	}
	return ds, nil
}
