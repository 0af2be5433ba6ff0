package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// defaultExportEntities caps how many entities an export includes when the
// config selects none.
const defaultExportEntities = 10

// SaveCSV writes the selected window of the dataset as a wide CSV file.
func SaveCSV(req Request) error {
	f, err := os.Create(req.Path)
	if err != nil {
		return fmt.Errorf("create %s: %w", req.Path, err)
	}
	defer f.Close()
	return WriteCSV(f, req)
}

// WriteCSV writes the wide layout: one row per selected entity, one column
// per year inside the scrubber window. Missing cells stay empty.
func WriteCSV(w io.Writer, req Request) error {
	ds := req.Dataset
	v, _ := ds.PrimaryVariable()
	entities := req.Config.ResolveEntities(ds, defaultExportEntities)

	var years []int
	for _, y := range ds.Years() {
		if y >= req.StartYear && y <= req.EndYear {
			years = append(years, y)
		}
	}

	cw := csv.NewWriter(w)
	header := make([]string, 0, len(years)+1)
	header = append(header, "entity")
	for _, y := range years {
		header = append(header, strconv.Itoa(y))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for _, e := range entities {
		row[0] = e
		for i, y := range years {
			if val, ok := ds.Value(e, v.ID, y); ok {
				row[i+1] = strconv.FormatFloat(val, 'g', -1, 64)
			} else {
				row[i+1] = ""
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
