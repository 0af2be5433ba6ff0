package testutil

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/grapher/internal/datasource"
	"github.com/vanderheijden86/grapher/pkg/model"
)

// AssertObservationCount verifies the expected number of observations.
func AssertObservationCount(t *testing.T, ds *model.Dataset, expected int) {
	t.Helper()
	if len(ds.Observations) != expected {
		t.Errorf("expected %d observations, got %d", expected, len(ds.Observations))
	}
}

// AssertEntities verifies the dataset's sorted entity list.
func AssertEntities(t *testing.T, ds *model.Dataset, expected ...string) {
	t.Helper()
	got := ds.Entities()
	if len(got) != len(expected) {
		t.Errorf("expected %d entities %v, got %d %v", len(expected), expected, len(got), got)
		return
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("entity %d: expected %q, got %q", i, expected[i], got[i])
		}
	}
}

// AssertYears verifies the dataset's sorted axis years.
func AssertYears(t *testing.T, ds *model.Dataset, expected ...int) {
	t.Helper()
	got := ds.Years()
	if len(got) != len(expected) {
		t.Errorf("expected %d years %v, got %d %v", len(expected), expected, len(got), got)
		return
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("year %d: expected %d, got %d", i, expected[i], got[i])
		}
	}
}

// AssertValue verifies one cell of the dataset's primary variable.
func AssertValue(t *testing.T, ds *model.Dataset, entity string, year int, expected float64) {
	t.Helper()
	v, ok := ds.PrimaryVariable()
	if !ok {
		t.Errorf("dataset has no variables")
		return
	}
	got, ok := ds.Value(entity, v.ID, year)
	if !ok {
		t.Errorf("expected value for %s@%d, got none", entity, year)
		return
	}
	if math.Abs(got-expected) > 1e-9 {
		t.Errorf("%s@%d: expected %g, got %g", entity, year, expected, got)
	}
}

// AssertMissing verifies a cell has no observation.
func AssertMissing(t *testing.T, ds *model.Dataset, entity string, year int) {
	t.Helper()
	v, ok := ds.PrimaryVariable()
	if !ok {
		return
	}
	if got, ok := ds.Value(entity, v.ID, year); ok {
		t.Errorf("expected %s@%d missing, got %g", entity, year, got)
	}
}

// AssertNoDuplicateObservations verifies every (entity, variable, year)
// triple appears at most once.
func AssertNoDuplicateObservations(t *testing.T, ds *model.Dataset) {
	t.Helper()
	type key struct {
		entity string
		varID  int
		year   int
	}
	seen := make(map[key]bool, len(ds.Observations))
	for _, o := range ds.Observations {
		k := key{o.Entity, o.VariableID, o.Year}
		if seen[k] {
			t.Errorf("duplicate observation: %s var %d year %d", o.Entity, o.VariableID, o.Year)
		}
		seen[k] = true
	}
}

// AssertWindow verifies a snapped (start, end) year pair.
func AssertWindow(t *testing.T, gotStart, gotEnd, wantStart, wantEnd int) {
	t.Helper()
	if gotStart != wantStart || gotEnd != wantEnd {
		t.Errorf("window = (%d, %d), want (%d, %d)", gotStart, gotEnd, wantStart, wantEnd)
	}
}

// AssertJSONEqual compares two values after JSON round-tripping.
// Useful for comparing structs that may have different Go representations
// but equivalent JSON forms.
func AssertJSONEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}

	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}

	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", expectedJSON, actualJSON)
	}
}

// Golden file helpers

// GoldenFile handles golden file comparisons.
type GoldenFile struct {
	t      *testing.T
	dir    string
	name   string
	update bool
}

// NewGoldenFile creates a golden file helper.
// If GENERATE_GOLDEN env var is set, golden files will be updated.
func NewGoldenFile(t *testing.T, dir, name string) *GoldenFile {
	t.Helper()
	return &GoldenFile{
		t:      t,
		dir:    dir,
		name:   name,
		update: os.Getenv("GENERATE_GOLDEN") != "",
	}
}

// Path returns the full path to the golden file.
func (g *GoldenFile) Path() string {
	return filepath.Join(g.dir, g.name)
}

// Assert compares actual content against the golden file.
// If GENERATE_GOLDEN is set, updates the golden file instead.
func (g *GoldenFile) Assert(actual string) {
	g.t.Helper()

	path := g.Path()

	if g.update {
		if err := os.MkdirAll(g.dir, 0755); err != nil {
			g.t.Fatalf("failed to create golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(actual), 0644); err != nil {
			g.t.Fatalf("failed to write golden file: %v", err)
		}
		g.t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			g.t.Fatalf("golden file does not exist: %s\nRun with GENERATE_GOLDEN=1 to create it", path)
		}
		g.t.Fatalf("failed to read golden file: %v", err)
	}

	if string(expected) != actual {
		// Find first difference for helpful error message
		expectedLines := strings.Split(string(expected), "\n")
		actualLines := strings.Split(actual, "\n")

		for i := 0; i < len(expectedLines) || i < len(actualLines); i++ {
			var expLine, actLine string
			if i < len(expectedLines) {
				expLine = expectedLines[i]
			}
			if i < len(actualLines) {
				actLine = actualLines[i]
			}
			if expLine != actLine {
				g.t.Errorf("golden file mismatch at line %d:\nexpected: %s\nactual:   %s",
					i+1, expLine, actLine)
				return
			}
		}
		g.t.Errorf("golden file mismatch (length differs)")
	}
}

// AssertJSON compares actual value as JSON against the golden file.
func (g *GoldenFile) AssertJSON(actual interface{}) {
	g.t.Helper()

	data, err := json.MarshalIndent(actual, "", "  ")
	if err != nil {
		g.t.Fatalf("failed to marshal actual value: %v", err)
	}

	g.Assert(string(data))
}

// Fixture file helpers

// WriteCSVFile writes CSV content into dir and returns the path.
func WriteCSVFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write csv fixture: %v", err)
	}
	return path
}

// WriteFixtureCSV renders a fixture as CSV into dir and returns the path.
func WriteFixtureCSV(t *testing.T, dir, name string, f DatasetFixture) string {
	t.Helper()
	return WriteCSVFile(t, dir, name, ToCSV(f))
}

// WriteSidecar writes a chart config next to a data file using the
// loader's sidecar naming and returns the sidecar path.
func WriteSidecar(t *testing.T, dataPath string, cfg model.ChartConfig) string {
	t.Helper()
	data, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("failed to marshal config: %v", err)
	}
	path := datasource.DataSource{Path: dataPath}.ConfigSidecarPath()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write sidecar: %v", err)
	}
	return path
}
