package main_test

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// createLifeDB builds a dataset database with the full schema: a variable
// catalog carrying source metadata plus per-variable observations.
func createLifeDB(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE variables (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			unit TEXT,
			short_unit TEXT,
			description TEXT,
			source_name TEXT,
			source_link TEXT,
			data_published_by TEXT,
			retrieved_date TEXT
		)`,
		`CREATE TABLE observations (
			variable_id INTEGER NOT NULL,
			entity TEXT NOT NULL,
			year INTEGER NOT NULL,
			value REAL
		)`,
		`INSERT INTO variables VALUES (
			1, 'Life expectancy', 'years', 'yr',
			'Period life expectancy at birth.',
			'UN World Population Prospects', 'https://population.un.org/wpp/',
			'United Nations', '2024-01-15'
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt[:30], err)
		}
	}

	rows := []struct {
		entity string
		year   int
		value  float64
	}{
		{"France", 2000, 79}, {"France", 2005, 80}, {"France", 2010, 81},
		{"France", 2015, 82}, {"France", 2020, 82},
		{"Japan", 2000, 81}, {"Japan", 2005, 82}, {"Japan", 2010, 83},
		{"Japan", 2015, 84}, {"Japan", 2020, 85},
	}
	for _, r := range rows {
		if _, err := db.Exec(
			`INSERT INTO observations (variable_id, entity, year, value) VALUES (1, ?, ?, ?)`,
			r.entity, r.year, r.value); err != nil {
			t.Fatalf("insert observation: %v", err)
		}
	}
}

// createFlatDB builds the legacy single-table layout.
func createFlatDB(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE data (entity TEXT, year INTEGER, value REAL)`); err != nil {
		t.Fatalf("create data table: %v", err)
	}
	for _, stmt := range []string{
		`INSERT INTO data VALUES ('France', 2000, 10)`,
		`INSERT INTO data VALUES ('France', 2010, 20)`,
		`INSERT INTO data VALUES ('Japan', 2000, 30)`,
		`INSERT INTO data VALUES ('Japan', 2010, 40)`,
		`INSERT INTO data VALUES ('Kenya', 2005, NULL)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
}

// TestSQLiteRobotSummary verifies the full-schema database feeds variable
// name and unit into the summary.
func TestSQLiteRobotSummary(t *testing.T) {
	gr := buildGrBinary(t)
	dbPath := filepath.Join(t.TempDir(), "wpp.db")
	createLifeDB(t, dbPath)

	var payload summaryPayload
	runSummaryJSON(t, gr, []string{dbPath}, &payload)

	if payload.Dataset != "wpp" {
		t.Errorf("dataset = %q, want wpp", payload.Dataset)
	}
	if payload.Variable != "Life expectancy" {
		t.Errorf("variable = %q, want Life expectancy", payload.Variable)
	}
	if payload.Unit != "years" {
		t.Errorf("unit = %q, want years", payload.Unit)
	}
	if payload.EntityCount != 2 || payload.ObservationCount != 10 {
		t.Errorf("counts = %d entities / %d observations, want 2/10",
			payload.EntityCount, payload.ObservationCount)
	}
	if payload.Years.Min != 2000 || payload.Years.Max != 2020 {
		t.Errorf("years = %+v, want 2000..2020", payload.Years)
	}
}

// TestSQLiteFlatTableFallback verifies databases without a variable
// catalog load through the single-table path. NULL values are skipped.
func TestSQLiteFlatTableFallback(t *testing.T) {
	gr := buildGrBinary(t)
	dbPath := filepath.Join(t.TempDir(), "legacy.db")
	createFlatDB(t, dbPath)

	var payload summaryPayload
	runSummaryJSON(t, gr, []string{dbPath}, &payload)

	if payload.Variable != "legacy" {
		t.Errorf("variable = %q, want legacy (derived from file name)", payload.Variable)
	}
	if payload.ObservationCount != 4 {
		t.Errorf("observation_count = %d, want 4 (NULL row skipped)", payload.ObservationCount)
	}
	if payload.EntityCount != 2 {
		t.Errorf("entity_count = %d, want 2 (Kenya has no values)", payload.EntityCount)
	}
}

// TestSQLiteMarkdownCitation verifies source metadata from the variable
// catalog lands in the markdown citation block.
func TestSQLiteMarkdownCitation(t *testing.T) {
	gr := buildGrBinary(t)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "wpp.db")
	createLifeDB(t, dbPath)
	outPath := filepath.Join(dir, "report.md")

	runExport(t, gr, "-export", outPath, dbPath)

	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	md := string(got)
	for _, want := range []string{
		"**Indicator:** Life expectancy (years)",
		"## Citation",
		"> UN World Population Prospects, published by United Nations, retrieved 2024-01-15.",
		"> <https://population.un.org/wpp/>",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

// TestSQLiteExportCSV verifies the database round-trips through the wide
// CSV export.
func TestSQLiteExportCSV(t *testing.T) {
	gr := buildGrBinary(t)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "wpp.db")
	createLifeDB(t, dbPath)
	outPath := filepath.Join(dir, "out.csv")

	runExport(t, gr, "-export", outPath, "-start", "2010", "-end", "2020", dbPath)

	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(got), "\n"), "\n")
	if lines[0] != "entity,2010,2015,2020" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "France,81,82,82" {
		t.Errorf("France row = %q", lines[1])
	}
	if lines[2] != "Japan,83,84,85" {
		t.Errorf("Japan row = %q", lines[2])
	}
}

// TestDirectoryPrefersFreshestSource verifies source selection in a
// directory holding both a CSV and a database: modification time wins,
// with the database taking priority on a tie.
func TestDirectoryPrefersFreshestSource(t *testing.T) {
	gr := buildGrBinary(t)
	dir := t.TempDir()

	csvPath := writeDataFile(t, dir, "life.csv", lifeCSV)
	dbPath := filepath.Join(dir, "life.db")
	createLifeDB(t, dbPath)

	newer := time.Now()
	older := newer.Add(-time.Hour)

	// CSV newer: the CSV-derived variable name wins.
	if err := os.Chtimes(dbPath, older, older); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := os.Chtimes(csvPath, newer, newer); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	var payload summaryPayload
	runSummaryJSON(t, gr, []string{dir}, &payload)
	if payload.Variable != "life" {
		t.Errorf("variable = %q, want life (fresh CSV wins)", payload.Variable)
	}

	// Same timestamp: SQLite outranks CSV.
	if err := os.Chtimes(dbPath, newer, newer); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	runSummaryJSON(t, gr, []string{dir}, &payload)
	if payload.Variable != "Life expectancy" {
		t.Errorf("variable = %q, want Life expectancy (priority tiebreak)", payload.Variable)
	}
}
