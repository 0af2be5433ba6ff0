package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/grapher/pkg/debug"
	"github.com/vanderheijden86/grapher/pkg/model"
)

// sqliteLoadConcurrency bounds the per-variable observation fan-out.
const sqliteLoadConcurrency = 4

// SQLiteReader provides read access to a dataset SQLite database
type SQLiteReader struct {
	db   *sql.DB
	path string
}

// NewSQLiteReader opens a SQLite database for reading
func NewSQLiteReader(source DataSource) (*SQLiteReader, error) {
	if source.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not SQLite: %s", source.Type)
	}

	// Open in read-only mode with various pragmas for read performance
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000&_journal_mode=WAL", source.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Set pragmas for read performance
	pragmas := []string{
		"PRAGMA cache_size = -64000",   // 64MB cache
		"PRAGMA mmap_size = 268435456", // 256MB mmap
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			debug.Log("sqlite: pragma failed: %v", err)
		}
	}

	return &SQLiteReader{
		db:   db,
		path: source.Path,
	}, nil
}

// Close closes the database connection
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadDataset reads the full dataset: the variable catalog first, then the
// observations for each variable fanned out across a bounded worker group.
// Databases without a variables table fall back to the single-table layout.
func (r *SQLiteReader) LoadDataset(ctx context.Context) (*model.Dataset, error) {
	vars, err := r.loadVariables()
	if err != nil {
		// Older exports carry one anonymous indicator in a flat table.
		return r.loadDatasetSimple()
	}

	ds := &model.Dataset{
		Name:      datasetNameFromPath(r.path),
		Variables: vars,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(sqliteLoadConcurrency)
	perVar := make([][]model.Observation, len(vars))
	for i, v := range vars {
		g.Go(func() error {
			obs, err := r.loadObservations(ctx, v.ID)
			if err != nil {
				return fmt.Errorf("load observations for variable %d: %w", v.ID, err)
			}
			perVar[i] = obs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, obs := range perVar {
		ds.Observations = append(ds.Observations, obs...)
	}
	debug.Log("sqlite: loaded %d variables, %d observations from %s",
		len(vars), len(ds.Observations), r.path)
	if debug.Enabled() {
		// Loading drops NULL and non-finite values; surface how many.
		if stored, err := r.CountObservations(); err == nil && stored > len(ds.Observations) {
			debug.Log("sqlite: dropped %d null or non-finite values", stored-len(ds.Observations))
		}
	}
	return ds, nil
}

// loadVariables reads the variable catalog.
func (r *SQLiteReader) loadVariables() ([]model.Variable, error) {
	query := `
		SELECT id, name, unit, short_unit, description,
		       source_name, source_link, data_published_by, retrieved_date
		FROM variables
		ORDER BY id
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vars []model.Variable
	for rows.Next() {
		var v model.Variable
		var unit, shortUnit, description sql.NullString
		var srcName, srcLink, publishedBy, retrieved sql.NullString

		if err := rows.Scan(&v.ID, &v.Name, &unit, &shortUnit, &description,
			&srcName, &srcLink, &publishedBy, &retrieved); err != nil {
			continue
		}
		if unit.Valid {
			v.Unit = unit.String
		}
		if shortUnit.Valid {
			v.ShortUnit = shortUnit.String
		}
		if description.Valid {
			v.Description = description.String
		}
		if srcName.Valid {
			v.Source.Name = srcName.String
		}
		if srcLink.Valid {
			v.Source.Link = srcLink.String
		}
		if publishedBy.Valid {
			v.Source.DataPublishedBy = publishedBy.String
		}
		if retrieved.Valid {
			v.Source.RetrievedDate = retrieved.String
		}
		vars = append(vars, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating variables: %w", err)
	}
	if len(vars) == 0 {
		return nil, fmt.Errorf("no variables in %s", r.path)
	}
	return vars, nil
}

// loadObservations reads one variable's observations.
func (r *SQLiteReader) loadObservations(ctx context.Context, variableID int) ([]model.Observation, error) {
	query := `
		SELECT entity, year, value
		FROM observations
		WHERE variable_id = ?
		ORDER BY entity, year
	`
	rows, err := r.db.QueryContext(ctx, query, variableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var obs []model.Observation
	for rows.Next() {
		var o model.Observation
		var value sql.NullFloat64
		if err := rows.Scan(&o.Entity, &o.Year, &value); err != nil {
			continue
		}
		if !value.Valid || math.IsNaN(value.Float64) || math.IsInf(value.Float64, 0) {
			continue
		}
		o.VariableID = variableID
		o.Value = value.Float64
		obs = append(obs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating observations: %w", err)
	}
	return obs, nil
}

// loadDatasetSimple is a fallback for flat databases with a single data
// table and no variable catalog.
func (r *SQLiteReader) loadDatasetSimple() (*model.Dataset, error) {
	query := `SELECT entity, year, value FROM data ORDER BY entity, year`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	name := datasetNameFromPath(r.path)
	ds := &model.Dataset{
		Name:      name,
		Variables: []model.Variable{{ID: 1, Name: name}},
	}
	for rows.Next() {
		var o model.Observation
		var value sql.NullFloat64
		if err := rows.Scan(&o.Entity, &o.Year, &value); err != nil {
			continue
		}
		if !value.Valid || math.IsNaN(value.Float64) || math.IsInf(value.Float64, 0) {
			continue
		}
		o.VariableID = 1
		o.Value = value.Float64
		ds.Observations = append(ds.Observations, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating data: %w", err)
	}
	return ds, nil
}

// CountObservations returns the total observation count, trying the full
// schema before the flat one.
func (r *SQLiteReader) CountObservations() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM observations").Scan(&count)
	if err == nil {
		return count, nil
	}
	err = r.db.QueryRow("SELECT COUNT(*) FROM data").Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// datasetNameFromPath derives a display name from the file name.
func datasetNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
