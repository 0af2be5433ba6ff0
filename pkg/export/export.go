// Package export renders charts into static artifacts: CSV extracts,
// SVG/PNG snapshots and markdown citation blocks.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/grapher/pkg/metrics"
	"github.com/vanderheijden86/grapher/pkg/model"
)

// Format identifies an export artifact type.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatSVG      Format = "svg"
	FormatPNG      Format = "png"
	FormatMarkdown Format = "md"
)

// ParseFormat normalizes a user-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "csv":
		return FormatCSV, nil
	case "svg":
		return FormatSVG, nil
	case "png":
		return FormatPNG, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (want csv, svg, png or md)", s)
	}
}

// FormatForPath infers the format from a file extension.
func FormatForPath(path string) (Format, bool) {
	f, err := ParseFormat(filepath.Ext(path))
	return f, err == nil
}

// Request describes one export: the dataset, its chart config, and the
// year window the scrubber has selected.
type Request struct {
	Path      string
	Format    Format
	Dataset   *model.Dataset
	Config    model.ChartConfig
	StartYear int
	EndYear   int
}

// DefaultFileName builds `<dataset>.<ext>` for a request without a path.
func DefaultFileName(ds *model.Dataset, f Format) string {
	name := "chart"
	if ds != nil && ds.Name != "" {
		name = ds.Name
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '-'
		}
		return r
	}, name)
	return name + "." + string(f)
}

// Export writes the requested artifact. The format falls back to the path
// extension, then to CSV.
func Export(req Request) error {
	defer metrics.Timer(metrics.ExportRender)()

	if req.Dataset == nil {
		return fmt.Errorf("no dataset to export")
	}
	if req.Format == "" {
		if f, ok := FormatForPath(req.Path); ok {
			req.Format = f
		} else {
			req.Format = FormatCSV
		}
	}
	if req.Path == "" {
		req.Path = DefaultFileName(req.Dataset, req.Format)
	}
	if dir := filepath.Dir(req.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create parent dir: %w", err)
		}
	}

	switch req.Format {
	case FormatCSV:
		return SaveCSV(req)
	case FormatSVG, FormatPNG:
		return SaveChartSnapshot(ChartSnapshotOptions{
			Path:      req.Path,
			Format:    string(req.Format),
			Dataset:   req.Dataset,
			Config:    req.Config,
			StartYear: req.StartYear,
			EndYear:   req.EndYear,
		})
	case FormatMarkdown:
		return SaveMarkdown(req)
	default:
		return fmt.Errorf("unsupported export format %q", req.Format)
	}
}
