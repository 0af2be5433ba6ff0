package export

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vanderheijden86/grapher/pkg/analysis"
)

// SaveMarkdown writes the markdown citation block for the selected window.
func SaveMarkdown(req Request) error {
	f, err := os.Create(req.Path)
	if err != nil {
		return fmt.Errorf("create %s: %w", req.Path, err)
	}
	defer f.Close()
	return WriteMarkdown(f, req)
}

// WriteMarkdown renders the chart as a markdown document: metadata, a
// per-entity table over the selected window, and the source citation.
func WriteMarkdown(w io.Writer, req Request) error {
	ds := req.Dataset
	v, _ := ds.PrimaryVariable()
	entities := req.Config.ResolveEntities(ds, defaultExportEntities)

	title := strings.TrimSpace(req.Config.Title)
	if title == "" {
		title = ds.Name
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("*Generated: %s*\n\n", time.Now().Format(time.RFC1123)))

	sb.WriteString(fmt.Sprintf("**Indicator:** %s", v.Name))
	if v.Unit != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", v.Unit))
	}
	sb.WriteString("\n")
	if req.StartYear == req.EndYear {
		sb.WriteString(fmt.Sprintf("**Year:** %d\n", req.StartYear))
	} else {
		sb.WriteString(fmt.Sprintf("**Years:** %d to %d\n", req.StartYear, req.EndYear))
	}
	sb.WriteString("\n")

	sb.WriteString("## Data\n\n")
	sb.WriteString("| Entity | First | Last | Change | Values |\n")
	sb.WriteString("|--------|-------|------|--------|--------|\n")
	for _, e := range entities {
		s := ds.Series(e, v.ID)
		values := s.ValuesInRange(req.StartYear, req.EndYear)
		if len(values) == 0 {
			sb.WriteString(fmt.Sprintf("| %s | - | - | - | 0 |\n", e))
			continue
		}
		first := values[0]
		last := values[len(values)-1]
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d |\n",
			e, formatValue(first), formatValue(last), formatValue(last-first), len(values)))
	}
	sb.WriteString("\n")

	if corrs := analysis.CorrelateEntities(ds, v.ID, analysis.DefaultMinOverlap); len(corrs) > 0 {
		sb.WriteString("## Correlations\n\n")
		limit := len(corrs)
		if limit > 5 {
			limit = 5
		}
		for _, c := range corrs[:limit] {
			sb.WriteString(fmt.Sprintf("- %s and %s: r = %.2f over %d shared years\n",
				c.EntityA, c.EntityB, c.R, c.Overlap))
		}
		sb.WriteString("\n")
	}

	if v.Source.Name != "" {
		sb.WriteString("## Citation\n\n")
		sb.WriteString(fmt.Sprintf("> %s", v.Source.Name))
		if v.Source.DataPublishedBy != "" {
			sb.WriteString(fmt.Sprintf(", published by %s", v.Source.DataPublishedBy))
		}
		if v.Source.RetrievedDate != "" {
			sb.WriteString(fmt.Sprintf(", retrieved %s", v.Source.RetrievedDate))
		}
		sb.WriteString(".\n")
		if v.Source.Link != "" {
			sb.WriteString(fmt.Sprintf(">\n> <%s>\n", v.Source.Link))
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
