// Package report summarizes lineages and analysis results as tables, JSON or
// YAML.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// Tabular is a report that can render itself as tables.
type Tabular interface {
	Tables() []table.Writer
}

// Render writes r to w in format. JSON and YAML encode r itself.
func Render(w io.Writer, format string, r Tabular) error {
	switch format {
	case FormatTable, "":
		for i, tbl := range r.Tables() {
			if i > 0 {
				fmt.Fprintln(w)
			}

			tbl.SetStyle(table.StyleLight)
			fmt.Fprintln(w, tbl.Render())
		}

		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		err := enc.Encode(r)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func newTable(title string, header table.Row) table.Writer {
	tbl := table.NewWriter()
	tbl.SetTitle(title)
	tbl.AppendHeader(header)

	return tbl
}

func count(n int) string {
	return humanize.Comma(int64(n))
}

func percent(n, total int) string {
	if total == 0 {
		return "-"
	}

	return fmt.Sprintf("%.1f%%", float64(n)/float64(total)*100)
}
