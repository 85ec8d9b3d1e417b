package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
)

// resolveFormat maps the "auto" output mode onto table for terminals and
// json for pipes.
func resolveFormat(format string) string {
	if format != "auto" && format != "" {
		return format
	}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return "table"
	}
	return "json"
}

// renderRows renders result rows in the requested format.
func renderRows(w io.Writer, cols []string, rows []map[string]any, format string) error {
	switch resolveFormat(format) {
	case "json":
		return renderJSON(w, rows)
	case "csv":
		return renderCSV(w, cols, rows)
	case "md", "markdown":
		return renderMarkdown(w, cols, rows)
	default:
		return renderTable(w, cols, rows)
	}
}

func renderTable(w io.Writer, cols []string, rows []map[string]any) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(cols))
	for i, col := range cols {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, r := range rows {
		row := make(table.Row, len(cols))
		for i, col := range cols {
			row[i] = formatValue(r[col])
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
	return nil
}

func renderJSON(w io.Writer, rows []map[string]any) error {
	if rows == nil {
		rows = []map[string]any{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func renderCSV(w io.Writer, cols []string, rows []map[string]any) error {
	_, _ = fmt.Fprintln(w, strings.Join(cols, ","))
	for _, r := range rows {
		values := make([]string, len(cols))
		for i, col := range cols {
			values[i] = escapeCSV(formatValue(r[col]))
		}
		_, _ = fmt.Fprintln(w, strings.Join(values, ","))
	}
	return nil
}

func renderMarkdown(w io.Writer, cols []string, rows []map[string]any) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(cols, " | "))
	seps := make([]string, len(cols))
	for i := range seps {
		seps[i] = "---"
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(seps, " | "))
	for _, r := range rows {
		values := make([]string, len(cols))
		for i, col := range cols {
			values[i] = strings.ReplaceAll(formatValue(r[col]), "|", "\\|")
		}
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(values, " | "))
	}
	return nil
}

func formatValue(v any) string {
	if v == nil {
		return ""
	}
	if f, ok := v.(float64); ok {
		if f == float64(int64(f)) {
			return fmt.Sprintf("%d", int64(f))
		}
	}
	return fmt.Sprint(v)
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
