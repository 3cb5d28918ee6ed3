// Package render formats a ResultFrame for CLI output. This is the
// "telemetry formatting" front-end spec.md §1 calls an external
// collaborator — but SPEC_FULL.md's §5 supplements it as a thin,
// non-authoritative convenience so `cmd/curq query` has something to print;
// it holds no query-execution logic.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/steveyegge/curq/internal/types"
)

// Format selects the output encoding for a query result.
type Format int

const (
	FormatTable Format = iota
	FormatJSON
	FormatCSV
)

// ParseFormat parses a --format flag value, defaulting to FormatTable for an
// empty string.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "table":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	default:
		return FormatTable, fmt.Errorf("unknown output format %q (want table, json, or csv)", s)
	}
}

// Write renders frame to w in the requested format.
func Write(w io.Writer, frame *types.ResultFrame, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, frame)
	case FormatCSV:
		return writeCSV(w, frame)
	default:
		return writeTable(w, frame)
	}
}

func writeTable(w io.Writer, frame *types.ResultFrame) error {
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	names := make([]string, len(frame.Columns))
	for i, c := range frame.Columns {
		names[i] = c.Name
	}
	fmt.Fprintln(tw, strings.Join(names, "\t"))

	for _, row := range frame.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = cellString(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, frame *types.ResultFrame) error {
	rows := make([]map[string]any, 0, len(frame.Rows))
	for _, row := range frame.Rows {
		obj := make(map[string]any, len(frame.Columns))
		for i, c := range frame.Columns {
			if i < len(row) {
				obj[c.Name] = row[i]
			}
		}
		rows = append(rows, obj)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func writeCSV(w io.Writer, frame *types.ResultFrame) error {
	cw := csv.NewWriter(w)
	names := make([]string, len(frame.Columns))
	for i, c := range frame.Columns {
		names[i] = c.Name
	}
	if err := cw.Write(names); err != nil {
		return err
	}
	for _, row := range frame.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = cellString(v)
		}
		if err := cw.Write(cells); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func cellString(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
