package render_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/steveyegge/curq/internal/render"
	"github.com/steveyegge/curq/internal/types"
)

func sampleFrame() *types.ResultFrame {
	return &types.ResultFrame{
		Columns: []types.Column{{Name: "service", Type: types.CellTypeString}, {Name: "cost", Type: types.CellTypeFloat64}},
		Rows: [][]any{
			{"ec2", 12.5},
			{"s3", nil},
		},
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]render.Format{"": render.FormatTable, "table": render.FormatTable, "json": render.FormatJSON, "csv": render.FormatCSV, "JSON": render.FormatJSON}
	for in, want := range cases {
		got, err := render.ParseFormat(in)
		if err != nil {
			t.Fatalf("ParseFormat(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseFormat(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseFormatRejectsUnknown(t *testing.T) {
	if _, err := render.ParseFormat("xml"); err == nil {
		t.Fatal("expected an error for an unrecognized format")
	}
}

func TestWriteTableIncludesHeaderAndRows(t *testing.T) {
	var buf bytes.Buffer
	if err := render.Write(&buf, sampleFrame(), render.FormatTable); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "service") || !strings.Contains(out, "ec2") {
		t.Errorf("table output missing expected content: %q", out)
	}
}

func TestWriteCSVIncludesHeaderAndRows(t *testing.T) {
	var buf bytes.Buffer
	if err := render.Write(&buf, sampleFrame(), render.FormatCSV); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "service,cost") {
		t.Errorf("got %q, want it to start with the CSV header", out)
	}
	if !strings.Contains(out, "ec2,12.5") {
		t.Errorf("got %q, missing expected data row", out)
	}
}

func TestWriteJSONProducesAnArrayOfObjects(t *testing.T) {
	var buf bytes.Buffer
	if err := render.Write(&buf, sampleFrame(), render.FormatJSON); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"service": "ec2"`) {
		t.Errorf("got %q, missing expected JSON field", out)
	}
}
