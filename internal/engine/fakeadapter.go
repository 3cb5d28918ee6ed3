package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/steveyegge/curq/internal/types"
)

// FakeAdapter is a deterministic, dependency-free Adapter used by C8/C9's
// own test suites so they can exercise dispatch/materialization logic
// without standing up a real SQL engine. It understands exactly two query
// shapes: "SELECT COUNT(*) FROM <table>" and "SELECT * FROM <table>".
//
// This mirrors the teacher's convention of keeping fixture-building code as
// ordinary (non-_test.go) files consumed by multiple packages' tests, e.g.
// pkg/testutil/test_data_factory.go.
type FakeAdapter struct {
	tables map[string][]types.FileRef
	rows   map[string][]map[string]any

	// ExecuteErr, when set, is returned by the next Execute call instead of
	// a real result.
	ExecuteErr error
}

// NewFakeAdapter constructs an empty FakeAdapter.
func NewFakeAdapter() *FakeAdapter {
	return &FakeAdapter{
		tables: make(map[string][]types.FileRef),
		rows:   make(map[string][]map[string]any),
	}
}

// SeedRows installs synthetic rows for a table name, queried back by
// Execute regardless of which files were registered under that name.
func (a *FakeAdapter) SeedRows(table string, rows []map[string]any) {
	a.rows[table] = rows
}

func (a *FakeAdapter) Name() string { return "fake" }

func (a *FakeAdapter) Supports(feature Feature) bool {
	return feature == FeatureReadRemoteDirectly
}

func (a *FakeAdapter) RegisterTable(_ context.Context, name string, files []types.FileRef) error {
	a.tables[name] = files
	return nil
}

func (a *FakeAdapter) RegisterFile(ctx context.Context, name string, file types.FileRef) error {
	return a.RegisterTable(ctx, name, []types.FileRef{file})
}

func (a *FakeAdapter) Execute(_ context.Context, sql string, rowLimit int) (*types.ResultFrame, error) {
	if a.ExecuteErr != nil {
		err := a.ExecuteErr
		a.ExecuteErr = nil
		return nil, err
	}

	trimmed := strings.TrimSpace(sql)
	upper := strings.ToUpper(trimmed)

	table := lastWord(trimmed)
	if _, ok := a.tables[table]; !ok {
		return nil, fmt.Errorf("table %s not found", table)
	}
	rows := a.rows[table]

	if strings.HasPrefix(upper, "SELECT COUNT(*)") {
		frame := &types.ResultFrame{
			Columns: []types.Column{{Name: "count", Type: types.CellTypeInt64}},
			Rows:    [][]any{{int64(len(rows))}},
		}
		return frame, nil
	}

	var columns []string
	for _, r := range rows {
		for k := range r {
			columns = appendIfMissing(columns, k)
		}
		break
	}

	frame := &types.ResultFrame{}
	for _, c := range columns {
		frame.Columns = append(frame.Columns, types.Column{Name: c, Type: types.CellTypeString})
	}
	for i, r := range rows {
		if i >= rowLimit {
			break
		}
		row := make([]any, len(columns))
		for j, c := range columns {
			row[j] = r[c]
		}
		frame.Rows = append(frame.Rows, row)
	}
	return frame, nil
}

func (a *FakeAdapter) Reset(context.Context) error {
	a.tables = make(map[string][]types.FileRef)
	return nil
}

func lastWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[len(fields)-1], ";")
}

func appendIfMissing(cols []string, c string) []string {
	for _, existing := range cols {
		if existing == c {
			return cols
		}
	}
	return append(cols, c)
}

