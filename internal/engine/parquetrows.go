package engine

import (
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/steveyegge/curq/internal/types"
)

// readParquetFile loads every row of a Parquet file generically (no
// compile-time struct schema), inferring columns from the file's own
// footer. Rows are returned as field-name-keyed maps in file order.
func readParquetFile(path string) ([]string, []map[string]interface{}, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening parquet file %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, nil, 4)
	if err != nil {
		return nil, nil, fmt.Errorf("reading parquet footer %s: %w", path, err)
	}
	defer pr.ReadStop()

	numRows := int(pr.GetNumRows())
	raw, err := pr.ReadByNumber(numRows)
	if err != nil {
		return nil, nil, fmt.Errorf("reading parquet rows %s: %w", path, err)
	}

	columns := columnNamesFromSchema(pr)

	rows := make([]map[string]interface{}, 0, len(raw))
	for _, r := range raw {
		m, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		rows = append(rows, m)
	}
	return columns, rows, nil
}

// columnNamesFromSchema extracts top-level field names in schema order from
// the reader's schema handler.
func columnNamesFromSchema(pr *reader.ParquetReader) []string {
	var names []string
	if pr.SchemaHandler == nil {
		return names
	}
	for _, name := range pr.SchemaHandler.ValueColumns {
		names = append(names, lastSegment(name))
	}
	return names
}

func lastSegment(dotted string) string {
	last := dotted
	for i := len(dotted) - 1; i >= 0; i-- {
		if dotted[i] == '.' {
			last = dotted[i+1:]
			break
		}
	}
	return last
}

// inferCellType guesses a types.CellType from a Go value decoded out of
// Parquet's generic JSON-mode reader.
func inferCellType(v interface{}) types.CellType {
	switch v.(type) {
	case int32, int64, int:
		return types.CellTypeInt64
	case float32, float64:
		return types.CellTypeFloat64
	case bool:
		return types.CellTypeBool
	case string:
		return types.CellTypeString
	default:
		return types.CellTypeNull
	}
}
