package materializer

import (
	"encoding/json"
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/steveyegge/curq/internal/types"
)

// writeParquetFile persists a ResultFrame as a Parquet file using the
// library's schema-less JSON writer, mirroring engine.readParquetFile's use
// of the generic (non-struct) API on the read side.
func writeParquetFile(path string, frame *types.ResultFrame) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("creating parquet output %s: %w", path, err)
	}
	defer fw.Close()

	schema := jsonSchemaFor(frame.Columns)
	pw, err := writer.NewJSONWriter(schema, fw, 4)
	if err != nil {
		return fmt.Errorf("building parquet writer for %s: %w", path, err)
	}

	for _, row := range frame.Rows {
		obj := make(map[string]interface{}, len(frame.Columns))
		for i, col := range frame.Columns {
			obj[col.Name] = row[i]
		}
		line, err := json.Marshal(obj)
		if err != nil {
			return fmt.Errorf("encoding row for %s: %w", path, err)
		}
		if err := pw.Write(string(line)); err != nil {
			return fmt.Errorf("writing row to %s: %w", path, err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finalizing parquet output %s: %w", path, err)
	}
	return nil
}

// jsonSchemaFor builds the parquet-go JSON schema string describing frame's
// columns, all nullable (view query results may contain NULL cells).
func jsonSchemaFor(columns []types.Column) string {
	b := []byte(`{"Tag":"name=root, repetitiontype=REQUIRED","Fields":[`)
	for i, c := range columns {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, []byte(fmt.Sprintf(`{"Tag":"name=%s, type=%s, repetitiontype=OPTIONAL"}`, c.Name, parquetTypeFor(c.Type)))...)
	}
	b = append(b, ']', '}')
	return string(b)
}

func parquetTypeFor(t types.CellType) string {
	switch t {
	case types.CellTypeInt64:
		return "INT64"
	case types.CellTypeFloat64:
		return "DOUBLE"
	case types.CellTypeBool:
		return "BOOLEAN"
	case types.CellTypeTime:
		return "INT64, convertedtype=TIMESTAMP_MILLIS"
	default:
		return "BYTE_ARRAY, convertedtype=UTF8"
	}
}
