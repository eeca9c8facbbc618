package query

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"
)

// EncodeResultParquet writes a result set as a parquet file. Every column is an
// optional UTF-8 string so heterogeneous DuckDB types survive the export.
func EncodeResultParquet(result Result) ([]byte, error) {
	if len(result.Columns) == 0 {
		return nil, fmt.Errorf("result has no columns")
	}

	names := uniqueColumnNames(result.Columns)
	group := parquet.Group{}
	for _, name := range names {
		group[name] = parquet.Optional(parquet.String())
	}
	schema := parquet.NewSchema("result", group)

	// parquet.Group orders its leaves by name.
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	leafIndex := make(map[string]int, len(sorted))
	for i, name := range sorted {
		leafIndex[name] = i
	}

	rows := make([]parquet.Row, 0, len(result.Rows))
	for rowIndex, values := range result.Rows {
		if len(values) != len(names) {
			return nil, fmt.Errorf("row %d has %d values, want %d", rowIndex, len(values), len(names))
		}
		row := make(parquet.Row, len(names))
		for i, value := range values {
			column := leafIndex[names[i]]
			if value == nil {
				row[column] = parquet.NullValue().Level(0, 0, column)
				continue
			}
			row[column] = parquet.ValueOf(FormatValue(value)).Level(0, 1, column)
		}
		rows = append(rows, row)
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewWriter(buf, schema)
	if _, err := writer.WriteRows(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

// FormatValue renders a scanned database value as text.
func FormatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case []byte:
		return string(typed)
	case time.Time:
		return typed.UTC().Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case *big.Int:
		return typed.String()
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}

func uniqueColumnNames(columns []string) []string {
	seen := make(map[string]int, len(columns))
	out := make([]string, 0, len(columns))
	for i, column := range columns {
		name := column
		if name == "" {
			name = "column_" + strconv.Itoa(i)
		}
		if count, ok := seen[name]; ok {
			seen[name] = count + 1
			name = name + "_" + strconv.Itoa(count+1)
		} else {
			seen[name] = 0
		}
		out = append(out, name)
	}
	return out
}
