package adapter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ExportFormat selects the encoding of ExportAll.
type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
)

// ParseExportFormat accepts "json" or "csv" in any case.
func ParseExportFormat(s string) (ExportFormat, error) {
	f := ExportFormat(strings.ToLower(strings.TrimSpace(s)))
	if err := f.Validate(); err != nil {
		return "", err
	}
	return f, nil
}

// Validate reports unsupported formats as validation errors.
func (f ExportFormat) Validate() error {
	switch f {
	case ExportJSON, ExportCSV:
		return nil
	}
	return NewValidationError("format", fmt.Sprintf("unsupported export format %q (want json or csv)", string(f)))
}

// EncodeRows renders rows in format. columns fixes the CSV column order;
// when empty the sorted union of row keys is used.
func EncodeRows(columns []string, rows []map[string]interface{}, format ExportFormat) (string, error) {
	if rows == nil {
		rows = []map[string]interface{}{}
	}
	switch format {
	case ExportJSON:
		b, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode rows as json: %w", err)
		}
		return string(b), nil
	case ExportCSV:
		if len(columns) == 0 {
			columns = ColumnsOf(rows)
		}
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.Write(columns); err != nil {
			return "", fmt.Errorf("failed to write csv header: %w", err)
		}
		record := make([]string, len(columns))
		for _, row := range rows {
			for i, col := range columns {
				record[i] = FormatValue(row[col])
			}
			if err := w.Write(record); err != nil {
				return "", fmt.Errorf("failed to write csv row: %w", err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return "", fmt.Errorf("failed to flush csv: %w", err)
		}
		return buf.String(), nil
	}
	return "", format.Validate()
}

// ColumnsOf returns the sorted union of the keys of rows.
func ColumnsOf(rows []map[string]interface{}) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for k := range row {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// FormatValue renders a single value as CSV text.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return val.String()
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", val)
	}
}
