package adapter

import (
	"fmt"
	"unicode/utf8"
)

// NormalizeValue converts driver values into JSON-friendly ones. Byte slices
// become strings, and 16-byte binary values that are not valid text are
// rendered as UUIDs.
func NormalizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 16 && !utf8.Valid(v) {
			return bytesToUUIDString(v)
		}
		return string(v)
	default:
		return v
	}
}

// NormalizeRow applies NormalizeValue to every column of row.
func NormalizeRow(row map[string]interface{}) map[string]interface{} {
	for k, v := range row {
		row[k] = NormalizeValue(v)
	}
	return row
}

func bytesToUUIDString(data []byte) string {
	return fmt.Sprintf("%x-%x-%x-%x-%x", data[0:4], data[4:6], data[6:8], data[8:10], data[10:16])
}
