package mongodb

import (
	"encoding/base64"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// convertDocument turns a decoded document into plain Go values.
func convertDocument(doc bson.M) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = convertValue(v)
	}
	return out
}

// convertValue renders BSON specific types as JSON friendly values:
// ObjectIDs as hex, dates as RFC 3339, decimals as strings, UUID binaries as
// UUID strings and other binaries as base64. Nested documents and arrays
// are converted recursively.
func convertValue(v interface{}) interface{} {
	switch val := v.(type) {
	case bson.ObjectID:
		return val.Hex()
	case bson.DateTime:
		return val.Time().UTC().Format(time.RFC3339Nano)
	case bson.Decimal128:
		return val.String()
	case bson.Timestamp:
		return time.Unix(int64(val.T), 0).UTC().Format(time.RFC3339)
	case bson.Binary:
		if (val.Subtype == 0x04 || val.Subtype == 0x03) && len(val.Data) == 16 {
			if id, err := uuid.FromBytes(val.Data); err == nil {
				return id.String()
			}
		}
		return base64.StdEncoding.EncodeToString(val.Data)
	case bson.Regex:
		return "/" + val.Pattern + "/" + val.Options
	case bson.D:
		out := make(map[string]interface{}, len(val))
		for _, elem := range val {
			out[elem.Key] = convertValue(elem.Value)
		}
		return out
	case bson.M:
		return convertDocument(val)
	case map[string]interface{}:
		return convertDocument(bson.M(val))
	case bson.A:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = convertValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = convertValue(item)
		}
		return out
	case bson.Null, bson.Undefined:
		return nil
	default:
		return val
	}
}
