package mongodb

import (
	"context"
	"sort"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
	"github.com/redbco/redb-anchor/pkg/dbcapabilities"
)

const sampleSize = 100

// GetStructure infers the fields of a collection from a sample of its
// documents and reads its indexes. A field missing from some sampled
// documents, or null in any of them, is nullable.
func (s *Session) GetStructure(ctx context.Context, schema, table string) (*adapter.Structure, error) {
	db, err := s.database(schema, "")
	if err != nil {
		return nil, err
	}

	names, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: table}})
	if err != nil {
		return nil, mapError("get structure", "", err)
	}
	if len(names) == 0 {
		return nil, adapter.NewNotFoundError(dbcapabilities.MongoDB, "table", table)
	}

	coll := db.Collection(table)
	cursor, err := coll.Find(ctx, bson.D{}, options.Find().SetLimit(sampleSize))
	if err != nil {
		return nil, mapError("get structure", "", err)
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, mapError("get structure", "", err)
	}

	structure := adapter.EmptyStructure()
	structure.Columns = inferColumns(docs)

	indexes, err := s.indexes(ctx, coll.Indexes())
	if err != nil {
		return nil, err
	}
	structure.Indexes = indexes
	return structure, nil
}

type fieldStats struct {
	types map[string]int
	seen  int
	nulls int
}

// inferColumns reports each top-level field with its most common type.
// _id is always present and is the primary key.
func inferColumns(docs []bson.M) []adapter.Column {
	stats := map[string]*fieldStats{}
	for _, doc := range docs {
		for key, value := range doc {
			st, ok := stats[key]
			if !ok {
				st = &fieldStats{types: map[string]int{}}
				stats[key] = st
			}
			st.seen++
			name := bsonTypeName(value)
			if name == "null" {
				st.nulls++
				continue
			}
			st.types[name]++
		}
	}

	if _, ok := stats["_id"]; !ok {
		stats["_id"] = &fieldStats{types: map[string]int{"objectId": 1}, seen: len(docs)}
	}

	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == "_id" || keys[j] == "_id" {
			return keys[i] == "_id"
		}
		return keys[i] < keys[j]
	})

	columns := make([]adapter.Column, 0, len(keys))
	for _, key := range keys {
		st := stats[key]
		col := adapter.NewColumn(key, dominantType(st.types))
		if key == "_id" {
			col.PrimaryKey = true
		} else {
			col.Nullable = st.nulls > 0 || st.seen < len(docs)
		}
		columns = append(columns, col)
	}
	return columns
}

func dominantType(types map[string]int) string {
	best, count := "null", 0
	for name, n := range types {
		if n > count || (n == count && name < best) {
			best, count = name, n
		}
	}
	return best
}

func bsonTypeName(v interface{}) string {
	switch v.(type) {
	case nil, bson.Null, bson.Undefined:
		return "null"
	case string:
		return "string"
	case int32:
		return "int"
	case int, int64:
		return "long"
	case float32, float64:
		return "double"
	case bool:
		return "bool"
	case bson.ObjectID:
		return "objectId"
	case bson.DateTime:
		return "date"
	case bson.Decimal128:
		return "decimal"
	case bson.Timestamp:
		return "timestamp"
	case bson.Binary:
		return "binData"
	case bson.Regex:
		return "regex"
	case bson.D, bson.M, map[string]interface{}:
		return "object"
	case bson.A, []interface{}:
		return "array"
	default:
		return "unknown"
	}
}

func (s *Session) indexes(ctx context.Context, view mongo.IndexView) ([]adapter.Index, error) {
	specs, err := view.ListSpecifications(ctx)
	if err != nil {
		return nil, mapError("list indexes", "", err)
	}

	indexes := make([]adapter.Index, 0, len(specs))
	for _, spec := range specs {
		elems, err := spec.KeysDocument.Elements()
		if err != nil {
			continue
		}
		columns := make([]string, 0, len(elems))
		for _, elem := range elems {
			columns = append(columns, elem.Key())
		}
		primary := spec.Name == "_id_"
		indexes = append(indexes, adapter.Index{
			Name:    spec.Name,
			Columns: columns,
			Unique:  primary || (spec.Unique != nil && *spec.Unique),
			Primary: primary,
		})
	}
	return indexes, nil
}
