package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
)

// Paginate returns one page of a collection. Filter is an extended JSON
// query document.
func (s *Session) Paginate(ctx context.Context, req adapter.PageRequest) (*adapter.Page, error) {
	req = req.Normalize()
	db, err := s.database(req.Schema, "")
	if err != nil {
		return nil, err
	}

	filter, err := parseFilter(req.Filter)
	if err != nil {
		return nil, err
	}

	coll := db.Collection(req.Table)
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, mapError("paginate", req.Filter, err)
	}

	opts := options.Find().
		SetSkip(int64(req.Offset())).
		SetLimit(int64(req.PageSize))
	if column, desc := req.Order(); column != "" {
		dir := 1
		if desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: column, Value: dir}})
	}

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, mapError("paginate", req.Filter, err)
	}
	rows, err := decodeCursor(ctx, cursor)
	if err != nil {
		return nil, mapError("paginate", req.Filter, err)
	}
	return adapter.NewPage(req, adapter.ColumnsOf(rows), rows, total), nil
}

// ExportAll renders every document of a collection as JSON or CSV.
func (s *Session) ExportAll(ctx context.Context, schema, table string, format adapter.ExportFormat) (string, error) {
	if err := format.Validate(); err != nil {
		return "", err
	}
	db, err := s.database(schema, "")
	if err != nil {
		return "", err
	}
	cursor, err := db.Collection(table).Find(ctx, bson.D{})
	if err != nil {
		return "", mapError("export", "", err)
	}
	rows, err := decodeCursor(ctx, cursor)
	if err != nil {
		return "", mapError("export", "", err)
	}
	return adapter.EncodeRows(adapter.ColumnsOf(rows), rows, format)
}

// parseFilter reads an extended JSON filter. The empty filter matches all.
func parseFilter(filter string) (interface{}, error) {
	if filter == "" {
		return bson.D{}, nil
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON([]byte(rewriteShellHelpers(filter)), false, &doc); err != nil {
		return nil, adapter.NewValidationError("filter", "invalid query document: "+err.Error())
	}
	return coerceObjectIDs(doc), nil
}

var _ adapter.Session = (*Session)(nil)
