package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
	"github.com/redbco/redb-anchor/pkg/dbcapabilities"
)

// Execute runs one statement against the active database. params are not
// used: arguments are part of the statement.
func (s *Session) Execute(ctx context.Context, statement string, params []interface{}) (*adapter.Result, error) {
	cmd, err := parseStatement(statement)
	if err != nil {
		return nil, err
	}

	if cmd.Use != "" {
		s.setCurrentDatabase(cmd.Use)
		return &adapter.Result{Data: map[string]interface{}{"database": cmd.Use}}, nil
	}

	db, err := s.database("", statement)
	if err != nil {
		return nil, err
	}

	if cmd.Raw != nil {
		var out bson.M
		if err := db.RunCommand(ctx, cmd.Raw).Decode(&out); err != nil {
			return nil, mapError("command", statement, err)
		}
		return &adapter.Result{Data: convertDocument(out), RowCount: 1}, nil
	}

	result, err := s.run(ctx, db.Collection(cmd.Collection), cmd)
	if err != nil {
		var unsupported *adapter.UnsupportedOperationError
		if errors.As(err, &unsupported) {
			return nil, err
		}
		return nil, mapError(cmd.Operation, statement, err)
	}
	return result, nil
}

func (s *Session) run(ctx context.Context, coll *mongo.Collection, cmd *command) (*adapter.Result, error) {
	switch cmd.Operation {
	case "find":
		filter, err := cmd.filter(0)
		if err != nil {
			return nil, err
		}
		opts := options.Find()
		if len(cmd.Args) > 1 {
			projection, err := cmd.doc(1)
			if err != nil {
				return nil, err
			}
			opts.SetProjection(projection)
		}
		cursor, err := coll.Find(ctx, filter, opts)
		if err != nil {
			return nil, err
		}
		rows, err := decodeCursor(ctx, cursor)
		if err != nil {
			return nil, err
		}
		return adapter.RowsResult(adapter.ColumnsOf(rows), rows), nil

	case "findOne":
		filter, err := cmd.filter(0)
		if err != nil {
			return nil, err
		}
		opts := options.FindOne()
		if len(cmd.Args) > 1 {
			projection, err := cmd.doc(1)
			if err != nil {
				return nil, err
			}
			opts.SetProjection(projection)
		}
		var doc bson.M
		err = coll.FindOne(ctx, filter, opts).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &adapter.Result{Data: nil}, nil
		}
		if err != nil {
			return nil, err
		}
		return &adapter.Result{Data: convertDocument(doc), RowCount: 1}, nil

	case "insertOne":
		doc, err := cmd.doc(0)
		if err != nil {
			return nil, err
		}
		res, err := coll.InsertOne(ctx, doc)
		if err != nil {
			return nil, err
		}
		return &adapter.Result{
			Data:         map[string]interface{}{"insertedId": convertValue(res.InsertedID)},
			AffectedRows: 1,
		}, nil

	case "insertMany":
		docs, err := cmd.array(0)
		if err != nil {
			return nil, err
		}
		res, err := coll.InsertMany(ctx, []interface{}(docs))
		if err != nil {
			return nil, err
		}
		ids := make([]interface{}, len(res.InsertedIDs))
		for i, id := range res.InsertedIDs {
			ids[i] = convertValue(id)
		}
		return &adapter.Result{
			Data:         map[string]interface{}{"insertedIds": ids, "insertedCount": len(ids)},
			AffectedRows: int64(len(ids)),
		}, nil

	case "updateOne", "updateMany":
		filter, err := cmd.filter(0)
		if err != nil {
			return nil, err
		}
		if len(cmd.Args) < 2 {
			return nil, fmt.Errorf("%s requires a filter and an update", cmd.Operation)
		}
		update := cmd.Args[1]
		upsert := cmd.upsert()

		var res *mongo.UpdateResult
		if cmd.Operation == "updateOne" {
			res, err = coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(upsert))
		} else {
			res, err = coll.UpdateMany(ctx, filter, update, options.UpdateMany().SetUpsert(upsert))
		}
		if err != nil {
			return nil, err
		}
		data := map[string]interface{}{
			"matchedCount":  res.MatchedCount,
			"modifiedCount": res.ModifiedCount,
			"upsertedCount": res.UpsertedCount,
		}
		if res.UpsertedID != nil {
			data["upsertedId"] = convertValue(res.UpsertedID)
		}
		return &adapter.Result{Data: data, AffectedRows: res.ModifiedCount + res.UpsertedCount}, nil

	case "deleteOne", "deleteMany":
		filter, err := cmd.filter(0)
		if err != nil {
			return nil, err
		}
		var res *mongo.DeleteResult
		if cmd.Operation == "deleteOne" {
			res, err = coll.DeleteOne(ctx, filter)
		} else {
			res, err = coll.DeleteMany(ctx, filter)
		}
		if err != nil {
			return nil, err
		}
		return &adapter.Result{
			Data:         map[string]interface{}{"deletedCount": res.DeletedCount},
			AffectedRows: res.DeletedCount,
		}, nil

	case "countDocuments":
		filter, err := cmd.filter(0)
		if err != nil {
			return nil, err
		}
		count, err := coll.CountDocuments(ctx, filter)
		if err != nil {
			return nil, err
		}
		return &adapter.Result{Data: count, RowCount: 1}, nil

	case "aggregate":
		pipeline, err := cmd.array(0)
		if err != nil {
			return nil, err
		}
		cursor, err := coll.Aggregate(ctx, coerceObjectIDs(pipeline))
		if err != nil {
			return nil, err
		}
		rows, err := decodeCursor(ctx, cursor)
		if err != nil {
			return nil, err
		}
		return adapter.RowsResult(adapter.ColumnsOf(rows), rows), nil

	case "distinct":
		field, ok := cmd.stringArg(0)
		if !ok {
			return nil, fmt.Errorf("distinct requires a field name")
		}
		filter, err := cmd.filter(1)
		if err != nil {
			return nil, err
		}
		var values []interface{}
		if err := coll.Distinct(ctx, field, filter).Decode(&values); err != nil {
			return nil, err
		}
		converted := make([]interface{}, len(values))
		for i, v := range values {
			converted[i] = convertValue(v)
		}
		return &adapter.Result{Data: converted, RowCount: len(converted)}, nil
	}

	return nil, adapter.NewUnsupportedOperationError(dbcapabilities.MongoDB, cmd.Operation,
		"supported operations: find, findOne, insertOne, insertMany, updateOne, updateMany, deleteOne, deleteMany, countDocuments, aggregate, distinct")
}

// filter returns argument i as a filter document with identifiers coerced.
func (c *command) filter(i int) (interface{}, error) {
	doc, err := c.doc(i)
	if err != nil {
		return nil, err
	}
	return coerceObjectIDs(doc), nil
}

// upsert reads {"upsert": true} from the third argument of an update.
func (c *command) upsert() bool {
	if len(c.Args) < 3 {
		return false
	}
	opts, ok := c.Args[2].(bson.D)
	if !ok {
		return false
	}
	for _, e := range opts {
		if e.Key == "upsert" {
			b, _ := e.Value.(bool)
			return b
		}
	}
	return false
}

func (c *command) stringArg(i int) (string, bool) {
	if i >= len(c.Args) {
		return "", false
	}
	s, ok := c.Args[i].(string)
	return s, ok && s != ""
}

func decodeCursor(ctx context.Context, cursor *mongo.Cursor) ([]map[string]interface{}, error) {
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	rows := make([]map[string]interface{}, len(docs))
	for i, doc := range docs {
		rows[i] = convertDocument(doc)
	}
	return rows, nil
}
