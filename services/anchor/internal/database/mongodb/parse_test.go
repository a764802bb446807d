package mongodb

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
)

func TestParseStatement(t *testing.T) {
	tests := []struct {
		name       string
		statement  string
		use        string
		collection string
		operation  string
		args       int
		raw        bool
	}{
		{name: "use", statement: "use shop", use: "shop"},
		{name: "use quoted", statement: "use `shop`;", use: "shop"},
		{name: "find no args", statement: "db.users.find()", collection: "users", operation: "find"},
		{name: "find filter projection", statement: `db.users.find({"age": {"$gt": 30}}, {"name": 1})`, collection: "users", operation: "find", args: 2},
		{name: "dotted collection", statement: "db.system.profile.find({})", collection: "system.profile", operation: "find", args: 1},
		{name: "getCollection", statement: `db.getCollection("order-items").countDocuments({})`, collection: "order-items", operation: "countDocuments", args: 1},
		{name: "trailing semicolon", statement: `db.users.insertOne({"name": "ada"});`, collection: "users", operation: "insertOne", args: 1},
		{name: "command document", statement: `{"ping": 1}`, raw: true},
		{name: "multiline", statement: "db.orders.aggregate([\n  {\"$match\": {}}\n])", collection: "orders", operation: "aggregate", args: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := parseStatement(tt.statement)
			require.NoError(t, err)
			assert.Equal(t, tt.use, cmd.Use)
			assert.Equal(t, tt.collection, cmd.Collection)
			assert.Equal(t, tt.operation, cmd.Operation)
			assert.Len(t, cmd.Args, tt.args)
			assert.Equal(t, tt.raw, cmd.Raw != nil)
		})
	}
}

func TestParseStatementErrors(t *testing.T) {
	_, err := parseStatement("   ")
	assert.True(t, errors.Is(err, adapter.ErrValidation))

	for _, stmt := range []string{
		"SELECT * FROM users",
		`db.users.find({"a": })`,
		`{}`,
	} {
		_, err := parseStatement(stmt)
		require.Error(t, err, stmt)
		var dbErr *adapter.DatabaseError
		require.True(t, errors.As(err, &dbErr), stmt)
		assert.Equal(t, stmt, dbErr.SQL)
	}
}

func TestShellHelpers(t *testing.T) {
	cmd, err := parseStatement(`db.users.find({"_id": ObjectId("507f1f77bcf86cd799439011"), "at": ISODate("2024-01-02T03:04:05Z")})`)
	require.NoError(t, err)

	filter, err := cmd.doc(0)
	require.NoError(t, err)
	doc := filter.(bson.D)

	oid, err := bson.ObjectIDFromHex("507f1f77bcf86cd799439011")
	require.NoError(t, err)
	assert.Equal(t, oid, doc[0].Value)
	assert.IsType(t, bson.DateTime(0), doc[1].Value)
}

func TestCoerceObjectIDs(t *testing.T) {
	hex := "507f1f77bcf86cd799439011"
	oid, err := bson.ObjectIDFromHex(hex)
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter bson.D
		want   bson.D
	}{
		{
			name:   "id field",
			filter: bson.D{{Key: "_id", Value: hex}},
			want:   bson.D{{Key: "_id", Value: oid}},
		},
		{
			name:   "suffix fields",
			filter: bson.D{{Key: "user_id", Value: hex}, {Key: "ownerId", Value: hex}},
			want:   bson.D{{Key: "user_id", Value: oid}, {Key: "ownerId", Value: oid}},
		},
		{
			name:   "other fields untouched",
			filter: bson.D{{Key: "name", Value: hex}},
			want:   bson.D{{Key: "name", Value: hex}},
		},
		{
			name:   "in operator",
			filter: bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: bson.A{hex, hex}}}}},
			want:   bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: bson.A{oid, oid}}}}},
		},
		{
			name: "nested logical operator",
			filter: bson.D{{Key: "$or", Value: bson.A{
				bson.D{{Key: "authorId", Value: hex}},
				bson.D{{Key: "title", Value: hex}},
			}}},
			want: bson.D{{Key: "$or", Value: bson.A{
				bson.D{{Key: "authorId", Value: oid}},
				bson.D{{Key: "title", Value: hex}},
			}}},
		},
		{
			name:   "invalid hex stays literal",
			filter: bson.D{{Key: "_id", Value: "zzzzzzzzzzzzzzzzzzzzzzzz"}},
			want:   bson.D{{Key: "_id", Value: "zzzzzzzzzzzzzzzzzzzzzzzz"}},
		},
		{
			name:   "short id stays literal",
			filter: bson.D{{Key: "_id", Value: "42"}},
			want:   bson.D{{Key: "_id", Value: "42"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, coerceObjectIDs(tt.filter))
		})
	}
}

func TestCommandArguments(t *testing.T) {
	cmd, err := parseStatement(`db.users.updateMany({"active": false}, {"$set": {"archived": true}}, {"upsert": true})`)
	require.NoError(t, err)
	assert.True(t, cmd.upsert())

	cmd, err = parseStatement(`db.users.updateOne({}, {"$set": {"a": 1}})`)
	require.NoError(t, err)
	assert.False(t, cmd.upsert())

	cmd, err = parseStatement(`db.users.distinct("city", {"active": true})`)
	require.NoError(t, err)
	field, ok := cmd.stringArg(0)
	assert.True(t, ok)
	assert.Equal(t, "city", field)

	cmd, err = parseStatement(`db.users.insertMany({"a": 1})`)
	require.NoError(t, err)
	_, err = cmd.array(0)
	assert.Error(t, err)

	cmd, err = parseStatement(`db.users.find(42)`)
	require.NoError(t, err)
	_, err = cmd.doc(0)
	assert.Error(t, err)
}

func TestParseFilter(t *testing.T) {
	filter, err := parseFilter("")
	require.NoError(t, err)
	assert.Equal(t, bson.D{}, filter)

	_, err = parseFilter("{not json")
	assert.True(t, errors.Is(err, adapter.ErrValidation))
}
