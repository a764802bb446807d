package mongodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
)

func TestConvertValue(t *testing.T) {
	oid, err := bson.ObjectIDFromHex("507f1f77bcf86cd799439011")
	require.NoError(t, err)
	dec, err := bson.ParseDecimal128("12.50")
	require.NoError(t, err)
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	doc := bson.M{
		"_id":     oid,
		"at":      bson.NewDateTimeFromTime(at),
		"price":   dec,
		"tags":    bson.A{"a", oid},
		"address": bson.D{{Key: "city", Value: "Oslo"}},
		"uuid":    bson.Binary{Subtype: 0x04, Data: []byte{0x6b, 0xa7, 0xb8, 0x10, 0x9d, 0xad, 0x11, 0xd1, 0x80, 0xb4, 0x00, 0xc0, 0x4f, 0xd4, 0x30, 0xc8}},
		"blob":    bson.Binary{Data: []byte("hi")},
		"missing": bson.Null{},
		"n":       int32(7),
	}

	got := convertDocument(doc)
	assert.Equal(t, "507f1f77bcf86cd799439011", got["_id"])
	assert.Equal(t, "2024-01-02T03:04:05Z", got["at"])
	assert.Equal(t, "12.50", got["price"])
	assert.Equal(t, []interface{}{"a", "507f1f77bcf86cd799439011"}, got["tags"])
	assert.Equal(t, map[string]interface{}{"city": "Oslo"}, got["address"])
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", got["uuid"])
	assert.Equal(t, "aGk=", got["blob"])
	assert.Nil(t, got["missing"])
	assert.Equal(t, int32(7), got["n"])
}

func TestInferColumns(t *testing.T) {
	oid := bson.NewObjectID()
	docs := []bson.M{
		{"_id": oid, "name": "ada", "age": int32(36)},
		{"_id": oid, "name": "alan", "age": nil, "email": "a@example.com"},
	}

	cols := inferColumns(docs)
	require.Len(t, cols, 4)

	byName := map[string]adapter.Column{}
	for _, c := range cols {
		byName[c.Name] = c
	}
	assert.Equal(t, "_id", cols[0].Name)
	assert.True(t, byName["_id"].PrimaryKey)
	assert.Equal(t, "objectId", byName["_id"].Type)
	assert.False(t, byName["name"].Nullable)
	assert.Equal(t, "string", byName["name"].Type)
	assert.True(t, byName["age"].Nullable)
	assert.Equal(t, "int", byName["age"].Type)
	assert.True(t, byName["email"].Nullable)
}

func TestInferColumnsEmptyCollection(t *testing.T) {
	cols := inferColumns(nil)
	require.Len(t, cols, 1)
	assert.Equal(t, "_id", cols[0].Name)
	assert.True(t, cols[0].PrimaryKey)
}
