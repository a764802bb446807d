package mongodb

import (
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
	"github.com/redbco/redb-anchor/pkg/dbcapabilities"
)

// command is a parsed statement. Either Raw is set (a database command
// document) or Collection and Operation are.
type command struct {
	Use        string
	Collection string
	Operation  string
	Args       bson.A
	Raw        bson.D
}

var (
	collectionCall    = regexp.MustCompile(`(?s)^db\.([A-Za-z_][\w.$-]*?)\.(\w+)\((.*)\)$`)
	getCollectionCall = regexp.MustCompile(`(?s)^db\.getCollection\(\s*["']([^"']+)["']\s*\)\.(\w+)\((.*)\)$`)
	useStatement      = regexp.MustCompile(`(?i)^use\s+(\S+)$`)

	objectIDHelper = regexp.MustCompile(`ObjectId\(\s*["']([0-9a-fA-F]{24})["']\s*\)`)
	isoDateHelper  = regexp.MustCompile(`ISODate\(\s*["']([^"']+)["']\s*\)`)
)

// parseStatement accepts
//
//	use <db>
//	db.<collection>.<operation>(<extended JSON args>)
//	db.getCollection("<collection>").<operation>(<args>)
//	{"<command>": ...}
//
// ObjectId("...") and ISODate("...") shell helpers are rewritten to their
// extended JSON form before parsing.
func parseStatement(statement string) (*command, error) {
	stmt := strings.TrimSpace(statement)
	stmt = strings.TrimSpace(strings.TrimSuffix(stmt, ";"))
	if stmt == "" {
		return nil, adapter.NewValidationError("statement", "statement is empty")
	}

	if m := useStatement.FindStringSubmatch(stmt); m != nil {
		return &command{Use: adapter.UnquoteIdentifier(m[1])}, nil
	}

	stmt = rewriteShellHelpers(stmt)

	if strings.HasPrefix(stmt, "{") {
		var doc bson.D
		if err := bson.UnmarshalExtJSON([]byte(stmt), false, &doc); err != nil {
			return nil, invalidStatement(statement, fmt.Errorf("invalid command document: %w", err))
		}
		if len(doc) == 0 {
			return nil, invalidStatement(statement, fmt.Errorf("command document is empty"))
		}
		return &command{Raw: doc}, nil
	}

	m := getCollectionCall.FindStringSubmatch(stmt)
	if m == nil {
		m = collectionCall.FindStringSubmatch(stmt)
	}
	if m == nil {
		return nil, invalidStatement(statement, fmt.Errorf("expected db.<collection>.<operation>(...) or a command document"))
	}

	args, err := parseArgs(m[3])
	if err != nil {
		return nil, invalidStatement(statement, err)
	}
	return &command{Collection: m[1], Operation: m[2], Args: args}, nil
}

func invalidStatement(statement string, cause error) error {
	return adapter.NewDatabaseError(dbcapabilities.MongoDB, "parse", cause).WithSQL(statement)
}

func rewriteShellHelpers(stmt string) string {
	stmt = objectIDHelper.ReplaceAllString(stmt, `{"$$oid":"$1"}`)
	stmt = isoDateHelper.ReplaceAllString(stmt, `{"$$date":"$1"}`)
	return stmt
}

// parseArgs parses a comma separated list of extended JSON values.
func parseArgs(raw string) (bson.A, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return bson.A{}, nil
	}
	var wrapper struct {
		Args bson.A `bson:"args"`
	}
	if err := bson.UnmarshalExtJSON([]byte(`{"args":[`+raw+`]}`), false, &wrapper); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return wrapper.Args, nil
}

// doc returns the i-th argument as a document, or an empty document.
func (c *command) doc(i int) (interface{}, error) {
	if i >= len(c.Args) {
		return bson.D{}, nil
	}
	switch v := c.Args[i].(type) {
	case bson.D, bson.M:
		return v, nil
	case nil:
		return bson.D{}, nil
	default:
		return nil, fmt.Errorf("argument %d of %s must be a document", i+1, c.Operation)
	}
}

// array returns the i-th argument as an array.
func (c *command) array(i int) (bson.A, error) {
	if i >= len(c.Args) {
		return nil, fmt.Errorf("%s requires an array argument", c.Operation)
	}
	a, ok := c.Args[i].(bson.A)
	if !ok {
		return nil, fmt.Errorf("argument %d of %s must be an array", i+1, c.Operation)
	}
	return a, nil
}

// isIDField reports whether a field name holds object identifiers:
// _id, *_id and *Id.
func isIDField(key string) bool {
	return key == "_id" || strings.HasSuffix(key, "_id") || (len(key) > 2 && strings.HasSuffix(key, "Id"))
}

// coerceObjectIDs walks a filter and converts 24 character hex strings bound
// to identifier fields into ObjectIDs. Operators such as $in and $eq
// inherit the field they apply to. Strings that are not valid hex stay as
// they are.
func coerceObjectIDs(value interface{}) interface{} {
	return coerce(value, false)
}

func coerce(value interface{}, idField bool) interface{} {
	switch v := value.(type) {
	case bson.D:
		out := make(bson.D, len(v))
		for i, e := range v {
			out[i] = bson.E{Key: e.Key, Value: coerce(e.Value, childIsID(e.Key, idField))}
		}
		return out
	case bson.M:
		out := make(bson.M, len(v))
		for k, val := range v {
			out[k] = coerce(val, childIsID(k, idField))
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[k] = coerce(val, childIsID(k, idField))
		}
		return out
	case bson.A:
		out := make(bson.A, len(v))
		for i, item := range v {
			out[i] = coerce(item, idField)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = coerce(item, idField)
		}
		return out
	case string:
		if idField && len(v) == 24 {
			if oid, err := bson.ObjectIDFromHex(v); err == nil {
				return oid
			}
		}
		return v
	default:
		return v
	}
}

func childIsID(key string, parentIsID bool) bool {
	if strings.HasPrefix(key, "$") {
		return parentIsID
	}
	return isIDField(key)
}
