package redis

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
)

// fakeClient keeps string keys in memory. Methods it does not override
// panic through the nil embedded interface.
type fakeClient struct {
	redis.Cmdable
	values  map[string]string
	hashes  map[string]map[string]string
	ttls    map[string]time.Duration
	failAll error
	closed  bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		values: map[string]string{},
		hashes: map[string]map[string]string{},
		ttls:   map[string]time.Duration{},
	}
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func (f *fakeClient) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if f.failAll != nil {
		cmd.SetErr(f.failAll)
		return cmd
	}
	cmd.SetVal("PONG")
	return cmd
}

func (f *fakeClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if f.failAll != nil {
		cmd.SetErr(f.failAll)
		return cmd
	}
	f.values[key] = value.(string)
	if expiration > 0 {
		f.ttls[key] = expiration
	}
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeClient) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if f.failAll != nil {
		cmd.SetErr(f.failAll)
		return cmd
	}
	v, ok := f.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (f *fakeClient) Incr(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	n, err := strconv.ParseInt(f.valueOr(key, "0"), 10, 64)
	if err != nil {
		cmd.SetErr(errors.New("ERR value is not an integer or out of range"))
		return cmd
	}
	n++
	f.values[key] = strconv.FormatInt(n, 10)
	cmd.SetVal(n)
	return cmd
}

func (f *fakeClient) TTL(ctx context.Context, key string) *redis.DurationCmd {
	cmd := redis.NewDurationCmd(ctx, time.Second)
	switch ttl, ok := f.ttls[key]; {
	case ok:
		cmd.SetVal(ttl)
	case f.exists(key):
		cmd.SetVal(-1)
	default:
		cmd.SetVal(-2)
	}
	return cmd
}

func (f *fakeClient) Type(ctx context.Context, key string) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	switch {
	case f.hashes[key] != nil:
		cmd.SetVal("hash")
	case f.exists(key):
		cmd.SetVal("string")
	default:
		cmd.SetVal("none")
	}
	return cmd
}

func (f *fakeClient) HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.hashes[key] == nil {
		f.hashes[key] = map[string]string{}
	}
	var added int64
	for i := 0; i+1 < len(values); i += 2 {
		field := values[i].(string)
		if _, ok := f.hashes[key][field]; !ok {
			added++
		}
		f.hashes[key][field] = values[i+1].(string)
	}
	cmd.SetVal(added)
	return cmd
}

func (f *fakeClient) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	cmd := redis.NewMapStringStringCmd(ctx)
	cmd.SetVal(f.hashes[key])
	return cmd
}

func (f *fakeClient) Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd {
	cmd := redis.NewScanCmd(ctx, nil)
	if f.failAll != nil {
		cmd.SetErr(f.failAll)
		return cmd
	}
	var keys []string
	for _, k := range f.keys() {
		if match == "*" || (strings.HasSuffix(match, "*") && strings.HasPrefix(k, strings.TrimSuffix(match, "*"))) || k == match {
			keys = append(keys, k)
		}
	}
	cmd.SetVal(keys, 0)
	return cmd
}

func (f *fakeClient) ConfigGet(ctx context.Context, parameter string) *redis.MapStringStringCmd {
	cmd := redis.NewMapStringStringCmd(ctx)
	cmd.SetErr(errors.New("ERR unknown command 'CONFIG'"))
	return cmd
}

func (f *fakeClient) valueOr(key, def string) string {
	if v, ok := f.values[key]; ok {
		return v
	}
	return def
}

func (f *fakeClient) exists(key string) bool {
	_, ok := f.values[key]
	return ok || f.hashes[key] != nil
}

func (f *fakeClient) keys() []string {
	var keys []string
	for k := range f.values {
		keys = append(keys, k)
	}
	for k := range f.hashes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func newTestSession(client *fakeClient) *Session {
	return newSession(client, nil, adapter.ConnectionConfig{Host: "localhost"})
}

func TestExecuteBatchKeepsPartialSuccess(t *testing.T) {
	session := newTestSession(newFakeClient())

	res, err := session.Execute(context.Background(), "SET a 1\nINCR a\nBOGUS a", nil)
	require.NoError(t, err)

	results, ok := res.Data.([]adapter.CommandResult)
	require.True(t, ok)
	require.Len(t, results, 3)

	assert.True(t, results[0].Success)
	assert.Equal(t, "OK", results[0].Result)
	assert.Equal(t, "SET a 1", results[0].Command)

	assert.True(t, results[1].Success)
	assert.Equal(t, int64(2), results[1].Result)

	assert.False(t, results[2].Success)
	assert.Contains(t, results[2].Error, "BOGUS")

	env := adapter.NewOperator(session).Execute(context.Background(), "SET a 1\nINCR a\nBOGUS a", nil)
	assert.True(t, env.Success)
}

func TestExecuteCommandFailuresStayPerCommand(t *testing.T) {
	client := newFakeClient()
	session := newTestSession(client)

	res, err := session.Execute(context.Background(), "SET name ada\nINCR name\nGET missing\nGET\n\n# comment\nGET name", nil)
	require.NoError(t, err)
	results := res.Data.([]adapter.CommandResult)
	require.Len(t, results, 5)

	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Contains(t, results[1].Error, "not an integer")
	assert.True(t, results[2].Success, "missing key is a nil reply, not a failure")
	assert.Nil(t, results[2].Result)
	assert.False(t, results[3].Success)
	assert.Contains(t, results[3].Error, "usage: GET key")
	assert.Equal(t, "ada", results[4].Result)
}

func TestExecuteConnectionLostAbortsBatch(t *testing.T) {
	client := newFakeClient()
	client.failAll = redis.ErrClosed
	session := newTestSession(client)

	_, err := session.Execute(context.Background(), "SET a 1\nGET a", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, adapter.ErrConnectionLost))
	assert.Equal(t, adapter.KindConnectionLost, adapter.Classify(err))
}

func TestExecuteEmptyBatch(t *testing.T) {
	_, err := newTestSession(newFakeClient()).Execute(context.Background(), "\n  \n", nil)
	assert.True(t, errors.Is(err, adapter.ErrValidation))
}

func TestExecuteQuotedArguments(t *testing.T) {
	client := newFakeClient()
	session := newTestSession(client)

	_, err := session.Execute(context.Background(), `SET greeting "hello world" EX 60`, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello world", client.values["greeting"])
	assert.Equal(t, time.Minute, client.ttls["greeting"])
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		line    string
		want    []string
		wantErr bool
	}{
		{line: "GET a", want: []string{"GET", "a"}},
		{line: "  SET   a\t1 ", want: []string{"SET", "a", "1"}},
		{line: `SET a "b c"`, want: []string{"SET", "a", "b c"}},
		{line: `SET a 'it"s'`, want: []string{"SET", "a", `it"s`}},
		{line: `SET a "say \"hi\""`, want: []string{"SET", "a", `say "hi"`}},
		{line: `SET a ""`, want: []string{"SET", "a", ""}},
		{line: `SET a "open`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := tokenize(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListSchemasFallsBackToDefault(t *testing.T) {
	schemas, err := newTestSession(newFakeClient()).ListSchemas(context.Background())
	require.NoError(t, err)
	require.Len(t, schemas, 16)
	assert.Equal(t, "db0", schemas[0])
	assert.Equal(t, "db15", schemas[15])
}

func TestListTablesAndPaginate(t *testing.T) {
	client := newFakeClient()
	client.values["user:1"] = "ada"
	client.values["user:2"] = "alan"
	client.values["order:1"] = "x"
	client.hashes["user:3"] = map[string]string{"name": "grace"}
	session := newTestSession(client)
	ctx := context.Background()

	keys, err := session.ListTables(ctx, "db0")
	require.NoError(t, err)
	assert.Equal(t, []string{"order:1", "user:1", "user:2", "user:3"}, keys)

	_, err = session.ListTables(ctx, "db3")
	assert.True(t, errors.Is(err, adapter.ErrOperationNotSupported))

	_, err = session.ListTables(ctx, "users")
	assert.True(t, errors.Is(err, adapter.ErrValidation))

	page, err := session.Paginate(ctx, adapter.PageRequest{Filter: "user:*", PageSize: 2, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Pagination.TotalRows)
	assert.Equal(t, int64(2), page.Pagination.TotalPages)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "user:3", page.Rows[0]["key"])
	assert.Equal(t, "hash", page.Rows[0]["type"])
	assert.Equal(t, map[string]string{"name": "grace"}, page.Rows[0]["value"])
	assert.Equal(t, int64(-1), page.Rows[0]["ttl"])

	structure, err := session.GetStructure(ctx, "db0", "user:1")
	require.NoError(t, err)
	assert.Empty(t, structure.Columns)
}

func TestExportAllCSV(t *testing.T) {
	client := newFakeClient()
	client.values["a"] = "1"
	session := newTestSession(client)

	out, err := session.ExportAll(context.Background(), "", "", adapter.ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "key,type,ttl,value\na,string,-1,1\n", out)
}

func TestCloseIsIdempotent(t *testing.T) {
	client := newFakeClient()
	session := newTestSession(client)
	require.NoError(t, session.Close())
	require.NoError(t, session.Close())
	assert.True(t, client.closed)
	assert.False(t, session.IsConnected())
}

func TestTTLSeconds(t *testing.T) {
	assert.Equal(t, int64(-1), ttlSeconds(-1))
	assert.Equal(t, int64(-2), ttlSeconds(-2))
	assert.Equal(t, int64(90), ttlSeconds(90*time.Second))
}

func TestParseRedisInfo(t *testing.T) {
	info := "# Server\r\nredis_version:7.2.4\r\nrun_id:abc\r\n\r\n# Memory\r\nused_memory:1024\r\n"
	got := parseRedisInfo(info)
	assert.Equal(t, "7.2.4", got["redis_version"])
	assert.Equal(t, "1024", got["used_memory"])
	assert.Len(t, got, 3)
}
