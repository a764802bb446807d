package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
)

type handler struct {
	minArgs int
	maxArgs int // -1 for variadic
	usage   string
	run     func(ctx context.Context, c commandClient, args []string) (interface{}, error)
}

var handlers = map[string]handler{
	"GET": {1, 1, "GET key", func(ctx context.Context, c commandClient, a []string) (interface{}, error) {
		return c.Get(ctx, a[0]).Result()
	}},
	"SET": {2, 4, "SET key value [EX seconds|PX milliseconds]", runSet},
	"DEL": {1, -1, "DEL key [key ...]", func(ctx context.Context, c commandClient, a []string) (interface{}, error) {
		return c.Del(ctx, a...).Result()
	}},
	"EXISTS": {1, -1, "EXISTS key [key ...]", func(ctx context.Context, c commandClient, a []string) (interface{}, error) {
		return c.Exists(ctx, a...).Result()
	}},
	"INCR": {1, 1, "INCR key", func(ctx context.Context, c commandClient, a []string) (interface{}, error) {
		return c.Incr(ctx, a[0]).Result()
	}},
	"DECR": {1, 1, "DECR key", func(ctx context.Context, c commandClient, a []string) (interface{}, error) {
		return c.Decr(ctx, a[0]).Result()
	}},
	"INCRBY": {2, 2, "INCRBY key increment", func(ctx context.Context, c commandClient, a []string) (interface{}, error) {
		n, err := parseInt("increment", a[1])
		if err != nil {
			return nil, err
		}
		return c.IncrBy(ctx, a[0], n).Result()
	}},
	"EXPIRE": {2, 2, "EXPIRE key seconds", func(ctx context.Context, c commandClient, a []string) (interface{}, error) {
		n, err := parseInt("seconds", a[1])
		if err != nil {
			return nil, err
		}
		return c.Expire(ctx, a[0], time.Duration(n)*time.Second).Result()
	}},
	"TTL": {1, 1, "TTL key", func(ctx context.Context, c commandClient, a []string) (interface{}, error) {
		ttl, err := c.TTL(ctx, a[0]).Result()
		if err != nil {
			return nil, err
		}
		return ttlSeconds(ttl), nil
	}},
	"TYPE": {1, 1, "TYPE key", func(ctx context.Context, c commandClient, a []string) (interface{}, error) {
		return c.Type(ctx, a[0]).Result()
	}},
	"KEYS": {1, 1, "KEYS pattern", func(ctx context.Context, c commandClient, a []string) (interface{}, error) {
		return scanKeys(ctx, c, a[0], maxScanKeys)
	}},
	"HGET": {2, 2, "HGET key field", func(ctx context.Context, c commandClient, a []string) (interface{}, error) {
		return c.HGet(ctx, a[0], a[1]).Result()
	}},
	"HSET": {3, -1, "HSET key field value [field value ...]", func(ctx context.Context, c commandClient, a []string) (interface{}, error) {
		if len(a[1:])%2 != 0 {
			return nil, fmt.Errorf("HSET requires field value pairs")
		}
		return c.HSet(ctx, a[0], toInterfaces(a[1:])...).Result()
	}},
	"HGETALL": {1, 1, "HGETALL key", func(ctx context.Context, c commandClient, a []string) (interface{}, error) {
		return c.HGetAll(ctx, a[0]).Result()
	}},
	"HDEL": {2, -1, "HDEL key field [field ...]", func(ctx context.Context, c commandClient, a []string) (interface{}, error) {
		return c.HDel(ctx, a[0], a[1:]...).Result()
	}},
	"LPUSH": {2, -1, "LPUSH key value [value ...]", func(ctx context.Context, c commandClient, a []string) (interface{}, error) {
		return c.LPush(ctx, a[0], toInterfaces(a[1:])...).Result()
	}},
	"RPUSH": {2, -1, "RPUSH key value [value ...]", func(ctx context.Context, c commandClient, a []string) (interface{}, error) {
		return c.RPush(ctx, a[0], toInterfaces(a[1:])...).Result()
	}},
	"LPOP": {1, 1, "LPOP key", func(ctx context.Context, c commandClient, a []string) (interface{}, error) {
		return c.LPop(ctx, a[0]).Result()
	}},
	"RPOP": {1, 1, "RPOP key", func(ctx context.Context, c commandClient, a []string) (interface{}, error) {
		return c.RPop(ctx, a[0]).Result()
	}},
	"LRANGE": {3, 3, "LRANGE key start stop", func(ctx context.Context, c commandClient, a []string) (interface{}, error) {
		start, stop, err := parseRange(a[1], a[2])
		if err != nil {
			return nil, err
		}
		return c.LRange(ctx, a[0], start, stop).Result()
	}},
	"LLEN": {1, 1, "LLEN key", func(ctx context.Context, c commandClient, a []string) (interface{}, error) {
		return c.LLen(ctx, a[0]).Result()
	}},
	"SADD": {2, -1, "SADD key member [member ...]", func(ctx context.Context, c commandClient, a []string) (interface{}, error) {
		return c.SAdd(ctx, a[0], toInterfaces(a[1:])...).Result()
	}},
	"SREM": {2, -1, "SREM key member [member ...]", func(ctx context.Context, c commandClient, a []string) (interface{}, error) {
		return c.SRem(ctx, a[0], toInterfaces(a[1:])...).Result()
	}},
	"SMEMBERS": {1, 1, "SMEMBERS key", func(ctx context.Context, c commandClient, a []string) (interface{}, error) {
		return c.SMembers(ctx, a[0]).Result()
	}},
	"ZADD":   {3, -1, "ZADD key score member [score member ...]", runZAdd},
	"ZRANGE": {3, 4, "ZRANGE key start stop [WITHSCORES]", runZRange},
	"PING": {0, 1, "PING [message]", func(ctx context.Context, c commandClient, a []string) (interface{}, error) {
		if len(a) == 1 {
			return c.Echo(ctx, a[0]).Result()
		}
		return c.Ping(ctx).Result()
	}},
	"DBSIZE": {0, 0, "DBSIZE", func(ctx context.Context, c commandClient, a []string) (interface{}, error) {
		return c.DBSize(ctx).Result()
	}},
	"INFO": {0, -1, "INFO [section ...]", func(ctx context.Context, c commandClient, a []string) (interface{}, error) {
		info, err := c.Info(ctx, a...).Result()
		if err != nil {
			return nil, err
		}
		return parseRedisInfo(info), nil
	}},
}

// Execute runs a newline delimited batch of commands. Each command gets its
// own CommandResult; a failed or unknown command does not stop the batch.
// Only a lost connection aborts it.
func (s *Session) Execute(ctx context.Context, statement string, params []interface{}) (*adapter.Result, error) {
	lines := commandLines(statement)
	if len(lines) == 0 {
		return nil, adapter.NewValidationError("statement", "no commands to execute")
	}

	results := make([]adapter.CommandResult, 0, len(lines))
	for _, line := range lines {
		result, err := s.runCommand(ctx, line)
		if err != nil && isConnectionLost(err) {
			return nil, mapError("execute", line, err)
		}
		results = append(results, result)
	}

	return &adapter.Result{Data: results, RowCount: len(results)}, nil
}

func (s *Session) runCommand(ctx context.Context, line string) (adapter.CommandResult, error) {
	result := adapter.CommandResult{Command: line}

	tokens, err := tokenize(line)
	if err != nil {
		result.Error = err.Error()
		return result, nil
	}
	name := strings.ToUpper(tokens[0])
	args := tokens[1:]

	h, ok := handlers[name]
	if !ok {
		result.Error = fmt.Sprintf("unsupported command: %s", name)
		return result, nil
	}
	if len(args) < h.minArgs || (h.maxArgs >= 0 && len(args) > h.maxArgs) {
		result.Error = fmt.Sprintf("wrong number of arguments, usage: %s", h.usage)
		return result, nil
	}

	value, err := h.run(ctx, s.client, args)
	switch {
	case errors.Is(err, redis.Nil):
		result.Success = true
	case err != nil:
		result.Error = err.Error()
		return result, err
	default:
		result.Success = true
		result.Result = value
	}
	return result, nil
}

// commandLines splits a batch on newlines, dropping blank lines and lines
// starting with '#'.
func commandLines(statement string) []string {
	var lines []string
	for _, line := range strings.Split(statement, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// tokenize splits a command line on whitespace. Single or double quotes
// group words; backslash escapes the next character inside double quotes.
func tokenize(line string) ([]string, error) {
	var (
		tokens  []string
		current strings.Builder
		quote   rune
		inToken bool
		escaped bool
	)
	for _, r := range line {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case quote != 0:
			if r == '\\' && quote == '"' {
				escaped = true
			} else if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inToken = true
		case r == ' ' || r == '\t':
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}
		default:
			current.WriteRune(r)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote")
	}
	if inToken {
		tokens = append(tokens, current.String())
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	return tokens, nil
}

func runSet(ctx context.Context, c commandClient, a []string) (interface{}, error) {
	var expiration time.Duration
	switch len(a) {
	case 2:
	case 4:
		n, err := parseInt("expiration", a[3])
		if err != nil {
			return nil, err
		}
		switch strings.ToUpper(a[2]) {
		case "EX":
			expiration = time.Duration(n) * time.Second
		case "PX":
			expiration = time.Duration(n) * time.Millisecond
		default:
			return nil, fmt.Errorf("unsupported SET option %q", a[2])
		}
	default:
		return nil, fmt.Errorf("wrong number of arguments for SET")
	}
	return c.Set(ctx, a[0], a[1], expiration).Result()
}

func runZAdd(ctx context.Context, c commandClient, a []string) (interface{}, error) {
	pairs := a[1:]
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("ZADD requires score member pairs")
	}
	members := make([]redis.Z, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		score, err := strconv.ParseFloat(pairs[i], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid score %q", pairs[i])
		}
		members = append(members, redis.Z{Score: score, Member: pairs[i+1]})
	}
	return c.ZAdd(ctx, a[0], members...).Result()
}

func runZRange(ctx context.Context, c commandClient, a []string) (interface{}, error) {
	start, stop, err := parseRange(a[1], a[2])
	if err != nil {
		return nil, err
	}
	if len(a) == 4 {
		if !strings.EqualFold(a[3], "WITHSCORES") {
			return nil, fmt.Errorf("unsupported ZRANGE option %q", a[3])
		}
		zs, err := c.ZRangeWithScores(ctx, a[0], start, stop).Result()
		if err != nil {
			return nil, err
		}
		return scoredMembers(zs), nil
	}
	return c.ZRange(ctx, a[0], start, stop).Result()
}

func scoredMembers(zs []redis.Z) []map[string]interface{} {
	out := make([]map[string]interface{}, len(zs))
	for i, z := range zs {
		out[i] = map[string]interface{}{"member": z.Member, "score": z.Score}
	}
	return out
}

// ttlSeconds keeps the -1 (no expiry) and -2 (missing key) replies.
func ttlSeconds(ttl time.Duration) int64 {
	if ttl < 0 {
		return int64(ttl)
	}
	return int64(ttl / time.Second)
}

func parseInt(name, value string) (int64, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, value)
	}
	return n, nil
}

func parseRange(start, stop string) (int64, int64, error) {
	a, err := parseInt("start", start)
	if err != nil {
		return 0, 0, err
	}
	b, err := parseInt("stop", stop)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// parseRedisInfo parses the INFO reply into a map
func parseRedisInfo(info string) map[string]string {
	result := make(map[string]string)
	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) == 2 {
			result[parts[0]] = parts[1]
		}
	}
	return result
}
