package redis

import (
	"context"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
)

const previewLimit = 100

var entryColumns = []string{"key", "type", "ttl", "value"}

// Paginate lists keys matching the filter pattern (or the table name when
// no filter is given) with a preview of each value.
func (s *Session) Paginate(ctx context.Context, req adapter.PageRequest) (*adapter.Page, error) {
	req = req.Normalize()
	client, release, err := s.clientFor(req.Schema)
	if err != nil {
		return nil, err
	}
	defer release()

	pattern := keyPattern(req.Filter, req.Table)
	keys, err := scanKeys(ctx, client, pattern, maxScanKeys)
	if err != nil {
		return nil, mapError("paginate", "SCAN "+pattern, err)
	}
	if _, desc := req.Order(); desc {
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
	}

	total := int64(len(keys))
	start := req.Offset()
	if start > len(keys) {
		start = len(keys)
	}
	end := start + req.PageSize
	if end > len(keys) {
		end = len(keys)
	}

	rows, err := fetchEntries(ctx, client, keys[start:end])
	if err != nil {
		return nil, err
	}
	return adapter.NewPage(req, entryColumns, rows, total), nil
}

// ExportAll renders every key matching table (a pattern, "*" when empty)
// with its value.
func (s *Session) ExportAll(ctx context.Context, schema, table string, format adapter.ExportFormat) (string, error) {
	if err := format.Validate(); err != nil {
		return "", err
	}
	client, release, err := s.clientFor(schema)
	if err != nil {
		return "", err
	}
	defer release()

	pattern := keyPattern("", table)
	keys, err := scanKeys(ctx, client, pattern, maxScanKeys)
	if err != nil {
		return "", mapError("export", "SCAN "+pattern, err)
	}
	rows, err := fetchEntries(ctx, client, keys)
	if err != nil {
		return "", err
	}
	return adapter.EncodeRows(entryColumns, rows, format)
}

func keyPattern(filter, table string) string {
	switch {
	case filter != "":
		return filter
	case table != "":
		return table
	default:
		return "*"
	}
}

// fetchEntries reads type, TTL and a value preview for each key. Keys that
// vanish between SCAN and the read are skipped.
func fetchEntries(ctx context.Context, client commandClient, keys []string) ([]map[string]interface{}, error) {
	rows := make([]map[string]interface{}, 0, len(keys))
	for _, key := range keys {
		keyType, err := client.Type(ctx, key).Result()
		if err != nil {
			if isConnectionLost(err) {
				return nil, mapError("read key", "TYPE "+key, err)
			}
			continue
		}
		if keyType == "none" {
			continue
		}

		ttl, err := client.TTL(ctx, key).Result()
		if err != nil && isConnectionLost(err) {
			return nil, mapError("read key", "TTL "+key, err)
		}

		value, err := preview(ctx, client, key, keyType)
		if err != nil && isConnectionLost(err) {
			return nil, mapError("read key", key, err)
		}

		rows = append(rows, map[string]interface{}{
			"key":   key,
			"type":  keyType,
			"ttl":   ttlSeconds(ttl),
			"value": value,
		})
	}
	return rows, nil
}

func preview(ctx context.Context, client commandClient, key, keyType string) (interface{}, error) {
	switch keyType {
	case "string":
		return client.Get(ctx, key).Result()
	case "list":
		return client.LRange(ctx, key, 0, previewLimit-1).Result()
	case "set":
		members, _, err := client.SScan(ctx, key, 0, "*", previewLimit).Result()
		return members, err
	case "zset":
		zs, err := client.ZRangeWithScores(ctx, key, 0, previewLimit-1).Result()
		if err != nil {
			return nil, err
		}
		return scoredMembers(zs), nil
	case "hash":
		return client.HGetAll(ctx, key).Result()
	case "stream":
		msgs, err := client.XRangeN(ctx, key, "-", "+", previewLimit).Result()
		if err != nil {
			return nil, err
		}
		out := make([]map[string]interface{}, len(msgs))
		for i, m := range msgs {
			out[i] = map[string]interface{}{"id": m.ID, "values": m.Values}
		}
		return out, nil
	default:
		return nil, nil
	}
}
