package repository

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

const watermarkKey = "relaybot:watermarks"

// saveMaxScript stores ARGV[2] under field ARGV[1] only if it is greater than
// the current value, and returns the value in effect.
var saveMaxScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], ARGV[1])
if (not cur) or tonumber(ARGV[2]) > tonumber(cur) then
  redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
  return ARGV[2]
end
return cur
`)

// RedisStorage keeps watermarks in a single Redis hash.
type RedisStorage struct {
	rdb redis.UniversalClient
	key string
}

func NewRedisStorage(rdb redis.UniversalClient) Repository {
	return &RedisStorage{rdb: rdb, key: watermarkKey}
}

func (s *RedisStorage) GetWatermark(ctx context.Context, link string) (int64, bool, error) {
	ts, err := s.rdb.HGet(ctx, s.key, link).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, oops.With("link", link, "context", "failed to read watermark").Wrap(err)
	}
	return ts, true, nil
}

func (s *RedisStorage) SaveWatermark(ctx context.Context, link string, ts int64) (int64, error) {
	res, err := saveMaxScript.Run(ctx, s.rdb, []string{s.key}, link, strconv.FormatInt(ts, 10)).Text()
	if err != nil {
		return 0, oops.With("link", link, "context", "failed to save watermark").Wrap(err)
	}
	stored, err := strconv.ParseInt(res, 10, 64)
	if err != nil {
		return 0, oops.With("link", link, "value", res).Wrap(err)
	}
	return stored, nil
}
