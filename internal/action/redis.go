package action

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kode4food/taskmaster/internal/trigger"
	"github.com/kode4food/taskmaster/internal/workflow"
	"github.com/kode4food/taskmaster/pkg/api"
)

// Redis runs a single Redis command against `key`
type Redis struct {
	client    redis.UniversalClient
	value     any
	key       string
	operation string
	kind      string
	input     input
	ttl       time.Duration
}

const (
	RedisGet   = "get"
	RedisSet   = "set"
	RedisRPush = "rpush"
	RedisDel   = "del"
)

var _ workflow.Executor = (*Redis)(nil)

// NewRedis creates a Redis action. Writes take their value from the context
// key named by `input`, or from the static `value` option
func NewRedis(rc redis.UniversalClient, cfg api.Config) (*Redis, error) {
	key, err := requireString(cfg, "key")
	if err != nil {
		return nil, err
	}
	res := &Redis{
		client:    rc,
		key:       key,
		operation: strings.ToLower(cfg.String("operation", RedisGet)),
		kind:      cfg.String("kind", trigger.RedisString),
		value:     cfg["value"],
		input:     inputFrom(cfg),
		ttl:       cfg.Duration("ttl", 0),
	}
	switch res.operation {
	case RedisGet, RedisDel:
		return res, nil
	case RedisSet, RedisRPush:
		if !res.input.isSet() && !cfg.Has("value") {
			return nil, fmt.Errorf("%w: %s or value", ErrMissingOption, KeyInput)
		}
		return res, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, res.operation)
	}
}

func (r *Redis) Execute(ctx context.Context, c *workflow.Context) (any, error) {
	switch r.operation {
	case RedisGet:
		res, _, err := trigger.ReadRedis(ctx, r.client, r.kind, r.key)
		return res, err
	case RedisDel:
		return r.client.Del(ctx, r.key).Result()
	}

	v, err := r.writeValue(c)
	if err != nil {
		return nil, err
	}
	if r.operation == RedisSet {
		enc, err := encodeRedis(v)
		if err != nil {
			return nil, err
		}
		return r.client.Set(ctx, r.key, enc, r.ttl).Result()
	}

	if v, err = normalize(v); err != nil {
		return nil, err
	}
	items, ok := v.([]any)
	if !ok {
		items = []any{v}
	}
	args := make([]any, len(items))
	for i, item := range items {
		if args[i], err = encodeRedis(item); err != nil {
			return nil, err
		}
	}
	return r.client.RPush(ctx, r.key, args...).Result()
}

func (r *Redis) writeValue(c *workflow.Context) (any, error) {
	if !r.input.isSet() {
		return r.value, nil
	}
	return r.input.get(c)
}

func encodeRedis(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}
