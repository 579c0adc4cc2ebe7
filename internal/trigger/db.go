package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kode4food/taskmaster/pkg/api"
	"github.com/kode4food/taskmaster/pkg/log"
)

// DB polls a Redis key and fires when the configured condition holds for
// its contents. The "kind" option selects how the key is read: string,
// hash, list, set, zset, or keys (the key is a match pattern)
type DB struct {
	*Base
	poller
	client   redis.UniversalClient
	cond     *condition
	key      string
	keyKind  string
	interval time.Duration
}

const (
	RedisString = "string"
	RedisHash   = "hash"
	RedisList   = "list"
	RedisSet    = "set"
	RedisZSet   = "zset"
	RedisKeys   = "keys"
)

var ErrUnknownRedisKind = errors.New("unknown redis key kind")

// NewDB creates a Redis polling trigger for the "key" option
func NewDB(
	name string, cfg api.Config, rc redis.UniversalClient,
) (*DB, error) {
	key := cfg.String("key", "")
	if key == "" {
		return nil, fmt.Errorf("%w: key", ErrMissingOption)
	}
	kind := cfg.String("kind", RedisString)
	switch kind {
	case RedisString, RedisHash, RedisList, RedisSet, RedisZSet, RedisKeys:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownRedisKind, kind)
	}
	cond, err := newCondition(cfg,
		ConditionAnyChange, ConditionRowCountChange, ConditionSpecificValue,
		ConditionPath,
	)
	if err != nil {
		return nil, err
	}
	res := &DB{
		Base:     NewBase(KindDB, name, cfg),
		client:   rc,
		cond:     cond,
		key:      key,
		keyKind:  kind,
		interval: cfg.Duration("interval", defaultPollInterval),
	}
	res.bind(res)
	return res, nil
}

// Activate starts polling. The first poll happens immediately
func (d *DB) Activate() error {
	if !d.markActive() {
		return nil
	}
	d.start(d.ID(), d.interval, d.poll)
	slog.Info("Trigger activated",
		log.TriggerID(d.ID()),
		slog.String("kind", d.Kind()),
		slog.String("key", d.key))
	return nil
}

// Deactivate stops polling and waits for an in-flight poll to return
func (d *DB) Deactivate() {
	if !d.markInactive() {
		return
	}
	d.stop()
	slog.Info("Trigger deactivated", log.TriggerID(d.ID()))
}

func (d *DB) poll(ctx context.Context) error {
	result, count, err := ReadRedis(ctx, d.client, d.keyKind, d.key)
	if err != nil {
		return err
	}
	obs, err := newObservation(result, count)
	if err != nil {
		return err
	}
	if !d.cond.check(obs) || !d.IsActive() {
		return nil
	}
	d.Fire(api.EventData{
		"key":       d.key,
		"kind":      d.keyKind,
		"result":    result,
		"row_count": count,
		"time":      time.Now().Unix(),
	})
	return nil
}

// ReadRedis reads key according to kind, returning the value and its
// element count. A missing key reads as nil with a count of zero
func ReadRedis(
	ctx context.Context, rc redis.UniversalClient, kind, key string,
) (any, int, error) {
	switch kind {
	case RedisString:
		v, err := rc.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil, 0, nil
		}
		if err != nil {
			return nil, 0, err
		}
		return v, 1, nil
	case RedisHash:
		v, err := rc.HGetAll(ctx, key).Result()
		return v, len(v), err
	case RedisList:
		v, err := rc.LRange(ctx, key, 0, -1).Result()
		return v, len(v), err
	case RedisSet:
		v, err := rc.SMembers(ctx, key).Result()
		slices.Sort(v)
		return v, len(v), err
	case RedisZSet:
		v, err := rc.ZRange(ctx, key, 0, -1).Result()
		return v, len(v), err
	case RedisKeys:
		v, err := rc.Keys(ctx, key).Result()
		slices.Sort(v)
		return v, len(v), err
	default:
		return nil, 0, fmt.Errorf("%w: %s", ErrUnknownRedisKind, kind)
	}
}
