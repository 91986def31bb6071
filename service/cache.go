package service

import (
	"blurrer/config"
	"blurrer/converter"
	"context"
	"errors"
	"github.com/redis/go-redis/v9"
	"strconv"
	"time"
)

// ResultCache stores encoded results keyed by input digest and job parameters.
type ResultCache interface {
	Get(ctx context.Context, key string) (*converter.Result, bool, error)
	Set(ctx context.Context, key string, res *converter.Result) error
}

func CacheKey(digest string, job converter.Job) string {
	return "blur:" + digest + ":" + job.Fingerprint()
}

func NewDragonflyClient(cfg config.Dragonfly) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*converter.Result, bool, error) {
	fields, err := c.client.HGetAll(ctx, key).Result()
	if errors.Is(err, redis.Nil) || (err == nil && len(fields) == 0) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	res := &converter.Result{Body: []byte(fields["body"])}
	res.Width, _ = strconv.Atoi(fields["width"])
	res.Height, _ = strconv.Atoi(fields["height"])
	res.Channels, _ = strconv.Atoi(fields["channels"])

	return res, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, res *converter.Result) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"body", res.Body,
			"width", res.Width,
			"height", res.Height,
			"channels", res.Channels,
		)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	return err
}
