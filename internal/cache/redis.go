package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JustinTDCT/Marquee/internal/logging"
	"github.com/JustinTDCT/Marquee/internal/metrics"
)

const defaultPrefix = "marquee:cache:"

// Redis shares cached responses between instances.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: defaultPrefix, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.For("cache").WithError(err).WithField("key", key).Warn("redis get failed")
		}
		metrics.CacheLookups.WithLabelValues("redis", "miss").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues("redis", "hit").Inc()
	return val, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) {
	if err := r.client.Set(ctx, r.prefix+key, value, r.ttl).Err(); err != nil {
		logging.For("cache").WithError(err).WithField("key", key).Warn("redis set failed")
	}
}

func (r *Redis) Delete(ctx context.Context, key string) {
	r.client.Del(ctx, r.prefix+key)
}

// Len counts keys under the prefix. It scans, so keep it off hot paths.
func (r *Redis) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	n := 0
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		n++
	}
	return n
}

// Layered reads memory first and falls back to the shared tier.
type Layered struct {
	local  *Memory
	shared Cache
}

func NewLayered(local *Memory, shared Cache) *Layered {
	return &Layered{local: local, shared: shared}
}

func (l *Layered) Get(ctx context.Context, key string) ([]byte, bool) {
	if v, ok := l.local.Get(ctx, key); ok {
		return v, true
	}
	v, ok := l.shared.Get(ctx, key)
	if ok {
		l.local.Set(ctx, key, v)
	}
	return v, ok
}

func (l *Layered) Set(ctx context.Context, key string, value []byte) {
	l.local.Set(ctx, key, value)
	l.shared.Set(ctx, key, value)
}

func (l *Layered) Delete(ctx context.Context, key string) {
	l.local.Delete(ctx, key)
	l.shared.Delete(ctx, key)
}

func (l *Layered) Len() int {
	return l.local.Len()
}

// Stats counts both tiers. The shared count scans redis.
func (l *Layered) Stats() Stats {
	return Stats{Memory: l.local.Len(), Shared: l.shared.Len()}
}
