package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/did4510/Nexon/internal/config"
)

// ErrRedisDisabled is returned by Ping when REDIS_ADDR was empty.
var ErrRedisDisabled = errors.New("redis not configured")

// Redis wraps the go-redis client. Client is nil when Redis is disabled.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects when cfg.Addr is set. An unreachable server is logged, not
// fatal: the escalation channel and the tick lease degrade to no-ops.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if cfg.Addr == "" {
		logger.Info("REDIS_ADDR not provided; redis features disabled")
		return &Redis{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr))
	}
	return &Redis{Client: client}
}

func (r *Redis) Enabled() bool {
	return r != nil && r.Client != nil
}

func (r *Redis) Close() {
	if r.Enabled() {
		_ = r.Client.Close()
	}
}

func (r *Redis) Ping(ctx context.Context) error {
	if !r.Enabled() {
		return ErrRedisDisabled
	}
	return r.Client.Ping(ctx).Err()
}

// RedisLease is a best-effort mutual exclusion for periodic jobs across
// replicas. A lease is never released early; it simply expires after its TTL.
type RedisLease struct {
	client redis.Cmdable
	owner  string
}

// NewRedisLease returns a lease tagged with a random owner id.
func NewRedisLease(client redis.Cmdable) *RedisLease {
	return &RedisLease{client: client, owner: uuid.NewString()}
}

// Owner identifies this process in lease values.
func (l *RedisLease) Owner() string {
	return l.owner
}

// Acquire reports whether this process now holds key for ttl.
func (l *RedisLease) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, key, l.owner, ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}
