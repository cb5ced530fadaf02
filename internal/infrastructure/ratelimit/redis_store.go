package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Modoufinance/healthyimc-sub001/internal/config"
	domainService "github.com/Modoufinance/healthyimc-sub001/internal/domain/service"
)

// NewRedisClient opens and pings a redis connection.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// redisChallengeRegistry records consumed challenge tokens. SET NX gives the
// compare-and-swap the single-use guarantee needs under parallel attempts.
type redisChallengeRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisChallengeRegistry creates the registry. ttl only needs to outlive
// the provider-side validity of a token (minutes).
func NewRedisChallengeRegistry(client *redis.Client, ttl time.Duration) domainService.ChallengeRegistry {
	return &redisChallengeRegistry{client: client, ttl: ttl}
}

func (r *redisChallengeRegistry) MarkUsed(ctx context.Context, token string) (bool, error) {
	sum := sha256.Sum256([]byte(token))
	key := "challenge_used:" + hex.EncodeToString(sum[:])
	ok, err := r.client.SetNX(ctx, key, 1, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark challenge token used: %w", err)
	}
	return ok, nil
}

// redisAnonFailureBucket counts failures per source IP inside a rolling
// window, for attempts that name no known admin.
type redisAnonFailureBucket struct {
	client *redis.Client
	window time.Duration
}

func NewRedisAnonFailureBucket(client *redis.Client, window time.Duration) domainService.AnonFailureBucket {
	return &redisAnonFailureBucket{client: client, window: window}
}

func (b *redisAnonFailureBucket) key(ip string) string {
	return "login_fail_ip:" + ip
}

func (b *redisAnonFailureBucket) Incr(ctx context.Context, ip string) (int, error) {
	pipe := b.client.TxPipeline()
	incr := pipe.Incr(ctx, b.key(ip))
	pipe.Expire(ctx, b.key(ip), b.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment failure bucket: %w", err)
	}
	return int(incr.Val()), nil
}

func (b *redisAnonFailureBucket) Count(ctx context.Context, ip string) (int, error) {
	n, err := b.client.Get(ctx, b.key(ip)).Int()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read failure bucket: %w", err)
	}
	return n, nil
}

var (
	_ domainService.ChallengeRegistry = (*redisChallengeRegistry)(nil)
	_ domainService.AnonFailureBucket = (*redisAnonFailureBucket)(nil)
)
