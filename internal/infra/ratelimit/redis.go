package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"workseald/internal/domain"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "workseald:rl:"

// INCR and PEXPIRE run in one script so two concurrent first requests
// cannot leave an unexpiring counter behind. The reply is {count, ttl_ms}.
const allowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`

type redisLimiter struct {
	client *redis.Client
	script *redis.Script
	now    func() time.Time
}

func NewRedisLimiter(addr, password string, db int, now func() time.Time) (domain.RateLimiter, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if now == nil {
		now = time.Now
	}
	return &redisLimiter{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		script: redis.NewScript(allowScript),
		now:    now,
	}, nil
}

func (r *redisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	windowMillis := window.Milliseconds()
	if windowMillis <= 0 {
		windowMillis = time.Second.Milliseconds()
	}

	reply, err := r.script.Run(ctx, r.client, []string{redisKeyPrefix + key}, windowMillis).Result()
	if err != nil {
		return domain.RateLimitDecision{}, err
	}
	count, ttlMillis, err := parseAllowReply(reply)
	if err != nil {
		return domain.RateLimitDecision{}, err
	}

	decision := domain.RateLimitDecision{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: max(limit-int(count), 0),
	}
	if ttlMillis > 0 {
		decision.ResetAt = r.now().Add(time.Duration(ttlMillis) * time.Millisecond)
	}
	return decision, nil
}

func parseAllowReply(reply any) (count, ttlMillis int64, err error) {
	values, ok := reply.([]any)
	if !ok || len(values) < 2 {
		return 0, 0, fmt.Errorf("unexpected rate limit script reply %T", reply)
	}
	count, ok = values[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected counter type %T in script reply", values[0])
	}
	ttlMillis, _ = values[1].(int64)
	return count, ttlMillis, nil
}
