// Package distributed provides a Redis-backed submission throttle that
// coordinates admission rate across application instances. It throttles
// how fast tasks enter a dispatcher; task scheduling itself always stays
// inside one process.
package distributed

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	errs "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/ratelimit"
)

// Config holds configuration for the Redis fixed-window throttle.
type Config struct {
	// Redis client used for coordination.
	Redis redis.UniversalClient

	// Key is the Redis key prefix for this throttle.
	Key string

	// Limit is the maximum number of admissions per window across all
	// instances.
	Limit int

	// Window is the fixed window duration. Defaults to one second.
	Window time.Duration

	// RedisTimeout bounds individual Redis operations. Defaults to 500ms.
	RedisTimeout time.Duration

	// Fallback is consulted when Redis is unreachable. If nil, admissions
	// are denied while Redis is down.
	Fallback ratelimit.Limiter

	// RetryInterval controls how often Wait re-polls a full window.
	// Defaults to 100ms.
	RetryInterval time.Duration
}

type redisWindow struct {
	config Config
	script *redis.Script
}

// New creates a Redis fixed-window throttle implementing
// ratelimit.Limiter.
func New(config Config) (ratelimit.Limiter, error) {
	if config.Redis == nil {
		return nil, errs.NewValidationError("distributed", "Redis", nil, "client is required")
	}
	if config.Key == "" {
		return nil, errs.NewValidationError("distributed", "Key", config.Key, "must not be empty")
	}
	if config.Limit <= 0 {
		return nil, errs.NewValidationError("distributed", "Limit", config.Limit, "must be positive").
			WithHint("set Limit to the allowed admissions per window")
	}
	if config.Window <= 0 {
		config.Window = time.Second
	}
	if config.RedisTimeout <= 0 {
		config.RedisTimeout = 500 * time.Millisecond
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = 100 * time.Millisecond
	}

	return &redisWindow{
		config: config,
		script: redis.NewScript(luaCheckAndIncrement),
	}, nil
}

// windowKey returns the key for the window containing t.
func (rw *redisWindow) windowKey(t time.Time) string {
	start := t.UnixNano() / int64(rw.config.Window)
	return fmt.Sprintf("%s:window:%d", rw.config.Key, start)
}

func (rw *redisWindow) Allow() bool {
	ctx, cancel := context.WithTimeout(context.Background(), rw.config.RedisTimeout)
	defer cancel()

	ttl := int(rw.config.Window/time.Second) + 1

	result, err := rw.script.Run(ctx, rw.config.Redis,
		[]string{rw.windowKey(time.Now())},
		rw.config.Limit,
		ttl,
	).Result()
	if err != nil {
		if rw.config.Fallback != nil {
			return rw.config.Fallback.Allow()
		}
		return false
	}

	allowed, ok := result.(int64)
	return ok && allowed == 1
}

func (rw *redisWindow) Wait(ctx context.Context) error {
	ticker := time.NewTicker(rw.config.RetryInterval)
	defer ticker.Stop()

	for {
		if rw.Allow() {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// luaCheckAndIncrement atomically checks the window counter against the
// limit and increments it when admission is allowed.
//
// KEYS[1]: current window key
// ARGV[1]: limit (max admissions per window)
// ARGV[2]: window TTL in seconds
const luaCheckAndIncrement = `
local window_key = KEYS[1]
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])

local current = tonumber(redis.call('GET', window_key) or "0")

if current + 1 <= limit then
    local new_count = redis.call('INCRBY', window_key, 1)
    if new_count == 1 then
        redis.call('EXPIRE', window_key, ttl)
    end
    return 1
else
    return 0
end
`
