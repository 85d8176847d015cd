package distributed

import (
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/taskflow/internal/testutil"
	errs "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/ratelimit"
)

func TestNewValidation(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	tests := []struct {
		name   string
		config Config
	}{
		{"missing redis", Config{Key: "k", Limit: 10}},
		{"missing key", Config{Redis: client, Limit: 10}},
		{"zero limit", Config{Redis: client, Key: "k"}},
		{"negative limit", Config{Redis: client, Key: "k", Limit: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			testutil.AssertError(t, err)
			if !errors.Is(err, errs.ErrInvalidConfiguration) {
				t.Errorf("want ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}

func TestNewDefaults(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	lim, err := New(Config{Redis: client, Key: "taskflow:test", Limit: 10})
	testutil.AssertNoError(t, err)

	rw := lim.(*redisWindow)
	testutil.AssertEqual(t, rw.config.Window, time.Second)
	testutil.AssertEqual(t, rw.config.RedisTimeout, 500*time.Millisecond)
	testutil.AssertEqual(t, rw.config.RetryInterval, 100*time.Millisecond)
}

// Redis being unreachable must route admission to the fallback limiter.
func TestFallbackWhenRedisUnavailable(t *testing.T) {
	// Port 1 is never a live Redis.
	client := redis.NewClient(&redis.Options{
		Addr:        "localhost:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	lim, err := New(Config{
		Redis:        client,
		Key:          "taskflow:test",
		Limit:        10,
		RedisTimeout: 100 * time.Millisecond,
		Fallback:     ratelimit.NewLocalWindow(1, time.Hour),
	})
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, lim.Allow(), true)
	testutil.AssertEqual(t, lim.Allow(), false)
}

func TestDeniedWithoutFallback(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "localhost:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	lim, err := New(Config{
		Redis:        client,
		Key:          "taskflow:test",
		Limit:        10,
		RedisTimeout: 100 * time.Millisecond,
	})
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, lim.Allow(), false)
}
