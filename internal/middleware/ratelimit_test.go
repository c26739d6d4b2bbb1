package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRateLimiter_EnvironmentBypass(t *testing.T) {
	t.Parallel()

	for _, env := range []string{"test", "development", "stress", ""} {
		l := NewRateLimiter(nil, env)
		for i := 0; i < 3; i++ {
			allowed, err := l.Check(context.Background(), "comment", "user:1", 1, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed, env)
		}
	}
}

func TestRateLimiter_NilRedisErrors(t *testing.T) {
	t.Parallel()

	l := NewRateLimiter(nil, "production")
	_, err := l.Check(context.Background(), "comment", "user:1", 1, time.Minute)
	assert.Error(t, err)
}

func TestRateLimiter_Check(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	l := NewEnforcingRateLimiter(rdb)
	ctx := context.Background()

	allowed, err := l.Check(ctx, "comment", "user:1", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = l.Check(ctx, "comment", "user:1", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = l.Check(ctx, "comment", "user:2", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed, "quotas are per identity")

	mr.FastForward(61 * time.Second)
	allowed, err = l.Check(ctx, "comment", "user:1", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed, "window expired")
}

func TestRateLimiter_Handler(t *testing.T) {
	_, rdb := newMiniRedis(t)
	l := NewEnforcingRateLimiter(rdb)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", uint(1))
		return c.Next()
	})
	app.Post("/ok", l.Handler("create_comment", 1, time.Minute, FailOpen), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})
	app.Post("/bad", l.Handler("bad_comment", 1, time.Minute, FailOpen), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusBadRequest)
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	// Failed requests are refunded, so the quota never runs out.
	for i := 0; i < 3; i++ {
		resp, err = app.Test(httptest.NewRequest("POST", "/bad", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	}
}

func TestRateLimiter_FailClosed(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	l := NewEnforcingRateLimiter(rdb)
	mr.Close()

	app := fiber.New()
	app.Post("/closed", l.Handler("x", 1, time.Minute, FailClosed), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Post("/open", l.Handler("x", 1, time.Minute, FailOpen), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/closed", nil), 5000)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/open", nil), 5000)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
