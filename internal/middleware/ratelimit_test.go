package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLimiterPerKey(t *testing.T) {
	l := NewLocalLimiter(2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "u1")
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "u2")
	assert.True(t, ok)
}

func TestRateLimitMiddleware(t *testing.T) {
	app := newApp()
	app.Use(RateLimit(NewLocalLimiter(1, time.Minute)))
	app.Get("/limited", func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest("GET", "/limited?token=good", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/limited?token=good", nil))
	require.NoError(t, err)
	assert.Equal(t, 429, resp.StatusCode)
}
