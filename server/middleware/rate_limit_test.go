package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsBurstThenDenies(t *testing.T) {
	rl := NewRateLimiter(10, 5)

	for i := 0; i < 5; i++ {
		assert.True(t, rl.Allow("client-a"), "request %d within burst", i)
	}
	assert.False(t, rl.Allow("client-a"), "request past burst must be denied")
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(10, 1)

	assert.True(t, rl.Allow("client-a"))
	assert.False(t, rl.Allow("client-a"))
	assert.True(t, rl.Allow("client-b"))
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiter(10, 1)
	handler := rl.Middleware(func(c echo.Context) string { return "client-a" })(
		func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})

	run := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/generate", nil)
		rec := httptest.NewRecorder()
		require.NoError(t, handler(e.NewContext(req, rec)))
		return rec
	}

	assert.Equal(t, http.StatusOK, run().Code)

	rec := run()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "RATE_LIMIT_EXCEEDED")
}
