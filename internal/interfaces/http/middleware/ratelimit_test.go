package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestLimiter(limit int, window time.Duration) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(limit, window)
	rl.now = clock.now
	return rl, clock
}

func TestRateLimiter(t *testing.T) {
	t.Run("allows burst up to limit then blocks", func(t *testing.T) {
		rl, _ := newTestLimiter(3, time.Minute)

		for i := 0; i < 3; i++ {
			ok, _ := rl.Allow("client")
			assert.True(t, ok, "request %d", i+1)
		}
		ok, remaining := rl.Allow("client")
		assert.False(t, ok)
		assert.Equal(t, 0, remaining)
	})

	t.Run("separate buckets per client", func(t *testing.T) {
		rl, _ := newTestLimiter(1, time.Minute)

		ok, _ := rl.Allow("a")
		assert.True(t, ok)
		ok, _ = rl.Allow("a")
		assert.False(t, ok)
		ok, _ = rl.Allow("b")
		assert.True(t, ok)
	})

	t.Run("refills across the window", func(t *testing.T) {
		rl, clock := newTestLimiter(2, time.Minute)

		rl.Allow("c")
		rl.Allow("c")
		ok, _ := rl.Allow("c")
		assert.False(t, ok)

		clock.advance(30 * time.Second)
		ok, _ = rl.Allow("c")
		assert.True(t, ok)
	})

	t.Run("reports remaining tokens", func(t *testing.T) {
		rl, _ := newTestLimiter(5, time.Minute)

		_, remaining := rl.Allow("d")
		assert.Equal(t, 4, remaining)
		_, remaining = rl.Allow("d")
		assert.Equal(t, 3, remaining)
	})

	t.Run("evicts idle clients", func(t *testing.T) {
		rl, clock := newTestLimiter(5, time.Minute)
		rl.Allow("idle")

		clock.advance(3 * time.Minute)
		rl.Allow("other")

		rl.mu.Lock()
		defer rl.mu.Unlock()
		assert.NotContains(t, rl.clients, "idle")
		assert.Contains(t, rl.clients, "other")
	})

	t.Run("concurrent access is safe", func(t *testing.T) {
		rl, _ := newTestLimiter(100, time.Minute)
		var wg sync.WaitGroup
		var allowed atomic.Int64

		for i := 0; i < 150; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, _ := rl.Allow("shared"); ok {
					allowed.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(100), allowed.Load())
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(2, time.Minute)
	router := gin.New()
	router.Use(RequestID(), RateLimit(rl))
	router.GET("/api/v1/shipping/quote", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/shipping/quote", nil)
		req.RemoteAddr = "203.0.113.9:4242"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do().Code)
	w := do()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = do()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_RATE_LIMITED")
}
