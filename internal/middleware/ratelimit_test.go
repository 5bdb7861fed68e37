package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/hitoshi/threads/internal/model"
)

// newLimitedHandler はレート制限付きの200応答ハンドラーを返す。
func newLimitedHandler(t *testing.T, cfg RateLimiterConfig) (*RateLimiter, http.Handler) {
	t.Helper()
	rl := NewRateLimiter(cfg)
	t.Cleanup(rl.Stop)

	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	return rl, handler
}

// requestFrom は指定IPからのリクエストを発行してレスポンスを返す。
func requestFrom(handler http.Handler, remoteAddr string) *http.Response {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/google", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w.Result()
}

func TestRateLimitMiddleware_AllowsRequestsWithinLimit(t *testing.T) {
	_, handler := newLimitedHandler(t, RateLimiterConfig{
		Rate:            2,
		Burst:           5,
		CleanupInterval: 1 * time.Minute,
	})

	// バースト内の5リクエストは全て通る
	for i := 0; i < 5; i++ {
		resp := requestFrom(handler, "203.0.113.1:5000")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, resp.StatusCode, http.StatusOK)
		}
	}
}

func TestRateLimitMiddleware_Returns429WhenLimitExceeded(t *testing.T) {
	_, handler := newLimitedHandler(t, RateLimiterConfig{
		Rate:            1,
		Burst:           2,
		CleanupInterval: 1 * time.Minute,
	})

	for i := 0; i < 2; i++ {
		if resp := requestFrom(handler, "203.0.113.2:5000"); resp.StatusCode != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, resp.StatusCode, http.StatusOK)
		}
	}

	// 3回目はレート制限に引っかかる
	if resp := requestFrom(handler, "203.0.113.2:5000"); resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTooManyRequests)
	}
}

func TestRateLimitMiddleware_Returns429WithRetryAfterHeader(t *testing.T) {
	_, handler := newLimitedHandler(t, RateLimiterConfig{
		Rate:            0.5, // 2秒に1回
		Burst:           1,
		CleanupInterval: 1 * time.Minute,
	})

	requestFrom(handler, "203.0.113.3:5000")
	resp := requestFrom(handler, "203.0.113.3:5000")

	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTooManyRequests)
	}

	retryAfter := resp.Header.Get("Retry-After")
	retrySeconds, err := strconv.Atoi(retryAfter)
	if err != nil {
		t.Fatalf("Retry-After header should be a number, got %q", retryAfter)
	}
	if retrySeconds != 2 {
		t.Errorf("Retry-After = %d, want 2", retrySeconds)
	}
}

func TestRateLimitMiddleware_IsolatesClientIPs(t *testing.T) {
	rl, handler := newLimitedHandler(t, RateLimiterConfig{
		Rate:            1,
		Burst:           1,
		CleanupInterval: 1 * time.Minute,
	})

	if resp := requestFrom(handler, "198.51.100.1:1111"); resp.StatusCode != http.StatusOK {
		t.Errorf("first client: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if resp := requestFrom(handler, "198.51.100.1:2222"); resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("same IP with another port: status = %d, want %d", resp.StatusCode, http.StatusTooManyRequests)
	}
	if resp := requestFrom(handler, "198.51.100.2:1111"); resp.StatusCode != http.StatusOK {
		t.Errorf("second client: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	if count := rl.LimiterCount(); count != 2 {
		t.Errorf("LimiterCount = %d, want 2", count)
	}
}

func TestRateLimitMiddleware_429ResponseIsJSON(t *testing.T) {
	_, handler := newLimitedHandler(t, RateLimiterConfig{
		Rate:            1,
		Burst:           1,
		CleanupInterval: 1 * time.Minute,
	})

	requestFrom(handler, "203.0.113.4:5000")
	resp := requestFrom(handler, "203.0.113.4:5000")

	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTooManyRequests)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Code != model.ErrCodeRateLimited {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeRateLimited)
	}
	if body.Category != "system" {
		t.Errorf("category = %q, want %q", body.Category, "system")
	}
}

func TestRateLimiter_CleanupRemovesExpiredEntries(t *testing.T) {
	rl, handler := newLimitedHandler(t, RateLimiterConfig{
		Rate:            2,
		Burst:           5,
		CleanupInterval: 50 * time.Millisecond,
	})

	requestFrom(handler, "203.0.113.5:5000")
	if rl.LimiterCount() == 0 {
		t.Fatal("expected at least one limiter entry")
	}

	// TTLはCleanupIntervalの2倍（100ms）
	time.Sleep(300 * time.Millisecond)

	if count := rl.LimiterCount(); count != 0 {
		t.Errorf("expected 0 limiter entries after cleanup, got %d", count)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remoteAddr string
		want       string
	}{
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"192.0.2.9", "192.0.2.9"},
	}

	for _, tt := range tests {
		t.Run(tt.remoteAddr, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultRateLimiterConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig(30)

	if cfg.Rate != 0.5 { // 30/60
		t.Errorf("Rate = %f, want 0.5", cfg.Rate)
	}
	if cfg.Burst != 30 {
		t.Errorf("Burst = %d, want 30", cfg.Burst)
	}
	if cfg.CleanupInterval <= 0 {
		t.Error("CleanupInterval should be positive")
	}

	if fallback := DefaultRateLimiterConfig(0); fallback.Burst != 30 {
		t.Errorf("non-positive perMinute: Burst = %d, want 30", fallback.Burst)
	}
}
