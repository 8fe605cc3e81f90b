package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func rateLimitedHandler(rl *RateLimiter, name string, perMinute int, calls *int) http.Handler {
	return rl.PerMinute(name, perMinute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.WriteHeader(http.StatusOK)
	}))
}

func requestFrom(remoteAddr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = remoteAddr
	return req
}

func TestRateLimiter_AllowsBurstThenReturns429(t *testing.T) {
	rl := NewRateLimiter(time.Minute)
	defer rl.Stop()

	calls := 0
	handler := rateLimitedHandler(rl, "login", 3, &calls)

	// バースト分（3回）は通る
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestFrom("192.0.2.1:1234"))
		if w.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom("192.0.2.1:5678"))

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if calls != 3 {
		t.Errorf("handler calls = %d, want 3", calls)
	}

	body := decodeEnvelope(t, w)
	if body["errorCode"] != "RATE_LIMIT_EXCEEDED" {
		t.Errorf("errorCode = %v, want RATE_LIMIT_EXCEEDED", body["errorCode"])
	}

	// 3 req/min なら1トークンの補充に20秒
	retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
	if err != nil {
		t.Fatalf("Retry-After is not a number: %v", err)
	}
	if retryAfter != 20 {
		t.Errorf("Retry-After = %d, want 20", retryAfter)
	}
}

func TestRateLimiter_IndependentPerIP(t *testing.T) {
	rl := NewRateLimiter(time.Minute)
	defer rl.Stop()

	calls := 0
	handler := rateLimitedHandler(rl, "contact", 1, &calls)

	handler.ServeHTTP(httptest.NewRecorder(), requestFrom("192.0.2.1:1"))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom("192.0.2.2:1"))
	if w.Code != http.StatusOK {
		t.Errorf("other IP: status = %d, want %d", w.Code, http.StatusOK)
	}
	if rl.LimiterCount() != 2 {
		t.Errorf("LimiterCount() = %d, want 2", rl.LimiterCount())
	}
}

func TestRateLimiter_IndependentPerName(t *testing.T) {
	rl := NewRateLimiter(time.Minute)
	defer rl.Stop()

	calls := 0
	login := rateLimitedHandler(rl, "login", 1, &calls)
	contact := rateLimitedHandler(rl, "contact", 1, &calls)

	login.ServeHTTP(httptest.NewRecorder(), requestFrom("192.0.2.1:1"))

	w := httptest.NewRecorder()
	contact.ServeHTTP(w, requestFrom("192.0.2.1:1"))
	if w.Code != http.StatusOK {
		t.Errorf("contact after login: status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRateLimiter_ZeroDisables(t *testing.T) {
	rl := NewRateLimiter(time.Minute)
	defer rl.Stop()

	calls := 0
	handler := rateLimitedHandler(rl, "login", 0, &calls)

	for i := 0; i < 50; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), requestFrom("192.0.2.1:1"))
	}
	if calls != 50 {
		t.Errorf("handler calls = %d, want 50", calls)
	}
	if rl.LimiterCount() != 0 {
		t.Errorf("LimiterCount() = %d, want 0", rl.LimiterCount())
	}
}

func TestRateLimiter_CleanupRemovesStaleEntries(t *testing.T) {
	rl := NewRateLimiter(time.Minute)
	defer rl.Stop()

	calls := 0
	handler := rateLimitedHandler(rl, "login", 5, &calls)
	handler.ServeHTTP(httptest.NewRecorder(), requestFrom("192.0.2.1:1"))

	rl.cleanup(time.Now())
	if rl.LimiterCount() != 1 {
		t.Errorf("fresh entry removed: LimiterCount() = %d, want 1", rl.LimiterCount())
	}

	rl.cleanup(time.Now().Add(3 * time.Minute))
	if rl.LimiterCount() != 0 {
		t.Errorf("stale entry kept: LimiterCount() = %d, want 0", rl.LimiterCount())
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(0)
	rl.Stop()
	rl.Stop()
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remoteAddr string
		want       string
	}{
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"203.0.113.7", "203.0.113.7"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remoteAddr
		if got := clientIP(req); got != tt.want {
			t.Errorf("clientIP(%q) = %q, want %q", tt.remoteAddr, got, tt.want)
		}
	}
}
