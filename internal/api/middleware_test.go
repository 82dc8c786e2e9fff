package api

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FocuswithJustin/Linegra/internal/config"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAuthMiddleware(t *testing.T) {
	const key = "0123456789abcdef0123"
	h := AuthMiddleware(key, okHandler)

	tests := []struct {
		name   string
		target string
		header string
		status int
	}{
		{"public root", "/", "", http.StatusOK},
		{"public health", "/health", "", http.StatusOK},
		{"missing key", "/trees", "", http.StatusUnauthorized},
		{"wrong key", "/trees", "nope", http.StatusUnauthorized},
		{"valid key", "/trees", key, http.StatusOK},
		{"websocket query key", "/ws?api_key=" + key, "", http.StatusOK},
		{"query key elsewhere", "/trees?api_key=" + key, "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set(APIKeyHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestAuthDisabled(t *testing.T) {
	rec := httptest.NewRecorder()
	AuthMiddleware("", okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/trees", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSMiddleware(t *testing.T) {
	t.Run("any origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/trees", nil)
		req.Header.Set("Origin", "https://example.org")
		rec := httptest.NewRecorder()
		CORSMiddleware(nil, okHandler).ServeHTTP(rec, req)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	allowed := []string{"https://app.example.org"}

	t.Run("listed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/trees", nil)
		req.Header.Set("Origin", "https://app.example.org")
		rec := httptest.NewRecorder()
		CORSMiddleware(allowed, okHandler).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://app.example.org", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("unlisted preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/trees", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		CORSMiddleware(allowed, okHandler).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unlisted request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/trees", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		CORSMiddleware(allowed, okHandler).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'",
		rec.Header().Get("Content-Security-Policy"))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerMinute: 60, BurstSize: 2})
	defer rl.Stop()

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerMinute: 60, BurstSize: 1})
	defer rl.Stop()
	h := rl.Middleware(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/trees", nil)
	req.RemoteAddr = "192.0.2.1:1234"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Positive(t, retry)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", decode(t, rec, nil).Error.Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "192.0.2.1:80", "192.0.2.1"},
		{"forwarded", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "192.0.2.1:80", "203.0.113.5"},
		{"bad forwarded", map[string]string{"X-Forwarded-For": "nonsense"}, "192.0.2.1:80", "192.0.2.1"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "192.0.2.1:80", "198.51.100.7"},
		{"garbage", nil, "garbage", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}

func TestHandlerChain(t *testing.T) {
	s := newTestServer(t, config.ServerConfig{APIKey: "0123456789abcdef", RateLimit: 600, RateBurst: 5})
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/trees", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Limit"))

	req := httptest.NewRequest(http.MethodGet, "/trees", nil)
	req.Header.Set(APIKeyHeader, "0123456789abcdef")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}
