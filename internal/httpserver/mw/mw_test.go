package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrSnakeDoc/bookmarks/internal/logger"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		origins     []string
		method      string
		origin      string
		status      int
		allowOrigin string
	}{
		{name: "passthrough", origins: nil, method: http.MethodPost, origin: "https://a.test", status: http.StatusOK},
		{name: "allowed origin", origins: []string{"https://a.test"}, method: http.MethodPost, origin: "https://a.test", status: http.StatusOK, allowOrigin: "https://a.test"},
		{name: "other origin", origins: []string{"https://a.test"}, method: http.MethodPost, origin: "https://b.test", status: http.StatusOK},
		{name: "wildcard", origins: []string{"*"}, method: http.MethodPost, origin: "https://b.test", status: http.StatusOK, allowOrigin: "https://b.test"},
		{name: "preflight", origins: []string{"*"}, method: http.MethodOptions, origin: "https://b.test", status: http.StatusNoContent, allowOrigin: "https://b.test"},
		{name: "no origin header", origins: []string{"*"}, method: http.MethodPost, status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/mutations/createBookmark", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()

			CORS(tt.origins)(okHandler).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.allowOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestEnforceHost(t *testing.T) {
	h := EnforceHost([]string{"bookmarks.example.com", "*.internal.test"}, logger.Nop())(okHandler)

	for host, want := range map[string]int{
		"bookmarks.example.com":      http.StatusOK,
		"api.internal.test":          http.StatusOK,
		"bookmarks.example.com:8080": http.StatusOK,
		"evil.test":                  http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodPost, "/mutations/createBookmark", nil)
		req.Host = host
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, host)
	}
}

func TestAllowOnlyCIDRS(t *testing.T) {
	h := AllowOnlyCIDRS([]string{"10.0.0.0/8"}, false, logger.Nop())(okHandler)

	for addr, want := range map[string]int{
		"10.1.2.3:5000":    http.StatusOK,
		"192.168.1.1:5000": http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodPost, "/events", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, addr)
	}
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{Burst: 2, RefillPerIPPerMin: 1})(okHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/mutations/deleteBookmark", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitRefusalBody(t *testing.T) {
	h := RateLimit(RateLimitConfig{Burst: 1, RefillPerIPPerMin: 1})(okHandler)

	var rec *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/mutations/deleteBookmark", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
	}

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), ErrTypeThrottled)
}

func TestRateLimitSeparatesClients(t *testing.T) {
	h := RateLimit(RateLimitConfig{Burst: 1, RefillPerIPPerMin: 1})(okHandler)

	for _, addr := range []string{"10.0.0.3:1", "10.0.0.4:1"} {
		req := httptest.NewRequest(http.MethodPost, "/mutations/deleteBookmark", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, addr)
	}
}
