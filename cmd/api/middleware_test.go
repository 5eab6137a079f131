package main

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"carrent/internal/ratelimiter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApplication(t *testing.T, cfg config) *application {
	t.Helper()
	return &application{
		config: cfg,
		logger: zap.NewNop().Sugar(),
	}
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestBearerToken(t *testing.T) {
	t.Run("header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer abc.def")
		token, err := bearerToken(r, false)
		require.NoError(t, err)
		assert.Equal(t, "abc.def", token)
	})

	t.Run("malformed header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Token abc")
		_, err := bearerToken(r, true)
		assert.Error(t, err)
	})

	t.Run("query only on websocket", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/?access_token=xyz", nil)
		_, err := bearerToken(r, false)
		assert.Error(t, err)

		token, err := bearerToken(r, true)
		require.NoError(t, err)
		assert.Equal(t, "xyz", token)
	})
}

func TestBasicAuthMiddleware(t *testing.T) {
	var cfg config
	cfg.auth.basic = basicConfig{user: "admin", pass: "s3cret"}
	app := newTestApplication(t, cfg)
	h := app.BasicAuthMiddleware()(okHandler)

	basic := func(creds string) string {
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(creds))
	}

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Bearer x", http.StatusUnauthorized},
		{"bad base64", "Basic !!!", http.StatusUnauthorized},
		{"wrong password", basic("admin:nope"), http.StatusUnauthorized},
		{"valid", basic("admin:s3cret"), http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/v1/debug/vars", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			assert.Equal(t, tc.want, w.Code)
			if tc.want == http.StatusUnauthorized {
				assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Basic")
			}
		})
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	var cfg config
	cfg.rateLimiter = ratelimiter.Config{RequestsPerTimeFrame: 2, TimeFrame: time.Minute, Enabled: true}
	app := newTestApplication(t, cfg)
	limiter := ratelimiter.NewFixedWindowLimiter(2, time.Minute)
	t.Cleanup(limiter.Stop)
	app.rateLimiter = limiter

	h := app.RateLimiterMiddleware(okHandler)

	do := func(remote string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/v1/cars", nil)
		r.RemoteAddr = remote
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1:5000").Code)
	assert.Equal(t, http.StatusOK, do("10.0.0.1:5001").Code)

	w := do("10.0.0.1:5002")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do("10.0.0.2:5000").Code)
}

func TestRateLimiterMiddlewareDisabled(t *testing.T) {
	app := newTestApplication(t, config{})
	h := app.RateLimiterMiddleware(okHandler)

	for range 5 {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.168.1.9:43120"
	assert.Equal(t, "192.168.1.9", clientIP(r))

	r.RemoteAddr = "192.168.1.9"
	assert.Equal(t, "192.168.1.9", clientIP(r))
}
