package middlewares_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/qcheck-dev/qcheck/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeLimiter struct {
	allowFn func(ctx context.Context, key string) (bool, error)
}

func (f *fakeLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if f.allowFn != nil {
		return f.allowFn(ctx, key)
	}

	return true, nil
}

func limitedRouter(l middlewares.Limiter) *gin.Engine {
	r := gin.New()

	mw := middlewares.AuthRateLimiter(l, func(c *gin.Context) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": gin.H{"code": "too_many_attempts"}})
	})

	r.POST("/auth/login", mw, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	return r
}

func TestAuthRateLimiter(t *testing.T) {
	tests := []struct {
		name           string
		allowFn        func(ctx context.Context, key string) (bool, error)
		wantStatusCode int
	}{
		{
			name: "allowed",
			allowFn: func(ctx context.Context, key string) (bool, error) {
				return true, nil
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "over_limit",
			allowFn: func(ctx context.Context, key string) (bool, error) {
				return false, nil
			},
			wantStatusCode: http.StatusTooManyRequests,
		},
		{
			// a broken limiter must not lock everyone out
			name: "limiter_error_fails_open",
			allowFn: func(ctx context.Context, key string) (bool, error) {
				return false, errors.New("redis down")
			},
			wantStatusCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			r := limitedRouter(&fakeLimiter{allowFn: tt.allowFn})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestAuthRateLimiterKeysByClientIP(t *testing.T) {
	var gotKey string

	r := limitedRouter(&fakeLimiter{allowFn: func(ctx context.Context, key string) (bool, error) {
		gotKey = key

		return true, nil
	}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "203.0.113.9:51000"
	r.ServeHTTP(w, req)

	if gotKey != "ratelimit:auth:203.0.113.9" {
		t.Fatalf("got key %q, want ratelimit:auth:203.0.113.9", gotKey)
	}
}
