package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	apperrors "gotour/pkg/errors"
	"gotour/pkg/logger"
	"gotour/pkg/metrics"
	"gotour/pkg/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{
		Level:     "error",
		Format:    logger.JSON,
		Output:    io.Discard,
		AddSource: false,
		Service:   "test",
	})
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// ────────────────────────────────────────────────
// GatewayActor
// ────────────────────────────────────────────────

func TestGatewayActor_SetsActor(t *testing.T) {
	var got model.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ok bool
		got, ok = ActorFromContext(r.Context())
		assert.True(t, ok)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/me", nil)
	req.Header.Set(UserIDHeader, "user-1")
	req.Header.Set(UserRoleHeader, "ADMIN")
	rec := httptest.NewRecorder()

	GatewayActor("", testLogger())(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.Actor{UserID: "user-1", Role: model.RoleAdmin}, got)
}

func TestGatewayActor_UnknownRoleIsUser(t *testing.T) {
	var got model.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ActorFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(UserIDHeader, "user-1")
	req.Header.Set(UserRoleHeader, "superuser")

	GatewayActor("", testLogger())(next).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, model.RoleUser, got.Role)
}

func TestGatewayActor_MissingUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	GatewayActor("", testLogger())(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperrors.CodeUnauthorized, decodeError(t, rec).Code)
}

func TestGatewayActor_Signature(t *testing.T) {
	const secret = "s3cret"
	body := []byte(`{"tour_id":"665f1c2e8b3e4a0000000001"}`)

	tests := []struct {
		name      string
		signature string
		want      int
	}{
		{"valid", Sign(secret, "user-1", "user", body), http.StatusOK},
		{"valid with prefix", "sha256=" + Sign(secret, "user-1", "user", body), http.StatusOK},
		{"signed for another user", Sign(secret, "user-2", "user", body), http.StatusUnauthorized},
		{"signed with another secret", Sign("other", "user-1", "user", body), http.StatusUnauthorized},
		{"missing", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen []byte
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = io.ReadAll(r.Body)
			})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/tour", bytes.NewReader(body))
			req.Header.Set(UserIDHeader, "user-1")
			if tt.signature != "" {
				req.Header.Set(SignatureHeader, tt.signature)
			}
			rec := httptest.NewRecorder()

			GatewayActor(secret, testLogger())(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, body, seen, "body must be readable after verification")
			}
		})
	}
}

// ────────────────────────────────────────────────
// RateLimit
// ────────────────────────────────────────────────

func TestUserRateLimiter_Window(t *testing.T) {
	limiter := NewUserRateLimiter(2, time.Minute, nil, testLogger())
	defer limiter.Stop()

	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("user:a"))
	assert.True(t, limiter.Allow("user:a"))
	assert.False(t, limiter.Allow("user:a"))
	assert.True(t, limiter.Allow("user:b"), "buckets are per key")
	assert.True(t, limiter.Allow(""), "empty key is never limited")

	now = now.Add(time.Minute)
	assert.True(t, limiter.Allow("user:a"), "window has passed")
}

func TestRateLimit_Rejects(t *testing.T) {
	limiter := NewUserRateLimiter(1, time.Minute, nil, testLogger())
	defer limiter.Stop()
	handler := RateLimit(limiter)(okHandler())

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		return req.WithContext(WithActor(req.Context(), model.Actor{UserID: "user-1"}))
	}

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, newReq())
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, newReq())
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
}

func TestDefaultKeyExtractor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	assert.Equal(t, "ip:10.0.0.7", DefaultKeyExtractor(req))

	req.Header.Set(UserIDHeader, "user-9")
	assert.Equal(t, "user:user-9", DefaultKeyExtractor(req))

	req = req.WithContext(WithActor(req.Context(), model.Actor{UserID: "user-1"}))
	assert.Equal(t, "user:user-1", DefaultKeyExtractor(req))
}

// ────────────────────────────────────────────────
// Idempotency
// ────────────────────────────────────────────────

func TestIdempotency_ReplaysSuccess(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls int32
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"n":` + string(rune('0'+n)) + `}`))
	})
	handler := Idempotency(store, "", testLogger())(next)

	send := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/tour", strings.NewReader(`{}`))
		req.Header.Set(DefaultIdempotencyHeader, "key-1")
		req = req.WithContext(WithActor(req.Context(), model.Actor{UserID: user}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := send("user-1")
	second := send("user-1")
	other := send("user-2")

	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.NotEqual(t, first.Body.String(), other.Body.String(), "keys are scoped per user")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIdempotency_SkipsFailuresAndReads(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls int32
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusConflict)
		}
	})
	handler := Idempotency(store, "", testLogger())(next)

	for _, method := range []string{http.MethodPost, http.MethodPost, http.MethodGet, http.MethodGet} {
		req := httptest.NewRequest(method, "/x", nil)
		req.Header.Set(DefaultIdempotencyHeader, "key-1")
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestInMemoryIdempotencyStore_Expiry(t *testing.T) {
	store := NewInMemoryIdempotencyStore(10 * time.Millisecond)
	defer store.Stop()

	ctx := context.Background()
	store.Set(ctx, "k", &CachedResponse{StatusCode: http.StatusOK})
	_, found := store.Get(ctx, "k")
	assert.True(t, found)

	time.Sleep(20 * time.Millisecond)
	_, found = store.Get(ctx, "k")
	assert.False(t, found)
}

// ────────────────────────────────────────────────
// Request shaping
// ────────────────────────────────────────────────

func TestMaxRequestSize(t *testing.T) {
	var readErr error
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	})
	handler := MaxRequestSize(8)(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(strings.NewReader("0123456789")))
	req.ContentLength = -1
	handler.ServeHTTP(httptest.NewRecorder(), req)
	var maxErr *http.MaxBytesError
	assert.ErrorAs(t, readErr, &maxErr)
}

func TestContentTypeValidation(t *testing.T) {
	handler := ContentTypeValidation(testLogger())(okHandler())

	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		want        int
	}{
		{"json post", http.MethodPost, `{}`, "application/json; charset=utf-8", http.StatusOK},
		{"form post", http.MethodPost, `a=b`, "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"bodiless post", http.MethodPost, "", "", http.StatusOK},
		{"get", http.MethodGet, "", "", http.StatusOK},
		{"patch without header", http.MethodPatch, `{}`, "", http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRecovery(t *testing.T) {
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	rec := httptest.NewRecorder()

	Recovery(testLogger())(panicky).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, apperrors.CodeInternal, decodeError(t, rec).Code)
}

func TestRequestTimeout(t *testing.T) {
	lateWrite := make(chan error, 1)
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		time.Sleep(20 * time.Millisecond)
		_, err := w.Write([]byte("late"))
		lateWrite <- err
	})
	rec := httptest.NewRecorder()

	RequestTimeout(10*time.Millisecond)(slow).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.ErrorIs(t, <-lateWrite, http.ErrHandlerTimeout)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, apperrors.CodeTimeout, decodeError(t, rec).Code)
}

func TestRequestLogging_RequestIDAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusAccepted)
	})
	handler := RequestLogging(testLogger(), m)(next)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestDuration))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get(RequestIDHeader), 32)
}
