package common

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyMiddlewareRejectsReplay(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	calls := 0
	handler := Idem{R: client, TTL: time.Minute}.Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls++
			w.WriteHeader(http.StatusCreated)
		}))

	first := httptest.NewRequest(http.MethodPost, "/api/v1/sales", nil)
	first.Header.Set("Idempotency-Key", "terminal-1-receipt-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	require.Equal(t, http.StatusCreated, rec.Code)

	replay := httptest.NewRequest(http.MethodPost, "/api/v1/sales", nil)
	replay.Header.Set("Idempotency-Key", "terminal-1-receipt-42")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, replay)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "IDEMPOTENT_REPLAY")
	require.Equal(t, 1, calls)
}

func TestIdempotencyMiddlewarePassesWithoutKey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	calls := 0
	handler := Idem{R: client, TTL: time.Minute}.Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls++
			w.WriteHeader(http.StatusCreated)
		}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sales", nil))
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	require.Equal(t, 2, calls)
}
