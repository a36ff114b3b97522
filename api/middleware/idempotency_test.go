package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/harvestlink/market-backend/pkg/errors"
)

type memoryStore struct {
	data   map[string]string
	getErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]string)}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key], _ = value.(string)
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("mem:%s:%s", scope, id)
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func orderRequest(phone, key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	return req.WithContext(WithActorPhone(req.Context(), phone))
}

// countingHandler answers with status and body and counts how often it ran.
func countingHandler(calls *int, status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		if body != "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload), rec.Body.String())
	return payload.Error.Code
}

func TestIdempotencyRejectsMissingOrOversizedKey(t *testing.T) {
	for name, key := range map[string]string{
		"missing":   "",
		"too long":  strings.Repeat("k", maxIdempotencyKeyLen+1),
		"blank pad": "   ",
	} {
		t.Run(name, func(t *testing.T) {
			var calls int
			rec := httptest.NewRecorder()
			Idempotency(newMemoryStore(), time.Hour, nil)(countingHandler(&calls, http.StatusCreated, "")).
				ServeHTTP(rec, orderRequest("13800000001", key, `{"quantity":1}`))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, string(pkgerrors.CodeValidation), errorCode(t, rec))
			assert.Zero(t, calls)
		})
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	var calls int
	handler := Idempotency(newMemoryStore(), time.Hour, nil)(
		countingHandler(&calls, http.StatusCreated, `{"data":{"order_id":"o-1"}}`))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, orderRequest("13800000001", "abc", `{"quantity":1}`))
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(replayedHeader))

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, orderRequest("13800000001", "abc", `{"quantity":1}`))
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "true", replay.Header().Get(replayedHeader))
	assert.Equal(t, "application/json", replay.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"order_id":"o-1"}}`, replay.Body.String())
	assert.Equal(t, 1, calls)
}

func TestIdempotencyScopesKeysPerActor(t *testing.T) {
	var calls int
	handler := Idempotency(newMemoryStore(), time.Hour, nil)(countingHandler(&calls, http.StatusCreated, ""))

	handler.ServeHTTP(httptest.NewRecorder(), orderRequest("13800000001", "same", `{}`))
	handler.ServeHTTP(httptest.NewRecorder(), orderRequest("13800000002", "same", `{}`))

	assert.Equal(t, 2, calls)
}

func TestIdempotencyDoesNotStoreRetryableOutcomes(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			store := newMemoryStore()
			var calls int
			handler := Idempotency(store, time.Hour, nil)(countingHandler(&calls, status, ""))

			handler.ServeHTTP(httptest.NewRecorder(), orderRequest("13800000001", "retry", `{}`))
			handler.ServeHTTP(httptest.NewRecorder(), orderRequest("13800000001", "retry", `{}`))

			assert.Equal(t, 2, calls)
			assert.Empty(t, store.data)
		})
	}
}

func TestIdempotencyStoresClientErrors(t *testing.T) {
	var calls int
	handler := Idempotency(newMemoryStore(), time.Hour, nil)(countingHandler(&calls, http.StatusConflict, `{"error":{}}`))

	handler.ServeHTTP(httptest.NewRecorder(), orderRequest("13800000001", "dup", `{}`))
	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, orderRequest("13800000001", "dup", `{}`))

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusConflict, replay.Code)
}

func TestIdempotencyDetectsBodyChange(t *testing.T) {
	var calls int
	handler := Idempotency(newMemoryStore(), time.Hour, nil)(countingHandler(&calls, http.StatusOK, ""))

	handler.ServeHTTP(httptest.NewRecorder(), orderRequest("13800000001", "xyz", `{"quantity":1}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, orderRequest("13800000001", "xyz", `{"quantity":2}`))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, rec))
	assert.Equal(t, 1, calls)
}

func TestIdempotencyStoreFailureIsDependencyError(t *testing.T) {
	store := newMemoryStore()
	store.getErr = errors.New("redis: connection refused")
	var calls int
	rec := httptest.NewRecorder()
	Idempotency(store, time.Hour, nil)(countingHandler(&calls, http.StatusCreated, "")).
		ServeHTTP(rec, orderRequest("13800000001", "abc", `{}`))

	assert.Equal(t, string(pkgerrors.CodeDependency), errorCode(t, rec))
	assert.Zero(t, calls)
}

func TestIdempotencyWithoutStorePassesThrough(t *testing.T) {
	var calls int
	rec := httptest.NewRecorder()
	Idempotency(nil, 0, nil)(countingHandler(&calls, http.StatusCreated, "")).
		ServeHTTP(rec, orderRequest("13800000001", "", `{}`))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, calls)
}
