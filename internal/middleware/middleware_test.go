package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// mockResponseStore is an in-memory ResponseStore.
type mockResponseStore struct {
	mu   sync.Mutex
	data map[string][]byte

	GetError error
	SetCount int32
}

func newMockResponseStore() *mockResponseStore {
	return &mockResponseStore{data: make(map[string][]byte)}
}

func (m *mockResponseStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *mockResponseStore) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	atomic.AddInt32(&m.SetCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	return nil
}

func countingRouter(store ResponseStore, calls *int32) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdempotencyMiddleware(store, nil))
	r.POST("/v1/rides", func(c *gin.Context) {
		n := atomic.AddInt32(calls, 1)
		c.JSON(http.StatusCreated, gin.H{"id": n})
	})
	r.POST("/v1/drivers", func(c *gin.Context) {
		atomic.AddInt32(calls, 1)
		c.JSON(http.StatusCreated, gin.H{"id": 99})
	})
	return r
}

func post(r *gin.Engine, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("{}"))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	var calls int32
	r := countingRouter(newMockResponseStore(), &calls)

	first := post(r, "/v1/rides", "abc")
	second := post(r, "/v1/rides", "abc")

	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
	if second.Code != http.StatusCreated || second.Body.String() != first.Body.String() {
		t.Errorf("expected replay of %q, got %d %q", first.Body.String(), second.Code, second.Body.String())
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Error("expected replay header")
	}
}

func TestIdempotency_KeyIsScopedToRoute(t *testing.T) {
	var calls int32
	r := countingRouter(newMockResponseStore(), &calls)

	post(r, "/v1/rides", "abc")
	post(r, "/v1/drivers", "abc")

	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("expected both routes to run, got %d calls", calls)
	}
}

func TestIdempotency_PassThrough(t *testing.T) {
	tests := []struct {
		name  string
		store ResponseStore
		key   string
	}{
		{"no store", nil, "abc"},
		{"no key", newMockResponseStore(), ""},
		{"store down", &mockResponseStore{data: map[string][]byte{}, GetError: errors.New("redis down")}, "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			r := countingRouter(tt.store, &calls)
			post(r, "/v1/rides", tt.key)
			post(r, "/v1/rides", tt.key)
			if atomic.LoadInt32(&calls) != 2 {
				t.Errorf("expected 2 handler runs, got %d", calls)
			}
		})
	}
}

func TestCORS_PreflightAndOrigins(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware("https://app.example"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/health", nil)
	req.Header.Set("Origin", "https://app.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204 preflight, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "https://app.example" {
		t.Errorf("expected allowed origin echoed, got %q", w.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("expected unknown origin to get no CORS headers")
	}
}

func TestRequestID_PropagatesOrGenerates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, RequestID(c)) })

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() != "req-1" || w.Header().Get(requestIDHeader) != "req-1" {
		t.Errorf("expected caller id to propagate, got %q", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if len(w.Body.String()) != 36 {
		t.Errorf("expected generated uuid, got %q", w.Body.String())
	}
}
