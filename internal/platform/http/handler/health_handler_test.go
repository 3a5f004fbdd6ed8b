package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

var fixedNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func setupRouter(db Pinger) *gin.Engine {
	h := NewHealthHandler(db)
	h.now = func() time.Time { return fixedNow }

	r := gin.New()
	r.GET("/health", h.Health)
	r.HEAD("/health", h.Health)
	r.OPTIONS("/health", h.Health)
	return r
}

func TestHealth_GET(t *testing.T) {
	t.Parallel()

	router := setupRouter(pingerFunc(func(context.Context) error { return nil }))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "2024-06-01T09:30:00Z", body["timestamp"])
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestHealth_NilDB(t *testing.T) {
	t.Parallel()

	router := setupRouter(nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealth_ResponseStatus(t *testing.T) {
	t.Parallel()

	up := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name       string
		method     string
		db         Pinger
		wantStatus int
		wantBody   bool
	}{
		{"GET up", http.MethodGet, up, http.StatusOK, true},
		{"GET down", http.MethodGet, down, http.StatusServiceUnavailable, true},
		{"HEAD up", http.MethodHead, up, http.StatusOK, false},
		{"HEAD down", http.MethodHead, down, http.StatusServiceUnavailable, false},
		{"OPTIONS skips ping", http.MethodOptions, down, http.StatusNoContent, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			setupRouter(tt.db).ServeHTTP(w, httptest.NewRequest(tt.method, "/health", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
			if tt.wantBody {
				var body map[string]string
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				if tt.wantStatus == http.StatusOK {
					assert.Equal(t, "healthy", body["status"])
				} else {
					assert.Equal(t, "unhealthy", body["status"])
				}
			} else {
				assert.Zero(t, w.Body.Len())
			}
		})
	}
}
