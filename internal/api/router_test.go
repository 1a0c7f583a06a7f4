package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanmaydesai/gigflow/internal/api"
	mw "github.com/tanmaydesai/gigflow/internal/api/middleware"
	"github.com/tanmaydesai/gigflow/internal/store"
	"github.com/tanmaydesai/gigflow/pkg/models"
)

// --- stub cache ---

type stubCache struct{}

func (c *stubCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (c *stubCache) Get(_ context.Context, _ string) ([]byte, bool, error) {
	return nil, false, nil
}
func (c *stubCache) Delete(_ context.Context, _ string) error { return nil }
func (c *stubCache) Ping(_ context.Context) error             { return nil }
func (c *stubCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

func newTestRouter(t *testing.T) (http.Handler, uuid.UUID) {
	t.Helper()
	ms := store.NewMemoryStore()
	workerID := uuid.New()
	require.NoError(t, ms.CreateProfile(context.Background(), &models.Profile{
		UserID: workerID, Role: models.RoleWorker,
	}))

	router := api.NewRouter(api.Dependencies{
		Identity:  mw.NewIdentity(ms),
		RateLimit: mw.NewRateLimit(&stubCache{}, 60),
		HealthHandler: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
	})
	return router, workerID
}

func TestRouter_HealthIsPublic(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ProtectedRoutesRequireIdentity(t *testing.T) {
	router, _ := newTestRouter(t)

	paths := []struct {
		method string
		path   string
	}{
		{"GET", "/api/v1/jobs/open"},
		{"GET", "/api/v1/jobs/mine"},
		{"POST", "/api/v1/jobs"},
		{"GET", "/api/v1/wallet"},
		{"POST", "/api/v1/location"},
	}
	for _, p := range paths {
		req := httptest.NewRequest(p.method, p.path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equalf(t, http.StatusUnauthorized, w.Code, "%s %s", p.method, p.path)
	}
}

func TestRouter_RoleGuards(t *testing.T) {
	router, workerID := newTestRouter(t)

	// A worker cannot post jobs.
	req := httptest.NewRequest("POST", "/api/v1/jobs", nil)
	req.Header.Set("X-User-ID", workerID.String())
	req.Header.Set("X-User-Role", "worker")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "FORBIDDEN", errObj["code"])
}

func TestRouter_UnwiredRouteReturns501(t *testing.T) {
	router, workerID := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/jobs/open", nil)
	req.Header.Set("X-User-ID", workerID.String())
	req.Header.Set("X-User-Role", "worker")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestRouter_UnknownRoute(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/unknown", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
