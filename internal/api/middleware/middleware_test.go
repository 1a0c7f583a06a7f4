package middleware_test

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
	mw "github.com/tanmaydesai/gigflow/internal/api/middleware"
	"github.com/tanmaydesai/gigflow/internal/store"
	"github.com/tanmaydesai/gigflow/pkg/models"
)

// --- Mock Cache ---

type mockCache struct {
	counter int64
	err     error
}

func (m *mockCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (m *mockCache) Get(_ context.Context, _ string) ([]byte, bool, error) {
	return nil, false, nil
}
func (m *mockCache) Delete(_ context.Context, _ string) error { return nil }
func (m *mockCache) Ping(_ context.Context) error             { return nil }
func (m *mockCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	m.counter++
	return m.counter, m.err
}

// --- helpers ---

func okHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}
}

func errBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"].(map[string]any)
}

func seedProfile(t *testing.T, ms *store.MemoryStore, role string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, ms.CreateProfile(context.Background(), &models.Profile{
		UserID: id, Role: role,
	}))
	return id
}

// ========================================
// Identity Middleware Tests
// ========================================

func TestIdentity_MissingHeader(t *testing.T) {
	identity := mw.NewIdentity(store.NewMemoryStore())
	handler := identity.Resolve(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "MISSING_IDENTITY", errBody(t, w)["code"])
}

func TestIdentity_MalformedUUID(t *testing.T) {
	identity := mw.NewIdentity(store.NewMemoryStore())
	handler := identity.Resolve(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-User-ID", "not-a-uuid")
	req.Header.Set("X-User-Role", "customer")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIdentity_BadRole(t *testing.T) {
	ms := store.NewMemoryStore()
	userID := seedProfile(t, ms, models.RoleCustomer)
	identity := mw.NewIdentity(ms)
	handler := identity.Resolve(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-User-ID", userID.String())
	req.Header.Set("X-User-Role", "admin")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIdentity_UnknownProfile(t *testing.T) {
	identity := mw.NewIdentity(store.NewMemoryStore())
	handler := identity.Resolve(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-User-ID", uuid.NewString())
	req.Header.Set("X-User-Role", "worker")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNKNOWN_USER", errBody(t, w)["code"])
}

func TestIdentity_Resolved(t *testing.T) {
	ms := store.NewMemoryStore()
	userID := seedProfile(t, ms, models.RoleWorker)
	identity := mw.NewIdentity(ms)

	var gotID uuid.UUID
	var gotRole string
	var gotOK bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, gotOK = mw.GetUserID(r)
		gotRole, _ = mw.GetUserRole(r)
		w.WriteHeader(http.StatusOK)
	})
	handler := identity.Resolve(inner)

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-User-ID", userID.String())
	req.Header.Set("X-User-Role", "worker")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, gotOK)
	assert.Equal(t, userID, gotID)
	assert.Equal(t, models.RoleWorker, gotRole)
}

func TestIdentity_RequireRole_Allowed(t *testing.T) {
	ms := store.NewMemoryStore()
	userID := seedProfile(t, ms, models.RoleWorker)
	identity := mw.NewIdentity(ms)

	handler := identity.Resolve(identity.RequireRole(models.RoleWorker)(okHandler()))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-User-ID", userID.String())
	req.Header.Set("X-User-Role", "worker")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIdentity_RequireRole_Denied(t *testing.T) {
	ms := store.NewMemoryStore()
	userID := seedProfile(t, ms, models.RoleCustomer)
	identity := mw.NewIdentity(ms)

	handler := identity.Resolve(identity.RequireRole(models.RoleWorker)(okHandler()))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-User-ID", userID.String())
	req.Header.Set("X-User-Role", "customer")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errBody(t, w)["code"])
}

// ========================================
// Rate Limit Middleware Tests
// ========================================

func identified(req *http.Request) *http.Request {
	ctx := mw.SetIdentity(req.Context(), uuid.New(), models.RoleCustomer)
	return req.WithContext(ctx)
}

func TestRateLimit_AllowsUnderLimit(t *testing.T) {
	mc := &mockCache{counter: 0}
	rl := mw.NewRateLimit(mc, 60)

	handler := rl.Limit(okHandler())

	req := identified(httptest.NewRequest("GET", "/test", nil))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "60", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "59", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
}

func TestRateLimit_RejectsOverLimit(t *testing.T) {
	mc := &mockCache{counter: 60} // next IncrWithExpiry will return 61
	rl := mw.NewRateLimit(mc, 60)

	handler := rl.Limit(okHandler())

	req := identified(httptest.NewRequest("GET", "/test", nil))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", errBody(t, w)["code"])
}

func TestRateLimit_NoIdentity_PassThrough(t *testing.T) {
	mc := &mockCache{}
	rl := mw.NewRateLimit(mc, 60)

	handler := rl.Limit(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(0), mc.counter, "no counter touched without an identity")
}

// ========================================
// Recovery Middleware Tests
// ========================================

func TestRecovery_CatchesPanic(t *testing.T) {
	panicking := http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		panic("something went wrong")
	})

	handler := mw.Recovery(panicking)

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", errBody(t, w)["code"])
}

func TestRecovery_NoPanic(t *testing.T) {
	handler := mw.Recovery(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

// ========================================
// Logging Middleware Tests
// ========================================

func TestLogger_SetsStatus(t *testing.T) {
	handler := mw.Logger(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
