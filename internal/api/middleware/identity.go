package middleware

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/tanmaydesai/gigflow/internal/api/response"
	"github.com/tanmaydesai/gigflow/internal/store"
	"github.com/tanmaydesai/gigflow/pkg/models"
)

const (
	userIDHeader = "X-User-ID"
	roleHeader   = "X-User-Role"
)

// Identity resolves the caller from trusted gateway headers.
type Identity struct {
	store store.Store
}

// NewIdentity creates a new Identity middleware.
func NewIdentity(s store.Store) *Identity {
	return &Identity{store: s}
}

// Resolve reads X-User-ID and X-User-Role, verifies the profile exists, and
// sets user_id and role in the request context. Authentication itself is
// handled upstream; these headers are set by the gateway after token checks.
func (i *Identity) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawID := r.Header.Get(userIDHeader)
		if rawID == "" {
			response.Error(w, http.StatusUnauthorized,
				"MISSING_IDENTITY", "Missing X-User-ID header", nil)
			return
		}

		userID, err := uuid.Parse(rawID)
		if err != nil {
			response.Error(w, http.StatusUnauthorized,
				"MISSING_IDENTITY", "X-User-ID is not a valid UUID", nil)
			return
		}

		role := r.Header.Get(roleHeader)
		if role != models.RoleCustomer && role != models.RoleWorker {
			response.Error(w, http.StatusUnauthorized,
				"MISSING_IDENTITY", "X-User-Role must be customer or worker", nil)
			return
		}

		if _, err := i.store.GetProfile(r.Context(), userID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusUnauthorized,
					"UNKNOWN_USER", "No profile for the given user", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to resolve identity", nil)
			return
		}

		r = r.WithContext(SetIdentity(r.Context(), userID, role))
		next.ServeHTTP(w, r)
	})
}

// RequireRole returns middleware that checks whether the resolved caller
// has the specified role.
func (i *Identity) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := GetUserRole(r)
			if !ok || got != role {
				response.Error(w, http.StatusForbidden,
					"FORBIDDEN", "Insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
