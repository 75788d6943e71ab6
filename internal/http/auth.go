package httpapi

import (
	"context"
	"net/http"
	"strings"

	"ytmanager-backend-go/internal/models"
	"ytmanager-backend-go/internal/services"
)

type contextKey string

const ctxViewer contextKey = "viewer"

// ViewerLoader resolves the active staff member behind a session.
type ViewerLoader interface {
	Viewer(ctx context.Context, staffID string) (models.StaffMember, error)
}

// WithAuth verifies the bearer access token and loads the viewer, so role
// and status changes take effect without waiting for token expiry.
func WithAuth(tokenService services.TokenService, viewers ViewerLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				WriteError(w, http.StatusUnauthorized, "Authentication failed")
				return
			}
			viewer, err := authenticate(r.Context(), tokenService, viewers, strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")))
			if err != nil {
				writeServiceError(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), ctxViewer, viewer)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(ctx context.Context, tokenService services.TokenService, viewers ViewerLoader, token string) (models.StaffMember, error) {
	session, err := tokenService.ParseAccess(token)
	if err != nil {
		return models.StaffMember{}, err
	}
	return viewers.Viewer(ctx, session.StaffID)
}

func CurrentViewer(r *http.Request) models.StaffMember {
	if value, ok := r.Context().Value(ctxViewer).(models.StaffMember); ok {
		return value
	}
	return models.StaffMember{}
}

func RequireRole(role string) func(http.Handler) http.Handler {
	return RequireAnyRole(role)
}

func RequireAnyRole(roles ...string) func(http.Handler) http.Handler {
	allowed := map[string]bool{}
	for _, role := range roles {
		allowed[strings.ToUpper(role)] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowed[strings.ToUpper(CurrentViewer(r).Role)] {
				next.ServeHTTP(w, r)
				return
			}
			WriteError(w, http.StatusForbidden, "Not allowed")
		})
	}
}
