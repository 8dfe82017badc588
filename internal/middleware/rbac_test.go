package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openclaw/gateway/internal/domain/user"
	"github.com/openclaw/gateway/internal/middleware"
)

func withUser(r *http.Request, u *user.User) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.AuthUserCtxKeyForTest(), u)
	return r.WithContext(ctx)
}

func TestRequireRole_AllowsMatchingRole(t *testing.T) {
	handler := middleware.RequireRole(user.RoleAdmin, user.RoleOperator)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/agents", http.NoBody), &user.User{Role: user.RoleOperator})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for an allowed role, got %d", rec.Code)
	}
}

func TestRequireRole_RejectsOtherRole(t *testing.T) {
	handler := middleware.RequireRole(user.RoleAdmin)(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatal("should not reach the next handler")
	}))

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/agents", http.NoBody), &user.User{Role: user.RoleViewer})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a disallowed role, got %d", rec.Code)
	}
}

func TestRequireRole_RejectsUnauthenticatedRequest(t *testing.T) {
	handler := middleware.RequireRole(user.RoleAdmin)(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatal("should not reach the next handler")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/agents", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without an authenticated user, got %d", rec.Code)
	}
}
