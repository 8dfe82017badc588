package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openclaw/gateway/internal/logger"
	"github.com/openclaw/gateway/internal/middleware"
)

func TestRequestID_GeneratesWhenAbsent(t *testing.T) {
	var gotCtxID string
	handler := middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotCtxID = logger.RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	headerID := rec.Header().Get("X-Request-ID")
	if headerID == "" {
		t.Fatal("expected a generated X-Request-ID header")
	}
	if gotCtxID != headerID {
		t.Fatalf("expected the context id to match the header id, got %q vs %q", gotCtxID, headerID)
	}
}

func TestRequestID_PreservesIncomingHeader(t *testing.T) {
	handler := middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	req.Header.Set("X-Request-ID", "caller-supplied-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "caller-supplied-id" {
		t.Fatalf("expected the incoming request id to be preserved, got %q", got)
	}
}
