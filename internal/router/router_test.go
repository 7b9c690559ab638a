package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"courseos-backend/internal/handlers"
	"courseos-backend/internal/logger"
	"courseos-backend/internal/middleware"
	"courseos-backend/internal/narration"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	authLimiter, genLimiter := Limiters()
	t.Cleanup(authLimiter.Stop)
	t.Cleanup(genLimiter.Stop)

	registry := narration.NewRegistry(func(uuid.UUID) narration.Engine { return nil }, logger.Nop())
	return New(
		middleware.NewJWTAuth("secret"),
		handlers.NewAuthHandler(nil),
		handlers.NewGenerationHandler(nil),
		handlers.NewCourseHandler(nil),
		handlers.NewNarrationHandler(registry, nil),
		func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) },
		authLimiter,
		genLimiter,
		"http://localhost:5173",
	)
}

func TestHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("expected a request id on every response")
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/v1/generations/"},
		{http.MethodGet, "/api/v1/generations/current"},
		{http.MethodDelete, "/api/v1/generations/current"},
		{http.MethodGet, "/api/v1/courses/"},
		{http.MethodGet, "/api/v1/courses/" + uuid.NewString() + "/lessons"},
		{http.MethodPost, "/api/v1/narration/lessons/" + uuid.NewString() + "/toggle"},
		{http.MethodGet, "/api/v1/auth/session"},
	}

	h := newTestRouter(t)
	for _, rt := range routes {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(rt.method, rt.path, nil))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", rt.method, rt.path, rr.Code)
		}
	}
}

func TestWebSocketRouteIsPublic(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil))

	if rr.Code != http.StatusTeapot {
		t.Fatalf("ws route should reach its handler, got %d", rr.Code)
	}
}
