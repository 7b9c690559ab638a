package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"courseos-backend/internal/handlers"
	"courseos-backend/internal/middleware"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	generationHandler *handlers.GenerationHandler,
	courseHandler *handlers.CourseHandler,
	narrationHandler *handlers.NarrationHandler,
	wsHandler http.HandlerFunc,
	authLimiter *middleware.RateLimiter,
	generationLimiter *middleware.RateLimiter,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(frontendURL))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/signup", authHandler.SignUp)
			r.Post("/signin", authHandler.SignIn)
			r.Post("/google", authHandler.Google)
			r.Post("/refresh", authHandler.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/signout", authHandler.SignOut)
				r.Get("/session", authHandler.Session)
			})
		})

		// ──── Generation Routes ────
		r.Route("/generations", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.With(generationLimiter.Middleware).Post("/", generationHandler.Generate)
			r.Get("/current", generationHandler.Current)
			r.Delete("/current", generationHandler.Reset)
		})

		// ──── Course Routes ────
		r.Route("/courses", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", courseHandler.List)
			r.Get("/{id}", courseHandler.Get)
			r.Get("/{id}/lessons", courseHandler.Lessons)
		})

		// ──── Narration Routes ────
		r.Route("/narration", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/lessons/{id}/toggle", narrationHandler.Toggle)
			r.Delete("/lessons/{id}", narrationHandler.Dispose)
			r.Post("/sessions/{id}/events", narrationHandler.Event)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHandler)
	})

	return r
}

// Limiters returns the auth (10/min) and generation (5/min) rate limiters.
func Limiters() (auth, generation *middleware.RateLimiter) {
	return middleware.NewRateLimiter(10, time.Minute), middleware.NewRateLimiter(5, time.Minute)
}
