package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"courseos-backend/internal/config"
	"courseos-backend/internal/database"
	"courseos-backend/internal/handlers"
	"courseos-backend/internal/logger"
	"courseos-backend/internal/middleware"
	"courseos-backend/internal/narration"
	"courseos-backend/internal/repository"
	"courseos-backend/internal/router"
	"courseos-backend/internal/services"
	"courseos-backend/internal/websocket"
	"courseos-backend/internal/worker"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting courseos backend", "env", cfg.Env)
	for _, key := range cfg.Missing() {
		log.Warn("environment variable not set; dependent calls will fail", "key", key)
	}

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("postgres connection failed", "error", err)
	}
	defer pool.Close()

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatal("redis connection failed", "error", err)
	}
	defer redisClients.Close()

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations", log); err != nil {
		log.Fatal("database migration failed", "error", err)
	}

	// ──── Repositories ────
	userRepo := repository.NewUserRepo(pool)
	courseRepo := repository.NewCourseRepo(pool)
	lessonRepo := repository.NewLessonRepo(pool)

	// ──── Step 5: Initialize Gemini Client ────
	var completer services.Completer
	gemini, err := services.NewGeminiCompleter(cfg.GeminiAPIKey, cfg.GeminiConcurrentReqs, log)
	if err != nil {
		log.Warn("gemini client unavailable; generation requests will fail", "error", err)
		completer = services.UnavailableCompleter()
	} else {
		defer gemini.Close()
		completer = gemini
	}

	// ──── Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	authService := services.NewAuthService(userRepo, services.NewRedisRefreshTokens(redisClients.Queue), jwtAuth, cfg.GoogleClientID, log)

	generator := services.NewGenerator(completer, services.GeneratorConfig{
		Model:           cfg.GeminiModel,
		Temperature:     cfg.GeminiTemperature,
		MaxOutputTokens: cfg.GeminiMaxOutputTokens,
	}, log)
	courseStore := services.NewCourseStore(courseRepo, lessonRepo, cfg.DefaultCurrency, log)
	orchestrator := services.NewOrchestrator(
		generator,
		courseStore,
		services.NewRedisStatusStore(redisClients.Queue),
		services.NewRedisNotifier(redisClients.Queue, log),
		worker.NewQueue(redisClients.Queue),
		log,
	)

	// ──── Step 6: WebSocket Hub + Narration ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth, log)
	defer wsHub.Close()

	remoteEngine := narration.NewRemoteEngine(wsHub)
	narrationRegistry := narration.NewRegistry(func(userID uuid.UUID) narration.Engine {
		return remoteEngine.ForUser(userID)
	}, log)
	// Nobody is left to report the end of a session once the last socket closes.
	wsHub.OnLastDisconnect(narrationRegistry.DisposeUser)

	// ──── Handlers ────
	authLimiter, generationLimiter := router.Limiters()
	defer authLimiter.Stop()
	defer generationLimiter.Stop()

	r := router.New(
		jwtAuth,
		handlers.NewAuthHandler(authService),
		handlers.NewGenerationHandler(orchestrator),
		handlers.NewCourseHandler(courseStore),
		handlers.NewNarrationHandler(narrationRegistry, remoteEngine),
		wsHub.HandleWebSocket,
		authLimiter,
		generationLimiter,
		cfg.FrontendURL,
	)

	// Generation runs inline for synchronous requests, so the write timeout
	// has to cover a full completion call plus two inserts.
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// ──── Step 7: Run worker pool and HTTP server ────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	workerPool := worker.NewPool(redisClients.Queue, orchestrator, cfg.WorkerCount, log)
	g.Go(func() error {
		return workerPool.Run(gctx)
	})

	g.Go(func() error {
		log.Info("courseos backend ready", "addr", "http://localhost:"+cfg.Port, "api", "/api/v1", "ws", "/api/v1/ws")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
	}
}
