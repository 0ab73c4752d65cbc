package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/fasttodo/fasttodo/internal/api/v1/handlers"
	ws "github.com/fasttodo/fasttodo/internal/api/v1/handlers/websocket"
	"github.com/fasttodo/fasttodo/internal/api/v1/middleware"
	"github.com/fasttodo/fasttodo/internal/config"
	"github.com/fasttodo/fasttodo/internal/logger"
	"github.com/fasttodo/fasttodo/internal/metrics"
	"github.com/fasttodo/fasttodo/internal/services"
	"github.com/fasttodo/fasttodo/internal/store"
)

func main() {
	logger.Init()
	cfg := config.Load()

	svc := services.Initialize(cfg)
	r := setupRouter(cfg, svc)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      r,
		ReadTimeout:  0, // long-lived WebSocket reads manage their own deadlines
		WriteTimeout: 0,
	}

	go func() {
		log.Info().Str("addr", cfg.ServerAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	log.Info().Msg("Server stopped")
}

func setupRouter(cfg *config.Config, svc *services.Services) *mux.Router {
	authHandler := handlers.NewAuthHandler(cfg, svc.Gate, svc.Tokens, svc.Hasher, svc.Store)
	todoHandler := handlers.NewTodoHandler(svc.Store)
	userHandler := handlers.NewUserHandler(svc.Store)
	healthChecks := map[string]store.Pinger{"store": svc.Store}
	if svc.Redis != nil {
		healthChecks["redis"] = svc.Redis
	}
	healthHandler := handlers.NewHealthHandler(healthChecks)
	aiHandler := handlers.NewAIHandler(svc.Assistant)

	var dialer ws.UpstreamDialer
	if svc.Live != nil {
		dialer = ws.GenaiDialer{Service: svc.Live}
	}
	voiceStream := ws.NewHandler(cfg, svc.Tokens, svc.Store, dialer, svc.AILimiter)

	r := mux.NewRouter()
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(cfg))
	r.Use(middleware.RequestContext(svc.Tokens))
	r.Use(middleware.RequireAuth(svc.Tokens))

	// Preflight requests are answered by the CORS middleware.
	r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	r.HandleFunc("/", handlers.Root).Methods(http.MethodGet)
	r.HandleFunc("/health", healthHandler.Check).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	authLimited := middleware.RateLimit(svc.AuthLimiter)
	r.Handle("/token", authLimited(http.HandlerFunc(authHandler.Login))).Methods(http.MethodPost)
	r.Handle("/token/refresh", authLimited(http.HandlerFunc(authHandler.Refresh))).Methods(http.MethodPost)
	r.HandleFunc("/register", authHandler.Register).Methods(http.MethodPost)

	r.HandleFunc("/api/users/me", userHandler.Me).Methods(http.MethodGet)

	r.HandleFunc("/api/todos", todoHandler.List).Methods(http.MethodGet)
	r.HandleFunc("/api/todos", todoHandler.Create).Methods(http.MethodPost)
	r.HandleFunc("/api/todos/{id}", todoHandler.Get).Methods(http.MethodGet)
	r.HandleFunc("/api/todos/{id}", todoHandler.Update).Methods(http.MethodPut)
	r.HandleFunc("/api/todos/{id}", todoHandler.Delete).Methods(http.MethodDelete)

	aiLimited := middleware.RateLimit(svc.AILimiter)
	r.Handle("/api/ai/voice", aiLimited(http.HandlerFunc(aiHandler.Voice))).Methods(http.MethodPost)
	r.HandleFunc("/api/ai/voice/stream", voiceStream.HandleVoiceStream)

	return r
}
