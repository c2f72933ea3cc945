package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mzheng/parley/internal/auth"
	"github.com/mzheng/parley/internal/config"
	"github.com/mzheng/parley/internal/handlers"
	"github.com/mzheng/parley/internal/middleware"
	"github.com/mzheng/parley/internal/moderation"
	"github.com/mzheng/parley/internal/presence"
	"github.com/mzheng/parley/internal/store/sqlstore"
	"github.com/mzheng/parley/internal/ws"
)

func main() {
	cfg := config.Load()

	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	auth.SetSecret(cfg.CookieSecret)

	store, err := sqlstore.New(cfg.DBDriver, cfg.DBDataSource)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}

	// Presence: Redis when configured, in-process otherwise.
	var tracker presence.Tracker = presence.NewMemoryTracker()
	if cfg.RedisURL != "" {
		rt, err := presence.NewRedisTracker(context.Background(), cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		tracker = rt
		logger.Info().Msg("using redis presence tracker")
	}

	hub := ws.NewHub(store, tracker, logger.With().Str("component", "hub").Logger())
	go hub.Run()

	mod := moderation.NewService(store, hub, logger.With().Str("component", "moderation").Logger())

	authHandler := &handlers.AuthHandler{Store: store}
	chatHandler := &handlers.ChatHandler{Store: store, Hub: hub, Moderation: mod}

	r := mux.NewRouter()
	r.Use(loggingMiddleware(logger))

	// Public endpoints
	r.HandleFunc("/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/login", authHandler.Login).Methods("POST")
	r.Handle("/metrics", promhttp.Handler())

	// Authenticated API
	api := r.NewRoute().Subrouter()
	api.Use(middleware.AuthMiddleware)
	api.HandleFunc("/chats", chatHandler.CreateChat).Methods("POST")
	api.HandleFunc("/chats", chatHandler.GetChats).Methods("GET")
	api.HandleFunc("/chats/{id}/invite", chatHandler.InviteUser).Methods("POST")
	api.HandleFunc("/chats/{id}/messages", chatHandler.GetChatMessages).Methods("GET")
	api.HandleFunc("/chats/{id}/members", chatHandler.GetChatMembers).Methods("GET")
	api.HandleFunc("/chats/{id}/ban", chatHandler.BanUser).Methods("POST")
	api.HandleFunc("/chats/{id}/unban", chatHandler.UnbanUser).Methods("POST")
	api.HandleFunc("/chats/{id}/bans", chatHandler.ListBans).Methods("GET")

	// WebSocket endpoint
	api.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		user, err := store.GetUserByID(userID)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		ws.ServeWs(hub, w, r, user)
	})

	logger.Info().Str("addr", cfg.Addr).Msg("starting server")
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func loggingMiddleware(logger zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("latency", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Msg("request completed")
		})
	}
}
