package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/mux"

	"chat-status/internal/api"
	"chat-status/internal/auth"
	"chat-status/internal/config"
	"chat-status/internal/presence"
	"chat-status/internal/redis"
	"chat-status/internal/render"
	"chat-status/internal/store"
	"chat-status/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}
	setupLogging(cfg.LogLevel)

	var st store.Store
	if cfg.DBPath != "" {
		gs, err := store.OpenSQLite(cfg.DBPath)
		if err != nil {
			log.Fatal("Failed to open database: ", err)
		}
		slog.Info("Using SQLite store", "path", cfg.DBPath)
		st = gs
	} else {
		slog.Warn("No DB_PATH set, using in-memory store")
		st = store.NewMemory()
	}

	hub := ws.NewHub()

	if cfg.RedisURL != "" {
		bridge, err := redis.NewBridge(cfg.RedisURL)
		if err != nil {
			log.Fatal("Failed to connect to Redis: ", err)
		}
		defer bridge.Close()
		hub.SetRelay(bridge)
		go bridge.Listen(context.Background(), hub)
	}

	gateway := &ws.Gateway{
		Store:    st,
		Presence: presence.NewTracker(),
		Hub:      hub,
		Renderer: render.NewHTML(),
		Auth:     auth.NewVerifier(cfg.JWTSecret),
	}

	router := mux.NewRouter()
	router.HandleFunc("/ws/{room}", gateway.ServeWS)
	(&api.Handler{Store: st}).Register(router)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	slog.Info("Chat status server starting", "port", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, router))
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
