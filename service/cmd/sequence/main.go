// Command sequence runs the Sequence relay: websocket rooms backed by the
// rules engine, with optional Redis, Postgres and NATS.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/i-akshat-jain/sequence-game/service/internal/cache"
	"github.com/i-akshat-jain/sequence-game/service/internal/config"
	"github.com/i-akshat-jain/sequence-game/service/internal/database"
	"github.com/i-akshat-jain/sequence-game/service/internal/events"
	"github.com/i-akshat-jain/sequence-game/service/internal/health"
	"github.com/i-akshat-jain/sequence-game/service/internal/room"
	"github.com/i-akshat-jain/sequence-game/service/internal/router"
	"github.com/i-akshat-jain/sequence-game/service/internal/ws"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.Logging.SetupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Redis.URL != "" {
		if err := cache.Connect(ctx, cfg.Redis.URL); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer cache.Close()
	} else {
		log.Info("REDIS_URL not set; action log and snapshots disabled.")
	}

	if cfg.DB.URL != "" {
		if err := database.Connect(ctx, cfg.DB.URL); err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer database.Close()
	} else {
		log.Info("DATABASE_URL not set; game history disabled.")
	}

	var nc *nats.Conn
	if cfg.NATS.URL != "" {
		nc, err = events.Connect(cfg.NATS.URL)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer nc.Drain()
	} else {
		log.Info("NATS_URL not set; room event fan-out disabled.")
	}

	repo := room.NewMemoryRepository(cfg.Rooms.IdleTimeout)
	hub := ws.NewHub(cfg.Server.AllowedOrigins, events.NewPublisher(nc))
	lobby := room.NewLobby(repo, cfg.Rooms.Defaults, room.NewTicketIssuer(cfg.Rooms.TicketSecret, cfg.Rooms.TicketTTL), hub)
	lobby.SnapshotTTL = cfg.Redis.SnapshotTTL
	hub.SetLobby(lobby)
	if cfg.Rooms.TicketSecret == "" {
		log.Warn("SEAT_TICKET_SECRET not set; seat tickets will not survive a restart.")
	}

	engine := router.Setup(router.Deps{
		Lobby:          lobby,
		Checker:        health.NewChecker(cache.Rdb, database.DB, nc, hub, repo),
		WebSocket:      hub.ServeWS,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Mode:           cfg.Server.GinMode,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Sequence relay listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := repo.Shutdown(shutdownCtx); err != nil {
		log.Printf("Room shutdown incomplete: %v", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown failed: %v", err)
	}
	log.Printf("Stopped. %d games finished this run.", lobby.GamesFinished())
}
