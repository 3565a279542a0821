// Package router exposes the relay's HTTP API with gin.
package router

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/i-akshat-jain/sequence-game/service/internal/cache"
	"github.com/i-akshat-jain/sequence-game/service/internal/database"
	"github.com/i-akshat-jain/sequence-game/service/internal/health"
	"github.com/i-akshat-jain/sequence-game/service/internal/room"
	log "github.com/sirupsen/logrus"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// Deps are the handlers' collaborators.
type Deps struct {
	Lobby          *room.Lobby
	Checker        *health.Checker
	WebSocket      http.HandlerFunc
	AllowedOrigins []string
	Mode           string // gin mode; empty keeps the current one.
}

// Setup builds the gin engine.
func Setup(d Deps) *gin.Engine {
	if d.Mode != "" {
		gin.SetMode(d.Mode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())
	r.Use(cors(d.AllowedOrigins))

	h := &handlers{Deps: d}
	r.GET("/healthz", h.health)
	if d.WebSocket != nil {
		r.GET("/ws", gin.WrapF(d.WebSocket))
	}

	v1 := r.Group("/api/v1")
	{
		rooms := v1.Group("/rooms")
		{
			rooms.GET("", h.listRooms)
			rooms.GET("/:id", h.getRoom)
			rooms.GET("/:id/layout", h.getLayout)
			rooms.GET("/:id/history", h.getHistory)
		}
	}
	return r
}

// requestLogger logs each request at debug level through logrus.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"status":  c.Writer.Status(),
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		}).Debug("http request")
	}
}

type handlers struct {
	Deps
}

func (h *handlers) health(c *gin.Context) {
	if h.Checker == nil {
		success(c, gin.H{"service": "sequence"})
		return
	}
	status := h.Checker.Check(c.Request.Context())
	if !status.Healthy() {
		c.JSON(http.StatusServiceUnavailable, Response{Code: CodeUnavailable, Message: "backend unavailable", Data: status})
		return
	}
	success(c, status)
}

func (h *handlers) listRooms(c *gin.Context) {
	success(c, h.Lobby.ListRooms())
}

func (h *handlers) getRoom(c *gin.Context) {
	view, err := h.Lobby.Room(c.Param("id"))
	if err != nil {
		lobbyError(c, err)
		return
	}
	success(c, view)
}

// getLayout serves the live game's layout, falling back to the last Redis
// snapshot when the room is gone or has not started a game.
func (h *handlers) getLayout(c *gin.Context) {
	id := c.Param("id")
	if r, ok := h.Lobby.Rooms().Get(id); ok {
		if layout := r.Layout(); layout != nil {
			success(c, layout)
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	st, err := cache.LoadSnapshot(ctx, id)
	switch {
	case errors.Is(err, cache.ErrNoSnapshot):
		lobbyError(c, room.ErrNoGame)
	case err != nil:
		log.Printf("Room %s: Failed loading snapshot: %v", id, err)
		fail(c, http.StatusInternalServerError, room.CodeInternal, "failed to load snapshot")
	case st.Layout == nil:
		lobbyError(c, room.ErrNoGame)
	default:
		success(c, st.Layout)
	}
}

func (h *handlers) getHistory(c *gin.Context) {
	limit := defaultHistoryLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxHistoryLimit {
			fail(c, http.StatusBadRequest, CodeInvalidParam, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	games, err := database.RecentGames(ctx, c.Param("id"), limit)
	if err != nil {
		log.Printf("Room %s: Failed loading history: %v", c.Param("id"), err)
		fail(c, http.StatusInternalServerError, room.CodeInternal, "failed to load history")
		return
	}
	if games == nil {
		games = []database.GameRecord{}
	}
	success(c, games)
}

func lobbyError(c *gin.Context, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, room.ErrRoomNotFound), errors.Is(err, room.ErrNoGame):
		status = http.StatusNotFound
	case room.Code(err) == room.CodeInternal:
		status = http.StatusInternalServerError
	}
	fail(c, status, room.Code(err), err.Error())
}
