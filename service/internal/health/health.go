// Package health reports the state of the relay's optional backends.
package health

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

const (
	StatusConnected     = "connected"
	StatusDisconnected  = "disconnected"
	StatusNotConfigured = "not configured"
)

// Status is the body of the health endpoint.
type Status struct {
	Service     string `json:"service"`
	Redis       string `json:"redis"`
	Postgres    string `json:"postgres"`
	NATS        string `json:"nats"`
	Connections int    `json:"connections"`
	Rooms       int    `json:"rooms"`
}

// Counter reports a size, such as open sockets or live rooms.
type Counter interface {
	Count() int
}

// Checker probes each backend that was configured. Nil backends are reported
// as not configured and do not make the service unhealthy.
type Checker struct {
	redisClient *redis.Client
	db          *pgxpool.Pool
	nc          *nats.Conn
	conns       Counter
	rooms       Counter
}

func NewChecker(redisClient *redis.Client, db *pgxpool.Pool, nc *nats.Conn, conns, rooms Counter) *Checker {
	return &Checker{redisClient: redisClient, db: db, nc: nc, conns: conns, rooms: rooms}
}

// Check runs every probe with a short timeout.
func (h *Checker) Check(ctx context.Context) *Status {
	status := &Status{
		Service:  "sequence",
		Redis:    StatusNotConfigured,
		Postgres: StatusNotConfigured,
		NATS:     StatusNotConfigured,
	}

	if h.redisClient != nil {
		rctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		status.Redis = probe(h.redisClient.Ping(rctx).Err())
		cancel()
	}
	if h.db != nil {
		dctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		status.Postgres = probe(h.db.Ping(dctx))
		cancel()
	}
	if h.nc != nil {
		if h.nc.IsConnected() {
			status.NATS = StatusConnected
		} else {
			status.NATS = StatusDisconnected
		}
	}

	if h.conns != nil {
		status.Connections = h.conns.Count()
	}
	if h.rooms != nil {
		status.Rooms = h.rooms.Count()
	}
	return status
}

func probe(err error) string {
	if err != nil {
		return StatusDisconnected
	}
	return StatusConnected
}

// Healthy reports whether no configured backend is down.
func (s *Status) Healthy() bool {
	return s.Redis != StatusDisconnected && s.Postgres != StatusDisconnected && s.NATS != StatusDisconnected
}
