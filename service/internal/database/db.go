// Package database persists game records to PostgreSQL.
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// DB is the shared pool. Nil means persistence is disabled.
var DB *pgxpool.Pool

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id             UUID PRIMARY KEY,
	room_id        TEXT NOT NULL,
	initial_state  JSONB,
	final_state    JSONB,
	winner_team    TEXT,
	sequence_count INT NOT NULL DEFAULT 0,
	started_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	ended_at       TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS games_room_id_idx ON games (room_id);
`

// Connect opens the pool, checks the connection and applies the schema.
func Connect(ctx context.Context, url string) error {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return fmt.Errorf("apply schema: %w", err)
	}
	DB = pool
	log.Printf("Connected to PostgreSQL at %s/%s", cfg.ConnConfig.Host, cfg.ConnConfig.Database)
	return nil
}

// Close releases the shared pool.
func Close() {
	if DB != nil {
		DB.Close()
		DB = nil
	}
}

// UpsertInitialGameState records a game's dealt state. Runs detached from any
// request, so it uses its own timeout and only logs failures.
func UpsertInitialGameState(gameID uuid.UUID, roomID string, snapshot interface{}) {
	if DB == nil {
		return
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		log.Printf("Error: Game %s: marshal initial state: %v", gameID, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = DB.Exec(ctx, `
		INSERT INTO games (id, room_id, initial_state)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET initial_state = EXCLUDED.initial_state`,
		gameID, roomID, data)
	if err != nil {
		log.Printf("Error: Game %s: storing initial state: %v", gameID, err)
	}
}

// StoreFinalGameState records the outcome of a finished game.
func StoreFinalGameState(ctx context.Context, gameID uuid.UUID, winnerTeam string, sequenceCount int, snapshot interface{}) error {
	if DB == nil {
		return nil
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal final state: %w", err)
	}
	var winner *string
	if winnerTeam != "" {
		winner = &winnerTeam
	}
	_, err = DB.Exec(ctx, `
		UPDATE games
		SET final_state = $2, winner_team = $3, sequence_count = $4, ended_at = now()
		WHERE id = $1`,
		gameID, data, winner, sequenceCount)
	if err != nil {
		return fmt.Errorf("store final state: %w", err)
	}
	return nil
}

// GameRecord is a stored game summary.
type GameRecord struct {
	ID            uuid.UUID  `json:"id"`
	RoomID        string     `json:"roomId"`
	WinnerTeam    *string    `json:"winnerTeam,omitempty"`
	SequenceCount int        `json:"sequenceCount"`
	StartedAt     time.Time  `json:"startedAt"`
	EndedAt       *time.Time `json:"endedAt,omitempty"`
}

// RecentGames lists the latest games played in a room, newest first.
func RecentGames(ctx context.Context, roomID string, limit int) ([]GameRecord, error) {
	if DB == nil {
		return nil, nil
	}
	rows, err := DB.Query(ctx, `
		SELECT id, room_id, winner_team, sequence_count, started_at, ended_at
		FROM games WHERE room_id = $1
		ORDER BY started_at DESC LIMIT $2`, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GameRecord
	for rows.Next() {
		var r GameRecord
		if err := rows.Scan(&r.ID, &r.RoomID, &r.WinnerTeam, &r.SequenceCount, &r.StartedAt, &r.EndedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
