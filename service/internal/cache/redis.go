// Package cache holds the Redis client used for the game action log and
// room state snapshots.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/i-akshat-jain/sequence-game/engine"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Rdb is the shared client. Nil means Redis is disabled and every helper in
// this package is a no-op.
var Rdb *redis.Client

const (
	// ActionsChannel is the pub/sub channel every logged action is announced on.
	ActionsChannel = "game_actions"
)

// ErrNoSnapshot is returned when a room has no saved state.
var ErrNoSnapshot = errors.New("no snapshot for room")

// GameActionRecord is one entry of a game's action log.
type GameActionRecord struct {
	GameID        uuid.UUID              `json:"gameId"`
	RoomID        string                 `json:"roomId"`
	ActionIndex   int                    `json:"actionIndex"`
	ActorUserID   uuid.UUID              `json:"actorUserId"` // Nil for game events.
	ActionType    string                 `json:"actionType"`
	ActionPayload map[string]interface{} `json:"actionPayload"`
	StateHash     uint64                 `json:"stateHash"`
	Timestamp     int64                  `json:"timestamp"` // Unix millis.
}

// Connect parses a redis:// URL, pings the server and installs the client as Rdb.
func Connect(ctx context.Context, url string) error {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("ping redis: %w", err)
	}
	Rdb = client
	log.Printf("Connected to Redis at %s", opts.Addr)
	return nil
}

// Close releases the shared client.
func Close() {
	if Rdb != nil {
		if err := Rdb.Close(); err != nil {
			log.Printf("Error closing Redis client: %v", err)
		}
		Rdb = nil
	}
}

func actionsKey(gameID uuid.UUID) string { return fmt.Sprintf("game:%s:actions", gameID) }

func snapshotKey(roomID string) string { return fmt.Sprintf("room:%s:state", roomID) }

// PublishGameAction appends rec to the game's action list and announces it
// on ActionsChannel in one pipeline.
func PublishGameAction(ctx context.Context, rec GameActionRecord) error {
	if Rdb == nil {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal action record: %w", err)
	}
	pipe := Rdb.TxPipeline()
	pipe.RPush(ctx, actionsKey(rec.GameID), data)
	pipe.Publish(ctx, ActionsChannel, data)
	_, err = pipe.Exec(ctx)
	return err
}

// GameActions returns a game's logged actions in order.
func GameActions(ctx context.Context, gameID uuid.UUID) ([]GameActionRecord, error) {
	if Rdb == nil {
		return nil, nil
	}
	raw, err := Rdb.LRange(ctx, actionsKey(gameID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]GameActionRecord, 0, len(raw))
	for _, s := range raw {
		var rec GameActionRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("decode action record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Snapshot is the public part of a game state: the table as any observer
// sees it. Deck order, hands and the shuffle seed are never stored.
type Snapshot struct {
	Phase             engine.Phase        `json:"gamePhase"`
	Board             engine.Board        `json:"board"`
	Layout            *engine.BoardLayout `json:"boardLayout,omitempty"`
	Sequences         []engine.Sequence   `json:"sequences"`
	Teams             []engine.Team       `json:"teams"`
	Players           []PlayerSnapshot    `json:"players"`
	CurrentPlayer     engine.PlayerID     `json:"currentPlayer"`
	Winner            engine.TeamID       `json:"winner,omitempty"`
	RequiredSequences int                 `json:"requiredSequences"`
	TurnNumber        int                 `json:"turnNumber"`
	DeckSize          int                 `json:"deckSize"`
	DiscardTop        *engine.Card        `json:"discardTop,omitempty"`
}

// PlayerSnapshot shows a seat's hand only as a count.
type PlayerSnapshot struct {
	ID       engine.PlayerID `json:"id"`
	Name     string          `json:"name"`
	Team     engine.TeamID   `json:"team"`
	HandSize int             `json:"handSize"`
}

// NewSnapshot copies the public fields of state.
func NewSnapshot(state *engine.GameState) *Snapshot {
	snap := &Snapshot{
		Phase:             state.Phase,
		Board:             state.Board,
		Layout:            state.Layout,
		Sequences:         append([]engine.Sequence{}, state.Sequences...),
		Teams:             state.Teams,
		Players:           make([]PlayerSnapshot, 0, len(state.Players)),
		CurrentPlayer:     state.CurrentPlayer,
		Winner:            state.Winner,
		RequiredSequences: state.RequiredSequences,
		TurnNumber:        state.TurnNumber,
		DeckSize:          len(state.Deck),
	}
	if n := len(state.DiscardPile); n > 0 {
		top := state.DiscardPile[n-1]
		snap.DiscardTop = &top
	}
	for _, p := range state.Players {
		snap.Players = append(snap.Players, PlayerSnapshot{ID: p.ID, Name: p.Name, Team: p.Team, HandSize: len(p.Hand)})
	}
	return snap
}

// SaveSnapshot stores the public view of the room's state with a TTL.
func SaveSnapshot(ctx context.Context, roomID string, state *engine.GameState, ttl time.Duration) error {
	if Rdb == nil || state == nil {
		return nil
	}
	data, err := json.Marshal(NewSnapshot(state))
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return Rdb.Set(ctx, snapshotKey(roomID), data, ttl).Err()
}

// LoadSnapshot returns the last saved snapshot of a room, or ErrNoSnapshot.
func LoadSnapshot(ctx context.Context, roomID string) (*Snapshot, error) {
	if Rdb == nil {
		return nil, ErrNoSnapshot
	}
	data, err := Rdb.Get(ctx, snapshotKey(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// DeleteSnapshot drops a room's saved state.
func DeleteSnapshot(ctx context.Context, roomID string) error {
	if Rdb == nil {
		return nil
	}
	return Rdb.Del(ctx, snapshotKey(roomID)).Err()
}
