package models

import (
	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Player is a seat holder in a room and, once the game starts, in its game.
type Player struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	IsAdmin   bool            `json:"isAdmin"`
	Connected bool            `json:"isConnected"`
	Conn      *websocket.Conn `json:"-"`

	// Autoplay is set while the server plays this seat on the player's behalf.
	Autoplay bool `json:"autoplay,omitempty"`
}
