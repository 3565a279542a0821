package models

import "github.com/i-akshat-jain/sequence-game/engine"

// RoomSettings are chosen by the room admin and may be overridden at start.
type RoomSettings struct {
	MaxPlayers    int    `json:"maxPlayers" yaml:"max_players"`
	TurnTimeLimit int    `json:"turnTimeLimit" yaml:"turn_time_limit"` // Seconds; 0 disables the turn timer.
	GameMode      string `json:"gameMode" yaml:"game_mode"`

	// AutoplayDisconnected lets the server play for seats whose player dropped.
	AutoplayDisconnected bool `json:"autoplayDisconnected" yaml:"autoplay_disconnected"`

	Rules engine.Rules `json:"rules" yaml:"rules"`
}

// SettingsOverride carries the fields a start-game request may change.
// Nil fields keep the room's current value.
type SettingsOverride struct {
	MaxPlayers           *int          `json:"maxPlayers,omitempty"`
	TurnTimeLimit        *int          `json:"turnTimeLimit,omitempty"`
	GameMode             *string       `json:"gameMode,omitempty"`
	AutoplayDisconnected *bool         `json:"autoplayDisconnected,omitempty"`
	Rules                *engine.Rules `json:"rules,omitempty"`
}

// DefaultRoomSettings returns the settings a new room starts with.
func DefaultRoomSettings() RoomSettings {
	return RoomSettings{
		MaxPlayers:    4,
		TurnTimeLimit: 60,
		GameMode:      "classic",
		Rules:         engine.DefaultRules(),
	}
}

// Apply returns s with every non-nil field of o copied over.
func (s RoomSettings) Apply(o *SettingsOverride) RoomSettings {
	if o == nil {
		return s
	}
	if o.MaxPlayers != nil {
		s.MaxPlayers = *o.MaxPlayers
	}
	if o.TurnTimeLimit != nil {
		s.TurnTimeLimit = *o.TurnTimeLimit
	}
	if o.GameMode != nil {
		s.GameMode = *o.GameMode
	}
	if o.AutoplayDisconnected != nil {
		s.AutoplayDisconnected = *o.AutoplayDisconnected
	}
	if o.Rules != nil {
		s.Rules = *o.Rules
	}
	return s
}
