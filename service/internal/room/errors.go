package room

import "errors"

// Error is a lobby failure carrying the code sent to clients.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrRoomNotFound     = &Error{Code: "room-not-found", Message: "room not found"}
	ErrRoomExists       = &Error{Code: "room-exists", Message: "room already exists"}
	ErrRoomFull         = &Error{Code: "room-full", Message: "room is full"}
	ErrNameTaken        = &Error{Code: "name-taken", Message: "player name is already taken in this room"}
	ErrInvalidRoomID    = &Error{Code: "invalid-room-id", Message: "room id must be between 3 and 10 characters"}
	ErrInvalidName      = &Error{Code: "invalid-name", Message: "player name must be between 1 and 20 characters"}
	ErrNotAdmin         = &Error{Code: "not-admin", Message: "only the admin can start the game"}
	ErrNotEnoughPlayers = &Error{Code: "not-enough-players", Message: "need at least 2 players to start"}
	ErrUnsupportedCount = &Error{Code: "unsupported-player-count", Message: "player count not supported"}
	ErrGameInProgress   = &Error{Code: "game-in-progress", Message: "a game is already in progress"}
	ErrNoGame           = &Error{Code: "no-game", Message: "no game in progress"}
	ErrNotInRoom        = &Error{Code: "not-in-room", Message: "player is not in this room"}
	ErrInvalidTicket    = &Error{Code: "invalid-ticket", Message: "seat ticket is invalid or expired"}
	ErrInvalidSettings  = &Error{Code: "invalid-settings", Message: "room settings are invalid"}
)

// errStaleConn reports a leave from a socket that no longer owns the seat.
var errStaleConn = errors.New("connection no longer owns the seat")

// CodeInternal is reported for errors that are not lobby errors.
const CodeInternal = "internal-error"

// Code returns the client-facing code for err.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
