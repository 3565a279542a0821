package room

import (
	"crypto/rand"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const ticketIssuer = "sequence-rooms"

// SeatClaims identifies a seat in a room. The subject is the player ID.
type SeatClaims struct {
	RoomID     string `json:"room_id"`
	PlayerName string `json:"player_name"`
	IsAdmin    bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// TicketIssuer signs and verifies seat tickets, which let a client reclaim
// its seat after the socket drops.
type TicketIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTicketIssuer returns an HS256 issuer. An empty secret is replaced by a
// random one, so tickets only survive as long as the process.
func NewTicketIssuer(secret string, ttl time.Duration) *TicketIssuer {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		rand.Read(key)
	}
	return &TicketIssuer{secret: key, ttl: ttl}
}

// Issue signs a ticket for the player's seat in roomID.
func (t *TicketIssuer) Issue(roomID string, playerID uuid.UUID, name string, isAdmin bool) (string, error) {
	now := time.Now()
	claims := &SeatClaims{
		RoomID:     roomID,
		PlayerName: name,
		IsAdmin:    isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   playerID.String(),
			Issuer:    ticketIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse verifies a ticket and returns its claims and player ID.
func (t *TicketIssuer) Parse(ticket string) (*SeatClaims, uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(ticket, &SeatClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidTicket
		}
		return t.secret, nil
	}, jwt.WithIssuer(ticketIssuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, uuid.Nil, &Error{Code: ErrInvalidTicket.Code, Message: "seat ticket has expired"}
		}
		return nil, uuid.Nil, ErrInvalidTicket
	}
	claims, ok := token.Claims.(*SeatClaims)
	if !ok || !token.Valid {
		return nil, uuid.Nil, ErrInvalidTicket
	}
	playerID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, uuid.Nil, ErrInvalidTicket
	}
	return claims, playerID, nil
}
