// Package events fans public room events out over NATS so spectators and
// other relay nodes can follow a room.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// SubjectPrefix is the root of every room subject.
const SubjectPrefix = "sequence.room"

// RoomSubject returns the subject a room's events are published on.
func RoomSubject(roomID string) string {
	return fmt.Sprintf("%s.%s.events", SubjectPrefix, roomID)
}

// AllRoomsSubject matches the events of every room.
const AllRoomsSubject = SubjectPrefix + ".*.events"

// Envelope wraps an event with its room and publish time.
type Envelope struct {
	RoomID    string      `json:"roomId"`
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"` // Unix millis.
}

// Publisher publishes room events. A nil *Publisher or one without a
// connection drops events silently.
type Publisher struct {
	nc *nats.Conn
}

// Connect dials NATS with reconnects enabled.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("sequence-relay"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Printf("NATS reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	log.Printf("Connected to NATS at %s", nc.ConnectedUrl())
	return nc, nil
}

// NewPublisher wraps an open connection. nc may be nil.
func NewPublisher(nc *nats.Conn) *Publisher {
	return &Publisher{nc: nc}
}

// Enabled reports whether events actually leave the process.
func (p *Publisher) Enabled() bool {
	return p != nil && p.nc != nil
}

// PublishRoomEvent sends one event on the room's subject.
func (p *Publisher) PublishRoomEvent(roomID, eventType string, data interface{}) error {
	if !p.Enabled() {
		return nil
	}
	payload, err := json.Marshal(Envelope{
		RoomID:    roomID,
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("marshal room event: %w", err)
	}
	if err := p.nc.Publish(RoomSubject(roomID), payload); err != nil {
		log.WithFields(log.Fields{"roomId": roomID, "type": eventType}).Errorf("publish room event: %v", err)
		return err
	}
	return nil
}

// Subscribe delivers decoded events of one room, or of every room when
// roomID is empty.
func (p *Publisher) Subscribe(roomID string, fn func(Envelope)) (*nats.Subscription, error) {
	if !p.Enabled() {
		return nil, fmt.Errorf("nats disabled")
	}
	subject := AllRoomsSubject
	if roomID != "" {
		subject = RoomSubject(roomID)
	}
	return p.nc.Subscribe(subject, func(m *nats.Msg) {
		var env Envelope
		if err := json.Unmarshal(m.Data, &env); err != nil {
			log.Printf("Warning: dropping malformed room event on %s: %v", m.Subject, err)
			return
		}
		fn(env)
	})
}
