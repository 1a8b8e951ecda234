package models

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Session is the payload of a recorded play session.
type Session struct {
	Game     string        `msgpack:"game"`
	PlayedAt time.Time     `msgpack:"played_at"`
	Duration time.Duration `msgpack:"duration"`
	Players  []string      `msgpack:"players"`
	Winner   string        `msgpack:"winner,omitempty"`
	Notes    string        `msgpack:"notes,omitempty"`
}

// LibraryItem is the payload of a game library entry.
type LibraryItem struct {
	Title  string `msgpack:"title"`
	Owned  bool   `msgpack:"owned"`
	Rating int    `msgpack:"rating,omitempty"`
	Plays  int    `msgpack:"plays"`
	Notes  string `msgpack:"notes,omitempty"`
}

// Payload is implemented by every batch domain payload.
type Payload interface {
	Session | LibraryItem
}

// DomainOf returns the domain a payload type belongs to.
func DomainOf[T Payload]() Domain {
	var zero T
	switch any(zero).(type) {
	case Session:
		return DomainSessions
	default:
		return DomainLibraryItems
	}
}

func EncodePayload[T Payload](v T) ([]byte, error) {
	b, err := msgpack.Marshal(&v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", DomainOf[T](), err)
	}
	return b, nil
}

func DecodePayload[T Payload](b []byte) (T, error) {
	var v T
	if err := msgpack.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("failed to decode %s payload: %w", DomainOf[T](), err)
	}
	return v, nil
}
