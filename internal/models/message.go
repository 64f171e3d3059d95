package models

import (
	"time"

	"github.com/google/uuid"
)

type Origin string

const (
	OriginUser   Origin = "user"
	OriginSystem Origin = "system"
)

// ChatMessage is one entry of a session's append-only log.
type ChatMessage struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Origin    Origin    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage stamps a message with a time-ordered UUIDv7 id.
func NewMessage(origin Origin, content string) ChatMessage {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ChatMessage{
		ID:        id.String(),
		Content:   content,
		Origin:    origin,
		Timestamp: time.Now(),
	}
}
