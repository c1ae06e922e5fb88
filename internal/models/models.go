package models

import (
	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	Email        string
	PassHash     []byte
	RefreshToken *string
}

type Quote struct {
	ID     uuid.UUID `json:"id"`
	Text   string    `json:"text"`
	Author string    `json:"author"`
	UserID uuid.UUID `json:"user_id"`
	Tags   []TagType `json:"tags"`
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Message is published to the mailer queue after a successful registration.
type Message struct {
	Email   string    `json:"to"`
	UserID  uuid.UUID `json:"user_id"`
	Purpose string    `json:"purpose"`
}

const RoleAdmin = "admin"
