// Package model defines data structure.
package model

import (
	"time"
)

// Message holds information about a single persisted room message.
// Reply fields are a snapshot taken when the message was sent.
type Message struct {
	ID            int64     `json:"id"`
	Room          string    `json:"room"`
	Nickname      string    `json:"nickname"`
	Body          string    `json:"message"`
	CreatedAt     time.Time `json:"created_at"`
	FileURL       string    `json:"file_url,omitempty"`
	IsImage       bool      `json:"is_image,omitempty"`
	ReplyToID     *int64    `json:"reply_to,omitempty"`
	ReplyNickname string    `json:"reply_nickname,omitempty"`
	ReplySnippet  string    `json:"reply_snippet,omitempty"`
	ProfileURL    string    `json:"profile_url,omitempty"`
}

// NewMessage is the input for persisting a room message.
type NewMessage struct {
	Room          string
	Nickname      string
	Body          string
	FileURL       string
	IsImage       bool
	ReplyToID     *int64
	ReplyNickname string
	ReplySnippet  string
}

// ReactionCount is the number of distinct users holding Emoji on a message.
type ReactionCount struct {
	MessageID int64  `json:"message_id"`
	Emoji     string `json:"emoji"`
	Count     int    `json:"count"`
}
