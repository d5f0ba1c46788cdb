package model

// Client -> server event types.
const (
	TypeLogin           = "login"
	TypeChatMessage     = "chat_message"
	TypeTypingStart     = "typing_start"
	TypeTypingStop      = "typing_stop"
	TypeReaction        = "reaction"
	TypeGetPastMessages = "get_past_messages"
)

// Server -> client event types. TypeChatMessage is shared by both directions.
const (
	TypeLoginSuccess     = "login_success"
	TypePresence         = "presence"
	TypeNotification     = "notification"
	TypePastMessages     = "past_messages"
	TypeSentPersonal     = "sent_personal"
	TypeReceivedPersonal = "received_personal"
	TypeWhisperFailed    = "whisper_failed"
	TypeTyping           = "typing"
	TypeReactionUpdated  = "reaction_updated"
	TypeError            = "error"
	TypeRateLimited      = "rate_limited"
)

// ClientEvent is the JSON envelope sent by clients over the websocket.
// Only the fields relevant to Type are read.
type ClientEvent struct {
	Type      string `json:"type"`
	Nickname  string `json:"nickname,omitempty"`
	Room      string `json:"room,omitempty"`
	Message   string `json:"message,omitempty"`
	ReplyTo   *int64 `json:"reply_to,omitempty"`
	MessageID int64  `json:"message_id,omitempty"`
	Emoji     string `json:"emoji,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// Event is the JSON envelope delivered to clients.
type Event struct {
	Type       string         `json:"type"`
	Room       string         `json:"room,omitempty"`
	Nickname   string         `json:"nickname,omitempty"`
	ProfileURL string         `json:"profile_url,omitempty"`
	Token      string         `json:"token,omitempty"`
	From       string         `json:"from,omitempty"`
	To         string         `json:"to,omitempty"`
	Text       string         `json:"text,omitempty"`
	Code       string         `json:"code,omitempty"`
	Users      []string       `json:"users,omitempty"`
	Typing     []string       `json:"typing,omitempty"`
	Message    *Message       `json:"message,omitempty"`
	Messages   []Message      `json:"messages,omitempty"`
	Reaction   *ReactionCount `json:"reaction,omitempty"`
}
