package chat

import (
	"context"

	"github.com/johndosdos/chatroom/internal/model"
)

// Store is the persistent side of the chat: messages, reactions and profiles.
// Implementations may fail with any error; the hub wraps those in ErrStore.
type Store interface {
	InsertMessage(ctx context.Context, msg model.NewMessage) (model.Message, error)

	// RecentMessages returns the newest limit messages of room, oldest first.
	RecentMessages(ctx context.Context, room string, limit int) ([]model.Message, error)
	GetMessage(ctx context.Context, id int64) (model.Message, error)

	// UpsertReaction stores emoji as nickname's only reaction to messageID and
	// returns the emoji previously held, or "" if there was none.
	UpsertReaction(ctx context.Context, messageID int64, nickname, emoji string) (string, error)
	CountReactions(ctx context.Context, messageID int64, emoji string) (int, error)

	// GetProfile reports found=false when nickname has no profile row.
	GetProfile(ctx context.Context, nickname string) (url string, found bool, err error)
	UpsertProfile(ctx context.Context, nickname, url string) error
}
