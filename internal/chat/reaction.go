package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/johndosdos/chatroom/internal/metrics"
	"github.com/johndosdos/chatroom/internal/model"
)

const maxEmojiLen = 16

// React records emoji as the reaction of the caller to messageID, replacing
// any earlier reaction of the same nickname. The message must exist in the
// caller's room. The new count is broadcast to
// the room. When the nickname switched emojis, the decremented count of the
// abandoned emoji is broadcast first.
func (h *Hub) React(ctx context.Context, connID uuid.UUID, messageID int64, emoji string) (model.ReactionCount, error) {
	emoji = strings.TrimSpace(emoji)

	s, ok := h.registry.Lookup(connID)
	if !ok || messageID <= 0 || emoji == "" {
		return model.ReactionCount{}, fmt.Errorf("%w: session, message id and emoji are required", ErrMissingField)
	}
	if utf8.RuneCountInString(emoji) > maxEmojiLen || h.sanitizer.Sanitize(emoji) != emoji {
		return model.ReactionCount{}, ErrInvalidPayload
	}

	sctx, cancel := h.storeCtx(ctx)
	defer cancel()

	start := time.Now()
	msg, err := h.store.GetMessage(sctx, messageID)
	observe("get_message", start, err)
	switch {
	case errors.Is(err, ErrMessageNotFound):
		return model.ReactionCount{}, fmt.Errorf("%w: message %d does not exist", ErrMissingField, messageID)
	case err != nil:
		slog.ErrorContext(ctx, "failed to load reacted message",
			"error", err,
			"message_id", messageID)
		return model.ReactionCount{}, fmt.Errorf("%w: get message: %w", ErrStore, err)
	case msg.Room != s.Room:
		return model.ReactionCount{}, fmt.Errorf("%w: message %d is not in room %s", ErrMissingField, messageID, s.Room)
	}

	start = time.Now()
	prev, err := h.store.UpsertReaction(sctx, messageID, s.Nickname, emoji)
	observe("upsert_reaction", start, err)
	if err != nil {
		slog.ErrorContext(ctx, "failed to store reaction",
			"error", err,
			"message_id", messageID,
			"nickname", s.Nickname)
		return model.ReactionCount{}, fmt.Errorf("%w: upsert reaction: %w", ErrStore, err)
	}

	if prev != "" && prev != emoji {
		start = time.Now()
		old, err := h.store.CountReactions(sctx, messageID, prev)
		observe("count_reactions", start, err)
		if err != nil {
			slog.WarnContext(ctx, "failed to count abandoned reaction",
				"error", err,
				"message_id", messageID,
				"emoji", prev)
		} else {
			h.broadcaster.ToRoomAll(s.Room, model.Event{
				Type:     model.TypeReactionUpdated,
				Room:     s.Room,
				Reaction: &model.ReactionCount{MessageID: messageID, Emoji: prev, Count: old},
			})
		}
	}

	start = time.Now()
	count, err := h.store.CountReactions(sctx, messageID, emoji)
	observe("count_reactions", start, err)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count reaction",
			"error", err,
			"message_id", messageID,
			"emoji", emoji)
		return model.ReactionCount{}, fmt.Errorf("%w: count reactions: %w", ErrStore, err)
	}

	rc := model.ReactionCount{MessageID: messageID, Emoji: emoji, Count: count}
	h.broadcaster.ToRoomAll(s.Room, model.Event{
		Type:     model.TypeReactionUpdated,
		Room:     s.Room,
		Reaction: &rc,
	})
	metrics.Reactions.Inc()

	return rc, nil
}
