package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/johndosdos/chatroom/internal/metrics"
	"github.com/johndosdos/chatroom/internal/model"
)

const (
	whisperCommand = "/w"
	snippetLength  = 50
)

// Outcome kinds.
const (
	KindRoom    = "room"
	KindFile    = "file"
	KindWhisper = "whisper"
)

// Payload is an inbound chat message. FileURL is set for attachments that
// were already stored by the upload endpoint.
type Payload struct {
	Text    string
	ReplyTo *int64
	FileURL string
	IsImage bool
}

// Outcome describes what Route did with a payload.
type Outcome struct {
	Kind    string
	Message model.Message
	// Target is the whisper recipient.
	Target string
	// Persisted is false when a room message could not be stored.
	Persisted bool
}

// Route classifies a payload from connID and delivers it. Whispers go to a
// single session and are never stored. Everything else is stored and then
// broadcast to the whole room, sender included; a store failure is logged
// and the broadcast still happens.
func (h *Hub) Route(ctx context.Context, connID uuid.UUID, p Payload) (Outcome, error) {
	s, ok := h.registry.Lookup(connID)
	if !ok {
		return Outcome{}, ErrNoSession
	}

	if p.FileURL == "" {
		target, body, isWhisper, err := parseWhisper(p.Text)
		if isWhisper {
			if err != nil {
				return Outcome{}, err
			}
			// Nicknames are stored sanitized, so the target is looked up the same way.
			return h.whisper(ctx, s, h.sanitizer.Sanitize(target), h.sanitizer.Sanitize(body))
		}
	}

	body := strings.TrimSpace(h.sanitizer.Sanitize(p.Text))
	if body == "" && p.FileURL == "" {
		return Outcome{}, ErrInvalidPayload
	}

	// Sending implies the user stopped typing.
	if typing, changed := h.presence.SetTyping(s.Room, s.Nickname, false); changed {
		h.broadcaster.ToRoomAll(s.Room, model.Event{
			Type:   model.TypeTyping,
			Room:   s.Room,
			Typing: typing,
		})
	}

	nm := model.NewMessage{
		Room:     s.Room,
		Nickname: s.Nickname,
		Body:     body,
		FileURL:  p.FileURL,
		IsImage:  p.FileURL != "" && p.IsImage,
	}
	if p.ReplyTo != nil && *p.ReplyTo > 0 {
		h.attachReply(ctx, s, *p.ReplyTo, &nm)
	}

	sctx, cancel := h.storeCtx(ctx)
	start := time.Now()
	msg, err := h.store.InsertMessage(sctx, nm)
	cancel()
	observe("insert_message", start, err)

	persisted := err == nil
	if err != nil {
		slog.ErrorContext(ctx, "failed to store message; broadcasting anyway",
			"error", err,
			"room", s.Room,
			"nickname", s.Nickname)
		msg = model.Message{
			Room:          nm.Room,
			Nickname:      nm.Nickname,
			Body:          nm.Body,
			CreatedAt:     time.Now().UTC(),
			FileURL:       nm.FileURL,
			IsImage:       nm.IsImage,
			ReplyToID:     nm.ReplyToID,
			ReplyNickname: nm.ReplyNickname,
			ReplySnippet:  nm.ReplySnippet,
		}
	}
	msg.ProfileURL = s.ProfileURL

	kind := KindRoom
	if msg.FileURL != "" {
		kind = KindFile
	}
	metrics.MessagesRouted.WithLabelValues(kind).Inc()

	slog.InfoContext(ctx, "message routed",
		"room", s.Room,
		"nickname", s.Nickname,
		"kind", kind,
		"message_id", msg.ID)

	h.broadcaster.ToRoomAll(s.Room, model.Event{
		Type:    model.TypeChatMessage,
		Room:    s.Room,
		Message: &msg,
	})

	return Outcome{Kind: kind, Message: msg, Persisted: persisted}, nil
}

// attachReply fills the reply snapshot of nm. A reply to a message that
// cannot be loaded, or that belongs to another room, is sent as a plain
// message.
func (h *Hub) attachReply(ctx context.Context, s Session, replyTo int64, nm *model.NewMessage) {
	sctx, cancel := h.storeCtx(ctx)
	defer cancel()

	start := time.Now()
	orig, err := h.store.GetMessage(sctx, replyTo)
	observe("get_message", start, err)
	if err != nil {
		slog.WarnContext(ctx, "dropping reply reference",
			"error", err,
			"reply_to", replyTo,
			"room", s.Room)
		return
	}
	if orig.Room != s.Room {
		slog.WarnContext(ctx, "dropping cross-room reply reference",
			"reply_to", replyTo,
			"room", s.Room)
		return
	}

	id := orig.ID
	nm.ReplyToID = &id
	nm.ReplyNickname = orig.Nickname
	nm.ReplySnippet = snippet(orig.Body)
	if nm.ReplySnippet == "" && orig.FileURL != "" {
		nm.ReplySnippet = "[file]"
	}
}

func (h *Hub) whisper(ctx context.Context, from Session, targetNick, body string) (Outcome, error) {
	target, ok := h.registry.FindByNickname(targetNick)
	if !ok {
		h.broadcaster.ToConnection(from.ConnID, model.Event{
			Type: model.TypeWhisperFailed,
			To:   targetNick,
			Text: targetNick + " is not online",
		})
		return Outcome{Kind: KindWhisper, Target: targetNick}, ErrTargetNotFound
	}

	h.broadcaster.ToConnection(target.ConnID, model.Event{
		Type:       model.TypeReceivedPersonal,
		From:       from.Nickname,
		ProfileURL: from.ProfileURL,
		Text:       body,
	})
	h.broadcaster.ToConnection(from.ConnID, model.Event{
		Type: model.TypeSentPersonal,
		To:   target.Nickname,
		Text: body,
	})

	metrics.MessagesRouted.WithLabelValues(KindWhisper).Inc()
	slog.DebugContext(ctx, "whisper delivered",
		"from", from.Nickname,
		"to", target.Nickname)

	return Outcome{Kind: KindWhisper, Target: target.Nickname}, nil
}

var errNoWhisperTarget = fmt.Errorf("%w: whisper without target", ErrInvalidPayload)

// parseWhisper recognizes "/w <target> <body>". isWhisper is false for any
// other text; a whisper without a target yields an error.
func parseWhisper(text string) (target, body string, isWhisper bool, err error) {
	text = strings.TrimLeftFunc(text, unicode.IsSpace)
	rest, found := strings.CutPrefix(text, whisperCommand)
	if !found {
		return "", "", false, nil
	}
	if rest != "" && !unicode.IsSpace(rune(rest[0])) {
		// "/wave" is an ordinary message.
		return "", "", false, nil
	}

	rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
	if rest == "" {
		return "", "", true, errNoWhisperTarget
	}

	idx := strings.IndexFunc(rest, unicode.IsSpace)
	if idx < 0 {
		return rest, "", true, nil
	}
	return rest[:idx], strings.TrimSpace(rest[idx:]), true, nil
}

func snippet(s string) string {
	r := []rune(s)
	if len(r) <= snippetLength {
		return s
	}
	return string(r[:snippetLength]) + "…"
}

// IsSilent reports whether err should not be echoed back to the client.
func IsSilent(err error) bool {
	return errors.Is(err, ErrInvalidPayload) || errors.Is(err, ErrTargetNotFound)
}
