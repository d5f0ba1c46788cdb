package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/johndosdos/chatroom/internal/auth"
)

// Authorize resolves an upload token to the live session that was issued
// it. Tokens of closed sessions, or of an earlier session on the same
// connection, are rejected.
func (h *Hub) Authorize(token string) (Session, error) {
	if token == "" {
		return Session{}, fmt.Errorf("%w: missing token", ErrUnauthorized)
	}

	connID, tokenID, err := auth.ValidateUploadToken(token, h.cfg.TokenSecret)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	s, ok := h.registry.Lookup(connID)
	if !ok || s.TokenID != tokenID {
		return Session{}, fmt.Errorf("%w: session is gone", ErrUnauthorized)
	}
	return s, nil
}

// UpdateProfile points the profile of the caller's nickname at url. The live
// session is updated even when the store write fails.
func (h *Hub) UpdateProfile(ctx context.Context, connID uuid.UUID, url string) error {
	s, ok := h.registry.Lookup(connID)
	if !ok {
		return ErrNoSession
	}
	h.registry.SetProfileURL(connID, url)

	sctx, cancel := h.storeCtx(ctx)
	defer cancel()

	start := time.Now()
	err := h.store.UpsertProfile(sctx, s.Nickname, url)
	observe("upsert_profile", start, err)
	if err != nil {
		slog.ErrorContext(ctx, "failed to store profile; keeping it in memory",
			"error", err,
			"nickname", s.Nickname)
	}

	slog.InfoContext(ctx, "profile updated",
		"nickname", s.Nickname,
		"url", url)
	return nil
}
