// Package store persists chat messages, reactions and profiles in Postgres.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/johndosdos/chatroom/internal/chat"
	"github.com/johndosdos/chatroom/internal/database"
	"github.com/johndosdos/chatroom/internal/model"
)

// ErrNotFound is returned when a message does not exist.
var ErrNotFound = chat.ErrMessageNotFound

// Postgres implements chat.Store on top of the sqlc queries.
type Postgres struct {
	queries *database.Queries
}

func NewPostgres(db database.DBTX) *Postgres {
	return &Postgres{queries: database.New(db)}
}

func (p *Postgres) InsertMessage(ctx context.Context, msg model.NewMessage) (model.Message, error) {
	params := database.CreateMessageParams{
		Room:          msg.Room,
		Nickname:      msg.Nickname,
		Body:          msg.Body,
		FileUrl:       msg.FileURL,
		IsImage:       msg.IsImage,
		ReplyNickname: msg.ReplyNickname,
		ReplySnippet:  msg.ReplySnippet,
	}
	if msg.ReplyToID != nil {
		params.ReplyToID = pgtype.Int8{Int64: *msg.ReplyToID, Valid: true}
	}

	row, err := p.queries.CreateMessage(ctx, params)
	if err != nil {
		return model.Message{}, fmt.Errorf("internal/store: failed to insert message: %w", err)
	}
	return fromRow(row), nil
}

func (p *Postgres) RecentMessages(ctx context.Context, room string, limit int) ([]model.Message, error) {
	rows, err := p.queries.ListRecentMessages(ctx, database.ListRecentMessagesParams{
		Room:  room,
		Limit: int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("internal/store: failed to list messages: %w", err)
	}

	msgs := make([]model.Message, 0, len(rows))
	for _, r := range rows {
		m := fromRow(database.Message{
			ID:            r.ID,
			Room:          r.Room,
			Nickname:      r.Nickname,
			Body:          r.Body,
			FileUrl:       r.FileUrl,
			IsImage:       r.IsImage,
			ReplyToID:     r.ReplyToID,
			ReplyNickname: r.ReplyNickname,
			ReplySnippet:  r.ReplySnippet,
			CreatedAt:     r.CreatedAt,
		})
		m.ProfileURL = r.ProfileUrl
		msgs = append(msgs, m)
	}

	// Rows come newest first.
	slices.Reverse(msgs)
	return msgs, nil
}

func (p *Postgres) GetMessage(ctx context.Context, id int64) (model.Message, error) {
	row, err := p.queries.GetMessage(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Message{}, ErrNotFound
		}
		return model.Message{}, fmt.Errorf("internal/store: failed to get message: %w", err)
	}
	return fromRow(row), nil
}

func (p *Postgres) UpsertReaction(ctx context.Context, messageID int64, nickname, emoji string) (string, error) {
	prev, err := p.queries.UpsertReaction(ctx, database.UpsertReactionParams{
		MessageID: messageID,
		Nickname:  nickname,
		Emoji:     emoji,
	})
	if err != nil {
		return "", fmt.Errorf("internal/store: failed to upsert reaction: %w", err)
	}
	return prev, nil
}

func (p *Postgres) CountReactions(ctx context.Context, messageID int64, emoji string) (int, error) {
	n, err := p.queries.CountReactions(ctx, database.CountReactionsParams{
		MessageID: messageID,
		Emoji:     emoji,
	})
	if err != nil {
		return 0, fmt.Errorf("internal/store: failed to count reactions: %w", err)
	}
	return int(n), nil
}

func (p *Postgres) GetProfile(ctx context.Context, nickname string) (string, bool, error) {
	profile, err := p.queries.GetProfile(ctx, nickname)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("internal/store: failed to get profile: %w", err)
	}
	return profile.ProfileUrl, true, nil
}

func (p *Postgres) UpsertProfile(ctx context.Context, nickname, url string) error {
	err := p.queries.UpsertProfile(ctx, database.UpsertProfileParams{
		Nickname:   nickname,
		ProfileUrl: url,
	})
	if err != nil {
		return fmt.Errorf("internal/store: failed to upsert profile: %w", err)
	}
	return nil
}

func fromRow(row database.Message) model.Message {
	m := model.Message{
		ID:            row.ID,
		Room:          row.Room,
		Nickname:      row.Nickname,
		Body:          row.Body,
		CreatedAt:     row.CreatedAt.Time,
		FileURL:       row.FileUrl,
		IsImage:       row.IsImage,
		ReplyNickname: row.ReplyNickname,
		ReplySnippet:  row.ReplySnippet,
	}
	if row.ReplyToID.Valid {
		id := row.ReplyToID.Int64
		m.ReplyToID = &id
	}
	return m
}
