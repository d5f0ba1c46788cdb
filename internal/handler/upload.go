package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/johndosdos/chatroom/internal/auth"
	"github.com/johndosdos/chatroom/internal/chat"
	"github.com/johndosdos/chatroom/internal/files"
	"github.com/johndosdos/chatroom/internal/metrics"
)

// Upload kinds.
const (
	KindMessage = "message"
	KindProfile = "profile"
)

type uploadResponse struct {
	URL       string `json:"url"`
	IsImage   bool   `json:"is_image"`
	MessageID int64  `json:"message_id,omitempty"`
}

// ServeUpload stores a multipart "file" for the session put in the request
// context by the upload-token middleware. A "message" upload is posted to
// the session's room; a "profile" upload replaces the nickname's profile
// image.
func ServeUpload(hub *chat.Hub, store files.ObjectStore, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		s, err := auth.GetFromContext[chat.Session](ctx)
		if err != nil {
			respondError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}

		kind := r.FormValue("kind")
		if kind == "" {
			kind = KindMessage
		}
		if kind != KindMessage && kind != KindProfile {
			respondError(w, r, http.StatusBadRequest, "kind must be message or profile")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "file is required")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "failed to read file")
			return
		}
		if int64(len(data)) > maxBytes {
			respondError(w, r, http.StatusRequestEntityTooLarge, "file is too large")
			return
		}
		if len(data) == 0 {
			respondError(w, r, http.StatusBadRequest, "file is empty")
			return
		}

		contentType := files.DetectContentType(data, header.Header.Get("Content-Type"))
		isImage := files.IsImage(contentType)
		if kind == KindProfile && !isImage {
			respondError(w, r, http.StatusUnsupportedMediaType, "profile image must be an image")
			return
		}

		info, err := store.Put(ctx, files.ObjectName(header.Filename), data, contentType)
		if err != nil {
			slog.ErrorContext(ctx, "failed to store upload",
				"error", err,
				"nickname", s.Nickname)
			respondError(w, r, http.StatusInternalServerError, "failed to store file")
			return
		}
		url := "/files/" + info.Name
		resp := uploadResponse{URL: url, IsImage: isImage}

		switch kind {
		case KindProfile:
			err = hub.UpdateProfile(ctx, s.ConnID, url)

		case KindMessage:
			var out chat.Outcome
			out, err = hub.Route(ctx, s.ConnID, chat.Payload{
				Text:    r.FormValue("caption"),
				ReplyTo: parseReplyTo(r.FormValue("reply_to")),
				FileURL: url,
				IsImage: isImage,
			})
			resp.MessageID = out.Message.ID
		}
		if err != nil {
			if errors.Is(err, chat.ErrNoSession) {
				respondError(w, r, http.StatusUnauthorized, "session is gone")
				return
			}
			slog.ErrorContext(ctx, "failed to apply upload",
				"error", err,
				"kind", kind,
				"nickname", s.Nickname)
			respondError(w, r, http.StatusInternalServerError, "failed to apply upload")
			return
		}

		metrics.Uploads.WithLabelValues(kind).Inc()
		slog.InfoContext(ctx, "upload accepted",
			"kind", kind,
			"nickname", s.Nickname,
			"room", s.Room,
			"size", info.Size,
			"content_type", contentType)

		respondJSON(w, r, http.StatusCreated, resp)
	}
}

func parseReplyTo(v string) *int64 {
	if v == "" {
		return nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}
