package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/johndosdos/chatroom/internal/files"
)

// ServeFile streams a stored upload. Non-image files are served as
// attachments.
func ServeFile(store files.ObjectStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		data, info, err := store.Get(r.Context(), name)
		if err != nil {
			if errors.Is(err, files.ErrNotFound) {
				respondError(w, r, http.StatusNotFound, "file not found")
				return
			}
			slog.ErrorContext(r.Context(), "failed to read file",
				"error", err,
				"name", name)
			respondError(w, r, http.StatusInternalServerError, "failed to read file")
			return
		}

		w.Header().Set("Content-Type", info.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("X-Content-Type-Options", "nosniff")
		// Object names are never reused.
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		if !files.IsImage(info.ContentType) {
			w.Header().Set("Content-Disposition", "attachment")
		}

		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(data); err != nil {
			slog.WarnContext(r.Context(), "failed to write file",
				"error", err,
				"name", name)
		}
	}
}
