package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/johndosdos/chatroom/internal/chat"
	"github.com/johndosdos/chatroom/internal/model"
)

type roomMessagesResponse struct {
	Room     string          `json:"room"`
	Messages []model.Message `json:"messages"`
}

// ServeRoomMessages returns the recent history of a room, oldest first.
func ServeRoomMessages(hub *chat.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room := chi.URLParam(r, "room")
		if room == "" {
			respondError(w, r, http.StatusBadRequest, "room is required")
			return
		}

		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				respondError(w, r, http.StatusBadRequest, "limit must be a number")
				return
			}
			limit = n
		}

		msgs, err := hub.RoomHistory(r.Context(), room, limit)
		if err != nil {
			respondError(w, r, http.StatusServiceUnavailable, "history is unavailable")
			return
		}
		if msgs == nil {
			msgs = []model.Message{}
		}

		respondJSON(w, r, http.StatusOK, roomMessagesResponse{Room: room, Messages: msgs})
	}
}
