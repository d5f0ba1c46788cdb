package internal

import (
	"context"
	"log"
	"net/http"

	"github.com/johndosdos/chatroom/internal/auth"
	"github.com/johndosdos/chatroom/internal/chat"
)

// UploadTokenHeader carries the token issued in login_success.
const UploadTokenHeader = "X-Upload-Token"

// Authorizer resolves an upload token to a live session.
type Authorizer interface {
	Authorize(token string) (chat.Session, error)
}

// UploadAuth validates the upload token of the request against the live
// sessions. The session is appended to the context and the next handler is
// served; anything else is a 401.
func UploadAuth(authorizer Authorizer, maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Leave room for the multipart envelope around the file.
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)

			token := r.Header.Get(UploadTokenHeader)
			if token == "" {
				token = r.FormValue("token")
			}

			s, err := authorizer.Authorize(token)
			if err != nil {
				log.Printf("middleware: %v", err)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			r = r.WithContext(context.WithValue(r.Context(), auth.SessionKey, s))
			next.ServeHTTP(w, r)
		})
	}
}
