package chat

import "errors"

var (
	// ErrDuplicateConnection is returned when a connection that already owns a
	// session tries to log in again.
	ErrDuplicateConnection = errors.New("chat: connection already has a session")

	// ErrNoSession is returned for events from a connection that has not logged in.
	ErrNoSession = errors.New("chat: no session for connection")

	// ErrTargetNotFound is returned when a whisper names a nickname with no live session.
	ErrTargetNotFound = errors.New("chat: whisper target not found")

	// ErrMessageNotFound is returned by Store.GetMessage for an unknown id.
	ErrMessageNotFound = errors.New("chat: message not found")

	ErrInvalidPayload = errors.New("chat: invalid payload")
	ErrMissingField   = errors.New("chat: missing field")
	ErrUnauthorized   = errors.New("chat: unauthorized")

	// ErrStore wraps any failure reported by the persistent store.
	ErrStore = errors.New("chat: store error")
)
