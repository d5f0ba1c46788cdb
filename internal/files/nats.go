package files

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Connect dials NATS with credentials file or user/password auth when set.
func Connect(url, cred, user, pass string) (*nats.Conn, error) {
	var opts []nats.Option

	if cred != "" {
		opts = append(opts, nats.UserCredentials(cred))
	} else if user != "" && pass != "" {
		opts = append(opts, nats.UserInfo(user, pass))
	}

	opts = append(opts, nats.Timeout(5*time.Second), nats.Name("chatroom"))

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("internal/files: failed to connect to nats: %w", err)
	}
	return conn, nil
}
