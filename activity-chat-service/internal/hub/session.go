package hub

import "errors"

var (
	ErrSendBufferFull = errors.New("session send buffer full")
	ErrSessionClosed  = errors.New("session closed")
)

// Session is one live connection as the registry and router see it.
// Deliver must not block: it either queues the frame or fails.
type Session interface {
	ID() string
	UserID() string
	DisplayName() string
	Deliver(data []byte) error
}
