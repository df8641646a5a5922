// internal/game/conn.go
package game

import "context"

// Conn is the transport a Session sees for one client. The websocket
// handler wraps a live connection; tests substitute a recording sink.
type Conn interface {
	// Write pushes one serialized state message to the client.
	Write(ctx context.Context, data []byte) error

	// Close terminates the connection with a reason string the client
	// can branch on (kicked vs. room closed).
	Close(reason string) error
}
