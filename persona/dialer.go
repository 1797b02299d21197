package persona

import (
	"context"

	"github.com/journee-live/ojin-persona-client/internal/serverclient"
)

// ServerDialer is the C2 Server Client Adapter contract the engine depends
// on. *serverclient.Client satisfies it; tests substitute a fake so the
// dispatcher/ingress/interrupt logic can be exercised without a real
// websocket dial, the same way the teacher's app.go depends on the
// Transporter interface rather than a concrete transport.
type ServerDialer interface {
	Connect(ctx context.Context) error
	StartInteraction() (serverclient.Handle, error)
	Send(msg serverclient.Message) error
	Receive(ctx context.Context) (*serverclient.Message, error)
	Close() error
}

var _ ServerDialer = (*serverclient.Client)(nil)
