package internal

import (
	"context"

	"github.com/splashsrv/splashsrv/internal/core/client"
)

// Backend is an interface for a sub-server that handles a specific set of client
// interactions as part of the game flow.
type Backend interface {
	// Identifier returns a uniquely identifying string.
	Identifier() string

	// Init is called before a Backend is started as a hook for the Backend to
	// perform any necessary initialization before it can accept clients.
	Init(ctx context.Context) error

	// SetUpClient performs any initialization on the Client needed to be
	// able to begin the session.
	SetUpClient(c *client.Client)

	// Handle is the main entry point for processing client packets. It receives
	// one complete frame body at a time and is responsible for sending any
	// responses.
	Handle(ctx context.Context, c *client.Client, data []byte) error

	// Disconnect is called exactly once when the client's connection goes
	// away, whether by a clean close, an error, or a handler panic. Backends
	// release any session state held for the client here.
	Disconnect(c *client.Client)
}
