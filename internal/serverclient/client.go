// Package serverclient implements the Server Client Adapter (C2) and the
// Connect/Retry Supervisor (C8) from spec.md §4.2/§4.8: a typed duplex
// connection to the persona inference server, and bounded-retry connection
// establishment on top of it.
//
// The wire-level duplex transport itself is the excluded collaborator named
// in spec.md §1 ("the wire-level websocket client, assumed to provide typed
// send/receive and an opaque interaction handle"); this package is the thin
// typed layer spec.md asks the engine to depend on, built on
// gorilla/websocket the way the teacher's client/transport.go builds its
// Transporter on a concrete session type.
package serverclient

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Handle is a local correlation identifier minted for each interaction
// (session start or interrupt recovery). The real persona-server-side
// session bracket lives entirely inside the wire-level transport this
// package wraps; Handle exists so the engine and logs have something
// stable to refer to across a StartInteraction call.
type Handle string

// Client is the C2 adapter: connect, start an interaction, send/receive
// typed messages, close. Safe for concurrent Send calls (serialized by a
// write mutex, matching transport.go's ctrlMu pattern); Receive is meant
// to be called from a single dispatcher goroutine.
type Client struct {
	wsURL           string
	apiKey          string
	ojinMode        string
	personaConfigID string

	writeMu sync.Mutex
	conn    *websocket.Conn

	incoming chan Message
	readErr  chan error
	closed   chan struct{}
	closeMu  sync.Once
}

// New returns a Client configured to dial wsURL. apiKey is sent as a
// bearer-style header; ojinMode, if non-empty, is passed through as a
// query parameter (spec.md §6 OJIN_MODE passthrough). personaConfigID, if
// non-empty, identifies the avatar on the server (spec.md §6) and is
// likewise passed through as a query parameter.
func New(wsURL, apiKey, ojinMode, personaConfigID string) *Client {
	return &Client{
		wsURL:           wsURL,
		apiKey:          apiKey,
		ojinMode:        ojinMode,
		personaConfigID: personaConfigID,
	}
}

// Connect dials the persona server. Failures are wrapped as *ConnectionError
// (transient — safe to retry) except for handshake rejections that carry an
// HTTP 401/403, which are wrapped as *ProtocolError (fatal — authentication
// is not going to succeed on retry).
func (c *Client) Connect(ctx context.Context) error {
	dialURL := c.wsURL
	if c.ojinMode != "" || c.personaConfigID != "" {
		u, err := url.Parse(c.wsURL)
		if err != nil {
			return &ProtocolError{Err: fmt.Errorf("invalid ws_url: %w", err)}
		}
		q := u.Query()
		if c.ojinMode != "" {
			q.Set("ojin_mode", c.ojinMode)
		}
		if c.personaConfigID != "" {
			q.Set("persona_config_id", c.personaConfigID)
		}
		u.RawQuery = q.Encode()
		dialURL = u.String()
	}

	header := http.Header{}
	if c.apiKey != "" {
		header.Set("Authorization", "Bearer "+c.apiKey)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, dialURL, header)
	if err != nil {
		if errors.Is(err, websocket.ErrBadHandshake) && resp != nil &&
			(resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return &ProtocolError{Err: fmt.Errorf("handshake rejected: %s", resp.Status)}
		}
		return &ConnectionError{Err: err}
	}

	c.conn = conn
	c.incoming = make(chan Message, 16)
	c.readErr = make(chan error, 1)
	c.closed = make(chan struct{})

	go c.readLoop()
	return nil
}

// readLoop is the sole reader of the websocket connection, per
// gorilla/websocket's single-reader requirement; it mirrors transport.go's
// readControl goroutine.
func (c *Client) readLoop() {
	defer close(c.incoming)
	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			select {
			case c.readErr <- err:
			default:
			}
			return
		}
		select {
		case c.incoming <- msg:
		case <-c.closed:
			return
		}
	}
}

// StartInteraction mints a fresh local Handle for a new interaction bracket
// (initial session start, or interrupt recovery per spec.md §3 Lifecycles).
func (c *Client) StartInteraction() (Handle, error) {
	if c.conn == nil {
		return "", fmt.Errorf("serverclient: not connected")
	}
	return Handle(uuid.NewString()), nil
}

// Send writes msg to the server. Writes are serialized with a mutex,
// matching transport.go's ctrlMu write-serialization pattern since
// gorilla/websocket connections are not safe for concurrent writers.
func (c *Client) Send(msg Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("serverclient: not connected")
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("serverclient: send %s: %w", msg.Type, err)
	}
	return nil
}

// Receive blocks until the next message arrives or ctx is cancelled. Once
// the read loop has stopped, it returns the read error that stopped it (a
// close frame from the server included), or (nil, nil) when the loop
// stopped after Close without recording an error.
func (c *Client) Receive(ctx context.Context) (*Message, error) {
	select {
	case msg, ok := <-c.incoming:
		if !ok {
			select {
			case err := <-c.readErr:
				return nil, err
			default:
				return nil, nil
			}
		}
		return &msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close tears down the connection. Idempotent.
func (c *Client) Close() error {
	var err error
	c.closeMu.Do(func() {
		if c.closed != nil {
			close(c.closed)
		}
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

// logPrefix is used by callers that want consistent bracket-tagged logging
// for this package, matching the teacher's "[component]" convention.
const logPrefix = "[serverclient]"

func logf(format string, args ...any) {
	log.Printf(logPrefix+" "+format, args...)
}
