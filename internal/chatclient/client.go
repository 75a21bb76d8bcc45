// Package chatclient is a websocket client for the gonotify server. It backs
// the terminal client and is convenient in tests.
package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/gonotify/internal/envelope"
)

// ErrClosed is returned when sending on a closed client.
var ErrClosed = errors.New("chatclient: client closed")

const (
	defaultOrigin       = "http://localhost:8080"
	defaultBufferSize   = 64
	defaultWriteTimeout = 10 * time.Second
	closeGracePeriod    = time.Second
)

// Client is one websocket connection to the server. Incoming frames are
// delivered on Messages until the connection ends.
type Client struct {
	conn     *websocket.Conn
	sender   string
	logger   *slog.Logger
	messages chan envelope.Frame
	done     chan struct{}

	writeMu sync.Mutex
	closed  bool

	readErr   error
	readDone  chan struct{}
	closeOnce sync.Once
}

type options struct {
	origin     string
	bufferSize int
	logger     *slog.Logger
}

// Option configures Dial.
type Option func(*options)

// WithOrigin sets the Origin header sent during the handshake.
func WithOrigin(origin string) Option {
	return func(o *options) { o.origin = origin }
}

// WithBufferSize sets how many incoming frames are buffered before the
// reader waits for Messages to be drained.
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Endpoint builds the websocket URL for clientID on server. server may use
// the http, https, ws, or wss scheme.
func Endpoint(server, clientID string) (string, error) {
	u, err := url.Parse(strings.TrimRight(server, "/"))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server url %q has no host", server)
	}
	base := u.EscapedPath()
	u.Path += "/ws/" + clientID
	u.RawPath = base + "/ws/" + url.PathEscape(clientID)
	return u.String(), nil
}

// Dial connects to server as clientID. Chat messages are sent as sender;
// an empty sender lets the server apply its default.
func Dial(ctx context.Context, server, clientID, sender string, opts ...Option) (*Client, error) {
	o := options{
		origin:     defaultOrigin,
		bufferSize: defaultBufferSize,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	endpoint, err := Endpoint(server, clientID)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if o.origin != "" {
		header.Set("Origin", o.origin)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", endpoint, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	c := &Client{
		conn:     conn,
		sender:   sender,
		logger:   o.logger.With("client", clientID),
		messages: make(chan envelope.Frame, o.bufferSize),
		done:     make(chan struct{}),
		readDone: make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Messages returns the incoming frames. The channel is closed when the
// connection ends; Err then reports why.
func (c *Client) Messages() <-chan envelope.Frame {
	return c.messages
}

// Err returns the error that ended the connection, or nil for a normal
// close. It is only meaningful once Messages is closed.
func (c *Client) Err() error {
	select {
	case <-c.readDone:
		return c.readErr
	default:
		return nil
	}
}

func (c *Client) readLoop() {
	defer close(c.readDone)
	defer close(c.messages)

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !c.isClosed() {
				c.readErr = err
			}
			return
		}

		frame, err := envelope.DecodeFrame(raw)
		if err != nil {
			c.logger.Warn("dropping undecodable frame", "error", err)
			continue
		}

		select {
		case c.messages <- frame:
		case <-c.done:
			return
		}
	}
}

// SendChat sends a chat message to every connected client.
func (c *Client) SendChat(text string) error {
	return c.Send(Command{Type: envelope.TypeChat, Text: text})
}

// SendNotification asks the server for a notification addressed to this
// client only.
func (c *Client) SendNotification(text string) error {
	return c.Send(Command{Type: envelope.TypeNotification, Text: text})
}

// SendBroadcastNotification sends a notification to every connected client.
func (c *Client) SendBroadcastNotification(text string) error {
	return c.Send(Command{Type: envelope.TypeBroadcastNotification, Text: text})
}

// Send writes cmd as an inbound frame. Empty text is omitted so the server
// applies its default.
func (c *Client) Send(cmd Command) error {
	frame := envelope.Inbound{Type: cmd.Type}
	if cmd.Text != "" {
		frame.Message = &cmd.Text
	}
	if cmd.Type == envelope.TypeChat && c.sender != "" {
		frame.Sender = &c.sender
	}

	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return c.write(websocket.TextMessage, payload)
}

func (c *Client) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

func (c *Client) isClosed() bool {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.closed
}

// Close sends a close frame, waits briefly for the server to answer, and
// releases the connection. It is safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		deadline := time.Now().Add(closeGracePeriod)
		werr := c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.closed = true
		c.writeMu.Unlock()

		close(c.done)

		if werr == nil {
			select {
			case <-c.readDone:
			case <-time.After(closeGracePeriod):
			}
		}
		err = c.conn.Close()
		<-c.readDone
	})
	return err
}
