// Package session owns one websocket connection: its receive loop, its
// outbound queue and writer, keepalive, and the Connecting/Open/Closed
// lifecycle.
package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

var (
	// ErrClosed is returned by Send once the session has been closed.
	ErrClosed = errors.New("session closed")

	// ErrSendBufferFull is returned by Send when the outbound queue is full.
	// The payload is dropped.
	ErrSendBufferFull = errors.New("session send buffer full")
)

// Conn is the part of *websocket.Conn a Session drives.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Handler receives lifecycle callbacks from Run. All callbacks for one
// session happen on the goroutine that called Run.
type Handler interface {
	// OnOpen is called once the writer is running and the session accepts sends.
	OnOpen(s *Session)
	// OnFrame is called for every inbound frame that passes the rate limit.
	OnFrame(s *Session, frame []byte)
	// OnClose is called once, after the session reached Closed. err is nil
	// for a clean disconnect.
	OnClose(s *Session, err error)
}

// State is a session lifecycle state.
type State int

// Lifecycle states.
const (
	Connecting State = iota
	Open
	Closed
)

func (st State) String() string {
	switch st {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(st))
	}
}

// Options tunes a session. Zero fields take the DefaultOptions value.
type Options struct {
	SendBufferSize int
	MaxMessageSize int64
	PingInterval   time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	RateBurst      int
	RateInterval   time.Duration
}

// DefaultOptions returns the stock session settings.
func DefaultOptions() Options {
	return Options{
		SendBufferSize: 256,
		MaxMessageSize: 4096,
		PingInterval:   54 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		RateBurst:      5,
		RateInterval:   time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SendBufferSize <= 0 {
		o.SendBufferSize = d.SendBufferSize
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = d.MaxMessageSize
	}
	if o.PingInterval <= 0 {
		o.PingInterval = d.PingInterval
	}
	if o.PongWait <= 0 {
		o.PongWait = d.PongWait
	}
	if o.WriteWait <= 0 {
		o.WriteWait = d.WriteWait
	}
	if o.RateBurst <= 0 {
		o.RateBurst = d.RateBurst
	}
	if o.RateInterval <= 0 {
		o.RateInterval = d.RateInterval
	}
	return o
}

// Session is one client connection. It is safe for concurrent Send and
// Close; Run must be called exactly once.
type Session struct {
	id      string
	label   string
	conn    Conn
	opts    Options
	logger  *slog.Logger
	limiter *rate.Limiter

	mu    sync.RWMutex
	state State
	send  chan []byte
}

// New wraps an upgraded connection. label is the client-supplied name used
// in logs and announcements.
func New(conn Conn, label string, opts Options, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.withDefaults()
	id := uuid.NewString()

	return &Session{
		id:      id,
		label:   label,
		conn:    conn,
		opts:    opts,
		logger:  logger.With("session_id", id, "client", label),
		limiter: rate.NewLimiter(rate.Every(opts.RateInterval/time.Duration(opts.RateBurst)), opts.RateBurst),
		state:   Connecting,
		send:    make(chan []byte, opts.SendBufferSize),
	}
}

// ID returns the unique session id.
func (s *Session) ID() string { return s.id }

// Label returns the client-supplied label.
func (s *Session) Label() string { return s.label }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Send queues payload for the writer without blocking.
func (s *Session) Send(payload []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == Closed {
		return ErrClosed
	}

	select {
	case s.send <- payload:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close moves the session to Closed. The writer flushes what is queued, sends
// a close frame and closes the connection, which ends the receive loop.
// Calling Close more than once is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Closed {
		return
	}
	s.state = Closed
	close(s.send)
}

// Run drives the session until the connection ends and returns nil for a
// clean disconnect or the error that ended it.
func (s *Session) Run(h Handler) error {
	s.mu.Lock()
	if s.state != Connecting {
		s.mu.Unlock()
		return fmt.Errorf("run session in state %s", s.state)
	}
	s.state = Open
	s.mu.Unlock()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writePump()
	}()

	h.OnOpen(s)
	err := s.readPump(h)

	s.Close()
	<-writerDone

	h.OnClose(s, err)
	return err
}

func (s *Session) readPump(h Handler) error {
	s.conn.SetReadLimit(s.opts.MaxMessageSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(s.opts.PongWait)); err != nil {
		s.logger.Warn("set read deadline", "error", err)
	}
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	})

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			return classifyReadError(err)
		}

		if !s.limiter.Allow() {
			s.logger.Warn("rate limit exceeded; discarding frame",
				"burst", s.opts.RateBurst,
				"interval", s.opts.RateInterval,
			)
			continue
		}

		h.OnFrame(s, frame)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer func() {
		ticker.Stop()
		s.closeConn()
	}()

	for {
		select {
		case payload, ok := <-s.send:
			if !ok {
				s.writeCloseFrame()
				return
			}
			if err := s.write(websocket.TextMessage, payload); err != nil {
				if !isExpectedCloseError(err) {
					s.logger.Warn("write failed", "error", err)
				}
				s.Close()
				return
			}

		case <-ticker.C:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				if !isExpectedCloseError(err) {
					s.logger.Warn("ping failed", "error", err)
				}
				s.Close()
				return
			}
		}
	}
}

func (s *Session) write(messageType int, data []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(messageType, data)
}

func (s *Session) writeCloseFrame() {
	err := s.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil && !isExpectedCloseError(err) {
		s.logger.Debug("write close frame", "error", err)
	}
}

func (s *Session) closeConn() {
	if err := s.conn.Close(); err != nil && !isExpectedCloseError(err) {
		s.logger.Warn("close connection", "error", err)
	}
}

// classifyReadError returns nil when err marks an ordinary disconnect.
func classifyReadError(err error) error {
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived) {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || isExpectedCloseError(err) {
		return nil
	}
	return err
}

func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, websocket.ErrCloseSent) || errors.Is(err, net.ErrClosed) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "broken pipe")
}
