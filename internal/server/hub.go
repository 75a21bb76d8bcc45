package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Tyrowin/gonotify/internal/config"
	"github.com/Tyrowin/gonotify/internal/envelope"
	"github.com/Tyrowin/gonotify/internal/registry"
	"github.com/Tyrowin/gonotify/internal/router"
	"github.com/Tyrowin/gonotify/internal/session"
)

// ErrHubClosed is returned by Serve once Shutdown has begun.
var ErrHubClosed = errors.New("hub is shut down")

// Hub owns the session registry and router and runs each session's
// lifecycle: register on open, dispatch inbound frames, and on close
// unregister and announce the departure to everyone left.
type Hub struct {
	registry *registry.Registry[router.Recipient]
	router   *router.Router
	opts     session.Options
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

// NewHub creates a Hub whose sessions use the settings in cfg.
func NewHub(cfg *config.Config, logger *slog.Logger, opts ...router.Option) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.Default()
	}

	reg := registry.New[router.Recipient]()
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		registry: reg,
		router:   router.New(reg, logger, opts...),
		opts:     sessionOptions(cfg),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func sessionOptions(cfg *config.Config) session.Options {
	return session.Options{
		SendBufferSize: cfg.SendBufferSize,
		MaxMessageSize: cfg.MaxMessageSize,
		PingInterval:   cfg.PingInterval,
		PongWait:       cfg.PongWait,
		WriteWait:      cfg.WriteWait,
		RateBurst:      cfg.RateLimit.Burst,
		RateInterval:   cfg.RateLimit.RefillInterval,
	}
}

// Serve runs one upgraded connection until it ends. It blocks, so the caller
// must give each connection its own goroutine.
func (h *Hub) Serve(conn session.Conn, label string) error {
	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		_ = conn.Close()
		return ErrHubClosed
	}
	h.wg.Add(1)
	h.mu.Unlock()
	defer h.wg.Done()

	s := session.New(conn, label, h.opts, h.logger)
	return s.Run(h)
}

// OnOpen registers the session. It is now eligible for delivery.
func (h *Hub) OnOpen(s *session.Session) {
	h.registry.Register(s)
	if h.isClosing() {
		s.Close()
		return
	}
	h.logger.Info("session opened",
		"session_id", s.ID(),
		"client", s.Label(),
		"sessions", h.registry.Len(),
	)
}

// OnFrame routes one inbound frame.
func (h *Hub) OnFrame(s *session.Session, frame []byte) {
	h.router.Dispatch(h.ctx, frame, s)
}

// OnClose unregisters the session and tells the remaining sessions it left.
func (h *Hub) OnClose(s *session.Session, err error) {
	h.registry.Unregister(s)

	if err != nil {
		h.logger.Warn("session closed with error",
			"session_id", s.ID(),
			"client", s.Label(),
			"sessions", h.registry.Len(),
			"error", err,
		)
	} else {
		h.logger.Info("session closed",
			"session_id", s.ID(),
			"client", s.Label(),
			"sessions", h.registry.Len(),
		)
	}

	if !h.isClosing() {
		h.announceDeparture(s.Label())
	}
}

func (h *Hub) isClosing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closing
}

// announceDeparture is best effort; individual failures are already logged
// by the router and go no further.
func (h *Hub) announceDeparture(label string) {
	msg := fmt.Sprintf("Cliente '%s' se ha desconectado.", label)
	h.router.Broadcast(h.ctx, envelope.NewSystem(msg))
}

// SessionCount returns the number of open sessions.
func (h *Hub) SessionCount() int {
	return h.registry.Len()
}

// Stats returns the router counters.
func (h *Hub) Stats() router.Stats {
	return h.router.Stats()
}

// Shutdown stops accepting sessions, closes every open one, and waits for
// their goroutines to finish or for ctx to expire.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		return nil
	}
	h.closing = true
	h.mu.Unlock()

	sessions := h.registry.Snapshot()
	h.logger.Info("shutting down hub", "sessions", len(sessions))

	for _, rcpt := range sessions {
		if s, ok := rcpt.(*session.Session); ok {
			s.Close()
		}
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.cancel()
		h.logger.Info("hub shutdown completed")
		return nil
	case <-ctx.Done():
		h.cancel()
		h.logger.Warn("hub shutdown timed out; some sessions may still be running")
		return ctx.Err()
	}
}
