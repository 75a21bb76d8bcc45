package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// CreateServer creates and configures an HTTP server with the specified port and handler.
// Websocket connections clear these deadlines on upgrade and manage their own.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// StartServer listens until the server is shut down. It returns nil after a
// graceful Shutdown.
func StartServer(server *http.Server, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("server listening", "addr", server.Addr)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ShutdownServer stops the HTTP listener, then closes every websocket
// session on the hub. Hijacked connections are not tracked by http.Server,
// so the hub waits for them itself.
func ShutdownServer(ctx context.Context, server *http.Server, hub *Hub, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("shutting down HTTP server")

	httpErr := server.Shutdown(ctx)
	if httpErr != nil {
		logger.Error("HTTP server shutdown error", "error", httpErr)
	}

	hubErr := hub.Shutdown(ctx)
	if hubErr != nil {
		logger.Error("hub shutdown error", "error", hubErr)
	}

	if err := errors.Join(httpErr, hubErr); err != nil {
		return err
	}
	logger.Info("server shutdown completed")
	return nil
}
