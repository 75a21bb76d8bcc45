package server

import (
	"log/slog"
	"net/http"

	"github.com/Tyrowin/gonotify/internal/config"
)

// SetupRoutes configures and returns an HTTP ServeMux with all application
// routes: the browser client, the health check, and the websocket endpoint.
func SetupRoutes(hub *Hub, cfg *config.Config, logger *slog.Logger) *http.ServeMux {
	if cfg == nil {
		cfg = config.Default()
	}
	origins := NewOriginPolicy(cfg.AllowedOrigins, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", IndexHandler)
	mux.HandleFunc("/health", HealthHandler(hub))
	mux.HandleFunc("/ws/{clientID}", WebSocketHandler(hub, origins, logger))
	return mux
}
