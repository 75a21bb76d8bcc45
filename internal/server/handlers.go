package server

import (
	_ "embed"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/gonotify/internal/router"
)

//go:embed static/index.html
var indexPage []byte

// WebSocketHandler upgrades GET /ws/{clientID} and runs the connection on the
// hub until it ends. clientID only labels the session.
func WebSocketHandler(hub *Hub, origins *OriginPolicy, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     origins.CheckOrigin,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		clientID := strings.TrimSpace(r.PathValue("clientID"))
		if clientID == "" {
			http.Error(w, "client id is required", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the HTTP error.
			logger.Warn("websocket upgrade failed", "client", clientID, "remote", r.RemoteAddr, "error", err)
			return
		}

		if err := hub.Serve(conn, clientID); errors.Is(err, ErrHubClosed) {
			logger.Info("rejected session during shutdown", "client", clientID)
		}
	}
}

type healthResponse struct {
	Status   string       `json:"status"`
	Sessions int          `json:"sessions"`
	Stats    router.Stats `json:"stats"`
}

// HealthHandler reports liveness, the open session count, and router counters.
func HealthHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(healthResponse{
			Status:   "ok",
			Sessions: hub.SessionCount(),
			Stats:    hub.Stats(),
		})
	}
}

// IndexHandler serves the built-in browser client.
func IndexHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexPage)
}
