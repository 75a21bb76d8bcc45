package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Tyrowin/gonotify/internal/config"
	"github.com/Tyrowin/gonotify/internal/server"
	"github.com/Tyrowin/gonotify/internal/testhelpers"
)

func newTestHub(t *testing.T) *server.Hub {
	t.Helper()
	hub := server.NewHub(config.Default(), testhelpers.DiscardLogger())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hub.Shutdown(ctx)
	})
	return hub
}

// TestHealthHandler tests that the health endpoint reports status and counters as JSON.
func TestHealthHandler(t *testing.T) {
	hub := newTestHub(t)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		t.Run(method, func(t *testing.T) {
			req := httptest.NewRequest(method, "/health", http.NoBody)
			rr := httptest.NewRecorder()

			server.HealthHandler(hub)(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected content type application/json, got %s", ct)
			}

			var body struct {
				Status   string `json:"status"`
				Sessions int    `json:"sessions"`
				Stats    struct {
					Dispatched int64 `json:"dispatched"`
				} `json:"stats"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON body %q: %v", rr.Body.String(), err)
			}
			if body.Status != "ok" {
				t.Errorf("status = %q, want ok", body.Status)
			}
			if body.Sessions != 0 {
				t.Errorf("sessions = %d, want 0", body.Sessions)
			}
			if body.Stats.Dispatched != 0 {
				t.Errorf("dispatched = %d, want 0", body.Stats.Dispatched)
			}
		})
	}
}

// TestIndexHandler tests that the embedded browser client is served.
func TestIndexHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	rr := httptest.NewRecorder()

	server.IndexHandler(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Expected HTML content type, got %s", ct)
	}
	if !strings.Contains(rr.Body.String(), "new WebSocket(") {
		t.Error("index page does not open a websocket")
	}
}

// TestWebSocketHandlerRejectsRequests tests requests refused before any upgrade.
func TestWebSocketHandlerRejectsRequests(t *testing.T) {
	hub := newTestHub(t)
	origins := server.NewOriginPolicy([]string{testhelpers.TestOrigin}, testhelpers.DiscardLogger())
	handler := server.WebSocketHandler(hub, origins, testhelpers.DiscardLogger())

	tests := []struct {
		name     string
		method   string
		clientID string
		want     int
	}{
		{name: "POST is not allowed", method: http.MethodPost, clientID: "a", want: http.StatusMethodNotAllowed},
		{name: "PUT is not allowed", method: http.MethodPut, clientID: "a", want: http.StatusMethodNotAllowed},
		{name: "blank client id", method: http.MethodGet, clientID: "  ", want: http.StatusBadRequest},
		{name: "GET without upgrade headers", method: http.MethodGet, clientID: "a", want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/ws/x", http.NoBody)
			req.Header.Set("Origin", testhelpers.TestOrigin)
			req.SetPathValue("clientID", tt.clientID)
			rr := httptest.NewRecorder()

			handler(rr, req)

			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
			if tt.want == http.StatusMethodNotAllowed && rr.Header().Get("Allow") != http.MethodGet {
				t.Errorf("Allow header = %q, want GET", rr.Header().Get("Allow"))
			}
		})
	}

	if n := hub.SessionCount(); n != 0 {
		t.Errorf("SessionCount() = %d after rejected requests, want 0", n)
	}
}

// TestSetupRoutes tests that every route is wired to its handler.
func TestSetupRoutes(t *testing.T) {
	hub := newTestHub(t)
	mux := server.SetupRoutes(hub, config.Default(), testhelpers.DiscardLogger())

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{name: "index", method: http.MethodGet, path: "/", want: http.StatusOK},
		{name: "health", method: http.MethodGet, path: "/health", want: http.StatusOK},
		{name: "websocket wrong method", method: http.MethodPost, path: "/ws/alice", want: http.StatusMethodNotAllowed},
		{name: "unknown path", method: http.MethodGet, path: "/nope", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rr.Code, tt.want)
			}
		})
	}
}

// TestCreateServer tests the http.Server configuration.
func TestCreateServer(t *testing.T) {
	mux := http.NewServeMux()
	srv := server.CreateServer(":8080", mux)

	if srv.Addr != ":8080" {
		t.Errorf("Expected server addr :8080, got %s", srv.Addr)
	}
	if srv.Handler != mux {
		t.Error("Expected server handler to be the provided mux")
	}
	if srv.ReadTimeout != 15*time.Second {
		t.Errorf("Expected ReadTimeout 15s, got %v", srv.ReadTimeout)
	}
	if srv.WriteTimeout != 15*time.Second {
		t.Errorf("Expected WriteTimeout 15s, got %v", srv.WriteTimeout)
	}
	if srv.IdleTimeout != 60*time.Second {
		t.Errorf("Expected IdleTimeout 60s, got %v", srv.IdleTimeout)
	}
}
