// Package testhelpers provides common utilities for testing the gonotify server.
//
// It wraps the repetitive parts of websocket tests: dialing with an allowed
// origin, writing typed frames, reading decoded frames with a deadline, and
// asserting on HTTP responses.
package testhelpers

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/gonotify/internal/envelope"
)

// TestOrigin is the Origin header sent by ConnectWebSocket.
const TestOrigin = "http://localhost:8080"

// DefaultTimeout bounds every blocking read made through these helpers.
const DefaultTimeout = 2 * time.Second

// DiscardLogger returns a logger that writes nowhere.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// WebSocketURL converts an httptest server URL into a websocket URL for the
// given client id.
func WebSocketURL(serverURL, clientID string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + "/ws/" + clientID
}

// AssertStatusCode checks if the HTTP response has the expected status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType checks if the HTTP response has the expected Content-Type header.
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	contentType := resp.Header.Get("Content-Type")
	if contentType != expected {
		t.Errorf("Expected content type %s, got %s", expected, contentType)
	}
}

// MakeRequest creates and executes an HTTP request, returning the response.
// The caller closes the body.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// ConnectWebSocket dials url with an allowed Origin header. The response is
// returned so callers can inspect failed handshakes; its body is already closed.
func ConnectWebSocket(url string) (*websocket.Conn, *http.Response, error) {
	return ConnectWebSocketWithOrigin(url, TestOrigin)
}

// ConnectWebSocketWithOrigin dials url with the given Origin header. An empty
// origin sends none.
func ConnectWebSocketWithOrigin(url, origin string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, resp, err
}

// MustConnect dials url and fails the test on error. The connection is closed
// when the test ends.
func MustConnect(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := ConnectWebSocket(url)
	if err != nil {
		t.Fatalf("Failed to connect to %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendFrame writes an inbound frame. Empty sender or message fields are
// omitted so the server applies its defaults.
func SendFrame(conn *websocket.Conn, msgType, sender, message string) error {
	frame := map[string]string{"type": msgType}
	if sender != "" {
		frame["sender"] = sender
	}
	if message != "" {
		frame["message"] = message
	}
	return conn.WriteJSON(frame)
}

// SendRawMessage sends a raw text frame.
func SendRawMessage(conn *websocket.Conn, data []byte) error {
	return conn.WriteMessage(websocket.TextMessage, data)
}

// ReceiveFrame reads and decodes the next frame within timeout.
func ReceiveFrame(conn *websocket.Conn, timeout time.Duration) (envelope.Frame, error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return envelope.Frame{}, err
	}
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return envelope.Frame{}, err
	}
	return envelope.DecodeFrame(raw)
}

// MustReceive reads the next frame and fails the test if none arrives.
func MustReceive(t *testing.T, conn *websocket.Conn) envelope.Frame {
	t.Helper()
	frame, err := ReceiveFrame(conn, DefaultTimeout)
	if err != nil {
		t.Fatalf("Failed to receive frame: %v", err)
	}
	return frame
}

// ExpectNoFrame fails the test if a frame arrives within wait.
func ExpectNoFrame(t *testing.T, conn *websocket.Conn, wait time.Duration) {
	t.Helper()
	frame, err := ReceiveFrame(conn, wait)
	if err == nil {
		t.Errorf("Expected no frame, got %+v", frame)
		return
	}
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Errorf("Expected read timeout, got %v", err)
	}
}

// AssertFrame checks every field of a received frame.
func AssertFrame(t *testing.T, got envelope.Frame, wantType, wantSender, wantMessage string) {
	t.Helper()
	if got.Type != wantType {
		t.Errorf("Expected type %q, got %q", wantType, got.Type)
	}
	if got.Sender != wantSender {
		t.Errorf("Expected sender %q, got %q", wantSender, got.Sender)
	}
	if got.Message != wantMessage {
		t.Errorf("Expected message %q, got %q", wantMessage, got.Message)
	}
}

// CloseWebSocket gracefully closes a websocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}

// WaitFor polls cond until it holds or timeout passes.
func WaitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting: %s", msg)
}
