package chatclient_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Tyrowin/gonotify/internal/chatclient"
	"github.com/Tyrowin/gonotify/internal/config"
	"github.com/Tyrowin/gonotify/internal/envelope"
	"github.com/Tyrowin/gonotify/internal/server"
	"github.com/Tyrowin/gonotify/internal/testhelpers"
)

func startServer(t *testing.T) (*server.Hub, string) {
	t.Helper()

	cfg := config.Default()
	cfg.AllowedOrigins = []string{testhelpers.TestOrigin}
	cfg.RateLimit.Burst = 1000
	logger := testhelpers.DiscardLogger()

	hub := server.NewHub(cfg, logger)
	srv := httptest.NewServer(server.SetupRoutes(hub, cfg, logger))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hub.Shutdown(ctx)
		srv.Close()
	})
	return hub, srv.URL
}

func dial(t *testing.T, hub *server.Hub, url, id, sender string) *chatclient.Client {
	t.Helper()
	want := hub.SessionCount() + 1

	c, err := chatclient.Dial(t.Context(), url, id, sender,
		chatclient.WithOrigin(testhelpers.TestOrigin),
		chatclient.WithLogger(testhelpers.DiscardLogger()),
	)
	if err != nil {
		t.Fatalf("Dial(%s): %v", id, err)
	}
	t.Cleanup(func() { _ = c.Close() })

	testhelpers.WaitFor(t, testhelpers.DefaultTimeout, func() bool {
		return hub.SessionCount() >= want
	}, "session to register")
	return c
}

func next(t *testing.T, c *chatclient.Client) envelope.Frame {
	t.Helper()
	select {
	case frame, ok := <-c.Messages():
		if !ok {
			t.Fatalf("connection ended: %v", c.Err())
		}
		return frame
	case <-time.After(testhelpers.DefaultTimeout):
		t.Fatal("timed out waiting for a frame")
	}
	return envelope.Frame{}
}

func TestClientChat(t *testing.T) {
	hub, url := startServer(t)
	alice := dial(t, hub, url, "alice", "Alice")
	bob := dial(t, hub, url, "bob", "")

	if err := alice.SendChat("hola"); err != nil {
		t.Fatalf("SendChat: %v", err)
	}
	testhelpers.AssertFrame(t, next(t, alice), envelope.TypeChat, "Alice", "hola")
	testhelpers.AssertFrame(t, next(t, bob), envelope.TypeChat, "Alice", "hola")

	if err := bob.SendChat("que tal"); err != nil {
		t.Fatalf("SendChat: %v", err)
	}
	testhelpers.AssertFrame(t, next(t, alice), envelope.TypeChat, envelope.DefaultSender, "que tal")
	testhelpers.AssertFrame(t, next(t, bob), envelope.TypeChat, envelope.DefaultSender, "que tal")
}

func TestClientNotifications(t *testing.T) {
	hub, url := startServer(t)
	alice := dial(t, hub, url, "alice", "Alice")
	bob := dial(t, hub, url, "bob", "Bob")

	if err := alice.SendNotification(""); err != nil {
		t.Fatalf("SendNotification: %v", err)
	}
	testhelpers.AssertFrame(t, next(t, alice), envelope.TypeNotification, "", envelope.DefaultPersonalNotification)

	if err := bob.SendBroadcastNotification("mantenimiento"); err != nil {
		t.Fatalf("SendBroadcastNotification: %v", err)
	}
	// Bob never saw the personal notification, so the broadcast is next for both.
	testhelpers.AssertFrame(t, next(t, alice), envelope.TypeNotification, "", "mantenimiento")
	testhelpers.AssertFrame(t, next(t, bob), envelope.TypeNotification, "", "mantenimiento")
}

func TestClientSendParsedCommand(t *testing.T) {
	hub, url := startServer(t)
	alice := dial(t, hub, url, "alice", "Alice")

	cmd, err := chatclient.ParseCommand("/notify listo")
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	if err := alice.Send(cmd); err != nil {
		t.Fatalf("Send: %v", err)
	}
	testhelpers.AssertFrame(t, next(t, alice), envelope.TypeNotification, "", "listo")
}

func TestClientSeesDeparture(t *testing.T) {
	hub, url := startServer(t)
	alice := dial(t, hub, url, "alice", "Alice")
	bob := dial(t, hub, url, "bob", "Bob")

	if err := bob.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	testhelpers.AssertFrame(t, next(t, alice), envelope.TypeChat, envelope.SystemSender, "Cliente 'bob' se ha desconectado.")

	if err := bob.SendChat("late"); !errors.Is(err, chatclient.ErrClosed) {
		t.Errorf("SendChat after Close = %v, want ErrClosed", err)
	}
	if err := bob.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestClientServerShutdown(t *testing.T) {
	hub, url := startServer(t)
	alice := dial(t, hub, url, "alice", "Alice")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hub.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	select {
	case _, ok := <-alice.Messages():
		if ok {
			t.Fatal("expected Messages to be closed")
		}
	case <-time.After(testhelpers.DefaultTimeout):
		t.Fatal("Messages not closed after server shutdown")
	}
	if err := alice.Err(); err != nil {
		t.Errorf("Err() = %v, want nil after a normal close", err)
	}
}

func TestDialRejectedOrigin(t *testing.T) {
	_, url := startServer(t)

	_, err := chatclient.Dial(t.Context(), url, "mallory", "",
		chatclient.WithOrigin("http://evil.example"),
		chatclient.WithLogger(testhelpers.DiscardLogger()),
	)
	if err == nil {
		t.Fatal("expected Dial to fail for a disallowed origin")
	}
}
