package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Tyrowin/gonotify/internal/chatclient"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "server base URL")
	clientID := flag.String("id", "", "client id used in the websocket path (random if empty)")
	name := flag.String("name", "", "sender name for chat messages")
	origin := flag.String("origin", "http://localhost:8080", "Origin header sent on connect")
	flag.Parse()

	if *clientID == "" {
		*clientID = "cli-" + uuid.NewString()[:8]
	}

	if err := run(*serverURL, *clientID, *name, *origin); err != nil {
		fmt.Fprintln(os.Stderr, "chatcli:", err)
		os.Exit(1)
	}
}

func run(serverURL, clientID, name, origin string) error {
	// The terminal belongs to gocui; diagnostics would corrupt it.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dialCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := chatclient.Dial(dialCtx, serverURL, clientID, name,
		chatclient.WithOrigin(origin),
		chatclient.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	ui, err := NewChatUI(client, fmt.Sprintf("%s as %s", serverURL, clientID))
	if err != nil {
		return err
	}
	defer ui.Close()

	var g errgroup.Group
	g.Go(func() error {
		for frame := range client.Messages() {
			ui.Show(formatFrame(frame, time.Now()))
		}
		if err := client.Err(); err != nil {
			ui.SetStatus("disconnected: " + err.Error())
		} else {
			ui.SetStatus("disconnected")
		}
		return nil
	})

	runErr := ui.Run()
	_ = client.Close()
	_ = g.Wait()
	return runErr
}
