package chatclient

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Tyrowin/gonotify/internal/envelope"
)

var (
	// ErrEmptyCommand is returned by ParseCommand for a blank line.
	ErrEmptyCommand = errors.New("chatclient: empty command")
	// ErrUnknownCommand is returned by ParseCommand for an unrecognised slash command.
	ErrUnknownCommand = errors.New("chatclient: unknown command")
)

// Command is one line of user input resolved to a frame type.
type Command struct {
	Type string
	Text string
}

// ParseCommand turns a line of input into a Command:
//
//	/notify <text>  personal notification, echoed back only to this client
//	/all <text>     notification broadcast to every client
//	<text>          chat message
//
// Text after /notify and /all is optional; the server fills in a default.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, ErrEmptyCommand
	}
	if !strings.HasPrefix(line, "/") {
		return Command{Type: envelope.TypeChat, Text: line}, nil
	}

	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch name {
	case "/notify":
		return Command{Type: envelope.TypeNotification, Text: rest}, nil
	case "/all":
		return Command{Type: envelope.TypeBroadcastNotification, Text: rest}, nil
	default:
		return Command{}, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
}
