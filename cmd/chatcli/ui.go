package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jroimartin/gocui"

	"github.com/Tyrowin/gonotify/internal/chatclient"
	"github.com/Tyrowin/gonotify/internal/envelope"
)

const (
	messagesView = "messages"
	statusView   = "status"
	inputView    = "input"
)

const helpText = "Enter: send | /notify <text>: only me | /all <text>: everyone | Ctrl-C: quit"

// sender is the part of chatclient.Client the UI writes to.
type sender interface {
	Send(cmd chatclient.Command) error
}

// ChatUI renders incoming frames and turns input lines into commands.
type ChatUI struct {
	gui    *gocui.Gui
	client sender
	status string
}

// NewChatUI creates the terminal UI. The caller must call Close.
func NewChatUI(client sender, status string) (*ChatUI, error) {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return nil, err
	}

	ui := &ChatUI{
		gui:    g,
		client: client,
		status: status,
	}
	g.Cursor = true
	g.SetManagerFunc(ui.layout)

	if err := ui.keybindings(); err != nil {
		g.Close()
		return nil, err
	}
	return ui, nil
}

// Run blocks in the gocui main loop until the user quits.
func (ui *ChatUI) Run() error {
	if err := ui.gui.MainLoop(); err != nil && !errors.Is(err, gocui.ErrQuit) {
		return err
	}
	return nil
}

// Close restores the terminal.
func (ui *ChatUI) Close() {
	ui.gui.Close()
}

func (ui *ChatUI) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	msgHeight := maxY - 6

	if v, err := g.SetView(messagesView, 0, 0, maxX-1, msgHeight); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Messages"
		v.Wrap = true
		v.Autoscroll = true
	}

	if v, err := g.SetView(statusView, 0, msgHeight+1, maxX-1, msgHeight+3); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Status"
		fmt.Fprint(v, ui.status+" | "+helpText)
	}

	if v, err := g.SetView(inputView, 0, msgHeight+3, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Input"
		v.Editable = true
		v.Wrap = true

		if _, err := g.SetCurrentView(inputView); err != nil {
			return err
		}
	}

	return nil
}

func (ui *ChatUI) keybindings() error {
	if err := ui.gui.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone,
		func(*gocui.Gui, *gocui.View) error {
			return gocui.ErrQuit
		}); err != nil {
		return err
	}

	return ui.gui.SetKeybinding(inputView, gocui.KeyEnter, gocui.ModNone, ui.handleInput)
}

func (ui *ChatUI) handleInput(_ *gocui.Gui, v *gocui.View) error {
	line := v.Buffer()
	v.Clear()
	if err := v.SetCursor(0, 0); err != nil {
		return err
	}

	cmd, err := chatclient.ParseCommand(line)
	if errors.Is(err, chatclient.ErrEmptyCommand) {
		return nil
	}
	if err != nil {
		ui.Show(localLine(err.Error()))
		return nil
	}

	if err := ui.client.Send(cmd); err != nil {
		ui.Show(localLine("send failed: " + err.Error()))
	}
	return nil
}

// Show appends a line to the messages view. It is safe to call from any goroutine.
func (ui *ChatUI) Show(line string) {
	ui.gui.Update(func(g *gocui.Gui) error {
		v, err := g.View(messagesView)
		if err != nil {
			// Not laid out yet.
			return nil
		}
		fmt.Fprintln(v, line)
		return nil
	})
}

// SetStatus replaces the status bar text.
func (ui *ChatUI) SetStatus(status string) {
	ui.gui.Update(func(g *gocui.Gui) error {
		v, err := g.View(statusView)
		if err != nil {
			return nil
		}
		v.Clear()
		fmt.Fprint(v, status+" | "+helpText)
		return nil
	})
}

// formatFrame renders one incoming frame as a messages view line.
func formatFrame(f envelope.Frame, now time.Time) string {
	ts := now.Format("15:04:05")
	switch f.Type {
	case envelope.TypeChat:
		return fmt.Sprintf("[%s] %s: %s", ts, f.Sender, f.Message)
	case envelope.TypeNotification:
		return fmt.Sprintf("[%s] * %s", ts, f.Message)
	case envelope.TypeError:
		return fmt.Sprintf("[%s] ! %s", ts, f.Message)
	default:
		return fmt.Sprintf("[%s] ? %s %s", ts, f.Type, strings.TrimSpace(f.Message))
	}
}

func localLine(text string) string {
	return "-- " + text
}
