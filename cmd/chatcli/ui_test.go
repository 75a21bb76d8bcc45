package main

import (
	"testing"
	"time"

	"github.com/Tyrowin/gonotify/internal/envelope"
)

func TestFormatFrame(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 30, 15, 0, time.UTC)

	tests := []struct {
		name  string
		frame envelope.Frame
		want  string
	}{
		{
			name:  "chat",
			frame: envelope.Frame{Type: envelope.TypeChat, Sender: "Ana", Message: "hola"},
			want:  "[09:30:15] Ana: hola",
		},
		{
			name:  "system departure",
			frame: envelope.Frame{Type: envelope.TypeChat, Sender: envelope.SystemSender, Message: "Cliente 'b' se ha desconectado."},
			want:  "[09:30:15] Sistema: Cliente 'b' se ha desconectado.",
		},
		{
			name:  "notification",
			frame: envelope.Frame{Type: envelope.TypeNotification, Message: "listo"},
			want:  "[09:30:15] * listo",
		},
		{
			name:  "error",
			frame: envelope.Frame{Type: envelope.TypeError, Message: "Tipo de mensaje no reconocido."},
			want:  "[09:30:15] ! Tipo de mensaje no reconocido.",
		},
		{
			name:  "unknown type",
			frame: envelope.Frame{Type: "presence", Message: " x "},
			want:  "[09:30:15] ? presence x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatFrame(tt.frame, now); got != tt.want {
				t.Errorf("formatFrame() = %q, want %q", got, tt.want)
			}
		})
	}
}
