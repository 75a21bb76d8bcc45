// Package envelope defines the typed messages exchanged over a session and
// their JSON wire form.
package envelope

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Variant identifies the kind of an Envelope.
type Variant int

// Envelope variants. PersonalNotification and System share the wire type of
// Notification and Chat respectively; they differ only in how they are routed.
const (
	Chat Variant = iota
	Notification
	PersonalNotification
	Error
	System
)

// Wire type tags.
const (
	TypeChat                  = "chat"
	TypeNotification          = "notification"
	TypeBroadcastNotification = "broadcast_notification"
	TypeError                 = "error"
)

// Defaults applied when an inbound frame omits optional fields.
const (
	DefaultSender                = "Anonymous"
	SystemSender                 = "Sistema"
	DefaultPersonalNotification  = "Notificación personal."
	DefaultBroadcastNotification = "Notificación de broadcast."
)

func (v Variant) String() string {
	switch v {
	case Chat:
		return "chat"
	case Notification:
		return "notification"
	case PersonalNotification:
		return "personal_notification"
	case Error:
		return "error"
	case System:
		return "system"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// Envelope is an immutable message payload. Construct it with one of the
// New* functions; the zero value is a chat envelope with no sender.
type Envelope struct {
	variant Variant
	sender  string
	text    string
}

// NewChat returns a chat envelope. A blank sender becomes DefaultSender.
func NewChat(sender, text string) Envelope {
	if strings.TrimSpace(sender) == "" {
		sender = DefaultSender
	}
	return Envelope{variant: Chat, sender: sender, text: text}
}

// NewNotification returns a notification meant for every session.
func NewNotification(text string) Envelope {
	return Envelope{variant: Notification, text: text}
}

// NewPersonalNotification returns a notification meant for a single session.
func NewPersonalNotification(text string) Envelope {
	return Envelope{variant: PersonalNotification, text: text}
}

// NewError returns an error envelope.
func NewError(text string) Envelope {
	return Envelope{variant: Error, text: text}
}

// NewSystem returns a server-originated announcement. It is sent as a chat
// frame from SystemSender.
func NewSystem(text string) Envelope {
	return Envelope{variant: System, sender: SystemSender, text: text}
}

// Variant reports the envelope kind.
func (e Envelope) Variant() Variant { return e.variant }

// Sender reports the sender label. Only chat and system envelopes carry one.
func (e Envelope) Sender() string { return e.sender }

// Text reports the message payload.
func (e Envelope) Text() string { return e.text }

// WireType reports the "type" tag the envelope is serialized with.
func (e Envelope) WireType() string {
	switch e.variant {
	case Chat, System:
		return TypeChat
	case Notification, PersonalNotification:
		return TypeNotification
	default:
		return TypeError
	}
}

type chatFrame struct {
	Type    string `json:"type"`
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

type plainFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// MarshalJSON encodes the envelope in its outbound wire form.
func (e Envelope) MarshalJSON() ([]byte, error) {
	switch e.variant {
	case Chat, System:
		sender := e.sender
		if sender == "" {
			sender = DefaultSender
		}
		return json.Marshal(chatFrame{Type: TypeChat, Sender: sender, Message: e.text})
	case Notification, PersonalNotification, Error:
		return json.Marshal(plainFrame{Type: e.WireType(), Message: e.text})
	default:
		return nil, fmt.Errorf("envelope: cannot encode %s", e.variant)
	}
}

// Encode returns the wire bytes for e.
func Encode(e Envelope) ([]byte, error) {
	return json.Marshal(e)
}
