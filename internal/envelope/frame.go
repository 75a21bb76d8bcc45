package envelope

import (
	"encoding/json"
	"errors"
)

// ErrMalformed is returned by ParseInbound when a frame is not a JSON object
// of the expected shape.
var ErrMalformed = errors.New("envelope: malformed frame")

// Inbound is a decoded client frame. Sender and Message are nil when the
// client omitted them.
type Inbound struct {
	Type    string  `json:"type"`
	Sender  *string `json:"sender,omitempty"`
	Message *string `json:"message,omitempty"`
}

// ParseInbound decodes a raw client frame.
func ParseInbound(raw []byte) (Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return Inbound{}, errors.Join(ErrMalformed, err)
	}
	return in, nil
}

// MessageOr returns the message text, or def when it was omitted.
func (in Inbound) MessageOr(def string) string {
	if in.Message == nil {
		return def
	}
	return *in.Message
}

// SenderOr returns the sender label, or def when it was omitted.
func (in Inbound) SenderOr(def string) string {
	if in.Sender == nil {
		return def
	}
	return *in.Sender
}

// Frame is an outbound frame as a client sees it on the wire.
type Frame struct {
	Type    string `json:"type"`
	Sender  string `json:"sender,omitempty"`
	Message string `json:"message"`
}

// DecodeFrame decodes a server frame.
func DecodeFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, errors.Join(ErrMalformed, err)
	}
	return f, nil
}
