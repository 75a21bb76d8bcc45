// Package router delivers envelopes to one or all registered sessions and
// decodes inbound client frames into routing decisions.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Tyrowin/gonotify/internal/envelope"
	"github.com/Tyrowin/gonotify/internal/registry"
)

const tracerName = "github.com/Tyrowin/gonotify/internal/router"

// Error texts returned to the offending session.
const (
	UnknownTypeMessage = "Tipo de mensaje no reconocido."
	MalformedMessage   = "Formato de mensaje inválido."
)

// Recipient is anything the router can push an encoded frame to.
type Recipient interface {
	ID() string
	Send(payload []byte) error
}

// DeliveryError reports a failed send to a single recipient.
type DeliveryError struct {
	RecipientID string
	Err         error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %s: %v", e.RecipientID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Result is the outcome of one delivery within a broadcast.
type Result struct {
	RecipientID string
	Err         error
}

// Stats contains runtime counters.
type Stats struct {
	Dispatched int64 `json:"dispatched"`
	Rejected   int64 `json:"rejected"`
	Broadcasts int64 `json:"broadcasts"`
	Delivered  int64 `json:"delivered"`
	Failed     int64 `json:"failed"`
}

// Router routes envelopes over a shared registry. It never mutates the
// registry; sessions whose delivery fails are reclaimed by their own
// receive loop.
type Router struct {
	registry *registry.Registry[Recipient]
	logger   *slog.Logger
	tracer   trace.Tracer

	dispatched atomic.Int64
	rejected   atomic.Int64
	broadcasts atomic.Int64
	delivered  atomic.Int64
	failed     atomic.Int64
}

// Option configures a Router.
type Option func(*Router)

// WithTracerProvider sets the provider spans are created from. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Router) {
		if tp != nil {
			r.tracer = tp.Tracer(tracerName)
		}
	}
}

// New creates a Router over reg.
func New(reg *registry.Registry[Recipient], logger *slog.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		registry: reg,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SendTo encodes env and hands it to rcpt. Failures come back as a
// *DeliveryError; the caller decides what to do with the session.
func (r *Router) SendTo(ctx context.Context, rcpt Recipient, env envelope.Envelope) error {
	_, span := r.tracer.Start(ctx, "router.SendTo", trace.WithAttributes(
		attribute.String("envelope.variant", env.Variant().String()),
		attribute.String("session.id", rcpt.ID()),
	))
	defer span.End()

	payload, err := envelope.Encode(env)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode")
		return fmt.Errorf("encode %s envelope: %w", env.Variant(), err)
	}

	if err := r.deliver(rcpt, payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "deliver")
		return err
	}
	return nil
}

// Broadcast delivers env to every registered recipient. The registry is
// snapshotted first so no lock is held while sending, and a failed recipient
// never stops delivery to the rest.
func (r *Router) Broadcast(ctx context.Context, env envelope.Envelope) []Result {
	_, span := r.tracer.Start(ctx, "router.Broadcast", trace.WithAttributes(
		attribute.String("envelope.variant", env.Variant().String()),
	))
	defer span.End()

	r.broadcasts.Add(1)

	payload, err := envelope.Encode(env)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode")
		r.logger.Error("broadcast encode failed", "variant", env.Variant().String(), "error", err)
		return nil
	}

	recipients := r.registry.Snapshot()
	results := make([]Result, 0, len(recipients))
	failures := 0

	for _, rcpt := range recipients {
		err := r.deliver(rcpt, payload)
		if err != nil {
			failures++
			r.logger.Warn("broadcast delivery failed", "session_id", rcpt.ID(), "error", err)
		}
		results = append(results, Result{RecipientID: rcpt.ID(), Err: err})
	}

	span.SetAttributes(
		attribute.Int("broadcast.recipients", len(recipients)),
		attribute.Int("broadcast.failures", failures),
	)
	r.logger.Debug("broadcast complete",
		"variant", env.Variant().String(),
		"recipients", len(recipients),
		"failures", failures,
	)
	return results
}

func (r *Router) deliver(rcpt Recipient, payload []byte) error {
	if err := rcpt.Send(payload); err != nil {
		r.failed.Add(1)
		return &DeliveryError{RecipientID: rcpt.ID(), Err: err}
	}
	r.delivered.Add(1)
	return nil
}

// Dispatch decodes a raw client frame from source and routes it. Problems
// with the frame are answered to source with an error envelope and go no
// further.
func (r *Router) Dispatch(ctx context.Context, raw []byte, source Recipient) {
	ctx, span := r.tracer.Start(ctx, "router.Dispatch", trace.WithAttributes(
		attribute.String("session.id", source.ID()),
	))
	defer span.End()

	r.dispatched.Add(1)

	in, err := envelope.ParseInbound(raw)
	if err != nil {
		r.rejected.Add(1)
		span.SetStatus(codes.Error, "malformed frame")
		r.logger.Info("malformed frame", "session_id", source.ID(), "error", err)
		r.reply(ctx, source, envelope.NewError(MalformedMessage))
		return
	}
	span.SetAttributes(attribute.String("message.type", in.Type))

	switch in.Type {
	case envelope.TypeChat:
		env := envelope.NewChat(in.SenderOr(envelope.DefaultSender), in.MessageOr(""))
		r.logger.Info("chat", "session_id", source.ID(), "sender", env.Sender())
		r.Broadcast(ctx, env)

	case envelope.TypeNotification:
		env := envelope.NewPersonalNotification(in.MessageOr(envelope.DefaultPersonalNotification))
		r.logger.Info("personal notification", "session_id", source.ID())
		r.reply(ctx, source, env)

	case envelope.TypeBroadcastNotification:
		env := envelope.NewNotification(in.MessageOr(envelope.DefaultBroadcastNotification))
		r.logger.Info("broadcast notification", "session_id", source.ID())
		r.Broadcast(ctx, env)

	default:
		r.rejected.Add(1)
		span.SetStatus(codes.Error, "unknown type")
		r.logger.Info("unknown message type", "session_id", source.ID(), "type", in.Type)
		r.reply(ctx, source, envelope.NewError(UnknownTypeMessage))
	}
}

func (r *Router) reply(ctx context.Context, source Recipient, env envelope.Envelope) {
	if err := r.SendTo(ctx, source, env); err != nil {
		var derr *DeliveryError
		if errors.As(err, &derr) {
			r.logger.Debug("reply not delivered", "session_id", derr.RecipientID, "error", derr.Err)
			return
		}
		r.logger.Error("reply failed", "session_id", source.ID(), "error", err)
	}
}

// Stats returns a snapshot of the router counters.
func (r *Router) Stats() Stats {
	return Stats{
		Dispatched: r.dispatched.Load(),
		Rejected:   r.rejected.Load(),
		Broadcasts: r.broadcasts.Load(),
		Delivered:  r.delivered.Load(),
		Failed:     r.failed.Load(),
	}
}
