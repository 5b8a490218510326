// Package publisher is the single entry point services use to record audit events.
//
// In synchronous mode Emit appends straight to the store. With WithAsyncBuffer the
// publisher only enqueues; a worker.Worker drains Events() into the store so audit
// latency never sits on the request path.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	audit "intakedesk/pkg/platform/audit"
	"intakedesk/pkg/requestcontext"
)

type Publisher struct {
	store  audit.Store
	logger *slog.Logger
	inbox  chan audit.Event

	closeOnce sync.Once
	closed    atomic.Bool
	dropped   atomic.Int64
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to buffered mode with the given capacity.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.inbox = make(chan audit.Event, size)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit records an event. Missing timestamp, category, request id and client
// metadata are filled from the context. In async mode a full buffer drops the
// event and logs a warning rather than blocking the caller.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.IP == "" {
		event.IP = requestcontext.ClientIP(ctx)
	}
	if event.UserAgent == "" {
		event.UserAgent = requestcontext.UserAgent(ctx)
	}

	if event.Browser == "" {
		event.Browser = requestcontext.Browser(ctx)
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}
	if p.closed.Load() {
		p.dropped.Add(1)
		return nil
	}

	select {
	case p.inbox <- event:
	default:
		p.dropped.Add(1)
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", event.Action,
			"request_id", event.RequestID,
		)
	}
	return nil
}

// Events exposes the async buffer for a worker. It is nil in synchronous mode.
func (p *Publisher) Events() <-chan audit.Event {
	return p.inbox
}

// Store returns the sink events end up in.
func (p *Publisher) Store() audit.Store {
	return p.store
}

// Dropped reports how many events were discarded because the buffer was full or closed.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// Close stops accepting events. Buffered events remain readable from Events()
// until the worker drains them.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		if p.inbox != nil {
			close(p.inbox)
		}
	})
}
