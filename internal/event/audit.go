package event

import (
	"context"
	"log/slog"
)

// AuditLogger writes every bus event to a structured logger until its
// context is cancelled.
type AuditLogger struct {
	bus    Bus
	logger *slog.Logger
}

func NewAuditLogger(bus Bus, logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{bus: bus, logger: logger.With("component", "audit")}
}

// Start subscribes synchronously and consumes in a new goroutine. The
// returned channel is closed once the consumer has stopped.
func (a *AuditLogger) Start(ctx context.Context) <-chan struct{} {
	events, unsubscribe := a.bus.Subscribe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer unsubscribe()
		a.consume(ctx, events)
	}()

	return done
}

func (a *AuditLogger) consume(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			a.log(ctx, e)
		}
	}
}

func (a *AuditLogger) log(ctx context.Context, e Event) {
	level := slog.LevelInfo
	if e.Type == TypeUserLoginFailed {
		level = slog.LevelWarn
	}

	attrs := []any{
		"event_id", e.ID,
		"type", string(e.Type),
		"at", e.Timestamp,
	}
	if e.ActorID != 0 {
		attrs = append(attrs, "actor_id", e.ActorID)
	}
	if p, ok := e.Payload.(UserPayload); ok {
		if p.UserID != 0 {
			attrs = append(attrs, "user_id", p.UserID)
		}
		if p.Email != "" {
			attrs = append(attrs, "email", p.Email)
		}
		if len(p.Fields) > 0 {
			attrs = append(attrs, "fields", p.Fields)
		}
	}

	a.logger.Log(ctx, level, "audit", attrs...)
}
