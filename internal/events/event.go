package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Metadata struct {
	Timestamp time.Time  `json:"timestamp"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	RequestID string     `json:"request_id,omitempty"`
	SessionID string     `json:"session_id,omitempty"`
	Source    string     `json:"source,omitempty"`
}

// Event неизменяем после создания; передаётся обработчикам по значению.
type Event struct {
	Type     Type     `json:"type"`
	Version  int      `json:"version"`
	Payload  Payload  `json:"payload"`
	Metadata Metadata `json:"metadata"`
	Priority Priority `json:"priority"`
}

type Option func(*Event)

func WithPriority(p Priority) Option {
	return func(e *Event) { e.Priority = p }
}

func WithUserID(id uuid.UUID) Option {
	return func(e *Event) {
		if id != uuid.Nil {
			e.Metadata.UserID = &id
		}
	}
}

func WithRequestID(id string) Option {
	return func(e *Event) { e.Metadata.RequestID = id }
}

func WithSessionID(id string) Option {
	return func(e *Event) { e.Metadata.SessionID = id }
}

func WithSource(src string) Option {
	return func(e *Event) { e.Metadata.Source = src }
}

func WithTimestamp(ts time.Time) Option {
	return func(e *Event) { e.Metadata.Timestamp = ts }
}

// FromContext переносит request id из контекста запроса в метаданные.
func FromContext(ctx context.Context) Option {
	return func(e *Event) {
		if id, ok := RequestIDFromContext(ctx); ok {
			e.Metadata.RequestID = id
		}
	}
}

// New строит событие; тип берётся из полезной нагрузки.
func New(p Payload, opts ...Option) Event {
	e := Event{
		Type:     p.EventType(),
		Version:  SchemaVersion,
		Payload:  p,
		Priority: DefaultPriority(p.EventType()),
		Metadata: Metadata{Timestamp: time.Now()},
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

type ctxKey string

const ctxRequestIDKey ctxKey = "requestID"

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxRequestIDKey).(string)
	return v, ok && v != ""
}
