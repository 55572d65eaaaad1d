package tracing

import (
	"context"

	"github.com/google/uuid"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// TraceIDKey is the context key for trace ID
	TraceIDKey ContextKey = "trace_id"
	// SessionIDKey is the context key for the conversation session ID
	SessionIDKey ContextKey = "session_id"
	// TurnIDKey is the context key for one sendMessage round
	TurnIDKey ContextKey = "turn_id"
	// ProviderKey is the context key for the active provider name
	ProviderKey ContextKey = "provider"
)

// TraceContext holds tracing information
type TraceContext struct {
	TraceID   string
	SessionID string
	TurnID    string
	Provider  string
}

// NewTraceID generates a new trace ID
func NewTraceID() string {
	return uuid.New().String()
}

// NewSessionID generates a new session ID
func NewSessionID() string {
	return uuid.New().String()
}

// NewTurnID generates a new turn ID
func NewTurnID() string {
	return uuid.New().String()
}

func withValue(ctx context.Context, key ContextKey, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

func getValue(ctx context.Context, key ContextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return withValue(ctx, TraceIDKey, traceID)
}

// WithSessionID adds a session ID to the context
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return withValue(ctx, SessionIDKey, sessionID)
}

// WithTurnID adds a turn ID to the context
func WithTurnID(ctx context.Context, turnID string) context.Context {
	return withValue(ctx, TurnIDKey, turnID)
}

// WithProvider adds the provider name to the context
func WithProvider(ctx context.Context, provider string) context.Context {
	return withValue(ctx, ProviderKey, provider)
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(ctx context.Context) string { return getValue(ctx, TraceIDKey) }

// GetSessionID retrieves the session ID from the context
func GetSessionID(ctx context.Context) string { return getValue(ctx, SessionIDKey) }

// GetTurnID retrieves the turn ID from the context
func GetTurnID(ctx context.Context) string { return getValue(ctx, TurnIDKey) }

// GetProvider retrieves the provider name from the context
func GetProvider(ctx context.Context) string { return getValue(ctx, ProviderKey) }

// FromContext extracts all tracing information from the context
func FromContext(ctx context.Context) *TraceContext {
	return &TraceContext{
		TraceID:   GetTraceID(ctx),
		SessionID: GetSessionID(ctx),
		TurnID:    GetTurnID(ctx),
		Provider:  GetProvider(ctx),
	}
}

// NewContext creates a new context with tracing information
func NewContext(ctx context.Context, tc *TraceContext) context.Context {
	if tc.TraceID != "" {
		ctx = WithTraceID(ctx, tc.TraceID)
	}
	if tc.SessionID != "" {
		ctx = WithSessionID(ctx, tc.SessionID)
	}
	if tc.TurnID != "" {
		ctx = WithTurnID(ctx, tc.TurnID)
	}
	if tc.Provider != "" {
		ctx = WithProvider(ctx, tc.Provider)
	}
	return ctx
}

// NewTurnContext starts a new round inside a session: a fresh turn ID, and a
// trace ID when the context does not carry one yet.
func NewTurnContext(ctx context.Context, sessionID, provider string) context.Context {
	if GetTraceID(ctx) == "" {
		ctx = WithTraceID(ctx, NewTraceID())
	}
	ctx = WithSessionID(ctx, sessionID)
	ctx = WithProvider(ctx, provider)
	return WithTurnID(ctx, NewTurnID())
}
