package agent

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jorgeantonio/flutter-architect/internal/observability"
	"github.com/jorgeantonio/flutter-architect/internal/tracing"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "architect.agent"

// Round outcomes reported to metrics.
const (
	outcomeReply          = "reply"
	outcomeTool           = "tool"
	outcomeTransportError = "transport_error"
	outcomeError          = "error"
)

// sessionEngine is the backend-specific part of a session.
type sessionEngine interface {
	send(ctx context.Context, prompt string) (Response, string, error)
	close(ctx context.Context) error
}

// providerSession is the Session façade shared by both providers. It owns
// the lifecycle guards and the tracing, logging and metrics of every call.
type providerSession struct {
	id       string
	provider string
	engine   sessionEngine
	logger   zerolog.Logger

	busy      atomic.Bool
	destroyed atomic.Bool
}

func newProviderSession(id, provider string, engine sessionEngine, logger zerolog.Logger) *providerSession {
	observability.SessionOpened()

	return &providerSession{
		id:       id,
		provider: provider,
		engine:   engine,
		logger:   logger.With().Str("session_id", id).Str("provider", provider).Logger(),
	}
}

func (s *providerSession) ID() string {
	return s.id
}

func (s *providerSession) SendMessage(ctx context.Context, prompt string) (Response, error) {
	if s.destroyed.Load() {
		return Response{}, ErrSessionDestroyed
	}
	if !s.busy.CompareAndSwap(false, true) {
		return Response{}, ErrSessionBusy
	}
	defer s.busy.Store(false)

	ctx = tracing.NewTurnContext(ctx, s.id, s.provider)
	ctx, span := tracing.StartSpan(ctx, tracerName, "agent.send_message",
		attribute.String("provider", s.provider),
		attribute.Int("prompt.length", len(prompt)),
	)
	logger := tracing.LoggerFromContext(ctx, s.logger)

	logger.Debug().Int("prompt_length", len(prompt)).Msg("Sending message")

	start := time.Now()
	resp, outcome, err := s.engine.send(ctx, prompt)
	duration := time.Since(start)

	if err != nil {
		outcome = outcomeError
	}
	observability.RecordTurn(s.provider, outcome, duration)
	span.SetAttributes(attribute.String("outcome", outcome))
	tracing.EndSpan(span, err)

	switch {
	case err != nil:
		logger.Error().Err(err).Dur("duration", duration).Msg("Message failed")
	case outcome == outcomeTransportError:
		logger.Warn().Str("content", resp.Content).Dur("duration", duration).Msg("Model request failed")
	default:
		logger.Info().
			Str("outcome", outcome).
			Int("tool_calls", len(resp.ToolCalls)).
			Dur("duration", duration).
			Msg("Message completed")
	}

	return resp, err
}

func (s *providerSession) Destroy(ctx context.Context) error {
	if !s.destroyed.CompareAndSwap(false, true) {
		return nil
	}

	observability.SessionClosed()
	s.logger.Debug().Msg("Session destroyed")

	return s.engine.close(ctx)
}
