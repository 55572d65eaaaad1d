package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/jorgeantonio/flutter-architect/internal/observability"
	"github.com/jorgeantonio/flutter-architect/internal/tracing"
	"github.com/jorgeantonio/flutter-architect/pkg/managed"
	"github.com/jorgeantonio/flutter-architect/pkg/toolexecutor"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// AgentBackend is the managed agent runtime the adapter drives.
type AgentBackend interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	CreateSession(ctx context.Context, cfg managed.SessionConfig) (BackendSession, error)
}

// BackendSession is one conversation inside an AgentBackend.
type BackendSession interface {
	ID() string
	SendAndWait(ctx context.Context, opts managed.MessageOptions, timeout time.Duration) (*managed.Event, error)
	Destroy(ctx context.Context) error
}

type clientBackend struct {
	client *managed.Client
}

// ClientBackend adapts a *managed.Client to AgentBackend.
func ClientBackend(client *managed.Client) AgentBackend {
	return &clientBackend{client: client}
}

func (b *clientBackend) Start(ctx context.Context) error { return b.client.Start(ctx) }

func (b *clientBackend) Stop(ctx context.Context) error { return b.client.Stop(ctx) }

func (b *clientBackend) CreateSession(ctx context.Context, cfg managed.SessionConfig) (BackendSession, error) {
	sess, err := b.client.CreateSession(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// ManagedConfig configures a ManagedAgentProvider.
type ManagedConfig struct {
	// Name labels logs and metrics. Defaults to "managed".
	Name           string
	Backend        AgentBackend
	Model          string
	RequestTimeout time.Duration
	Logger         zerolog.Logger
}

// ManagedAgentProvider adapts a managed backend to the Provider interface.
// The backend runs the whole tool loop; the adapter only reports the final
// assistant message of each round.
type ManagedAgentProvider struct {
	name    string
	backend AgentBackend
	model   string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewManagedAgentProvider creates a managed provider.
func NewManagedAgentProvider(cfg ManagedConfig) (*ManagedAgentProvider, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("managed backend is required")
	}

	name := cfg.Name
	if name == "" {
		name = "managed"
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	observability.EnsureRegistered()

	return &ManagedAgentProvider{
		name:    name,
		backend: cfg.Backend,
		model:   cfg.Model,
		timeout: timeout,
		logger:  cfg.Logger,
	}, nil
}

func (p *ManagedAgentProvider) Name() string {
	return p.name
}

func (p *ManagedAgentProvider) Initialize(ctx context.Context) error {
	if err := p.backend.Start(ctx); err != nil {
		return fmt.Errorf("failed to start managed backend: %w", err)
	}
	return nil
}

func (p *ManagedAgentProvider) CreateSession(ctx context.Context, opts SessionOptions) (Session, error) {
	model := opts.Model
	if model == "" {
		model = p.model
	}

	cfg := managed.SessionConfig{
		Model: model,
		Tools: managedTools(opts.Tools, opts.WorkingDir),
	}
	if opts.SystemPrompt != "" {
		cfg.SystemMessage = &managed.SystemMessage{
			Mode:    managed.SystemModeReplace,
			Content: opts.SystemPrompt,
		}
	}

	backendSession, err := p.backend.CreateSession(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create managed session: %w", err)
	}

	id := backendSession.ID()
	if id == "" {
		id = tracing.NewSessionID()
	}
	engine := &managedSession{
		session: backendSession,
		timeout: p.timeout,
		logger:  p.logger.With().Str("session_id", id).Str("provider", p.name).Logger(),
	}

	return newProviderSession(id, p.name, engine, p.logger), nil
}

func (p *ManagedAgentProvider) Destroy(ctx context.Context) error {
	if err := p.backend.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop managed backend: %w", err)
	}
	return nil
}

// managedTools exposes the registry to the backend. Calls still go through
// ToolExecutor.Execute, so arguments are schema-checked before any handler runs.
func managedTools(tools *toolexecutor.ToolExecutor, workingDir string) []managed.Tool {
	if tools == nil {
		return nil
	}

	decls := tools.Definitions()
	out := make([]managed.Tool, 0, len(decls))
	for _, decl := range decls {
		name := decl.Name
		out = append(out, managed.Tool{
			Name:        name,
			Description: decl.Description,
			Parameters:  decl.Parameters,
			Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				ctx = toolexecutor.ContextWithExecContext(ctx, &toolexecutor.ExecutionContext{
					SessionID:  tracing.GetSessionID(ctx),
					WorkingDir: workingDir,
				})
				result, err := tools.Execute(ctx, name, args)
				if err != nil {
					return nil, err
				}
				return result, nil
			},
		})
	}
	return out
}

type managedSession struct {
	session BackendSession
	timeout time.Duration
	logger  zerolog.Logger
}

func (s *managedSession) send(ctx context.Context, prompt string) (Response, string, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "agent.model_request", attribute.String("phase", "managed"))

	start := time.Now()
	ev, err := s.session.SendAndWait(ctx, managed.MessageOptions{Prompt: prompt}, s.timeout)
	observability.RecordModelRequest(tracing.GetProvider(ctx), "managed", time.Since(start), err == nil)
	tracing.EndSpan(span, err)

	if err != nil {
		return Response{Content: errorContent(&TransportError{Phase: "managed", Err: err})}, outcomeTransportError, nil
	}

	if ev == nil || ev.Type != managed.EventAssistantMessage {
		if ev != nil {
			s.logger.Debug().Str("event", string(ev.Type)).Msg("Round ended without assistant message")
		}
		return Response{Content: ""}, outcomeReply, nil
	}

	return Response{Content: ev.Data.Content}, outcomeReply, nil
}

func (s *managedSession) close(ctx context.Context) error {
	return s.session.Destroy(ctx)
}
