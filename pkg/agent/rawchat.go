package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jorgeantonio/flutter-architect/internal/observability"
	"github.com/jorgeantonio/flutter-architect/internal/tracing"
	"github.com/jorgeantonio/flutter-architect/pkg/conversation"
	"github.com/jorgeantonio/flutter-architect/pkg/toolexecutor"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultRawModel is used when neither the provider nor the session names a model.
const DefaultRawModel = "deepseek-reasoner"

// RawChatConfig configures a RawChatProvider.
type RawChatConfig struct {
	// Name labels logs and metrics. Defaults to "deepseek".
	Name           string
	Client         ChatCompleter
	Model          string
	RequestTimeout time.Duration
	Logger         zerolog.Logger
}

// RawChatProvider runs tool calling on the client side over a chat
// completions API. Each user message triggers at most one tool call: when
// the model asks for several, only the first is executed.
type RawChatProvider struct {
	name    string
	client  ChatCompleter
	model   string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewRawChatProvider creates a raw provider.
func NewRawChatProvider(cfg RawChatConfig) (*RawChatProvider, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("chat client is required")
	}

	name := cfg.Name
	if name == "" {
		name = "deepseek"
	}
	model := cfg.Model
	if model == "" {
		model = DefaultRawModel
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	observability.EnsureRegistered()

	return &RawChatProvider{
		name:    name,
		client:  cfg.Client,
		model:   model,
		timeout: timeout,
		logger:  cfg.Logger,
	}, nil
}

func (p *RawChatProvider) Name() string {
	return p.name
}

// Initialize is a no-op: the chat API is stateless.
func (p *RawChatProvider) Initialize(ctx context.Context) error {
	return nil
}

func (p *RawChatProvider) CreateSession(ctx context.Context, opts SessionOptions) (Session, error) {
	tools := opts.Tools
	if tools == nil {
		tools = toolexecutor.New()
	}
	model := opts.Model
	if model == "" {
		model = p.model
	}

	id := tracing.NewSessionID()
	engine := &rawChatSession{
		id:           id,
		provider:     p.name,
		client:       p.client,
		model:        model,
		systemPrompt: opts.SystemPrompt,
		tools:        tools,
		workingDir:   opts.WorkingDir,
		timeout:      p.timeout,
		history:      conversation.NewHistory(),
		logger:       p.logger.With().Str("session_id", id).Str("provider", p.name).Logger(),
	}

	return newProviderSession(id, p.name, engine, p.logger), nil
}

// Destroy is a no-op: sessions hold all state.
func (p *RawChatProvider) Destroy(ctx context.Context) error {
	return nil
}

// rawChatSession holds the history of one raw-path conversation.
type rawChatSession struct {
	id           string
	provider     string
	client       ChatCompleter
	model        string
	systemPrompt string
	tools        *toolexecutor.ToolExecutor
	workingDir   string
	timeout      time.Duration
	history      *conversation.History
	logger       zerolog.Logger
}

func (s *rawChatSession) send(ctx context.Context, prompt string) (Response, string, error) {
	t := &rawTurn{s: s, prompt: prompt, logger: tracing.LoggerFromContext(ctx, s.logger)}
	return t.run(ctx)
}

func (s *rawChatSession) close(ctx context.Context) error {
	s.history.Reset()
	return nil
}

// rawTurn is one sendMessage round. Turns are staged in pending and reach
// the history only when the round completes.
type rawTurn struct {
	s      *rawChatSession
	prompt string
	logger zerolog.Logger

	state    TurnState
	finished bool
	pending  conversation.Pending

	reply    *ChatMessage
	selected ChatToolCall
	call     ToolCall

	response Response
	outcome  string
}

func (t *rawTurn) run(ctx context.Context) (Response, string, error) {
	t.state = StateIdle

	for !t.finished {
		var next TurnState
		var err error

		switch t.state {
		case StateIdle:
			next = t.onIdle()
		case StateAwaitingModel:
			next = t.onAwaitingModel(ctx)
		case StateToolRequested:
			next = t.onToolRequested()
		case StateExecutingTool:
			next, err = t.onExecutingTool(ctx)
		case StateAwaitingModelFinal:
			next = t.onAwaitingModelFinal(ctx)
		default:
			err = fmt.Errorf("invalid turn state %d", t.state)
		}

		if err != nil {
			t.pending.Discard()
			return Response{}, outcomeError, err
		}

		t.logger.Debug().Stringer("from", t.state).Stringer("to", next).Msg("Turn transition")
		t.state = next
	}

	return t.response, t.outcome, nil
}

func (t *rawTurn) onIdle() TurnState {
	t.pending.Stage(conversation.UserTurn(t.prompt))
	return StateAwaitingModel
}

func (t *rawTurn) onAwaitingModel(ctx context.Context) TurnState {
	reply, err := t.s.complete(ctx, "initial", t.s.buildRequest(t.pending.View(t.s.history), true))
	if err != nil {
		return t.abort(err)
	}

	if len(reply.ToolCalls) == 0 {
		t.pending.Stage(conversation.AssistantTurn(reply.Content, reply.ReasoningContent))
		return t.complete(Response{Content: reply.Content}, outcomeReply)
	}

	t.reply = reply
	return StateToolRequested
}

func (t *rawTurn) onToolRequested() TurnState {
	calls := t.reply.ToolCalls
	t.selected = calls[0]

	if dropped := len(calls) - 1; dropped > 0 {
		t.logger.Debug().Int("dropped", dropped).Str("tool", t.selected.Function.Name).Msg("Ignoring extra tool calls")
		observability.RecordDroppedToolCalls(t.s.provider, dropped)
	}

	t.pending.Stage(conversation.AssistantTurn(t.reply.Content, t.reply.ReasoningContent, conversation.ToolCallRequest{
		ID:           t.selected.ID,
		Name:         t.selected.Function.Name,
		RawArguments: t.selected.Function.Arguments,
	}))
	return StateExecutingTool
}

func (t *rawTurn) onExecutingTool(ctx context.Context) (TurnState, error) {
	name := t.selected.Function.Name

	args, err := parseArguments(name, t.selected.Function.Arguments)
	if err != nil {
		return StateIdle, err
	}
	t.call = ToolCall{ToolName: name, Arguments: args}

	var result toolexecutor.ToolResult
	if t.s.tools.GetTool(name) == nil {
		t.logger.Warn().Str("tool", name).Msg("Model requested unknown tool")
		result = toolexecutor.Failuref("unknown tool: %s", name)
	} else {
		execCtx := toolexecutor.ContextWithExecContext(ctx, &toolexecutor.ExecutionContext{
			SessionID:  t.s.id,
			WorkingDir: t.s.workingDir,
		})
		result, err = t.s.tools.Execute(execCtx, name, args)
		if err != nil {
			return StateIdle, err
		}
	}

	t.logger.Info().Str("tool", name).Str("status", result.Status).Msg("Tool executed")
	t.pending.Stage(conversation.ToolTurn(t.selected.ID, result.JSON()))
	return StateAwaitingModelFinal, nil
}

func (t *rawTurn) onAwaitingModelFinal(ctx context.Context) TurnState {
	reply, err := t.s.complete(ctx, "final", t.s.buildRequest(t.pending.View(t.s.history), false))
	if err != nil {
		return t.abort(err)
	}

	t.pending.Stage(conversation.AssistantTurn(reply.Content, reply.ReasoningContent))
	return t.complete(Response{Content: reply.Content, ToolCalls: []ToolCall{t.call}}, outcomeTool)
}

// complete commits the staged turns and ends the round.
func (t *rawTurn) complete(resp Response, outcome string) TurnState {
	t.pending.Commit(t.s.history)
	t.response = resp
	t.outcome = outcome
	t.finished = true
	return StateIdle
}

// abort drops the staged turns and reports err as response content.
func (t *rawTurn) abort(err error) TurnState {
	t.pending.Discard()
	t.response = Response{Content: errorContent(err)}
	t.outcome = outcomeTransportError
	t.finished = true
	return StateIdle
}

// parseArguments decodes the model's JSON argument string. Malformed JSON
// is a validation failure of the call.
func parseArguments(tool, raw string) (map[string]interface{}, error) {
	args := map[string]interface{}{}
	if raw == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, &toolexecutor.ValidationError{
			Tool:   tool,
			Errors: []string{fmt.Sprintf("arguments are not a JSON object: %v", err)},
		}
	}
	return args, nil
}

// buildRequest renders turns as a chat request. The final request of a
// round carries no tools so the model must answer in text.
func (s *rawChatSession) buildRequest(turns []conversation.Turn, withTools bool) ChatRequest {
	messages := make([]ChatMessage, 0, len(turns)+1)
	if s.systemPrompt != "" {
		messages = append(messages, ChatMessage{Role: ChatRoleSystem, Content: s.systemPrompt})
	}
	for _, turn := range turns {
		messages = append(messages, toChatMessage(turn))
	}

	req := ChatRequest{Model: s.model, Messages: messages}
	if withTools {
		for _, decl := range s.tools.Definitions() {
			req.Tools = append(req.Tools, ChatTool{
				Type: "function",
				Function: ChatFunction{
					Name:        decl.Name,
					Description: decl.Description,
					Parameters:  decl.Parameters,
				},
			})
		}
		if len(req.Tools) > 0 {
			req.ToolChoice = "auto"
		}
	}
	return req
}

func toChatMessage(turn conversation.Turn) ChatMessage {
	msg := ChatMessage{
		Role:             string(turn.Role),
		Content:          turn.Content,
		ReasoningContent: turn.ReasoningTrace,
		ToolCallID:       turn.ToolCallID,
	}
	for _, call := range turn.ToolCallRequests {
		msg.ToolCalls = append(msg.ToolCalls, ChatToolCall{
			ID:   call.ID,
			Type: "function",
			Function: ChatFunctionCall{
				Name:      call.Name,
				Arguments: call.RawArguments,
			},
		})
	}
	return msg
}

// complete performs one bounded model request.
func (s *rawChatSession) complete(ctx context.Context, phase string, req ChatRequest) (*ChatMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ctx, span := tracing.StartSpan(ctx, tracerName, "agent.model_request",
		attribute.String("phase", phase),
		attribute.Int("messages", len(req.Messages)),
		attribute.Int("tools", len(req.Tools)),
	)

	start := time.Now()
	reply, err := s.client.CreateChatCompletion(ctx, req)
	if err == nil && reply == nil {
		err = errors.New("empty response")
	}
	duration := time.Since(start)

	observability.RecordModelRequest(s.provider, phase, duration, err == nil)
	tracing.EndSpan(span, err)

	if err != nil {
		return nil, &TransportError{Phase: phase, Err: err}
	}
	return reply, nil
}
