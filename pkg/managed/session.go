package managed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type sessionParams struct {
	id        string
	api       *anthropic.Client
	model     string
	maxTokens int64
	maxTurns  int
	system    string
	tools     []Tool
	logger    zerolog.Logger
	onClose   func(id string)
}

// Session is one managed conversation. Sends are serialized.
type Session struct {
	id        string
	api       *anthropic.Client
	model     string
	maxTokens int64
	maxTurns  int
	system    string
	tools     map[string]Tool
	toolDefs  []anthropic.ToolUnionParam
	logger    zerolog.Logger
	onClose   func(id string)

	sendMu    sync.Mutex
	messages  []anthropic.MessageParam
	destroyed bool

	handlersMu  sync.RWMutex
	handlers    map[int]func(Event)
	nextHandler int
}

func newSession(p sessionParams) *Session {
	s := &Session{
		id:        p.id,
		api:       p.api,
		model:     p.model,
		maxTokens: p.maxTokens,
		maxTurns:  p.maxTurns,
		system:    p.system,
		tools:     make(map[string]Tool, len(p.tools)),
		logger:    p.logger.With().Str("session_id", p.id).Logger(),
		onClose:   p.onClose,
		handlers:  make(map[int]func(Event)),
	}

	for _, tool := range p.tools {
		s.tools[tool.Name] = tool
		s.toolDefs = append(s.toolDefs, toToolParam(tool))
	}

	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// On registers an event handler and returns a function that removes it.
// Handlers run synchronously on the sending goroutine.
func (s *Session) On(handler func(Event)) func() {
	s.handlersMu.Lock()
	id := s.nextHandler
	s.nextHandler++
	s.handlers[id] = handler
	s.handlersMu.Unlock()

	return func() {
		s.handlersMu.Lock()
		delete(s.handlers, id)
		s.handlersMu.Unlock()
	}
}

func (s *Session) emit(eventType EventType, data EventData) Event {
	ev := Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	s.handlersMu.RLock()
	handlers := make([]func(Event), 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}
	s.handlersMu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
	return ev
}

// SendAndWait sends a prompt and blocks until the session is idle again or
// timeout elapses. It returns the last assistant.message event of the round,
// or nil when the model produced no text. On error the round is dropped from
// the session history.
func (s *Session) SendAndWait(ctx context.Context, opts MessageOptions, timeout time.Duration) (*Event, error) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.destroyed {
		return nil, ErrSessionClosed
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	mark := len(s.messages)
	last, err := s.runRound(ctx, opts.Prompt)
	if err != nil {
		s.messages = s.messages[:mark]
		s.emit(EventSessionError, EventData{Error: err.Error()})
		s.logger.Warn().Err(err).Msg("Managed round failed")
		return nil, err
	}

	s.emit(EventSessionIdle, EventData{})
	return last, nil
}

func (s *Session) runRound(ctx context.Context, prompt string) (*Event, error) {
	s.messages = append(s.messages, anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)))

	var last *Event
	for turn := 0; turn < s.maxTurns; turn++ {
		resp, err := s.api.Messages.New(ctx, s.buildParams())
		if err != nil {
			return nil, fmt.Errorf("model request failed: %w", err)
		}

		text, uses, assistant, err := splitContent(resp.Content)
		if err != nil {
			return nil, err
		}
		s.messages = append(s.messages, assistant)

		if text != "" {
			ev := s.emit(EventAssistantMessage, EventData{Content: text})
			last = &ev
		}

		if len(uses) == 0 {
			return last, nil
		}

		results := make([]anthropic.ContentBlockParamUnion, 0, len(uses))
		for _, use := range uses {
			results = append(results, s.runTool(ctx, use))
		}
		s.messages = append(s.messages, anthropic.NewUserMessage(results...))
	}

	return nil, fmt.Errorf("%w (%d)", ErrMaxTurns, s.maxTurns)
}

func (s *Session) buildParams() anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		Messages:  s.messages,
		MaxTokens: s.maxTokens,
	}
	if s.system != "" {
		params.System = []anthropic.TextBlockParam{{Text: s.system}}
	}
	if len(s.toolDefs) > 0 {
		params.Tools = s.toolDefs
	}
	return params
}

type toolUse struct {
	id   string
	name string
	args map[string]interface{}
}

// splitContent separates the text and tool requests of a reply and rebuilds
// the reply as a message param for the history.
func splitContent(blocks []anthropic.ContentBlockUnion) (string, []toolUse, anthropic.MessageParam, error) {
	var text strings.Builder
	var uses []toolUse
	params := make([]anthropic.ContentBlockParamUnion, 0, len(blocks))

	for _, block := range blocks {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(b.Text)
			params = append(params, anthropic.NewTextBlock(b.Text))
		case anthropic.ToolUseBlock:
			raw := b.JSON.Input.Raw()
			if raw == "" {
				raw = "{}"
			}
			args := map[string]interface{}{}
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return "", nil, anthropic.MessageParam{}, fmt.Errorf("failed to parse tool input: %w", err)
			}
			uses = append(uses, toolUse{id: b.ID, name: b.Name, args: args})
			params = append(params, anthropic.NewToolUseBlock(b.ID, json.RawMessage(raw), b.Name))
		}
	}

	assistant := anthropic.MessageParam{
		Role:    anthropic.MessageParamRoleAssistant,
		Content: params,
	}
	return text.String(), uses, assistant, nil
}

func (s *Session) runTool(ctx context.Context, use toolUse) anthropic.ContentBlockParamUnion {
	s.emit(EventToolExecutionStart, EventData{ToolName: use.name, ToolCallID: use.id, Arguments: use.args})

	content, isError := s.invoke(ctx, use)

	data := EventData{ToolName: use.name, ToolCallID: use.id, Result: content}
	if isError {
		data.Error = content
	}
	s.emit(EventToolExecutionComplete, data)

	s.logger.Debug().Str("tool", use.name).Bool("is_error", isError).Msg("Managed tool executed")
	return anthropic.NewToolResultBlock(use.id, content, isError)
}

func (s *Session) invoke(ctx context.Context, use toolUse) (content string, isError bool) {
	tool, ok := s.tools[use.name]
	if !ok {
		return fmt.Sprintf("unknown tool: %s", use.name), true
	}

	defer func() {
		if r := recover(); r != nil {
			content, isError = fmt.Sprintf("tool %s panicked: %v", use.name, r), true
		}
	}()

	result, err := tool.Handler(ctx, use.args)
	if err != nil {
		return err.Error(), true
	}

	switch v := result.(type) {
	case string:
		return v, false
	case nil:
		return "", false
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("failed to encode tool result: %v", err), true
		}
		return string(data), false
	}
}

// Destroy discards the session history. Further sends fail with
// ErrSessionClosed. Destroying twice is a no-op.
func (s *Session) Destroy(ctx context.Context) error {
	s.sendMu.Lock()
	if s.destroyed {
		s.sendMu.Unlock()
		return nil
	}
	s.destroyed = true
	s.messages = nil
	s.sendMu.Unlock()

	s.handlersMu.Lock()
	s.handlers = make(map[int]func(Event))
	s.handlersMu.Unlock()

	if s.onClose != nil {
		s.onClose(s.id)
	}
	s.logger.Debug().Msg("Managed session destroyed")
	return nil
}

// Len returns the number of messages in the session history.
func (s *Session) Len() int {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	return len(s.messages)
}

func toToolParam(tool Tool) anthropic.ToolUnionParam {
	schema := anthropic.ToolInputSchemaParam{}
	if props, ok := tool.Parameters["properties"]; ok {
		schema.Properties = props
	}
	switch req := tool.Parameters["required"].(type) {
	case []string:
		schema.Required = req
	case []interface{}:
		for _, v := range req {
			if name, ok := v.(string); ok {
				schema.Required = append(schema.Required, name)
			}
		}
	}

	param := anthropic.ToolParam{
		Name:        tool.Name,
		InputSchema: schema,
	}
	if tool.Description != "" {
		param.Description = anthropic.String(tool.Description)
	}
	return anthropic.ToolUnionParam{OfTool: &param}
}
