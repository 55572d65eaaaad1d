package managed

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrClientNotStarted is returned by CreateSession before Start or after Stop.
	ErrClientNotStarted = errors.New("managed client not started")
	// ErrSessionClosed is returned by SendAndWait after Destroy.
	ErrSessionClosed = errors.New("managed session destroyed")
	// ErrMaxTurns is returned when the model keeps requesting tools past MaxTurns.
	ErrMaxTurns = errors.New("managed session exceeded max turns")
)

// EventType discriminates session events.
type EventType string

const (
	EventAssistantMessage      EventType = "assistant.message"
	EventToolExecutionStart    EventType = "tool.execution_start"
	EventToolExecutionComplete EventType = "tool.execution_complete"
	EventSessionError          EventType = "session.error"
	EventSessionIdle           EventType = "session.idle"
)

// EventData carries the payload of an event. Which fields are set depends on Type.
type EventData struct {
	Content    string                 `json:"content,omitempty"`
	ToolName   string                 `json:"tool_name,omitempty"`
	ToolCallID string                 `json:"tool_call_id,omitempty"`
	Arguments  map[string]interface{} `json:"arguments,omitempty"`
	Result     string                 `json:"result,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// Event is one notification emitted by a session.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      EventData `json:"data"`
}

// System message modes.
const (
	SystemModeReplace = "replace"
	SystemModeAppend  = "append"
)

// SystemMessage configures the session's system prompt. In replace mode
// Content is the whole prompt; in append mode it follows the client default.
type SystemMessage struct {
	Mode    string
	Content string
}

// ToolHandler runs a tool. A returned error is reported to the model as a
// failed tool result; it does not abort the session.
type ToolHandler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Tool is a function the session may call on the model's behalf.
type Tool struct {
	Name        string
	Description string
	// Parameters is a JSON Schema object describing the arguments.
	Parameters map[string]interface{}
	Handler    ToolHandler
}

// SessionConfig configures a new session.
type SessionConfig struct {
	Model         string
	SystemMessage *SystemMessage
	Tools         []Tool
	// MaxTurns overrides the client default when positive.
	MaxTurns int
}

// MessageOptions is the input of SendAndWait.
type MessageOptions struct {
	Prompt string
}
