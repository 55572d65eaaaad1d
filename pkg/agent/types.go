package agent

import (
	"errors"
	"fmt"
	"time"

	"github.com/jorgeantonio/flutter-architect/pkg/toolexecutor"
)

// DefaultRequestTimeout bounds a single model request.
const DefaultRequestTimeout = 300 * time.Second

var (
	// ErrSessionDestroyed is returned by SendMessage after Destroy.
	ErrSessionDestroyed = errors.New("session destroyed")
	// ErrSessionBusy is returned when SendMessage is called while another call is in flight.
	ErrSessionBusy = errors.New("session busy: a message is already in flight")
)

// SessionOptions configures a new session.
type SessionOptions struct {
	Model        string
	SystemPrompt string
	Tools        *toolexecutor.ToolExecutor
	// WorkingDir is exposed to tool handlers through toolexecutor.ExecutionContext.
	WorkingDir string
}

// Response is the outcome of one SendMessage call.
type Response struct {
	Content string `json:"content"`
	// ToolCalls is nil when no tool ran during the round.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall records a tool invocation made during a round.
type ToolCall struct {
	ToolName  string                 `json:"tool_name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ProviderProfile selects and configures a provider.
type ProviderProfile struct {
	Kind           string        `json:"kind"` // "deepseek", "openai", "anthropic", "managed"
	APIKey         string        `json:"api_key"`
	BaseURL        string        `json:"base_url,omitempty"`
	Model          string        `json:"model,omitempty"`
	MaxRetries     int           `json:"max_retries,omitempty"`
	MaxTokens      int64         `json:"max_tokens,omitempty"`
	MaxTurns       int           `json:"max_turns,omitempty"`
	RequestTimeout time.Duration `json:"request_timeout,omitempty"`
}

// TransportError wraps a failed model request. Phase is "initial" or "final"
// on the raw path and "managed" on the managed path.
type TransportError struct {
	Phase string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s model request failed: %v", e.Phase, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// errorContent renders a transport failure as response content.
func errorContent(err error) string {
	var te *TransportError
	if errors.As(err, &te) {
		err = te.Err
	}
	return "Error: " + err.Error()
}
