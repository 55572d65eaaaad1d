// Package conversation holds the ordered record of a chat session.
//
// A History is append-only: turns are never removed, reordered or edited
// once appended. Callers that may fail part way through a round stage their
// turns in a Pending buffer and commit them with a single Append.
package conversation

import "sync"

// Role identifies the author of a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCallRequest is a model's request to invoke one tool.
type ToolCallRequest struct {
	ID           string
	Name         string
	RawArguments string
}

// Turn is one message in the conversation.
type Turn struct {
	Role             Role
	Content          string
	ToolCallRequests []ToolCallRequest
	// ReasoningTrace is the model's opaque reasoning output. It is replayed
	// verbatim on later requests and never inspected.
	ReasoningTrace string
	// ToolCallID links a tool turn to the request it answers.
	ToolCallID string
}

// SystemTurn builds a system turn.
func SystemTurn(content string) Turn {
	return Turn{Role: RoleSystem, Content: content}
}

// UserTurn builds a user turn.
func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

// AssistantTurn builds an assistant turn, optionally carrying tool call requests.
func AssistantTurn(content, reasoning string, calls ...ToolCallRequest) Turn {
	return Turn{
		Role:             RoleAssistant,
		Content:          content,
		ReasoningTrace:   reasoning,
		ToolCallRequests: calls,
	}
}

// ToolTurn builds the turn carrying a tool's serialized result.
func ToolTurn(toolCallID, content string) Turn {
	return Turn{Role: RoleTool, Content: content, ToolCallID: toolCallID}
}

// History is the append-only turn log of one session.
type History struct {
	mu    sync.RWMutex
	turns []Turn
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// Append adds turns to the end of the history.
func (h *History) Append(turns ...Turn) {
	if len(turns) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = append(h.turns, turns...)
}

// Len returns the number of turns.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.turns)
}

// Turns returns a copy of all turns in order.
func (h *History) Turns() []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Last returns the most recent turn.
func (h *History) Last() (Turn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.turns) == 0 {
		return Turn{}, false
	}
	return h.turns[len(h.turns)-1], true
}

// Reset discards all turns. Only session teardown calls this.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = nil
}
