package toolexecutor

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Tool result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ToolResult is the structured outcome of a tool run. It is the only channel
// through which a tool failure reaches the model.
type ToolResult struct {
	Status  string `json:"status"`
	Output  string `json:"output,omitempty"`
	Message string `json:"message,omitempty"`
}

// Success builds a successful result carrying output.
func Success(output string) ToolResult {
	return ToolResult{Status: StatusSuccess, Output: output}
}

// SuccessMessage builds a successful result carrying a human-readable message.
func SuccessMessage(message string) ToolResult {
	return ToolResult{Status: StatusSuccess, Message: message}
}

// Failure builds an error result with a human-readable message.
func Failure(message string) ToolResult {
	return ToolResult{Status: StatusError, Message: message}
}

// Failuref is Failure with formatting.
func Failuref(format string, args ...interface{}) ToolResult {
	return Failure(fmt.Sprintf(format, args...))
}

// OK reports whether the tool succeeded.
func (r ToolResult) OK() bool {
	return r.Status == StatusSuccess
}

// JSON returns the wire form of the result as sent in a tool turn.
func (r ToolResult) JSON() string {
	data, err := json.Marshal(r)
	if err != nil {
		// only string fields, cannot fail
		return fmt.Sprintf(`{"status":%q}`, r.Status)
	}
	return string(data)
}

// ValidationError reports tool arguments that do not satisfy the tool schema.
// It is a caller error and is never retried.
type ValidationError struct {
	Tool   string
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %s: %s", e.Tool, strings.Join(e.Errors, "; "))
}
