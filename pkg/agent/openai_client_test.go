package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChatServer(t *testing.T, status int, body string, captured *map[string]interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		if captured != nil {
			data, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(data, captured)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIChatClient_CreateChatCompletion(t *testing.T) {
	var captured map[string]interface{}
	srv := newChatServer(t, http.StatusOK, `{
		"id": "chatcmpl-1",
		"model": "deepseek-reasoner",
		"choices": [{
			"index": 0,
			"finish_reason": "tool_calls",
			"message": {
				"role": "assistant",
				"content": null,
				"reasoning_content": "I should create the project.",
				"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "flutter_ops", "arguments": "{\"command\":\"create\"}"}}]
			}
		}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
	}`, &captured)

	client := NewOpenAIChatClient(OpenAIChatConfig{APIKey: "sk-test", BaseURL: srv.URL})

	msg, err := client.CreateChatCompletion(context.Background(), ChatRequest{
		Model: "deepseek-reasoner",
		Messages: []ChatMessage{
			{Role: ChatRoleUser, Content: "hi"},
			{Role: ChatRoleAssistant, Content: "hello", ReasoningContent: "greeting"},
			{Role: ChatRoleUser, Content: "create demo_app"},
		},
		Tools:      []ChatTool{{Type: "function", Function: ChatFunction{Name: "flutter_ops", Description: "d", Parameters: map[string]interface{}{"type": "object"}}}},
		ToolChoice: "auto",
	})

	require.NoError(t, err)
	assert.Equal(t, "", msg.Content)
	assert.Equal(t, "I should create the project.", msg.ReasoningContent)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "flutter_ops", msg.ToolCalls[0].Function.Name)
	assert.Equal(t, `{"command":"create"}`, msg.ToolCalls[0].Function.Arguments)

	t.Run("should send reasoning content and tool fields", func(t *testing.T) {
		assert.Equal(t, "deepseek-reasoner", captured["model"])
		assert.Equal(t, "auto", captured["tool_choice"])
		messages := captured["messages"].([]interface{})
		require.Len(t, messages, 3)
		assert.Equal(t, "greeting", messages[1].(map[string]interface{})["reasoning_content"])
		assert.NotContains(t, messages[0].(map[string]interface{}), "reasoning_content")
	})
}

func TestOpenAIChatClient_OmitsToolsWhenAbsent(t *testing.T) {
	var captured map[string]interface{}
	srv := newChatServer(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"done"}}]}`, &captured)
	client := NewOpenAIChatClient(OpenAIChatConfig{APIKey: "sk-test", BaseURL: srv.URL})

	msg, err := client.CreateChatCompletion(context.Background(), ChatRequest{
		Model:    "m",
		Messages: []ChatMessage{{Role: ChatRoleUser, Content: "x"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "done", msg.Content)
	assert.NotContains(t, captured, "tools")
	assert.NotContains(t, captured, "tool_choice")
}

func TestOpenAIChatClient_Errors(t *testing.T) {
	t.Run("should surface API status errors", func(t *testing.T) {
		srv := newChatServer(t, http.StatusUnauthorized, `{"error":{"message":"Authentication Fails","type":"authentication_error"}}`, nil)
		client := NewOpenAIChatClient(OpenAIChatConfig{APIKey: "sk-test", BaseURL: srv.URL})

		_, err := client.CreateChatCompletion(context.Background(), ChatRequest{Model: "m"})

		var apiErr *openai.Error
		require.True(t, errors.As(err, &apiErr), "got %v", err)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	})

	t.Run("should reject empty choices", func(t *testing.T) {
		srv := newChatServer(t, http.StatusOK, `{"choices":[]}`, nil)
		client := NewOpenAIChatClient(OpenAIChatConfig{APIKey: "sk-test", BaseURL: srv.URL})

		_, err := client.CreateChatCompletion(context.Background(), ChatRequest{Model: "m"})

		assert.EqualError(t, err, "no response choices returned")
	})
}

func TestOpenAIChatClient_DrivesRawSession(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"4","reasoning_content":"2+2"}}]}`, nil)
	client := NewOpenAIChatClient(OpenAIChatConfig{APIKey: "sk-test", BaseURL: srv.URL})
	sess := newRawSession(t, client, nil)

	resp, err := sess.SendMessage(context.Background(), "What is 2+2?")

	require.NoError(t, err)
	assert.Equal(t, "4", resp.Content)
	history := History(sess)
	require.Len(t, history, 2)
	assert.Equal(t, "2+2", history[1].ReasoningTrace)
}
