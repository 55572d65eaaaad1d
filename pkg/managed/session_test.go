package managed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMessagesAPI replays canned Messages API replies and records request bodies.
type fakeMessagesAPI struct {
	mu       sync.Mutex
	replies  []string
	status   int
	requests []map[string]interface{}
}

func (f *fakeMessagesAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, _ := io.ReadAll(r.Body)
	var req map[string]interface{}
	_ = json.Unmarshal(body, &req)
	f.requests = append(f.requests, req)

	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"overloaded"}}`))
		return
	}
	if len(f.replies) == 0 {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	_, _ = w.Write([]byte(reply))
}

func textReply(text string) string {
	return `{"id":"msg_text","type":"message","role":"assistant","model":"test-model",` +
		`"content":[{"type":"text","text":"` + text + `"}],` +
		`"stop_reason":"end_turn","stop_sequence":null,"usage":{"input_tokens":1,"output_tokens":1}}`
}

func toolReply(id, name, input string) string {
	return `{"id":"msg_tool","type":"message","role":"assistant","model":"test-model",` +
		`"content":[{"type":"text","text":"Working on it."},{"type":"tool_use","id":"` + id + `","name":"` + name + `","input":` + input + `}],` +
		`"stop_reason":"tool_use","stop_sequence":null,"usage":{"input_tokens":1,"output_tokens":1}}`
}

func newTestClient(t *testing.T, api *fakeMessagesAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client := NewClient(ClientOptions{
		APIKey:         "sk-ant-test",
		BaseURL:        srv.URL,
		Model:          "test-model",
		Logger:         zerolog.Nop(),
		RequestOptions: []option.RequestOption{option.WithMaxRetries(0)},
	})
	require.NoError(t, client.Start(context.Background()))
	return client
}

func TestClient_CreateSessionRequiresStart(t *testing.T) {
	client := NewClient(ClientOptions{Logger: zerolog.Nop()})

	_, err := client.CreateSession(context.Background(), SessionConfig{})
	assert.True(t, errors.Is(err, ErrClientNotStarted))

	require.NoError(t, client.Start(context.Background()))
	require.NoError(t, client.Stop(context.Background()))

	_, err = client.CreateSession(context.Background(), SessionConfig{})
	assert.True(t, errors.Is(err, ErrClientNotStarted))
}

func TestClient_CreateSessionRejectsBadTools(t *testing.T) {
	client := newTestClient(t, &fakeMessagesAPI{})

	_, err := client.CreateSession(context.Background(), SessionConfig{
		Tools: []Tool{{Name: "no_handler"}},
	})
	assert.Error(t, err)
}

func TestSession_SendAndWait_TextReply(t *testing.T) {
	api := &fakeMessagesAPI{replies: []string{textReply("4")}}
	client := newTestClient(t, api)

	sess, err := client.CreateSession(context.Background(), SessionConfig{
		SystemMessage: &SystemMessage{Mode: SystemModeReplace, Content: "You are terse."},
	})
	require.NoError(t, err)

	var seen []EventType
	sess.On(func(ev Event) { seen = append(seen, ev.Type) })

	ev, err := sess.SendAndWait(context.Background(), MessageOptions{Prompt: "What is 2+2?"}, time.Minute)

	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, EventAssistantMessage, ev.Type)
	assert.Equal(t, "4", ev.Data.Content)
	assert.Equal(t, []EventType{EventAssistantMessage, EventSessionIdle}, seen)
	assert.Equal(t, 2, sess.Len())

	require.Len(t, api.requests, 1)
	system := api.requests[0]["system"].([]interface{})
	assert.Equal(t, "You are terse.", system[0].(map[string]interface{})["text"])
	assert.Equal(t, "test-model", api.requests[0]["model"])
}

func TestSession_SendAndWait_ToolLoop(t *testing.T) {
	api := &fakeMessagesAPI{replies: []string{
		toolReply("toolu_1", "echo", `{"message":"ping"}`),
		textReply("pong"),
	}}
	client := newTestClient(t, api)

	var gotArgs map[string]interface{}
	sess, err := client.CreateSession(context.Background(), SessionConfig{
		Tools: []Tool{{
			Name:        "echo",
			Description: "Echo a message",
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"message": map[string]interface{}{"type": "string"}},
				"required":   []string{"message"},
			},
			Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				gotArgs = args
				return map[string]string{"status": "success", "output": "ping"}, nil
			},
		}},
	})
	require.NoError(t, err)

	var events []Event
	unsubscribe := sess.On(func(ev Event) { events = append(events, ev) })
	defer unsubscribe()

	ev, err := sess.SendAndWait(context.Background(), MessageOptions{Prompt: "echo ping"}, time.Minute)

	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, "pong", ev.Data.Content)
	assert.Equal(t, map[string]interface{}{"message": "ping"}, gotArgs)

	types := make([]EventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []EventType{
		EventAssistantMessage,
		EventToolExecutionStart,
		EventToolExecutionComplete,
		EventAssistantMessage,
		EventSessionIdle,
	}, types)
	assert.JSONEq(t, `{"status":"success","output":"ping"}`, events[2].Data.Result)

	t.Run("should declare tools on every request", func(t *testing.T) {
		require.Len(t, api.requests, 2)
		tools := api.requests[0]["tools"].([]interface{})
		assert.Equal(t, "echo", tools[0].(map[string]interface{})["name"])
	})

	t.Run("should send the tool result back", func(t *testing.T) {
		messages := api.requests[1]["messages"].([]interface{})
		require.Len(t, messages, 3)
		last := messages[2].(map[string]interface{})
		assert.Equal(t, "user", last["role"])
		block := last["content"].([]interface{})[0].(map[string]interface{})
		assert.Equal(t, "tool_result", block["type"])
		assert.Equal(t, "toolu_1", block["tool_use_id"])
	})

	assert.Equal(t, 4, sess.Len())
}

func TestSession_SendAndWait_ToolErrorAndUnknownTool(t *testing.T) {
	api := &fakeMessagesAPI{replies: []string{
		toolReply("toolu_1", "broken", `{}`),
		toolReply("toolu_2", "missing", `{}`),
		textReply("gave up"),
	}}
	client := newTestClient(t, api)

	sess, err := client.CreateSession(context.Background(), SessionConfig{
		Tools: []Tool{{
			Name: "broken",
			Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				return nil, errors.New("disk full")
			},
		}},
	})
	require.NoError(t, err)

	var completes []EventData
	sess.On(func(ev Event) {
		if ev.Type == EventToolExecutionComplete {
			completes = append(completes, ev.Data)
		}
	})

	ev, err := sess.SendAndWait(context.Background(), MessageOptions{Prompt: "go"}, time.Minute)

	require.NoError(t, err)
	assert.Equal(t, "gave up", ev.Data.Content)
	require.Len(t, completes, 2)
	assert.Equal(t, "disk full", completes[0].Error)
	assert.Equal(t, "unknown tool: missing", completes[1].Error)
}

func TestSession_SendAndWait_MaxTurns(t *testing.T) {
	api := &fakeMessagesAPI{replies: []string{
		toolReply("toolu_1", "noop", `{}`),
		toolReply("toolu_2", "noop", `{}`),
	}}
	client := newTestClient(t, api)

	sess, err := client.CreateSession(context.Background(), SessionConfig{
		MaxTurns: 2,
		Tools: []Tool{{
			Name:    "noop",
			Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) { return "ok", nil },
		}},
	})
	require.NoError(t, err)

	_, err = sess.SendAndWait(context.Background(), MessageOptions{Prompt: "loop"}, time.Minute)

	assert.True(t, errors.Is(err, ErrMaxTurns))
	assert.Equal(t, 0, sess.Len(), "failed round is dropped from history")
}

func TestSession_SendAndWait_APIError(t *testing.T) {
	api := &fakeMessagesAPI{status: http.StatusServiceUnavailable}
	client := newTestClient(t, api)

	sess, err := client.CreateSession(context.Background(), SessionConfig{})
	require.NoError(t, err)

	var errorEvents int
	sess.On(func(ev Event) {
		if ev.Type == EventSessionError {
			errorEvents++
		}
	})

	ev, err := sess.SendAndWait(context.Background(), MessageOptions{Prompt: "hi"}, time.Minute)

	assert.Error(t, err)
	assert.Nil(t, ev)
	assert.Equal(t, 1, errorEvents)
	assert.Equal(t, 0, sess.Len())
}

func TestSession_Destroy(t *testing.T) {
	api := &fakeMessagesAPI{replies: []string{textReply("hi")}}
	client := newTestClient(t, api)

	sess, err := client.CreateSession(context.Background(), SessionConfig{})
	require.NoError(t, err)
	_, err = sess.SendAndWait(context.Background(), MessageOptions{Prompt: "hello"}, time.Minute)
	require.NoError(t, err)

	require.NoError(t, sess.Destroy(context.Background()))
	require.NoError(t, sess.Destroy(context.Background()))

	assert.Equal(t, 0, sess.Len())
	_, err = sess.SendAndWait(context.Background(), MessageOptions{Prompt: "again"}, time.Minute)
	assert.True(t, errors.Is(err, ErrSessionClosed))
}

func TestClient_StopDestroysSessions(t *testing.T) {
	client := newTestClient(t, &fakeMessagesAPI{})

	sess, err := client.CreateSession(context.Background(), SessionConfig{})
	require.NoError(t, err)

	require.NoError(t, client.Stop(context.Background()))

	_, err = sess.SendAndWait(context.Background(), MessageOptions{Prompt: "hi"}, time.Minute)
	assert.True(t, errors.Is(err, ErrSessionClosed))
}

func TestResolveSystemPrompt(t *testing.T) {
	tests := []struct {
		name string
		base string
		msg  *SystemMessage
		want string
	}{
		{name: "no message", base: "base", want: "base"},
		{name: "replace", base: "base", msg: &SystemMessage{Mode: SystemModeReplace, Content: "mine"}, want: "mine"},
		{name: "append", base: "base", msg: &SystemMessage{Mode: SystemModeAppend, Content: "more"}, want: "base\n\nmore"},
		{name: "append without base", msg: &SystemMessage{Mode: SystemModeAppend, Content: "more"}, want: "more"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveSystemPrompt(tt.base, tt.msg))
		})
	}
}
