package toolexecutor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool() ToolDefinition {
	return ToolDefinition{
		Name:        "echo",
		Description: "Echo tool",
		Parameters: []ToolParameter{
			{
				Name:        "message",
				Type:        "string",
				Description: "Message to echo",
				Required:    true,
			},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) ToolResult {
			return Success(args["message"].(string))
		},
	}
}

func TestToolExecutor_RegisterTool(t *testing.T) {
	te := New()

	err := te.RegisterTool(echoTool())
	assert.NoError(t, err)

	tool := te.GetTool("echo")
	require.NotNil(t, tool)
	assert.Equal(t, "echo", tool.Name)
	assert.Equal(t, 1, te.GetToolCount())
}

func TestToolExecutor_RegisterTool_Duplicate(t *testing.T) {
	te := New()

	require.NoError(t, te.RegisterTool(echoTool()))
	err := te.RegisterTool(echoTool())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
	assert.Equal(t, 1, te.GetToolCount())
}

func TestToolExecutor_RegisterTool_InvalidDefinition(t *testing.T) {
	te := New()
	noop := func(ctx context.Context, args map[string]interface{}) ToolResult { return Success("") }

	tests := []struct {
		name string
		def  ToolDefinition
	}{
		{
			name: "empty name",
			def:  ToolDefinition{Description: "Test", Handler: noop},
		},
		{
			name: "empty description",
			def:  ToolDefinition{Name: "test", Handler: noop},
		},
		{
			name: "nil handler",
			def:  ToolDefinition{Name: "test", Description: "Test"},
		},
		{
			name: "invalid parameter type",
			def: ToolDefinition{
				Name:        "test",
				Description: "Test",
				Handler:     noop,
				Parameters:  []ToolParameter{{Name: "x", Type: "date", Description: "x"}},
			},
		},
		{
			name: "invalid item type",
			def: ToolDefinition{
				Name:        "test",
				Description: "Test",
				Handler:     noop,
				Parameters: []ToolParameter{{
					Name: "x", Type: "array", Description: "x",
					Items: &ToolParameter{Type: "tuple"},
				}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := te.RegisterTool(tt.def)
			assert.Error(t, err)
		})
	}
}

func TestToolExecutor_GetTool_Missing(t *testing.T) {
	te := New()
	assert.Nil(t, te.GetTool("nope"))
}

func TestToolExecutor_Definitions(t *testing.T) {
	te := New()
	noop := func(ctx context.Context, args map[string]interface{}) ToolResult { return Success("") }

	require.NoError(t, te.RegisterTool(ToolDefinition{
		Name:        "zeta",
		Description: "registered first",
		Handler:     noop,
		Parameters: []ToolParameter{
			{Name: "mode", Type: "string", Description: "mode", Required: true, Enum: []string{"a", "b"}},
			{Name: "tags", Type: "array", Description: "tags", Items: &ToolParameter{Type: "string"}},
		},
	}))
	require.NoError(t, te.RegisterTool(ToolDefinition{
		Name:        "alpha",
		Description: "registered second",
		Handler:     noop,
		Schema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{"n": map[string]interface{}{"type": "integer"}},
		},
	}))

	decls := te.Definitions()
	require.Len(t, decls, 2)
	assert.Equal(t, "zeta", decls[0].Name)
	assert.Equal(t, "alpha", decls[1].Name)
	assert.Equal(t, []string{"zeta", "alpha"}, te.ListTools())

	params := decls[0].Parameters
	assert.Equal(t, "object", params["type"])
	assert.Equal(t, []string{"mode"}, params["required"])
	props := params["properties"].(map[string]interface{})
	assert.Equal(t, []string{"a", "b"}, props["mode"].(map[string]interface{})["enum"])
	assert.Equal(t, map[string]interface{}{"type": "string"}, props["tags"].(map[string]interface{})["items"])

	t.Run("should use explicit schema verbatim", func(t *testing.T) {
		assert.NotContains(t, decls[1].Parameters, "additionalProperties")
	})

	t.Run("should serialize as a function declaration", func(t *testing.T) {
		data, err := json.Marshal(decls[1])
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"alpha","description":"registered second","parameters":{"type":"object","properties":{"n":{"type":"integer"}}}}`, string(data))
	})
}

func TestToolExecutor_Execute_Success(t *testing.T) {
	te := New()
	require.NoError(t, te.RegisterTool(echoTool()))

	result, err := te.Execute(context.Background(), "echo", map[string]interface{}{
		"message": "Hello, World!",
	})

	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Equal(t, "Hello, World!", result.Output)
	assert.Empty(t, result.Message)
}

func TestToolExecutor_Execute_ToolNotFound(t *testing.T) {
	te := New()

	_, err := te.Execute(context.Background(), "nonexistent", map[string]interface{}{})

	assert.True(t, errors.Is(err, ErrToolNotFound))
}

func TestToolExecutor_Execute_ValidationError(t *testing.T) {
	te := New()
	calls := 0
	def := echoTool()
	def.Handler = func(ctx context.Context, args map[string]interface{}) ToolResult {
		calls++
		return Success("")
	}
	require.NoError(t, te.RegisterTool(def))

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{name: "missing required", args: map[string]interface{}{}},
		{name: "wrong type", args: map[string]interface{}{"message": 42}},
		{name: "unknown property", args: map[string]interface{}{"message": "hi", "extra": true}},
		{name: "nil args", args: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := te.Execute(context.Background(), "echo", tt.args)

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, "echo", vErr.Tool)
			assert.NotEmpty(t, vErr.Errors)
		})
	}

	assert.Zero(t, calls, "handler must not run on invalid input")
}

func TestToolExecutor_Execute_EnumValidation(t *testing.T) {
	te := New()
	require.NoError(t, te.RegisterTool(ToolDefinition{
		Name:        "ops",
		Description: "ops",
		Parameters:  []ToolParameter{{Name: "command", Type: "string", Description: "cmd", Required: true, Enum: []string{"create"}}},
		Handler:     func(ctx context.Context, args map[string]interface{}) ToolResult { return Success("ok") },
	}))

	_, err := te.Execute(context.Background(), "ops", map[string]interface{}{"command": "delete"})
	assert.Error(t, err)

	result, err := te.Execute(context.Background(), "ops", map[string]interface{}{"command": "create"})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Output)
}

func TestToolExecutor_Execute_HandlerFailure(t *testing.T) {
	te := New()
	def := echoTool()
	def.Handler = func(ctx context.Context, args map[string]interface{}) ToolResult {
		return Failure("disk full")
	}
	require.NoError(t, te.RegisterTool(def))

	result, err := te.Execute(context.Background(), "echo", map[string]interface{}{"message": "x"})

	require.NoError(t, err, "handler failure is not a Go error")
	assert.False(t, result.OK())
	assert.Equal(t, `{"status":"error","message":"disk full"}`, result.JSON())
}

func TestToolExecutor_Execute_HandlerPanic(t *testing.T) {
	te := New()
	def := echoTool()
	def.Handler = func(ctx context.Context, args map[string]interface{}) ToolResult {
		panic("boom")
	}
	require.NoError(t, te.RegisterTool(def))

	result, err := te.Execute(context.Background(), "echo", map[string]interface{}{"message": "x"})

	require.NoError(t, err)
	assert.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Message, "boom")
}

func TestToolExecutor_Execute_DefaultsStatus(t *testing.T) {
	te := New()
	def := echoTool()
	def.Handler = func(ctx context.Context, args map[string]interface{}) ToolResult {
		return ToolResult{Output: "implicit"}
	}
	require.NoError(t, te.RegisterTool(def))

	result, err := te.Execute(context.Background(), "echo", map[string]interface{}{"message": "x"})

	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
}

func TestToolExecutor_Execute_PassesExecContext(t *testing.T) {
	te := New()
	var seen *ExecutionContext
	def := echoTool()
	def.Handler = func(ctx context.Context, args map[string]interface{}) ToolResult {
		seen = ExecContextFromContext(ctx)
		return Success("")
	}
	require.NoError(t, te.RegisterTool(def))

	ctx := ContextWithExecContext(context.Background(), &ExecutionContext{SessionID: "s1", WorkingDir: "/tmp"})
	_, err := te.Execute(ctx, "echo", map[string]interface{}{"message": "x"})

	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, "s1", seen.SessionID)
}

func TestToolExecutor_Validate(t *testing.T) {
	te := New()
	require.NoError(t, te.RegisterTool(echoTool()))

	assert.NoError(t, te.Validate("echo", map[string]interface{}{"message": "ok"}))
	assert.Error(t, te.Validate("echo", map[string]interface{}{}))
	assert.True(t, errors.Is(te.Validate("missing", nil), ErrToolNotFound))
}
