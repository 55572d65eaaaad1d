package toolexecutor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolResult_JSON(t *testing.T) {
	t.Run("should omit message on success", func(t *testing.T) {
		assert.Equal(t, `{"status":"success","output":"Created."}`, Success("Created.").JSON())
	})

	t.Run("should omit output on failure", func(t *testing.T) {
		assert.Equal(t, `{"status":"error","message":"disk full"}`, Failure("disk full").JSON())
	})

	t.Run("should round trip through encoding/json", func(t *testing.T) {
		var decoded ToolResult
		require.NoError(t, json.Unmarshal([]byte(Failuref("code %d", 7).JSON()), &decoded))
		assert.Equal(t, Failure("code 7"), decoded)
	})
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Tool: "flutter_ops", Errors: []string{"a", "b"}}
	assert.Equal(t, "invalid arguments for tool flutter_ops: a; b", err.Error())
}

type createArgs struct {
	Command     string   `json:"command"`
	ProjectName string   `json:"projectName"`
	Org         string   `json:"org,omitempty"`
	Features    []string `json:"features"`
}

func TestTyped(t *testing.T) {
	var got createArgs
	handler := Typed(func(ctx context.Context, args createArgs) ToolResult {
		got = args
		return Success("ok")
	})

	result := handler(context.Background(), map[string]interface{}{
		"command":     "create",
		"projectName": "demo_app",
		"features":    []interface{}{"auth", "products"},
	})

	assert.True(t, result.OK())
	assert.Equal(t, createArgs{
		Command:     "create",
		ProjectName: "demo_app",
		Features:    []string{"auth", "products"},
	}, got)
}

func TestTyped_DecodeFailure(t *testing.T) {
	handler := Typed(func(ctx context.Context, args createArgs) ToolResult {
		t.Fatal("handler must not run")
		return ToolResult{}
	})

	result := handler(context.Background(), map[string]interface{}{"command": []interface{}{1}})

	assert.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Message, "decode")
}
