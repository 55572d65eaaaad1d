// Package toolexecutor registers and executes the tools a conversation may call.
//
// Invariants:
// - Tool names are unique within an executor.
// - Arguments are validated against the tool's JSON Schema before the handler runs.
// - Handlers report failure as ToolResult{Status: "error"}; they never return Go errors.
//
// Usage:
//
//	exec := toolexecutor.New()
//	_ = exec.RegisterTool(toolexecutor.ToolDefinition{
//		Name:        "echo",
//		Description: "Echo input",
//		Parameters:  []toolexecutor.ToolParameter{{Name: "text", Type: "string", Description: "text", Required: true}},
//		Handler: func(ctx context.Context, args map[string]interface{}) toolexecutor.ToolResult {
//			return toolexecutor.Success(args["text"].(string))
//		},
//	})
//	result, err := exec.Execute(ctx, "echo", map[string]interface{}{"text": "hi"})
package toolexecutor
