package toolexecutor

import (
	"context"

	"github.com/go-viper/mapstructure/v2"
)

// Typed adapts a handler taking a struct into a ToolHandler. The validated
// argument map is decoded into T using the struct's json tags.
func Typed[T any](fn func(ctx context.Context, args T) ToolResult) ToolHandler {
	return func(ctx context.Context, raw map[string]interface{}) ToolResult {
		var args T
		if err := DecodeArgs(raw, &args); err != nil {
			return Failuref("failed to decode arguments: %v", err)
		}
		return fn(ctx, args)
	}
}

// DecodeArgs decodes a JSON-shaped argument map into out.
func DecodeArgs(raw map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: false,
		ErrorUnused:      false,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}
