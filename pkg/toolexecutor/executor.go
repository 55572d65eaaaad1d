package toolexecutor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jorgeantonio/flutter-architect/internal/observability"
	"github.com/jorgeantonio/flutter-architect/internal/tracing"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrToolNotFound is returned when a tool name is not registered.
var ErrToolNotFound = errors.New("tool not found")

// ToolParameter defines a parameter for a tool
type ToolParameter struct {
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Required    bool           `json:"required"`
	Enum        []string       `json:"enum,omitempty"`
	Items       *ToolParameter `json:"items,omitempty"` // element schema when Type is "array"
	Default     interface{}    `json:"default,omitempty"`
}

// ToolDefinition defines a tool's metadata and handler
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters,omitempty"`
	// Schema overrides the schema generated from Parameters when set.
	Schema  map[string]interface{} `json:"schema,omitempty"`
	Handler ToolHandler            `json:"-"`
}

// ToolHandler is the function signature for tool execution.
// Handlers report failure through ToolResult, never through a Go error.
type ToolHandler func(ctx context.Context, args map[string]interface{}) ToolResult

// ToolDeclaration is the JSON-schema shaped description of a tool sent to a model.
type ToolDeclaration struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type registeredTool struct {
	def       *ToolDefinition
	schemaMap map[string]interface{}
	schema    *gojsonschema.Schema
}

// ToolExecutor manages and executes tools
type ToolExecutor struct {
	tools map[string]*registeredTool
	order []string
	mu    sync.RWMutex
}

// New creates a new ToolExecutor
func New() *ToolExecutor {
	observability.EnsureRegistered()

	return &ToolExecutor{
		tools: make(map[string]*registeredTool),
	}
}

// RegisterTool registers a new tool. Names must be unique.
func (te *ToolExecutor) RegisterTool(def ToolDefinition) error {
	if err := te.validateToolDefinition(def); err != nil {
		return fmt.Errorf("invalid tool definition: %w", err)
	}

	schemaMap := def.Schema
	if schemaMap == nil {
		schemaMap = generateSchemaMap(def)
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))
	if err != nil {
		return fmt.Errorf("failed to compile schema for %s: %w", def.Name, err)
	}

	te.mu.Lock()
	defer te.mu.Unlock()

	if _, exists := te.tools[def.Name]; exists {
		return fmt.Errorf("tool %s already registered", def.Name)
	}

	te.tools[def.Name] = &registeredTool{def: &def, schemaMap: schemaMap, schema: schema}
	te.order = append(te.order, def.Name)

	log.Debug().Str("tool", def.Name).Msg("Tool registered")

	return nil
}

// GetTool returns a tool definition by name, or nil when absent
func (te *ToolExecutor) GetTool(name string) *ToolDefinition {
	te.mu.RLock()
	defer te.mu.RUnlock()

	if tool, ok := te.tools[name]; ok {
		return tool.def
	}
	return nil
}

// ListTools returns all registered tool names in registration order
func (te *ToolExecutor) ListTools() []string {
	te.mu.RLock()
	defer te.mu.RUnlock()

	names := make([]string, len(te.order))
	copy(names, te.order)
	return names
}

// GetToolCount returns the number of registered tools
func (te *ToolExecutor) GetToolCount() int {
	te.mu.RLock()
	defer te.mu.RUnlock()

	return len(te.tools)
}

// Definitions renders the catalog as model-facing declarations, in registration order.
func (te *ToolExecutor) Definitions() []ToolDeclaration {
	te.mu.RLock()
	defer te.mu.RUnlock()

	decls := make([]ToolDeclaration, 0, len(te.order))
	for _, name := range te.order {
		tool := te.tools[name]
		decls = append(decls, ToolDeclaration{
			Name:        tool.def.Name,
			Description: tool.def.Description,
			Parameters:  tool.schemaMap,
		})
	}
	return decls
}

// Validate checks args against the named tool's schema.
func (te *ToolExecutor) Validate(name string, args map[string]interface{}) error {
	te.mu.RLock()
	tool := te.tools[name]
	te.mu.RUnlock()

	if tool == nil {
		return fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return validateParameters(name, tool.schema, args)
}

// Execute validates args and runs the named tool. A validation failure is
// returned as *ValidationError and the handler is not invoked.
func (te *ToolExecutor) Execute(ctx context.Context, name string, args map[string]interface{}) (ToolResult, error) {
	ctx, span := tracing.StartSpan(ctx, "architect.toolexecutor", "tool.execute", attribute.String("tool", name))
	defer span.End()

	te.mu.RLock()
	tool := te.tools[name]
	te.mu.RUnlock()

	if tool == nil {
		err := fmt.Errorf("%w: %s", ErrToolNotFound, name)
		span.SetStatus(codes.Error, err.Error())
		return ToolResult{}, err
	}

	if args == nil {
		args = map[string]interface{}{}
	}

	if err := validateParameters(name, tool.schema, args); err != nil {
		log.Warn().Str("tool", name).Err(err).Msg("Parameter validation failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ToolResult{}, err
	}

	log.Debug().Str("tool", name).Msg("Executing tool")

	startTime := time.Now()
	result := invoke(ctx, tool.def, args)
	duration := time.Since(startTime)

	observability.RecordToolExecution(name, duration, result.OK())
	span.SetAttributes(attribute.String("tool.status", result.Status))

	if !result.OK() {
		log.Warn().
			Str("tool", name).
			Dur("duration", duration).
			Str("message", result.Message).
			Msg("Tool reported failure")
	} else {
		log.Debug().
			Str("tool", name).
			Dur("duration", duration).
			Msg("Tool execution completed")
	}

	return result, nil
}

// invoke runs the handler, converting a panic into a failure result.
func invoke(ctx context.Context, def *ToolDefinition, args map[string]interface{}) (result ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("tool", def.Name).Interface("panic", r).Msg("Tool handler panicked")
			result = Failuref("tool %s panicked: %v", def.Name, r)
		}
	}()

	result = def.Handler(ctx, args)
	if result.Status == "" {
		result.Status = StatusSuccess
	}
	return result
}

// validateToolDefinition validates a tool definition
func (te *ToolExecutor) validateToolDefinition(def ToolDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if def.Description == "" {
		return fmt.Errorf("tool description cannot be empty")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool handler cannot be nil")
	}

	for _, param := range def.Parameters {
		if err := validateParameter(param); err != nil {
			return err
		}
	}

	return nil
}

var validTypes = map[string]bool{
	"string": true, "number": true, "boolean": true,
	"object": true, "array": true, "integer": true,
}

func validateParameter(param ToolParameter) error {
	if param.Name == "" {
		return fmt.Errorf("parameter name cannot be empty")
	}
	if param.Type == "" {
		return fmt.Errorf("parameter type cannot be empty for %s", param.Name)
	}
	if param.Description == "" {
		return fmt.Errorf("parameter description cannot be empty for %s", param.Name)
	}
	if !validTypes[param.Type] {
		return fmt.Errorf("invalid parameter type %s for %s", param.Type, param.Name)
	}
	if param.Items != nil && !validTypes[param.Items.Type] {
		return fmt.Errorf("invalid item type %s for %s", param.Items.Type, param.Name)
	}
	return nil
}

// generateSchemaMap generates a JSON Schema object from tool parameters
func generateSchemaMap(def ToolDefinition) map[string]interface{} {
	properties := make(map[string]interface{}, len(def.Parameters))
	required := []string{}

	for _, param := range def.Parameters {
		properties[param.Name] = parameterSchema(param)
		if param.Required {
			required = append(required, param.Name)
		}
	}

	schemaMap := map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           properties,
	}
	if len(required) > 0 {
		schemaMap["required"] = required
	}
	return schemaMap
}

func parameterSchema(param ToolParameter) map[string]interface{} {
	schema := map[string]interface{}{
		"type": param.Type,
	}
	if param.Description != "" {
		schema["description"] = param.Description
	}
	if len(param.Enum) > 0 {
		schema["enum"] = param.Enum
	}
	if param.Items != nil {
		schema["items"] = parameterSchema(*param.Items)
	}
	if param.Default != nil {
		schema["default"] = param.Default
	}
	return schema
}

// validateParameters validates parameters against a JSON Schema
func validateParameters(tool string, schema *gojsonschema.Schema, params map[string]interface{}) error {
	if schema == nil {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(params))
	if err != nil {
		return &ValidationError{Tool: tool, Errors: []string{err.Error()}}
	}

	if !result.Valid() {
		errs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		return &ValidationError{Tool: tool, Errors: errs}
	}

	return nil
}
