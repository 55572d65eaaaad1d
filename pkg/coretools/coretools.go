// Package coretools provides the Flutter project tools exposed to the model.
package coretools

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jorgeantonio/flutter-architect/pkg/toolexecutor"
)

const (
	DefaultFlutterBinary = "flutter"
	DefaultTimeout       = 300 * time.Second
	DefaultOutputLimit   = 300
)

// Options configures core tool registration.
type Options struct {
	// WorkingDir is where projects are created when the execution context
	// carries no working directory.
	WorkingDir    string
	FlutterBinary string
	Timeout       time.Duration
	// OutputLimit caps the command output returned to the model, in bytes.
	OutputLimit int
}

func (o Options) withDefaults() Options {
	if o.FlutterBinary == "" {
		o.FlutterBinary = DefaultFlutterBinary
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.OutputLimit <= 0 {
		o.OutputLimit = DefaultOutputLimit
	}
	return o
}

// RegisterCoreTools registers flutter_ops and scaffold_clean_arch.
func RegisterCoreTools(executor *toolexecutor.ToolExecutor, opts Options) error {
	if executor == nil {
		return errors.New("tool executor is required")
	}
	opts = opts.withDefaults()

	tools := []toolexecutor.ToolDefinition{
		flutterOpsTool(opts),
		scaffoldTool(opts),
	}

	for _, tool := range tools {
		if err := executor.RegisterTool(tool); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", tool.Name, err)
		}
	}
	return nil
}

func resolveWorkspaceRoot(execCtx *toolexecutor.ExecutionContext, opts Options) (string, error) {
	if execCtx != nil && strings.TrimSpace(execCtx.WorkingDir) != "" {
		return filepath.Clean(execCtx.WorkingDir), nil
	}
	if strings.TrimSpace(opts.WorkingDir) != "" {
		return filepath.Clean(opts.WorkingDir), nil
	}
	return "", fmt.Errorf("working directory is not configured")
}

// resolveProjectDir returns the directory of a project directly below root.
func resolveProjectDir(root, projectName string) (string, error) {
	name := strings.TrimSpace(projectName)
	if name == "" {
		return "", fmt.Errorf("project name is required")
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("project name %q must be a plain folder name", projectName)
	}
	return filepath.Join(root, name), nil
}
