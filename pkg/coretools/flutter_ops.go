package coretools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jorgeantonio/flutter-architect/pkg/toolexecutor"
	"github.com/rs/zerolog/log"
)

type flutterOpsArgs struct {
	Command     string `json:"command"`
	ProjectName string `json:"projectName"`
	Org         string `json:"org,omitempty"`
}

func flutterOpsTool(opts Options) toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "flutter_ops",
		Description: "Executes Flutter CLI commands. Use this ONLY to create projects.",
		Parameters: []toolexecutor.ToolParameter{
			{Name: "command", Type: "string", Description: "The command to run", Required: true, Enum: []string{"create"}},
			{Name: "projectName", Type: "string", Description: "The name of the project folder", Required: true},
			{Name: "org", Type: "string", Description: "The organization domain (e.g. com.jorgeantonio)"},
		},
		Handler: toolexecutor.Typed(func(ctx context.Context, args flutterOpsArgs) toolexecutor.ToolResult {
			root, err := resolveWorkspaceRoot(toolexecutor.ExecContextFromContext(ctx), opts)
			if err != nil {
				return toolexecutor.Failure(err.Error())
			}
			if _, err := resolveProjectDir(root, args.ProjectName); err != nil {
				return toolexecutor.Failure(err.Error())
			}

			cmdArgs := []string{args.Command, args.ProjectName}
			if args.Org != "" {
				cmdArgs = append(cmdArgs, "--org", args.Org)
			}

			log.Info().
				Str("binary", opts.FlutterBinary).
				Strs("args", cmdArgs).
				Str("dir", root).
				Msg("Running flutter command")

			stdout, err := runCommand(ctx, opts, root, cmdArgs)
			if err != nil {
				return toolexecutor.Failure(err.Error())
			}
			return toolexecutor.Success(truncate(stdout, opts.OutputLimit) + "...")
		}),
	}
}

func runCommand(ctx context.Context, opts Options, dir string, args []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, opts.FlutterBinary, args...)
	cmd.Dir = dir
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("command timed out after %s: %s %s", opts.Timeout, opts.FlutterBinary, strings.Join(args, " "))
		}
		msg := fmt.Sprintf("command failed: %s %s: %v", opts.FlutterBinary, strings.Join(args, " "), err)
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			msg += "\n" + detail
		}
		return "", errors.New(msg)
	}

	return stdout.String(), nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
