package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/jorgeantonio/flutter-architect/internal/config"
	"github.com/jorgeantonio/flutter-architect/internal/prompts"
	"github.com/jorgeantonio/flutter-architect/pkg/agent"
	"github.com/spf13/cobra"
)

var providerFlag string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive architect session",
	Long: `Start an interactive session with the architect agent. The agent greets you,
asks what to build, and uses the flutter_ops and scaffold_clean_arch tools in
the working directory. Type "exit" to quit.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&providerFlag, "provider", "p", "", "backend to use: deepseek or anthropic (prompts when unset)")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	rt, err := setupApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	in := bufio.NewScanner(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "\nArchitect v"+version)

	kind, err := selectProvider(in, out, providerFlag, rt.cfg.Provider)
	if err != nil {
		return err
	}
	profile, err := rt.cfg.Profile(kind)
	if err != nil {
		return err
	}

	tools, err := rt.tools()
	if err != nil {
		return err
	}

	log := rt.log.Component("cli")
	provider, err := newProvider(profile, rt.log.Zerolog(), prompts.SystemPrompt)
	if err != nil {
		return err
	}
	if err := provider.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize %s: %w", provider.Name(), err)
	}

	session, err := provider.CreateSession(ctx, agent.SessionOptions{
		Model:        profile.Model,
		SystemPrompt: prompts.For(kind),
		Tools:        tools,
		WorkingDir:   rt.cfg.WorkingDir,
	})
	if err != nil {
		provider.Destroy(context.Background())
		return fmt.Errorf("failed to create session: %w", err)
	}

	log.Info().Str("provider", provider.Name()).Str("session_id", session.ID()).Msg("Session started")
	fmt.Fprintf(out, "Starting with %s...\n", provider.Name())

	loopErr := chatLoop(ctx, in, out, session)

	// Teardown runs even after an interrupt.
	closeCtx := context.Background()
	if err := session.Destroy(closeCtx); err != nil {
		log.Warn().Err(err).Msg("Session destroy failed")
	}
	if err := provider.Destroy(closeCtx); err != nil {
		log.Warn().Err(err).Msg("Provider destroy failed")
	}

	if errors.Is(loopErr, context.Canceled) {
		return nil
	}
	return loopErr
}

// selectProvider resolves the backend from the flag, then the config, then
// an interactive prompt.
func selectProvider(in *bufio.Scanner, out io.Writer, flag, configured string) (string, error) {
	if flag != "" {
		return config.NormalizeProvider(flag)
	}
	if configured != "" {
		return config.NormalizeProvider(configured)
	}

	fmt.Fprintln(out, "Select the AI backend:")
	fmt.Fprintln(out, "  [1] DeepSeek (deepseek-reasoner)")
	fmt.Fprintln(out, "  [2] Anthropic managed agent")
	fmt.Fprint(out, "Your choice (1 or 2): ")

	if !in.Scan() {
		if err := in.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("no provider selected")
	}
	return config.NormalizeProvider(in.Text())
}

// chatLoop sends the greeting, then relays user lines until "exit" or EOF.
func chatLoop(ctx context.Context, in *bufio.Scanner, out io.Writer, session agent.Session) error {
	if err := exchange(ctx, out, session, prompts.Greeting); err != nil {
		fmt.Fprintf(out, "Greeting failed: %v\n", err)
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fmt.Fprint(out, "You: ")
		if !in.Scan() {
			return in.Err()
		}

		input := strings.TrimSpace(in.Text())
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") {
			return nil
		}

		fmt.Fprintln(out, "...analyzing and processing...")
		if err := exchange(ctx, out, session, input); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}
}

func exchange(ctx context.Context, out io.Writer, session agent.Session, prompt string) error {
	resp, err := session.SendMessage(ctx, prompt)
	if err != nil {
		return err
	}
	for _, call := range resp.ToolCalls {
		fmt.Fprintf(out, "[tool] %s\n", call.ToolName)
	}
	if resp.Content != "" {
		fmt.Fprintf(out, "\nAgent: %s\n\n", resp.Content)
	}
	return nil
}
