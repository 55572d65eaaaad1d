package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/jorgeantonio/flutter-architect/pkg/managed"
	"github.com/rs/zerolog"
)

// Provider is a model backend able to open conversation sessions.
type Provider interface {
	// Name returns the provider name used in logs and metrics.
	Name() string

	// Initialize prepares the backend. It must be called before CreateSession.
	Initialize(ctx context.Context) error

	// CreateSession opens a session with an empty history.
	CreateSession(ctx context.Context, opts SessionOptions) (Session, error)

	// Destroy releases the backend.
	Destroy(ctx context.Context) error
}

// Session is one conversation.
type Session interface {
	ID() string

	// SendMessage runs one round for prompt. Transport failures are reported
	// in Response.Content with a nil error.
	SendMessage(ctx context.Context, prompt string) (Response, error)

	// Destroy ends the session. It is idempotent.
	Destroy(ctx context.Context) error
}

// ProviderFactory creates providers from profiles.
type ProviderFactory struct {
	Logger zerolog.Logger
	// SystemPrompt is the managed backend's default prompt for append-mode sessions.
	SystemPrompt string
}

// NewProvider creates the provider selected by profile.Kind.
func (f *ProviderFactory) NewProvider(profile ProviderProfile) (Provider, error) {
	switch strings.ToLower(profile.Kind) {
	case "deepseek", "openai":
		client := NewOpenAIChatClient(OpenAIChatConfig{
			APIKey:     profile.APIKey,
			BaseURL:    profile.BaseURL,
			MaxRetries: profile.MaxRetries,
			Timeout:    profile.RequestTimeout,
		})
		return NewRawChatProvider(RawChatConfig{
			Name:           strings.ToLower(profile.Kind),
			Client:         client,
			Model:          profile.Model,
			RequestTimeout: profile.RequestTimeout,
			Logger:         f.Logger,
		})
	case "anthropic", "managed":
		client := managed.NewClient(managed.ClientOptions{
			APIKey:              profile.APIKey,
			BaseURL:             profile.BaseURL,
			Model:               profile.Model,
			MaxTokens:           profile.MaxTokens,
			MaxTurns:            profile.MaxTurns,
			DefaultSystemPrompt: f.SystemPrompt,
			Logger:              f.Logger,
		})
		return NewManagedAgentProvider(ManagedConfig{
			Name:           strings.ToLower(profile.Kind),
			Backend:        ClientBackend(client),
			Model:          profile.Model,
			RequestTimeout: profile.RequestTimeout,
			Logger:         f.Logger,
		})
	default:
		return nil, fmt.Errorf("unsupported provider: %s", profile.Kind)
	}
}
