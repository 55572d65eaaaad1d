package managed

import (
	"context"
	"fmt"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	DefaultModel     = "claude-sonnet-4-5"
	DefaultMaxTokens = 4096
	DefaultMaxTurns  = 10
)

// ClientOptions configures a Client.
type ClientOptions struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int64
	MaxTurns  int
	// DefaultSystemPrompt precedes an append-mode system message.
	DefaultSystemPrompt string
	Logger              zerolog.Logger
	// RequestOptions are passed through to the Anthropic client.
	RequestOptions []option.RequestOption
}

// Client hosts managed sessions.
type Client struct {
	opts ClientOptions

	mu       sync.Mutex
	api      *anthropic.Client
	sessions map[string]*Session
}

// NewClient creates a client. No connection is made until Start.
func NewClient(opts ClientOptions) *Client {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = DefaultMaxTurns
	}

	return &Client{
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Start prepares the API client. Calling Start twice is a no-op.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.api != nil {
		return nil
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(c.opts.APIKey)}
	if c.opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(c.opts.BaseURL))
	}
	reqOpts = append(reqOpts, c.opts.RequestOptions...)

	api := anthropic.NewClient(reqOpts...)
	c.api = &api

	c.opts.Logger.Debug().Str("model", c.opts.Model).Msg("Managed client started")
	return nil
}

// Stop destroys every open session and releases the API client.
func (c *Client) Stop(ctx context.Context) error {
	c.mu.Lock()
	sessions := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		sessions = append(sessions, s)
	}
	c.api = nil
	c.mu.Unlock()

	for _, s := range sessions {
		if err := s.Destroy(ctx); err != nil {
			return fmt.Errorf("failed to destroy session %s: %w", s.ID(), err)
		}
	}

	c.opts.Logger.Debug().Int("sessions", len(sessions)).Msg("Managed client stopped")
	return nil
}

// CreateSession opens a session with its own empty history.
func (c *Client) CreateSession(ctx context.Context, cfg SessionConfig) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.api == nil {
		return nil, ErrClientNotStarted
	}

	for i, tool := range cfg.Tools {
		if tool.Name == "" {
			return nil, fmt.Errorf("tool %d has no name", i)
		}
		if tool.Handler == nil {
			return nil, fmt.Errorf("tool %s has no handler", tool.Name)
		}
	}

	model := cfg.Model
	if model == "" {
		model = c.opts.Model
	}
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = c.opts.MaxTurns
	}

	s := newSession(sessionParams{
		id:        uuid.New().String(),
		api:       c.api,
		model:     model,
		maxTokens: c.opts.MaxTokens,
		maxTurns:  maxTurns,
		system:    resolveSystemPrompt(c.opts.DefaultSystemPrompt, cfg.SystemMessage),
		tools:     cfg.Tools,
		logger:    c.opts.Logger,
		onClose:   c.forget,
	})
	c.sessions[s.ID()] = s

	c.opts.Logger.Debug().Str("session_id", s.ID()).Str("model", model).Int("tools", len(cfg.Tools)).Msg("Managed session created")
	return s, nil
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.sessions, id)
}

func resolveSystemPrompt(base string, msg *SystemMessage) string {
	if msg == nil {
		return base
	}
	if msg.Mode == SystemModeAppend && base != "" {
		if msg.Content == "" {
			return base
		}
		return base + "\n\n" + msg.Content
	}
	return msg.Content
}
